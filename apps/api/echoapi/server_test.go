package echoapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tshola/ngoma/apps/api/echoapi"
	"github.com/tshola/ngoma/core"
	"github.com/tshola/ngoma/core/chat"
	"github.com/tshola/ngoma/core/collection"
	"github.com/tshola/ngoma/core/course"
	"github.com/tshola/ngoma/core/feedback"
	"github.com/tshola/ngoma/core/member"
	"github.com/tshola/ngoma/core/redeem"
	logsvc "github.com/tshola/ngoma/services/logger"
	notifsvc "github.com/tshola/ngoma/services/notification"
	"github.com/tshola/ngoma/storage/cache/dummycache"
	"github.com/tshola/ngoma/storage/remote/dummyremote"
)

var testLogger = logsvc.NewStdLogger(log.New(io.Discard, "", 0))

type testApp struct {
	server    echoapi.Server
	memberSvc *member.Service
	redeemSvc *redeem.Service
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	conf := &core.Config{
		Env:                       "TEST",
		TestMode:                  true,
		AppName:                   "Ngoma",
		SecretKey:                 []byte("secret"),
		JWTExpirationDelta:        7 * 24 * time.Hour,
		JWTRefreshExpirationDelta: 4 * time.Hour,
	}

	remote := dummyremote.New()
	cache := dummycache.New()
	notif := notifsvc.NewDummyService()

	memberMgr := collection.NewManager(collection.Options[member.Member]{
		Name: member.Collection, Remote: remote, Cache: cache, Logger: testLogger,
		Conflicts: member.Conflicts, RetryInterval: 10 * time.Millisecond,
	})
	courseMgr := collection.NewManager(collection.Options[course.Course]{
		Name: course.Collection, Remote: remote, Cache: cache, Logger: testLogger, RetryInterval: 10 * time.Millisecond,
	})
	lessonMgr := collection.NewManager(collection.Options[course.Lesson]{
		Name: course.LessonCollection, Remote: remote, Cache: cache, Logger: testLogger, RetryInterval: 10 * time.Millisecond,
	})
	commentMgr := collection.NewManager(collection.Options[course.Comment]{
		Name: course.CommentCollection, Remote: remote, Cache: cache, Logger: testLogger, RetryInterval: 10 * time.Millisecond,
	})
	chatMgr := collection.NewManager(collection.Options[chat.Message]{
		Name: chat.Collection, Remote: remote, Cache: cache, Logger: testLogger, RetryInterval: 10 * time.Millisecond,
	})
	redeemMgr := collection.NewManager(collection.Options[redeem.Key]{
		Name: redeem.Collection, Remote: remote, Cache: cache, Logger: testLogger,
		Conflicts: redeem.Conflicts, RetryInterval: 10 * time.Millisecond,
	})
	feedbackMgr := collection.NewManager(collection.Options[feedback.Feedback]{
		Name: feedback.Collection, Remote: remote, Cache: cache, Logger: testLogger, RetryInterval: 10 * time.Millisecond,
	})
	t.Cleanup(func() {
		memberMgr.Close()
		courseMgr.Close()
		lessonMgr.Close()
		commentMgr.Close()
		chatMgr.Close()
		redeemMgr.Close()
		feedbackMgr.Close()
	})

	memberSvc := member.NewService(memberMgr, testLogger)
	redeemSvc := redeem.NewService(redeemMgr, testLogger)
	server := echoapi.NewServer(&echoapi.Options{
		Conf:           conf,
		Logger:         testLogger,
		DisableReqLogs: true,
		MemberSvc:      memberSvc,
		CourseSvc:      course.NewService(courseMgr, lessonMgr, commentMgr, testLogger),
		ChatSvc:        chat.NewService(chatMgr, notif, testLogger),
		RedeemSvc:      redeemSvc,
		FeedbackSvc:    feedback.NewService(feedbackMgr, notif, testLogger),
	})
	return &testApp{server: server, memberSvc: memberSvc, redeemSvc: redeemSvc}
}

func (app *testApp) request(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	app.server.ServeHTTP(rec, req)
	return rec
}

func (app *testApp) registerMember(t *testing.T, uname string, roles ...string) member.Member {
	t.Helper()
	m, err := app.memberSvc.Register(context.Background(), member.NewMember{
		Name:            "Test " + uname,
		Username:        uname,
		Password:        "LordOfTheMics",
		PasswordConfirm: "LordOfTheMics",
		Roles:           roles,
	})
	require.NoError(t, err)
	return m
}

func (app *testApp) login(t *testing.T, uname string) string {
	t.Helper()
	rec := app.request(t, http.MethodPost, "/v1/members/login", "", map[string]string{
		"username": uname,
		"password": "LordOfTheMics",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var res struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	require.NotEmpty(t, res.Token)
	return res.Token
}

func TestServerHome(t *testing.T) {
	app := newTestApp(t)
	rec := app.request(t, http.MethodGet, "/", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Welcome to the Ngoma API!", rec.Body.String())
}

func TestMemberRegisterAndLogin(t *testing.T) {
	app := newTestApp(t)

	rec := app.request(t, http.MethodPost, "/v1/members/register", "", map[string]string{
		"name":             "Awa Thiam",
		"username":         "AwaT",
		"password":         "LordOfTheMics",
		"password_confirm": "LordOfTheMics",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created struct {
		Key      string `json:"key"`
		Username string `json:"username"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "awat", created.Username)
	assert.NotContains(t, rec.Body.String(), "password_hash")

	token := app.login(t, "awat")

	rec = app.request(t, http.MethodGet, "/v1/members/me", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var me struct {
		Key           string `json:"key"`
		StreakCurrent int    `json:"streak_current"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &me))
	assert.Equal(t, created.Key, me.Key)
	// logging in counted today towards the streak
	assert.Equal(t, 1, me.StreakCurrent)
}

func TestMemberRegisterValidation(t *testing.T) {
	app := newTestApp(t)
	rec := app.request(t, http.MethodPost, "/v1/members/register", "", map[string]string{
		"name":             "Awa Thiam",
		"username":         "aw", // too short
		"password":         "short",
		"password_confirm": "short",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var fields map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &fields))
	assert.Contains(t, fields, "username")
	assert.Contains(t, fields, "password")
}

func TestMemberUsernameAvailable(t *testing.T) {
	app := newTestApp(t)
	app.registerMember(t, "taken")

	rec := app.request(t, http.MethodGet, "/v1/members/username-available?username=TAKEN", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var res struct {
		Available bool `json:"available"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.False(t, res.Available)

	rec = app.request(t, http.MethodGet, "/v1/members/username-available?username=free", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.True(t, res.Available)
}

func TestMemberAuthorization(t *testing.T) {
	app := newTestApp(t)
	app.registerMember(t, "plain")
	app.registerMember(t, "boss", member.RoleAdmin)

	// no token
	rec := app.request(t, http.MethodGet, "/v1/members/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// listing members is admin only
	plainToken := app.login(t, "plain")
	rec = app.request(t, http.MethodGet, "/v1/members", plainToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	bossToken := app.login(t, "boss")
	rec = app.request(t, http.MethodGet, "/v1/members", bossToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMemberCheckin(t *testing.T) {
	app := newTestApp(t)
	app.registerMember(t, "dancer")
	token := app.login(t, "dancer")

	// the login already counted today; checking in again changes nothing
	rec := app.request(t, http.MethodPost, "/v1/members/me/checkin", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var res struct {
		Current   int  `json:"current"`
		Longest   int  `json:"longest"`
		DidChange bool `json:"did_change"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, 1, res.Current)
	assert.Equal(t, 1, res.Longest)
	assert.False(t, res.DidChange)
}

func TestRedeemFlow(t *testing.T) {
	app := newTestApp(t)
	app.registerMember(t, "boss", member.RoleAdmin)
	app.registerMember(t, "dancer")

	bossToken := app.login(t, "boss")
	rec := app.request(t, http.MethodPost, "/v1/keys", bossToken, map[string]interface{}{
		"code":     "groove21",
		"grant":    "premium-30d",
		"max_uses": 1,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	dancerToken := app.login(t, "dancer")
	rec = app.request(t, http.MethodPost, "/v1/keys/redeem", dancerToken, map[string]string{"code": "GROOVE21"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var res struct {
		Grant string `json:"grant"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, "premium-30d", res.Grant)

	// exhausted on the second member
	app.registerMember(t, "late")
	lateToken := app.login(t, "late")
	rec = app.request(t, http.MethodPost, "/v1/keys/redeem", lateToken, map[string]string{"code": "groove21"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// creating keys is gated
	rec = app.request(t, http.MethodPost, "/v1/keys", dancerToken, map[string]interface{}{
		"code": "sneaky1", "grant": "premium-30d", "max_uses": 1,
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestChatConversationAccess(t *testing.T) {
	app := newTestApp(t)
	owner := app.registerMember(t, "owner")
	app.registerMember(t, "snoop")
	app.registerMember(t, "helper", member.RoleSupport)

	ownerToken := app.login(t, "owner")
	conv := chat.SupportConversationKey(owner.Key)
	rec := app.request(t, http.MethodPost, "/v1/chat/conversations/"+conv+"/open", ownerToken, nil)
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	// another member can neither read the conversation nor tear its feed down
	snoopToken := app.login(t, "snoop")
	rec = app.request(t, http.MethodGet, "/v1/chat/conversations/"+conv+"/messages", snoopToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = app.request(t, http.MethodPost, "/v1/chat/conversations/"+conv+"/close", snoopToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// support staff and the owner may close it
	helperToken := app.login(t, "helper")
	rec = app.request(t, http.MethodPost, "/v1/chat/conversations/"+conv+"/close", helperToken, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = app.request(t, http.MethodPost, "/v1/chat/conversations/"+conv+"/close", ownerToken, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestCourseCatalogPublic(t *testing.T) {
	app := newTestApp(t)
	app.registerMember(t, "coach", member.RoleTrainer)
	token := app.login(t, "coach")

	rec := app.request(t, http.MethodPost, "/v1/courses", token, map[string]string{
		"title":    "Salsa On2",
		"category": "salsa",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var crs struct {
		Key string `json:"key"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &crs))

	// unpublished courses are invisible to the public catalog
	rec = app.request(t, http.MethodGet, "/v1/courses", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())

	rec = app.request(t, http.MethodPut, "/v1/courses/"+crs.Key+"/publish", token, map[string]bool{"published": true})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = app.request(t, http.MethodGet, "/v1/courses", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Salsa On2")
}
