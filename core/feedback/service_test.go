package feedback_test

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"
	"time"

	"github.com/tshola/ngoma/core"
	"github.com/tshola/ngoma/core/collection"
	"github.com/tshola/ngoma/core/feedback"
	"github.com/tshola/ngoma/core/member"
	logsvc "github.com/tshola/ngoma/services/logger"
	notifsvc "github.com/tshola/ngoma/services/notification"
	"github.com/tshola/ngoma/storage/cache/dummycache"
	"github.com/tshola/ngoma/storage/remote/dummyremote"
)

var (
	testLogger = logsvc.NewStdLogger(log.New(io.Discard, "", 0))

	admin  = &member.Member{Key: "admin-key", Roles: member.AdminRoles}
	nobody = &member.Member{Key: "member-key", Roles: member.MemberRoles}
)

func newTestService(t *testing.T) (*feedback.Service, *notifsvc.DummyService) {
	t.Helper()
	notif := notifsvc.NewDummyService()
	mgr := collection.NewManager(collection.Options[feedback.Feedback]{
		Name:          feedback.Collection,
		Remote:        dummyremote.New(),
		Cache:         dummycache.New(),
		Logger:        testLogger,
		RetryInterval: 10 * time.Millisecond,
	})
	t.Cleanup(mgr.Close)
	return feedback.NewService(mgr, notif, testLogger), notif
}

func TestServiceSubmit(t *testing.T) {
	ctx := context.Background()
	svc, notif := newTestService(t)

	fb, err := svc.Submit(ctx, feedback.NewFeedback{Rating: 5, Body: "more salsa please"}, nobody.Key)
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if fb.MemberKey != nobody.Key {
		t.Errorf("MemberKey = %s, want %s", fb.MemberKey, nobody.Key)
	}

	pushed := notif.Pushed()
	if len(pushed) != 1 || pushed[0].Audience != core.AudienceAdmins {
		t.Errorf("Pushed() = %+v, want one admin-audience notification", pushed)
	}

	if _, err := svc.Submit(ctx, feedback.NewFeedback{Rating: 6, Body: "over the top"}, nobody.Key); err == nil {
		t.Error("Submit() accepted an out-of-range rating")
	}
}

func TestServiceQueryAndDelete(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	fb, err := svc.Submit(ctx, feedback.NewFeedback{Rating: 2, Body: "app crashes"}, nobody.Key)
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	if _, err := svc.QueryAll(nobody); !errors.Is(err, feedback.ErrNotAllowed) {
		t.Errorf("QueryAll() error = %v, want ErrNotAllowed", err)
	}
	all, err := svc.QueryAll(admin)
	if err != nil || len(all) != 1 {
		t.Errorf("QueryAll() = %d entries, %v; want 1", len(all), err)
	}

	if err := svc.Delete(ctx, fb.Key, nobody); !errors.Is(err, feedback.ErrNotAllowed) {
		t.Errorf("Delete() error = %v, want ErrNotAllowed", err)
	}
	if err := svc.Delete(ctx, fb.Key, admin); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := svc.Delete(ctx, fb.Key, admin); !errors.Is(err, feedback.ErrNotFound) {
		t.Errorf("Delete() twice error = %v, want ErrNotFound", err)
	}
}
