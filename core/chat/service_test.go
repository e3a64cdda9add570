package chat_test

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"
	"time"

	"github.com/tshola/ngoma/core"
	"github.com/tshola/ngoma/core/chat"
	"github.com/tshola/ngoma/core/collection"
	"github.com/tshola/ngoma/core/member"
	logsvc "github.com/tshola/ngoma/services/logger"
	notifsvc "github.com/tshola/ngoma/services/notification"
	"github.com/tshola/ngoma/storage/cache/dummycache"
	"github.com/tshola/ngoma/storage/remote/dummyremote"
)

var (
	testLogger = logsvc.NewStdLogger(log.New(io.Discard, "", 0))

	staff = &member.Member{Key: "staff-key", Roles: member.SupportRoles}
	mbr   = &member.Member{Key: "member-key", Roles: member.MemberRoles}
	owner = &member.Member{Key: "owner-key", Roles: member.AdminRoles}
)

func newTestService(t *testing.T) (*chat.Service, *notifsvc.DummyService, *dummyremote.Store) {
	t.Helper()
	remote := dummyremote.New()
	notif := notifsvc.NewDummyService()
	mgr := collection.NewManager(collection.Options[chat.Message]{
		Name:          chat.Collection,
		Remote:        remote,
		Cache:         dummycache.New(),
		Logger:        testLogger,
		RetryInterval: 10 * time.Millisecond,
	})
	t.Cleanup(mgr.Close)
	return chat.NewService(mgr, notif, testLogger), notif, remote
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition never held")
}

func TestServiceSend(t *testing.T) {
	ctx := context.Background()
	svc, notif, _ := newTestService(t)
	conv := chat.SupportConversationKey(mbr.Key)

	msg, err := svc.Send(ctx, chat.NewMessage{ConversationKey: conv, Body: "my video will not play"}, mbr)
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if msg.SenderKey != mbr.Key || msg.SenderRole != member.RoleMember {
		t.Errorf("message sender = %s/%s, want %s/%s", msg.SenderKey, msg.SenderRole, mbr.Key, member.RoleMember)
	}

	// a member's support message alerts the support staff
	pushed := notif.Pushed()
	if len(pushed) != 1 || pushed[0].Audience != core.AudienceSupport {
		t.Fatalf("Pushed() = %+v, want one support-audience notification", pushed)
	}

	// a staff reply alerts the member owning the conversation
	if _, err = svc.Send(ctx, chat.NewMessage{ConversationKey: conv, Body: "try updating the app"}, staff); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	pushed = notif.Pushed()
	last := pushed[len(pushed)-1]
	if last.Audience != core.AudienceMember || last.TargetKey != mbr.Key {
		t.Errorf("staff reply notification = %+v, want member-audience targeting %s", last, mbr.Key)
	}
}

func TestServiceSendBroadcast(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)

	if _, err := svc.Send(ctx, chat.NewMessage{ConversationKey: chat.BroadcastConvos, Body: "hi all"}, mbr); !errors.Is(err, chat.ErrNotAllowed) {
		t.Errorf("Send() broadcast error = %v, want ErrNotAllowed", err)
	}
	if _, err := svc.Send(ctx, chat.NewMessage{ConversationKey: chat.BroadcastConvos, Body: "new salsa course!"}, owner); err != nil {
		t.Errorf("Send() broadcast as admin error = %v", err)
	}
}

func TestServiceHistoryAndInbox(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)
	convA := chat.SupportConversationKey("member-a")
	convB := chat.SupportConversationKey("member-b")

	send := func(conv, body string, by *member.Member) {
		t.Helper()
		if _, err := svc.Send(ctx, chat.NewMessage{ConversationKey: conv, Body: body}, by); err != nil {
			t.Fatalf("Send() error = %v", err)
		}
		time.Sleep(time.Millisecond) // distinct SentAt stamps
	}
	send(convA, "first", mbr)
	send(convB, "other convo", mbr)
	send(convA, "second", staff)

	history := svc.History(convA)
	if len(history) != 2 || history[0].Body != "first" || history[1].Body != "second" {
		t.Errorf("History() = %+v, want first/second in send order", history)
	}

	if _, err := svc.Inbox(mbr); !errors.Is(err, chat.ErrNotAllowed) {
		t.Errorf("Inbox() error = %v, want ErrNotAllowed for plain members", err)
	}
	inbox, err := svc.Inbox(staff)
	if err != nil {
		t.Fatalf("Inbox() error = %v", err)
	}
	if len(inbox) != 2 {
		t.Fatalf("len(Inbox()) = %d, want one entry per conversation", len(inbox))
	}
	if inbox[0].Body != "second" || inbox[0].ConversationKey != convA {
		t.Errorf("Inbox()[0] = %+v, want the latest message of the freshest conversation", inbox[0])
	}
}

func TestServiceLiveConversation(t *testing.T) {
	ctx := context.Background()
	svc, _, remote := newTestService(t)
	conv := chat.SupportConversationKey(mbr.Key)

	if err := svc.OpenConversation(conv); err != nil {
		t.Fatalf("OpenConversation() error = %v", err)
	}

	// the local send syncs to the remote store, which pushes the new snapshot
	// back through the live subscription
	if _, err := svc.Send(ctx, chat.NewMessage{ConversationKey: conv, Body: "anyone there?"}, mbr); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	waitFor(t, func() bool {
		live := svc.Live(conv)
		return len(live) == 1 && live[0].Body == "anyone there?"
	})
	waitFor(t, func() bool { return remote.Len(chat.Collection) == 1 })

	// closing stops updates
	svc.CloseConversation(conv)
	if _, err := svc.Send(ctx, chat.NewMessage{ConversationKey: conv, Body: "hello?"}, mbr); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	time.Sleep(20 * time.Millisecond)
	if live := svc.Live(conv); len(live) != 1 {
		t.Errorf("Live() after close = %d messages, want the last snapshot only", len(live))
	}
}
