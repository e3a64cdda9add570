package chat

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tshola/ngoma/core"
	"github.com/tshola/ngoma/core/collection"
	"github.com/tshola/ngoma/core/member"
)

var (
	// errors
	ErrNotFound   = errors.New("message not found")
	ErrNotAllowed = errors.New("not enough rights")
)

type Service struct {
	mgr   *collection.Manager[Message]
	notif core.NotificationService
	log   core.Logger
}

func NewService(mgr *collection.Manager[Message], notif core.NotificationService, log core.Logger) *Service {
	return &Service{mgr: mgr, notif: notif, log: log}
}

// Load reconciles the message Collection against the remote store.
func (svc *Service) Load(ctx context.Context) error {
	return svc.mgr.Load(ctx)
}

// Send appends a message to its conversation and alerts the other side:
// member-sent support messages notify the support staff, staff-sent messages
// notify the member. Notification delivery is fire-and-forget.
func (svc *Service) Send(ctx context.Context, nm NewMessage, sender *member.Member) (Message, error) {
	if err := nm.Validate(); err != nil {
		return Message{}, err
	}
	if nm.ConversationKey == BroadcastConvos && !sender.Can(member.CapBroadcast) {
		return Message{}, ErrNotAllowed
	}

	msg := Message{
		Key:             uuid.New().String(),
		ConversationKey: nm.ConversationKey,
		SenderKey:       sender.Key,
		SenderRole:      topRole(sender.Roles),
		Body:            nm.Body,
		SentAt:          time.Now().UTC(),
	}
	if err := svc.mgr.Create(ctx, msg); err != nil {
		return Message{}, err
	}

	svc.dispatch(msg, sender)
	return msg, nil
}

func (svc *Service) dispatch(msg Message, sender *member.Member) {
	if !strings.HasPrefix(msg.ConversationKey, SupportPrefix) {
		return
	}
	if sender.Can(member.CapAnswerSupport) {
		// staff reply: alert the member owning the conversation
		svc.notif.Push(&core.Notification{
			Audience:  core.AudienceMember,
			TargetKey: strings.TrimPrefix(msg.ConversationKey, SupportPrefix),
			Title:     "Support replied",
			Body:      msg.Body,
		})
		return
	}
	svc.notif.Push(&core.Notification{
		Audience: core.AudienceSupport,
		Title:    "New support message",
		Body:     msg.Body,
	})
}

// History returns a conversation's messages in send order.
func (svc *Service) History(conversationKey string) []Message {
	return svc.mgr.Sorted(
		func(m Message) bool { return m.ConversationKey == conversationKey },
		func(a, b Message) bool { return a.SentAt.Before(b.SentAt) },
	)
}

// OpenConversation starts the live feed for a conversation. Opening an already
// open conversation is a no-op; the feed stays up until CloseConversation.
func (svc *Service) OpenConversation(conversationKey string) error {
	return svc.mgr.SubscribeLive(conversationKey,
		collection.Filter{Field: "conversation_key", Value: conversationKey},
		collection.Order{Field: "sent_at"},
	)
}

// Live returns the current live snapshot of an open conversation.
func (svc *Service) Live(conversationKey string) []Message {
	return svc.mgr.LiveSlice(conversationKey)
}

// CloseConversation stops the live feed for a conversation.
func (svc *Service) CloseConversation(conversationKey string) {
	svc.mgr.Unsubscribe(conversationKey)
}

// CloseAll tears down every live feed; call on logout so no update reaches a
// stale member context.
func (svc *Service) CloseAll() {
	svc.mgr.UnsubscribeAll()
}

// Inbox lists the latest message of every support conversation, most recent
// first, for the support staff view.
func (svc *Service) Inbox(viewer *member.Member) ([]Message, error) {
	if !viewer.Can(member.CapViewSupportInbox) {
		return nil, ErrNotAllowed
	}
	latest := make(map[string]Message)
	for _, m := range svc.mgr.Query(func(m Message) bool {
		return strings.HasPrefix(m.ConversationKey, SupportPrefix)
	}) {
		if cur, ok := latest[m.ConversationKey]; !ok || m.SentAt.After(cur.SentAt) {
			latest[m.ConversationKey] = m
		}
	}
	msgs := make([]Message, 0, len(latest))
	for _, m := range latest {
		msgs = append(msgs, m)
	}
	sort.Slice(msgs, func(i, j int) bool { return msgs[i].SentAt.After(msgs[j].SentAt) })
	return msgs, nil
}

// LastError exposes the collection's last remote sync failure.
func (svc *Service) LastError() error {
	return svc.mgr.LastError()
}

func topRole(roles []string) string {
	var top string
	for _, role := range roles {
		if member.RolePriority(role) >= member.RolePriority(top) {
			top = role
		}
	}
	return top
}
