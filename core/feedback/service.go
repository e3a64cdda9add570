package feedback

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/tshola/ngoma/core"
	"github.com/tshola/ngoma/core/collection"
	"github.com/tshola/ngoma/core/member"
)

var (
	// errors
	ErrNotFound   = errors.New("feedback not found")
	ErrNotAllowed = errors.New("not enough rights")
)

type Service struct {
	mgr   *collection.Manager[Feedback]
	notif core.NotificationService
	log   core.Logger
}

func NewService(mgr *collection.Manager[Feedback], notif core.NotificationService, log core.Logger) *Service {
	return &Service{mgr: mgr, notif: notif, log: log}
}

// Load reconciles the feedback Collection against the remote store.
func (svc *Service) Load(ctx context.Context) error {
	return svc.mgr.Load(ctx)
}

// Submit records member feedback and pings the admins about it.
func (svc *Service) Submit(ctx context.Context, nf NewFeedback, memberKey string) (Feedback, error) {
	if err := nf.Validate(); err != nil {
		return Feedback{}, err
	}
	fb := Feedback{
		Key:       uuid.New().String(),
		MemberKey: memberKey,
		Rating:    nf.Rating,
		Body:      nf.Body,
		CreatedAt: time.Now().UTC(),
	}
	if err := svc.mgr.Create(ctx, fb); err != nil {
		return Feedback{}, err
	}

	svc.notif.Push(&core.Notification{
		Audience: core.AudienceAdmins,
		Title:    "New feedback",
		Body:     fb.Body,
	})
	return fb, nil
}

// QueryAll returns all feedback, most recent first; admin only.
func (svc *Service) QueryAll(by *member.Member) ([]Feedback, error) {
	if !by.Can(member.CapManageMembers) {
		return nil, ErrNotAllowed
	}
	return svc.mgr.Sorted(nil, func(a, b Feedback) bool { return a.CreatedAt.After(b.CreatedAt) }), nil
}

func (svc *Service) Delete(ctx context.Context, key string, by *member.Member) error {
	if !by.Can(member.CapManageMembers) {
		return ErrNotAllowed
	}
	if err := svc.mgr.Delete(ctx, key); err != nil {
		if errors.Is(err, collection.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

// LastError exposes the collection's last remote sync failure.
func (svc *Service) LastError() error {
	return svc.mgr.LastError()
}
