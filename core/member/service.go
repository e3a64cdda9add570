package member

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tshola/ngoma/core"
	"github.com/tshola/ngoma/core/collection"
)

var (
	// errors
	ErrNotFound       = errors.New("member not found")
	ErrUsernameExists = errors.New("a member with this username already exists")
	ErrEmailExists    = errors.New("a member with this email already exists")
)

// Conflicts is the uniqueness precondition for the members collection:
// usernames are unique case-insensitively, emails too when present.
func Conflicts(existing, candidate Member) bool {
	if strings.EqualFold(existing.Username, candidate.Username) {
		return true
	}
	return candidate.Email != "" && strings.EqualFold(existing.Email, candidate.Email)
}

type Service struct {
	mgr *collection.Manager[Member]
	log core.Logger
}

func NewService(mgr *collection.Manager[Member], log core.Logger) *Service {
	return &Service{mgr: mgr, log: log}
}

// Load reconciles the Collection against the remote store; see Manager.Load.
func (svc *Service) Load(ctx context.Context) error {
	return svc.mgr.Load(ctx)
}

func (svc *Service) Register(ctx context.Context, nm NewMember) (Member, error) {
	if err := nm.Validate(); err != nil {
		return Member{}, err
	}

	roles := nm.Roles
	if len(roles) == 0 {
		roles = []string{RoleMember}
	}
	now := time.Now().UTC()
	m := Member{
		Key:       uuid.New().String(),
		Name:      nm.Name,
		Username:  nm.Username,
		Email:     nm.Email,
		IsActive:  true,
		Roles:     roles,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := m.SetPassword(nm.Password); err != nil {
		return Member{}, err
	}

	if err := svc.mgr.Create(ctx, m); err != nil {
		if errors.Is(err, collection.ErrDuplicate) {
			if svc.UsernameTaken(nm.Username) {
				return Member{}, core.NewValidationError(ErrUsernameExists,
					core.FieldError{Field: "username", Error: ErrUsernameExists.Error()})
			}
			return Member{}, core.NewValidationError(ErrEmailExists,
				core.FieldError{Field: "email", Error: ErrEmailExists.Error()})
		}
		return Member{}, err
	}
	return m, nil
}

// QueryAll returns all members, most recently created first.
func (svc *Service) QueryAll() []Member {
	return svc.mgr.Sorted(nil, func(a, b Member) bool { return a.CreatedAt.After(b.CreatedAt) })
}

func (svc *Service) GetByKey(key string) (Member, error) {
	m, err := svc.mgr.Get(key)
	if errors.Is(err, collection.ErrNotFound) {
		return Member{}, ErrNotFound
	}
	return m, err
}

func (svc *Service) GetByUsername(uname string) (Member, error) {
	uname = core.CleanString(uname, true /* lower */)
	for _, m := range svc.mgr.All() {
		if strings.EqualFold(m.Username, uname) {
			return m, nil
		}
	}
	return Member{}, ErrNotFound
}

func (svc *Service) GetByUsernameOrEmail(uname string) (Member, error) {
	uname = core.CleanString(uname, true /* lower */)
	for _, m := range svc.mgr.All() {
		if strings.EqualFold(m.Username, uname) || (m.Email != "" && strings.EqualFold(m.Email, uname)) {
			return m, nil
		}
	}
	return Member{}, ErrNotFound
}

func (svc *Service) UsernameTaken(uname string) bool {
	_, err := svc.GetByUsername(uname)
	return err == nil
}

func (svc *Service) Update(ctx context.Context, key string, um UpdateMember) (Member, error) {
	if err := um.Validate(); err != nil {
		return Member{}, err
	}
	if um.Email != "" {
		if other, err := svc.GetByUsernameOrEmail(um.Email); err == nil && other.Key != key {
			return Member{}, core.NewValidationError(ErrEmailExists,
				core.FieldError{Field: "email", Error: ErrEmailExists.Error()})
		}
	}

	var hash []byte
	if um.Password != "" {
		var tmp Member
		if err := tmp.SetPassword(um.Password); err != nil {
			return Member{}, err
		}
		hash = tmp.PasswordHash
	}

	m, err := svc.mgr.Update(ctx, key, func(m Member) Member {
		if um.Name != "" {
			m.Name = um.Name
		}
		if um.Email != "" {
			m.Email = um.Email
		}
		if um.IsActive != nil {
			m.IsActive = *um.IsActive
		}
		if len(um.Roles) > 0 {
			m.Roles = um.Roles
		}
		if hash != nil {
			m.PasswordHash = hash
		}
		m.UpdatedAt = time.Now().UTC()
		return m
	})
	if errors.Is(err, collection.ErrNotFound) {
		return Member{}, ErrNotFound
	}
	return m, err
}

// Deactivate soft deletes a member; the record stays for moderation history.
func (svc *Service) Deactivate(ctx context.Context, key string) error {
	inactive := false
	_, err := svc.Update(ctx, key, UpdateMember{IsActive: &inactive})
	return err
}

func (svc *Service) Delete(ctx context.Context, key string) error {
	if err := svc.mgr.Delete(ctx, key); err != nil {
		if errors.Is(err, collection.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

// RecordLogin counts a login at now towards the member's day streak and
// returns the resulting streak plus whether it changed.
func (svc *Service) RecordLogin(ctx context.Context, key string, now time.Time) (Streak, bool, error) {
	var (
		streak  Streak
		changed bool
	)
	_, err := svc.mgr.Update(ctx, key, func(m Member) Member {
		streak, changed = AdvanceStreak(m.LastLoginDay, now, Streak{Current: m.StreakCurrent, Longest: m.StreakLongest})
		if changed {
			today := day(now)
			m.LastLoginDay = &today
			m.StreakCurrent = streak.Current
			m.StreakLongest = streak.Longest
			m.UpdatedAt = now.UTC()
		}
		return m
	})
	if errors.Is(err, collection.ErrNotFound) {
		return Streak{}, false, ErrNotFound
	}
	return streak, changed, err
}

// LastError exposes the collection's last remote sync failure.
func (svc *Service) LastError() error {
	return svc.mgr.LastError()
}
