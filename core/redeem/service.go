package redeem

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tshola/ngoma/core"
	"github.com/tshola/ngoma/core/collection"
	"github.com/tshola/ngoma/core/member"
)

var (
	// errors
	ErrNotFound        = errors.New("redemption key not found")
	ErrCodeExists      = errors.New("a key with this code already exists")
	ErrExpired         = errors.New("this key has expired")
	ErrExhausted       = errors.New("this key has no uses left")
	ErrAlreadyRedeemed = errors.New("already redeemed")
	ErrNotAllowed      = errors.New("not enough rights")
)

// Conflicts is the uniqueness precondition for redemption keys: codes are
// unique case-insensitively.
func Conflicts(existing, candidate Key) bool {
	return strings.EqualFold(existing.Code, candidate.Code)
}

type Service struct {
	mgr *collection.Manager[Key]
	log core.Logger
}

func NewService(mgr *collection.Manager[Key], log core.Logger) *Service {
	return &Service{mgr: mgr, log: log}
}

// Load reconciles the key Collection against the remote store.
func (svc *Service) Load(ctx context.Context) error {
	return svc.mgr.Load(ctx)
}

func (svc *Service) Create(ctx context.Context, nk NewKey, by *member.Member) (Key, error) {
	if !by.Can(member.CapManageKeys) {
		return Key{}, ErrNotAllowed
	}
	if err := nk.Validate(); err != nil {
		return Key{}, err
	}
	now := time.Now().UTC()
	key := Key{
		Key:       uuid.New().String(),
		Code:      nk.Code,
		Grant:     nk.Grant,
		MaxUses:   nk.MaxUses,
		ExpiresAt: nk.ExpiresAt,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := svc.mgr.Create(ctx, key); err != nil {
		if errors.Is(err, collection.ErrDuplicate) {
			return Key{}, core.NewValidationError(ErrCodeExists,
				core.FieldError{Field: "code", Error: ErrCodeExists.Error()})
		}
		return Key{}, err
	}
	return key, nil
}

// GetByCode finds a key by its code, case-insensitively.
func (svc *Service) GetByCode(code string) (Key, error) {
	code = core.CleanString(code, true /* lower */)
	for _, k := range svc.mgr.All() {
		if strings.EqualFold(k.Code, code) {
			return k, nil
		}
	}
	return Key{}, ErrNotFound
}

// Redeem consumes one use of the key identified by code on behalf of a member.
// A member redeeming the same key twice gets ErrAlreadyRedeemed and the use
// count is not incremented.
func (svc *Service) Redeem(ctx context.Context, code, memberKey string) (Key, error) {
	k, err := svc.GetByCode(code)
	if err != nil {
		return Key{}, err
	}
	if k.WasRedeemedBy(memberKey) {
		return Key{}, ErrAlreadyRedeemed
	}
	now := time.Now().UTC()
	if !k.ExpiresAt.IsZero() && now.After(k.ExpiresAt) {
		return Key{}, ErrExpired
	}
	if k.CurrentUses >= k.MaxUses {
		return Key{}, ErrExhausted
	}

	return svc.mgr.Update(ctx, k.Key, func(k Key) Key {
		k.CurrentUses++
		k.RedeemedBy = append(k.RedeemedBy, memberKey)
		k.UpdatedAt = now
		return k
	})
}

// QueryAll returns all keys, most recently created first.
func (svc *Service) QueryAll(by *member.Member) ([]Key, error) {
	if !by.Can(member.CapManageKeys) {
		return nil, ErrNotAllowed
	}
	return svc.mgr.Sorted(nil, func(a, b Key) bool { return a.CreatedAt.After(b.CreatedAt) }), nil
}

func (svc *Service) Revoke(ctx context.Context, key string, by *member.Member) error {
	if !by.Can(member.CapManageKeys) {
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
