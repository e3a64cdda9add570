package redeem

import (
	"time"

	"github.com/tshola/ngoma/core"
)

// Collection is the remote collection / cache entry name for redemption keys.
const Collection = "redemption_keys"

// Key is a redeemable promo/referral code. Uses are counted per member so a
// member can never redeem the same key twice.
type Key struct {
	Key         string    `json:"key"`
	Code        string    `json:"code"`
	Grant       string    `json:"grant"` // what redeeming unlocks, eg. "premium-30d"
	MaxUses     int       `json:"max_uses"`
	CurrentUses int       `json:"current_uses"`
	RedeemedBy  []string  `json:"redeemed_by,omitempty"` // member keys
	ExpiresAt   time.Time `json:"expires_at,omitempty"`  // zero means no expiry
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (k Key) RecordKey() string { return k.Key }

// Valid reports whether the key can still be redeemed at now.
func (k Key) Valid(now time.Time) bool {
	if !k.ExpiresAt.IsZero() && now.After(k.ExpiresAt) {
		return false
	}
	return k.CurrentUses < k.MaxUses
}

// WasRedeemedBy reports whether a member already redeemed this key.
func (k Key) WasRedeemedBy(memberKey string) bool {
	for _, key := range k.RedeemedBy {
		if key == memberKey {
			return true
		}
	}
	return false
}

// NewKey contains information needed to create a redemption Key.
type NewKey struct {
	Code      string    `json:"code" validate:"required,min=4,alphanum_"`
	Grant     string    `json:"grant" validate:"required"`
	MaxUses   int       `json:"max_uses" validate:"gt=0"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (nk *NewKey) Validate() error {
	nk.Code = core.CleanString(nk.Code, true /* lower */)
	nk.Grant = core.CleanString(nk.Grant, true /* lower */)
	return core.Validate.Struct(nk)
}
