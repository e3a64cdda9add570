package main

import (
	"context"
	"fmt"
	"time"

	"github.com/tshola/ngoma/core/member"
	"github.com/tshola/ngoma/core/redeem"
)

// genKey creates a redemption key on behalf of the operator.
func (cli *commandLine) genKey(code, grant string, maxUses int, expires string) error {
	var expiresAt time.Time
	if expires != "" {
		t, err := time.Parse(time.RFC3339, expires)
		if err != nil {
			return err
		}
		expiresAt = t
	}

	operator := &member.Member{Roles: member.AdminRoles}
	key, err := cli.redeemSvc.Create(context.Background(), redeem.NewKey{
		Code:      code,
		Grant:     grant,
		MaxUses:   maxUses,
		ExpiresAt: expiresAt,
	}, operator)
	if err != nil {
		return err
	}
	fmt.Printf("key %s created: code=%s grant=%s max-uses=%d\n", key.Key, key.Code, key.Grant, key.MaxUses)
	return nil
}
