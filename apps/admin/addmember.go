package main

import (
	"context"
	"errors"

	"github.com/tshola/ngoma/core"
	"github.com/tshola/ngoma/core/member"
)

// addMember updates or creates a member.Member
func (cli *commandLine) addMember(name, uname, email, pwd string, isAdmin bool) error {
	ctx := context.Background()
	uname = core.CleanString(uname, true /* lower */)
	email = core.CleanString(email, true /* lower */)

	mbr, err := cli.memberSvc.GetByUsernameOrEmail(uname)
	if err != nil {
		if !errors.Is(err, member.ErrNotFound) {
			return err
		}
		nm := member.NewMember{
			Name:            name,
			Username:        uname,
			Email:           email,
			Password:        pwd,
			PasswordConfirm: pwd,
		}
		if isAdmin {
			nm.Roles = member.AllRoles
		}
		_, err = cli.memberSvc.Register(ctx, nm)
		return err
	}

	active := true
	um := member.UpdateMember{
		Name:            name,
		Email:           email,
		IsActive:        &active,
		Password:        pwd,
		PasswordConfirm: pwd,
	}
	if isAdmin {
		um.Roles = member.AllRoles
	}
	_, err = cli.memberSvc.Update(ctx, mbr.Key, um)
	return err
}
