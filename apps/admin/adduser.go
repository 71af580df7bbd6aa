package main

import (
	"context"

	"github.com/pkg/errors"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/user"
)

// addUser updates or creates a user.User
func (cli *commandLine) addUser(email, firstName, lastName, role, pwd string) error {
	var usr user.User
	var err error
	ctx := context.Background()
	email = core.CleanString(email, true /* lower */)
	role = core.CleanString(role, true /* lower */)

	if role != user.RoleTeacher && role != user.RoleStudent {
		return errors.Errorf("invalid role %q: must be teacher or student", role)
	}

	if usr, err = cli.usrRepo.GetUserByEmail(ctx, email); err != nil {
		if errors.Cause(err) != user.ErrNotFound {
			return err
		}
		usr = user.User{
			Email: email,
			Role:  role,
		}
	}
	usr.FirstName = core.CleanString(firstName)
	usr.LastName = core.CleanString(lastName)
	usr.SetActive(true)
	if err := usr.SetPassword(pwd); err != nil {
		return err
	}
	if _, err := cli.usrRepo.UpdateOrCreateUser(ctx, usr); err != nil {
		return err
	}
	return nil
}
