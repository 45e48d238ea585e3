package main

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/examiner/core"
	"github.com/trezcool/examiner/core/user"
	"github.com/trezcool/examiner/storage/database"
)

var errUserNotFound = errors.New("user not found")

func (cli *commandLine) resetPassword(uname, pwd string) error {
	ctx := context.Background()
	uname = core.CleanString(uname, true /* lower */)

	db, err := cli.database()
	if err != nil {
		return err
	}

	var usr user.User
	found, err := db.GetByIndex(ctx, database.Users, "username", uname, &usr)
	if err != nil {
		return err
	}
	if !found {
		if found, err = db.GetByIndex(ctx, database.Users, "email", uname, &usr); err != nil {
			return err
		}
	}
	if !found {
		return errUserNotFound
	}

	if err = usr.SetPassword(pwd); err != nil {
		return err
	}
	patch := map[string]interface{}{"password_hash": usr.PasswordHash, "updated_at": core.NowFunc()}
	return errors.Wrap(db.Update(ctx, database.Users, usr.ID, patch, nil), "updating password")
}
