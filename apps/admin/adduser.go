package main

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/examiner/apps/api/local"
	"github.com/trezcool/examiner/core"
	"github.com/trezcool/examiner/core/user"
	"github.com/trezcool/examiner/storage/database"
)

// addUser updates or creates a user.User
func (cli *commandLine) addUser(uname, email, pwd string, isAdmin bool) error {
	ctx := context.Background()
	nu := user.NewUser{Email: email, Username: uname, Password: pwd}
	nu.Clean()

	translator := core.NewTranslator()
	if err := local.NewValidate(translator).Struct(nu); err != nil {
		if vErrs, ok := err.(validator.ValidationErrors); ok {
			return errors.New(core.JoinFieldErrors(core.TranslateValidationErrors(vErrs, translator)))
		}
		return err
	}

	db, err := cli.database()
	if err != nil {
		return err
	}

	var usr user.User
	found, err := db.GetByIndex(ctx, database.Users, "username", nu.Username, &usr)
	if err != nil {
		return err
	}
	if !found {
		if found, err = db.GetByIndex(ctx, database.Users, "email", nu.Email, &usr); err != nil {
			return err
		}
	}

	if !found {
		if usr, err = user.New(nu.Email, nu.Username, nu.Password, isAdmin); err != nil {
			return err
		}
		if usr.ID, err = db.Add(ctx, database.Users, usr); err != nil {
			return errors.Wrap(err, "adding user")
		}
		fmt.Fprintf(cli.out, "created user %q (id %d)\n", usr.Username, usr.ID)
		return nil
	}

	if err = usr.SetPassword(nu.Password); err != nil {
		return err
	}
	patch := map[string]interface{}{
		"email":         nu.Email,
		"username":      nu.Username,
		"password_hash": usr.PasswordHash,
		"is_admin":      isAdmin,
		"updated_at":    core.NowFunc(),
	}
	if err = db.Update(ctx, database.Users, usr.ID, patch, nil); err != nil {
		return errors.Wrap(err, "updating user")
	}
	fmt.Fprintf(cli.out, "updated user %q (id %d)\n", nu.Username, usr.ID)
	return nil
}
