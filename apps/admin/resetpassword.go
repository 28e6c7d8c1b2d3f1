package main

import (
	"context"

	"github.com/trezcool/academia/core/user"
)

func (cli *commandLine) resetPassword(uname, pwd string) error {
	ctx := context.Background()
	usr, err := cli.usrSvc.GetByUsername(ctx, uname)
	if err != nil {
		return err
	}
	sp := user.SetPassword{
		Password:        pwd,
		PasswordConfirm: pwd,
		Username:        usr.Username,
		Email:           usr.Email,
	}
	if err = sp.Validate(cli.validate); err != nil {
		return err
	}
	return cli.usrSvc.SetPassword(ctx, usr.Username, sp)
}
