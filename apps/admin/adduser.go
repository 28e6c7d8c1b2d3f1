package main

import (
	"context"
	"fmt"

	"github.com/trezcool/academia/core/user"
)

// addUser creates an active user.User
func (cli *commandLine) addUser(nu user.NewUser) error {
	if err := nu.Validate(cli.validate); err != nil {
		return err
	}
	usr, err := cli.usrSvc.Create(context.Background(), nu)
	if err != nil {
		return err
	}
	fmt.Printf("user %q created with role %s\n", usr.Username, usr.Role())
	return nil
}

func (cli *commandLine) grantRole(uname string, roles ...user.Role) error {
	ctx := context.Background()
	usr, err := cli.usrSvc.GetByUsername(ctx, uname)
	if err != nil {
		return err
	}
	if usr, err = cli.usrSvc.GrantRoles(ctx, usr.ID, roles...); err != nil {
		return err
	}
	fmt.Printf("user %q now acts as %s\n", usr.Username, usr.Role())
	return nil
}
