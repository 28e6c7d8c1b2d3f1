package main

import (
	"errors"
	"flag"
	"fmt"
	"strings"
	"syscall"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"golang.org/x/term"

	"github.com/trezcool/academia/core/completion"
	"github.com/trezcool/academia/core/user"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp     = errors.New("help provided")
	errNoSQLDB  = errors.New("migrations need a sql database engine (postgres or sqlite3)")
	errPwdEmpty = errors.New("password is required")
)

type commandLine struct {
	db        *sqlx.DB // nil with the memory engine
	usrSvc    *user.Service
	evaluator *completion.Evaluator
	validate  *validator.Validate
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  migrate COMMAND [ARGS] - run a goose command (up, down, status, version, ...)")
	fmt.Println("  adduser -username USERNAME [-email EMAIL] [-roles ROLE,...] - create a user, the password is prompted")
	fmt.Println("  resetpassword -username USERNAME - reset user's password")
	fmt.Println("  grantrole -username USERNAME -role ROLE - add a role to a user")
	fmt.Println("  evaluate -username USERNAME - evaluate a user's programs and issue the earned certificates")
	fmt.Println("  retry - re-evaluate the users queued after a failed evaluation")
}

func promptPassword(label string) (string, error) {
	fmt.Print(label)
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", err
	}
	if len(pwd) == 0 {
		return "", errPwdEmpty
	}
	return string(pwd), nil
}

func parseRoles(s string) []user.Role {
	roles := make([]user.Role, 0)
	for _, r := range strings.Split(s, ",") {
		if r = strings.TrimSpace(r); r != "" {
			roles = append(roles, user.Role(strings.ToLower(r)))
		}
	}
	return roles
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addUserCmd := flag.NewFlagSet("adduser", flag.ContinueOnError)
	addUserUname := addUserCmd.String("username", "", "The user's username. The password will be prompted next.")
	addUserEmail := addUserCmd.String("email", "", "The user's email.")
	addUserRoles := addUserCmd.String("roles", string(user.RoleParticipant), "Comma separated roles: participant, curator, admin.")

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ContinueOnError)
	resetPasswordUname := resetPasswordCmd.String("username", "", "The user's username. The password will be prompted next.")

	grantRoleCmd := flag.NewFlagSet("grantrole", flag.ContinueOnError)
	grantRoleUname := grantRoleCmd.String("username", "", "The user's username.")
	grantRoleRole := grantRoleCmd.String("role", "", "The role to grant: participant, curator or admin.")

	evaluateCmd := flag.NewFlagSet("evaluate", flag.ContinueOnError)
	evaluateUname := evaluateCmd.String("username", "", "The user's username.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			fmt.Println("Usage: migrate COMMAND [ARGS]")
			return errHelp
		}
		return cli.migrate(args[2:])

	case "adduser":
		if err := addUserCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addUserUname == "" {
			addUserCmd.Usage()
			return errHelp
		}
		pwd, err := promptPassword("Enter password:")
		if err != nil {
			return err
		}
		confirm, err := promptPassword("Confirm password:")
		if err != nil {
			return err
		}
		return cli.addUser(user.NewUser{
			Username:        *addUserUname,
			Email:           *addUserEmail,
			Password:        pwd,
			PasswordConfirm: confirm,
			Roles:           parseRoles(*addUserRoles),
		})

	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *resetPasswordUname == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		pwd, err := promptPassword("Enter password:")
		if err != nil {
			if err == errPwdEmpty {
				resetPasswordCmd.Usage()
				return errHelp
			}
			return err
		}
		return cli.resetPassword(*resetPasswordUname, pwd)

	case "grantrole":
		if err := grantRoleCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *grantRoleUname == "" || *grantRoleRole == "" {
			grantRoleCmd.Usage()
			return errHelp
		}
		return cli.grantRole(*grantRoleUname, parseRoles(*grantRoleRole)...)

	case "evaluate":
		if err := evaluateCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *evaluateUname == "" {
			evaluateCmd.Usage()
			return errHelp
		}
		return cli.evaluate(*evaluateUname)

	case "retry":
		return cli.retry()

	default:
		cli.printUsage()
		return errHelp
	}
}
