package main

import (
	"context"
	"fmt"

	"github.com/trezcool/academia/core/completion"
)

// evaluate runs a manual completion evaluation of a user.
func (cli *commandLine) evaluate(uname string) error {
	ctx := context.Background()
	usr, err := cli.usrSvc.GetByUsername(ctx, uname)
	if err != nil {
		return err
	}
	issued, err := cli.evaluator.Evaluate(ctx, usr.ID, completion.TriggerManual)
	for _, cert := range issued {
		fmt.Printf("certificate %s issued for program %s\n", cert.ID, cert.ProgramID)
	}
	if err != nil {
		return err
	}
	if len(issued) == 0 {
		fmt.Printf("no new certificate for %q\n", usr.Username)
	}
	return nil
}

func (cli *commandLine) retry() error {
	done, err := cli.evaluator.RetryPending(context.Background())
	if err != nil {
		return err
	}
	fmt.Printf("re-evaluated %d user(s)\n", done)
	return nil
}
