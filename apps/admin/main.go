package main

import (
	"fmt"
	"os"

	"github.com/trezcool/academia/apps/di"
	"github.com/trezcool/academia/core"
)

func main() {
	os.Exit(run())
}

func run() int {
	conf := core.NewConfig()
	conf.TestMode = true // no rollbar reports from the CLI

	c, err := di.New(conf)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	defer c.Close()

	// start CLI
	cli := commandLine{
		db:        c.DB,
		usrSvc:    c.UserSvc,
		evaluator: c.Evaluator,
		validate:  c.Validate,
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			c.Logger.Error(fmt.Sprintf("admin: %v", err), err)
		}
		return 1
	}
	return 0
}
