package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jrivets/log4g"
	"github.com/km-arc/go-ioc-container/example"
	ucli "gopkg.in/urfave/cli.v2"
)

var logger = log4g.GetLogger("containerctl")

func main() {
	defer log4g.Shutdown()

	app := &ucli.App{
		Name:  "containerctl",
		Usage: "inspect and drive a go-ioc-container instance",
		Commands: []*ucli.Command{
			{
				Name:  "shell",
				Usage: "start an interactive admin shell",
				Action: func(c *ucli.Context) error {
					a, err := bootstrap()
					if err != nil {
						return err
					}
					newShell(a, historyFilePath()).run()
					return nil
				},
			},
			{
				Name:      "beans",
				Usage:     "list registered beans",
				ArgsUsage: " ",
				Action:    oneShot(beansFn, nil),
			},
			{
				Name:      "describe",
				Usage:     "describe a bean",
				ArgsUsage: "<name>",
				Action:    oneShotArg(describeFn, grpName),
			},
			{
				Name:   "aliases",
				Usage:  "list registered aliases",
				Action: oneShot(aliasesFn, nil),
			},
			{
				Name:   "health",
				Usage:  "report singleton-store health",
				Action: oneShot(healthFn, nil),
			},
			{
				Name:      "get",
				Usage:     "resolve a bean by name",
				ArgsUsage: "<name>",
				Action:    oneShotArg(getFn, grpName),
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func bootstrap() (*admin, error) {
	f, err := example.Bootstrap()
	if err != nil {
		return nil, err
	}
	return newAdmin(f), nil
}

func oneShot(fn cmdFn, args map[string]string) ucli.ActionFunc {
	return func(c *ucli.Context) error {
		a, err := bootstrap()
		if err != nil {
			return err
		}
		return fn(context.Background(), a, args)
	}
}

func oneShotArg(fn cmdFn, argName string) ucli.ActionFunc {
	return func(c *ucli.Context) error {
		if c.NArg() < 1 {
			return fmt.Errorf("missing required argument <%s>", argName)
		}
		a, err := bootstrap()
		if err != nil {
			return err
		}
		return fn(context.Background(), a, map[string]string{argName: c.Args().Get(0)})
	}
}
