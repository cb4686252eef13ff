/*
credgate - Pluggable credential authentication engine.
Copyright © 2019-2024 Max Mazurov <fox.cpp@disroot.org>, credgate contributors

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

package ctl

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/credgate/credgate/framework/authn"
	credgatecli "github.com/credgate/credgate/internal/cli"
	"github.com/urfave/cli/v2"
)

func init() {
	credgatecli.AddSubcommand(
		&cli.Command{
			Name:      "verify",
			Usage:     "Run a single authentication attempt against a handler",
			ArgsUsage: "USERNAME",
			Description: `Loads the configuration, authenticates USERNAME using the named handler
and prints the resolved principal together with any policy warnings.

Exit status is 0 on success, 1 if the credentials were rejected and 2 on
usage or configuration errors.
`,
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "handler",
					Aliases:  []string{"H"},
					Usage:    "Handler configuration block to use",
					EnvVars:  []string{"CREDGATE_HANDLER"},
					Required: true,
				},
				&cli.DurationFlag{
					Name:  "timeout",
					Usage: "Give up on the attempt after `DURATION`",
					Value: time.Minute,
				},
				passwordFlag,
			},
			Action: verifyCommand,
		})
}

func verifyCommand(ctx *cli.Context) error {
	username := ctx.Args().First()
	if username == "" {
		return cli.Exit("Error: USERNAME is required", 2)
	}

	inst, err := credgatecli.LoadConfig(ctx)
	if err != nil {
		return err
	}
	defer inst.Close()

	h, err := inst.Handler(ctx.String("handler"))
	if err != nil {
		return cli.Exit(fmt.Sprintf("Error: %v", err), 2)
	}

	pass, err := readPassword(ctx)
	if err != nil {
		return err
	}
	defer zero(pass)

	attemptCtx, cancel := context.WithTimeout(context.Background(), ctx.Duration("timeout"))
	defer cancel()

	res, err := h.Authenticate(attemptCtx, authn.NewCredential(username, pass))
	if err != nil {
		return cli.Exit(fmt.Sprintf("%s: %v", authn.KindOf(err), err), exitCode(err))
	}

	printResult(res)
	return nil
}

// exitCode maps an Authenticate error to the verify exit status.
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	switch authn.KindOf(err) {
	case authn.KindConfiguration, authn.KindUnsupportedRequest:
		return 2
	}
	return 1
}

func printResult(res *authn.HandlerResult) {
	fmt.Println("handler:  ", res.HandlerName)
	fmt.Println("principal:", res.Principal.ID())
	for _, name := range res.Principal.AttributeNames() {
		fmt.Printf("  %s: %s\n", name, strings.Join(res.Principal.Attribute(name), ", "))
	}
	for _, w := range res.Warnings {
		fmt.Fprintf(os.Stderr, "%s [%s] %s\n", w.Severity, w.Code, w.Text())
	}
}
