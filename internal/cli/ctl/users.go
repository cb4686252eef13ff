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
	"errors"
	"fmt"
	"os"

	credgatecli "github.com/credgate/credgate/internal/cli"
	"github.com/credgate/credgate/internal/cli/clitools"
	"github.com/credgate/credgate/internal/login/pass_table"
	"github.com/urfave/cli/v2"
)

var cfgBlockFlag = &cli.StringFlag{
	Name:    "cfg-block",
	Usage:   "login.pass_table configuration block to use",
	EnvVars: []string{"CREDGATE_CFGBLOCK"},
	Value:   "local_users",
}

func init() {
	credgatecli.AddSubcommand(
		&cli.Command{
			Name:  "creds",
			Usage: "Local credentials management",
			Description: `Manage the password database used by login.pass_table.

The referenced table must be mutable (table.file, table.sql_table or
table.sqlite3).
`,
			Subcommands: []*cli.Command{
				{
					Name:  "list",
					Usage: "List created credentials",
					Flags: []cli.Flag{
						cfgBlockFlag,
						&cli.BoolFlag{
							Name:    "quiet",
							Aliases: []string{"q"},
							Usage:   "Do not print 'No users' message",
						},
					},
					Action: func(ctx *cli.Context) error {
						be, err := openUserDB(ctx)
						if err != nil {
							return err
						}
						defer closeModules()
						return usersList(be, ctx)
					},
				},
				{
					Name:        "create",
					Usage:       "Create user account",
					Description: "Reads password from stdin",
					ArgsUsage:   "USERNAME",
					Flags:       append([]cli.Flag{cfgBlockFlag, passwordFlag}, hashFlags...),
					Action: func(ctx *cli.Context) error {
						be, err := openUserDB(ctx)
						if err != nil {
							return err
						}
						defer closeModules()
						return usersCreate(be, ctx)
					},
				},
				{
					Name:      "remove",
					Usage:     "Delete user account",
					ArgsUsage: "USERNAME",
					Flags: []cli.Flag{
						cfgBlockFlag,
						&cli.BoolFlag{
							Name:    "yes",
							Aliases: []string{"y"},
							Usage:   "Don't ask for confirmation",
						},
					},
					Action: func(ctx *cli.Context) error {
						be, err := openUserDB(ctx)
						if err != nil {
							return err
						}
						defer closeModules()
						return usersRemove(be, ctx)
					},
				},
				{
					Name:        "password",
					Usage:       "Change account password",
					Description: "Reads password from stdin",
					ArgsUsage:   "USERNAME",
					Flags:       append([]cli.Flag{cfgBlockFlag, passwordFlag}, hashFlags...),
					Action: func(ctx *cli.Context) error {
						be, err := openUserDB(ctx)
						if err != nil {
							return err
						}
						defer closeModules()
						return usersPassword(be, ctx)
					},
				},
			},
		})
}

func usersList(be *pass_table.Auth, ctx *cli.Context) error {
	list, err := be.ListUsers()
	if err != nil {
		return err
	}

	if len(list) == 0 && !ctx.Bool("quiet") {
		fmt.Fprintln(os.Stderr, "No users.")
	}

	for _, user := range list {
		fmt.Println(user)
	}
	return nil
}

func usersCreate(be *pass_table.Auth, ctx *cli.Context) error {
	username := ctx.Args().First()
	if username == "" {
		return cli.Exit("Error: USERNAME is required", 2)
	}

	hash, opts, err := hashOpts(ctx)
	if err != nil {
		return err
	}

	var pass []byte
	if ctx.IsSet("password") {
		pass = []byte(ctx.String("password"))
	} else {
		pass, err = clitools.ReadPassword("Enter password for new user")
		if err != nil {
			return err
		}
	}
	defer zero(pass)

	return be.CreateUser(username, pass, hash, opts)
}

func usersRemove(be *pass_table.Auth, ctx *cli.Context) error {
	username := ctx.Args().First()
	if username == "" {
		return errors.New("Error: USERNAME is required")
	}

	if !ctx.Bool("yes") {
		if !clitools.Confirmation("Are you sure you want to delete this user account?", false) {
			return errors.New("Cancelled")
		}
	}

	return be.DeleteUser(username)
}

func usersPassword(be *pass_table.Auth, ctx *cli.Context) error {
	username := ctx.Args().First()
	if username == "" {
		return errors.New("Error: USERNAME is required")
	}

	hash, opts, err := hashOpts(ctx)
	if err != nil {
		return err
	}

	var pass []byte
	if ctx.IsSet("password") {
		pass = []byte(ctx.String("password"))
	} else {
		pass, err = clitools.ReadPassword("Enter new password")
		if err != nil {
			return err
		}
	}
	defer zero(pass)

	return be.SetUserPassword(username, pass, hash, opts)
}
