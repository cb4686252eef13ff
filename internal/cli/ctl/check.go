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
	"fmt"

	credgatecli "github.com/credgate/credgate/internal/cli"
	"github.com/urfave/cli/v2"
)

func init() {
	credgatecli.AddSubcommand(
		&cli.Command{
			Name:  "check-config",
			Usage: "Load and initialize the configuration, then list the handlers",
			Flags: []cli.Flag{
				&cli.BoolFlag{
					Name:    "quiet",
					Aliases: []string{"q"},
					Usage:   "Do not list handlers, only report errors",
				},
			},
			Action: func(ctx *cli.Context) error {
				inst, err := credgatecli.LoadConfig(ctx)
				if err != nil {
					return err
				}
				defer inst.Close()

				if ctx.Bool("quiet") {
					return nil
				}
				for _, mod := range inst.Modules {
					fmt.Printf("%s (%s)\n", mod.Instance.InstanceName(), mod.Instance.Name())
				}
				fmt.Println()
				for _, name := range inst.Handlers() {
					fmt.Println("handler:", name)
				}
				return nil
			},
		})
}
