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

// Package credgatecli holds the command line application. Subcommands
// register themselves with AddSubcommand from init functions.
package credgatecli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/credgate/credgate"
	"github.com/credgate/credgate/framework/config"
	"github.com/credgate/credgate/framework/log"
	"github.com/urfave/cli/v2"
)

var app *cli.App

func init() {
	app = cli.NewApp()
	app.Name = "credgate"
	app.Usage = "pluggable credential authentication engine"
	app.Description = `credgate verifies credentials against configurable backends (login
chains of Kerberos, LDAP, shadow, password tables and others) and applies
password policy strategies to the result.

This executable checks configurations, verifies credentials against
configured handlers and manages local password tables.
`
	app.Authors = []*cli.Author{
		{
			Name: "credgate contributors",
		},
	}
	app.ExitErrHandler = func(c *cli.Context, err error) {
		cli.HandleExitCoder(err)
		if err != nil {
			log.Println(err)
			cli.OsExiter(1)
		}
	}
	app.EnableBashCompletion = true
	app.Flags = []cli.Flag{
		&cli.PathFlag{
			Name:    "config",
			Usage:   "Configuration file to use",
			EnvVars: []string{"CREDGATE_CONFIG"},
			Value:   filepath.Join(credgate.DefaultConfigDirectory, "credgate.conf"),
		},
		&cli.StringFlag{
			Name:  "log",
			Usage: "Default logging target(s)",
			Value: "stderr",
		},
		&cli.BoolFlag{
			Name:    "debug",
			Usage:   "Enable debug logging early",
			EnvVars: []string{"CREDGATE_DEBUG"},
		},
		&cli.PathFlag{
			Name:    "libexec",
			Usage:   "Path to the libexec directory",
			EnvVars: []string{"CREDGATE_LIBEXEC"},
			Value:   credgate.DefaultLibexecDirectory,
		},
	}
	app.Before = func(c *cli.Context) error {
		out, err := credgate.LogOutputOption(strings.Fields(c.String("log")))
		if err != nil {
			return cli.Exit(fmt.Sprintf("Error: %v", err), 2)
		}
		log.DefaultLogger.Out = out
		log.DefaultLogger.Debug = c.Bool("debug")
		config.LibexecDirectory = c.Path("libexec")
		return nil
	}
	app.Commands = []*cli.Command{
		{
			Name:  "version",
			Usage: "Print version and build metadata, then exit",
			Action: func(c *cli.Context) error {
				fmt.Println(credgate.BuildInfo())
				return nil
			},
		},
		{
			Name:   "generate-man",
			Hidden: true,
			Action: func(c *cli.Context) error {
				man, err := app.ToMan()
				if err != nil {
					return err
				}
				fmt.Println(man)
				return nil
			},
		},
		{
			Name:   "generate-fish-completion",
			Hidden: true,
			Action: func(c *cli.Context) error {
				cp, err := app.ToFishCompletion()
				if err != nil {
					return err
				}
				fmt.Println(cp)
				return nil
			},
		},
	}
}

func AddGlobalFlag(f cli.Flag) {
	app.Flags = append(app.Flags, f)
}

func AddSubcommand(cmd *cli.Command) {
	app.Commands = append(app.Commands, cmd)
}

// LoadConfig loads the configuration file named by the --config flag.
func LoadConfig(c *cli.Context) (*credgate.Instance, error) {
	path := c.Path("config")
	if path == "" {
		return nil, cli.Exit("Error: config is required", 2)
	}
	inst, err := credgate.LoadFile(path)
	if err != nil {
		return nil, cli.Exit(fmt.Sprintf("Error: %v", err), 2)
	}
	return inst, nil
}

// Run is the entry point of the credgate executable.
func Run() {
	if err := app.Run(os.Args); err != nil {
		log.DefaultLogger.Error("app.Run failed", err)
	}
}
