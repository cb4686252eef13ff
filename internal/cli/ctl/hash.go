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
	"bytes"
	"fmt"
	"os"
	"strings"

	credgatecli "github.com/credgate/credgate/internal/cli"
	"github.com/credgate/credgate/internal/cli/clitools"
	"github.com/credgate/credgate/internal/login/pass_table"
	"github.com/urfave/cli/v2"
	"golang.org/x/crypto/bcrypt"
)

var hashFlags = []cli.Flag{
	&cli.StringFlag{
		Name:  "hash",
		Usage: "Use specified hash algorithm. Valid values: " + strings.Join(pass_table.Hashes, ", "),
		Value: pass_table.DefaultHash,
	},
	&cli.IntFlag{
		Name:  "bcrypt-cost",
		Usage: "Specify bcrypt cost value",
		Value: bcrypt.DefaultCost,
	},
	&cli.IntFlag{
		Name:  "argon2-time",
		Usage: "Time factor for Argon2id",
		Value: int(pass_table.DefaultHashOpts.Argon2Time),
	},
	&cli.IntFlag{
		Name:  "argon2-memory",
		Usage: "Memory in KiB to use for Argon2id",
		Value: int(pass_table.DefaultHashOpts.Argon2Memory),
	},
	&cli.IntFlag{
		Name:  "argon2-threads",
		Usage: "Threads to use for Argon2id",
		Value: int(pass_table.DefaultHashOpts.Argon2Threads),
	},
}

var passwordFlag = &cli.StringFlag{
	Name:    "password",
	Aliases: []string{"p"},
	Usage:   "Use `PASSWORD instead of reading password from stdin\n\t\tWARNING: Provided only for debugging convenience. Don't leave your passwords in shell history!",
}

func init() {
	credgatecli.AddSubcommand(
		&cli.Command{
			Name:   "hash",
			Usage:  "Generate password hashes for use with login.pass_table",
			Action: hashCommand,
			Flags:  append([]cli.Flag{passwordFlag}, hashFlags...),
		})
}

func hashOpts(ctx *cli.Context) (string, pass_table.HashOpts, error) {
	hashFunc := ctx.String("hash")
	if pass_table.HashCompute[hashFunc] == nil {
		return "", pass_table.HashOpts{}, cli.Exit(fmt.Sprintf("Error: Unknown hash function, available: %s", strings.Join(pass_table.Hashes, ", ")), 2)
	}

	opts := pass_table.DefaultHashOpts
	if ctx.IsSet("bcrypt-cost") {
		if ctx.Int("bcrypt-cost") > bcrypt.MaxCost {
			return "", opts, cli.Exit("Error: too big bcrypt cost", 2)
		}
		if ctx.Int("bcrypt-cost") < bcrypt.MinCost {
			return "", opts, cli.Exit("Error: too small bcrypt cost", 2)
		}
		opts.BcryptCost = ctx.Int("bcrypt-cost")
	}
	if ctx.IsSet("argon2-memory") {
		opts.Argon2Memory = uint32(ctx.Int("argon2-memory"))
	}
	if ctx.IsSet("argon2-time") {
		opts.Argon2Time = uint32(ctx.Int("argon2-time"))
	}
	if ctx.IsSet("argon2-threads") {
		opts.Argon2Threads = uint8(ctx.Int("argon2-threads"))
	}
	return hashFunc, opts, nil
}

// readPassword takes the password from --password or prompts for it.
func readPassword(ctx *cli.Context) ([]byte, error) {
	if ctx.IsSet("password") {
		return []byte(ctx.String("password")), nil
	}
	return clitools.ReadPassword("Password")
}

func hashCommand(ctx *cli.Context) error {
	hashFunc, opts, err := hashOpts(ctx)
	if err != nil {
		return err
	}

	pass, err := readPassword(ctx)
	if err != nil {
		return err
	}
	defer zero(pass)

	if len(pass) == 0 {
		fmt.Fprintln(os.Stderr, "WARNING: This is the hash of an empty string")
	}
	if len(bytes.TrimSpace(pass)) != len(pass) {
		fmt.Fprintln(os.Stderr, "WARNING: There is leading/trailing whitespace in the string")
	}

	hash, err := pass_table.Compute(hashFunc, opts, pass)
	if err != nil {
		return err
	}
	fmt.Println(hash)
	return nil
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
