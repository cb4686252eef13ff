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
	"flag"
	"testing"

	"github.com/credgate/credgate/internal/login/pass_table"
	"github.com/urfave/cli/v2"
)

func hashContext(t *testing.T, args ...string) *cli.Context {
	t.Helper()
	set := flag.NewFlagSet("hash", flag.ContinueOnError)
	for _, f := range hashFlags {
		if err := f.Apply(set); err != nil {
			t.Fatal(err)
		}
	}
	if err := set.Parse(args); err != nil {
		t.Fatal(err)
	}
	return cli.NewContext(cli.NewApp(), set, nil)
}

func TestHashOpts(t *testing.T) {
	hash, opts, err := hashOpts(hashContext(t))
	if err != nil {
		t.Fatal(err)
	}
	if hash != pass_table.DefaultHash {
		t.Errorf("wrong default hash: %s", hash)
	}
	if opts != pass_table.DefaultHashOpts {
		t.Errorf("wrong default opts: %+v", opts)
	}

	hash, opts, err = hashOpts(hashContext(t, "--hash", "argon2", "--argon2-time", "5", "--argon2-threads", "2"))
	if err != nil {
		t.Fatal(err)
	}
	if hash != pass_table.HashArgon2 {
		t.Errorf("wrong hash: %s", hash)
	}
	if opts.Argon2Time != 5 || opts.Argon2Threads != 2 {
		t.Errorf("argon2 options are not applied: %+v", opts)
	}
	if opts.Argon2Memory != pass_table.DefaultHashOpts.Argon2Memory {
		t.Errorf("unset option is changed: %+v", opts)
	}
}

func TestHashOpts_Invalid(t *testing.T) {
	for _, args := range [][]string{
		{"--hash", "md5"},
		{"--bcrypt-cost", "100"},
		{"--bcrypt-cost", "1"},
	} {
		if _, _, err := hashOpts(hashContext(t, args...)); err == nil {
			t.Errorf("%v: expected an error", args)
		}
	}
}

func TestZero(t *testing.T) {
	b := []byte("secret")
	zero(b)
	for _, c := range b {
		if c != 0 {
			t.Fatalf("not zeroed: %q", b)
		}
	}
}
