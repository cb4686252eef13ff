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

package pam

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/credgate/credgate/framework/authn"
	"github.com/credgate/credgate/framework/config"
	"github.com/credgate/credgate/framework/module"
	"github.com/credgate/credgate/internal/testutils"
)

func TestLogin(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell helper is not supported on Windows")
	}
	helper := filepath.Join(t.TempDir(), "credgate-pam-helper")
	script := "#!/bin/sh\nread user\nread pass\n[ \"$user\" = casuser ] && [ \"$pass\" = Mellon ]\n"
	if err := os.WriteFile(helper, []byte(script), 0o700); err != nil {
		t.Fatal(err)
	}

	mod, err := New(modName, "pam", nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	a := mod.(*Auth)
	a.Log = testutils.Logger(t, modName)
	err = a.Init(config.NewMap(nil, config.Node{Children: []config.Node{
		{Name: "helper", Args: []string{helper}},
	}}))
	if err != nil {
		t.Fatal(err)
	}

	login := func(id, pass string) (module.LoginSession, error) {
		cb := authn.NewCredentialCallbackHandler(authn.NewCredential(id, []byte(pass)))
		defer cb.Destroy()
		return a.Login(context.Background(), cb)
	}

	sess, err := login("casuser", "Mellon")
	if err != nil {
		t.Fatal(err)
	}
	if names := sess.Principals(); len(names) != 1 || names[0] != "casuser" {
		t.Fatal("unexpected principals:", names)
	}
	if _, err := login("casuser", "wrong"); !errors.Is(err, module.ErrUnknownCredentials) {
		t.Fatal("expected ErrUnknownCredentials, got", err)
	}
}

func TestInit_MissingHelper(t *testing.T) {
	mod, _ := New(modName, "pam", nil, nil)
	err := mod.Init(config.NewMap(nil, config.Node{Children: []config.Node{
		{Name: "helper", Args: []string{filepath.Join(t.TempDir(), "nonexistent")}},
	}}))
	if err == nil {
		t.Fatal("expected an error")
	}
}

func TestNew_InlineArgs(t *testing.T) {
	if _, err := New(modName, "pam", nil, []string{"x"}); err == nil {
		t.Fatal("expected an error")
	}
}
