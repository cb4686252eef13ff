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

package pass_table

import (
	"context"
	"errors"
	"testing"

	"github.com/credgate/credgate/framework/authn"
	"github.com/credgate/credgate/framework/config"
	"github.com/credgate/credgate/framework/module"
	"github.com/credgate/credgate/internal/testutils"
)

func login(a *Auth, user, pass string) (module.LoginSession, error) {
	cb := authn.NewCredentialCallbackHandler(authn.NewCredential(user, []byte(pass)))
	defer cb.Destroy()
	return a.Login(context.Background(), cb)
}

func TestAuth_Login(t *testing.T) {
	mod, err := New("login.pass_table", "", nil, []string{"dummy"})
	if err != nil {
		t.Fatal(err)
	}
	if err := mod.Init(config.NewMap(nil, config.Node{})); err != nil {
		t.Fatal(err)
	}
	a := mod.(*Auth)
	a.table = testutils.Table{
		M: map[string]string{
			"foxcpp":       "sha256:U0FMVA==:8PDRAgaUqaLSk34WpYniXjaBgGM93Lc6iF4pw2slthw=",
			"not-foxcpp":   "bcrypt:$2y$10$4tEJtJ6dApmhETg8tJ4WHOeMtmYXQwmHDKIyfg09Bw1F/smhLjlaa",
			"not-foxcpp-2": "argon2:1:8:1:U0FBQUFBTFQ=:KHUshl3DcpHR3AoVd28ZeBGmZ1Fj1gwJgNn98Ia8DAvGHqI0BvFOMJPxtaAfO8F+qomm2O3h0P0yV50QGwXI/Q==",
			"broken":       "md4:whatever",
		},
	}

	check := func(user, pass string, ok bool) {
		t.Helper()

		sess, err := login(a, user, pass)
		if (err == nil) != ok {
			t.Errorf("%s: ok=%v, err: %v", user, ok, err)
		}
		if err == nil {
			sess.Logout()
		}
	}

	check("foxcpp", "password", true)
	check("FoxCPP", "password", true)
	check("foxcpp", "different-password", false)
	check("not-foxcpp", "password", true)
	check("not-foxcpp", "different-password", false)
	check("not-foxcpp-2", "password", true)
	check("not-foxcpp-2", "different-password", false)
	check("nobody", "password", false)
	check("broken", "password", false)

	sess, err := login(a, "FoxCPP", "password")
	if err != nil {
		t.Fatal(err)
	}
	if names := sess.Principals(); len(names) != 1 || names[0] != "foxcpp" {
		t.Fatal("principal name is not normalized:", names)
	}

	if _, err := login(a, "foxcpp", "wrong"); !errors.Is(err, module.ErrUnknownCredentials) {
		t.Fatal("mismatch should be reported as unknown credentials, got", err)
	}
	if _, err := login(a, "broken", "password"); err == nil || errors.Is(err, module.ErrUnknownCredentials) {
		t.Fatal("unknown hash should be reported as a failure, got", err)
	}
}

func TestAuth_TableError(t *testing.T) {
	lookupErr := errors.New("database is down")
	a := &Auth{modName: "login.pass_table", table: testutils.Table{Err: lookupErr}}
	if _, err := login(a, "foxcpp", "password"); !errors.Is(err, lookupErr) {
		t.Fatal("expected table error, got", err)
	}
}

func TestAuth_Management(t *testing.T) {
	tbl := &testutils.MutableTable{}
	a := &Auth{modName: "login.pass_table", table: tbl}

	opts := DefaultHashOpts
	opts.BcryptCost = 4
	for _, hash := range Hashes {
		user := "user-" + hash
		if err := a.CreateUser(user, []byte("password"), hash, opts); err != nil {
			t.Fatal(hash, err)
		}
		if _, err := login(a, user, "password"); err != nil {
			t.Fatal(hash, "login after create:", err)
		}
	}

	if err := a.CreateUser("User-bcrypt", []byte("password"), HashBcrypt, opts); err == nil {
		t.Fatal("duplicate user created")
	}
	if err := a.SetUserPassword("user-bcrypt", []byte("new-password"), HashArgon2, opts); err != nil {
		t.Fatal(err)
	}
	if _, err := login(a, "user-bcrypt", "new-password"); err != nil {
		t.Fatal("login after password change:", err)
	}
	if _, err := login(a, "user-bcrypt", "password"); err == nil {
		t.Fatal("old password accepted")
	}

	users, err := a.ListUsers()
	if err != nil {
		t.Fatal(err)
	}
	if len(users) != len(Hashes) {
		t.Fatal("unexpected users:", users)
	}
	if err := a.DeleteUser("user-sha256"); err != nil {
		t.Fatal(err)
	}
	if _, err := login(a, "user-sha256", "password"); !errors.Is(err, module.ErrUnknownCredentials) {
		t.Fatal("deleted user accepted, err:", err)
	}

	if err := a.CreateUser("someone", []byte("password"), "md4", opts); err == nil {
		t.Fatal("unknown hash accepted")
	}
}

func TestAuth_ImmutableTable(t *testing.T) {
	a := &Auth{modName: "login.pass_table", table: testutils.Table{}}
	if _, err := a.ListUsers(); err == nil {
		t.Fatal("expected an error")
	}
}
