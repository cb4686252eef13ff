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

package ldap

import (
	"context"
	"testing"
	"time"

	"github.com/credgate/credgate/framework/authn"
	"github.com/credgate/credgate/framework/config"
	"github.com/credgate/credgate/framework/exterrors"
	"github.com/credgate/credgate/internal/testutils"
	"github.com/go-ldap/ldap/v3"
)

func node(name string, args ...string) config.Node {
	return config.Node{Name: name, Args: args}
}

func initStrategy(t *testing.T, children ...config.Node) (*Strategy, error) {
	t.Helper()
	mod, err := New(modName, "", nil, []string{"ldap://127.0.0.1:1"})
	if err != nil {
		t.Fatal(err)
	}
	s := mod.(*Strategy)
	s.log = testutils.Logger(t, modName)
	return s, s.Init(config.NewMap(nil, config.Node{Children: children}))
}

func TestInit(t *testing.T) {
	base := []config.Node{
		node("base_dn", "ou=people,dc=example,dc=org"),
		node("filter", "(uid={username})"),
	}
	for name, tc := range map[string]struct {
		children []config.Node
		ok       bool
	}{
		"password attr": {
			children: append(base, node("password_expiry_attr", "pwdExpiry")),
			ok:       true,
		},
		"account attr with format": {
			children: append(base, node("account_expiry_attr", "shadowExpire", "days")),
			ok:       true,
		},
		"max age": {
			children: append(base, node("password_expiry_attr", "pwdChangedTime"), node("password_max_age", "2160h")),
			ok:       true,
		},
		"no attrs": {
			children: base,
		},
		"max age without attr": {
			children: append(base, node("account_expiry_attr", "shadowExpire", "days"), node("password_max_age", "2160h")),
		},
		"unknown format": {
			children: append(base, node("account_expiry_attr", "shadowExpire", "weeks")),
		},
		"no filter placeholder": {
			children: []config.Node{
				node("base_dn", "ou=people,dc=example,dc=org"),
				node("filter", "(uid=admin)"),
				node("account_expiry_attr", "shadowExpire", "days"),
			},
		},
		"no base_dn": {
			children: []config.Node{
				node("filter", "(uid={username})"),
				node("account_expiry_attr", "shadowExpire", "days"),
			},
		},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := initStrategy(t, tc.children...)
			if tc.ok && err != nil {
				t.Fatal("unexpected error:", err)
			}
			if !tc.ok && err == nil {
				t.Fatal("expected an error")
			}
		})
	}
}

func TestTimeAttrParse(t *testing.T) {
	for _, tc := range []struct {
		format timeFormat
		val    string
		want   time.Time
		fail   bool
	}{
		{formatGeneralized, "20240301120000Z", time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC), false},
		{formatGeneralized, "20240301120000.5Z", time.Date(2024, 3, 1, 12, 0, 0, 5e8, time.UTC), false},
		{formatGeneralized, "20240301140000+0200", time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC), false},
		{formatGeneralized, "yesterday", time.Time{}, true},
		{formatDays, "19783", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), false},
		{formatDays, "-1", time.Time{}, false},
		{formatUnix, "1709294400", time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC), false},
		{formatUnix, "0", time.Time{}, false},
		{formatFiletime, "133537680000000000", time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC), false},
		{formatFiletime, "9223372036854775807", time.Time{}, false},
		{formatFiletime, "0", time.Time{}, false},
		{formatDays, "", time.Time{}, false},
		{formatDays, "soon", time.Time{}, true},
	} {
		got, err := timeAttr{name: "attr", format: tc.format}.parse(tc.val)
		if tc.fail {
			if err == nil {
				t.Errorf("%s %q: expected an error", tc.format, tc.val)
			}
			continue
		}
		if err != nil {
			t.Errorf("%s %q: %v", tc.format, tc.val, err)
			continue
		}
		if !got.Equal(tc.want) {
			t.Errorf("%s %q: want %v, got %v", tc.format, tc.val, tc.want, got)
		}
	}
}

func TestExpiration(t *testing.T) {
	s, err := initStrategy(t,
		node("base_dn", "ou=people,dc=example,dc=org"),
		node("filter", "(uid={username})"),
		node("password_expiry_attr", "pwdChangedTime"),
		node("password_max_age", "240h"),
		node("account_expiry_attr", "shadowExpire", "days"),
	)
	if err != nil {
		t.Fatal(err)
	}

	entry := ldap.NewEntry("uid=casuser,ou=people,dc=example,dc=org", map[string][]string{
		"pwdChangedTime": {"20240225000000Z"},
		"shadowExpire":   {"19800"},
	})
	exp, err := s.expiration(entry)
	if err != nil {
		t.Fatal(err)
	}
	if want := time.Date(2024, 3, 6, 0, 0, 0, 0, time.UTC); !exp.Password.Equal(want) {
		t.Fatal("wrong password expiry:", exp.Password)
	}
	if want := time.Date(2024, 3, 18, 0, 0, 0, 0, time.UTC); !exp.Account.Equal(want) {
		t.Fatal("wrong account expiry:", exp.Account)
	}

	// Never changed, never expires.
	exp, err = s.expiration(ldap.NewEntry("uid=new,ou=people,dc=example,dc=org", nil))
	if err != nil {
		t.Fatal(err)
	}
	if !exp.Password.IsZero() || !exp.Account.IsZero() {
		t.Fatal("unexpected expiration:", exp)
	}

	_, err = s.expiration(ldap.NewEntry("uid=bad,ou=people,dc=example,dc=org", map[string][]string{
		"pwdChangedTime": {"garbage"},
	}))
	if err == nil {
		t.Fatal("expected an error")
	}
}

func TestHandle_Unreachable(t *testing.T) {
	s, err := initStrategy(t,
		node("base_dn", "ou=people,dc=example,dc=org"),
		node("filter", "(uid={username})"),
		node("account_expiry_attr", "shadowExpire", "days"),
		node("allow_missing"),
	)
	if err != nil {
		t.Fatal(err)
	}
	p, err := authn.DefaultPrincipalFactory{}.Create("casuser", nil)
	if err != nil {
		t.Fatal(err)
	}

	_, err = s.Handle(context.Background(), p, authn.PolicyConfig{})
	if err == nil {
		t.Fatal("expected an error")
	}
	if !exterrors.IsTemporary(err) {
		t.Fatal("unreachable server should be a temporary failure:", err)
	}
}
