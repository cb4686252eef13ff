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

package shadow

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/credgate/credgate/framework/authn"
	"github.com/credgate/credgate/framework/config"
	"github.com/credgate/credgate/internal/testutils"
)

// Day 19000 is 2022-01-08.
const testDB = `casuser:*:19000:0:60:7:::
noaging:*:19000::::::
soon:*:19000:0:60:::19055:
expired:*:18000:0:30:7:::
gone:*:19000:::::19010:
`

func testStrategy(t *testing.T, extra ...config.Node) *Strategy {
	t.Helper()
	path := filepath.Join(t.TempDir(), "shadow")
	if err := os.WriteFile(path, []byte(testDB), 0o600); err != nil {
		t.Fatal(err)
	}

	mod, err := New(modName, "", nil, []string{path})
	if err != nil {
		t.Fatal(err)
	}
	s := mod.(*Strategy)
	s.Log = testutils.Logger(t, modName)
	s.now = func() time.Time { return time.Unix(19050*86400, 0) }
	if err := s.Init(config.NewMap(nil, config.Node{Children: extra})); err != nil {
		t.Fatal(err)
	}
	return s
}

func principal(t *testing.T, name string) authn.Principal {
	t.Helper()
	p, err := authn.DefaultPrincipalFactory{}.Create(name, nil)
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func TestHandle(t *testing.T) {
	s := testStrategy(t)

	for _, tc := range []struct {
		name     string
		cfg      authn.PolicyConfig
		codes    []string
		rejected string
	}{
		// Password expires on day 19060, 10 days left, warn period is 7.
		{name: "casuser"},
		{name: "casuser", cfg: authn.PolicyConfig{WarningDays: 14}, codes: []string{authn.CodePasswordExpiring}},
		{name: "casuser", cfg: authn.PolicyConfig{AlwaysWarn: true}, codes: []string{authn.CodePasswordExpiring}},
		{name: "noaging", cfg: authn.PolicyConfig{AlwaysWarn: true}},
		{name: "soon", cfg: authn.PolicyConfig{WarningDays: 7}, codes: []string{authn.CodeAccountExpiring}},
		{name: "expired", rejected: authn.CodePasswordExpired},
		{name: "gone", rejected: authn.CodeAccountExpired},
	} {
		msgs, err := s.Handle(context.Background(), principal(t, tc.name), tc.cfg)
		if tc.rejected != "" {
			var rejection *authn.PolicyRejectionError
			if !errors.As(err, &rejection) || rejection.Code != tc.rejected {
				t.Errorf("%s: expected %s rejection, got %v", tc.name, tc.rejected, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("%s: unexpected error: %v", tc.name, err)
			continue
		}
		if len(msgs) != len(tc.codes) {
			t.Errorf("%s: want %v, got %v", tc.name, tc.codes, msgs)
			continue
		}
		for i, code := range tc.codes {
			if msgs[i].Code != code {
				t.Errorf("%s: want %s, got %s", tc.name, code, msgs[i].Code)
			}
		}
	}
}

func TestHandle_DaysLeft(t *testing.T) {
	s := testStrategy(t)
	msgs, err := s.Handle(context.Background(), principal(t, "casuser"), authn.PolicyConfig{AlwaysWarn: true})
	if err != nil {
		t.Fatal(err)
	}
	if msgs[0].Params[0] != 10 {
		t.Fatal("wrong days left:", msgs[0].Params)
	}
}

func TestHandle_Missing(t *testing.T) {
	s := testStrategy(t)
	if _, err := s.Handle(context.Background(), principal(t, "nobody"), authn.PolicyConfig{}); err == nil {
		t.Fatal("expected an error for missing account")
	}

	s = testStrategy(t, config.Node{Name: "allow_missing"})
	msgs, err := s.Handle(context.Background(), principal(t, "nobody"), authn.PolicyConfig{})
	if err != nil || len(msgs) != 0 {
		t.Fatal("unexpected result:", msgs, err)
	}
}

func TestHandle_StripRealm(t *testing.T) {
	s := testStrategy(t)
	_, err := s.Handle(context.Background(), principal(t, "gone@EXAMPLE.ORG"), authn.PolicyConfig{
		Attributes: map[string]string{"strip_realm": "true"},
	})
	var rejection *authn.PolicyRejectionError
	if !errors.As(err, &rejection) {
		t.Fatal("expected rejection, got", err)
	}
}
