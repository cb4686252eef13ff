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

package credgate

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/credgate/credgate/framework/authn"
	"github.com/credgate/credgate/framework/module"
)

// casuser:password
const testConfig = `
state_dir $DIR
runtime_dir $DIR
libexec_dir $DIR
log off

table.static users {
    entry casuser "sha256:U0FMVA==:8PDRAgaUqaLSk34WpYniXjaBgGM93Lc6iF4pw2slthw="
}

chain CAS {
    login.pass_table required &users
}

handler.chain cas {
    realm CAS
    password_policy none
    timeout 10s
}

handler.chain strict {
    realm CAS
}
`

func load(t *testing.T, cfg string) (*Instance, error) {
	t.Helper()
	module.ResetInstances()
	t.Cleanup(module.ResetInstances)
	cfg = strings.ReplaceAll(cfg, "$DIR", t.TempDir())
	inst, err := Load(strings.NewReader(cfg), "credgate.conf")
	if inst != nil {
		t.Cleanup(inst.Close)
	}
	return inst, err
}

func TestLoad(t *testing.T) {
	inst, err := load(t, testConfig)
	if err != nil {
		t.Fatal(err)
	}

	if names := inst.Handlers(); len(names) != 2 || names[0] != "cas" || names[1] != "strict" {
		t.Fatal("unexpected handlers:", names)
	}

	h, err := inst.Handler("cas")
	if err != nil {
		t.Fatal(err)
	}
	res, err := h.Authenticate(context.Background(), authn.NewCredential("CasUser", []byte("password")))
	if err != nil {
		t.Fatal(err)
	}
	if res.Principal.ID() != "casuser" || res.HandlerName != "cas" {
		t.Fatal("unexpected result:", res.HandlerName, res.Principal)
	}

	_, err = h.Authenticate(context.Background(), authn.NewCredential("casuser", []byte("Mellon")))
	if authn.KindOf(err) != authn.KindBackendVerification {
		t.Fatal("expected verification failure, got", err)
	}
	if !errors.Is(err, module.ErrUnknownCredentials) {
		t.Fatal("backend reason is lost:", err)
	}

	strict, err := inst.Handler("strict")
	if err != nil {
		t.Fatal(err)
	}
	_, err = strict.Authenticate(context.Background(), authn.NewCredential("casuser", []byte("password")))
	if authn.KindOf(err) != authn.KindPolicyHandlingUnavailable {
		t.Fatal("expected policy handling unavailable, got", err)
	}
}

func TestLoad_NotHandler(t *testing.T) {
	inst, err := load(t, testConfig)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := inst.Handler("users"); err == nil {
		t.Fatal("table returned as a handler")
	}
	if _, err := inst.Handler("nonexistent"); err == nil {
		t.Fatal("expected an error for unknown block")
	}
}

func TestLoad_Errors(t *testing.T) {
	for name, cfg := range map[string]string{
		"unknown module": `
state_dir $DIR
runtime_dir $DIR
libexec_dir $DIR
login.telepathy x {}`,
		"duplicate block": `
state_dir $DIR
runtime_dir $DIR
libexec_dir $DIR
table.static users {}
table.static users {}`,
		"unknown realm": `
state_dir $DIR
runtime_dir $DIR
libexec_dir $DIR
handler.chain cas {
    realm CAS
}`,
		"empty chain": `
state_dir $DIR
runtime_dir $DIR
libexec_dir $DIR
chain CAS {}`,
		"nothing to do": `
state_dir $DIR
runtime_dir $DIR
libexec_dir $DIR`,
		"relative state dir": `
state_dir relative
runtime_dir $DIR
libexec_dir $DIR
table.static users {}`,
	} {
		t.Run(name, func(t *testing.T) {
			if _, err := load(t, cfg); err == nil {
				t.Fatal("expected an error")
			}
		})
	}
}
