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

package handler

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/credgate/credgate/framework/authn"
	"github.com/credgate/credgate/framework/config"
	"github.com/credgate/credgate/framework/module"
	"github.com/credgate/credgate/internal/chain"
	"github.com/credgate/credgate/internal/login/krb5"
	"github.com/credgate/credgate/internal/policy"
	_ "github.com/credgate/credgate/internal/policy/shadow"
	"github.com/credgate/credgate/internal/testutils"
)

func node(name string, args ...string) config.Node {
	return config.Node{Name: name, Args: args}
}

func setupRealm(t *testing.T, mods ...*testutils.LoginModule) {
	t.Helper()
	module.ResetInstances()
	t.Cleanup(module.ResetInstances)

	entries := make([]chain.Entry, 0, len(mods))
	for _, m := range mods {
		entries = append(entries, chain.Entry{Module: m, Flag: chain.Required})
	}
	c := chain.NewFromEntries("CAS", testutils.Logger(t, "chain"), entries...)
	module.RegisterInstance(c, config.NewMap(nil, config.Node{}))
}

func initHandler(t *testing.T, env authn.Environment, children ...config.Node) (*Handler, error) {
	t.Helper()
	mod, err := New(modName, "cas", nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	h := mod.(*Handler)
	h.log = testutils.Logger(t, "authn/cas")
	h.env = env
	return h, h.Init(config.NewMap(nil, config.Node{Children: children}))
}

func authenticate(h *Handler, id, secret string) (*authn.HandlerResult, error) {
	return h.Authenticate(context.Background(), authn.NewCredential(id, []byte(secret)))
}

func TestHandler(t *testing.T) {
	lm := &testutils.LoginModule{}
	setupRealm(t, lm)

	h, err := initHandler(t, nil, node("realm", "CAS"), node("password_policy", "none"))
	if err != nil {
		t.Fatal(err)
	}

	res, err := authenticate(h, "casuser", "Mellon")
	if err != nil {
		t.Fatal(err)
	}
	if res.HandlerName != "cas" || res.Principal.ID() != "casuser" {
		t.Fatal("unexpected result:", res.HandlerName, res.Principal)
	}
	if logins, logouts := lm.Counts(); logins != 1 || logouts != 1 {
		t.Fatal("wrong login/logout counts:", logins, logouts)
	}
}

func TestHandler_BackendFailure(t *testing.T) {
	setupRealm(t, &testutils.LoginModule{Err: module.ErrUnknownCredentials})

	h, err := initHandler(t, nil, node("realm", "CAS"), node("password_policy", "none"))
	if err != nil {
		t.Fatal(err)
	}

	_, err = authenticate(h, "casuser", "wrong")
	var verr *authn.BackendVerificationError
	if !errors.As(err, &verr) {
		t.Fatal("expected BackendVerificationError, got", err)
	}
	if !errors.Is(err, module.ErrUnknownCredentials) {
		t.Fatal("backend reason is lost:", err)
	}
}

func TestHandler_NoPolicy(t *testing.T) {
	setupRealm(t, &testutils.LoginModule{})

	h, err := initHandler(t, nil, node("realm", "CAS"))
	if err != nil {
		t.Fatal(err)
	}
	_, err = authenticate(h, "casuser", "Mellon")
	var unavailable *authn.PolicyHandlingUnavailableError
	if !errors.As(err, &unavailable) {
		t.Fatal("expected PolicyHandlingUnavailableError, got", err)
	}
}

func TestHandler_Overrides(t *testing.T) {
	setupRealm(t, &testutils.LoginModule{})
	env := &testutils.Environment{}

	h, err := initHandler(t, env,
		node("realm", "CAS"),
		node("password_policy", "none"),
		node("krb5_realm", "EXAMPLE.ORG"),
		node("krb5_kdc", "kdc.example.org:88"),
		node("env", "KRB5_TRACE", "/dev/stderr"),
	)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := authenticate(h, "casuser", "Mellon"); err != nil {
		t.Fatal(err)
	}

	applied := env.Applied()
	if len(applied) != 1 {
		t.Fatal("overrides applied", len(applied), "times")
	}
	for k, v := range map[string]string{
		krb5.EnvRealm: "EXAMPLE.ORG",
		krb5.EnvKDC:   "kdc.example.org:88",
		"KRB5_TRACE":  "/dev/stderr",
	} {
		if applied[0][k] != v {
			t.Errorf("%s: want %s, got %s", k, v, applied[0][k])
		}
	}
	if env.Get(krb5.EnvRealm) != "" {
		t.Fatal("overrides are not restored")
	}
}

func TestHandler_NameAttribute(t *testing.T) {
	setupRealm(t, &testutils.LoginModule{
		Names:      []string{"CASUSER@EXAMPLE.ORG"},
		Attributes: map[string][]string{"uid": {"expired"}},
	})
	path := filepath.Join(t.TempDir(), "shadow")
	if err := os.WriteFile(path, []byte("expired:*:18000:0:30:7:::\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	h, err := initHandler(t, nil,
		node("realm", "CAS"),
		node("password_policy", "shadow", path),
		node("policy_attr", policy.AttrNameAttribute, "uid"),
	)
	if err != nil {
		t.Fatal(err)
	}

	_, err = authenticate(h, "casuser", "Mellon")
	var rejection *authn.PolicyRejectionError
	if !errors.As(err, &rejection) {
		t.Fatal("expected PolicyRejectionError, got", err)
	}
	if rejection.Code != authn.CodePasswordExpired {
		t.Fatal("policy evaluated for the wrong account:", rejection.Code)
	}
}

func TestHandler_Normalize(t *testing.T) {
	setupRealm(t, &testutils.LoginModule{})

	h, err := initHandler(t, nil,
		node("realm", "CAS"),
		node("password_policy", "none"),
		node("normalize", "username_case_mapped"),
	)
	if err != nil {
		t.Fatal(err)
	}
	res, err := authenticate(h, "CasUser", "Mellon")
	if err != nil {
		t.Fatal(err)
	}
	if res.Principal.ID() != "casuser" {
		t.Fatal("name is not normalized:", res.Principal.ID())
	}
}

func TestInit_Errors(t *testing.T) {
	setupRealm(t, &testutils.LoginModule{})
	none, err := policy.NewNone("policy.none", "not_a_chain", nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	module.RegisterInstance(none, config.NewMap(nil, config.Node{}))

	for name, children := range map[string][]config.Node{
		"no realm":         {node("password_policy", "none")},
		"unknown realm":    {node("realm", "OTHER")},
		"realm not chain":  {node("realm", "not_a_chain")},
		"negative warning": {node("realm", "CAS"), node("warning_days", "-1")},
		"bad env":          {node("realm", "CAS"), node("env", "KRB5_TRACE")},
		"bad normalize":    {node("realm", "CAS"), node("normalize", "lowercase")},
		"unknown policy":   {node("realm", "CAS"), node("password_policy", "nonexistent")},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := initHandler(t, nil, children...)
			if err == nil {
				t.Fatal("expected an error")
			}
		})
	}
}

func TestInit_ConfigurationErrorKind(t *testing.T) {
	setupRealm(t, &testutils.LoginModule{})
	_, err := initHandler(t, nil, node("realm", "OTHER"))
	if authn.KindOf(err) != authn.KindConfiguration {
		t.Fatal("expected configuration error, got", err)
	}
}

func TestAuthenticate_NotInitialized(t *testing.T) {
	h := &Handler{instName: "cas"}
	_, err := authenticate(h, "casuser", "Mellon")
	if authn.KindOf(err) != authn.KindConfiguration {
		t.Fatal("expected configuration error, got", err)
	}
}
