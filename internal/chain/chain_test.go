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

package chain

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/credgate/credgate/framework/authn"
	"github.com/credgate/credgate/framework/config"
	"github.com/credgate/credgate/framework/module"
	"github.com/credgate/credgate/internal/testutils"
)

var errReject = errors.New("rejected")

func login(t *testing.T, c *Chain) (authn.VerificationContext, error) {
	t.Helper()
	cb := authn.NewCredentialCallbackHandler(authn.NewCredential("alice", []byte("pass")))
	vctx, err := c.NewContext(cb)
	if err != nil {
		t.Fatal(err)
	}
	return vctx, vctx.Login(context.Background())
}

func ok(names ...string) *testutils.LoginModule {
	return &testutils.LoginModule{Names: names}
}

func fail() *testutils.LoginModule {
	return &testutils.LoginModule{Err: errReject}
}

func TestChain_Flags(t *testing.T) {
	type step struct {
		mod  *testutils.LoginModule
		flag Flag
	}
	for _, tc := range []struct {
		name       string
		steps      []step
		success    bool
		principals []string
		called     []bool
	}{
		{
			name:       "sufficient first wins",
			steps:      []step{{ok("a"), Sufficient}, {ok("b"), Required}},
			success:    true,
			principals: []string{"a"},
			called:     []bool{true, false},
		},
		{
			name:       "sufficient failure falls through",
			steps:      []step{{fail(), Sufficient}, {ok("b"), Sufficient}},
			success:    true,
			principals: []string{"b"},
			called:     []bool{true, true},
		},
		{
			name:    "all sufficient fail",
			steps:   []step{{fail(), Sufficient}, {fail(), Sufficient}},
			success: false,
			called:  []bool{true, true},
		},
		{
			name:    "required failure continues but fails",
			steps:   []step{{fail(), Required}, {ok("b"), Sufficient}},
			success: false,
			called:  []bool{true, true},
		},
		{
			name:    "requisite failure stops",
			steps:   []step{{ok("a"), Required}, {fail(), Requisite}, {ok("c"), Optional}},
			success: false,
			called:  []bool{true, true, false},
		},
		{
			name:       "required modules all succeed",
			steps:      []step{{ok("a"), Required}, {ok("b"), Required}},
			success:    true,
			principals: []string{"a", "b"},
			called:     []bool{true, true},
		},
		{
			name:       "optional failure ignored with required",
			steps:      []step{{ok("a"), Required}, {fail(), Optional}},
			success:    true,
			principals: []string{"a"},
			called:     []bool{true, true},
		},
		{
			name:       "only optional, one succeeds",
			steps:      []step{{fail(), Optional}, {ok("b"), Optional}},
			success:    true,
			principals: []string{"b"},
			called:     []bool{true, true},
		},
		{
			name:    "only optional, none succeed",
			steps:   []step{{fail(), Optional}},
			success: false,
			called:  []bool{true},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			var entries []Entry
			for _, s := range tc.steps {
				entries = append(entries, Entry{Module: s.mod, Flag: s.flag})
			}
			c := NewFromEntries("CAS", testutils.Logger(t, "chain"), entries...)

			vctx, err := login(t, c)
			if tc.success != (err == nil) {
				t.Fatalf("success = %v, err = %v", tc.success, err)
			}
			if err != nil && !errors.Is(err, ErrChainFailed) {
				t.Errorf("error does not wrap ErrChainFailed: %v", err)
			}
			if tc.success && !reflect.DeepEqual(vctx.Principals(), tc.principals) {
				t.Errorf("principals: got %v, want %v", vctx.Principals(), tc.principals)
			}
			if !tc.success && vctx.Principals() != nil {
				t.Errorf("principals reported for failed login: %v", vctx.Principals())
			}

			for i, s := range tc.steps {
				logins, _ := s.mod.Counts()
				if (logins == 1) != tc.called[i] {
					t.Errorf("module %d: %d logins, expected called = %v", i, logins, tc.called[i])
				}
			}

			if err := vctx.Logout(); err != nil {
				t.Fatal(err)
			}
			for i, s := range tc.steps {
				_, logouts := s.mod.Counts()
				if s.mod.Err == nil && tc.called[i] && logouts != 1 {
					t.Errorf("module %d: session logged out %d times", i, logouts)
				}
			}
		})
	}
}

func TestChain_AbortLogsOutSucceeded(t *testing.T) {
	first := ok("a")
	c := NewFromEntries("CAS", testutils.Logger(t, "chain"),
		Entry{Module: first, Flag: Required},
		Entry{Module: fail(), Flag: Requisite},
	)

	vctx, err := login(t, c)
	if err == nil {
		t.Fatal("expected failure")
	}
	if _, logouts := first.Counts(); logouts != 1 {
		t.Errorf("succeeded module logged out %d times on abort", logouts)
	}

	// Logout after a failed login is a no-op.
	if err := vctx.Logout(); err != nil {
		t.Fatal(err)
	}
	if _, logouts := first.Counts(); logouts != 1 {
		t.Errorf("logged out %d times", logouts)
	}
}

func TestChain_UnsupportedRequestAborts(t *testing.T) {
	first := ok("a")
	otp := &testutils.LoginModule{Fields: []authn.FieldKind{authn.FieldIdentifier, "otp"}}
	last := ok("c")
	c := NewFromEntries("CAS", testutils.Logger(t, "chain"),
		Entry{Module: first, Flag: Optional},
		Entry{Module: otp, Flag: Optional},
		Entry{Module: last, Flag: Sufficient},
	)

	_, err := login(t, c)
	var unsupported *authn.UnsupportedRequestError
	if !errors.As(err, &unsupported) {
		t.Fatalf("expected UnsupportedRequestError, got %v", err)
	}
	if logins, _ := last.Counts(); logins != 0 {
		t.Error("chain continued after an unsupported request")
	}
	if _, logouts := first.Counts(); logouts != 1 {
		t.Error("earlier session not aborted")
	}
}

func TestChain_CancelledContext(t *testing.T) {
	second := ok("b")
	c := NewFromEntries("CAS", testutils.Logger(t, "chain"),
		Entry{Module: fail(), Flag: Sufficient},
		Entry{Module: second, Flag: Sufficient},
	)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	cb := authn.NewCredentialCallbackHandler(authn.NewCredential("alice", []byte("pass")))
	vctx, _ := c.NewContext(cb)
	if err := vctx.Login(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if logins, _ := second.Counts(); logins != 0 {
		t.Error("chain continued after cancellation")
	}
}

func TestChain_ContextReuse(t *testing.T) {
	c := NewFromEntries("CAS", testutils.Logger(t, "chain"), Entry{Module: ok("a"), Flag: Required})
	vctx, err := login(t, c)
	if err != nil {
		t.Fatal(err)
	}
	if err := vctx.Login(context.Background()); err == nil {
		t.Error("second Login on the same context succeeded")
	}
}

func TestChain_Attributes(t *testing.T) {
	first := &testutils.LoginModule{Names: []string{"a"}, Attributes: map[string][]string{"uid": {"alice"}, "group": {"staff"}}}
	second := &testutils.LoginModule{Names: []string{"b"}, Attributes: map[string][]string{"group": {"admins"}}}
	c := NewFromEntries("CAS", testutils.Logger(t, "chain"),
		Entry{Module: first, Flag: Required},
		Entry{Module: fail(), Flag: Optional},
		Entry{Module: second, Flag: Required},
	)

	vctx, err := login(t, c)
	if err != nil {
		t.Fatal(err)
	}
	src, isSource := vctx.(authn.AttributeSource)
	if !isSource {
		t.Fatal("chain context does not report attributes")
	}
	want := map[string][]string{"uid": {"alice"}, "group": {"staff", "admins"}}
	if got := src.Attributes(); !reflect.DeepEqual(got, want) {
		t.Errorf("attributes: got %v, want %v", got, want)
	}

	if err := vctx.Logout(); err != nil {
		t.Fatal(err)
	}
	if got := src.Attributes(); got != nil {
		t.Errorf("attributes after logout: %v", got)
	}
}

func TestChain_DependsOnEnvironment(t *testing.T) {
	plain := NewFromEntries("CAS", testutils.Logger(t, "chain"),
		Entry{Module: ok("a"), Flag: Required},
	)
	if authn.DependsOnEnvironment(plain) {
		t.Error("chain without environment-dependent modules reports dependency")
	}

	mixed := NewFromEntries("CAS", testutils.Logger(t, "chain"),
		Entry{Module: ok("a"), Flag: Optional},
		Entry{Module: &testutils.LoginModule{EnvDependent: true}, Flag: Required},
	)
	if !authn.DependsOnEnvironment(mixed) {
		t.Error("environment-dependent module not reported")
	}
}

func TestChain_Init(t *testing.T) {
	module.ResetInstances()
	defer module.ResetInstances()

	ldap := &testutils.LoginModule{InstName: "corp_ldap"}
	module.RegisterInstance(ldap, config.NewMap(nil, config.Node{}))

	cfg := config.Node{
		Name: "chain",
		Args: []string{"CAS"},
		Children: []config.Node{
			{Name: "dummy", Args: []string{"sufficient"}},
			{Name: "&corp_ldap", Args: []string{"required"}},
		},
	}

	mod, err := New("chain", "CAS", nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	c := mod.(*Chain)
	if err := c.Init(config.NewMap(nil, cfg)); err != nil {
		t.Fatal(err)
	}

	entries := c.Entries()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Module.Name() != "dummy" || entries[0].Flag != Sufficient {
		t.Errorf("entry 0: %s %v", entries[0].Module.Name(), entries[0].Flag)
	}
	if entries[1].Module != module.LoginModule(ldap) || entries[1].Flag != Required {
		t.Errorf("entry 1: %s %v", entries[1].Module.Name(), entries[1].Flag)
	}
}

func TestChain_InitErrors(t *testing.T) {
	for name, children := range map[string][]config.Node{
		"empty":        {},
		"missing flag": {{Name: "dummy"}},
		"bad flag":     {{Name: "dummy", Args: []string{"mandatory"}}},
		"unknown":      {{Name: "login.nonexistent", Args: []string{"required"}}},
	} {
		t.Run(name, func(t *testing.T) {
			mod, _ := New("chain", "CAS", nil, nil)
			err := mod.Init(config.NewMap(nil, config.Node{Children: children}))
			if err == nil {
				t.Fatal("expected failure")
			}
			if name == "bad flag" && !strings.Contains(err.Error(), "unknown control flag") {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}
