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

package module

import (
	"errors"
	"testing"

	"github.com/credgate/credgate/framework/config"
)

type countingModule struct {
	Dummy
	inits int
	err   error
}

func (m *countingModule) Init(*config.Map) error {
	m.inits++
	return m.err
}

func TestGetInstance_LazyInit(t *testing.T) {
	ResetInstances()
	defer ResetInstances()

	mod := &countingModule{Dummy: Dummy{instName: "corp_ldap"}}
	RegisterInstance(mod, config.NewMap(nil, config.Node{}))
	RegisterAlias("ldap", "corp_ldap")

	if mod.inits != 0 {
		t.Fatal("Init called on registration")
	}
	if got := NotInitialized(); len(got) != 1 || got[0] != "corp_ldap" {
		t.Errorf("NotInitialized: %v", got)
	}

	for _, name := range []string{"corp_ldap", "ldap", "corp_ldap"} {
		got, err := GetInstance(name)
		if err != nil {
			t.Fatal(err)
		}
		if got != mod {
			t.Errorf("%s: got a different instance", name)
		}
	}
	if mod.inits != 1 {
		t.Errorf("Init called %d times", mod.inits)
	}
	if len(NotInitialized()) != 0 {
		t.Error("instance still reported as not initialized")
	}
}

func TestGetInstance_Errors(t *testing.T) {
	ResetInstances()
	defer ResetInstances()

	if _, err := GetInstance("missing"); err == nil {
		t.Error("unknown instance returned without error")
	}
	if HasInstance("missing") {
		t.Error("HasInstance reported unknown instance")
	}

	initErr := errors.New("bad config")
	RegisterInstance(&countingModule{Dummy: Dummy{instName: "broken"}, err: initErr}, config.NewMap(nil, config.Node{}))
	if _, err := GetInstance("broken"); !errors.Is(err, initErr) {
		t.Errorf("expected Init error, got %v", err)
	}
}

func TestRegistered(t *testing.T) {
	found := false
	for _, name := range Registered() {
		if name == "dummy" {
			found = true
		}
	}
	if !found {
		t.Error("dummy module not registered")
	}
	if Get("dummy") == nil {
		t.Error("Get(dummy) returned nil")
	}
}
