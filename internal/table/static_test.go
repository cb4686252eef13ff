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

package table

import (
	"context"
	"testing"

	"github.com/credgate/credgate/framework/config"
)

func TestStatic(t *testing.T) {
	mod, err := NewStatic("table.static", "users", nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	err = mod.Init(config.NewMap(nil, config.Node{Children: []config.Node{
		{Name: "entry", Args: []string{"casuser", "bcrypt:hash"}},
		{Name: "entry", Args: []string{"admin", "argon2:hash"}},
	}}))
	if err != nil {
		t.Fatal(err)
	}
	if mod.InstanceName() != "users" {
		t.Fatal("wrong instance name:", mod.InstanceName())
	}

	tbl := mod.(*Static)
	if val, ok, _ := tbl.Lookup(context.Background(), "admin"); !ok || val != "argon2:hash" {
		t.Fatal("unexpected lookup result:", val, ok)
	}
	if _, ok, _ := tbl.Lookup(context.Background(), "nobody"); ok {
		t.Fatal("unexpected match")
	}
}

func TestStatic_Errors(t *testing.T) {
	for name, children := range map[string][]config.Node{
		"no value":  {{Name: "entry", Args: []string{"casuser"}}},
		"two value": {{Name: "entry", Args: []string{"casuser", "a", "b"}}},
		"duplicate": {
			{Name: "entry", Args: []string{"casuser", "a"}},
			{Name: "entry", Args: []string{"casuser", "b"}},
		},
	} {
		t.Run(name, func(t *testing.T) {
			mod, _ := NewStatic("table.static", "", nil, nil)
			if err := mod.Init(config.NewMap(nil, config.Node{Children: children})); err == nil {
				t.Fatal("expected an error")
			}
		})
	}
}
