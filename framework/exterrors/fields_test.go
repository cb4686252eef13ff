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

package exterrors

import (
	"errors"
	"fmt"
	"testing"
)

func TestFields_OuterWins(t *testing.T) {
	inner := WithFields(errors.New("boom"), map[string]interface{}{
		"reason": "inner",
		"module": "login.ldap",
	})
	outer := WithFields(fmt.Errorf("wrapped: %w", inner), map[string]interface{}{
		"reason": "outer",
	})

	fields := Fields(outer)
	if fields["reason"] != "outer" {
		t.Errorf("reason = %v, want outer", fields["reason"])
	}
	if fields["module"] != "login.ldap" {
		t.Errorf("module = %v, want login.ldap", fields["module"])
	}
}

func TestWithTemporary(t *testing.T) {
	err := fmt.Errorf("ldap: %w", WithTemporary(errors.New("connection refused"), true))
	if !IsTemporary(err) {
		t.Error("IsTemporary = false for a temporary error")
	}
	if IsTemporary(errors.New("bad password")) {
		t.Error("IsTemporary = true for a plain error")
	}
	if Fields(err)["temporary"] != true {
		t.Error("temporary flag is not reported in fields")
	}
	if WithTemporary(nil, true) != nil {
		t.Error("WithTemporary(nil) != nil")
	}
}
