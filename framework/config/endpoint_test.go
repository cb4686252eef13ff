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

package config

import (
	"path/filepath"
	"testing"
)

func TestParseEndpoint(t *testing.T) {
	oldRuntime := RuntimeDirectory
	RuntimeDirectory = "/run/credgate"
	defer func() { RuntimeDirectory = oldRuntime }()

	cases := []struct {
		in      string
		network string
		address string
		fail    bool
	}{
		{in: "tcp://127.0.0.1:12345", network: "tcp", address: "127.0.0.1:12345"},
		{in: "tcp://[::1]:12345", network: "tcp", address: "[::1]:12345"},
		{in: "tcp:localhost:12345", network: "tcp", address: "localhost:12345"},
		{in: "unix:///var/run/dovecot/auth-client", network: "unix", address: "/var/run/dovecot/auth-client"},
		{in: "unix://auth-client", network: "unix", address: filepath.Join("/run/credgate", "auth-client")},
		{in: "tcp://127.0.0.1", fail: true},
		{in: "unix://", fail: true},
		{in: "http://127.0.0.1:80", fail: true},
	}
	for _, c := range cases {
		t.Run(c.in, func(t *testing.T) {
			endp, err := ParseEndpoint(c.in)
			if c.fail {
				if err == nil {
					t.Fatalf("expected an error, got %+v", endp)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if endp.Network() != c.network {
				t.Errorf("network: want %s, got %s", c.network, endp.Network())
			}
			if endp.Address() != c.address {
				t.Errorf("address: want %s, got %s", c.address, endp.Address())
			}
			if endp.String() != c.in {
				t.Errorf("String() = %s", endp.String())
			}
		})
	}
}
