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

var (
	// StateDirectory contains the path to the directory that
	// should be used to store any data that should be
	// preserved between runs.
	//
	// Value of this variable must not change after initialization
	// in cmd/credgate/main.go.
	StateDirectory string

	// ConfigDirectory is the directory relative file paths in the
	// configuration (table files, keytabs) are resolved against.
	ConfigDirectory string

	// RuntimeDirectory is where relative unix socket paths in endpoints
	// are resolved.
	RuntimeDirectory string

	// LibexecDirectory contains the path to the directory
	// where helper binaries (credgate-shadow-helper, PAM helper)
	// are searched.
	//
	// Value of this variable must not change after initialization
	// in cmd/credgate/main.go.
	LibexecDirectory string
)
