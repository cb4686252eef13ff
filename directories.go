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

//go:build !docker

package credgate

var (
	// DefaultConfigDirectory is where the configuration file and relative
	// paths mentioned in it are looked up.
	DefaultConfigDirectory = "/etc/credgate"

	DefaultStateDirectory   = "/var/lib/credgate"
	DefaultRuntimeDirectory = "/run/credgate"
	DefaultLibexecDirectory = "/usr/lib/credgate"
)
