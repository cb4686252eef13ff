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
	"fmt"
	"runtime/debug"
)

// Version is overridden at build time with -ldflags "-X github.com/credgate/credgate.Version=...".
var Version = "go-build"

func BuildInfo() string {
	version := Version
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "(devel)" && info.Main.Version != "" {
		version = info.Main.Version
	}

	return fmt.Sprintf(`%s

default config: %s/credgate.conf
default state_dir: %s
default runtime_dir: %s
default libexec_dir: %s`,
		version,
		DefaultConfigDirectory,
		DefaultStateDirectory,
		DefaultRuntimeDirectory,
		DefaultLibexecDirectory)
}
