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

// Package hooks runs callbacks installed by modules on process-level events.
package hooks

import "sync"

type Event int

const (
	// EventShutdown is triggered when the process is about to stop. Modules
	// holding connections (LDAP pools, SQL databases) close them here.
	EventShutdown Event = iota

	// EventReload is triggered by SIGUSR2 on POSIX platforms. Only
	// secondary files such as file-based tables are re-read, module
	// configuration is not.
	EventReload

	// EventLogRotate is triggered by SIGUSR1 on POSIX platforms and asks
	// to reopen log files.
	EventLogRotate
)

var (
	hooks    = make(map[Event][]func())
	hooksLck sync.Mutex
)

func hooksToRun(eventName Event) []func() {
	hooksLck.Lock()
	defer hooksLck.Unlock()

	// Run a copy so that hooks may install other hooks without deadlocking.
	return append([]func(){}, hooks[eventName]...)
}

// RunHooks runs the hooks installed for the specified eventName in the reverse
// order.
func RunHooks(eventName Event) {
	hooks := hooksToRun(eventName)
	for i := len(hooks) - 1; i >= 0; i-- {
		hooks[i]()
	}
}

// AddHook installs the hook to be executed when certain event occurs.
func AddHook(eventName Event, f func()) {
	hooksLck.Lock()
	defer hooksLck.Unlock()

	hooks[eventName] = append(hooks[eventName], f)
}
