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

package authn

import (
	"os"
	"sort"
	"sync"
)

// Environment is the process-wide configuration some backends read instead
// of per-call parameters (Kerberos realm and KDC, for example).
//
// Callers hold the lock for the whole configure-then-verify sequence so that
// overrides of one attempt never leak into a concurrent one. The restore
// function returned by Apply puts the previous values back and must be called
// before unlocking.
type Environment interface {
	sync.Locker
	Apply(overrides map[string]string) (restore func(), err error)
}

type processEnvironment struct {
	sync.Mutex
}

// ProcessEnvironment applies overrides as process environment variables.
//
// There is only one process environment so all handlers share this value
// and serialize their attempts that carry overrides.
var ProcessEnvironment Environment = &processEnvironment{}

func (*processEnvironment) Apply(overrides map[string]string) (func(), error) {
	type prevVal struct {
		val string
		set bool
	}

	keys := make([]string, 0, len(overrides))
	for k := range overrides {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	prev := make(map[string]prevVal, len(keys))
	restore := func() {
		for k, p := range prev {
			if p.set {
				os.Setenv(k, p.val)
			} else {
				os.Unsetenv(k)
			}
		}
	}

	for _, k := range keys {
		val, set := os.LookupEnv(k)
		prev[k] = prevVal{val, set}
		if err := os.Setenv(k, overrides[k]); err != nil {
			restore()
			return func() {}, err
		}
	}
	return restore, nil
}
