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

package testutils

import (
	"flag"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/credgate/credgate/framework/log"
)

var (
	debugLog  = flag.Bool("test.debuglog", false, "(credgate) Turn on debug log messages")
	directLog = flag.Bool("test.directlog", false, "(credgate) Log to stderr instead of test log")
)

// Logger returns a log.Logger writing to the test log.
//
// Messages written after the test has finished (by background goroutines
// of timed out attempts, for example) are dropped.
func Logger(t *testing.T, name string) log.Logger {
	if *directLog {
		return log.Logger{
			Out:   log.WriterOutput(os.Stderr, true),
			Name:  name,
			Debug: *debugLog,
		}
	}

	var (
		mu       sync.Mutex
		finished bool
	)
	t.Cleanup(func() {
		mu.Lock()
		finished = true
		mu.Unlock()
	})

	return log.Logger{
		Out: log.FuncOutput(func(_ time.Time, debug bool, str string) {
			mu.Lock()
			defer mu.Unlock()
			if finished {
				return
			}
			t.Helper()
			str = strings.TrimSuffix(str, "\n")
			if debug {
				str = "[debug] " + str
			}
			t.Log(str)
		}, nil),
		Name:  name,
		Debug: *debugLog,
	}
}
