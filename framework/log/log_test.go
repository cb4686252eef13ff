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

package log

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/credgate/credgate/framework/exterrors"
	"go.uber.org/zap"
)

type capture struct {
	lines []string
}

func (c *capture) out() Output {
	return FuncOutput(func(_ time.Time, debug bool, s string) {
		if debug {
			s = "[debug] " + s
		}
		c.lines = append(c.lines, s)
	}, nil)
}

type secret struct{}

func (secret) FormatLog() string { return "***" }

func TestLogger_Msg(t *testing.T) {
	c := &capture{}
	l := Logger{Out: c.out(), Name: "handler.chain"}

	l.Msg("authenticated", "principal", "alice", "secret", secret{}, "raw", []byte("hunter2"))

	if len(c.lines) != 1 {
		t.Fatalf("got %d lines, want 1", len(c.lines))
	}
	want := `handler.chain: authenticated	{"principal":"alice","raw":"[7 bytes]","secret":"***"}`
	if c.lines[0] != want {
		t.Errorf("got  %s\nwant %s", c.lines[0], want)
	}
}

func TestLogger_Error(t *testing.T) {
	c := &capture{}
	l := Logger{Out: c.out(), Name: "chain"}.With("attempt", "a1")

	err := exterrors.WithFields(errors.New("bind failed"), map[string]interface{}{
		"module": "login.ldap",
	})
	l.Error("login module failed", err, "flag", "sufficient")

	if len(c.lines) != 1 {
		t.Fatalf("got %d lines, want 1", len(c.lines))
	}
	for _, part := range []string{`"attempt":"a1"`, `"module":"login.ldap"`, `"reason":"bind failed"`, `"flag":"sufficient"`} {
		if !strings.Contains(c.lines[0], part) {
			t.Errorf("%q is missing %s", c.lines[0], part)
		}
	}

	l.Error("ignored", nil)
	if len(c.lines) != 1 {
		t.Error("Error with nil error produced output")
	}
}

func TestLogger_Debug(t *testing.T) {
	c := &capture{}
	l := Logger{Out: c.out(), Name: "x"}
	l.Debugf("hidden %d", 1)
	l.DebugMsg("hidden")
	if len(c.lines) != 0 {
		t.Fatal("debug messages written with Debug = false")
	}

	l.Debug = true
	l.Debugln("shown")
	if len(c.lines) != 1 || c.lines[0] != "[debug] x: shown" {
		t.Errorf("unexpected output: %v", c.lines)
	}
}

func TestLogger_ZapStdLog(t *testing.T) {
	c := &capture{}
	l := Logger{Out: c.out(), Name: "login.krb5"}

	std := zap.NewStdLog(l.Zap())
	std.Print("TGT obtained")

	if len(c.lines) != 1 || !strings.HasPrefix(c.lines[0], "login.krb5: TGT obtained") {
		t.Errorf("unexpected output: %v", c.lines)
	}
}

func TestMultiOutput_ClosesAll(t *testing.T) {
	errFirst := errors.New("first")
	var closed []string
	closer := func(name string, err error) Output {
		return FuncOutput(func(time.Time, bool, string) {}, func() error {
			closed = append(closed, name)
			return err
		})
	}

	a, b := &capture{}, &capture{}
	out := MultiOutput(a.out(), b.out(), closer("failing", errFirst), closer("last", nil))
	Logger{Out: out}.Msg("hello")
	if len(a.lines) != 1 || len(b.lines) != 1 {
		t.Fatal("message not duplicated:", a.lines, b.lines)
	}

	if err := out.Close(); !errors.Is(err, errFirst) {
		t.Fatal("close error lost:", err)
	}
	if strings.Join(closed, ",") != "failing,last" {
		t.Fatal("not all outputs closed:", closed)
	}
}
