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

package parser

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

var cases = []struct {
	name string
	cfg  string
	tree []Node
	fail bool
}{
	{
		"single directive without args",
		`a`,
		[]Node{{Name: "a", File: "test", Line: 1}},
		false,
	},
	{
		"single directive with args",
		`a a1 a2`,
		[]Node{{Name: "a", Args: []string{"a1", "a2"}, File: "test", Line: 1}},
		false,
	},
	{
		"empty braces",
		`a { }`,
		[]Node{{Name: "a", Children: []Node{}, File: "test", Line: 1}},
		false,
	},
	{
		"adjacent braces",
		`a {}`,
		[]Node{{Name: "a", Children: []Node{}, File: "test", Line: 1}},
		false,
	},
	{
		"block on multiple lines",
		"handler.chain cas {\n  realm CAS\n  timeout 30s\n}",
		[]Node{
			{
				Name: "handler.chain",
				Args: []string{"cas"},
				Children: []Node{
					{Name: "realm", Args: []string{"CAS"}, File: "test", Line: 2},
					{Name: "timeout", Args: []string{"30s"}, File: "test", Line: 3},
				},
				File: "test",
				Line: 1,
			},
		},
		false,
	},
	{
		"inline nested blocks",
		`chain { login.krb5 sufficient { realm EXAMPLE.ORG } }`,
		[]Node{
			{
				Name: "chain",
				Children: []Node{
					{
						Name: "login.krb5",
						Args: []string{"sufficient"},
						Children: []Node{
							{Name: "realm", Args: []string{"EXAMPLE.ORG"}, File: "test", Line: 1},
						},
						File: "test",
						Line: 1,
					},
				},
				File: "test",
				Line: 1,
			},
		},
		false,
	},
	{
		"comments",
		"# leading comment\na b # trailing\nc",
		[]Node{
			{Name: "a", Args: []string{"b"}, File: "test", Line: 2},
			{Name: "c", File: "test", Line: 3},
		},
		false,
	},
	{
		"quoted arguments",
		`bind_dn "cn=service account,dc=example,dc=org" "say \"hi\"" "{"`,
		[]Node{
			{Name: "bind_dn", Args: []string{"cn=service account,dc=example,dc=org", `say "hi"`, "{"}, File: "test", Line: 1},
		},
		false,
	},
	{
		"line continuation",
		"a b \\\n  c d\ne",
		[]Node{
			{Name: "a", Args: []string{"b", "c", "d"}, File: "test", Line: 1},
			{Name: "e", File: "test", Line: 3},
		},
		false,
	},
	{
		"snippet import",
		"(common) {\n  debug yes\n}\nlogin.ldap {\n  import common\n}",
		[]Node{
			{
				Name: "login.ldap",
				Children: []Node{
					{Name: "debug", Args: []string{"yes"}, File: "test", Line: 2},
				},
				File: "test",
				Line: 4,
			},
		},
		false,
	},
	{"unbalanced open", `a {`, nil, true},
	{"unbalanced close", "a\n}", nil, true},
	{"brace without header", `{ a }`, nil, true},
	{"text after closing brace", `a { b } c`, nil, true},
	{"unterminated quote", `a "b`, nil, true},
	{"name starts with digit", `1a b`, nil, true},
	{"snippet not at top-level", "a {\n (s) { b }\n}", nil, true},
	{"snippet with args", "(s) x { b }", nil, true},
	{"unknown import", "import nonexistent-snippet-name", nil, true},
	{"import with block", "import a { }", nil, true},
}

func TestRead(t *testing.T) {
	for _, case_ := range cases {
		case_ := case_
		t.Run(case_.name, func(t *testing.T) {
			tree, err := Read(strings.NewReader(case_.cfg), "test")
			if !case_.fail && err != nil {
				t.Fatal("unexpected failure:", err)
			}
			if case_.fail {
				if err == nil {
					t.Log("Parse result:", tree)
					t.Fatal("unexpected success")
				}
				return
			}
			if !reflect.DeepEqual(case_.tree, tree) {
				t.Log("parse result mismatch")
				t.Log("expected:")
				t.Logf("%+#v", case_.tree)
				t.Log("actual:")
				t.Logf("%+#v", tree)
				t.Fail()
			}
		})
	}
}

func TestRead_Env(t *testing.T) {
	t.Setenv("CREDGATE_TEST_REALM", "EXAMPLE.ORG")
	t.Setenv("CREDGATE_TEST_KDCS", "kdc1.example.org,kdc2.example.org")

	tree, err := Read(strings.NewReader(
		"realm {env:CREDGATE_TEST_REALM}\n"+
			"kdc {env_split:CREDGATE_TEST_KDCS}\n"+
			"dn cn={env:CREDGATE_TEST_UNSET}x"), "test")
	if err != nil {
		t.Fatal(err)
	}

	want := []Node{
		{Name: "realm", Args: []string{"EXAMPLE.ORG"}, File: "test", Line: 1},
		{Name: "kdc", Args: []string{"kdc1.example.org", "kdc2.example.org"}, File: "test", Line: 2},
		{Name: "dn", Args: []string{"cn=x"}, File: "test", Line: 3},
	}
	if !reflect.DeepEqual(tree, want) {
		t.Errorf("got %+v\nwant %+v", tree, want)
	}
}

func TestRead_ImportFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "policies.conf"), []byte("policy.none none\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	main := filepath.Join(dir, "credgate.conf")
	tree, err := Read(strings.NewReader("import policies\nlogin.shadow"), main)
	if err != nil {
		t.Fatal(err)
	}

	if len(tree) != 2 {
		t.Fatalf("expected 2 nodes, got %d: %+v", len(tree), tree)
	}
	if tree[0].Name != "policy.none" || tree[0].File != filepath.Join(dir, "policies.conf") {
		t.Errorf("imported node mismatch: %+v", tree[0])
	}
	if tree[1].Name != "login.shadow" || tree[1].File != main {
		t.Errorf("local node mismatch: %+v", tree[1])
	}
}

func TestRead_ImportLoop(t *testing.T) {
	dir := t.TempDir()
	loop := filepath.Join(dir, "loop.conf")
	if err := os.WriteFile(loop, []byte("import loop\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := Read(strings.NewReader("import loop"), filepath.Join(dir, "main.conf")); err == nil {
		t.Fatal("expected an error for recursive import")
	}
}
