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
	"strings"
)

const maxImportDepth = 64

func isSnippet(name string) (string, bool) {
	if strings.HasPrefix(name, "(") && strings.HasSuffix(name, ")") && len(name) > 2 {
		return name[1 : len(name)-1], true
	}
	return "", false
}

// collectSnippets removes top-level snippet declarations from nodes and
// remembers their bodies.
func (ctx *parseContext) collectSnippets(nodes []Node) ([]Node, error) {
	res := nodes[:0]
	for _, node := range nodes {
		name, ok := isSnippet(node.Name)
		if !ok {
			if err := checkNoSnippets(node.Children); err != nil {
				return nil, err
			}
			res = append(res, node)
			continue
		}
		if len(node.Args) != 0 {
			return nil, NodeErr(node, "snippet declarations can't have arguments")
		}
		if node.Children == nil {
			return nil, NodeErr(node, "snippet declaration requires a block")
		}
		ctx.snippets[name] = node.Children
	}
	return res, nil
}

func checkNoSnippets(nodes []Node) error {
	for _, node := range nodes {
		if _, ok := isSnippet(node.Name); ok {
			return NodeErr(node, "snippet declarations are only allowed at top-level")
		}
		if err := checkNoSnippets(node.Children); err != nil {
			return err
		}
	}
	return nil
}

func (ctx *parseContext) expandImports(nodes []Node, depth int) ([]Node, error) {
	// nil means "no block", keep it that way.
	if nodes == nil {
		return nil, nil
	}

	res := make([]Node, 0, len(nodes))
	for _, node := range nodes {
		if node.Name != "import" {
			children, err := ctx.expandImports(node.Children, depth)
			if err != nil {
				return nil, err
			}
			node.Children = children
			res = append(res, node)
			continue
		}

		if depth > maxImportDepth {
			return nil, NodeErr(node, "hit import expansion limit")
		}
		if len(node.Args) != 1 || node.Children != nil {
			return nil, NodeErr(node, "import directive requires exactly 1 argument")
		}

		subtree, err := ctx.resolveImport(node, node.Args[0], depth)
		if err != nil {
			return nil, err
		}
		res = append(res, subtree...)
	}
	return res, nil
}

func (ctx *parseContext) resolveImport(node Node, name string, depth int) ([]Node, error) {
	if subtree, ok := ctx.snippets[name]; ok {
		return ctx.expandImports(copyNodes(subtree), depth+1)
	}

	file := name
	if !filepath.IsAbs(name) {
		file = filepath.Join(filepath.Dir(ctx.location), name)
	}
	src, err := os.Open(file)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, NodeErr(node, "%v", err)
		}
		src, err = os.Open(file + ".conf")
		if err != nil {
			if os.IsNotExist(err) {
				return nil, NodeErr(node, "unknown import: %s", name)
			}
			return nil, NodeErr(node, "%v", err)
		}
		file += ".conf"
	}
	defer src.Close()

	return readTree(src, file, depth+1, ctx.snippets)
}

func copyNodes(nodes []Node) []Node {
	if nodes == nil {
		return nil
	}
	res := make([]Node, len(nodes))
	for i, n := range nodes {
		n.Args = append([]string(nil), n.Args...)
		n.Children = copyNodes(n.Children)
		res[i] = n
	}
	return res
}
