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

// Package parser reads the block-structured configuration format used by
// credgate.
//
//	name arg0 arg1 {
//	    child0 arg
//	    child1
//	}
//
// The format supports # comments, double-quoted arguments, line
// continuation with a trailing \, {env:VAR} substitution, snippets declared
// as (name) { ... } and the import directive that pulls in either a snippet
// or another file.
package parser

import (
	"errors"
	"fmt"
	"io"
	"unicode"
)

// Node struct describes a parsed configuration block or a simple directive.
type Node struct {
	// Name is the first string at node's line.
	Name string
	// Args are any strings placed after the node name.
	Args []string

	// Children slice contains all children nodes if node is a block. It is
	// nil if there is no block and empty if the block is empty.
	Children []Node

	// File is the name of node's source file.
	File string

	// Line is the line number where the directive is located in the source
	// file. For blocks this is the line where the block header resides.
	Line int
}

const maxNesting = 255

type parseContext struct {
	toks     []token
	pos      int
	location string
	snippets map[string][]Node
}

func NodeErr(node Node, f string, args ...interface{}) error {
	if node.File == "" {
		return fmt.Errorf(f, args...)
	}
	return fmt.Errorf("%s:%d: %s", node.File, node.Line, fmt.Sprintf(f, args...))
}

func (ctx *parseContext) errAt(line int, f string, args ...interface{}) error {
	return fmt.Errorf("%s:%d: %s", ctx.location, line, fmt.Sprintf(f, args...))
}

func (ctx *parseContext) peek() (token, bool) {
	if ctx.pos >= len(ctx.toks) {
		return token{}, false
	}
	return ctx.toks[ctx.pos], true
}

func (ctx *parseContext) lastLine() int {
	if len(ctx.toks) == 0 {
		return 1
	}
	return ctx.toks[len(ctx.toks)-1].line
}

func validateNodeName(s string) error {
	if len(s) == 0 {
		return errors.New("empty directive name")
	}
	if unicode.IsDigit([]rune(s)[0]) {
		return errors.New("directive name cannot start with a digit")
	}
	for _, ch := range s {
		if unicode.IsLetter(ch) || unicode.IsDigit(ch) {
			continue
		}
		switch ch {
		case '.', '-', '_', '&', '(', ')', '/', ':', '{', '}':
			continue
		}
		return errors.New("character not allowed in directive name: " + string(ch))
	}
	return nil
}

// readBlock reads nodes until the matching closing brace (if inner is true)
// or EOF.
func (ctx *parseContext) readBlock(nesting int, inner bool, openLine int) ([]Node, error) {
	if nesting > maxNesting {
		return nil, ctx.errAt(openLine, "nesting limit reached")
	}

	res := []Node{}
	for {
		tok, ok := ctx.peek()
		if !ok {
			if inner {
				return nil, ctx.errAt(ctx.lastLine(), "unexpected EOF when looking for } (block opened at line %d)", openLine)
			}
			return res, nil
		}

		switch tok.kind {
		case tokEOL:
			ctx.pos++
			continue
		case tokClose:
			if !inner {
				return nil, ctx.errAt(tok.line, "unexpected }")
			}
			ctx.pos++
			return res, nil
		case tokOpen:
			return nil, ctx.errAt(tok.line, "block header expected before {")
		}

		node, err := ctx.readNode(nesting)
		if err != nil {
			return nil, err
		}
		res = append(res, node)
	}
}

// readNode reads a single directive starting at the current token which must
// be a word.
func (ctx *parseContext) readNode(nesting int) (Node, error) {
	nameTok := ctx.toks[ctx.pos]
	ctx.pos++

	node := Node{
		Name: nameTok.text,
		File: ctx.location,
		Line: nameTok.line,
	}
	if err := validateNodeName(node.Name); err != nil {
		return node, ctx.errAt(nameTok.line, "%v", err)
	}

	for {
		tok, ok := ctx.peek()
		if !ok {
			return node, nil
		}
		switch tok.kind {
		case tokWord:
			node.Args = append(node.Args, tok.text)
			ctx.pos++
		case tokEOL:
			ctx.pos++
			return node, nil
		case tokClose:
			// Closing brace of the parent block on the same line.
			return node, nil
		case tokOpen:
			ctx.pos++
			children, err := ctx.readBlock(nesting+1, true, tok.line)
			if err != nil {
				return node, err
			}
			node.Children = children

			next, ok := ctx.peek()
			if ok && next.kind == tokWord {
				return node, ctx.errAt(next.line, "newline is required after closing brace")
			}
			if ok && next.kind == tokEOL {
				ctx.pos++
			}
			return node, nil
		}
	}
}

func readTree(r io.Reader, location string, expansionDepth int, snippets map[string][]Node) ([]Node, error) {
	toks, err := lex(r, location)
	if err != nil {
		return nil, err
	}

	ctx := parseContext{
		toks:     toks,
		location: location,
		snippets: snippets,
	}
	nodes, err := ctx.readBlock(0, false, 1)
	if err != nil {
		return nil, err
	}

	nodes, err = ctx.collectSnippets(nodes)
	if err != nil {
		return nil, err
	}

	return ctx.expandImports(nodes, expansionDepth)
}

// Read parses the configuration from r. location is used in error messages
// and as the base for relative import paths.
func Read(r io.Reader, location string) ([]Node, error) {
	nodes, err := readTree(r, location, 0, make(map[string][]Node))
	if err != nil {
		return nil, err
	}
	return expandEnvironment(nodes), nil
}
