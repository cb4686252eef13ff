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
	"bufio"
	"fmt"
	"io"
	"strings"
	"unicode"
)

type tokenKind int

const (
	tokWord tokenKind = iota
	tokOpen
	tokClose
	tokEOL
)

type token struct {
	kind tokenKind
	text string
	line int
}

// lex splits the configuration text into words, braces and line breaks.
//
// Comments start with # at the beginning of a word and run until the end of
// line. Double-quoted strings may contain whitespace, braces and escaped
// quotes. A lone \ at the end of a line joins it with the next one.
func lex(r io.Reader, location string) ([]token, error) {
	var (
		toks   []token
		line   = 1
		word   strings.Builder
		inWord bool
		quoted bool
		rd     = bufio.NewReader(r)
	)

	flush := func() {
		if !inWord {
			return
		}
		toks = append(toks, token{kind: tokWord, text: word.String(), line: line})
		word.Reset()
		inWord = false
	}

	for {
		ch, _, err := rd.ReadRune()
		if err != nil {
			if err != io.EOF {
				return nil, err
			}
			if quoted {
				return nil, fmt.Errorf("%s:%d: unterminated quoted string", location, line)
			}
			flush()
			return toks, nil
		}

		if quoted {
			switch ch {
			case '"':
				quoted = false
			case '\\':
				next, _, err := rd.ReadRune()
				if err != nil {
					return nil, fmt.Errorf("%s:%d: unterminated quoted string", location, line)
				}
				if next != '"' && next != '\\' {
					word.WriteRune('\\')
				}
				if next == '\n' {
					line++
				}
				word.WriteRune(next)
			case '\n':
				line++
				word.WriteRune(ch)
			default:
				word.WriteRune(ch)
			}
			continue
		}

		switch ch {
		case '"':
			inWord = true
			quoted = true
		case ' ', '\t', '\r':
			flush()
		case '\n':
			flush()
			if n := len(toks); n != 0 && toks[n-1].kind == tokWord && toks[n-1].text == `\` {
				toks = toks[:n-1]
			} else {
				toks = append(toks, token{kind: tokEOL, line: line})
			}
			line++
		case '#':
			if inWord {
				word.WriteRune(ch)
				continue
			}
			if _, err := rd.ReadString('\n'); err != nil && err != io.EOF {
				return nil, err
			}
			toks = append(toks, token{kind: tokEOL, line: line})
			line++
		case '{', '}':
			if inWord {
				word.WriteRune(ch)
				continue
			}
			kind := tokOpen
			if ch == '}' {
				kind = tokClose
			}
			// {env:X} starts a word, not a block.
			if ch == '{' {
				if peek, err := rd.Peek(1); err == nil && unicode.IsLetter(rune(peek[0])) {
					word.WriteRune(ch)
					inWord = true
					continue
				}
			}
			toks = append(toks, token{kind: kind, text: string(ch), line: line})
		default:
			word.WriteRune(ch)
			inWord = true
		}
	}
}
