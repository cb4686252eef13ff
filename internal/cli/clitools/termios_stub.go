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

//go:build !linux

package clitools

import (
	"errors"
	"os"
)

type Termios struct{}

var errNotSupported = errors.New("terminal control is not supported on this platform")

func TurnOnRawIO(*os.File) (*Termios, error) {
	return nil, errNotSupported
}

func TcSetAttr(uintptr, *Termios) error {
	return errNotSupported
}

func TcGetAttr(uintptr) (*Termios, error) {
	return nil, errNotSupported
}
