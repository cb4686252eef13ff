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

//go:build linux

package clitools

import (
	"errors"
	"os"

	"golang.org/x/sys/unix"
)

type Termios = unix.Termios

// TurnOnRawIO sets flags suitable for raw I/O (no echo, per-character
// input, etc) and returns original flags.
func TurnOnRawIO(tty *os.File) (orig *Termios, err error) {
	termios, err := TcGetAttr(tty.Fd())
	if err != nil {
		return nil, errors.New("TurnOnRawIO: failed to get flags: " + err.Error())
	}
	termiosOrig := *termios

	termios.Lflag &^= unix.ECHO
	termios.Lflag &^= unix.ICANON
	termios.Iflag &^= unix.IXON
	termios.Lflag &^= unix.ISIG
	termios.Iflag |= unix.IUTF8
	if err := TcSetAttr(tty.Fd(), termios); err != nil {
		return nil, errors.New("TurnOnRawIO: failed to set flags: " + err.Error())
	}
	return &termiosOrig, nil
}

func TcSetAttr(fd uintptr, termios *Termios) error {
	return unix.IoctlSetTermios(int(fd), unix.TCSETS, termios)
}

func TcGetAttr(fd uintptr) (*Termios, error) {
	return unix.IoctlGetTermios(int(fd), unix.TCGETS)
}
