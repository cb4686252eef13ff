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

package sasl

import (
	"github.com/emersion/go-sasl"
)

// LoginAuthenticator checks the username and password sent by a LOGIN
// client.
type LoginAuthenticator func(username, password string) error

type loginStep int

const (
	loginStart loginStep = iota
	loginUsername
	loginPassword
	loginDone
)

type loginServer struct {
	step         loginStep
	username     string
	authenticate LoginAuthenticator
}

// NewLoginServer returns a server for the obsolete LOGIN mechanism
// (draft-murchison-sasl-login-00). go-sasl no longer ships one.
func NewLoginServer(authenticator LoginAuthenticator) sasl.Server {
	return &loginServer{authenticate: authenticator}
}

func (s *loginServer) Next(response []byte) (challenge []byte, done bool, err error) {
	switch s.step {
	case loginStart:
		if response == nil {
			s.step = loginUsername
			return []byte("Username:"), false, nil
		}
		// Initial response carries the username, RFC 4422 section 3.
		s.username = string(response)
		s.step = loginPassword
		return []byte("Password:"), false, nil
	case loginUsername:
		s.username = string(response)
		s.step = loginPassword
		return []byte("Password:"), false, nil
	case loginPassword:
		s.step = loginDone
		return nil, true, s.authenticate(s.username, string(response))
	}
	return nil, true, sasl.ErrUnexpectedClientResponse
}
