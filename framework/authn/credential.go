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

// Credential is the material presented to prove an identity.
//
// It is immutable: the secret is copied on construction and Secret returns a
// fresh copy each time. String and FormatLog never include the secret.
type Credential struct {
	identifier string
	secret     []byte
}

func NewCredential(identifier string, secret []byte) Credential {
	return Credential{
		identifier: identifier,
		secret:     append([]byte(nil), secret...),
	}
}

func (c Credential) Identifier() string {
	return c.identifier
}

func (c Credential) Secret() []byte {
	return append([]byte(nil), c.secret...)
}

func (c Credential) String() string {
	return "Credential(" + c.identifier + ", [redacted])"
}

func (c Credential) FormatLog() string {
	return c.identifier
}

func (c Credential) validate() error {
	if c.identifier == "" {
		return &InvalidCredentialError{Reason: "empty identifier"}
	}
	if len(c.secret) == 0 {
		return &InvalidCredentialError{Reason: "empty secret"}
	}
	return nil
}
