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

package module

import (
	"context"
	"errors"

	"github.com/credgate/credgate/framework/authn"
)

// ErrUnknownCredentials should be returned by login modules if supplied
// credentials are valid for it but are not recognized (e.g. not found in
// used DB).
var ErrUnknownCredentials = errors.New("unknown credentials")

// LoginModule verifies credentials against one external mechanism. Modules
// implementing it are registered with the "login." prefix and are combined
// into chains.
//
// Login asks for credential fields through cb. On success it returns a
// LoginSession that holds the resolved principal names until Logout.
// On failure the module releases everything it acquired itself.
type LoginModule interface {
	Module
	Login(ctx context.Context, cb authn.CallbackHandler) (LoginSession, error)
}

type LoginSession interface {
	Principals() []string
	Logout() error
}

// AttributeSession is a LoginSession that also reports identity attributes
// read by the module, such as directory entry attributes.
type AttributeSession interface {
	LoginSession
	Attributes() map[string][]string
}

// StaticSession is a LoginSession that holds nothing but names.
type StaticSession []string

func (s StaticSession) Principals() []string { return s }

func (StaticSession) Logout() error { return nil }

// Table is the interface implemented by module that implementation string-to-string
// translation.
//
// Modules implementing this interface should be registered with prefix
// "table." in name.
type Table interface {
	Lookup(ctx context.Context, key string) (string, bool, error)
}

// MutableTable is a Table that can be modified with the command line
// utility.
type MutableTable interface {
	Table
	Keys() ([]string, error)
	SetKey(key, value string) error
	RemoveKey(key string) error
}

// PolicyStrategy is a password policy strategy module, registered with the
// "policy." prefix.
type PolicyStrategy interface {
	Module
	authn.PasswordPolicyHandlingStrategy
}

// Verifier is a module usable as the backend of a handler.
type Verifier interface {
	Module
	authn.Verifier
}

// Handler is a configured authentication handler, registered with the
// "handler." prefix.
type Handler interface {
	Module
	authn.Handler
}
