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

	"github.com/credgate/credgate/framework/authn"
	"github.com/credgate/credgate/framework/config"
)

// Dummy is a struct that implements LoginModule, PolicyStrategy and Table
// interfaces but does nothing. Useful for testing.
//
// As a login module it accepts any credential and resolves the identifier
// as is. It is always registered under the 'dummy' name.
type Dummy struct{ instName string }

func (d *Dummy) Login(ctx context.Context, cb authn.CallbackHandler) (LoginSession, error) {
	id, secret, err := authn.RequestCredentials(ctx, cb)
	if err != nil {
		return nil, err
	}
	for i := range secret {
		secret[i] = 0
	}
	return StaticSession{id}, nil
}

func (d *Dummy) Handle(context.Context, authn.Principal, authn.PolicyConfig) ([]authn.MessageDescriptor, error) {
	return nil, nil
}

func (d *Dummy) Lookup(_ context.Context, _ string) (string, bool, error) {
	return "", false, nil
}

func (d *Dummy) Name() string {
	return "dummy"
}

func (d *Dummy) InstanceName() string {
	return d.instName
}

func (d *Dummy) Init(_ *config.Map) error {
	return nil
}

func init() {
	Register("dummy", func(_, instName string, _, _ []string) (Module, error) {
		return &Dummy{instName: instName}, nil
	})
}
