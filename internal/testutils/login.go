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

package testutils

import (
	"context"
	"sync"

	"github.com/credgate/credgate/framework/authn"
	"github.com/credgate/credgate/framework/config"
	"github.com/credgate/credgate/framework/module"
)

// LoginModule is a scripted module.LoginModule.
type LoginModule struct {
	InstName string
	// Names are the principals of a successful login. By default the
	// identifier is used.
	Names []string
	Err   error
	// Fields is the batch Login requests. Defaults to identifier + secret.
	Fields []authn.FieldKind
	// Attributes are reported by the session of a successful login.
	Attributes map[string][]string
	// EnvDependent is returned by DependsOnEnvironment.
	EnvDependent bool

	mu      sync.Mutex
	logins  int
	logouts int
}

func (m *LoginModule) Login(ctx context.Context, cb authn.CallbackHandler) (module.LoginSession, error) {
	m.mu.Lock()
	m.logins++
	m.mu.Unlock()

	kinds := m.Fields
	if kinds == nil {
		kinds = []authn.FieldKind{authn.FieldIdentifier, authn.FieldSecret}
	}
	reqs := make([]*authn.FieldRequest, 0, len(kinds))
	for _, k := range kinds {
		reqs = append(reqs, authn.NewFieldRequest(k, ""))
	}
	if err := cb.Handle(ctx, reqs); err != nil {
		return nil, err
	}
	if m.Err != nil {
		return nil, m.Err
	}

	names := m.Names
	if names == nil {
		for _, req := range reqs {
			if req.Kind == authn.FieldIdentifier {
				id, _ := req.Payload.(string)
				names = []string{id}
			}
		}
	}
	return &loginSession{m: m, names: names, attrs: m.Attributes}, nil
}

// Counts reports the number of Login and session Logout calls.
func (m *LoginModule) Counts() (logins, logouts int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.logins, m.logouts
}

func (m *LoginModule) DependsOnEnvironment() bool {
	return m.EnvDependent
}

func (m *LoginModule) Name() string {
	return "login.test"
}

func (m *LoginModule) InstanceName() string {
	return m.InstName
}

func (m *LoginModule) Init(*config.Map) error {
	return nil
}

type loginSession struct {
	m     *LoginModule
	names []string
	attrs map[string][]string
}

func (s *loginSession) Principals() []string { return s.names }

func (s *loginSession) Attributes() map[string][]string { return s.attrs }

func (s *loginSession) Logout() error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	s.m.logouts++
	return nil
}
