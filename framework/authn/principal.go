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

import (
	"errors"
	"sort"

	"golang.org/x/text/secure/precis"
)

// Principal is a verified identity.
//
// Principals are created only by a PrincipalFactory and are immutable, the
// attribute accessors return copies.
type Principal struct {
	id         string
	attributes map[string][]string
}

func (p Principal) ID() string {
	return p.id
}

func (p Principal) IsZero() bool {
	return p.id == ""
}

// Attribute returns a copy of the values of the named attribute.
func (p Principal) Attribute(name string) []string {
	vals, ok := p.attributes[name]
	if !ok {
		return nil
	}
	return append([]string(nil), vals...)
}

// AttributeNames returns the attribute names in sorted order.
func (p Principal) AttributeNames() []string {
	names := make([]string, 0, len(p.attributes))
	for k := range p.attributes {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

func (p Principal) Attributes() map[string][]string {
	return copyAttrs(p.attributes)
}

func (p Principal) String() string {
	return p.id
}

func copyAttrs(attrs map[string][]string) map[string][]string {
	res := make(map[string][]string, len(attrs))
	for k, v := range attrs {
		res[k] = append([]string(nil), v...)
	}
	return res
}

var ErrEmptyPrincipalName = errors.New("authn: empty principal name")

// PrincipalFactory builds a Principal from a verified external identity name.
//
// Implementations must be pure: the same input always yields an equal
// Principal.
type PrincipalFactory interface {
	Create(name string, attributes map[string][]string) (Principal, error)
}

// DefaultPrincipalFactory uses the name as is.
type DefaultPrincipalFactory struct{}

func (DefaultPrincipalFactory) Create(name string, attributes map[string][]string) (Principal, error) {
	if name == "" {
		return Principal{}, ErrEmptyPrincipalName
	}
	return Principal{id: name, attributes: copyAttrs(attributes)}, nil
}

// NormalizingPrincipalFactory passes the name through a PRECIS profile
// before building the Principal. If Profile is nil,
// precis.UsernameCaseMapped is used.
type NormalizingPrincipalFactory struct {
	Profile *precis.Profile
}

func (f NormalizingPrincipalFactory) Create(name string, attributes map[string][]string) (Principal, error) {
	profile := f.Profile
	if profile == nil {
		profile = precis.UsernameCaseMapped
	}
	norm, err := profile.CompareKey(name)
	if err != nil {
		return Principal{}, err
	}
	return DefaultPrincipalFactory{}.Create(norm, attributes)
}
