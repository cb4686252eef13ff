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
	"fmt"
	"sort"
)

// Table is a read-only module.Table backed by a map. Err is returned from
// every lookup.
type Table struct {
	M   map[string]string
	Err error
}

func (m Table) Lookup(_ context.Context, a string) (string, bool, error) {
	b, ok := m.M[a]
	return b, ok, m.Err
}

// MutableTable is a module.MutableTable backed by a map.
type MutableTable struct {
	M map[string]string
}

func (m *MutableTable) Lookup(_ context.Context, key string) (string, bool, error) {
	v, ok := m.M[key]
	return v, ok, nil
}

func (m *MutableTable) Keys() ([]string, error) {
	keys := make([]string, 0, len(m.M))
	for k := range m.M {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

func (m *MutableTable) SetKey(key, value string) error {
	if m.M == nil {
		m.M = make(map[string]string)
	}
	m.M[key] = value
	return nil
}

func (m *MutableTable) RemoveKey(key string) error {
	if _, ok := m.M[key]; !ok {
		return fmt.Errorf("no such key: %s", key)
	}
	delete(m.M, key)
	return nil
}
