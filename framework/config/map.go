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

package config

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"
)

type matcher struct {
	name          string
	required      bool
	inheritGlobal bool
	defaultVal    func() (interface{}, error)
	mapper        func(*Map, Node) (interface{}, error)
	store         *reflect.Value

	customCallback func(*Map, Node) error
}

func (m *matcher) assign(val interface{}) {
	if m.store == nil {
		return
	}
	valRefl := reflect.ValueOf(val)
	// Convert untyped nil into typed nil. Otherwise it will panic.
	if !valRefl.IsValid() {
		valRefl = reflect.Zero(m.store.Type())
	}
	m.store.Set(valRefl)
}

// Map structure implements reflection-based conversion between configuration
// directives and Go variables.
//
// Modules declare the directives they understand in their Init method and
// then call Process once:
//
//	cfg.String("realm", false, false, "CAS", &h.realm)
//	cfg.Duration("timeout", false, false, 30*time.Second, &h.timeout)
//	if _, err := cfg.Process(); err != nil {
//		return err
//	}
type Map struct {
	allowUnknown bool

	// All values saved by Map during processing.
	Values map[string]interface{}

	entries map[string]matcher

	// Values used by Process as default values if inheritGlobal is true.
	Globals map[string]interface{}
	// Config block used by Process.
	Block Node
}

func NewMap(globals map[string]interface{}, block Node) *Map {
	return &Map{Globals: globals, Block: block}
}

// AllowUnknown makes config.Map skip unknown configuration directives instead
// of failing. They are returned from Process instead.
func (m *Map) AllowUnknown() {
	m.allowUnknown = true
}

func (m *Map) add(entry matcher) {
	if m.entries == nil {
		m.entries = make(map[string]matcher)
	}
	if _, ok := m.entries[entry.name]; ok {
		panic("config.Map: duplicate matcher for " + entry.name)
	}
	m.entries[entry.name] = entry
}

func singleArg(node Node) (string, error) {
	if len(node.Children) != 0 {
		return "", NodeErr(node, "can't declare a block here")
	}
	if len(node.Args) != 1 {
		return "", NodeErr(node, "expected 1 argument")
	}
	return node.Args[0], nil
}

// Enum maps a configuration directive to a string variable.
//
// Directive must be in form 'name string' where string should be from
// allowed slice.
func (m *Map) Enum(name string, inheritGlobal, required bool, allowed []string, defaultVal string, store *string) {
	m.Custom(name, inheritGlobal, required, func() (interface{}, error) {
		return defaultVal, nil
	}, func(_ *Map, node Node) (interface{}, error) {
		arg, err := singleArg(node)
		if err != nil {
			return nil, err
		}
		for _, str := range allowed {
			if str == arg {
				return arg, nil
			}
		}
		return nil, NodeErr(node, "invalid argument, valid values are: %v", allowed)
	}, store)
}

// EnumMapped is similar to Map.Enum but maps a string to a custom type.
func EnumMapped[V any](m *Map, name string, inheritGlobal, required bool, mapped map[string]V, defaultVal V, store *V) {
	m.Custom(name, inheritGlobal, required, func() (interface{}, error) {
		return defaultVal, nil
	}, func(_ *Map, node Node) (interface{}, error) {
		arg, err := singleArg(node)
		if err != nil {
			return nil, err
		}
		val, ok := mapped[arg]
		if !ok {
			valid := make([]string, 0, len(mapped))
			for k := range mapped {
				valid = append(valid, k)
			}
			return nil, NodeErr(node, "invalid argument, valid values are: %v", valid)
		}
		return val, nil
	}, store)
}

// Duration maps configuration directive to a time.Duration variable.
//
// Directive must be in form 'name duration' where duration is any string
// accepted by time.ParseDuration. Multiple arguments are joined without
// separators, so 'name 1m 30s' is the same as 'name 1m30s'. Negative values
// are rejected.
func (m *Map) Duration(name string, inheritGlobal, required bool, defaultVal time.Duration, store *time.Duration) {
	m.Custom(name, inheritGlobal, required, func() (interface{}, error) {
		return defaultVal, nil
	}, func(_ *Map, node Node) (interface{}, error) {
		if len(node.Children) != 0 {
			return nil, NodeErr(node, "can't declare a block here")
		}
		if len(node.Args) == 0 {
			return nil, NodeErr(node, "at least one argument is required")
		}

		dur, err := time.ParseDuration(strings.Join(node.Args, ""))
		if err != nil {
			return nil, NodeErr(node, "%v", err)
		}
		if dur < 0 {
			return nil, NodeErr(node, "duration must not be negative")
		}
		return dur, nil
	}, store)
}

func ParseBool(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "1", "true", "on", "yes":
		return true, nil
	case "0", "false", "off", "no":
		return false, nil
	}
	return false, fmt.Errorf("bool argument should be 'yes' or 'no'")
}

// Bool maps presence of some configuration directive to a boolean variable.
// Additionally, 'name yes' and 'name no' are mapped to true and false
// correspondingly.
func (m *Map) Bool(name string, inheritGlobal, defaultVal bool, store *bool) {
	m.Custom(name, inheritGlobal, false, func() (interface{}, error) {
		return defaultVal, nil
	}, func(_ *Map, node Node) (interface{}, error) {
		if len(node.Children) != 0 {
			return nil, NodeErr(node, "can't declare block here")
		}
		switch len(node.Args) {
		case 0:
			return true, nil
		case 1:
			b, err := ParseBool(node.Args[0])
			if err != nil {
				return nil, NodeErr(node, "%v", err)
			}
			return b, nil
		}
		return nil, NodeErr(node, "expected exactly 1 argument")
	}, store)
}

// StringList maps configuration directive with the specified name to variable
// referenced by 'store' pointer.
//
// Configuration directive must be in form 'name arbitrary_string arbitrary_string ...'
// Where at least one argument must be present.
func (m *Map) StringList(name string, inheritGlobal, required bool, defaultVal []string, store *[]string) {
	m.Custom(name, inheritGlobal, required, func() (interface{}, error) {
		return defaultVal, nil
	}, func(_ *Map, node Node) (interface{}, error) {
		if len(node.Children) != 0 {
			return nil, NodeErr(node, "can't declare a block here")
		}
		if len(node.Args) == 0 {
			return nil, NodeErr(node, "expected at least one argument")
		}
		return append([]string(nil), node.Args...), nil
	}, store)
}

// String maps configuration directive with the specified name to variable
// referenced by 'store' pointer.
//
// Configuration directive must be in form 'name arbitrary_string'.
func (m *Map) String(name string, inheritGlobal, required bool, defaultVal string, store *string) {
	m.Custom(name, inheritGlobal, required, func() (interface{}, error) {
		return defaultVal, nil
	}, func(_ *Map, node Node) (interface{}, error) {
		arg, err := singleArg(node)
		if err != nil {
			return nil, err
		}
		return arg, nil
	}, store)
}

// Int maps configuration directive with the specified name to variable
// referenced by 'store' pointer.
//
// Configuration directive must be in form 'name 123'.
func (m *Map) Int(name string, inheritGlobal, required bool, defaultVal int, store *int) {
	m.Custom(name, inheritGlobal, required, func() (interface{}, error) {
		return defaultVal, nil
	}, func(_ *Map, node Node) (interface{}, error) {
		arg, err := singleArg(node)
		if err != nil {
			return nil, err
		}
		i, err := strconv.Atoi(arg)
		if err != nil {
			return nil, NodeErr(node, "invalid integer: %s", arg)
		}
		return i, nil
	}, store)
}

// Custom maps configuration directive with the specified name to variable
// referenced by 'store' pointer.
//
// If inheritGlobal is true - Map will try to use a value from globalCfg if
// none is set in a processed configuration block.
//
// If required is true - Map will fail if no value is set in the configuration,
// both global (if inheritGlobal is true) and in the processed block.
//
// defaultVal is a factory function that should return the default value for
// the variable. It will be used if no value is set in the config. It can be
// nil if required is true.
//
// mapper is a function that should convert configuration directive arguments
// into variable value. Both functions may fail with errors, configuration
// processing will stop immediately then.
//
// store is where the value returned by mapper should be stored. Can be nil
// (value will be saved only in Map.Values).
func (m *Map) Custom(name string, inheritGlobal, required bool, defaultVal func() (interface{}, error), mapper func(*Map, Node) (interface{}, error), store interface{}) {
	var target *reflect.Value
	ptr := reflect.ValueOf(store)
	if ptr.IsValid() && !ptr.IsNil() {
		val := ptr.Elem()
		if !val.CanSet() {
			panic("config.Map: store argument must be settable (a pointer)")
		}
		target = &val
	}

	m.add(matcher{
		name:          name,
		inheritGlobal: inheritGlobal,
		required:      required,
		defaultVal:    defaultVal,
		mapper:        mapper,
		store:         target,
	})
}

// Callback creates mapping that will call mapper() function for each
// directive with the specified name. No further processing is done.
//
// It is intended to permit multiple independent values of directive with
// implementation-defined handling, such as entries of a login chain.
func (m *Map) Callback(name string, mapper func(*Map, Node) error) {
	m.add(matcher{
		name:           name,
		customCallback: mapper,
	})
}

// Process maps variables from global configuration and block passed in NewMap.
func (m *Map) Process() (unknown []Node, err error) {
	return m.ProcessWith(m.Globals, m.Block)
}

// ProcessWith maps variables from global configuration and block passed in
// arguments.
func (m *Map) ProcessWith(globalCfg map[string]interface{}, block Node) (unknown []Node, err error) {
	m.Values = make(map[string]interface{})

	matched, unknown, err := m.processBlock(block)
	if err != nil {
		return nil, err
	}
	if err := m.applyDefaults(globalCfg, block, matched); err != nil {
		return nil, err
	}
	return unknown, nil
}

func (m *Map) processBlock(block Node) (map[string]bool, []Node, error) {
	matched := make(map[string]bool)
	unknown := make([]Node, 0, len(block.Children))

	for _, subnode := range block.Children {
		entry, ok := m.entries[subnode.Name]
		if !ok {
			if !m.allowUnknown {
				return nil, nil, NodeErr(subnode, "unexpected directive: %s", subnode.Name)
			}
			unknown = append(unknown, subnode)
			continue
		}

		if entry.customCallback != nil {
			if err := entry.customCallback(m, subnode); err != nil {
				return nil, nil, err
			}
			matched[subnode.Name] = true
			continue
		}

		if matched[subnode.Name] {
			return nil, nil, NodeErr(subnode, "duplicate directive: %s", subnode.Name)
		}
		matched[subnode.Name] = true

		val, err := entry.mapper(m, subnode)
		if err != nil {
			return nil, nil, err
		}
		m.Values[entry.name] = val
		entry.assign(val)
	}

	return matched, unknown, nil
}

func (m *Map) applyDefaults(globalCfg map[string]interface{}, block Node, matched map[string]bool) error {
	for _, entry := range m.entries {
		if matched[entry.name] || entry.mapper == nil {
			continue
		}

		var val interface{}
		if globalVal, ok := globalCfg[entry.name]; entry.inheritGlobal && ok {
			val = globalVal
		} else if entry.required {
			return NodeErr(block, "missing required directive: %s", entry.name)
		} else if entry.defaultVal == nil {
			continue
		} else {
			var err error
			val, err = entry.defaultVal()
			if err != nil {
				return err
			}
		}

		// Zero values are not recorded so that a required directive is not
		// satisfied by an inherited zero value.
		if valT := reflect.TypeOf(val); valT != nil && !reflect.DeepEqual(val, reflect.Zero(valT).Interface()) {
			m.Values[entry.name] = val
		}
		entry.assign(val)
	}
	return nil
}
