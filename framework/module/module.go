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

// Package module contains modules registry and interfaces implemented
// by modules.
//
// Interfaces are placed here to prevent circular dependencies.
//
// Every configurable piece of credgate is a module: login modules that talk
// to a directory or a KDC, login chains, lookup tables, password policy
// strategies and handlers. Each module gets its own unique name (login.ldap,
// policy.shadow, handler.chain, ...) and each module instance can have its
// own name used to refer to it in configuration as &instance_name.
package module

import (
	"sort"
	"sync"

	"github.com/credgate/credgate/framework/config"
)

// Module is the interface implemented by all credgate module instances.
//
// Additionally, module can implement io.Closer if it needs to perform clean-up
// on shutdown.
type Module interface {
	// Init performs actual initialization of the module.
	//
	// It is not done in FuncNewModule so all module instances are
	// registered at time of initialization, thus initialization does not
	// depend on ordering of configuration blocks and modules can reference
	// each other.
	Init(*config.Map) error

	// Name method reports module name.
	//
	// It is used to reference module in the configuration and in logs.
	Name() string

	// InstanceName method reports unique name of this module instance or empty
	// string if module instance is unnamed.
	InstanceName() string
}

// FuncNewModule creates a module instance.
//
// inlineArgs are the arguments placed after the module name in the
// configuration, e.g. for 'login.ldap corp ldap://ldap.example.org'
// instName is "corp" and inlineArgs is ["ldap://ldap.example.org"].
type FuncNewModule func(modName, instName string, aliases, inlineArgs []string) (Module, error)

var (
	modules     = make(map[string]FuncNewModule)
	modulesLock sync.RWMutex
)

// Register adds module factory function to global registry.
//
// name must be unique. Register will panic if module with specified name
// already exists in registry.
//
// You probably want to call this function from func init() of module package.
func Register(name string, factory FuncNewModule) {
	modulesLock.Lock()
	defer modulesLock.Unlock()

	if _, ok := modules[name]; ok {
		panic("Register: module with specified name is already registered: " + name)
	}

	modules[name] = factory
}

// Get returns module factory from global registry.
//
// Nil is returned if no module with specified name is registered.
func Get(name string) FuncNewModule {
	modulesLock.RLock()
	defer modulesLock.RUnlock()

	return modules[name]
}

// Registered returns the sorted names of all registered modules.
func Registered() []string {
	modulesLock.RLock()
	defer modulesLock.RUnlock()

	names := make([]string, 0, len(modules))
	for name := range modules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
