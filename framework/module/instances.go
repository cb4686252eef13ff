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
	"fmt"
	"io"
	"sync"

	"github.com/credgate/credgate/framework/config"
	"github.com/credgate/credgate/framework/hooks"
	"github.com/credgate/credgate/framework/log"
)

type instance struct {
	mod         Module
	cfg         *config.Map
	initialized bool
}

var (
	instances     = make(map[string]*instance)
	aliases       = make(map[string]string)
	instancesLock sync.Mutex
)

// RegisterInstance adds module instance to the global registry.
//
// Instance name must be unique. Second RegisterInstance with same instance
// name will replace previous.
func RegisterInstance(inst Module, cfg *config.Map) {
	instancesLock.Lock()
	defer instancesLock.Unlock()
	instances[inst.InstanceName()] = &instance{mod: inst, cfg: cfg}
}

// RegisterAlias creates an association between a certain name and instance name.
//
// After RegisterAlias, module.GetInstance(aliasName) will return the same
// result as module.GetInstance(instName).
func RegisterAlias(aliasName, instName string) {
	instancesLock.Lock()
	defer instancesLock.Unlock()
	aliases[aliasName] = instName
}

func lookupInstance(name string) (*instance, bool) {
	instancesLock.Lock()
	defer instancesLock.Unlock()

	if aliasedName := aliases[name]; aliasedName != "" {
		name = aliasedName
	}
	inst, ok := instances[name]
	return inst, ok
}

func HasInstance(name string) bool {
	_, ok := lookupInstance(name)
	return ok
}

// GetInstance returns module instance from global registry, initializing it if
// necessary.
//
// Error is returned if module initialization fails or module instance does not
// exists.
func GetInstance(name string) (Module, error) {
	inst, ok := lookupInstance(name)
	if !ok {
		return nil, fmt.Errorf("unknown config block: %s", name)
	}

	instancesLock.Lock()
	// Break circular dependencies.
	if inst.initialized {
		instancesLock.Unlock()
		return inst.mod, nil
	}
	inst.initialized = true
	instancesLock.Unlock()

	// Init may reference other instances, the lock is not held here.
	if err := inst.mod.Init(inst.cfg); err != nil {
		return inst.mod, err
	}

	if closer, ok := inst.mod.(io.Closer); ok {
		hooks.AddHook(hooks.EventShutdown, func() {
			log.Debugf("close %s (%s)", inst.mod.Name(), inst.mod.InstanceName())
			if err := closer.Close(); err != nil {
				log.Printf("module %s (%s) close failed: %v", inst.mod.Name(), inst.mod.InstanceName(), err)
			}
		})
	}

	return inst.mod, nil
}

// NotInitialized returns instances that were registered but never
// referenced. Used to initialize unused blocks so configuration errors in
// them are still reported.
func NotInitialized() []string {
	instancesLock.Lock()
	defer instancesLock.Unlock()

	var names []string
	for name, inst := range instances {
		if !inst.initialized {
			names = append(names, name)
		}
	}
	return names
}

// ResetInstances drops all registered instances and aliases. It is meant for
// tests and for reloading the configuration from scratch.
func ResetInstances() {
	instancesLock.Lock()
	defer instancesLock.Unlock()
	instances = make(map[string]*instance)
	aliases = make(map[string]string)
}
