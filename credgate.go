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

// Package credgate ties the module registry and the configuration file
// together: it reads global directives, creates module instances from
// top-level blocks and gives access to the configured handlers.
package credgate

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	parser "github.com/credgate/credgate/framework/cfgparser"
	"github.com/credgate/credgate/framework/config"
	tls2 "github.com/credgate/credgate/framework/config/tls"
	"github.com/credgate/credgate/framework/hooks"
	"github.com/credgate/credgate/framework/log"
	"github.com/credgate/credgate/framework/module"
)

// ModInfo is a top-level module instance together with its configuration
// block.
type ModInfo struct {
	Instance module.Module
	Cfg      config.Node
}

// Instance is a loaded configuration.
type Instance struct {
	Globals map[string]interface{}
	Modules []ModInfo
}

// ReadGlobals processes the global directives and returns the remaining
// nodes, which are module blocks.
func ReadGlobals(cfg []config.Node) (map[string]interface{}, []config.Node, error) {
	globals := config.NewMap(nil, config.Node{Children: cfg})
	globals.String("state_dir", false, false, DefaultStateDirectory, &config.StateDirectory)
	globals.String("runtime_dir", false, false, DefaultRuntimeDirectory, &config.RuntimeDirectory)
	globals.String("libexec_dir", false, false, DefaultLibexecDirectory, &config.LibexecDirectory)
	globals.Custom("tls_client", false, false, nil, tls2.TLSClientBlock, nil)
	globals.Custom("log", false, false, defaultLogOutput, logOutput, &log.DefaultLogger.Out)
	globals.Bool("debug", false, log.DefaultLogger.Debug, &log.DefaultLogger.Debug)
	globals.AllowUnknown()
	unknown, err := globals.Process()
	return globals.Values, unknown, err
}

// InitDirs makes sure the directories set by ReadGlobals are usable.
func InitDirs() error {
	if config.ConfigDirectory == "" {
		config.ConfigDirectory = DefaultConfigDirectory
	}
	if config.StateDirectory == "" {
		config.StateDirectory = DefaultStateDirectory
	}
	if config.RuntimeDirectory == "" {
		config.RuntimeDirectory = DefaultRuntimeDirectory
	}
	if config.LibexecDirectory == "" {
		config.LibexecDirectory = DefaultLibexecDirectory
	}

	for name, dir := range map[string]string{
		"state_dir":   config.StateDirectory,
		"runtime_dir": config.RuntimeDirectory,
		"libexec_dir": config.LibexecDirectory,
	} {
		if !filepath.IsAbs(dir) {
			return fmt.Errorf("%s should be absolute", name)
		}
	}
	return ensureDirectoryWritable(config.StateDirectory)
}

func ensureDirectoryWritable(path string) error {
	if err := os.MkdirAll(path, 0o700); err != nil {
		return err
	}

	testFile, err := os.Create(filepath.Join(path, "writeable-test"))
	if err != nil {
		return err
	}
	testFile.Close()
	return os.Remove(testFile.Name())
}

// RegisterModules creates module instances for all top-level blocks.
// Instances are not initialized.
func RegisterModules(globals map[string]interface{}, nodes []config.Node) ([]ModInfo, error) {
	mods := make([]ModInfo, 0, len(nodes))

	for _, block := range nodes {
		var instName string
		var modAliases []string
		if len(block.Args) == 0 {
			instName = block.Name
		} else {
			instName = block.Args[0]
			modAliases = block.Args[1:]
		}

		modName := block.Name

		factory := module.Get(modName)
		if factory == nil {
			return nil, config.NodeErr(block, "unknown module or global directive: %s", modName)
		}

		if module.HasInstance(instName) {
			return nil, config.NodeErr(block, "config block named %s already exists", instName)
		}

		inst, err := factory(modName, instName, modAliases, nil)
		if err != nil {
			return nil, config.NodeErr(block, "%v", err)
		}

		module.RegisterInstance(inst, config.NewMap(globals, block))
		for _, alias := range modAliases {
			if module.HasInstance(alias) {
				return nil, config.NodeErr(block, "config block named %s already exists", alias)
			}
			module.RegisterAlias(alias, instName)
		}

		log.Debugf("%v:%v: register config block %v %v", block.File, block.Line, instName, modAliases)
		mods = append(mods, ModInfo{Instance: inst, Cfg: block})
	}

	if len(mods) == 0 {
		return nil, errors.New("there is nothing to do, define some handlers")
	}
	return mods, nil
}

// initModules initializes all registered instances. Referenced instances
// are initialized lazily by the modules using them, the rest are
// initialized here so that configuration errors in them are still
// reported.
func initModules(mods []ModInfo) error {
	for _, m := range mods {
		if _, err := module.GetInstance(m.Instance.InstanceName()); err != nil {
			return err
		}
	}
	for _, name := range module.NotInitialized() {
		log.Printf("%s is not used anywhere", name)
		if _, err := module.GetInstance(name); err != nil {
			return err
		}
	}
	return nil
}

// Load reads the configuration from r and initializes all modules defined
// in it. path is used in error messages and to resolve imports.
func Load(r io.Reader, path string) (*Instance, error) {
	nodes, err := parser.Read(r, path)
	if err != nil {
		return nil, err
	}
	return LoadNodes(nodes)
}

// LoadNodes is Load for an already parsed configuration.
func LoadNodes(nodes []config.Node) (*Instance, error) {
	globals, modBlocks, err := ReadGlobals(nodes)
	if err != nil {
		return nil, err
	}
	if err := InitDirs(); err != nil {
		return nil, err
	}

	mods, err := RegisterModules(globals, modBlocks)
	if err != nil {
		return nil, err
	}
	if err := initModules(mods); err != nil {
		hooks.RunHooks(hooks.EventShutdown)
		return nil, err
	}

	return &Instance{Globals: globals, Modules: mods}, nil
}

// LoadFile is Load for a file on disk.
func LoadFile(path string) (*Instance, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	if config.ConfigDirectory == "" {
		config.ConfigDirectory = filepath.Dir(path)
	}
	return Load(f, path)
}

// Module returns the top-level module instance with the given name.
func (inst *Instance) Module(name string) (module.Module, error) {
	for _, m := range inst.Modules {
		if m.Instance.InstanceName() == name {
			return m.Instance, nil
		}
	}
	return nil, fmt.Errorf("unknown configuration block: %s", name)
}

// Handler returns the configured handler with the given name.
func (inst *Instance) Handler(name string) (module.Handler, error) {
	mod, err := inst.Module(name)
	if err != nil {
		return nil, err
	}
	h, ok := mod.(module.Handler)
	if !ok {
		return nil, fmt.Errorf("configuration block %s (%s) is not a handler", name, mod.Name())
	}
	return h, nil
}

// Handlers lists the names of configured handlers in configuration order.
func (inst *Instance) Handlers() []string {
	var names []string
	for _, m := range inst.Modules {
		if _, ok := m.Instance.(module.Handler); ok {
			names = append(names, m.Instance.InstanceName())
		}
	}
	return names
}

// Close runs the shutdown hooks, closing modules that hold resources.
func (inst *Instance) Close() {
	hooks.RunHooks(hooks.EventShutdown)
}
