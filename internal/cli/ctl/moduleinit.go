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

package ctl

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/credgate/credgate"
	parser "github.com/credgate/credgate/framework/cfgparser"
	"github.com/credgate/credgate/framework/config"
	"github.com/credgate/credgate/framework/hooks"
	"github.com/credgate/credgate/framework/module"
	"github.com/credgate/credgate/internal/login/pass_table"
	"github.com/urfave/cli/v2"
)

// getCfgBlockModule initializes only the configuration block named by
// --cfg-block and the blocks it references. The caller should run the
// shutdown hooks once done with it.
func getCfgBlockModule(ctx *cli.Context) (module.Module, error) {
	cfgPath := ctx.Path("config")
	if cfgPath == "" {
		return nil, cli.Exit("Error: config is required", 2)
	}
	cfgFile, err := os.Open(cfgPath)
	if err != nil {
		return nil, cli.Exit(fmt.Sprintf("Error: failed to open config: %v", err), 2)
	}
	defer cfgFile.Close()
	if config.ConfigDirectory == "" {
		config.ConfigDirectory = filepath.Dir(cfgPath)
	}
	cfgNodes, err := parser.Read(cfgFile, cfgFile.Name())
	if err != nil {
		return nil, cli.Exit(fmt.Sprintf("Error: failed to parse config: %v", err), 2)
	}

	globals, cfgNodes, err := credgate.ReadGlobals(cfgNodes)
	if err != nil {
		return nil, err
	}

	if err := credgate.InitDirs(); err != nil {
		return nil, err
	}

	if _, err := credgate.RegisterModules(globals, cfgNodes); err != nil {
		return nil, err
	}

	cfgBlock := ctx.String("cfg-block")
	if cfgBlock == "" {
		return nil, cli.Exit("Error: cfg-block is required", 2)
	}
	if !module.HasInstance(cfgBlock) {
		return nil, cli.Exit(fmt.Sprintf("Error: unknown configuration block: %s", cfgBlock), 2)
	}

	mod, err := module.GetInstance(cfgBlock)
	if err != nil {
		hooks.RunHooks(hooks.EventShutdown)
		return nil, fmt.Errorf("Error: module initialization failed: %w", err)
	}
	return mod, nil
}

func openUserDB(ctx *cli.Context) (*pass_table.Auth, error) {
	mod, err := getCfgBlockModule(ctx)
	if err != nil {
		return nil, err
	}

	userDB, ok := mod.(*pass_table.Auth)
	if !ok {
		hooks.RunHooks(hooks.EventShutdown)
		return nil, cli.Exit(fmt.Sprintf("Error: configuration block %s is not a login.pass_table", ctx.String("cfg-block")), 2)
	}
	return userDB, nil
}

func closeModules() {
	hooks.RunHooks(hooks.EventShutdown)
}
