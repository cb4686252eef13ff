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

package modconfig

import (
	"github.com/credgate/credgate/framework/config"
	"github.com/credgate/credgate/framework/module"
)

// LoginModule creates or references a login module. Bare names are looked
// up in the "login." namespace, so 'ldap' means 'login.ldap'.
func LoginModule(globals map[string]interface{}, args []string, block config.Node) (module.LoginModule, error) {
	var mod module.LoginModule
	if err := ModuleFromNode("login", args, block, globals, &mod); err != nil {
		return nil, err
	}
	return mod, nil
}

// TableDirective is a callback for use in config.Map.Custom.
//
// It creates a table module from the directive with the following
// structure:
//
//	directive_name mod_name [args...] [{
//	  inline_mod_config
//	}]
func TableDirective(m *config.Map, node config.Node) (interface{}, error) {
	var tbl module.Table
	if err := ModuleFromNode("table", node.Args, node, m.Globals, &tbl); err != nil {
		return nil, err
	}
	return tbl, nil
}

// PolicyDirective is like TableDirective, but for policy strategies.
func PolicyDirective(m *config.Map, node config.Node) (interface{}, error) {
	var strategy module.PolicyStrategy
	if err := ModuleFromNode("policy", node.Args, node, m.Globals, &strategy); err != nil {
		return nil, err
	}
	return strategy, nil
}

// VerifierDirective is like TableDirective, but for handler backends.
func VerifierDirective(m *config.Map, node config.Node) (interface{}, error) {
	var v module.Verifier
	if err := ModuleFromNode("", node.Args, node, m.Globals, &v); err != nil {
		return nil, err
	}
	return v, nil
}
