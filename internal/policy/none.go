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

package policy

import (
	"context"
	"fmt"

	"github.com/credgate/credgate/framework/authn"
	"github.com/credgate/credgate/framework/config"
	"github.com/credgate/credgate/framework/module"
)

// None is the policy.none strategy: every principal passes without
// messages.
type None struct {
	instName string
}

func NewNone(_, instName string, _, inlineArgs []string) (module.Module, error) {
	if len(inlineArgs) != 0 {
		return nil, fmt.Errorf("policy.none: inline arguments are not used")
	}
	return &None{instName: instName}, nil
}

func (n *None) Init(cfg *config.Map) error {
	_, err := cfg.Process()
	return err
}

func (n *None) Name() string {
	return "policy.none"
}

func (n *None) InstanceName() string {
	return n.instName
}

func (n *None) Handle(context.Context, authn.Principal, authn.PolicyConfig) ([]authn.MessageDescriptor, error) {
	return []authn.MessageDescriptor{}, nil
}

func init() {
	var _ module.PolicyStrategy = &None{}
	module.Register("policy.none", NewNone)
}
