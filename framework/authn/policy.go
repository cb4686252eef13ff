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
	"context"
)

// PolicyConfig is the external configuration passed to policy strategies.
type PolicyConfig struct {
	// WarningDays is the window before expiration during which warnings are
	// attached to the result.
	WarningDays int
	// AlwaysWarn attaches expiration info even outside of the window.
	AlwaysWarn bool
	// Attributes are strategy-specific settings.
	Attributes map[string]string
}

// PasswordPolicyHandlingStrategy is evaluated after a successful
// verification. It either returns advisory messages or vetoes the attempt
// with *PolicyRejectionError.
type PasswordPolicyHandlingStrategy interface {
	Handle(ctx context.Context, principal Principal, cfg PolicyConfig) ([]MessageDescriptor, error)
}

type PolicyStrategyFunc func(ctx context.Context, principal Principal, cfg PolicyConfig) ([]MessageDescriptor, error)

func (f PolicyStrategyFunc) Handle(ctx context.Context, principal Principal, cfg PolicyConfig) ([]MessageDescriptor, error) {
	return f(ctx, principal, cfg)
}
