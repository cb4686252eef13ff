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

// Verifier is a backend that checks credentials against some external
// mechanism.
//
// NewContext is called once per attempt and must return a fresh context, a
// VerificationContext is never shared between attempts.
type Verifier interface {
	NewContext(cb CallbackHandler) (VerificationContext, error)
}

// VerificationContext is the per-attempt state of a Verifier.
//
// Login requests credential fields through the CallbackHandler passed to
// NewContext. Principals reports the identity names resolved by a
// successful Login in backend-defined order. Logout releases whatever Login
// acquired and is called exactly once per context, whatever the outcome of
// Login was.
type VerificationContext interface {
	Login(ctx context.Context) error
	Principals() []string
	Logout() error
}

// EnvironmentDependent is implemented by verifiers that read process-wide
// settings (see Environment). Attempts of such verifiers hold the
// Environment lock even when the handler has no overrides of its own, so
// they never observe overrides of a concurrent attempt.
type EnvironmentDependent interface {
	DependsOnEnvironment() bool
}

// DependsOnEnvironment reports whether v declares itself environment
// dependent.
func DependsOnEnvironment(v interface{}) bool {
	dep, ok := v.(EnvironmentDependent)
	return ok && dep.DependsOnEnvironment()
}

// AttributeSource is implemented by verification contexts that resolve
// identity attributes in addition to names. Attributes is called only after
// a successful Login and before Logout.
type AttributeSource interface {
	Attributes() map[string][]string
}

// Outcome is the aggregate result of one verification attempt.
type Outcome struct {
	Name       string
	Attributes map[string][]string
	Reason     error
}

func (o Outcome) Resolved() bool {
	return o.Reason == nil && o.Name != ""
}

// OutcomeOf builds the Outcome of a Login call. When the backend reports
// several names, the first one is used.
func OutcomeOf(loginErr error, names []string) Outcome {
	if loginErr != nil {
		return Outcome{Reason: loginErr}
	}
	for _, name := range names {
		if name != "" {
			return Outcome{Name: name}
		}
	}
	return Outcome{Reason: ErrNoIdentity}
}
