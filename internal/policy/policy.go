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

// Package policy contains the password policy strategies shared logic and
// the policy.none strategy. Expiration-based strategies live in
// subpackages.
package policy

import (
	"strings"
	"time"

	"github.com/credgate/credgate/framework/authn"
)

// Attributes of authn.PolicyConfig understood by the strategies.
const (
	// AttrStripRealm removes the @REALM part of the principal name before
	// the account lookup when set to "true".
	AttrStripRealm = "strip_realm"
	// AttrNameAttribute names a principal attribute to use as the account
	// name instead of the principal ID.
	AttrNameAttribute = "name_attribute"
)

const day = 24 * time.Hour

// AccountName returns the name a strategy should look the principal up by.
func AccountName(p authn.Principal, cfg authn.PolicyConfig) string {
	name := p.ID()
	if attr := cfg.Attributes[AttrNameAttribute]; attr != "" {
		if vals := p.Attribute(attr); len(vals) != 0 && vals[0] != "" {
			name = vals[0]
		}
	}
	if cfg.Attributes[AttrStripRealm] == "true" {
		if i := strings.LastIndexByte(name, '@'); i > 0 {
			name = name[:i]
		}
	}
	return name
}

// Expiration describes when an account and its password stop being
// accepted. Zero values mean never.
type Expiration struct {
	Account  time.Time
	Password time.Time

	// DefaultWarningDays is used when the handler does not set the warning
	// window itself.
	DefaultWarningDays int
}

// DaysLeft is the number of full days between now and t.
func DaysLeft(now, t time.Time) int {
	return int(t.Sub(now) / day)
}

// Evaluate vetoes expired accounts and passwords and produces expiration
// warnings for the ones that expire within the warning window.
func Evaluate(now time.Time, exp Expiration, cfg authn.PolicyConfig) ([]authn.MessageDescriptor, error) {
	if !exp.Account.IsZero() && !now.Before(exp.Account) {
		return nil, &authn.PolicyRejectionError{
			Code:    authn.CodeAccountExpired,
			Message: "account has expired",
		}
	}
	if !exp.Password.IsZero() && !now.Before(exp.Password) {
		return nil, &authn.PolicyRejectionError{
			Code:    authn.CodePasswordExpired,
			Message: "password has expired and must be changed",
		}
	}

	window := cfg.WarningDays
	if window <= 0 {
		window = exp.DefaultWarningDays
	}

	var msgs []authn.MessageDescriptor
	if !exp.Password.IsZero() {
		if left := DaysLeft(now, exp.Password); cfg.AlwaysWarn || left < window {
			msgs = append(msgs, authn.PasswordExpiringMessage(left))
		}
	}
	if !exp.Account.IsZero() {
		if left := DaysLeft(now, exp.Account); cfg.AlwaysWarn || left < window {
			msgs = append(msgs, authn.AccountExpiringMessage(left))
		}
	}
	return msgs, nil
}
