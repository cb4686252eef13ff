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
	"fmt"
)

type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarn
)

func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "INFO"
	case SeverityWarn:
		return "WARN"
	}
	return fmt.Sprintf("Severity(%d)", int(s))
}

// MessageDescriptor is an advisory message attached to a successful result
// by a policy strategy.
//
// DefaultMessage is a fmt format string, Params are its arguments.
type MessageDescriptor struct {
	Code           string
	Severity       Severity
	DefaultMessage string
	Params         []interface{}
}

// Text renders DefaultMessage with Params.
func (m MessageDescriptor) Text() string {
	if len(m.Params) == 0 {
		return m.DefaultMessage
	}
	return fmt.Sprintf(m.DefaultMessage, m.Params...)
}

func (m MessageDescriptor) String() string {
	return m.Severity.String() + " " + m.Code + ": " + m.Text()
}

const (
	CodePasswordExpiring = "password.expiring"
	CodeAccountExpiring  = "account.expiring"
)

// PasswordExpiringMessage is the warning strategies attach when the password
// expires within the warning window.
func PasswordExpiringMessage(days int) MessageDescriptor {
	return MessageDescriptor{
		Code:           CodePasswordExpiring,
		Severity:       SeverityWarn,
		DefaultMessage: "Password expires in %d day(s), change it soon.",
		Params:         []interface{}{days},
	}
}

func AccountExpiringMessage(days int) MessageDescriptor {
	return MessageDescriptor{
		Code:           CodeAccountExpiring,
		Severity:       SeverityWarn,
		DefaultMessage: "Account expires in %d day(s).",
		Params:         []interface{}{days},
	}
}

// Codes of policy vetoes.
const (
	CodeAccountExpired  = "account.expired"
	CodePasswordExpired = "password.expired"
	CodeAccountLocked   = "account.locked"
)
