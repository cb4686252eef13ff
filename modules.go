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

package credgate

import (
	// Import packages for side-effect of module registration.
	_ "github.com/credgate/credgate/internal/chain"
	_ "github.com/credgate/credgate/internal/handler"
	_ "github.com/credgate/credgate/internal/login/dovecot_sasl"
	_ "github.com/credgate/credgate/internal/login/external"
	_ "github.com/credgate/credgate/internal/login/krb5"
	_ "github.com/credgate/credgate/internal/login/ldap"
	_ "github.com/credgate/credgate/internal/login/netauth"
	_ "github.com/credgate/credgate/internal/login/pam"
	_ "github.com/credgate/credgate/internal/login/pass_table"
	_ "github.com/credgate/credgate/internal/login/shadow"
	_ "github.com/credgate/credgate/internal/policy"
	_ "github.com/credgate/credgate/internal/policy/ldap"
	_ "github.com/credgate/credgate/internal/policy/shadow"
	_ "github.com/credgate/credgate/internal/table"
)
