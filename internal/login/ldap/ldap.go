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

// Package ldap implements the login.ldap module that verifies credentials
// by binding to a directory server as the user.
//
//	login.ldap corp_ldap ldap://ldap1.example.org ldaps://ldap2.example.org {
//	    bind plain cn=reader,dc=example,dc=org secret
//	    base_dn ou=people,dc=example,dc=org
//	    filter (&(objectClass=person)(uid={username}))
//	    principal_attr uid
//	    attributes mail memberOf
//	}
//
// A connection is dialed for each attempt and belongs to the login session:
// it is closed when the session is logged out.
package ldap

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/credgate/credgate/framework/authn"
	"github.com/credgate/credgate/framework/config"
	"github.com/credgate/credgate/framework/exterrors"
	"github.com/credgate/credgate/framework/log"
	"github.com/credgate/credgate/framework/module"
	"github.com/go-ldap/ldap/v3"
)

const modName = "login.ldap"

// Characters that change the structure of a DN when substituted into
// dn_template.
const dnSpecial = ",+\"\\<>;=#\x00"

type Auth struct {
	instName string

	conn Connector

	dnTemplate string
	// or
	baseDN         string
	filterTemplate string

	principalAttr string
	attributes    []string

	log log.Logger
}

func New(_, instName string, _, inlineArgs []string) (module.Module, error) {
	return &Auth{
		instName: instName,
		log:      log.Logger{Name: modName},
		conn:     Connector{URLs: inlineArgs},
	}, nil
}

func (a *Auth) Init(cfg *config.Map) error {
	a.conn.Directives(cfg)
	cfg.String("dn_template", false, false, "", &a.dnTemplate)
	cfg.String("base_dn", false, false, "", &a.baseDN)
	cfg.String("filter", false, false, "", &a.filterTemplate)
	cfg.String("principal_attr", false, false, "", &a.principalAttr)
	cfg.StringList("attributes", false, false, nil, &a.attributes)
	if _, err := cfg.Process(); err != nil {
		return err
	}

	a.log.Debug = a.conn.Log.Debug
	a.conn.Log = a.log
	if err := a.conn.Validate(modName); err != nil {
		return err
	}

	if a.dnTemplate == "" {
		if a.baseDN == "" {
			return fmt.Errorf("%s: base_dn not set", modName)
		}
		if a.filterTemplate == "" {
			return fmt.Errorf("%s: filter not set", modName)
		}
		if !strings.Contains(a.filterTemplate, "{username}") {
			return fmt.Errorf("%s: filter does not contain {username}", modName)
		}
	} else {
		if a.baseDN != "" || a.filterTemplate != "" {
			return fmt.Errorf("%s: search directives set when dn_template is used", modName)
		}
		if !strings.Contains(a.dnTemplate, "{username}") {
			return fmt.Errorf("%s: dn_template does not contain {username}", modName)
		}
	}

	return nil
}

func (a *Auth) Name() string {
	return modName
}

func (a *Auth) InstanceName() string {
	return a.instName
}

// searchFilter substitutes the escaped username into the filter template.
func (a *Auth) searchFilter(username string) string {
	return strings.ReplaceAll(a.filterTemplate, "{username}", ldap.EscapeFilter(username))
}

// entryAttrs lists the attributes read from the user entry.
func (a *Auth) entryAttrs() []string {
	var attrs []string
	if a.principalAttr != "" {
		attrs = append(attrs, a.principalAttr)
	}
	return append(attrs, a.attributes...)
}

// userDN finds the entry to bind as. For dn_template the entry is read
// after the bind, entry is nil then.
func (a *Auth) userDN(conn *ldap.Conn, username string) (string, *ldap.Entry, error) {
	if a.dnTemplate != "" {
		if strings.ContainsAny(username, dnSpecial) {
			return "", nil, module.ErrUnknownCredentials
		}
		return strings.ReplaceAll(a.dnTemplate, "{username}", username), nil, nil
	}

	attrs := append([]string{"dn"}, a.entryAttrs()...)
	req := ldap.NewSearchRequest(
		a.baseDN, ldap.ScopeWholeSubtree, ldap.NeverDerefAliases,
		2, 0, false,
		a.searchFilter(username),
		attrs, nil)
	res, err := conn.Search(req)
	if err != nil {
		return "", nil, fmt.Errorf("search: %w", err)
	}
	if len(res.Entries) > 1 {
		return "", nil, fmt.Errorf("too many entries returned (%d)", len(res.Entries))
	}
	if len(res.Entries) == 0 {
		return "", nil, module.ErrUnknownCredentials
	}
	return res.Entries[0].DN, res.Entries[0], nil
}

// identity resolves the principal name and the configured attributes of
// the bound user.
func (a *Auth) identity(conn *ldap.Conn, username, dn string, entry *ldap.Entry) (string, map[string][]string, error) {
	attrs := a.entryAttrs()
	if len(attrs) == 0 {
		return username, nil, nil
	}
	if entry == nil {
		req := ldap.NewSearchRequest(
			dn, ldap.ScopeBaseObject, ldap.NeverDerefAliases,
			1, 0, false,
			"(objectClass=*)",
			attrs, nil)
		res, err := conn.Search(req)
		if err != nil {
			return "", nil, fmt.Errorf("read entry: %w", err)
		}
		if len(res.Entries) != 1 {
			return "", nil, fmt.Errorf("entry %s is not readable", dn)
		}
		entry = res.Entries[0]
	}
	return a.entryIdentity(username, entry)
}

func (a *Auth) entryIdentity(username string, entry *ldap.Entry) (string, map[string][]string, error) {
	name := username
	if a.principalAttr != "" {
		name = entry.GetAttributeValue(a.principalAttr)
		if name == "" {
			return "", nil, fmt.Errorf("entry %s has no %s attribute", entry.DN, a.principalAttr)
		}
	}
	return name, entryAttributes(entry, a.attributes), nil
}

// entryAttributes copies the named attributes that have values.
func entryAttributes(entry *ldap.Entry, names []string) map[string][]string {
	if len(names) == 0 {
		return nil
	}
	attrs := make(map[string][]string, len(names))
	for _, name := range names {
		if vals := entry.GetAttributeValues(name); len(vals) != 0 {
			attrs[name] = append([]string(nil), vals...)
		}
	}
	return attrs
}

type session struct {
	conn  *ldap.Conn
	names []string
	attrs map[string][]string
}

func (s *session) Principals() []string {
	return s.names
}

func (s *session) Attributes() map[string][]string {
	return s.attrs
}

func (s *session) Logout() error {
	s.conn.Close()
	return nil
}

func (a *Auth) Login(ctx context.Context, cb authn.CallbackHandler) (module.LoginSession, error) {
	username, secret, err := authn.RequestCredentials(ctx, cb)
	if err != nil {
		return nil, err
	}
	defer func() {
		for i := range secret {
			secret[i] = 0
		}
	}()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	conn, err := a.conn.Connect()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", modName, err)
	}
	// Unblocks pending requests if the attempt is cancelled.
	stop := context.AfterFunc(ctx, func() { conn.Close() })

	name, attrs, err := a.bindAs(conn, username, secret)
	if !stop() || err != nil {
		conn.Close()
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if errors.Is(err, module.ErrUnknownCredentials) {
			return nil, err
		}
		return nil, fmt.Errorf("%s: %w", modName, err)
	}

	a.log.DebugMsg("bind succeeded", "username", username, "principal", name)
	return &session{conn: conn, names: []string{name}, attrs: attrs}, nil
}

func (a *Auth) bindAs(conn *ldap.Conn, username string, secret []byte) (string, map[string][]string, error) {
	dn, entry, err := a.userDN(conn, username)
	if err != nil {
		return "", nil, err
	}

	if err := conn.Bind(dn, string(secret)); err != nil {
		if ldap.IsErrorWithCode(err, ldap.LDAPResultInvalidCredentials) {
			return "", nil, module.ErrUnknownCredentials
		}
		return "", nil, exterrors.WithFields(err, map[string]interface{}{"dn": dn})
	}

	return a.identity(conn, username, dn, entry)
}

func init() {
	var _ module.LoginModule = &Auth{}
	var _ module.AttributeSession = &session{}
	module.Register(modName, New)
}
