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

// Package ldap implements the policy.ldap strategy that reads account and
// password expiration times from directory entries.
//
//	policy.ldap {
//	    urls ldaps://ldap.example.org
//	    bind plain cn=reader,dc=example,dc=org secret
//	    base_dn ou=people,dc=example,dc=org
//	    filter (uid={username})
//	    password_expiry_attr shadowLastChange days
//	    password_max_age 2160h
//	    account_expiry_attr shadowExpire days
//	}
package ldap

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/credgate/credgate/framework/authn"
	"github.com/credgate/credgate/framework/config"
	"github.com/credgate/credgate/framework/exterrors"
	"github.com/credgate/credgate/framework/log"
	"github.com/credgate/credgate/framework/module"
	loginldap "github.com/credgate/credgate/internal/login/ldap"
	"github.com/credgate/credgate/internal/policy"
	"github.com/go-ldap/ldap/v3"
)

const modName = "policy.ldap"

var ErrNoEntry = errors.New("policy.ldap: no directory entry for account")

type Strategy struct {
	instName string

	conn loginldap.Connector

	baseDN         string
	filterTemplate string
	allowMissing   bool
	warningDays    int

	// passwordAttr stores either the expiration time itself or, if
	// passwordMaxAge is set, the time of the last change.
	passwordAttr   timeAttr
	passwordMaxAge time.Duration
	accountAttr    timeAttr

	now func() time.Time
	log log.Logger
}

func New(_, instName string, _, inlineArgs []string) (module.Module, error) {
	return &Strategy{
		instName: instName,
		conn:     loginldap.Connector{URLs: inlineArgs},
		now:      time.Now,
		log:      log.Logger{Name: modName},
	}, nil
}

func (s *Strategy) Name() string {
	return modName
}

func (s *Strategy) InstanceName() string {
	return s.instName
}

func (s *Strategy) Init(cfg *config.Map) error {
	s.conn.Directives(cfg)
	cfg.String("base_dn", false, true, "", &s.baseDN)
	cfg.String("filter", false, true, "", &s.filterTemplate)
	cfg.Bool("allow_missing", false, false, &s.allowMissing)
	cfg.Int("default_warning_days", false, false, 0, &s.warningDays)
	cfg.Custom("password_expiry_attr", false, false, nil, timeAttrDirective, &s.passwordAttr)
	cfg.Duration("password_max_age", false, false, 0, &s.passwordMaxAge)
	cfg.Custom("account_expiry_attr", false, false, nil, timeAttrDirective, &s.accountAttr)
	if _, err := cfg.Process(); err != nil {
		return err
	}

	s.log.Debug = s.conn.Log.Debug
	s.conn.Log = s.log
	if err := s.conn.Validate(modName); err != nil {
		return err
	}

	if !strings.Contains(s.filterTemplate, "{username}") {
		return fmt.Errorf("%s: filter does not contain {username}", modName)
	}
	if s.passwordAttr.name == "" && s.accountAttr.name == "" {
		return fmt.Errorf("%s: neither password_expiry_attr nor account_expiry_attr is set", modName)
	}
	if s.passwordMaxAge != 0 && s.passwordAttr.name == "" {
		return fmt.Errorf("%s: password_max_age requires password_expiry_attr", modName)
	}
	if s.passwordMaxAge < 0 {
		return fmt.Errorf("%s: negative password_max_age", modName)
	}
	return nil
}

func (s *Strategy) attrs() []string {
	var res []string
	for _, a := range []timeAttr{s.passwordAttr, s.accountAttr} {
		if a.name != "" {
			res = append(res, a.name)
		}
	}
	return res
}

func (s *Strategy) lookup(ctx context.Context, account string) (*ldap.Entry, error) {
	conn, err := s.conn.Connect()
	if err != nil {
		return nil, err
	}
	defer conn.Close()
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	req := ldap.NewSearchRequest(
		s.baseDN, ldap.ScopeWholeSubtree, ldap.NeverDerefAliases,
		2, 0, false,
		strings.ReplaceAll(s.filterTemplate, "{username}", ldap.EscapeFilter(account)),
		s.attrs(), nil)
	res, err := conn.Search(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("search: %w", err)
	}
	switch len(res.Entries) {
	case 0:
		return nil, ErrNoEntry
	case 1:
		return res.Entries[0], nil
	default:
		return nil, fmt.Errorf("too many entries returned (%d)", len(res.Entries))
	}
}

// expiration converts the entry attributes into absolute times.
func (s *Strategy) expiration(entry *ldap.Entry) (policy.Expiration, error) {
	exp := policy.Expiration{DefaultWarningDays: s.warningDays}

	if s.passwordAttr.name != "" {
		t, err := s.passwordAttr.parse(entry.GetAttributeValue(s.passwordAttr.name))
		if err != nil {
			return exp, err
		}
		if !t.IsZero() && s.passwordMaxAge != 0 {
			t = t.Add(s.passwordMaxAge)
		}
		exp.Password = t
	}
	if s.accountAttr.name != "" {
		t, err := s.accountAttr.parse(entry.GetAttributeValue(s.accountAttr.name))
		if err != nil {
			return exp, err
		}
		exp.Account = t
	}
	return exp, nil
}

func (s *Strategy) Handle(ctx context.Context, p authn.Principal, cfg authn.PolicyConfig) ([]authn.MessageDescriptor, error) {
	account := policy.AccountName(p, cfg)

	entry, err := s.lookup(ctx, account)
	if err != nil {
		if errors.Is(err, ErrNoEntry) && s.allowMissing {
			s.log.DebugMsg("no directory entry, skipping", "account", account)
			return []authn.MessageDescriptor{}, nil
		}
		return nil, exterrors.WithFields(err, map[string]interface{}{"account": account})
	}

	exp, err := s.expiration(entry)
	if err != nil {
		return nil, exterrors.WithFields(err, map[string]interface{}{
			"account": account,
			"dn":      entry.DN,
		})
	}
	s.log.DebugMsg("aging info", "account", account, "password_expiry", exp.Password, "account_expiry", exp.Account)
	return policy.Evaluate(s.now(), exp, cfg)
}

func init() {
	var _ module.PolicyStrategy = &Strategy{}
	module.Register(modName, New)
}
