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

// Package shadow implements the policy.shadow strategy that reads password
// and account aging information from a shadow(5) file.
package shadow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/credgate/credgate/framework/authn"
	"github.com/credgate/credgate/framework/config"
	"github.com/credgate/credgate/framework/exterrors"
	"github.com/credgate/credgate/framework/log"
	"github.com/credgate/credgate/framework/module"
	"github.com/credgate/credgate/internal/policy"
	"github.com/credgate/credgate/internal/shadow"
)

const modName = "policy.shadow"

type Strategy struct {
	instName     string
	path         string
	allowMissing bool

	now func() time.Time
	Log log.Logger
}

func New(_, instName string, _, inlineArgs []string) (module.Module, error) {
	s := &Strategy{
		instName: instName,
		now:      time.Now,
		Log:      log.Logger{Name: modName},
	}
	switch len(inlineArgs) {
	case 0:
	case 1:
		s.path = inlineArgs[0]
	default:
		return nil, fmt.Errorf("%s: at most one argument (file path) is expected", modName)
	}
	return s, nil
}

func (s *Strategy) Name() string {
	return modName
}

func (s *Strategy) InstanceName() string {
	return s.instName
}

func (s *Strategy) Init(cfg *config.Map) error {
	def := s.path
	if def == "" {
		def = shadow.DefaultPath
	}
	cfg.Bool("debug", true, false, &s.Log.Debug)
	cfg.String("file", false, false, def, &s.path)
	cfg.Bool("allow_missing", false, false, &s.allowMissing)
	_, err := cfg.Process()
	return err
}

func daysToTime(days int) time.Time {
	return time.Unix(int64(days)*86400, 0).UTC()
}

// expiration converts shadow aging fields into absolute times.
func expiration(ent *shadow.Entry) policy.Expiration {
	var exp policy.Expiration
	if ent.LastChange != -1 && ent.MaxPassAge != -1 {
		exp.Password = daysToTime(ent.LastChange + ent.MaxPassAge)
	}
	if ent.AcctExpiry != -1 {
		exp.Account = daysToTime(ent.AcctExpiry)
	}
	if ent.WarnPeriod != -1 {
		exp.DefaultWarningDays = ent.WarnPeriod
	}
	return exp
}

func (s *Strategy) Handle(_ context.Context, p authn.Principal, cfg authn.PolicyConfig) ([]authn.MessageDescriptor, error) {
	name := policy.AccountName(p, cfg)

	ent, err := shadow.Lookup(s.path, name)
	if err != nil {
		if errors.Is(err, shadow.ErrNoSuchUser) && s.allowMissing {
			s.Log.DebugMsg("no shadow entry, skipping", "account", name)
			return []authn.MessageDescriptor{}, nil
		}
		return nil, exterrors.WithFields(err, map[string]interface{}{
			"account": name,
			"file":    s.path,
		})
	}

	exp := expiration(ent)
	s.Log.DebugMsg("aging info", "account", name, "password_expiry", exp.Password, "account_expiry", exp.Account)
	return policy.Evaluate(s.now(), exp, cfg)
}

func init() {
	var _ module.PolicyStrategy = &Strategy{}
	module.Register(modName, New)
}
