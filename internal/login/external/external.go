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

// Package external implements the login.external module that delegates
// verification to a helper binary, and the helper protocol shared with
// login.shadow and login.pam.
package external

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/credgate/credgate/framework/authn"
	"github.com/credgate/credgate/framework/config"
	"github.com/credgate/credgate/framework/log"
	"github.com/credgate/credgate/framework/module"
)

type ExternalAuth struct {
	modName    string
	instName   string
	helperPath string

	perDomain bool
	domains   []string

	Log log.Logger
}

func NewExternalAuth(modName, instName string, _, inlineArgs []string) (module.Module, error) {
	ea := &ExternalAuth{
		modName:  modName,
		instName: instName,
		Log:      log.Logger{Name: modName},
	}

	if len(inlineArgs) != 0 {
		return nil, errors.New("external: inline arguments are not used")
	}

	return ea, nil
}

func (ea *ExternalAuth) Name() string {
	return ea.modName
}

func (ea *ExternalAuth) InstanceName() string {
	return ea.instName
}

func (ea *ExternalAuth) Init(cfg *config.Map) error {
	cfg.Bool("debug", false, false, &ea.Log.Debug)
	cfg.Bool("perdomain", false, false, &ea.perDomain)
	cfg.StringList("domains", false, false, nil, &ea.domains)
	cfg.String("helper", false, false, "", &ea.helperPath)
	if _, err := cfg.Process(); err != nil {
		return err
	}
	if ea.perDomain && ea.domains == nil {
		return errors.New("external: domains must be set if perdomain is used")
	}

	if ea.helperPath == "" {
		ea.helperPath = filepath.Join(config.LibexecDirectory, "credgate-auth-helper")
	}
	if _, err := os.Stat(ea.helperPath); err != nil {
		return fmt.Errorf("external: %s doesn't exist", ea.helperPath)
	}

	ea.Log.Debugln("using helper:", ea.helperPath)

	return nil
}

// accountName checks the domain part of user@domain against the
// configured domains when perdomain is set.
func (ea *ExternalAuth) accountName(identifier string) (string, bool) {
	if !ea.perDomain {
		return identifier, true
	}
	i := strings.LastIndexByte(identifier, '@')
	if i == -1 {
		return "", false
	}
	domain := identifier[i+1:]
	for _, d := range ea.domains {
		if strings.EqualFold(d, domain) {
			return identifier, true
		}
	}
	return "", false
}

func (ea *ExternalAuth) Login(ctx context.Context, cb authn.CallbackHandler) (module.LoginSession, error) {
	identifier, secret, err := authn.RequestCredentials(ctx, cb)
	if err != nil {
		return nil, err
	}
	defer func() {
		for i := range secret {
			secret[i] = 0
		}
	}()

	accountName, ok := ea.accountName(identifier)
	if !ok {
		return nil, module.ErrUnknownCredentials
	}

	if err := AuthUsingHelper(ctx, ea.helperPath, accountName, secret); err != nil {
		return nil, err
	}
	return module.StaticSession{identifier}, nil
}

func init() {
	var _ module.LoginModule = &ExternalAuth{}
	module.Register("login.external", NewExternalAuth)
}
