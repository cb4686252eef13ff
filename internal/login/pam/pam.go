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

// Package pam implements the login.pam module. Verification is done by the
// credgate-pam-helper binary that speaks the helper protocol of
// login.external, so the main process does not link against libpam.
package pam

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/credgate/credgate/framework/authn"
	"github.com/credgate/credgate/framework/config"
	"github.com/credgate/credgate/framework/log"
	"github.com/credgate/credgate/framework/module"
	"github.com/credgate/credgate/internal/login/external"
)

const modName = "login.pam"

type Auth struct {
	instName   string
	helperPath string

	Log log.Logger
}

func New(_, instName string, _, inlineArgs []string) (module.Module, error) {
	if len(inlineArgs) != 0 {
		return nil, errors.New("pam: inline arguments are not used")
	}
	return &Auth{
		instName: instName,
		Log:      log.Logger{Name: modName},
	}, nil
}

func (a *Auth) Name() string {
	return modName
}

func (a *Auth) InstanceName() string {
	return a.instName
}

func (a *Auth) Init(cfg *config.Map) error {
	cfg.Bool("debug", true, false, &a.Log.Debug)
	cfg.String("helper", false, false, filepath.Join(config.LibexecDirectory, "credgate-pam-helper"), &a.helperPath)
	if _, err := cfg.Process(); err != nil {
		return err
	}

	if _, err := os.Stat(a.helperPath); err != nil {
		return fmt.Errorf("pam: no helper binary found at %s", a.helperPath)
	}
	a.Log.Debugln("using helper:", a.helperPath)

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

	if err := external.AuthUsingHelper(ctx, a.helperPath, username, secret); err != nil {
		return nil, err
	}
	return module.StaticSession{username}, nil
}

func init() {
	var _ module.LoginModule = &Auth{}
	module.Register(modName, New)
}
