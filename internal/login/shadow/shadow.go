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

// Package shadow implements the login.shadow module that verifies passwords
// against the system shadow database, directly or through
// credgate-shadow-helper for unprivileged processes.
package shadow

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/credgate/credgate/framework/authn"
	"github.com/credgate/credgate/framework/config"
	"github.com/credgate/credgate/framework/log"
	"github.com/credgate/credgate/framework/module"
	"github.com/credgate/credgate/internal/login/external"
	"github.com/credgate/credgate/internal/shadow"
)

const modName = "login.shadow"

type Auth struct {
	instName   string
	useHelper  bool
	helperPath string
	path       string

	now func() time.Time

	Log log.Logger
}

func New(_, instName string, _, inlineArgs []string) (module.Module, error) {
	if len(inlineArgs) != 0 {
		return nil, errors.New("shadow: inline arguments are not used")
	}
	return &Auth{
		instName: instName,
		now:      time.Now,
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
	cfg.Bool("use_helper", false, false, &a.useHelper)
	cfg.String("file", false, false, shadow.DefaultPath, &a.path)
	if _, err := cfg.Process(); err != nil {
		return err
	}

	if a.useHelper {
		a.helperPath = filepath.Join(config.LibexecDirectory, "credgate-shadow-helper")
		if _, err := os.Stat(a.helperPath); err != nil {
			return fmt.Errorf("shadow: no helper binary (credgate-shadow-helper) found in %s", config.LibexecDirectory)
		}
		return nil
	}

	f, err := os.Open(a.path)
	if err != nil {
		if os.IsPermission(err) {
			return fmt.Errorf("shadow: can't read %s due to permission error, use helper binary or run credgate as a privileged user", a.path)
		}
		return fmt.Errorf("shadow: can't read %s: %v", a.path, err)
	}
	f.Close()

	return nil
}

func (a *Auth) verify(ctx context.Context, username string, secret []byte) error {
	if a.useHelper {
		return external.AuthUsingHelper(ctx, a.helperPath, username, secret)
	}

	ent, err := shadow.Lookup(a.path, username)
	if err != nil {
		if errors.Is(err, shadow.ErrNoSuchUser) {
			return module.ErrUnknownCredentials
		}
		return err
	}

	now := a.now()
	if !ent.IsAccountValid(now) {
		return fmt.Errorf("shadow: account is expired")
	}

	if !ent.IsPasswordValid(now) {
		return fmt.Errorf("shadow: password is expired")
	}

	if err := ent.VerifyPassword(secret); err != nil {
		if errors.Is(err, shadow.ErrWrongPassword) {
			return module.ErrUnknownCredentials
		}
		return err
	}
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

	if err := a.verify(ctx, username, secret); err != nil {
		return nil, err
	}
	return module.StaticSession{username}, nil
}

func init() {
	var _ module.LoginModule = &Auth{}
	module.Register(modName, New)
}
