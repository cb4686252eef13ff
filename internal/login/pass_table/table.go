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

// Package pass_table implements the login.pass_table module that verifies
// passwords against hashes stored in a lookup table.
//
//	login.pass_table table.file /etc/credgate/passwd
//
//	login.pass_table {
//	    table sql_query {
//	        driver postgres
//	        dsn "dbname=credgate"
//	        lookup "SELECT hash FROM users WHERE name = $1"
//	    }
//	}
//
// Table values are tagged hashes ("bcrypt:$2y$10$..."), keys are usernames
// normalized with the PRECIS UsernameCaseMapped profile.
package pass_table

import (
	"context"
	"errors"
	"fmt"

	"github.com/credgate/credgate/framework/authn"
	"github.com/credgate/credgate/framework/config"
	modconfig "github.com/credgate/credgate/framework/config/module"
	"github.com/credgate/credgate/framework/log"
	"github.com/credgate/credgate/framework/module"
	"golang.org/x/text/secure/precis"
)

type Auth struct {
	modName    string
	instName   string
	inlineArgs []string

	table module.Table

	log log.Logger
}

func New(modName, instName string, _, inlineArgs []string) (module.Module, error) {
	return &Auth{
		modName:    modName,
		instName:   instName,
		inlineArgs: inlineArgs,
		log:        log.Logger{Name: modName},
	}, nil
}

func (a *Auth) Init(cfg *config.Map) error {
	if len(a.inlineArgs) != 0 {
		return modconfig.ModuleFromNode("table", a.inlineArgs, cfg.Block, cfg.Globals, &a.table)
	}

	cfg.Bool("debug", true, false, &a.log.Debug)
	cfg.Custom("table", false, true, nil, modconfig.TableDirective, &a.table)
	_, err := cfg.Process()
	return err
}

func (a *Auth) Name() string {
	return a.modName
}

func (a *Auth) InstanceName() string {
	return a.instName
}

func normalize(username string) (string, error) {
	return precis.UsernameCaseMapped.CompareKey(username)
}

func (a *Auth) verify(ctx context.Context, username string, secret []byte) (string, error) {
	key, err := normalize(username)
	if err != nil {
		return "", module.ErrUnknownCredentials
	}

	hash, ok, err := a.table.Lookup(ctx, key)
	if err != nil {
		return "", fmt.Errorf("%s: %w", a.modName, err)
	}
	if !ok {
		return "", module.ErrUnknownCredentials
	}

	if err := Verify(secret, hash); err != nil {
		if errors.Is(err, ErrHashMismatch) {
			return "", module.ErrUnknownCredentials
		}
		return "", fmt.Errorf("%s: %w", a.modName, err)
	}
	return key, nil
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

	key, err := a.verify(ctx, username, secret)
	if err != nil {
		return nil, err
	}
	return module.StaticSession{key}, nil
}

func (a *Auth) mutable() (module.MutableTable, error) {
	tbl, ok := a.table.(module.MutableTable)
	if !ok {
		return nil, fmt.Errorf("%s: table is not mutable, no management functionality available", a.modName)
	}
	return tbl, nil
}

func (a *Auth) ListUsers() ([]string, error) {
	tbl, err := a.mutable()
	if err != nil {
		return nil, err
	}
	return tbl.Keys()
}

// CreateUser adds a user with the hashed password. It fails if the user
// exists already.
func (a *Auth) CreateUser(username string, password []byte, hash string, opts HashOpts) error {
	tbl, err := a.mutable()
	if err != nil {
		return err
	}

	key, err := normalize(username)
	if err != nil {
		return fmt.Errorf("%s: invalid username: %w", a.modName, err)
	}
	_, ok, err := tbl.Lookup(context.Background(), key)
	if err != nil {
		return fmt.Errorf("%s: %w", a.modName, err)
	}
	if ok {
		return fmt.Errorf("%s: credentials for %s already exist", a.modName, key)
	}

	return a.setPassword(tbl, key, password, hash, opts)
}

func (a *Auth) SetUserPassword(username string, password []byte, hash string, opts HashOpts) error {
	tbl, err := a.mutable()
	if err != nil {
		return err
	}
	key, err := normalize(username)
	if err != nil {
		return fmt.Errorf("%s: invalid username: %w", a.modName, err)
	}
	return a.setPassword(tbl, key, password, hash, opts)
}

func (a *Auth) setPassword(tbl module.MutableTable, key string, password []byte, hash string, opts HashOpts) error {
	hashed, err := Compute(hash, opts, password)
	if err != nil {
		return err
	}
	if err := tbl.SetKey(key, hashed); err != nil {
		return fmt.Errorf("%s: %w", a.modName, err)
	}
	return nil
}

func (a *Auth) DeleteUser(username string) error {
	tbl, err := a.mutable()
	if err != nil {
		return err
	}
	key, err := normalize(username)
	if err != nil {
		return fmt.Errorf("%s: invalid username: %w", a.modName, err)
	}
	return tbl.RemoveKey(key)
}

func init() {
	var _ module.LoginModule = &Auth{}
	module.Register("login.pass_table", New)
}
