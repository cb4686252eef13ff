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

package netauth

import (
	"context"
	"fmt"

	"github.com/credgate/credgate/framework/authn"
	"github.com/credgate/credgate/framework/config"
	"github.com/credgate/credgate/framework/log"
	"github.com/credgate/credgate/framework/module"
	"github.com/hashicorp/go-hclog"
	"github.com/netauth/netauth/pkg/netauth"
)

const modName = "login.netauth"

func init() {
	var _ module.LoginModule = &Auth{}
	module.Register(modName, New)
}

// Auth binds all methods related to the NetAuth client library.
type Auth struct {
	instName    string
	mustGroup   string
	serviceName string

	nacl *netauth.Client

	log log.Logger
}

// New creates a new instance of the NetAuth module.
func New(modName, instName string, _, inlineArgs []string) (module.Module, error) {
	return &Auth{
		instName: instName,
		log:      log.Logger{Name: modName},
	}, nil
}

// Init performs deferred initialization actions.
func (a *Auth) Init(cfg *config.Map) error {
	cfg.String("require_group", false, false, "", &a.mustGroup)
	cfg.String("service_name", false, false, "credgate", &a.serviceName)
	cfg.Bool("debug", true, false, &a.log.Debug)
	if _, err := cfg.Process(); err != nil {
		return err
	}

	level := hclog.Info
	if a.log.Debug {
		level = hclog.Debug
	}
	l := hclog.New(&hclog.LoggerOptions{Output: a.log, Level: level})
	n, err := netauth.NewWithLog(l)
	if err != nil {
		return fmt.Errorf("%s: %w", modName, err)
	}
	a.nacl = n
	a.nacl.SetServiceName(a.serviceName)

	a.log.Debugf("require_group: %q", a.mustGroup)
	return nil
}

// Name returns "login.netauth" as the fixed module name.
func (a *Auth) Name() string {
	return modName
}

// InstanceName returns the configured name for this instance of the
// plugin.  Given the way that NetAuth works it doesn't really make
// sense to have more than one instance, but this is part of the API.
func (a *Auth) InstanceName() string {
	return a.instName
}

// Login attempts straightforward authentication of the entity on
// the remote NetAuth server.
func (a *Auth) Login(ctx context.Context, cb authn.CallbackHandler) (module.LoginSession, error) {
	username, secret, err := authn.RequestCredentials(ctx, cb)
	if err != nil {
		return nil, err
	}
	// The client library takes the secret as a string, only the request
	// buffer can be scrubbed.
	password := string(secret)
	for i := range secret {
		secret[i] = 0
	}

	a.log.Debugf("attempting to auth entity: %s", username)
	if err := a.nacl.AuthEntity(ctx, username, password); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		a.log.DebugMsg("netauth rejected entity", "username", username, "reason", err.Error())
		return nil, module.ErrUnknownCredentials
	}
	a.log.Debugln("netauth returns successful auth")

	if a.mustGroup != "" {
		if err := a.checkMustGroup(ctx, username); err != nil {
			return nil, err
		}
	}
	return module.StaticSession{username}, nil
}

func (a *Auth) checkMustGroup(ctx context.Context, username string) error {
	a.log.Debugf("Performing require_group check: must=%s", a.mustGroup)
	groups, err := a.nacl.EntityGroups(ctx, username)
	if err != nil {
		return fmt.Errorf("%s: groups: %w", modName, err)
	}
	for _, g := range groups {
		if g.GetName() == a.mustGroup {
			return nil
		}
	}
	return fmt.Errorf("%s: missing required group (%s not in %s)", modName, username, a.mustGroup)
}
