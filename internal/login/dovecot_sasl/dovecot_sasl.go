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

// Package dovecotsasl implements the login.dovecot_sasl module that passes
// credentials to a Dovecot authentication server.
//
//	login.dovecot_sasl unix:///run/dovecot/auth-client
package dovecotsasl

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/credgate/credgate/framework/authn"
	"github.com/credgate/credgate/framework/config"
	"github.com/credgate/credgate/framework/exterrors"
	"github.com/credgate/credgate/framework/log"
	"github.com/credgate/credgate/framework/module"
	"github.com/emersion/go-sasl"
	dovecotsasl "github.com/foxcpp/go-dovecot-sasl"
)

var ErrUnsupportedMech = errors.New("no supported SASL mechanism offered by the server")

type Auth struct {
	instName       string
	serverEndpoint string
	service        string
	log            log.Logger

	endp   config.Endpoint
	dialer net.Dialer

	mechanisms map[string]dovecotsasl.Mechanism
}

const modName = "login.dovecot_sasl"

func New(_, instName string, _, inlineArgs []string) (module.Module, error) {
	a := &Auth{
		instName: instName,
		log:      log.Logger{Name: modName, Debug: log.DefaultLogger.Debug},
	}

	switch len(inlineArgs) {
	case 0:
	case 1:
		a.serverEndpoint = inlineArgs[0]
	default:
		return nil, fmt.Errorf("%s: one or none arguments needed", modName)
	}

	return a, nil
}

func (a *Auth) Name() string {
	return modName
}

func (a *Auth) InstanceName() string {
	return a.instName
}

func (a *Auth) getConn(ctx context.Context) (*dovecotsasl.Client, error) {
	conn, err := a.dialer.DialContext(ctx, a.endp.Network(), a.endp.Address())
	if err != nil {
		return nil, exterrors.WithTemporary(fmt.Errorf("%s: unable to contact server: %v", modName, err), true)
	}

	cl, err := dovecotsasl.NewClient(conn)
	if err != nil {
		conn.Close()
		return nil, exterrors.WithTemporary(fmt.Errorf("%s: unable to contact server: %v", modName, err), true)
	}

	return cl, nil
}

func (a *Auth) Init(cfg *config.Map) error {
	cfg.String("endpoint", false, false, a.serverEndpoint, &a.serverEndpoint)
	cfg.String("service", false, false, "credgate", &a.service)
	cfg.Bool("debug", true, false, &a.log.Debug)
	if _, err := cfg.Process(); err != nil {
		return err
	}
	if a.serverEndpoint == "" {
		return fmt.Errorf("%s: missing server endpoint", modName)
	}

	endp, err := config.ParseEndpoint(a.serverEndpoint)
	if err != nil {
		return fmt.Errorf("%s: invalid server endpoint: %v", modName, err)
	}
	a.endp = endp

	// Dial once to check usability and also to get list of mechanisms.
	cl, err := a.getConn(context.Background())
	if err != nil {
		return err
	}
	defer cl.Close()

	a.mechanisms = make(map[string]dovecotsasl.Mechanism, len(cl.ConnInfo().Mechs))
	for name, mech := range cl.ConnInfo().Mechs {
		if mech.Private {
			continue
		}
		a.mechanisms[name] = mech
	}
	if !a.supports(sasl.Plain) && !a.supports(sasl.Login) {
		return fmt.Errorf("%s: %w", modName, ErrUnsupportedMech)
	}

	return nil
}

func (a *Auth) supports(mech string) bool {
	_, ok := a.mechanisms[mech]
	return ok
}

func (a *Auth) Login(ctx context.Context, cb authn.CallbackHandler) (module.LoginSession, error) {
	username, secret, err := authn.RequestCredentials(ctx, cb)
	if err != nil {
		return nil, err
	}
	password := string(secret)
	for i := range secret {
		secret[i] = 0
	}

	var client sasl.Client
	switch {
	case a.supports(sasl.Plain):
		client = sasl.NewPlainClient("", username, password)
	case a.supports(sasl.Login):
		client = sasl.NewLoginClient(username, password)
	default:
		return nil, ErrUnsupportedMech
	}

	cl, err := a.getConn(ctx)
	if err != nil {
		return nil, err
	}
	defer cl.Close()
	stop := context.AfterFunc(ctx, func() { cl.Close() })
	defer stop()

	// There is no client connection to describe, the credentials are
	// passed over a trusted channel.
	if err := cl.Do(a.service, client, dovecotsasl.Secured, dovecotsasl.NoPenalty); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		a.log.DebugMsg("authentication server rejected credentials", "username", username, "reason", err.Error())
		return nil, fmt.Errorf("%w: %v", module.ErrUnknownCredentials, err)
	}

	return module.StaticSession{username}, nil
}

func init() {
	var _ module.LoginModule = &Auth{}
	module.Register(modName, New)
}
