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

// Package sasl exposes an authentication handler through the PLAIN and
// LOGIN SASL mechanisms, for protocol servers built on go-sasl.
package sasl

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/credgate/credgate/framework/authn"
	"github.com/credgate/credgate/framework/exterrors"
	"github.com/credgate/credgate/framework/log"
	"github.com/emersion/go-sasl"
	"golang.org/x/text/secure/precis"
)

var (
	ErrUnsupportedMech    = errors.New("sasl: unsupported mechanism")
	ErrInvalidCredentials = errors.New("sasl: invalid credentials")
	ErrTemporaryFailure   = errors.New("sasl: temporary authentication failure")
)

// SuccessFunc is called with the authentication result and the identity
// the client is authorized to act as. The exchange fails if it returns an
// error.
type SuccessFunc func(res *authn.HandlerResult, authzID string) error

// Auth creates sasl.Server instances that verify credentials using Handler.
type Auth struct {
	Handler authn.Handler
	// Timeout limits each exchange in addition to the context passed to
	// CreateSASL. Zero means no limit.
	Timeout time.Duration
	Log     log.Logger
}

func (a *Auth) Mechanisms() []string {
	return []string{sasl.Plain, sasl.Login}
}

func (a *Auth) authenticate(ctx context.Context, username, password string, remoteAddr net.Addr) (*authn.HandlerResult, error) {
	if a.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.Timeout)
		defer cancel()
	}

	res, err := a.Handler.Authenticate(ctx, authn.NewCredential(username, []byte(password)))
	if err != nil {
		a.Log.Error("authentication failed", err, "username", username, "src_ip", remoteAddr)
		if exterrors.IsTemporary(err) {
			return nil, ErrTemporaryFailure
		}
		return nil, ErrInvalidCredentials
	}
	for _, w := range res.Warnings {
		a.Log.Msg("authentication warning", "username", username, "principal", res.Principal.ID(), "code", w.Code)
	}
	return res, nil
}

// authorize checks that the client may act as identity. Only the principal
// itself is allowed.
func authorize(res *authn.HandlerResult, identity string) (string, error) {
	if identity == "" {
		return res.Principal.ID(), nil
	}
	if !precis.UsernameCaseMapped.Compare(res.Principal.ID(), identity) {
		return "", ErrInvalidCredentials
	}
	return identity, nil
}

// CreateSASL creates the sasl.Server for mech. ctx bounds all handler
// calls made by the returned server.
func (a *Auth) CreateSASL(ctx context.Context, mech string, remoteAddr net.Addr, successCb SuccessFunc) sasl.Server {
	switch mech {
	case sasl.Plain:
		return sasl.NewPlainServer(func(identity, username, password string) error {
			res, err := a.authenticate(ctx, username, password, remoteAddr)
			if err != nil {
				return err
			}
			authzID, err := authorize(res, identity)
			if err != nil {
				a.Log.Msg("not authorized", "username", username, "identity", identity, "src_ip", remoteAddr)
				return err
			}
			return successCb(res, authzID)
		})
	case sasl.Login:
		return NewLoginServer(func(username, password string) error {
			res, err := a.authenticate(ctx, username, password, remoteAddr)
			if err != nil {
				return err
			}
			return successCb(res, res.Principal.ID())
		})
	}
	return FailingServer{Err: ErrUnsupportedMech}
}

type FailingServer struct{ Err error }

func (s FailingServer) Next([]byte) ([]byte, bool, error) {
	return nil, true, s.Err
}
