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

// Package authn implements credential verification: handlers that take a
// Credential, run it through a backend Verifier, apply a password policy
// strategy and return a uniform HandlerResult or a typed error.
package authn

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/credgate/credgate/framework/log"
	"github.com/google/uuid"
)

// Handler is the entry point used by protocol front-ends.
type Handler interface {
	// Name is the handler name reported in HandlerResult.
	Name() string
	Authenticate(ctx context.Context, cred Credential) (*HandlerResult, error)
}

// BaseHandler orchestrates one authentication attempt.
//
// It is safe for concurrent use once constructed by NewBaseHandler and must
// not be modified afterwards.
type BaseHandler struct {
	HandlerName      string
	Verifier         Verifier
	PrincipalFactory PrincipalFactory
	Strategy         PasswordPolicyHandlingStrategy
	PolicyConfig     PolicyConfig

	// Overrides are applied to Environment before each attempt. The
	// Environment lock is taken if there are any or if Verifier is
	// EnvironmentDependent.
	Overrides   map[string]string
	Environment Environment

	// Timeout limits a single attempt. Zero means only the caller context
	// deadline applies.
	Timeout time.Duration

	Log log.Logger

	lockEnv bool
}

// NewBaseHandler validates h and fills the defaults.
//
// A missing name or verifier is a *ConfigurationError. A missing strategy is
// allowed here, such handlers fail every otherwise successful attempt with
// *PolicyHandlingUnavailableError.
func NewBaseHandler(h BaseHandler) (*BaseHandler, error) {
	if h.HandlerName == "" {
		return nil, &ConfigurationError{Directive: "name", Reason: "handler name is required"}
	}
	if h.Verifier == nil {
		return nil, &ConfigurationError{Handler: h.HandlerName, Directive: "verifier", Reason: "no backend verifier configured"}
	}
	if h.Timeout < 0 {
		return nil, &ConfigurationError{Handler: h.HandlerName, Directive: "timeout", Reason: "negative timeout"}
	}
	if h.PrincipalFactory == nil {
		h.PrincipalFactory = DefaultPrincipalFactory{}
	}
	if h.Environment == nil {
		h.Environment = ProcessEnvironment
	}
	if len(h.Overrides) != 0 {
		overrides := make(map[string]string, len(h.Overrides))
		for k, v := range h.Overrides {
			if k == "" {
				return nil, &ConfigurationError{Handler: h.HandlerName, Directive: "env", Reason: "empty variable name"}
			}
			overrides[k] = v
		}
		h.Overrides = overrides
	}
	h.lockEnv = len(h.Overrides) != 0 || DependsOnEnvironment(h.Verifier)
	if h.Log.Name == "" {
		h.Log.Name = "authn/" + h.HandlerName
	}
	return &h, nil
}

func (h *BaseHandler) Name() string {
	return h.HandlerName
}

func (h *BaseHandler) Authenticate(ctx context.Context, cred Credential) (res *HandlerResult, err error) {
	start := time.Now()
	l := h.Log.With("attempt", uuid.NewString(), "identifier", cred)
	defer func() {
		observeAttempt(h.HandlerName, err, time.Since(start))
		if err != nil {
			l.Error("authentication failed", err)
		}
	}()

	if err := cred.validate(); err != nil {
		return nil, err
	}

	if h.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.Timeout)
		defer cancel()
	}

	outcome, err := h.verify(ctx, cred, l)
	if err != nil {
		return nil, err
	}

	principal, err := h.PrincipalFactory.Create(outcome.Name, outcome.Attributes)
	if err != nil {
		return nil, &BackendVerificationError{Handler: h.HandlerName, Reason: err}
	}

	if h.Strategy == nil {
		return nil, &PolicyHandlingUnavailableError{Handler: h.HandlerName}
	}
	warnings, err := h.Strategy.Handle(ctx, principal, h.PolicyConfig)
	if err != nil {
		var rejection *PolicyRejectionError
		if errors.As(err, &rejection) {
			return nil, rejection
		}
		return nil, &PolicyRejectionError{
			Code:    CodePolicyEvaluationFailed,
			Message: "password policy evaluation failed",
			Err:     err,
		}
	}

	res, err = NewHandlerResult(h.HandlerName, principal, warnings)
	if err != nil {
		return nil, err
	}
	l.Msg("authenticated", "principal", principal.ID(), "warnings", len(res.Warnings))
	return res, nil
}

// verify runs the backend part of the attempt. It returns only after the
// verification context is released, also when ctx is done first: backends
// receive ctx and are expected to give up once it is done.
func (h *BaseHandler) verify(ctx context.Context, cred Credential, l log.Logger) (Outcome, error) {
	outcome, err := h.runAttempt(ctx, cred, l)
	if ctxErr := ctx.Err(); ctxErr != nil {
		var timedOut *TimedOutError
		if errors.As(err, &timedOut) {
			return Outcome{}, timedOut
		}
		return Outcome{}, &TimedOutError{Handler: h.HandlerName, After: h.Timeout, Err: ctxErr}
	}
	return outcome, err
}

// runAttempt converts panics anywhere in the backend part into
// BackendVerificationError. Deferred calls still run on panic, so the
// context is released and the environment restored and unlocked.
func (h *BaseHandler) runAttempt(ctx context.Context, cred Credential, l log.Logger) (outcome Outcome, err error) {
	defer func() {
		if p := recover(); p != nil {
			outcome = Outcome{}
			err = &BackendVerificationError{Handler: h.HandlerName, Reason: fmt.Errorf("backend panic: %v", p)}
		}
	}()

	if h.lockEnv {
		h.Environment.Lock()
		defer h.Environment.Unlock()

		if err := ctx.Err(); err != nil {
			return Outcome{}, &TimedOutError{Handler: h.HandlerName, After: h.Timeout, Err: err}
		}

		if len(h.Overrides) != 0 {
			restore, err := h.Environment.Apply(h.Overrides)
			if err != nil {
				return Outcome{}, &ConfigurationError{Handler: h.HandlerName, Directive: "env", Err: err}
			}
			defer restore()
		}
	}

	cb := NewCredentialCallbackHandler(cred)
	defer cb.Destroy()

	vctx, err := h.Verifier.NewContext(cb)
	if err != nil {
		return Outcome{}, h.backendErr(ctx, err)
	}
	defer func() {
		if logoutErr := vctx.Logout(); logoutErr != nil {
			l.Error("verification context release failed", logoutErr)
		}
	}()

	return h.login(ctx, vctx)
}

func (h *BaseHandler) login(ctx context.Context, vctx VerificationContext) (Outcome, error) {
	var names []string
	loginErr := vctx.Login(ctx)
	if loginErr == nil {
		names = vctx.Principals()
	}

	outcome := OutcomeOf(loginErr, names)
	if !outcome.Resolved() {
		return outcome, h.backendErr(ctx, outcome.Reason)
	}
	if src, ok := vctx.(AttributeSource); ok {
		outcome.Attributes = src.Attributes()
	}
	return outcome, nil
}

func (h *BaseHandler) backendErr(ctx context.Context, reason error) error {
	var unsupported *UnsupportedRequestError
	if errors.As(reason, &unsupported) {
		return unsupported
	}
	if ctx.Err() != nil && (errors.Is(reason, context.DeadlineExceeded) || errors.Is(reason, context.Canceled)) {
		return &TimedOutError{Handler: h.HandlerName, After: h.Timeout, Err: ctx.Err()}
	}
	return &BackendVerificationError{Handler: h.HandlerName, Reason: reason}
}
