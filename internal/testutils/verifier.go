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

package testutils

import (
	"context"
	"errors"
	"sync"

	"github.com/credgate/credgate/framework/authn"
)

var ErrBadPassword = errors.New("testutils: invalid credentials")

// Verifier is a scripted authn.Verifier that counts what the handler does
// with it.
type Verifier struct {
	// Passwords maps identifiers to accepted secrets. If nil, any secret is
	// accepted.
	Passwords map[string]string
	// Names overrides the principal names reported for an identifier. By
	// default the identifier itself is reported.
	Names map[string][]string
	// Fields is the batch Login requests. Defaults to identifier + secret.
	Fields []authn.FieldKind

	// Attributes are reported for an identifier after a successful Login.
	Attributes map[string]map[string][]string

	LoginErr   error
	ContextErr error
	LogoutErr  error
	// Panic, ContextPanic and LogoutPanic make Login, NewContext and
	// Logout panic with the value.
	Panic        interface{}
	ContextPanic interface{}
	LogoutPanic  interface{}

	// Block, if not nil, makes Login wait until it is closed, ignoring the
	// context.
	Block chan struct{}
	// WaitCancel makes Login wait until the context is done and return its
	// error.
	WaitCancel bool
	// Started, if not nil, receives a value when Login is entered.
	Started chan struct{}
	// OnLogin is called at the start of Login.
	OnLogin func()
	// EnvDependent is returned by DependsOnEnvironment.
	EnvDependent bool
	// Released, if not nil, receives a value on each Logout.
	Released chan struct{}

	mu       sync.Mutex
	contexts int
	logins   int
	releases int
	secrets  [][]byte
}

func (v *Verifier) DependsOnEnvironment() bool {
	return v.EnvDependent
}

func (v *Verifier) NewContext(cb authn.CallbackHandler) (authn.VerificationContext, error) {
	if v.ContextPanic != nil {
		panic(v.ContextPanic)
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.ContextErr != nil {
		return nil, v.ContextErr
	}
	v.contexts++
	return &verifierCtx{v: v, cb: cb}, nil
}

// Counts reports how many contexts were created, logged in and released.
func (v *Verifier) Counts() (contexts, logins, releases int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.contexts, v.logins, v.releases
}

// Secrets returns the secret buffers handed to the backend.
func (v *Verifier) Secrets() [][]byte {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.secrets
}

type verifierCtx struct {
	v     *Verifier
	cb    authn.CallbackHandler
	id    string
	names []string
}

func (c *verifierCtx) Login(ctx context.Context) error {
	c.v.mu.Lock()
	c.v.logins++
	c.v.mu.Unlock()

	if c.v.OnLogin != nil {
		c.v.OnLogin()
	}
	if c.v.Started != nil {
		c.v.Started <- struct{}{}
	}
	if c.v.Block != nil {
		<-c.v.Block
	}
	if c.v.WaitCancel {
		<-ctx.Done()
		return ctx.Err()
	}
	if c.v.Panic != nil {
		panic(c.v.Panic)
	}

	kinds := c.v.Fields
	if kinds == nil {
		kinds = []authn.FieldKind{authn.FieldIdentifier, authn.FieldSecret}
	}
	reqs := make([]*authn.FieldRequest, 0, len(kinds))
	for _, k := range kinds {
		reqs = append(reqs, authn.NewFieldRequest(k, string(k)))
	}
	if err := c.cb.Handle(ctx, reqs); err != nil {
		return err
	}

	var (
		id     string
		secret []byte
	)
	for _, req := range reqs {
		switch req.Kind {
		case authn.FieldIdentifier:
			id, _ = req.Payload.(string)
		case authn.FieldSecret:
			secret, _ = req.Payload.([]byte)
		}
	}
	c.v.mu.Lock()
	c.v.secrets = append(c.v.secrets, secret)
	c.v.mu.Unlock()

	if c.v.LoginErr != nil {
		return c.v.LoginErr
	}
	if c.v.Passwords != nil {
		if pass, ok := c.v.Passwords[id]; !ok || pass != string(secret) {
			return ErrBadPassword
		}
	}

	c.id = id
	if names, ok := c.v.Names[id]; ok {
		c.names = names
	} else {
		c.names = []string{id}
	}
	return nil
}

func (c *verifierCtx) Principals() []string {
	return c.names
}

func (c *verifierCtx) Attributes() map[string][]string {
	return c.v.Attributes[c.id]
}

func (c *verifierCtx) Logout() error {
	c.v.mu.Lock()
	c.v.releases++
	c.v.mu.Unlock()
	if c.v.LogoutPanic != nil {
		panic(c.v.LogoutPanic)
	}
	if c.v.Released != nil {
		c.v.Released <- struct{}{}
	}
	return c.v.LogoutErr
}

// Environment is an in-memory authn.Environment.
type Environment struct {
	sync.Mutex

	ApplyErr error

	vals    map[string]string
	history []map[string]string
}

func (e *Environment) Apply(overrides map[string]string) (func(), error) {
	if e.ApplyErr != nil {
		return func() {}, e.ApplyErr
	}
	prev := e.vals
	e.vals = make(map[string]string, len(overrides))
	for k, v := range overrides {
		e.vals[k] = v
	}
	e.history = append(e.history, e.vals)
	return func() { e.vals = prev }, nil
}

// Get reads the current value. The caller must hold the lock.
func (e *Environment) Get(key string) string {
	return e.vals[key]
}

// Applied returns all override sets applied so far.
func (e *Environment) Applied() []map[string]string {
	e.Lock()
	defer e.Unlock()
	return e.history
}
