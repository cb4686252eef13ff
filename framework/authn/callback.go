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

package authn

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// FieldKind tags a FieldRequest. The set of kinds is open, backends may ask
// for kinds a CallbackHandler does not know.
type FieldKind string

const (
	FieldIdentifier FieldKind = "identifier"
	FieldSecret     FieldKind = "secret"
)

// FieldRequest is a single request of a backend for a piece of the
// credential.
//
// Payload is filled by the CallbackHandler: a string for FieldIdentifier and
// a []byte for FieldSecret. The backend owns the secret buffer once the
// request is satisfied and may scrub it.
type FieldRequest struct {
	Kind    FieldKind
	Prompt  string
	Payload interface{}

	satisfied bool
}

func NewFieldRequest(kind FieldKind, prompt string) *FieldRequest {
	return &FieldRequest{Kind: kind, Prompt: prompt}
}

func (r *FieldRequest) Satisfy(payload interface{}) {
	r.Payload = payload
	r.satisfied = true
}

func (r *FieldRequest) Satisfied() bool {
	return r.satisfied
}

// CallbackHandler supplies credential fields requested by a backend.
//
// Handle either satisfies every request of the batch or none of them.
type CallbackHandler interface {
	Handle(ctx context.Context, reqs []*FieldRequest) error
}

// CredentialCallbackHandler answers field requests from a Credential.
//
// Only FieldIdentifier and FieldSecret are supported, a batch containing
// anything else fails with *UnsupportedRequestError and is left untouched.
type CredentialCallbackHandler struct {
	identifier string

	mu        sync.Mutex
	secret    []byte
	issued    [][]byte
	destroyed bool
}

func NewCredentialCallbackHandler(cred Credential) *CredentialCallbackHandler {
	return &CredentialCallbackHandler{
		identifier: cred.identifier,
		secret:     cred.Secret(),
	}
}

func (h *CredentialCallbackHandler) Handle(ctx context.Context, reqs []*FieldRequest) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	for _, req := range reqs {
		switch req.Kind {
		case FieldIdentifier, FieldSecret:
		default:
			return &UnsupportedRequestError{Field: req.Kind}
		}
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.destroyed {
		return errors.New("authn: callback handler used after Destroy")
	}

	for _, req := range reqs {
		switch req.Kind {
		case FieldIdentifier:
			req.Satisfy(h.identifier)
		case FieldSecret:
			buf := append([]byte(nil), h.secret...)
			h.issued = append(h.issued, buf)
			req.Satisfy(buf)
		}
	}
	return nil
}

// Destroy scrubs the secret held by the handler and every copy it handed
// out. Requests made after Destroy fail.
func (h *CredentialCallbackHandler) Destroy() {
	h.mu.Lock()
	defer h.mu.Unlock()

	scrub(h.secret)
	h.secret = nil
	h.destroyed = true
	for _, buf := range h.issued {
		scrub(buf)
	}
	h.issued = nil
}

func scrub(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// RequestCredentials asks cb for the identifier and the secret in a single
// batch. It is the common first step of login modules that need a
// username/password pair.
func RequestCredentials(ctx context.Context, cb CallbackHandler) (string, []byte, error) {
	idReq := NewFieldRequest(FieldIdentifier, "Username: ")
	secretReq := NewFieldRequest(FieldSecret, "Password: ")
	if err := cb.Handle(ctx, []*FieldRequest{idReq, secretReq}); err != nil {
		return "", nil, err
	}

	if !idReq.Satisfied() || !secretReq.Satisfied() {
		return "", nil, errors.New("authn: credential fields not supplied")
	}
	id, ok := idReq.Payload.(string)
	if !ok {
		return "", nil, fmt.Errorf("authn: unexpected identifier payload type %T", idReq.Payload)
	}
	secret, ok := secretReq.Payload.([]byte)
	if !ok {
		return "", nil, fmt.Errorf("authn: unexpected secret payload type %T", secretReq.Payload)
	}
	return id, secret, nil
}
