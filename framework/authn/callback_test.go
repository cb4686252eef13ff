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
	"testing"
)

func TestCredentialCallbackHandler(t *testing.T) {
	h := NewCredentialCallbackHandler(NewCredential("alice", []byte("pass")))

	id := NewFieldRequest(FieldIdentifier, "login: ")
	secret := NewFieldRequest(FieldSecret, "password: ")
	if err := h.Handle(context.Background(), []*FieldRequest{id, secret}); err != nil {
		t.Fatal(err)
	}

	if !id.Satisfied() || id.Payload != "alice" {
		t.Errorf("identifier request: %+v", id)
	}
	buf, _ := secret.Payload.([]byte)
	if !secret.Satisfied() || string(buf) != "pass" {
		t.Errorf("secret request: %+v", secret)
	}

	// The backend may scrub its buffer, the next request still works.
	buf[0] = 0
	again := NewFieldRequest(FieldSecret, "")
	if err := h.Handle(context.Background(), []*FieldRequest{again}); err != nil {
		t.Fatal(err)
	}
	if string(again.Payload.([]byte)) != "pass" {
		t.Errorf("second secret request got %q", again.Payload)
	}
}

func TestCredentialCallbackHandler_UnsupportedBatch(t *testing.T) {
	h := NewCredentialCallbackHandler(NewCredential("alice", []byte("pass")))

	id := NewFieldRequest(FieldIdentifier, "login: ")
	otp := NewFieldRequest("otp", "one-time code: ")
	err := h.Handle(context.Background(), []*FieldRequest{id, otp})

	var unsupported *UnsupportedRequestError
	if !errors.As(err, &unsupported) {
		t.Fatalf("expected UnsupportedRequestError, got %v", err)
	}
	if unsupported.Field != "otp" {
		t.Errorf("unexpected field %q", unsupported.Field)
	}
	if id.Satisfied() || id.Payload != nil {
		t.Error("identifier request satisfied in a rejected batch")
	}
	if otp.Satisfied() {
		t.Error("otp request satisfied")
	}
}

func TestCredentialCallbackHandler_Destroy(t *testing.T) {
	h := NewCredentialCallbackHandler(NewCredential("alice", []byte("pass")))

	secret := NewFieldRequest(FieldSecret, "")
	if err := h.Handle(context.Background(), []*FieldRequest{secret}); err != nil {
		t.Fatal(err)
	}
	h.Destroy()

	for _, b := range secret.Payload.([]byte) {
		if b != 0 {
			t.Fatal("issued secret buffer not scrubbed")
		}
	}
	if err := h.Handle(context.Background(), []*FieldRequest{NewFieldRequest(FieldIdentifier, "")}); err == nil {
		t.Error("Handle succeeded after Destroy")
	}
}

func TestCredentialCallbackHandler_Cancelled(t *testing.T) {
	h := NewCredentialCallbackHandler(NewCredential("alice", []byte("pass")))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	id := NewFieldRequest(FieldIdentifier, "")
	if err := h.Handle(ctx, []*FieldRequest{id}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if id.Satisfied() {
		t.Error("request satisfied with cancelled context")
	}
}

func TestRequestCredentials(t *testing.T) {
	h := NewCredentialCallbackHandler(NewCredential("alice", []byte("pass")))
	id, secret, err := RequestCredentials(context.Background(), h)
	if err != nil {
		t.Fatal(err)
	}
	if id != "alice" || string(secret) != "pass" {
		t.Errorf("got %q, %q", id, secret)
	}
}

func TestCredential_Redacted(t *testing.T) {
	c := NewCredential("alice", []byte("hunter2"))
	if s := c.String(); s != "Credential(alice, [redacted])" {
		t.Errorf("String: %q", s)
	}
	if s := c.FormatLog(); s != "alice" {
		t.Errorf("FormatLog: %q", s)
	}

	secret := c.Secret()
	secret[0] = 'X'
	if string(c.Secret()) != "hunter2" {
		t.Error("Secret returned the internal buffer")
	}
}
