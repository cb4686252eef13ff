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
	"errors"
	"strings"
	"time"
)

type ErrorKind string

const (
	KindUnknown                   ErrorKind = ""
	KindInvalidCredential         ErrorKind = "invalid_credential"
	KindConfiguration             ErrorKind = "configuration"
	KindBackendVerification       ErrorKind = "backend_verification"
	KindUnsupportedRequest        ErrorKind = "unsupported_request"
	KindPolicyRejection           ErrorKind = "policy_rejection"
	KindPolicyHandlingUnavailable ErrorKind = "policy_unavailable"
	KindTimedOut                  ErrorKind = "timed_out"
)

// Error is implemented by all errors returned from Handler.Authenticate.
type Error interface {
	error
	Kind() ErrorKind
}

// KindOf returns the kind of the outermost authn.Error in the err chain or
// KindUnknown if there is none.
func KindOf(err error) ErrorKind {
	var aerr Error
	if errors.As(err, &aerr) {
		return aerr.Kind()
	}
	return KindUnknown
}

// InvalidCredentialError is returned for malformed input. Backends are never
// called for such credentials.
type InvalidCredentialError struct {
	Reason string
}

func (e *InvalidCredentialError) Error() string {
	return "authn: invalid credential: " + e.Reason
}

func (e *InvalidCredentialError) Kind() ErrorKind { return KindInvalidCredential }

func (e *InvalidCredentialError) Fields() map[string]interface{} {
	return map[string]interface{}{"kind": string(KindInvalidCredential), "reason": e.Reason}
}

// ConfigurationError reports missing or invalid setup. It is normally
// returned during module initialization.
type ConfigurationError struct {
	Handler   string
	Directive string
	Reason    string
	Err       error
}

func (e *ConfigurationError) Error() string {
	var sb strings.Builder
	sb.WriteString("authn: configuration error")
	if e.Handler != "" {
		sb.WriteString(" (" + e.Handler + ")")
	}
	if e.Directive != "" {
		sb.WriteString(": " + e.Directive)
	}
	if e.Reason != "" {
		sb.WriteString(": " + e.Reason)
	}
	if e.Err != nil {
		sb.WriteString(": " + e.Err.Error())
	}
	return sb.String()
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

func (e *ConfigurationError) Kind() ErrorKind { return KindConfiguration }

func (e *ConfigurationError) Fields() map[string]interface{} {
	f := map[string]interface{}{"kind": string(KindConfiguration)}
	if e.Handler != "" {
		f["handler"] = e.Handler
	}
	if e.Directive != "" {
		f["directive"] = e.Directive
	}
	return f
}

// BackendVerificationError means the backend rejected the credential or
// did not resolve an identity. Reason is the backend error, if any.
type BackendVerificationError struct {
	Handler string
	Reason  error
}

var ErrNoIdentity = errors.New("backend did not resolve an identity")

func (e *BackendVerificationError) Error() string {
	if e.Reason == nil {
		return "authn: verification failed"
	}
	return "authn: verification failed: " + e.Reason.Error()
}

func (e *BackendVerificationError) Unwrap() error { return e.Reason }

func (e *BackendVerificationError) Kind() ErrorKind { return KindBackendVerification }

func (e *BackendVerificationError) Fields() map[string]interface{} {
	f := map[string]interface{}{"kind": string(KindBackendVerification)}
	if e.Handler != "" {
		f["handler"] = e.Handler
	}
	return f
}

// UnsupportedRequestError is returned by the credential callback handler
// when a backend asks for a field it cannot supply. The attempt is aborted.
type UnsupportedRequestError struct {
	Field FieldKind
}

func (e *UnsupportedRequestError) Error() string {
	return "authn: unsupported field request: " + string(e.Field)
}

func (e *UnsupportedRequestError) Kind() ErrorKind { return KindUnsupportedRequest }

func (e *UnsupportedRequestError) Fields() map[string]interface{} {
	return map[string]interface{}{"kind": string(KindUnsupportedRequest), "field": string(e.Field)}
}

// PolicyRejectionError is a veto of a policy strategy. It turns a successful
// verification into a failure.
type PolicyRejectionError struct {
	Code    string
	Message string
	Err     error
}

const CodePolicyEvaluationFailed = "policy.evaluationFailed"

func (e *PolicyRejectionError) Error() string {
	msg := "authn: rejected by policy"
	if e.Code != "" {
		msg += " (" + e.Code + ")"
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *PolicyRejectionError) Unwrap() error { return e.Err }

func (e *PolicyRejectionError) Kind() ErrorKind { return KindPolicyRejection }

func (e *PolicyRejectionError) Fields() map[string]interface{} {
	return map[string]interface{}{"kind": string(KindPolicyRejection), "policy_code": e.Code}
}

// PolicyHandlingUnavailableError is returned when the backend succeeded but
// the handler has no policy strategy bound. Such attempts are failures.
type PolicyHandlingUnavailableError struct {
	Handler string
}

func (e *PolicyHandlingUnavailableError) Error() string {
	return "authn: no password policy strategy configured for " + e.Handler
}

func (e *PolicyHandlingUnavailableError) Kind() ErrorKind { return KindPolicyHandlingUnavailable }

func (e *PolicyHandlingUnavailableError) Fields() map[string]interface{} {
	return map[string]interface{}{"kind": string(KindPolicyHandlingUnavailable), "handler": e.Handler}
}

// TimedOutError is returned when the attempt deadline passes or the caller
// context is cancelled before the backend returns.
type TimedOutError struct {
	Handler string
	After   time.Duration
	Err     error
}

func (e *TimedOutError) Error() string {
	msg := "authn: verification timed out"
	if e.After != 0 {
		msg += " after " + e.After.String()
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *TimedOutError) Unwrap() error { return e.Err }

func (e *TimedOutError) Kind() ErrorKind { return KindTimedOut }

func (e *TimedOutError) Temporary() bool { return true }

func (e *TimedOutError) Fields() map[string]interface{} {
	return map[string]interface{}{"kind": string(KindTimedOut), "handler": e.Handler}
}
