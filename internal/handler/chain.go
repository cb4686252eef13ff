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

// Package handler implements handler.chain, the configured authentication
// handler that verifies credentials against a login chain.
//
//	handler.chain cas {
//	    realm CAS
//	    krb5_realm EXAMPLE.ORG
//	    krb5_kdc kdc.example.org
//	    password_policy &shadow_policy
//	    warning_days 14
//	    timeout 30s
//	}
package handler

import (
	"context"
	"fmt"
	"time"

	"github.com/credgate/credgate/framework/authn"
	"github.com/credgate/credgate/framework/config"
	modconfig "github.com/credgate/credgate/framework/config/module"
	"github.com/credgate/credgate/framework/log"
	"github.com/credgate/credgate/framework/module"
	"github.com/credgate/credgate/internal/login/krb5"
	"golang.org/x/text/secure/precis"
)

const modName = "handler.chain"

var normalizeProfiles = map[string]*precis.Profile{
	"username_case_mapped":    precis.UsernameCaseMapped,
	"username_case_preserved": precis.UsernameCasePreserved,
	"opaque":                  precis.OpaqueString,
	"nickname":                precis.Nickname,
}

type Handler struct {
	instName string

	base *authn.BaseHandler
	// env is used instead of the process environment if set.
	env authn.Environment

	log log.Logger
}

func New(_, instName string, _, inlineArgs []string) (module.Module, error) {
	if len(inlineArgs) != 0 {
		return nil, fmt.Errorf("%s: inline arguments are not used", modName)
	}
	return &Handler{
		instName: instName,
		log:      log.Logger{Name: "authn/" + instName},
	}, nil
}

func (h *Handler) Name() string {
	return modName
}

func (h *Handler) InstanceName() string {
	return h.instName
}

func (h *Handler) Init(cfg *config.Map) error {
	var (
		realm     string
		krbRealm  string
		krbKDC    string
		overrides = map[string]string{}
		strategy  module.PolicyStrategy
		policyCfg = authn.PolicyConfig{Attributes: map[string]string{}}
		timeout   time.Duration
		normalize string
	)

	cfg.Bool("debug", true, false, &h.log.Debug)
	cfg.String("realm", false, true, "", &realm)
	cfg.String("krb5_realm", false, false, "", &krbRealm)
	cfg.String("krb5_kdc", false, false, "", &krbKDC)
	cfg.Callback("env", func(_ *config.Map, node config.Node) error {
		if len(node.Args) != 2 {
			return config.NodeErr(node, "expected variable name and value")
		}
		overrides[node.Args[0]] = node.Args[1]
		return nil
	})
	cfg.Custom("password_policy", false, false, nil, modconfig.PolicyDirective, &strategy)
	cfg.Int("warning_days", false, false, 0, &policyCfg.WarningDays)
	cfg.Bool("always_warn", false, false, &policyCfg.AlwaysWarn)
	cfg.Callback("policy_attr", func(_ *config.Map, node config.Node) error {
		if len(node.Args) != 2 {
			return config.NodeErr(node, "expected attribute name and value")
		}
		policyCfg.Attributes[node.Args[0]] = node.Args[1]
		return nil
	})
	cfg.Duration("timeout", false, false, 0, &timeout)
	cfg.Enum("normalize", false, false,
		[]string{"off", "username_case_mapped", "username_case_preserved", "opaque", "nickname"},
		"off", &normalize)
	if _, err := cfg.Process(); err != nil {
		return err
	}

	if krbRealm != "" {
		overrides[krb5.EnvRealm] = krbRealm
	}
	if krbKDC != "" {
		overrides[krb5.EnvKDC] = krbKDC
	}
	if policyCfg.WarningDays < 0 {
		return &authn.ConfigurationError{Handler: h.instName, Directive: "warning_days", Reason: "negative value"}
	}

	verifier, err := h.resolveRealm(realm)
	if err != nil {
		return err
	}

	var factory authn.PrincipalFactory = authn.DefaultPrincipalFactory{}
	if normalize != "off" {
		factory = authn.NormalizingPrincipalFactory{Profile: normalizeProfiles[normalize]}
	}

	var policyStrategy authn.PasswordPolicyHandlingStrategy
	if strategy != nil {
		policyStrategy = strategy
	} else {
		h.log.Printf("no password_policy set, successful verifications will be rejected")
	}

	h.base, err = authn.NewBaseHandler(authn.BaseHandler{
		HandlerName:      h.instName,
		Verifier:         verifier,
		PrincipalFactory: factory,
		Strategy:         policyStrategy,
		PolicyConfig:     policyCfg,
		Overrides:        overrides,
		Environment:      h.env,
		Timeout:          timeout,
		Log:              h.log,
	})
	return err
}

// resolveRealm finds the login chain (or any other verifier block) named
// by the realm directive.
func (h *Handler) resolveRealm(realm string) (authn.Verifier, error) {
	if !module.HasInstance(realm) {
		return nil, &authn.ConfigurationError{
			Handler:   h.instName,
			Directive: "realm",
			Reason:    "no login chain named " + realm,
		}
	}
	mod, err := module.GetInstance(realm)
	if err != nil {
		return nil, &authn.ConfigurationError{Handler: h.instName, Directive: "realm", Err: err}
	}
	verifier, ok := mod.(module.Verifier)
	if !ok {
		return nil, &authn.ConfigurationError{
			Handler:   h.instName,
			Directive: "realm",
			Reason:    fmt.Sprintf("%s (%s) is not a login chain", mod.InstanceName(), mod.Name()),
		}
	}
	return verifier, nil
}

func (h *Handler) Authenticate(ctx context.Context, cred authn.Credential) (*authn.HandlerResult, error) {
	if h.base == nil {
		return nil, &authn.ConfigurationError{Handler: h.instName, Reason: "handler is not initialized"}
	}
	return h.base.Authenticate(ctx, cred)
}

func init() {
	var _ module.Handler = &Handler{}
	module.Register(modName, New)
}
