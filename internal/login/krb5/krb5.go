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

// Package krb5 implements the login.krb5 module that verifies a password by
// obtaining a ticket-granting ticket from the KDC.
//
// The realm and the KDC are read at each login from the KRB5_REALM and
// KRB5_KDC process environment variables when they are set. Handlers set
// them with the krb5_realm and krb5_kdc directives.
//
//	login.krb5 {
//	    config /etc/krb5.conf
//	    realm EXAMPLE.ORG
//	    verify_keytab /etc/credgate/krb5.keytab
//	    service_principal HTTP/cas.example.org
//	}
package krb5

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/credgate/credgate/framework/authn"
	"github.com/credgate/credgate/framework/config"
	"github.com/credgate/credgate/framework/exterrors"
	"github.com/credgate/credgate/framework/log"
	"github.com/credgate/credgate/framework/module"
	"github.com/jcmturner/gokrb5/v8/client"
	krb5config "github.com/jcmturner/gokrb5/v8/config"
	"github.com/jcmturner/gokrb5/v8/iana/nametype"
	"github.com/jcmturner/gokrb5/v8/keytab"
	"github.com/jcmturner/gokrb5/v8/types"
	"go.uber.org/zap"
)

const modName = "login.krb5"

const (
	// EnvRealm overrides the default realm.
	EnvRealm = "KRB5_REALM"
	// EnvKDC overrides the KDC address (host:port) of the realm in use.
	EnvKDC = "KRB5_KDC"
)

// Error codes reported by the KDC for a wrong principal or password.
var rejectCodes = []string{
	"KDC_ERR_PREAUTH_FAILED",
	"KDC_ERR_C_PRINCIPAL_UNKNOWN",
	"KRB_AP_ERR_BAD_INTEGRITY",
	"KDC_ERR_CLIENT_REVOKED",
	"KDC_ERR_KEY_EXPIRED",
}

type Auth struct {
	instName string

	base         *krb5config.Config
	realm        string
	kdc          string
	disableFAST  bool
	verifyKeytab *keytab.Keytab
	servicePrinc string

	getenv func(string) string

	log log.Logger
}

func New(_, instName string, _, inlineArgs []string) (module.Module, error) {
	if len(inlineArgs) != 0 {
		return nil, fmt.Errorf("%s: inline arguments are not used", modName)
	}
	return &Auth{
		instName: instName,
		getenv:   os.Getenv,
		log:      log.Logger{Name: modName},
	}, nil
}

func (a *Auth) Name() string {
	return modName
}

func (a *Auth) InstanceName() string {
	return a.instName
}

// DependsOnEnvironment reports that realm and KDC are read from the process
// environment at each login.
func (a *Auth) DependsOnEnvironment() bool {
	return true
}

func (a *Auth) Init(cfg *config.Map) error {
	var (
		confPath   string
		keytabPath string
	)
	cfg.Bool("debug", true, false, &a.log.Debug)
	cfg.String("config", false, false, "", &confPath)
	cfg.String("realm", false, false, "", &a.realm)
	cfg.String("kdc", false, false, "", &a.kdc)
	cfg.Bool("disable_pa_fx_fast", false, false, &a.disableFAST)
	cfg.String("verify_keytab", false, false, "", &keytabPath)
	cfg.String("service_principal", false, false, "", &a.servicePrinc)
	if _, err := cfg.Process(); err != nil {
		return err
	}

	if confPath != "" {
		base, err := krb5config.Load(confPath)
		if err != nil {
			return fmt.Errorf("%s: %w", modName, err)
		}
		a.base = base
	} else {
		a.base = krb5config.New()
	}

	if (keytabPath == "") != (a.servicePrinc == "") {
		return fmt.Errorf("%s: verify_keytab and service_principal should be used together", modName)
	}
	if keytabPath != "" {
		kt, err := keytab.Load(keytabPath)
		if err != nil {
			return fmt.Errorf("%s: %w", modName, err)
		}
		a.verifyKeytab = kt
	}

	return nil
}

// clientConfig builds the configuration for one login. The realm and KDC
// from the environment take precedence over the module directives.
func (a *Auth) clientConfig() (*krb5config.Config, string, error) {
	c := *a.base
	c.Realms = append([]krb5config.Realm(nil), a.base.Realms...)

	realm := a.getenv(EnvRealm)
	if realm == "" {
		realm = a.realm
	}
	if realm == "" {
		realm = c.LibDefaults.DefaultRealm
	}
	if realm == "" {
		return nil, "", errors.New("no realm configured")
	}
	c.LibDefaults.DefaultRealm = realm

	kdc := a.getenv(EnvKDC)
	if kdc == "" {
		kdc = a.kdc
	}
	if kdc != "" {
		if !strings.Contains(kdc, ":") {
			kdc += ":88"
		}
		found := false
		for i := range c.Realms {
			if c.Realms[i].Realm == realm {
				r := c.Realms[i]
				r.KDC = []string{kdc}
				c.Realms[i] = r
				found = true
			}
		}
		if !found {
			c.Realms = append(c.Realms, krb5config.Realm{Realm: realm, KDC: []string{kdc}})
		}
		c.LibDefaults.DNSLookupKDC = false
	}

	return &c, realm, nil
}

// splitPrincipal splits user@REALM. Identifiers without a realm use the
// configured one.
func splitPrincipal(identifier, defaultRealm string) (string, string) {
	if i := strings.LastIndexByte(identifier, '@'); i != -1 && i != len(identifier)-1 {
		return identifier[:i], identifier[i+1:]
	}
	return identifier, defaultRealm
}

func isRejection(err error) bool {
	msg := err.Error()
	for _, code := range rejectCodes {
		if strings.Contains(msg, code) {
			return true
		}
	}
	return false
}

type session struct {
	cl    *client.Client
	names []string
}

func (s *session) Principals() []string {
	return s.names
}

func (s *session) Logout() error {
	s.cl.Destroy()
	return nil
}

func (a *Auth) Login(ctx context.Context, cb authn.CallbackHandler) (module.LoginSession, error) {
	identifier, secret, err := authn.RequestCredentials(ctx, cb)
	if err != nil {
		return nil, err
	}
	defer func() {
		for i := range secret {
			secret[i] = 0
		}
	}()

	krbCfg, defaultRealm, err := a.clientConfig()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", modName, err)
	}
	username, realm := splitPrincipal(identifier, defaultRealm)

	settings := []func(*client.Settings){client.DisablePAFXFAST(a.disableFAST)}
	if a.log.Debug {
		settings = append(settings, client.Logger(zap.NewStdLog(a.log.Zap())))
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cl := client.NewWithPassword(username, realm, string(secret), krbCfg, settings...)
	if err := cl.Login(); err != nil {
		cl.Destroy()
		if isRejection(err) {
			a.log.DebugMsg("KDC rejected credentials", "username", username, "realm", realm, "reason", err.Error())
			return nil, module.ErrUnknownCredentials
		}
		return nil, exterrors.WithTemporary(fmt.Errorf("%s: %w", modName, err), true)
	}

	if a.verifyKeytab != nil {
		if err := a.verifyKDC(cl); err != nil {
			cl.Destroy()
			return nil, fmt.Errorf("%s: KDC verification failed: %w", modName, err)
		}
	}

	name := cl.Credentials.CName().PrincipalNameString() + "@" + cl.Credentials.Domain()
	return &session{cl: cl, names: []string{name}}, nil
}

// verifyKDC requests a ticket for the local service and decrypts it with
// the service keytab so that a spoofed KDC cannot issue the TGT.
func (a *Auth) verifyKDC(cl *client.Client) error {
	tkt, _, err := cl.GetServiceTicket(a.servicePrinc)
	if err != nil {
		return err
	}
	sname := types.NewPrincipalName(nametype.KRB_NT_SRV_INST, a.servicePrinc)
	return tkt.DecryptEncPart(a.verifyKeytab, &sname)
}

func init() {
	var _ module.LoginModule = &Auth{}
	module.Register(modName, New)
}
