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

// Package chain implements the login module chain, the stacked verifier
// used by handler.chain.
//
// A chain is a named, ordered list of login modules, each with a control
// flag:
//
//	chain CAS {
//	    login.krb5 sufficient {
//	        realm EXAMPLE.ORG
//	    }
//	    &corp_ldap required
//	    pass_table optional table file /etc/credgate/passwd
//	}
//
// The flags behave like the PAM/JAAS ones: required modules must succeed
// but the chain continues after their failure, requisite modules must
// succeed and stop the chain on failure, a sufficient module that succeeds
// ends the chain successfully unless a required module failed before it,
// optional modules matter only if nothing but sufficient and optional
// modules are listed.
package chain

import (
	"context"
	"errors"
	"fmt"

	"github.com/credgate/credgate/framework/authn"
	"github.com/credgate/credgate/framework/config"
	modconfig "github.com/credgate/credgate/framework/config/module"
	"github.com/credgate/credgate/framework/exterrors"
	"github.com/credgate/credgate/framework/log"
	"github.com/credgate/credgate/framework/module"
)

type Flag int

const (
	Required Flag = iota
	Requisite
	Sufficient
	Optional
)

var flagNames = map[string]Flag{
	"required":   Required,
	"requisite":  Requisite,
	"sufficient": Sufficient,
	"optional":   Optional,
}

func (f Flag) String() string {
	for name, v := range flagNames {
		if v == f {
			return name
		}
	}
	return fmt.Sprintf("Flag(%d)", int(f))
}

func ParseFlag(s string) (Flag, error) {
	f, ok := flagNames[s]
	if !ok {
		return 0, fmt.Errorf("unknown control flag: %s", s)
	}
	return f, nil
}

// ErrChainFailed is returned when the chain rejects the credential. The
// errors of individual modules are joined to it.
var ErrChainFailed = errors.New("login chain failed")

type Entry struct {
	Module module.LoginModule
	Flag   Flag
}

type Chain struct {
	modName  string
	instName string
	entries  []Entry

	log log.Logger
}

func New(modName, instName string, _, inlineArgs []string) (module.Module, error) {
	if len(inlineArgs) != 0 {
		return nil, fmt.Errorf("%s: no inline arguments are accepted", modName)
	}
	return &Chain{
		modName:  modName,
		instName: instName,
		log:      log.Logger{Name: modName + "/" + instName},
	}, nil
}

// NewFromEntries creates an initialized chain, bypassing configuration.
func NewFromEntries(instName string, logger log.Logger, entries ...Entry) *Chain {
	return &Chain{
		modName:  "chain",
		instName: instName,
		entries:  entries,
		log:      logger,
	}
}

func (c *Chain) Name() string {
	return c.modName
}

func (c *Chain) InstanceName() string {
	return c.instName
}

func (c *Chain) Init(cfg *config.Map) error {
	cfg.Bool("debug", true, false, &c.log.Debug)
	cfg.AllowUnknown()
	entryNodes, err := cfg.Process()
	if err != nil {
		return err
	}

	for _, node := range entryNodes {
		entry, err := c.entryFromNode(cfg.Globals, node)
		if err != nil {
			return err
		}
		c.entries = append(c.entries, entry)
	}

	if len(c.entries) == 0 {
		return &authn.ConfigurationError{
			Handler:   c.instName,
			Directive: c.modName,
			Reason:    "login chain has no modules",
		}
	}
	return nil
}

// entryFromNode parses 'module_name flag [args...] [{ ... }]' or '&instance flag'.
func (c *Chain) entryFromNode(globals map[string]interface{}, node config.Node) (Entry, error) {
	if len(node.Args) == 0 {
		return Entry{}, config.NodeErr(node, "control flag is required (required, requisite, sufficient or optional)")
	}
	flag, err := ParseFlag(node.Args[0])
	if err != nil {
		return Entry{}, config.NodeErr(node, "%v", err)
	}

	args := append([]string{node.Name}, node.Args[1:]...)
	mod, err := modconfig.LoginModule(globals, args, node)
	if err != nil {
		return Entry{}, err
	}
	return Entry{Module: mod, Flag: flag}, nil
}

func (c *Chain) Entries() []Entry {
	return append([]Entry(nil), c.entries...)
}

// DependsOnEnvironment reports whether any module of the chain reads the
// process environment.
func (c *Chain) DependsOnEnvironment() bool {
	for _, entry := range c.entries {
		if authn.DependsOnEnvironment(entry.Module) {
			return true
		}
	}
	return false
}

// NewContext implements authn.Verifier.
func (c *Chain) NewContext(cb authn.CallbackHandler) (authn.VerificationContext, error) {
	if len(c.entries) == 0 {
		return nil, &authn.ConfigurationError{Handler: c.instName, Reason: "login chain has no modules"}
	}
	return &chainContext{chain: c, cb: cb}, nil
}

type chainContext struct {
	chain    *Chain
	cb       authn.CallbackHandler
	sessions []module.LoginSession
	loggedIn bool
	used     bool
}

// isFatal reports errors that abort the chain regardless of flags.
func isFatal(ctx context.Context, err error) bool {
	var unsupported *authn.UnsupportedRequestError
	if errors.As(err, &unsupported) {
		return true
	}
	return ctx.Err() != nil
}

func (cc *chainContext) Login(ctx context.Context) error {
	if cc.used {
		return errors.New("chain: verification context reused")
	}
	cc.used = true

	var (
		mandatoryErr error
		hasMandatory bool
		anySucceeded bool
		failures     []error
	)

	for i, entry := range cc.chain.entries {
		if entry.Flag == Required || entry.Flag == Requisite {
			hasMandatory = true
		}

		sess, err := entry.Module.Login(ctx, cc.cb)
		if err != nil {
			cc.chain.log.DebugMsg("module failed", "module", entry.Module, "flag", entry.Flag.String(), "reason", err)
			err = exterrors.WithFields(err, map[string]interface{}{
				"chain_entry": i,
				"module":      entry.Module.Name(),
				"flag":        entry.Flag.String(),
			})

			if isFatal(ctx, err) {
				cc.abort()
				return err
			}

			failures = append(failures, err)
			switch entry.Flag {
			case Required:
				if mandatoryErr == nil {
					mandatoryErr = err
				}
			case Requisite:
				if mandatoryErr == nil {
					mandatoryErr = err
				}
				cc.abort()
				return fmt.Errorf("%w: %w", ErrChainFailed, mandatoryErr)
			}
			continue
		}

		cc.chain.log.DebugMsg("module succeeded", "module", entry.Module, "flag", entry.Flag.String(), "principals", sess.Principals())
		cc.sessions = append(cc.sessions, sess)
		anySucceeded = true

		if entry.Flag == Sufficient && mandatoryErr == nil {
			cc.loggedIn = true
			return nil
		}
	}

	if mandatoryErr != nil {
		cc.abort()
		return fmt.Errorf("%w: %w", ErrChainFailed, mandatoryErr)
	}
	if !hasMandatory && !anySucceeded {
		cc.abort()
		return fmt.Errorf("%w: %w", ErrChainFailed, errors.Join(failures...))
	}

	cc.loggedIn = true
	return nil
}

// abort logs out modules that succeeded before the chain failed.
func (cc *chainContext) abort() {
	if err := cc.logoutAll(); err != nil {
		cc.chain.log.Error("abort failed", err)
	}
}

func (cc *chainContext) logoutAll() error {
	var errs []error
	for _, sess := range cc.sessions {
		if err := sess.Logout(); err != nil {
			errs = append(errs, err)
		}
	}
	cc.sessions = nil
	return errors.Join(errs...)
}

// Principals returns names resolved by all modules that succeeded, in chain
// order.
func (cc *chainContext) Principals() []string {
	if !cc.loggedIn {
		return nil
	}
	var names []string
	for _, sess := range cc.sessions {
		names = append(names, sess.Principals()...)
	}
	return names
}

// Attributes merges attributes reported by the modules that succeeded.
// Values of the same attribute are concatenated in chain order.
func (cc *chainContext) Attributes() map[string][]string {
	if !cc.loggedIn {
		return nil
	}
	attrs := make(map[string][]string)
	for _, sess := range cc.sessions {
		attrSess, ok := sess.(module.AttributeSession)
		if !ok {
			continue
		}
		for k, v := range attrSess.Attributes() {
			attrs[k] = append(attrs[k], v...)
		}
	}
	return attrs
}

func (cc *chainContext) Logout() error {
	cc.loggedIn = false
	return cc.logoutAll()
}

func init() {
	module.Register("chain", New)
}
