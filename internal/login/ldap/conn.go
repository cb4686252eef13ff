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

package ldap

import (
	"crypto/tls"
	"fmt"
	"net"
	"net/url"
	"time"

	"github.com/credgate/credgate/framework/config"
	tls2 "github.com/credgate/credgate/framework/config/tls"
	"github.com/credgate/credgate/framework/exterrors"
	"github.com/credgate/credgate/framework/log"
	"github.com/go-ldap/ldap/v3"
	"go.uber.org/zap"
)

// Connector holds the directory connection settings shared by the modules
// that talk to LDAP servers.
type Connector struct {
	URLs           []string
	ReadBind       func(*ldap.Conn) error
	StartTLS       bool
	TLSConfig      *tls.Config
	Dialer         *net.Dialer
	RequestTimeout time.Duration

	Log log.Logger
}

// Directives registers the connection directives in cfg.
//
// Inline module arguments, if any, should be put into c.URLs before the
// call, the urls directive appends to them.
func (c *Connector) Directives(cfg *config.Map) {
	c.Dialer = &net.Dialer{}

	cfg.Bool("debug", true, false, &c.Log.Debug)
	cfg.Custom("tls_client", true, false, func() (interface{}, error) {
		return &tls.Config{}, nil
	}, tls2.TLSClientBlock, &c.TLSConfig)
	cfg.Callback("urls", func(m *config.Map, node config.Node) error {
		c.URLs = append(c.URLs, node.Args...)
		return nil
	})
	cfg.Custom("bind", false, false, func() (interface{}, error) {
		return func(*ldap.Conn) error {
			return nil
		}, nil
	}, BindDirective, &c.ReadBind)
	cfg.Bool("starttls", false, false, &c.StartTLS)
	cfg.Duration("connect_timeout", false, false, time.Minute, &c.Dialer.Timeout)
	cfg.Duration("request_timeout", false, false, time.Minute, &c.RequestTimeout)
}

// Validate checks the values set by Directives. It should be called after
// cfg.Process.
func (c *Connector) Validate(modName string) error {
	if len(c.URLs) == 0 {
		return fmt.Errorf("%s: no directory server URLs", modName)
	}
	for _, u := range c.URLs {
		if _, err := url.Parse(u); err != nil {
			return fmt.Errorf("%s: invalid server URL: %w", modName, err)
		}
	}
	if c.Log.Debug {
		ldap.Logger(zap.NewStdLog(c.Log.Zap()))
	}
	return nil
}

// BindDirective parses the bind directive: off, unauth [DN], plain DN
// PASSWORD or external.
func BindDirective(_ *config.Map, n config.Node) (interface{}, error) {
	if len(n.Args) == 0 {
		return nil, config.NodeErr(n, "expected at least one argument")
	}
	switch n.Args[0] {
	case "off":
		return func(*ldap.Conn) error { return nil }, nil
	case "unauth":
		if len(n.Args) == 2 {
			return func(c *ldap.Conn) error {
				return c.UnauthenticatedBind(n.Args[1])
			}, nil
		}
		return func(c *ldap.Conn) error {
			return c.UnauthenticatedBind("")
		}, nil
	case "plain":
		if len(n.Args) != 3 {
			return nil, config.NodeErr(n, "username and password expected for plaintext bind")
		}
		return func(c *ldap.Conn) error {
			return c.Bind(n.Args[1], n.Args[2])
		}, nil
	case "external":
		return (*ldap.Conn).ExternalBind, nil
	}
	return nil, config.NodeErr(n, "unknown bind authentication: %v", n.Args[0])
}

// Connect dials the first reachable server and performs the read bind.
// Unreachable servers are reported as temporary errors.
func (c *Connector) Connect() (*ldap.Conn, error) {
	var (
		conn    *ldap.Conn
		tlsCfg  *tls.Config
		lastErr error
	)
	for _, u := range c.URLs {
		parsedURL, err := url.Parse(u)
		if err != nil {
			return nil, err
		}
		tlsCfg = c.TLSConfig.Clone()
		if tlsCfg.ServerName == "" {
			tlsCfg.ServerName = parsedURL.Hostname()
		}

		conn, err = ldap.DialURL(u, ldap.DialWithDialer(c.Dialer), ldap.DialWithTLSConfig(tlsCfg))
		if err != nil {
			c.Log.Error("cannot contact directory server", err, "url", u)
			lastErr = err
			continue
		}
		break
	}
	if conn == nil {
		return nil, exterrors.WithTemporary(
			fmt.Errorf("all directory servers are unreachable: %w", lastErr), true)
	}

	if c.RequestTimeout != 0 {
		conn.SetTimeout(c.RequestTimeout)
	}

	if c.StartTLS {
		if err := conn.StartTLS(tlsCfg); err != nil {
			conn.Close()
			return nil, exterrors.WithTemporary(err, true)
		}
	}

	if err := c.ReadBind(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("read bind: %w", err)
	}

	return conn, nil
}
