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

package config

import (
	"fmt"
	"net"
	"net/url"
	"path/filepath"
)

// Endpoint is the address of a network service used by a backend, such as
// the Dovecot auth socket.
//
// Accepted forms are tcp://host:port and unix://path. Relative socket paths
// are resolved against RuntimeDirectory.
type Endpoint struct {
	Original string
	Scheme   string
	Host     string
	Port     string
	Path     string
}

func (e Endpoint) String() string {
	if e.Original != "" {
		return e.Original
	}
	if e.Scheme == "unix" {
		return "unix://" + e.Path
	}
	return e.Scheme + "://" + net.JoinHostPort(e.Host, e.Port)
}

func (e Endpoint) Network() string {
	if e.Scheme == "unix" {
		return "unix"
	}
	return "tcp"
}

// Address returns the value to pass to net.Dial together with Network.
func (e Endpoint) Address() string {
	if e.Scheme == "unix" {
		return e.Path
	}
	return net.JoinHostPort(e.Host, e.Port)
}

func ParseEndpoint(str string) (Endpoint, error) {
	u, err := url.Parse(str)
	if err != nil {
		return Endpoint{}, err
	}

	switch u.Scheme {
	case "tcp":
		// tcp:host:port
		if u.Host == "" && u.Opaque != "" {
			u.Host = u.Opaque
		}
		host, port, err := net.SplitHostPort(u.Host)
		if err != nil {
			return Endpoint{}, fmt.Errorf("endpoint %s: %w", str, err)
		}
		if port == "" {
			return Endpoint{}, fmt.Errorf("endpoint %s: port is required", str)
		}
		return Endpoint{Original: str, Scheme: u.Scheme, Host: host, Port: port}, nil
	case "unix":
		if u.Path == "" && u.Opaque != "" {
			u.Path = u.Opaque
		}
		path := u.Host + u.Path
		if path == "" {
			return Endpoint{}, fmt.Errorf("endpoint %s: socket path is required", str)
		}
		if !filepath.IsAbs(path) {
			path = filepath.Join(RuntimeDirectory, path)
		}
		return Endpoint{Original: str, Scheme: u.Scheme, Path: path}, nil
	default:
		return Endpoint{}, fmt.Errorf("endpoint %s: unsupported scheme %q", str, u.Scheme)
	}
}
