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
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/credgate/credgate/framework/config"
)

type timeFormat string

const (
	// RFC 4517 GeneralizedTime, as used by pwdChangedTime.
	formatGeneralized timeFormat = "generalized"
	// Days since the Unix epoch, as used by shadowExpire.
	formatDays timeFormat = "days"
	// Seconds since the Unix epoch.
	formatUnix timeFormat = "unix"
	// 100-nanosecond intervals since 1601-01-01, as used by the Active
	// Directory accountExpires attribute.
	formatFiletime timeFormat = "filetime"
)

// Seconds between 1601-01-01 and 1970-01-01.
const filetimeEpochOffset = 11644473600

type timeAttr struct {
	name   string
	format timeFormat
}

func timeAttrDirective(_ *config.Map, n config.Node) (interface{}, error) {
	switch len(n.Args) {
	case 1:
		return timeAttr{name: n.Args[0], format: formatGeneralized}, nil
	case 2:
		switch f := timeFormat(n.Args[1]); f {
		case formatGeneralized, formatDays, formatUnix, formatFiletime:
			return timeAttr{name: n.Args[0], format: f}, nil
		default:
			return nil, config.NodeErr(n, "unknown time format: %s", n.Args[1])
		}
	default:
		return nil, config.NodeErr(n, "expected attribute name and optional format")
	}
}

// parse converts an attribute value to time. Empty values and the
// "never" markers of the numeric formats yield the zero time.
func (a timeAttr) parse(val string) (time.Time, error) {
	if val == "" {
		return time.Time{}, nil
	}

	switch a.format {
	case formatGeneralized:
		return parseGeneralizedTime(val)
	case formatDays:
		days, err := strconv.ParseInt(val, 10, 64)
		if err != nil {
			return time.Time{}, fmt.Errorf("%s: %w", a.name, err)
		}
		if days < 0 {
			return time.Time{}, nil
		}
		return time.Unix(days*86400, 0).UTC(), nil
	case formatUnix:
		secs, err := strconv.ParseInt(val, 10, 64)
		if err != nil {
			return time.Time{}, fmt.Errorf("%s: %w", a.name, err)
		}
		if secs <= 0 {
			return time.Time{}, nil
		}
		return time.Unix(secs, 0).UTC(), nil
	case formatFiletime:
		ft, err := strconv.ParseInt(val, 10, 64)
		if err != nil {
			return time.Time{}, fmt.Errorf("%s: %w", a.name, err)
		}
		if ft <= 0 || ft == math.MaxInt64 {
			return time.Time{}, nil
		}
		return time.Unix(ft/1e7-filetimeEpochOffset, (ft%1e7)*100).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("%s: unknown time format %s", a.name, a.format)
}

var generalizedLayouts = []string{
	"20060102150405Z0700",
	"20060102150405.999999999Z0700",
	"200601021504Z0700",
	"2006010215Z0700",
}

func parseGeneralizedTime(val string) (time.Time, error) {
	for _, layout := range generalizedLayouts {
		if t, err := time.Parse(layout, val); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("malformed GeneralizedTime: %q", val)
}
