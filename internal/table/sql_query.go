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

package table

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/credgate/credgate/framework/config"
	"github.com/credgate/credgate/framework/module"
)

// SQL is a table that runs configured queries against a database:
//
//	table.sql_query {
//	    driver postgres
//	    dsn "host=db dbname=credgate"
//	    lookup "SELECT hash FROM users WHERE name = $1"
//	    add "INSERT INTO users (name, hash) VALUES ($1, $2)"
//	    set "UPDATE users SET hash = $2 WHERE name = $1"
//	    del "DELETE FROM users WHERE name = $1"
//	    list "SELECT name FROM users"
//	}
//
// Supported drivers are postgres, mysql and sqlite3.
type SQL struct {
	modName  string
	instName string

	db     *sql.DB
	lookup *sql.Stmt
	add    *sql.Stmt
	list   *sql.Stmt
	set    *sql.Stmt
	del    *sql.Stmt
}

func NewSQL(modName, instName string, _, _ []string) (module.Module, error) {
	return &SQL{
		modName:  modName,
		instName: instName,
	}, nil
}

func (s *SQL) Name() string {
	return s.modName
}

func (s *SQL) InstanceName() string {
	return s.instName
}

func (s *SQL) Init(cfg *config.Map) error {
	var (
		driver      string
		initQueries []string
		dsnParts    []string
		lookupQuery string

		addQuery    string
		listQuery   string
		removeQuery string
		setQuery    string
	)
	cfg.StringList("init", false, false, nil, &initQueries)
	cfg.Enum("driver", false, true, []string{"postgres", "mysql", "sqlite3"}, "", &driver)
	cfg.StringList("dsn", false, true, nil, &dsnParts)

	cfg.String("lookup", false, true, "", &lookupQuery)

	cfg.String("add", false, false, "", &addQuery)
	cfg.String("list", false, false, "", &listQuery)
	cfg.String("del", false, false, "", &removeQuery)
	cfg.String("set", false, false, "", &setQuery)
	if _, err := cfg.Process(); err != nil {
		return err
	}

	if driver == "sqlite3" {
		driver = sqliteDriver
	}
	db, err := sql.Open(driver, strings.Join(dsnParts, " "))
	if err != nil {
		return config.NodeErr(cfg.Block, "failed to open db: %v", err)
	}
	s.db = db

	for _, init := range initQueries {
		if _, err := db.Exec(init); err != nil {
			return config.NodeErr(cfg.Block, "init query failed: %v", err)
		}
	}

	for _, q := range []struct {
		name  string
		query string
		stmt  **sql.Stmt
	}{
		{"lookup", lookupQuery, &s.lookup},
		{"add", addQuery, &s.add},
		{"list", listQuery, &s.list},
		{"set", setQuery, &s.set},
		{"del", removeQuery, &s.del},
	} {
		if q.query == "" {
			continue
		}
		*q.stmt, err = db.Prepare(q.query)
		if err != nil {
			return config.NodeErr(cfg.Block, "failed to prepare %s query: %v", q.name, err)
		}
	}

	return nil
}

func (s *SQL) Close() error {
	for _, stmt := range []*sql.Stmt{s.lookup, s.add, s.list, s.set, s.del} {
		if stmt != nil {
			stmt.Close()
		}
	}
	return s.db.Close()
}

func (s *SQL) Lookup(ctx context.Context, val string) (string, bool, error) {
	var repl sql.NullString
	row := s.lookup.QueryRowContext(ctx, val)
	if err := row.Scan(&repl); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("%s: lookup %s: %w", s.modName, val, err)
	}
	if !repl.Valid {
		return "", false, nil
	}
	return repl.String, true, nil
}

func (s *SQL) Keys() ([]string, error) {
	if s.list == nil {
		return nil, fmt.Errorf("%s: table is not mutable (no 'list' query)", s.modName)
	}

	rows, err := s.list.Query()
	if err != nil {
		return nil, fmt.Errorf("%s: list: %w", s.modName, err)
	}
	defer rows.Close()
	var list []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("%s: list: %w", s.modName, err)
		}
		list = append(list, key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: list: %w", s.modName, err)
	}
	return list, nil
}

func (s *SQL) RemoveKey(k string) error {
	if s.del == nil {
		return fmt.Errorf("%s: table is not mutable (no 'del' query)", s.modName)
	}

	_, err := s.del.Exec(k)
	if err != nil {
		return fmt.Errorf("%s: del %s: %w", s.modName, k, err)
	}
	return nil
}

// SetKey runs the 'set' query for existing keys and the 'add' query for new
// ones.
func (s *SQL) SetKey(k, v string) error {
	if s.set == nil {
		return fmt.Errorf("%s: table is not mutable (no 'set' query)", s.modName)
	}
	if s.add == nil {
		return fmt.Errorf("%s: table is not mutable (no 'add' query)", s.modName)
	}

	_, exists, err := s.Lookup(context.Background(), k)
	if err != nil {
		return err
	}
	if exists {
		if _, err := s.set.Exec(k, v); err != nil {
			return fmt.Errorf("%s: set %s: %w", s.modName, k, err)
		}
		return nil
	}
	if _, err := s.add.Exec(k, v); err != nil {
		return fmt.Errorf("%s: add %s: %w", s.modName, k, err)
	}
	return nil
}

func init() {
	var _ module.MutableTable = &SQL{}
	module.Register("table.sql_query", NewSQL)
}
