/*
 * Omega is an advanced email service that supports Microsoft ActiveSync.
 *
 * Copyright (C) 2016, 2017 Kitae Kim <superkkt@gmail.com>
 *
 * This program is free software; you can redistribute it and/or modify
 * it under the terms of the GNU General Public License as published by
 * the Free Software Foundation; either version 2 of the License, or
 * any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License along
 * with this program; if not, write to the Free Software Foundation, Inc.,
 * 51 Franklin Street, Fifth Floor, Boston, MA 02110-1301 USA.
 */

package capture

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/superkkt/logger"

	"github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"
)

const (
	maxIdleConn        = 8
	maxOpenConn        = 24
	maxDeadlockRetry   = 5
	mysqlDeadlockError = 1213
)

var schemas = map[string]string{
	"mysql": `CREATE TABLE IF NOT EXISTS exchange (
		id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
		created_at DATETIME(6) NOT NULL,
		user_name VARCHAR(255) NOT NULL,
		device_id VARCHAR(255) NOT NULL,
		command VARCHAR(64) NOT NULL,
		method VARCHAR(16) NOT NULL,
		url TEXT NOT NULL,
		status INT NOT NULL,
		request MEDIUMTEXT NOT NULL,
		response MEDIUMTEXT NOT NULL,
		PRIMARY KEY (id),
		INDEX (command)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	"sqlite3": `CREATE TABLE IF NOT EXISTS exchange (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		created_at DATETIME NOT NULL,
		user_name TEXT NOT NULL,
		device_id TEXT NOT NULL,
		command TEXT NOT NULL,
		method TEXT NOT NULL,
		url TEXT NOT NULL,
		status INTEGER NOT NULL,
		request TEXT NOT NULL,
		response TEXT NOT NULL
	)`,
}

// SQLRecorder stores the exchanges in the exchange table of a MySQL or
// SQLite database.
type SQLRecorder struct {
	handle *sql.DB
}

// OpenSQL opens the database of driver, either mysql or sqlite3, and
// creates the exchange table if it does not exist.
func OpenSQL(driver, dsn string) (*SQLRecorder, error) {
	schema, ok := schemas[driver]
	if !ok {
		return nil, fmt.Errorf("unsupported capture driver: %v", driver)
	}
	if driver == "mysql" {
		c, err := mysql.ParseDSN(dsn)
		if err != nil {
			return nil, fmt.Errorf("invalid MySQL DSN: %v", err)
		}
		// Scan DATETIME into time.Time.
		c.ParseTime = true
		if c.Timeout == 0 {
			c.Timeout = 5 * time.Second
		}
		dsn = c.FormatDSN()
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening %v database: %v", driver, err)
	}
	if driver == "sqlite3" {
		// Every connection to :memory: has its own database.
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(maxOpenConn)
		db.SetMaxIdleConns(maxIdleConn)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to %v database: %v", driver, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating the exchange table: %v", err)
	}

	return &SQLRecorder{handle: db}, nil
}

func isDeadlock(err error) bool {
	var e *mysql.MySQLError
	if !errors.As(err, &e) {
		return false
	}

	return e.Number == mysqlDeadlockError
}

// query runs f in a transaction. The transaction is retried if it is
// aborted by a deadlock.
func (r *SQLRecorder) query(f func(*sql.Tx) error) (err error) {
	for i := 0; i < maxDeadlockRetry; i++ {
		if err = r.tryQuery(f); err == nil || !isDeadlock(err) {
			return err
		}
		logger.Debug(fmt.Sprintf("capture: deadlock detected, retrying the transaction (%v/%v)", i+1, maxDeadlockRetry))
	}

	return err
}

func (r *SQLRecorder) tryQuery(f func(*sql.Tx) error) error {
	tx, err := r.handle.Begin()
	if err != nil {
		return err
	}
	if err := f(tx); err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit()
}

func (r *SQLRecorder) Record(e Exchange) error {
	return r.query(func(tx *sql.Tx) error {
		qry := "INSERT INTO exchange (created_at, user_name, device_id, command, method, url, status, request, response) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)"
		_, err := tx.Exec(qry, e.Time.UTC(), e.User, e.DeviceID, e.Command, e.Method, e.URL, e.StatusCode, e.RequestXML, e.ResponseXML)
		return err
	})
}

// Exchanges returns the latest limit exchanges, newest first. An empty
// command matches every command.
func (r *SQLRecorder) Exchanges(command string, limit int) (result []Exchange, err error) {
	f := func(tx *sql.Tx) error {
		result = nil
		qry := "SELECT id, created_at, user_name, device_id, command, method, url, status, request, response FROM exchange"
		args := []interface{}{}
		if command != "" {
			qry += " WHERE command = ?"
			args = append(args, command)
		}
		qry += " ORDER BY id DESC LIMIT ?"
		args = append(args, limit)

		rows, err := tx.Query(qry, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var v Exchange
			if err := rows.Scan(&v.ID, &v.Time, &v.User, &v.DeviceID, &v.Command, &v.Method, &v.URL, &v.StatusCode, &v.RequestXML, &v.ResponseXML); err != nil {
				return err
			}
			result = append(result, v)
		}

		return rows.Err()
	}
	if err := r.query(f); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *SQLRecorder) Close() error {
	return r.handle.Close()
}
