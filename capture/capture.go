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

// Package capture persists the request and response of every command
// exchange so that a test run can be examined afterwards.
package capture

import (
	"time"

	"github.com/superkkt/ascmd/activesync"
	"github.com/superkkt/ascmd/session"
)

// Exchange is a pair of a command request and its response.
type Exchange struct {
	ID          int64
	Time        time.Time
	User        string
	DeviceID    string
	Command     string
	Method      string
	URL         string
	StatusCode  int
	RequestXML  string
	ResponseXML string
}

// Recorder should be safe for concurrent use by multiple adapters.
type Recorder interface {
	Record(e Exchange) error
}

// NewExchange returns the exchange of resp sent with the session values of s.
func NewExchange(s *session.Context, cmd activesync.CommandName, resp *activesync.RawResponse) Exchange {
	e := Exchange{
		Time:     time.Now(),
		User:     s.AuthUser(),
		DeviceID: s.DeviceID,
		Command:  string(cmd),
	}
	if resp != nil {
		e.Method = resp.Method
		e.URL = resp.URL
		e.StatusCode = resp.StatusCode
		e.RequestXML = resp.RequestXML
		e.ResponseXML = resp.XML
	}

	return e
}
