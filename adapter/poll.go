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

package adapter

import (
	"fmt"
	"time"

	"github.com/superkkt/ascmd/activesync"

	"github.com/superkkt/logger"
)

// Sleeper blocks the calling goroutine for d.
type Sleeper func(d time.Duration)

// poll calls send, then calls it again after the wait time while it returns
// the pending status, up to the retry count. The last status is returned
// even if it is still pending.
func (r *Dispatcher) poll(cmd activesync.CommandName, send func() (status string, err error)) error {
	status, err := send()
	if err != nil {
		return err
	}

	attempts := 0
	for status == activesync.SearchPending && attempts < r.retryCount {
		r.sleep(r.waitTime)
		attempts++
		if status, err = send(); err != nil {
			return err
		}
	}
	logger.Debug(fmt.Sprintf("%v: %v request(s) sent, status=%v", cmd, attempts+1, status))
	if status == activesync.SearchPending {
		logger.Info(fmt.Sprintf("%v: the result is still pending after %v retries", cmd, attempts))
	}

	return nil
}
