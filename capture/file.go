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
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// FileRecorder appends the exchanges to a text log.
type FileRecorder struct {
	mu     sync.Mutex
	writer io.Writer
	closer io.Closer
}

// OpenFile opens path in the append mode. The file is created if it does not exist.
func OpenFile(path string) (*FileRecorder, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0644)
	if err != nil {
		return nil, fmt.Errorf("opening the capture file: %v", err)
	}

	return &FileRecorder{writer: f, closer: f}, nil
}

func NewFileRecorder(w io.Writer) *FileRecorder {
	return &FileRecorder{writer: w}
}

func (r *FileRecorder) Record(e Exchange) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := fmt.Fprintf(r.writer, "%v %v user=%v device=%v status=%v url=%v\n>>> %v\n<<< %v\n\n",
		e.Time.Format(time.RFC3339Nano), e.Command, e.User, e.DeviceID, e.StatusCode, e.URL, e.RequestXML, e.ResponseXML)

	return err
}

func (r *FileRecorder) Close() error {
	if r.closer == nil {
		return nil
	}

	return r.closer.Close()
}
