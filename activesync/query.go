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

package activesync

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"net/url"
	"strconv"

	"github.com/superkkt/ascmd/session"
)

// plainTextQuery returns the query string of the plain text format:
// Cmd, User, DeviceId and DeviceType followed by the command parameters.
func plainTextQuery(s *session.Context, req *RawRequest) string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "Cmd=%v", url.QueryEscape(string(req.Command)))
	fmt.Fprintf(&buf, "&User=%v", url.QueryEscape(s.UserName))
	fmt.Fprintf(&buf, "&DeviceId=%v", url.QueryEscape(s.DeviceID))
	fmt.Fprintf(&buf, "&DeviceType=%v", url.QueryEscape(s.DeviceType))
	for _, k := range req.SortedParameters() {
		fmt.Fprintf(&buf, "&%v=%v", url.QueryEscape(string(k)), url.QueryEscape(req.Parameters[k]))
	}

	return buf.String()
}

// base64Query returns the base64 encoded query defined in MS-ASHTTP.
func base64Query(s *session.Context, req *RawRequest) (string, error) {
	version, err := s.ProtocolVersion.Code()
	if err != nil {
		return "", err
	}
	cmd, ok := req.Command.Code()
	if !ok {
		return "", fmt.Errorf("%v cannot be sent with the base64 encoded query", req.Command)
	}

	var buf bytes.Buffer
	buf.WriteByte(version)
	buf.WriteByte(cmd)
	locale := make([]byte, 2)
	binary.LittleEndian.PutUint16(locale, s.Locale)
	buf.Write(locale)

	if err := writeLengthPrefixed(&buf, []byte(s.DeviceID)); err != nil {
		return "", fmt.Errorf("device ID: %v", err)
	}
	// A policy key that is not a number is sent as an empty field.
	if key, err := strconv.ParseUint(s.PolicyKey, 10, 32); s.PolicyKey != "" && err == nil {
		v := make([]byte, 4)
		binary.LittleEndian.PutUint32(v, uint32(key))
		writeLengthPrefixed(&buf, v)
	} else {
		buf.WriteByte(0)
	}
	if err := writeLengthPrefixed(&buf, []byte(s.DeviceType)); err != nil {
		return "", fmt.Errorf("device type: %v", err)
	}

	for _, k := range req.SortedParameters() {
		code, ok := k.Code()
		if !ok {
			return "", fmt.Errorf("%v cannot be sent with the base64 encoded query", k)
		}
		buf.WriteByte(code)

		var value []byte
		if k == Options {
			n, err := strconv.Atoi(req.Parameters[k])
			if err != nil {
				return "", fmt.Errorf("invalid Options parameter: %v", req.Parameters[k])
			}
			value = []byte{byte(n & 0xff)}
		} else {
			value = []byte(req.Parameters[k])
		}
		if err := writeLengthPrefixed(&buf, value); err != nil {
			return "", fmt.Errorf("%v: %v", k, err)
		}
	}

	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

func writeLengthPrefixed(buf *bytes.Buffer, v []byte) error {
	if len(v) > 0xff {
		return fmt.Errorf("too long value: %v bytes", len(v))
	}
	buf.WriteByte(byte(len(v)))
	buf.Write(v)

	return nil
}
