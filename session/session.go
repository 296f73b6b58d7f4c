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

package session

import (
	"fmt"
	"strings"
)

// HeaderEncoding selects how the command, user and device identity are
// carried in the request URI.
type HeaderEncoding int

const (
	PlainText HeaderEncoding = iota
	Base64
)

func (r HeaderEncoding) String() string {
	switch r {
	case PlainText:
		return "PlainText"
	case Base64:
		return "Base64"
	default:
		return fmt.Sprintf("HeaderEncoding(%d)", int(r))
	}
}

func ParseHeaderEncoding(s string) (HeaderEncoding, error) {
	switch strings.ToUpper(s) {
	case "PLAINTEXT":
		return PlainText, nil
	case "BASE64":
		return Base64, nil
	default:
		return 0, fmt.Errorf("invalid header encoding type: %v (should be Base64 or PlainText)", s)
	}
}

// Version is an ActiveSync protocol version in the dotted form, e.g. "14.1".
type Version string

const (
	Version121 Version = "12.1"
	Version140 Version = "14.0"
	Version141 Version = "14.1"
	Version160 Version = "16.0"
	Version161 Version = "16.1"
)

var versionCodes = map[Version]byte{
	Version121: 121,
	Version140: 140,
	Version141: 141,
	Version160: 160,
	Version161: 161,
}

// ParseVersion accepts both the dotted ("14.0") and the compact ("140")
// spellings and returns the dotted one.
func ParseVersion(s string) (Version, error) {
	v := strings.TrimSpace(s)
	if len(v) == 3 && !strings.Contains(v, ".") {
		v = v[:2] + "." + v[2:]
	}
	if _, ok := versionCodes[Version(v)]; !ok {
		return "", fmt.Errorf("invalid ActiveSync protocol version: %v (should be 12.1, 14.0, 14.1, 16.0 or 16.1)", s)
	}

	return Version(v), nil
}

// Code returns the one byte version code used by the base64 encoded query.
func (r Version) Code() (byte, error) {
	c, ok := versionCodes[r]
	if !ok {
		return 0, fmt.Errorf("unknown ActiveSync protocol version: %v", string(r))
	}

	return c, nil
}

// Major returns the part before the dot, e.g. "12" for "12.1".
func (r Version) Major() string {
	v := string(r)
	if i := strings.IndexByte(v, '.'); i >= 0 {
		return v[:i]
	}

	return v
}

// Is reports whether r and s name the same version. Both spellings of s
// are accepted and the comparison ignores case.
func (r Version) Is(s string) bool {
	if strings.EqualFold(strings.TrimSpace(string(r)), strings.TrimSpace(s)) {
		return true
	}
	v1, err := ParseVersion(string(r))
	if err != nil {
		return false
	}
	v2, err := ParseVersion(s)
	if err != nil {
		return false
	}

	return v1 == v2
}

// Context holds the identity and device settings that parameterize every
// outgoing request. It is owned by a single adapter and is not safe for
// concurrent use; a change is seen by the next request only.
type Context struct {
	UserName        string
	Password        string
	Domain          string
	DeviceID        string
	DeviceType      string
	PolicyKey       string
	AcceptLanguage  string
	HeaderEncoding  HeaderEncoding
	ProtocolVersion Version
	// Locale is carried by the base64 encoded query only.
	Locale uint16
}

// Clone returns a copy of r.
func (r *Context) Clone() *Context {
	c := *r
	return &c
}

func (r *Context) SetCredential(userName, password, domain string) {
	r.UserName = userName
	r.Password = password
	r.Domain = domain
}

func (r *Context) SetDeviceID(id string) {
	r.DeviceID = id
}

func (r *Context) SetDeviceType(t string) {
	r.DeviceType = t
}

func (r *Context) SetPolicyKey(key string) {
	r.PolicyKey = key
}

func (r *Context) SetHeaderEncoding(e HeaderEncoding) {
	r.HeaderEncoding = e
}

// AuthUser returns the user name for the basic authentication, qualified
// with the domain if there is one.
func (r *Context) AuthUser() string {
	if r.Domain == "" {
		return r.UserName
	}

	return fmt.Sprintf(`%v\%v`, r.Domain, r.UserName)
}
