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
	"net/http"
	"sort"

	"github.com/superkkt/ascmd/session"
)

// RawRequest is a command request before the transport encoding.
type RawRequest struct {
	Command CommandName
	// Parameters are the URI command parameters. Options holds an integer
	// in the decimal form.
	Parameters map[CmdParameter]string
	// Body is the request XML. It is WBXML encoded by the sender unless
	// ContentType says otherwise.
	Body        string
	ContentType string
	// AcceptMultiPart requests a multipart response. It is sent as the
	// MS-ASAcceptMultiPart header in the plain text query.
	AcceptMultiPart bool
}

// SortedParameters returns the parameter names in a stable order so that
// the same request always produces the same URI.
func (r *RawRequest) SortedParameters() []CmdParameter {
	keys := make([]CmdParameter, 0, len(r.Parameters))
	for k := range r.Parameters {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	return keys
}

// RawResponse is the transport level result of a request together with
// the captured request and response XML.
type RawResponse struct {
	StatusCode int
	Header     http.Header
	// Body is the undecoded response body.
	Body []byte
	// XML is the decoded response body. It is empty if the response has
	// no XML body.
	XML string
	// Parts holds the part metadata of a multipart response.
	Parts []Part

	URL        string
	Method     string
	Request    *RawRequest
	RequestXML string
}

// Raw allows every typed response that embeds *RawResponse to satisfy Response.
func (r *RawResponse) Raw() *RawResponse {
	return r
}

// Part is a part in a multipart response body.
type Part struct {
	Offset int
	Length int
}

type Response interface {
	Raw() *RawResponse
}

// Sender sends a raw request built from the session values and returns
// the raw response. A non-2xx HTTP status is a response, not an error.
type Sender interface {
	Send(s *session.Context, req *RawRequest) (*RawResponse, error)
}
