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
	"crypto/tls"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/superkkt/ascmd/mime"
	"github.com/superkkt/ascmd/session"

	"github.com/superkkt/logger"
)

const (
	defaultEndpoint             = "Microsoft-Server-ActiveSync"
	defaultAutodiscoverEndpoint = "autodiscover/autodiscover.xml"
	defaultTimeout              = 5 * time.Minute
)

type HTTPConfig struct {
	// Scheme is either http or https.
	Scheme               string
	Host                 string
	Endpoint             string
	AutodiscoverEndpoint string
	TLS                  *tls.Config
	// Timeout bounds a whole request including a long Ping or Sync wait.
	Timeout   time.Duration
	UserAgent string
	// Codec is the WBXML codec. WBXML{} is used if it is nil.
	Codec Codec
}

// HTTPSender is a Sender that talks to an ActiveSync server over HTTP(S).
type HTTPSender struct {
	config HTTPConfig
	client *http.Client
}

func NewHTTPSender(c HTTPConfig) *HTTPSender {
	if c.Scheme == "" {
		c.Scheme = "https"
	}
	c.Scheme = strings.ToLower(c.Scheme)
	if c.Endpoint == "" {
		c.Endpoint = defaultEndpoint
	}
	if c.AutodiscoverEndpoint == "" {
		c.AutodiscoverEndpoint = defaultAutodiscoverEndpoint
	}
	if c.Timeout == 0 {
		c.Timeout = defaultTimeout
	}
	if c.Codec == nil {
		c.Codec = WBXML{}
	}

	return &HTTPSender{
		config: c,
		client: &http.Client{
			Timeout:   c.Timeout,
			Transport: &http.Transport{TLSClientConfig: c.TLS, Proxy: http.ProxyFromEnvironment},
		},
	}
}

func (r *HTTPSender) Send(s *session.Context, req *RawRequest) (*RawResponse, error) {
	if req == nil {
		return nil, errors.New("nil raw request")
	}

	u, err := r.requestURL(s, req)
	if err != nil {
		return nil, err
	}
	body, contentType, err := r.encodeBody(s, req)
	if err != nil {
		return nil, err
	}

	var reader io.Reader
	if len(body) > 0 {
		reader = bytes.NewReader(body)
	}
	httpReq, err := http.NewRequest(http.MethodPost, u, reader)
	if err != nil {
		return nil, err
	}
	if len(body) > 0 {
		httpReq.Header.Set("Content-Type", contentType)
	}
	httpReq.SetBasicAuth(s.AuthUser(), s.Password)
	if r.config.UserAgent != "" {
		httpReq.Header.Set("User-Agent", r.config.UserAgent)
	}
	if req.Command != Autodiscover && r.encoding(s, req) == session.PlainText {
		setPlainTextHeaders(httpReq.Header, s, req)
	}
	logger.Debug(fmt.Sprintf("Request: Method=%v, URL=%v, Header=%v, Body=%v", httpReq.Method, u, removeAuthInfo(httpReq.Header), req.Body))

	httpResp, err := r.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %v", err)
	}
	resp := &RawResponse{
		StatusCode: httpResp.StatusCode,
		Header:     httpResp.Header,
		Body:       respBody,
		URL:        u,
		Method:     httpReq.Method,
		Request:    req,
		RequestXML: req.Body,
	}
	if err := r.decodeBody(resp); err != nil {
		return nil, err
	}
	logger.Debug(fmt.Sprintf("Response: Status=%v, Header=%v, Body=%v", resp.StatusCode, resp.Header, resp.XML))

	return resp, nil
}

// GetHierarchy is not defined in the base64 encoded query.
func (r *HTTPSender) encoding(s *session.Context, req *RawRequest) session.HeaderEncoding {
	if req.Command == GetHierarchy {
		return session.PlainText
	}

	return s.HeaderEncoding
}

func (r *HTTPSender) requestURL(s *session.Context, req *RawRequest) (string, error) {
	if req.Command == Autodiscover {
		return fmt.Sprintf("%v://%v/%v", r.config.Scheme, r.config.Host, r.config.AutodiscoverEndpoint), nil
	}

	base := fmt.Sprintf("%v://%v/%v", r.config.Scheme, r.config.Host, r.config.Endpoint)
	switch r.encoding(s, req) {
	case session.PlainText:
		return base + "?" + plainTextQuery(s, req), nil
	case session.Base64:
		q, err := base64Query(s, req)
		if err != nil {
			return "", err
		}
		return base + "?" + url.QueryEscape(q), nil
	default:
		return "", fmt.Errorf("not supported header encoding type: %v", s.HeaderEncoding)
	}
}

func setPlainTextHeaders(h http.Header, s *session.Context, req *RawRequest) {
	if s.AcceptLanguage != "" {
		h.Set("Accept-Language", s.AcceptLanguage)
	}
	h.Set("MS-ASProtocolVersion", string(s.ProtocolVersion))
	if s.PolicyKey != "" {
		h.Set("X-MS-PolicyKey", s.PolicyKey)
	}
	if req.AcceptMultiPart {
		h.Set("MS-ASAcceptMultiPart", "T")
	}
}

func (r *HTTPSender) encodeBody(s *session.Context, req *RawRequest) (body []byte, contentType string, err error) {
	if len(req.Body) == 0 {
		return nil, "", nil
	}

	switch {
	case req.Command == Autodiscover:
		contentType = req.ContentType
		if contentType == "" {
			contentType = ContentXML.MIMEType()
		}
		return []byte(req.Body), contentType, nil
	case s.ProtocolVersion.Major() == "12" && isMailCommand(req.Command):
		// Protocol version 12.x carries the MIME message itself.
		m, ok := mimeData(req.Body)
		if !ok {
			return nil, "", fmt.Errorf("%v request does not have MIME data", req.Command)
		}
		return mime.ConvertToCRLF(m), rfc822ContentType, nil
	case req.ContentType != "" && req.ContentType != wbxmlContentType:
		return []byte(req.Body), req.ContentType, nil
	default:
		encoded, err := r.config.Codec.Encode(req.Body)
		if err != nil {
			return nil, "", fmt.Errorf("failed to encode %v request: %v", req.Command, err)
		}
		return encoded, wbxmlContentType, nil
	}
}

// mimeData returns the content of the Mime element in body. A message that
// contains "]]>" is split into several CDATA sections, which are joined.
func mimeData(body string) ([]byte, bool) {
	var (
		data  []byte
		found bool
		depth int
	)
	d := xml.NewDecoder(strings.NewReader(body))
	for {
		t, err := d.Token()
		if err != nil {
			// io.EOF or a malformed body
			return data, found && err == io.EOF
		}
		switch v := t.(type) {
		case xml.StartElement:
			if depth > 0 {
				depth++
			} else if v.Name.Local == "Mime" && !found {
				depth, found = 1, true
			}
		case xml.EndElement:
			if depth > 0 {
				depth--
			}
		case xml.CharData:
			if depth == 1 {
				data = append(data, v...)
			}
		}
	}
}

func isMailCommand(cmd CommandName) bool {
	return cmd == SendMail || cmd == SmartForward || cmd == SmartReply
}

func (r *HTTPSender) decodeBody(resp *RawResponse) error {
	if len(resp.Body) == 0 {
		return nil
	}

	contentType := strings.ToLower(resp.Header.Get("Content-Type"))
	switch {
	case strings.HasPrefix(contentType, wbxmlContentType):
		dec, err := r.config.Codec.Decode(resp.Body)
		if err != nil {
			return err
		}
		resp.XML = dec
	case strings.HasPrefix(contentType, multipartContentType):
		parts, err := parseParts(resp.Body)
		if err != nil {
			return err
		}
		resp.Parts = parts
		// The first part is the WBXML encoded response.
		if len(parts) > 0 && parts[0].Length > 0 {
			data, _ := resp.PartData(0)
			dec, err := r.config.Codec.Decode(data)
			if err != nil {
				return err
			}
			resp.XML = dec
		}
	case strings.HasPrefix(contentType, "text/xml"), strings.HasPrefix(contentType, "application/xml"):
		resp.XML = string(resp.Body)
	}

	return nil
}

// removeAuthInfo returns a deep copy of h except the Authorization header field.
func removeAuthInfo(h http.Header) http.Header {
	h2 := make(http.Header, len(h))
	for k, vv := range h {
		// Remove the Authorization header field to hide user's password.
		if k == "Authorization" {
			continue
		}
		vv2 := make([]string, len(vv))
		copy(vv2, vv)
		h2[k] = vv2
	}
	return h2
}
