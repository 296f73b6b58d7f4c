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
	"encoding/base64"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/superkkt/ascmd/session"
)

// plainCodec keeps the XML as it is so that tests can read the wire body.
type plainCodec struct{}

func (r plainCodec) Encode(xml string) ([]byte, error) {
	return []byte("WBXML:" + xml), nil
}

func (r plainCodec) Decode(data []byte) (string, error) {
	return strings.TrimPrefix(string(data), "WBXML:"), nil
}

type capturedRequest struct {
	URL    *url.URL
	Header http.Header
	Body   string
}

func newTestServer(t *testing.T, contentType string, status int, body []byte) (*httptest.Server, *capturedRequest) {
	captured := new(capturedRequest)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, err := io.ReadAll(r.Body)
		if err != nil {
			t.Errorf("failed to read request body: %v", err)
		}
		captured.URL = r.URL
		captured.Header = r.Header.Clone()
		captured.Body = string(b)

		if contentType != "" {
			w.Header().Set("Content-Type", contentType)
		}
		w.WriteHeader(status)
		w.Write(body)
	}))
	t.Cleanup(srv.Close)

	return srv, captured
}

func newTestSender(srv *httptest.Server) *HTTPSender {
	return NewHTTPSender(HTTPConfig{
		Scheme: "http",
		Host:   strings.TrimPrefix(srv.URL, "http://"),
		Codec:  plainCodec{},
	})
}

func testSession() *session.Context {
	return &session.Context{
		UserName:        "user",
		Password:        "secret",
		Domain:          "example",
		DeviceID:        "dev1",
		DeviceType:      "SmartPhone",
		PolicyKey:       "1234",
		AcceptLanguage:  "en-us",
		HeaderEncoding:  session.PlainText,
		ProtocolVersion: session.Version141,
	}
}

func TestSendPlainText(t *testing.T) {
	srv, captured := newTestServer(t, wbxmlContentType, http.StatusOK, []byte(`WBXML:<FolderSync><Status>1</Status></FolderSync>`))
	s := testSession()

	resp, err := newTestSender(srv).Send(s, &RawRequest{Command: FolderSync, Body: `<FolderSync xmlns="FolderHierarchy:"><SyncKey>0</SyncKey></FolderSync>`})
	if err != nil {
		t.Fatal(err)
	}

	if captured.URL.Path != "/Microsoft-Server-ActiveSync" {
		t.Errorf("unexpected path: %v", captured.URL.Path)
	}
	q := captured.URL.Query()
	if q.Get("Cmd") != "FolderSync" || q.Get("User") != "user" || q.Get("DeviceId") != "dev1" || q.Get("DeviceType") != "SmartPhone" {
		t.Errorf("unexpected query: %v", captured.URL.RawQuery)
	}
	h := captured.Header
	if h.Get("MS-ASProtocolVersion") != "14.1" || h.Get("X-MS-PolicyKey") != "1234" || h.Get("Accept-Language") != "en-us" {
		t.Errorf("unexpected headers: %v", h)
	}
	if h.Get("Content-Type") != wbxmlContentType {
		t.Errorf("unexpected content type: %v", h.Get("Content-Type"))
	}
	if h.Get("MS-ASAcceptMultiPart") != "" {
		t.Error("MS-ASAcceptMultiPart should not be set")
	}
	user, pass, ok := (&http.Request{Header: h}).BasicAuth()
	if !ok || user != `example\user` || pass != "secret" {
		t.Errorf("unexpected credential: user=%v, pass=%v", user, pass)
	}
	if !strings.HasPrefix(captured.Body, "WBXML:<FolderSync") {
		t.Errorf("request body is not encoded: %v", captured.Body)
	}

	if resp.StatusCode != http.StatusOK || resp.XML != "<FolderSync><Status>1</Status></FolderSync>" {
		t.Errorf("unexpected response: status=%v, xml=%v", resp.StatusCode, resp.XML)
	}
	if resp.RequestXML == "" || resp.Request == nil || resp.Method != http.MethodPost {
		t.Errorf("request is not captured: %+v", resp)
	}
}

func TestSendBase64(t *testing.T) {
	srv, captured := newTestServer(t, "", http.StatusOK, nil)
	s := testSession()
	s.SetHeaderEncoding(session.Base64)

	if _, err := newTestSender(srv).Send(s, &RawRequest{Command: Ping}); err != nil {
		t.Fatal(err)
	}

	if captured.Header.Get("MS-ASProtocolVersion") != "" || captured.Header.Get("X-MS-PolicyKey") != "" {
		t.Errorf("base64 encoded query should not have the plain text headers: %v", captured.Header)
	}
	raw, err := base64.StdEncoding.DecodeString(captured.URL.RawQuery)
	if err != nil {
		// The query is URL escaped.
		unescaped, _ := url.QueryUnescape(captured.URL.RawQuery)
		raw, err = base64.StdEncoding.DecodeString(unescaped)
		if err != nil {
			t.Fatalf("query is not base64 encoded: %v", captured.URL.RawQuery)
		}
	}
	if raw[0] != 141 || raw[1] != 18 {
		t.Fatalf("unexpected version or command code: %v", raw[:2])
	}
}

func TestSendGetHierarchyIsPlainText(t *testing.T) {
	srv, captured := newTestServer(t, "", http.StatusOK, nil)
	s := testSession()
	s.SetHeaderEncoding(session.Base64)

	if _, err := newTestSender(srv).Send(s, &RawRequest{Command: GetHierarchy}); err != nil {
		t.Fatal(err)
	}
	if captured.URL.Query().Get("Cmd") != "GetHierarchy" {
		t.Fatalf("unexpected query: %v", captured.URL.RawQuery)
	}
}

func TestSendMIMEWithProtocol12(t *testing.T) {
	srv, captured := newTestServer(t, "", http.StatusOK, nil)
	s := testSession()
	s.ProtocolVersion = session.Version121

	body := "<SendMail xmlns=\"ComposeMail:\"><Mime><![CDATA[To: a@example.com\nSubject: x\n\nbody\n]]></Mime></SendMail>"
	if _, err := newTestSender(srv).Send(s, &RawRequest{Command: SendMail, Body: body}); err != nil {
		t.Fatal(err)
	}
	if captured.Header.Get("Content-Type") != rfc822ContentType {
		t.Errorf("unexpected content type: %v", captured.Header.Get("Content-Type"))
	}
	if captured.Body != "To: a@example.com\r\nSubject: x\r\n\r\nbody\r\n" {
		t.Errorf("unexpected body: %q", captured.Body)
	}
}

func TestSendMIMEWithCDATAEnd(t *testing.T) {
	srv, captured := newTestServer(t, "", http.StatusOK, nil)
	s := testSession()
	s.ProtocolVersion = session.Version121

	// encoding/xml splits the message into two CDATA sections at "]]>".
	msg := "To: a@example.com\r\nSubject: x\r\n\r\nif a[b[0]]>1 {\r\n"
	req := &SendMailRequest{ClientId: "1", Mime: MIMEData{Data: msg}}
	if _, err := NewClient(newTestSender(srv)).SendMail(s, req); err != nil {
		t.Fatal(err)
	}
	if captured.Body != msg {
		t.Errorf("unexpected body: %q", captured.Body)
	}
}

func TestMIMEData(t *testing.T) {
	tests := []struct {
		body string
		data string
		ok   bool
	}{
		{"<SendMail><Mime><![CDATA[a]]]]><![CDATA[>b]]></Mime></SendMail>", "a]]>b", true},
		{"<SendMail><Mime>a &amp; b</Mime></SendMail>", "a & b", true},
		{"<SendMail><ClientId>1</ClientId></SendMail>", "", false},
		{"<SendMail><Mime><![CDATA[a", "", false},
	}

	for i, v := range tests {
		data, ok := mimeData(v.body)
		if ok != v.ok {
			t.Fatalf("#%v: expected ok=%v, got %v", i, v.ok, ok)
		}
		if ok && string(data) != v.data {
			t.Fatalf("#%v: expected %q, got %q", i, v.data, data)
		}
	}
}

func TestSendAutodiscover(t *testing.T) {
	srv, captured := newTestServer(t, "text/xml; charset=utf-8", http.StatusOK, []byte("<Autodiscover/>"))
	s := testSession()

	resp, err := newTestSender(srv).Send(s, &RawRequest{Command: Autodiscover, Body: "<Autodiscover/>", ContentType: ContentHTML.MIMEType()})
	if err != nil {
		t.Fatal(err)
	}
	if captured.URL.Path != "/autodiscover/autodiscover.xml" || captured.URL.RawQuery != "" {
		t.Errorf("unexpected URL: %v", captured.URL)
	}
	if captured.Header.Get("Content-Type") != "text/html" || captured.Body != "<Autodiscover/>" {
		t.Errorf("unexpected request: %v, %v", captured.Header, captured.Body)
	}
	if resp.XML != "<Autodiscover/>" {
		t.Errorf("unexpected response XML: %v", resp.XML)
	}
}

func TestSendMultiPart(t *testing.T) {
	body := multipartBody([]byte("WBXML:<ItemOperations/>"), []byte("attachment"))
	srv, captured := newTestServer(t, multipartContentType, http.StatusOK, body)

	resp, err := newTestSender(srv).Send(testSession(), &RawRequest{Command: ItemOperations, Body: "<ItemOperations/>", AcceptMultiPart: true})
	if err != nil {
		t.Fatal(err)
	}
	if captured.Header.Get("MS-ASAcceptMultiPart") != "T" {
		t.Error("MS-ASAcceptMultiPart should be set")
	}
	if resp.XML != "<ItemOperations/>" || len(resp.Parts) != 2 {
		t.Fatalf("unexpected response: xml=%v, parts=%v", resp.XML, resp.Parts)
	}
	data, err := resp.PartData(1)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "attachment" {
		t.Fatalf("unexpected part: %q", data)
	}
}

func TestSendNonSuccessStatus(t *testing.T) {
	srv, _ := newTestServer(t, "text/html", 449, []byte("<html>Retry with policy</html>"))

	resp, err := newTestSender(srv).Send(testSession(), &RawRequest{Command: FolderSync, Body: "<FolderSync/>"})
	if err != nil {
		t.Fatalf("HTTP status should not be an error: %v", err)
	}
	if resp.StatusCode != 449 || resp.XML != "" {
		t.Fatalf("unexpected response: status=%v, xml=%v", resp.StatusCode, resp.XML)
	}
}

func TestSendConnectionError(t *testing.T) {
	srv, _ := newTestServer(t, "", http.StatusOK, nil)
	sender := newTestSender(srv)
	srv.Close()

	if _, err := sender.Send(testSession(), &RawRequest{Command: FolderSync}); err == nil {
		t.Fatal("we expect an error, but we got nil error!")
	}
}

func TestRemoveAuthInfo(t *testing.T) {
	h := http.Header{}
	h.Set("Authorization", "Basic xxx")
	h.Set("X-MS-PolicyKey", "1")

	out := removeAuthInfo(h)
	if out.Get("Authorization") != "" || out.Get("X-MS-PolicyKey") != "1" {
		t.Fatalf("unexpected header: %v", out)
	}
	if h.Get("Authorization") == "" {
		t.Fatal("the original header should not be modified")
	}
}
