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
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/superkkt/ascmd/activesync"
	"github.com/superkkt/ascmd/capture"
	"github.com/superkkt/ascmd/session"
	"github.com/superkkt/ascmd/verify"
)

type sent struct {
	session *session.Context
	request *activesync.RawRequest
}

// fakeSender replies with reply, or with a successful response whose root
// element is the command name if reply is nil.
type fakeSender struct {
	sent  []sent
	reply func(req *activesync.RawRequest) (*activesync.RawResponse, error)
}

func (r *fakeSender) Send(s *session.Context, req *activesync.RawRequest) (*activesync.RawResponse, error) {
	r.sent = append(r.sent, sent{session: s.Clone(), request: req})
	if r.reply != nil {
		return r.reply(req)
	}

	return okResponse(req, defaultXML(req.Command)), nil
}

func (r *fakeSender) last() sent {
	return r.sent[len(r.sent)-1]
}

func okResponse(req *activesync.RawRequest, xml string) *activesync.RawResponse {
	return &activesync.RawResponse{StatusCode: 200, Method: "POST", XML: xml, Request: req, RequestXML: req.Body}
}

func defaultXML(cmd activesync.CommandName) string {
	switch cmd {
	case activesync.GetAttachment:
		return ""
	case activesync.GetHierarchy:
		return "<Folders/>"
	case activesync.Autodiscover:
		return "<Autodiscover/>"
	case activesync.MoveItems:
		return "<MoveItems><Response><SrcMsgId>1:1</SrcMsgId><Status>3</Status></Response></MoveItems>"
	default:
		return fmt.Sprintf("<%v><Status>1</Status></%v>", cmd, cmd)
	}
}

type call struct {
	step verify.Step
	cmd  activesync.CommandName
}

// fakeVerifier records the calls and fails at failAt if it is set.
type fakeVerifier struct {
	calls  []call
	failAt *verify.Step
}

func (r *fakeVerifier) check(step verify.Step, cmd activesync.CommandName) error {
	r.calls = append(r.calls, call{step, cmd})
	if r.failAt != nil && *r.failAt == step {
		return errors.New("injected failure")
	}
	return nil
}

func (r *fakeVerifier) Transport(resp *activesync.RawResponse) error {
	return r.check(verify.Transport, resp.Request.Command)
}

func (r *fakeVerifier) WBXMLCapture(cmd activesync.CommandName, resp activesync.Response) error {
	return r.check(verify.WBXMLCapture, cmd)
}

func (r *fakeVerifier) Command(cmd activesync.CommandName, resp activesync.Response) error {
	return r.check(verify.Semantic, cmd)
}

func (r *fakeVerifier) steps() []verify.Step {
	out := make([]verify.Step, len(r.calls))
	for i, v := range r.calls {
		out[i] = v.step
	}
	return out
}

func testSession() *session.Context {
	return &session.Context{
		UserName:        "user1",
		Password:        "pw1",
		Domain:          "example",
		DeviceID:        "dev1",
		DeviceType:      "SmartPhone",
		HeaderEncoding:  session.PlainText,
		ProtocolVersion: session.Version141,
	}
}

type fixture struct {
	adapter  *Dispatcher
	sender   *fakeSender
	verifier *fakeVerifier
	sleeps   []time.Duration
}

func newFixture(t *testing.T, modify func(*Config)) *fixture {
	f := &fixture{
		sender:   &fakeSender{},
		verifier: &fakeVerifier{},
	}
	c := Config{
		Session:    testSession(),
		WaitTime:   100 * time.Millisecond,
		RetryCount: 3,
		Verifier:   f.verifier,
		Sleeper:    func(d time.Duration) { f.sleeps = append(f.sleeps, d) },
	}
	if modify != nil {
		modify(&c)
	}

	var err error
	if f.adapter, err = New(f.sender, c); err != nil {
		t.Fatal(err)
	}

	return f
}

// dispatchers calls every command of the adapter with a minimal request.
var dispatchers = map[activesync.CommandName]func(a Adapter) (activesync.Response, error){
	activesync.Autodiscover: func(a Adapter) (activesync.Response, error) {
		return a.Autodiscover(activesync.NewAutodiscoverRequest("user1@example.com"), activesync.ContentXML)
	},
	activesync.Sync: func(a Adapter) (activesync.Response, error) {
		return a.Sync(&activesync.SyncRequest{}, false)
	},
	activesync.SendMail: func(a Adapter) (activesync.Response, error) {
		return a.SendMail(&activesync.SendMailRequest{ClientId: "1"})
	},
	activesync.SmartForward: func(a Adapter) (activesync.Response, error) {
		return a.SmartForward(&activesync.SmartForwardRequest{ClientId: "1"})
	},
	activesync.SmartReply: func(a Adapter) (activesync.Response, error) {
		return a.SmartReply(&activesync.SmartReplyRequest{ClientId: "1"})
	},
	activesync.GetAttachment: func(a Adapter) (activesync.Response, error) {
		return a.GetAttachment(&activesync.GetAttachmentRequest{Parameters: activesync.Parameters{activesync.AttachmentName: "1:1:0"}})
	},
	activesync.FolderSync: func(a Adapter) (activesync.Response, error) {
		return a.FolderSync(&activesync.FolderSyncRequest{SyncKey: "0"})
	},
	activesync.FolderCreate: func(a Adapter) (activesync.Response, error) {
		return a.FolderCreate(&activesync.FolderCreateRequest{SyncKey: "1", ParentId: "0", DisplayName: "x", Type: 12})
	},
	activesync.FolderDelete: func(a Adapter) (activesync.Response, error) {
		return a.FolderDelete(&activesync.FolderDeleteRequest{SyncKey: "1", ServerId: "1"})
	},
	activesync.FolderUpdate: func(a Adapter) (activesync.Response, error) {
		return a.FolderUpdate(&activesync.FolderUpdateRequest{SyncKey: "1", ServerId: "1", ParentId: "0", DisplayName: "y"})
	},
	activesync.MoveItems: func(a Adapter) (activesync.Response, error) {
		return a.MoveItems(&activesync.MoveItemsRequest{Move: []activesync.MoveItem{{SrcMsgId: "1:1", SrcFldId: "1", DstFldId: "2"}}})
	},
	activesync.GetHierarchy: func(a Adapter) (activesync.Response, error) {
		return a.GetHierarchy()
	},
	activesync.GetItemEstimate: func(a Adapter) (activesync.Response, error) {
		return a.GetItemEstimate(&activesync.GetItemEstimateRequest{})
	},
	activesync.MeetingResponse: func(a Adapter) (activesync.Response, error) {
		return a.MeetingResponse(&activesync.MeetingResponseRequest{})
	},
	activesync.Search: func(a Adapter) (activesync.Response, error) {
		return a.Search(&activesync.SearchRequest{})
	},
	activesync.Find: func(a Adapter) (activesync.Response, error) {
		return a.Find(&activesync.FindRequest{})
	},
	activesync.Settings: func(a Adapter) (activesync.Response, error) {
		return a.Settings(&activesync.SettingsRequest{})
	},
	activesync.Ping: func(a Adapter) (activesync.Response, error) {
		return a.Ping(&activesync.PingRequest{})
	},
	activesync.ItemOperations: func(a Adapter) (activesync.Response, error) {
		return a.ItemOperations(&activesync.ItemOperationsRequest{}, activesync.Inline)
	},
	activesync.Provision: func(a Adapter) (activesync.Response, error) {
		return a.Provision(&activesync.ProvisionRequest{})
	},
	activesync.ResolveRecipients: func(a Adapter) (activesync.Response, error) {
		return a.ResolveRecipients(&activesync.ResolveRecipientsRequest{})
	},
	activesync.ValidateCert: func(a Adapter) (activesync.Response, error) {
		return a.ValidateCert(&activesync.ValidateCertRequest{})
	},
}

func TestEveryCommandIsDispatched(t *testing.T) {
	for _, cmd := range activesync.Commands() {
		if _, ok := dispatchers[cmd]; !ok {
			t.Errorf("%v is not tested", cmd)
		}
	}
}

func TestDispatchVerificationOrder(t *testing.T) {
	for cmd, dispatch := range dispatchers {
		f := newFixture(t, nil)

		resp, err := dispatch(f.adapter)
		if err != nil {
			t.Errorf("%v: unexpected error: %v", cmd, err)
			continue
		}
		if resp.Raw() == nil || resp.Raw().StatusCode != 200 {
			t.Errorf("%v: unexpected response: %+v", cmd, resp)
			continue
		}
		if len(f.sender.sent) != 1 || f.sender.last().request.Command != cmd {
			t.Errorf("%v: unexpected requests: %+v", cmd, f.sender.sent)
			continue
		}

		want := verificationSteps(cmd, outcome{statusCode: 200, moveResults: 1})
		if fmt.Sprint(f.verifier.steps()) != fmt.Sprint(want) {
			t.Errorf("%v: verification steps = %v, want %v", cmd, f.verifier.steps(), want)
		}
		for _, c := range f.verifier.calls {
			if c.cmd != cmd {
				t.Errorf("%v: verification is called for %v", cmd, c.cmd)
			}
		}
	}
}

func TestFolderSyncSkipsVerificationOnFailure(t *testing.T) {
	f := newFixture(t, nil)
	f.sender.reply = func(req *activesync.RawRequest) (*activesync.RawResponse, error) {
		resp := okResponse(req, "")
		resp.StatusCode = 449
		return resp, nil
	}

	resp, err := f.adapter.FolderSync(&activesync.FolderSyncRequest{SyncKey: "0"})
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 449 {
		t.Fatalf("unexpected status: %v", resp.StatusCode)
	}
	if got := f.verifier.steps(); len(got) != 1 || got[0] != verify.Transport {
		t.Fatalf("unexpected verification steps: %v", got)
	}
}

func TestMoveItemsSkipsVerificationWithoutResult(t *testing.T) {
	f := newFixture(t, nil)
	f.sender.reply = func(req *activesync.RawRequest) (*activesync.RawResponse, error) {
		return okResponse(req, "<MoveItems/>"), nil
	}

	if _, err := f.adapter.MoveItems(&activesync.MoveItemsRequest{}); err != nil {
		t.Fatal(err)
	}
	if got := f.verifier.steps(); len(got) != 1 || got[0] != verify.Transport {
		t.Fatalf("unexpected verification steps: %v", got)
	}
}

func TestVerificationFailure(t *testing.T) {
	step := verify.WBXMLCapture
	f := newFixture(t, func(c *Config) {})
	f.verifier.failAt = &step

	resp, err := f.adapter.Ping(&activesync.PingRequest{HeartbeatInterval: "60"})
	failure, ok := err.(*verify.Failure)
	if !ok {
		t.Fatalf("unexpected error: %v", err)
	}
	if failure.Command != activesync.Ping || failure.Step != verify.WBXMLCapture {
		t.Fatalf("unexpected failure: %+v", failure)
	}
	if resp == nil || resp.ResponseData.Status != "1" {
		t.Fatal("the response should be returned with the failure")
	}
	// The semantic verification should not run after a failure.
	if got := f.verifier.steps(); len(got) != 2 {
		t.Fatalf("unexpected verification steps: %v", got)
	}
}

func TestClientErrorIsNotWrapped(t *testing.T) {
	want := errors.New("connection reset by peer")
	f := newFixture(t, nil)
	f.sender.reply = func(req *activesync.RawRequest) (*activesync.RawResponse, error) {
		return nil, want
	}

	for cmd, dispatch := range dispatchers {
		if _, err := dispatch(f.adapter); err != want {
			t.Errorf("%v: unexpected error: %v", cmd, err)
		}
	}
	if len(f.verifier.calls) != 0 {
		t.Fatalf("verification should not run: %v", f.verifier.calls)
	}
}

func TestMalformedResponseIsAnError(t *testing.T) {
	f := newFixture(t, nil)
	f.sender.reply = func(req *activesync.RawRequest) (*activesync.RawResponse, error) {
		return okResponse(req, "<Settings><Status>"), nil
	}

	if _, err := f.adapter.Settings(&activesync.SettingsRequest{}); err == nil {
		t.Fatal("we expect an error, but we got nil error!")
	} else if _, ok := err.(*verify.Failure); ok {
		t.Fatalf("a malformed response is not a verification failure: %v", err)
	}
}

func TestProvisionDeviceInformation(t *testing.T) {
	tests := []struct {
		version  session.Version
		suppress []string
		removed  bool
	}{
		{session.Version140, nil, true},
		{session.Version121, nil, true},
		{session.Version("140"), nil, true},
		{session.Version141, nil, false},
		{session.Version160, nil, false},
		{session.Version161, nil, false},
		{session.Version141, []string{"141"}, true},
		{session.Version140, []string{}, false},
	}

	for _, v := range tests {
		f := newFixture(t, func(c *Config) {
			c.Session.ProtocolVersion = v.version
			c.SuppressDeviceInformation = v.suppress
		})
		req := &activesync.ProvisionRequest{
			DeviceInformation: &activesync.DeviceInformation{Set: activesync.DeviceInformationSet{Model: "Test"}},
			Policies:          &activesync.ProvisionPolicies{Policy: activesync.ProvisionPolicy{PolicyType: activesync.PolicyTypeXML}},
		}

		if _, err := f.adapter.Provision(req); err != nil {
			t.Fatalf("%v: %v", v.version, err)
		}
		body := f.sender.last().request.Body
		if v.removed {
			if req.DeviceInformation != nil || strings.Contains(body, "DeviceInformation") {
				t.Errorf("%v %v: DeviceInformation should be removed: %v", v.version, v.suppress, body)
			}
		} else {
			if req.DeviceInformation == nil || !strings.Contains(body, "<Model>Test</Model>") {
				t.Errorf("%v %v: DeviceInformation should be sent: %v", v.version, v.suppress, body)
			}
		}
	}
}

func TestSwitchUser(t *testing.T) {
	f := newFixture(t, nil)

	if _, err := f.adapter.FolderSync(&activesync.FolderSyncRequest{SyncKey: "0"}); err != nil {
		t.Fatal(err)
	}
	f.adapter.SwitchUser("alice", "pw", "contoso")
	if _, err := f.adapter.FolderSync(&activesync.FolderSyncRequest{SyncKey: "0"}); err != nil {
		t.Fatal(err)
	}

	before, after := f.sender.sent[0].session, f.sender.sent[1].session
	if before.UserName != "user1" || before.Password != "pw1" || before.Domain != "example" {
		t.Fatalf("the earlier request is changed: %+v", before)
	}
	if after.UserName != "alice" || after.Password != "pw" || after.Domain != "contoso" {
		t.Fatalf("unexpected credential: %+v", after)
	}
}

func TestSessionMutators(t *testing.T) {
	f := newFixture(t, nil)
	f.adapter.ChangeDeviceID("DEV123")
	f.adapter.ChangeDeviceType("PocketPC")
	f.adapter.ChangePolicyKey("3942919513")
	f.adapter.ChangeHeaderEncodingType(session.Base64)

	if _, err := f.adapter.Ping(&activesync.PingRequest{}); err != nil {
		t.Fatal(err)
	}
	s := f.sender.last().session
	if s.DeviceID != "DEV123" || s.DeviceType != "PocketPC" || s.PolicyKey != "3942919513" || s.HeaderEncoding != session.Base64 {
		t.Fatalf("unexpected session: %+v", s)
	}
}

func TestCommandsDoNotChangeSession(t *testing.T) {
	f := newFixture(t, nil)
	before := f.adapter.Session()

	for _, dispatch := range dispatchers {
		if _, err := dispatch(f.adapter); err != nil {
			t.Fatal(err)
		}
	}
	if after := f.adapter.Session(); *after != *before {
		t.Fatalf("session is changed: before=%+v, after=%+v", before, after)
	}
}

func TestSendStringRequest(t *testing.T) {
	f := newFixture(t, nil)

	resp, err := f.adapter.SendStringRequest(activesync.FolderSync, activesync.Parameters{activesync.User: "x"}, "<FolderSync><SyncKey>bad</SyncKey></FolderSync>")
	if err != nil {
		t.Fatal(err)
	}
	if resp.XML == "" {
		t.Fatal("empty response")
	}
	if len(f.verifier.calls) != 0 {
		t.Fatalf("verification should not run: %v", f.verifier.calls)
	}
	if f.adapter.LastRawRequestXML() != "<FolderSync><SyncKey>bad</SyncKey></FolderSync>" {
		t.Fatalf("unexpected last request: %v", f.adapter.LastRawRequestXML())
	}
	if f.adapter.LastRawResponseXML() != resp.XML {
		t.Fatalf("unexpected last response: %v", f.adapter.LastRawResponseXML())
	}
}

func TestLastRawXML(t *testing.T) {
	f := newFixture(t, nil)
	if f.adapter.LastRawRequestXML() != "" || f.adapter.LastRawResponseXML() != "" {
		t.Fatal("nothing is sent yet")
	}

	if _, err := f.adapter.FolderSync(&activesync.FolderSyncRequest{SyncKey: "0"}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(f.adapter.LastRawRequestXML(), "<SyncKey>0</SyncKey>") {
		t.Fatalf("unexpected last request: %v", f.adapter.LastRawRequestXML())
	}
	if f.adapter.LastRawResponseXML() != "<FolderSync><Status>1</Status></FolderSync>" {
		t.Fatalf("unexpected last response: %v", f.adapter.LastRawResponseXML())
	}
}

type fakeRecorder struct {
	exchanges []capture.Exchange
	err       error
}

func (r *fakeRecorder) Record(e capture.Exchange) error {
	r.exchanges = append(r.exchanges, e)
	return r.err
}

func TestRecorder(t *testing.T) {
	recorder := &fakeRecorder{err: errors.New("disk full")}
	f := newFixture(t, func(c *Config) { c.Recorder = recorder })

	if _, err := f.adapter.FolderSync(&activesync.FolderSyncRequest{SyncKey: "0"}); err != nil {
		t.Fatalf("a recorder error should not be returned: %v", err)
	}
	if _, err := f.adapter.SendStringRequest(activesync.Ping, nil, "TestPlainText"); err != nil {
		t.Fatal(err)
	}

	if len(recorder.exchanges) != 2 {
		t.Fatalf("unexpected number of exchanges: %v", len(recorder.exchanges))
	}
	e := recorder.exchanges[0]
	if e.Command != "FolderSync" || e.User != `example\user1` || e.DeviceID != "dev1" || e.StatusCode != 200 {
		t.Fatalf("unexpected exchange: %+v", e)
	}
}

func TestNew(t *testing.T) {
	sender := &fakeSender{}
	tests := []struct {
		sender activesync.Sender
		config Config
	}{
		{nil, Config{Session: testSession()}},
		{sender, Config{}},
		{sender, Config{Session: testSession(), WaitTime: -1}},
		{sender, Config{Session: testSession(), RetryCount: -1}},
	}
	for i, v := range tests {
		if _, err := New(v.sender, v.config); err == nil {
			t.Errorf("#%v: we expect an error, but we got nil error!", i)
		}
	}

	s := testSession()
	a, err := New(sender, Config{Session: s})
	if err != nil {
		t.Fatal(err)
	}
	a.ChangeDeviceID("other")
	if s.DeviceID != "dev1" {
		t.Fatal("the caller's session should not be changed")
	}
	if _, ok := a.verifier.(verify.Engine); !ok {
		t.Fatalf("unexpected default verifier: %T", a.verifier)
	}
}
