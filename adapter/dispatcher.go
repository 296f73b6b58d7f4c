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
	"time"

	"github.com/superkkt/ascmd/activesync"
	"github.com/superkkt/ascmd/capture"
	"github.com/superkkt/ascmd/session"
	"github.com/superkkt/ascmd/verify"

	"github.com/superkkt/logger"
)

// DefaultSuppressDeviceInformation lists the protocol versions that do not
// allow DeviceInformation in a Provision request.
var DefaultSuppressDeviceInformation = []string{"12.1", "14.0"}

type Config struct {
	// Session is the initial session. The dispatcher keeps its own copy.
	Session *session.Context
	// Interval between Search or Find requests while the result is pending
	WaitTime time.Duration
	// Maximum number of the retries of a pending Search or Find
	RetryCount int
	// Protocol versions whose Provision request should not have
	// DeviceInformation. DefaultSuppressDeviceInformation is used if it is nil.
	SuppressDeviceInformation []string
	// Verifier is verify.Engine if it is nil.
	Verifier verify.Verifier
	// Recorder is optional.
	Recorder capture.Recorder
	// Sleeper is time.Sleep if it is nil.
	Sleeper Sleeper
}

// Dispatcher is the Adapter implementation.
type Dispatcher struct {
	client     *activesync.Client
	session    *session.Context
	waitTime   time.Duration
	retryCount int
	suppress   []string
	verifier   verify.Verifier
	recorder   capture.Recorder
	sleep      Sleeper
	last       *activesync.RawResponse
}

var _ Adapter = (*Dispatcher)(nil)

func New(sender activesync.Sender, c Config) (*Dispatcher, error) {
	if sender == nil {
		return nil, errors.New("nil protocol client")
	}
	if c.Session == nil {
		return nil, errors.New("nil session")
	}
	if c.WaitTime < 0 {
		return nil, fmt.Errorf("invalid wait time: %v", c.WaitTime)
	}
	if c.RetryCount < 0 {
		return nil, fmt.Errorf("invalid retry count: %v", c.RetryCount)
	}
	if c.SuppressDeviceInformation == nil {
		c.SuppressDeviceInformation = DefaultSuppressDeviceInformation
	}
	if c.Verifier == nil {
		c.Verifier = verify.Engine{}
	}
	if c.Sleeper == nil {
		c.Sleeper = time.Sleep
	}

	return &Dispatcher{
		client:     activesync.NewClient(sender),
		session:    c.Session.Clone(),
		waitTime:   c.WaitTime,
		retryCount: c.RetryCount,
		suppress:   append([]string(nil), c.SuppressDeviceInformation...),
		verifier:   c.Verifier,
		recorder:   c.Recorder,
		sleep:      c.Sleeper,
	}, nil
}

// Session returns a copy of the current session.
func (r *Dispatcher) Session() *session.Context {
	return r.session.Clone()
}

func (r *Dispatcher) SwitchUser(userName, password, domain string) {
	r.session.SetCredential(userName, password, domain)
}

func (r *Dispatcher) ChangeDeviceID(id string) {
	r.session.SetDeviceID(id)
}

func (r *Dispatcher) ChangeDeviceType(deviceType string) {
	r.session.SetDeviceType(deviceType)
}

func (r *Dispatcher) ChangePolicyKey(key string) {
	r.session.SetPolicyKey(key)
}

func (r *Dispatcher) ChangeHeaderEncodingType(e session.HeaderEncoding) {
	r.session.SetHeaderEncoding(e)
}

func (r *Dispatcher) LastRawRequestXML() string {
	if r.last == nil {
		return ""
	}

	return r.last.RequestXML
}

func (r *Dispatcher) LastRawResponseXML() string {
	if r.last == nil {
		return ""
	}

	return r.last.XML
}

// finish keeps the raw response, records it, and runs the verification
// steps selected by o.
func (r *Dispatcher) finish(cmd activesync.CommandName, resp activesync.Response, o outcome) error {
	r.last = resp.Raw()
	r.record(cmd, r.last)

	for _, step := range verificationSteps(cmd, o) {
		var f func() error
		switch step {
		case verify.Transport:
			f = func() error { return r.verifier.Transport(resp.Raw()) }
		case verify.WBXMLCapture:
			f = func() error { return r.verifier.WBXMLCapture(cmd, resp) }
		case verify.Semantic:
			f = func() error { return r.verifier.Command(cmd, resp) }
		default:
			panic(fmt.Sprintf("unexpected verification step: %v", step))
		}
		if err := verify.Run(cmd, step, f); err != nil {
			logger.Error(err.Error())
			return err
		}
	}

	return nil
}

func (r *Dispatcher) record(cmd activesync.CommandName, raw *activesync.RawResponse) {
	if r.recorder == nil {
		return
	}
	if err := r.recorder.Record(capture.NewExchange(r.session, cmd, raw)); err != nil {
		logger.Error(fmt.Sprintf("failed to record the %v exchange: %v", cmd, err))
	}
}

func (r *Dispatcher) Autodiscover(req *activesync.AutodiscoverRequest, contentType activesync.ContentType) (*activesync.AutodiscoverResponse, error) {
	resp, err := r.client.Autodiscover(r.session, req, contentType)
	if err != nil {
		return nil, err
	}

	return resp, r.finish(activesync.Autodiscover, resp, outcome{statusCode: resp.StatusCode})
}

func (r *Dispatcher) Sync(req *activesync.SyncRequest, resync bool) (*activesync.SyncResponse, error) {
	resp, err := r.client.Sync(r.session, req, resync)
	if err != nil {
		return nil, err
	}

	return resp, r.finish(activesync.Sync, resp, outcome{statusCode: resp.StatusCode})
}

func (r *Dispatcher) SendMail(req *activesync.SendMailRequest) (*activesync.SendMailResponse, error) {
	resp, err := r.client.SendMail(r.session, req)
	if err != nil {
		return nil, err
	}

	return resp, r.finish(activesync.SendMail, resp, outcome{statusCode: resp.StatusCode})
}

func (r *Dispatcher) SmartForward(req *activesync.SmartForwardRequest) (*activesync.SmartForwardResponse, error) {
	resp, err := r.client.SmartForward(r.session, req)
	if err != nil {
		return nil, err
	}

	return resp, r.finish(activesync.SmartForward, resp, outcome{statusCode: resp.StatusCode})
}

func (r *Dispatcher) SmartReply(req *activesync.SmartReplyRequest) (*activesync.SmartReplyResponse, error) {
	resp, err := r.client.SmartReply(r.session, req)
	if err != nil {
		return nil, err
	}

	return resp, r.finish(activesync.SmartReply, resp, outcome{statusCode: resp.StatusCode})
}

func (r *Dispatcher) GetAttachment(req *activesync.GetAttachmentRequest) (*activesync.GetAttachmentResponse, error) {
	resp, err := r.client.GetAttachment(r.session, req)
	if err != nil {
		return nil, err
	}

	return resp, r.finish(activesync.GetAttachment, resp, outcome{statusCode: resp.StatusCode})
}

func (r *Dispatcher) FolderSync(req *activesync.FolderSyncRequest) (*activesync.FolderSyncResponse, error) {
	resp, err := r.client.FolderSync(r.session, req)
	if err != nil {
		return nil, err
	}

	return resp, r.finish(activesync.FolderSync, resp, outcome{statusCode: resp.StatusCode})
}

func (r *Dispatcher) FolderCreate(req *activesync.FolderCreateRequest) (*activesync.FolderCreateResponse, error) {
	resp, err := r.client.FolderCreate(r.session, req)
	if err != nil {
		return nil, err
	}

	return resp, r.finish(activesync.FolderCreate, resp, outcome{statusCode: resp.StatusCode})
}

func (r *Dispatcher) FolderDelete(req *activesync.FolderDeleteRequest) (*activesync.FolderDeleteResponse, error) {
	resp, err := r.client.FolderDelete(r.session, req)
	if err != nil {
		return nil, err
	}

	return resp, r.finish(activesync.FolderDelete, resp, outcome{statusCode: resp.StatusCode})
}

func (r *Dispatcher) FolderUpdate(req *activesync.FolderUpdateRequest) (*activesync.FolderUpdateResponse, error) {
	resp, err := r.client.FolderUpdate(r.session, req)
	if err != nil {
		return nil, err
	}

	return resp, r.finish(activesync.FolderUpdate, resp, outcome{statusCode: resp.StatusCode})
}

func (r *Dispatcher) MoveItems(req *activesync.MoveItemsRequest) (*activesync.MoveItemsResponse, error) {
	resp, err := r.client.MoveItems(r.session, req)
	if err != nil {
		return nil, err
	}
	o := outcome{
		statusCode:  resp.StatusCode,
		moveResults: len(resp.ResponseData.Response),
	}

	return resp, r.finish(activesync.MoveItems, resp, o)
}

func (r *Dispatcher) GetHierarchy() (*activesync.GetHierarchyResponse, error) {
	resp, err := r.client.GetHierarchy(r.session)
	if err != nil {
		return nil, err
	}

	return resp, r.finish(activesync.GetHierarchy, resp, outcome{statusCode: resp.StatusCode})
}

func (r *Dispatcher) GetItemEstimate(req *activesync.GetItemEstimateRequest) (*activesync.GetItemEstimateResponse, error) {
	resp, err := r.client.GetItemEstimate(r.session, req)
	if err != nil {
		return nil, err
	}

	return resp, r.finish(activesync.GetItemEstimate, resp, outcome{statusCode: resp.StatusCode})
}

func (r *Dispatcher) MeetingResponse(req *activesync.MeetingResponseRequest) (*activesync.MeetingResponseResponse, error) {
	resp, err := r.client.MeetingResponse(r.session, req)
	if err != nil {
		return nil, err
	}

	return resp, r.finish(activesync.MeetingResponse, resp, outcome{statusCode: resp.StatusCode})
}

// Search repeats the request while the search result is pending.
func (r *Dispatcher) Search(req *activesync.SearchRequest) (*activesync.SearchResponse, error) {
	var resp *activesync.SearchResponse
	err := r.poll(activesync.Search, func() (string, error) {
		var err error
		if resp, err = r.client.Search(r.session, req); err != nil {
			return "", err
		}
		return resp.ResponseData.Status, nil
	})
	if err != nil {
		return nil, err
	}

	return resp, r.finish(activesync.Search, resp, outcome{statusCode: resp.StatusCode})
}

// Find repeats the request while the result is pending.
func (r *Dispatcher) Find(req *activesync.FindRequest) (*activesync.FindResponse, error) {
	var resp *activesync.FindResponse
	err := r.poll(activesync.Find, func() (string, error) {
		var err error
		if resp, err = r.client.Find(r.session, req); err != nil {
			return "", err
		}
		return resp.ResponseData.Status, nil
	})
	if err != nil {
		return nil, err
	}

	return resp, r.finish(activesync.Find, resp, outcome{statusCode: resp.StatusCode})
}

func (r *Dispatcher) Settings(req *activesync.SettingsRequest) (*activesync.SettingsResponse, error) {
	resp, err := r.client.Settings(r.session, req)
	if err != nil {
		return nil, err
	}

	return resp, r.finish(activesync.Settings, resp, outcome{statusCode: resp.StatusCode})
}

func (r *Dispatcher) Ping(req *activesync.PingRequest) (*activesync.PingResponse, error) {
	resp, err := r.client.Ping(r.session, req)
	if err != nil {
		return nil, err
	}

	return resp, r.finish(activesync.Ping, resp, outcome{statusCode: resp.StatusCode})
}

func (r *Dispatcher) ItemOperations(req *activesync.ItemOperationsRequest, method activesync.DeliveryMethod) (*activesync.ItemOperationsResponse, error) {
	resp, err := r.client.ItemOperations(r.session, req, method)
	if err != nil {
		return nil, err
	}

	return resp, r.finish(activesync.ItemOperations, resp, outcome{statusCode: resp.StatusCode})
}

func (r *Dispatcher) Provision(req *activesync.ProvisionRequest) (*activesync.ProvisionResponse, error) {
	if r.suppressDeviceInformation() {
		logger.Debug(fmt.Sprintf("Provision: DeviceInformation is removed for protocol version %v", r.session.ProtocolVersion))
		req.DeviceInformation = nil
	}

	resp, err := r.client.Provision(r.session, req)
	if err != nil {
		return nil, err
	}

	return resp, r.finish(activesync.Provision, resp, outcome{statusCode: resp.StatusCode})
}

func (r *Dispatcher) suppressDeviceInformation() bool {
	for _, v := range r.suppress {
		if r.session.ProtocolVersion.Is(v) {
			return true
		}
	}

	return false
}

func (r *Dispatcher) ResolveRecipients(req *activesync.ResolveRecipientsRequest) (*activesync.ResolveRecipientsResponse, error) {
	resp, err := r.client.ResolveRecipients(r.session, req)
	if err != nil {
		return nil, err
	}

	return resp, r.finish(activesync.ResolveRecipients, resp, outcome{statusCode: resp.StatusCode})
}

func (r *Dispatcher) ValidateCert(req *activesync.ValidateCertRequest) (*activesync.ValidateCertResponse, error) {
	resp, err := r.client.ValidateCert(r.session, req)
	if err != nil {
		return nil, err
	}

	return resp, r.finish(activesync.ValidateCert, resp, outcome{statusCode: resp.StatusCode})
}

func (r *Dispatcher) SendStringRequest(cmd activesync.CommandName, params activesync.Parameters, body string) (*activesync.SendStringResponse, error) {
	resp, err := r.client.SendString(r.session, cmd, params, body)
	if err != nil {
		return nil, err
	}
	r.last = resp.RawResponse
	r.record(cmd, r.last)

	return resp, nil
}
