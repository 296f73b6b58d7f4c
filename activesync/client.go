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
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/superkkt/ascmd/session"

	"github.com/superkkt/logger"
)

// Default XML namespaces of the command requests.
const (
	nsAirSync           = "AirSync:"
	nsComposeMail       = "ComposeMail:"
	nsFolderHierarchy   = "FolderHierarchy:"
	nsMove              = "Move:"
	nsGetItemEstimate   = "GetItemEstimate:"
	nsMeetingResponse   = "MeetingResponse:"
	nsSearch            = "Search:"
	nsFind              = "Find:"
	nsSettings          = "Settings:"
	nsPing              = "Ping:"
	nsItemOperations    = "ItemOperations:"
	nsProvision         = "Provision:"
	nsResolveRecipients = "ResolveRecipients:"
	nsValidateCert      = "ValidateCert:"
)

// Client converts typed requests into raw requests and raw responses into
// typed responses. It keeps no session state: every call takes the session
// the request is built from.
type Client struct {
	sender Sender
}

func NewClient(sender Sender) *Client {
	if sender == nil {
		panic("nil sender")
	}

	return &Client{
		sender: sender,
	}
}

func copyParameters(p Parameters) map[CmdParameter]string {
	if len(p) == 0 {
		return nil
	}
	out := make(map[CmdParameter]string, len(p))
	for k, v := range p {
		out[k] = v
	}

	return out
}

// send marshals body, sends it, and unmarshals the response XML into dest.
func (r *Client) send(s *session.Context, cmd CommandName, params Parameters, body interface{}, dest interface{}) (*RawResponse, error) {
	doc, err := marshalBody(body)
	if err != nil {
		return nil, err
	}

	return r.do(s, &RawRequest{Command: cmd, Parameters: copyParameters(params), Body: doc}, dest)
}

func (r *Client) do(s *session.Context, req *RawRequest, dest interface{}) (*RawResponse, error) {
	if s == nil {
		return nil, errors.New("nil session")
	}

	resp, err := r.sender.Send(s, req)
	if err != nil {
		return nil, err
	}
	if err := unmarshalBody(resp.XML, dest); err != nil {
		return nil, err
	}

	return resp, nil
}

func (r *Client) Autodiscover(s *session.Context, req *AutodiscoverRequest, contentType ContentType) (*AutodiscoverResponse, error) {
	body := *req
	if body.NS == "" {
		body.NS = autodiscoverRequestNS
	}
	doc, err := marshalBody(&body)
	if err != nil {
		return nil, err
	}

	resp := new(AutodiscoverResponse)
	raw := &RawRequest{Command: Autodiscover, Parameters: copyParameters(req.Parameters), Body: doc, ContentType: contentType.MIMEType()}
	resp.RawResponse, err = r.do(s, raw, &resp.ResponseData)
	if err != nil {
		return nil, err
	}

	return resp, nil
}

// Sync sends req. If resync is true, Sync is repeated with the new SyncKey
// while the server reports more available changes, and the changes of all
// the rounds are merged into the last response.
func (r *Client) Sync(s *session.Context, req *SyncRequest, resync bool) (*SyncResponse, error) {
	body := *req
	body.NS = nsAirSync

	var merged SyncResponseCommands
	rounds := 0
	for {
		resp := new(SyncResponse)
		raw, err := r.send(s, Sync, req.Parameters, &body, &resp.ResponseData)
		if err != nil {
			return nil, err
		}
		resp.RawResponse = raw
		rounds++
		if !resync {
			return resp, nil
		}

		c, ok := resp.ResponseData.Collection()
		if !ok || c.Status != "1" {
			return resp, nil
		}
		if c.Commands != nil {
			merged.Add = append(merged.Add, c.Commands.Add...)
			merged.Change = append(merged.Change, c.Commands.Change...)
			merged.Delete = append(merged.Delete, c.Commands.Delete...)
			merged.SoftDelete = append(merged.SoftDelete, c.Commands.SoftDelete...)
		}
		if c.MoreAvailable == nil || body.Collections == nil || len(body.Collections.Collection) == 0 {
			if rounds > 1 && c.Commands != nil {
				c.Commands = &merged
			}
			return resp, nil
		}

		logger.Debug(fmt.Sprintf("Sync: more changes available, resyncing with SyncKey=%v", c.SyncKey))
		collections := *body.Collections
		collections.Collection = append([]SyncRequestCollection(nil), collections.Collection...)
		collections.Collection[0].SyncKey = c.SyncKey
		body.Collections = &collections
	}
}

func (r *Client) SendMail(s *session.Context, req *SendMailRequest) (*SendMailResponse, error) {
	body := *req
	body.NS = nsComposeMail

	resp := new(SendMailResponse)
	raw, err := r.send(s, SendMail, req.Parameters, &body, &resp.ResponseData)
	if err != nil {
		return nil, err
	}
	resp.RawResponse = raw

	return resp, nil
}

func (r *Client) SmartForward(s *session.Context, req *SmartForwardRequest) (*SmartForwardResponse, error) {
	body := *req
	body.NS = nsComposeMail

	resp := new(SmartForwardResponse)
	raw, err := r.send(s, SmartForward, req.Parameters, &body, &resp.ResponseData)
	if err != nil {
		return nil, err
	}
	resp.RawResponse = raw

	return resp, nil
}

func (r *Client) SmartReply(s *session.Context, req *SmartReplyRequest) (*SmartReplyResponse, error) {
	body := *req
	body.NS = nsComposeMail

	resp := new(SmartReplyResponse)
	raw, err := r.send(s, SmartReply, req.Parameters, &body, &resp.ResponseData)
	if err != nil {
		return nil, err
	}
	resp.RawResponse = raw

	return resp, nil
}

func (r *Client) GetAttachment(s *session.Context, req *GetAttachmentRequest) (*GetAttachmentResponse, error) {
	// The attachment is not XML, so there is nothing to unmarshal.
	raw, err := r.send(s, GetAttachment, req.Parameters, nil, nil)
	if err != nil {
		return nil, err
	}

	return &GetAttachmentResponse{RawResponse: raw}, nil
}

func (r *Client) FolderSync(s *session.Context, req *FolderSyncRequest) (*FolderSyncResponse, error) {
	body := *req
	body.NS = nsFolderHierarchy

	resp := new(FolderSyncResponse)
	raw, err := r.send(s, FolderSync, req.Parameters, &body, &resp.ResponseData)
	if err != nil {
		return nil, err
	}
	resp.RawResponse = raw

	return resp, nil
}

func (r *Client) FolderCreate(s *session.Context, req *FolderCreateRequest) (*FolderCreateResponse, error) {
	body := *req
	body.NS = nsFolderHierarchy

	resp := new(FolderCreateResponse)
	raw, err := r.send(s, FolderCreate, req.Parameters, &body, &resp.ResponseData)
	if err != nil {
		return nil, err
	}
	resp.RawResponse = raw

	return resp, nil
}

func (r *Client) FolderDelete(s *session.Context, req *FolderDeleteRequest) (*FolderDeleteResponse, error) {
	body := *req
	body.NS = nsFolderHierarchy

	resp := new(FolderDeleteResponse)
	raw, err := r.send(s, FolderDelete, req.Parameters, &body, &resp.ResponseData)
	if err != nil {
		return nil, err
	}
	resp.RawResponse = raw

	return resp, nil
}

func (r *Client) FolderUpdate(s *session.Context, req *FolderUpdateRequest) (*FolderUpdateResponse, error) {
	body := *req
	body.NS = nsFolderHierarchy

	resp := new(FolderUpdateResponse)
	raw, err := r.send(s, FolderUpdate, req.Parameters, &body, &resp.ResponseData)
	if err != nil {
		return nil, err
	}
	resp.RawResponse = raw

	return resp, nil
}

func (r *Client) MoveItems(s *session.Context, req *MoveItemsRequest) (*MoveItemsResponse, error) {
	body := *req
	body.NS = nsMove

	resp := new(MoveItemsResponse)
	raw, err := r.send(s, MoveItems, req.Parameters, &body, &resp.ResponseData)
	if err != nil {
		return nil, err
	}
	resp.RawResponse = raw

	return resp, nil
}

// GetHierarchy does not have a request body.
func (r *Client) GetHierarchy(s *session.Context) (*GetHierarchyResponse, error) {
	resp := new(GetHierarchyResponse)
	raw, err := r.send(s, GetHierarchy, nil, nil, &resp.ResponseData)
	if err != nil {
		return nil, err
	}
	resp.RawResponse = raw

	return resp, nil
}

func (r *Client) GetItemEstimate(s *session.Context, req *GetItemEstimateRequest) (*GetItemEstimateResponse, error) {
	body := *req
	body.NS = nsGetItemEstimate

	resp := new(GetItemEstimateResponse)
	raw, err := r.send(s, GetItemEstimate, req.Parameters, &body, &resp.ResponseData)
	if err != nil {
		return nil, err
	}
	resp.RawResponse = raw

	return resp, nil
}

func (r *Client) MeetingResponse(s *session.Context, req *MeetingResponseRequest) (*MeetingResponseResponse, error) {
	body := *req
	body.NS = nsMeetingResponse

	resp := new(MeetingResponseResponse)
	raw, err := r.send(s, MeetingResponse, req.Parameters, &body, &resp.ResponseData)
	if err != nil {
		return nil, err
	}
	resp.RawResponse = raw

	return resp, nil
}

func (r *Client) Search(s *session.Context, req *SearchRequest) (*SearchResponse, error) {
	body := *req
	body.NS = nsSearch

	resp := new(SearchResponse)
	raw, err := r.send(s, Search, req.Parameters, &body, &resp.ResponseData)
	if err != nil {
		return nil, err
	}
	resp.RawResponse = raw

	return resp, nil
}

func (r *Client) Find(s *session.Context, req *FindRequest) (*FindResponse, error) {
	body := *req
	body.NS = nsFind

	resp := new(FindResponse)
	raw, err := r.send(s, Find, req.Parameters, &body, &resp.ResponseData)
	if err != nil {
		return nil, err
	}
	resp.RawResponse = raw

	return resp, nil
}

func (r *Client) Settings(s *session.Context, req *SettingsRequest) (*SettingsResponse, error) {
	body := *req
	body.NS = nsSettings

	resp := new(SettingsResponse)
	raw, err := r.send(s, Settings, req.Parameters, &body, &resp.ResponseData)
	if err != nil {
		return nil, err
	}
	resp.RawResponse = raw

	return resp, nil
}

func (r *Client) Ping(s *session.Context, req *PingRequest) (*PingResponse, error) {
	body := *req
	body.NS = nsPing

	resp := new(PingResponse)
	raw, err := r.send(s, Ping, req.Parameters, &body, &resp.ResponseData)
	if err != nil {
		return nil, err
	}
	resp.RawResponse = raw

	return resp, nil
}

// ItemOperations sends req. With the multipart delivery method, the
// multipart response is requested through the MS-ASAcceptMultiPart header
// in the plain text query, or through the Options parameter in the base64
// encoded query. The session is left unchanged in both cases.
func (r *Client) ItemOperations(s *session.Context, req *ItemOperationsRequest, method DeliveryMethod) (*ItemOperationsResponse, error) {
	body := *req
	body.NS = nsItemOperations
	doc, err := marshalBody(&body)
	if err != nil {
		return nil, err
	}

	raw := &RawRequest{Command: ItemOperations, Parameters: copyParameters(req.Parameters), Body: doc}
	if method == MultiPart {
		if s.HeaderEncoding == session.Base64 {
			if raw.Parameters == nil {
				raw.Parameters = make(map[CmdParameter]string)
			}
			options := 0
			if v, ok := raw.Parameters[Options]; ok {
				if options, err = strconv.Atoi(v); err != nil {
					return nil, fmt.Errorf("invalid Options parameter: %v", v)
				}
			}
			raw.Parameters[Options] = strconv.Itoa(options | OptionAcceptMultiPart)
		} else {
			delete(raw.Parameters, Options)
			raw.AcceptMultiPart = true
		}
	}

	resp := new(ItemOperationsResponse)
	resp.RawResponse, err = r.do(s, raw, &resp.ResponseData)
	if err != nil {
		return nil, err
	}

	return resp, nil
}

func (r *Client) Provision(s *session.Context, req *ProvisionRequest) (*ProvisionResponse, error) {
	body := *req
	body.NS = nsProvision

	resp := new(ProvisionResponse)
	raw, err := r.send(s, Provision, req.Parameters, &body, &resp.ResponseData)
	if err != nil {
		return nil, err
	}
	resp.RawResponse = raw

	return resp, nil
}

func (r *Client) ResolveRecipients(s *session.Context, req *ResolveRecipientsRequest) (*ResolveRecipientsResponse, error) {
	body := *req
	body.NS = nsResolveRecipients

	resp := new(ResolveRecipientsResponse)
	raw, err := r.send(s, ResolveRecipients, req.Parameters, &body, &resp.ResponseData)
	if err != nil {
		return nil, err
	}
	resp.RawResponse = raw

	return resp, nil
}

func (r *Client) ValidateCert(s *session.Context, req *ValidateCertRequest) (*ValidateCertResponse, error) {
	body := *req
	body.NS = nsValidateCert

	resp := new(ValidateCertResponse)
	raw, err := r.send(s, ValidateCert, req.Parameters, &body, &resp.ResponseData)
	if err != nil {
		return nil, err
	}
	resp.RawResponse = raw

	return resp, nil
}

// SendStringResponse is the response of a plain text request.
type SendStringResponse struct {
	*RawResponse
}

// SendString sends body as it is, without any typed request. It is meant
// for requests that a typed request cannot express.
func (r *Client) SendString(s *session.Context, cmd CommandName, params Parameters, body string) (*SendStringResponse, error) {
	raw := &RawRequest{Command: cmd, Parameters: copyParameters(params), Body: body}
	switch {
	case cmd == Autodiscover:
		raw.ContentType = ContentXML.MIMEType()
	case cmd == Ping && strings.Contains(body, "TestPlainText"):
		raw.ContentType = "text/plain"
	}

	resp, err := r.do(s, raw, nil)
	if err != nil {
		return nil, err
	}

	return &SendStringResponse{RawResponse: resp}, nil
}
