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

// Package adapter forwards every MS-ASCMD command to the protocol client
// and verifies the response before returning it to the test.
package adapter

import (
	"github.com/superkkt/ascmd/activesync"
	"github.com/superkkt/ascmd/session"
)

// Adapter is the command interface used by the conformance tests. A command
// method returns the response together with a *verify.Failure if the
// response fails verification. Other errors come from the protocol client
// as they are.
//
// An Adapter is not safe for concurrent use.
type Adapter interface {
	Autodiscover(req *activesync.AutodiscoverRequest, contentType activesync.ContentType) (*activesync.AutodiscoverResponse, error)
	Sync(req *activesync.SyncRequest, resync bool) (*activesync.SyncResponse, error)
	SendMail(req *activesync.SendMailRequest) (*activesync.SendMailResponse, error)
	SmartForward(req *activesync.SmartForwardRequest) (*activesync.SmartForwardResponse, error)
	SmartReply(req *activesync.SmartReplyRequest) (*activesync.SmartReplyResponse, error)
	GetAttachment(req *activesync.GetAttachmentRequest) (*activesync.GetAttachmentResponse, error)
	FolderSync(req *activesync.FolderSyncRequest) (*activesync.FolderSyncResponse, error)
	FolderCreate(req *activesync.FolderCreateRequest) (*activesync.FolderCreateResponse, error)
	FolderDelete(req *activesync.FolderDeleteRequest) (*activesync.FolderDeleteResponse, error)
	FolderUpdate(req *activesync.FolderUpdateRequest) (*activesync.FolderUpdateResponse, error)
	MoveItems(req *activesync.MoveItemsRequest) (*activesync.MoveItemsResponse, error)
	GetHierarchy() (*activesync.GetHierarchyResponse, error)
	GetItemEstimate(req *activesync.GetItemEstimateRequest) (*activesync.GetItemEstimateResponse, error)
	MeetingResponse(req *activesync.MeetingResponseRequest) (*activesync.MeetingResponseResponse, error)
	Search(req *activesync.SearchRequest) (*activesync.SearchResponse, error)
	Find(req *activesync.FindRequest) (*activesync.FindResponse, error)
	Settings(req *activesync.SettingsRequest) (*activesync.SettingsResponse, error)
	Ping(req *activesync.PingRequest) (*activesync.PingResponse, error)
	ItemOperations(req *activesync.ItemOperationsRequest, method activesync.DeliveryMethod) (*activesync.ItemOperationsResponse, error)
	// Provision clears req.DeviceInformation if the protocol version in use
	// does not allow it.
	Provision(req *activesync.ProvisionRequest) (*activesync.ProvisionResponse, error)
	ResolveRecipients(req *activesync.ResolveRecipientsRequest) (*activesync.ResolveRecipientsResponse, error)
	ValidateCert(req *activesync.ValidateCertRequest) (*activesync.ValidateCertResponse, error)

	SwitchUser(userName, password, domain string)
	ChangeDeviceID(id string)
	ChangeDeviceType(deviceType string)
	ChangePolicyKey(key string)
	ChangeHeaderEncodingType(e session.HeaderEncoding)

	LastRawRequestXML() string
	LastRawResponseXML() string

	// SendStringRequest sends body as it is without any verification.
	SendStringRequest(cmd activesync.CommandName, params activesync.Parameters, body string) (*activesync.SendStringResponse, error)
}
