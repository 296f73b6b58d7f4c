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

import "encoding/xml"

// MIMEData is the MIME message of the mail sending commands. It is
// written as CDATA so the 12.x transport can take it out as it is.
type MIMEData struct {
	Data string `xml:",cdata"`
}

type SendMailRequest struct {
	XMLName         xml.Name   `xml:"SendMail"`
	NS              string     `xml:"xmlns,attr"`
	Parameters      Parameters `xml:"-"`
	ClientId        string
	AccountId       string `xml:",omitempty"`
	SaveInSentItems *Empty `xml:",omitempty"`
	Mime            MIMEData
}

type SendMailResponse struct {
	*RawResponse
	ResponseData SendMailData
}

type SendMailData struct {
	XMLName xml.Name `xml:"SendMail"`
	Status  string   `xml:",omitempty"`
}

// Source identifies the original message of SmartForward and SmartReply.
type Source struct {
	FolderId   string `xml:",omitempty"`
	ItemId     string `xml:",omitempty"`
	LongId     string `xml:",omitempty"`
	InstanceId string `xml:",omitempty"`
}

type SmartForwardRequest struct {
	XMLName         xml.Name   `xml:"SmartForward"`
	NS              string     `xml:"xmlns,attr"`
	Parameters      Parameters `xml:"-"`
	ClientId        string
	Source          *Source `xml:",omitempty"`
	AccountId       string  `xml:",omitempty"`
	SaveInSentItems *Empty  `xml:",omitempty"`
	ReplaceMime     *Empty  `xml:",omitempty"`
	Mime            MIMEData
}

type SmartForwardResponse struct {
	*RawResponse
	ResponseData SmartForwardData
}

type SmartForwardData struct {
	XMLName xml.Name `xml:"SmartForward"`
	Status  string   `xml:",omitempty"`
}

type SmartReplyRequest struct {
	XMLName         xml.Name   `xml:"SmartReply"`
	NS              string     `xml:"xmlns,attr"`
	Parameters      Parameters `xml:"-"`
	ClientId        string
	Source          *Source `xml:",omitempty"`
	AccountId       string  `xml:",omitempty"`
	SaveInSentItems *Empty  `xml:",omitempty"`
	ReplaceMime     *Empty  `xml:",omitempty"`
	Mime            MIMEData
}

type SmartReplyResponse struct {
	*RawResponse
	ResponseData SmartReplyData
}

type SmartReplyData struct {
	XMLName xml.Name `xml:"SmartReply"`
	Status  string   `xml:",omitempty"`
}

// GetAttachmentRequest only has the AttachmentName command parameter.
type GetAttachmentRequest struct {
	Parameters Parameters
}

// GetAttachmentResponse carries the attachment in the raw body.
type GetAttachmentResponse struct {
	*RawResponse
}

// ContentType returns the MIME type of the attachment.
func (r *GetAttachmentResponse) ContentType() string {
	if r.RawResponse == nil || r.Header == nil {
		return ""
	}

	return r.Header.Get("Content-Type")
}

type MeetingResponseRequest struct {
	XMLName    xml.Name   `xml:"MeetingResponse"`
	NS         string     `xml:"xmlns,attr"`
	Parameters Parameters `xml:"-"`
	Request    []MeetingRequest
}

type MeetingRequest struct {
	UserResponse int
	CollectionId string `xml:",omitempty"`
	RequestId    string `xml:",omitempty"`
	LongId       string `xml:"Search: LongId,omitempty"`
	InstanceId   string `xml:",omitempty"`
}

// User responses of the MeetingResponse command.
const (
	MeetingAccepted            = 1
	MeetingTentativelyAccepted = 2
	MeetingDeclined            = 3
)

type MeetingResponseResponse struct {
	*RawResponse
	ResponseData MeetingResponseData
}

type MeetingResponseData struct {
	XMLName xml.Name `xml:"MeetingResponse"`
	Status  string   `xml:",omitempty"`
	Result  []struct {
		RequestId  string
		Status     string
		CalendarId string `xml:",omitempty"`
	}
}
