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
	"fmt"
	"strings"
)

type CommandName string

const (
	Autodiscover      CommandName = "Autodiscover"
	Sync              CommandName = "Sync"
	SendMail          CommandName = "SendMail"
	SmartForward      CommandName = "SmartForward"
	SmartReply        CommandName = "SmartReply"
	GetAttachment     CommandName = "GetAttachment"
	GetHierarchy      CommandName = "GetHierarchy"
	FolderSync        CommandName = "FolderSync"
	FolderCreate      CommandName = "FolderCreate"
	FolderDelete      CommandName = "FolderDelete"
	FolderUpdate      CommandName = "FolderUpdate"
	MoveItems         CommandName = "MoveItems"
	GetItemEstimate   CommandName = "GetItemEstimate"
	MeetingResponse   CommandName = "MeetingResponse"
	Search            CommandName = "Search"
	Find              CommandName = "Find"
	Settings          CommandName = "Settings"
	Ping              CommandName = "Ping"
	ItemOperations    CommandName = "ItemOperations"
	Provision         CommandName = "Provision"
	ResolveRecipients CommandName = "ResolveRecipients"
	ValidateCert      CommandName = "ValidateCert"
)

// Codes used by the base64 encoded query. GetHierarchy and Autodiscover
// have no code.
var commandCodes = map[CommandName]byte{
	Sync:              0,
	SendMail:          1,
	SmartForward:      2,
	SmartReply:        3,
	GetAttachment:     4,
	FolderSync:        9,
	FolderCreate:      10,
	FolderDelete:      11,
	FolderUpdate:      12,
	MoveItems:         13,
	GetItemEstimate:   14,
	MeetingResponse:   15,
	Search:            16,
	Settings:          17,
	Ping:              18,
	ItemOperations:    19,
	Provision:         20,
	ResolveRecipients: 21,
	ValidateCert:      22,
	Find:              23,
}

var commands = []CommandName{
	Autodiscover, Sync, SendMail, SmartForward, SmartReply, GetAttachment, GetHierarchy,
	FolderSync, FolderCreate, FolderDelete, FolderUpdate, MoveItems, GetItemEstimate,
	MeetingResponse, Search, Find, Settings, Ping, ItemOperations, Provision,
	ResolveRecipients, ValidateCert,
}

// Commands returns every command this client knows.
func Commands() []CommandName {
	out := make([]CommandName, len(commands))
	copy(out, commands)
	return out
}

func ParseCommandName(s string) (CommandName, error) {
	for _, v := range commands {
		if strings.EqualFold(string(v), s) {
			return v, nil
		}
	}

	return "", fmt.Errorf("unknown ActiveSync command: %v", s)
}

// Code returns the base64 query code of the command.
func (r CommandName) Code() (byte, bool) {
	c, ok := commandCodes[r]
	return c, ok
}

// CmdParameter is a URI command parameter.
type CmdParameter string

const (
	AttachmentName CmdParameter = "AttachmentName"
	CollectionId   CmdParameter = "CollectionId"
	ItemId         CmdParameter = "ItemId"
	LongId         CmdParameter = "LongId"
	Occurrence     CmdParameter = "Occurrence"
	Options        CmdParameter = "Options"
	User           CmdParameter = "User"
	// SaveInSent only exists in the plain text query.
	SaveInSent CmdParameter = "SaveInSent"
)

var parameterCodes = map[CmdParameter]byte{
	AttachmentName: 0,
	CollectionId:   1,
	ItemId:         3,
	LongId:         4,
	Occurrence:     6,
	Options:        7,
	User:           8,
}

func (r CmdParameter) Code() (byte, bool) {
	c, ok := parameterCodes[r]
	return c, ok
}

func ParseCmdParameter(s string) (CmdParameter, error) {
	for k := range parameterCodes {
		if strings.EqualFold(string(k), s) {
			return k, nil
		}
	}
	if strings.EqualFold(string(SaveInSent), s) {
		return SaveInSent, nil
	}

	return "", fmt.Errorf("unknown command parameter: %v", s)
}

// Option bits of the Options command parameter.
const (
	OptionSaveInSent      = 0x01
	OptionAcceptMultiPart = 0x02
)

// DeliveryMethod selects how ItemOperations returns fetched data.
type DeliveryMethod int

const (
	Inline DeliveryMethod = iota
	MultiPart
)

// ContentType selects the body format of an Autodiscover request.
type ContentType int

const (
	ContentXML ContentType = iota
	ContentHTML
)

func (r ContentType) MIMEType() string {
	switch r {
	case ContentHTML:
		return "text/html"
	default:
		return "text/xml"
	}
}

const (
	wbxmlContentType     = "application/vnd.ms-sync.wbxml"
	multipartContentType = "application/vnd.ms-sync.multipart"
	rfc822ContentType    = "message/rfc822"
)
