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

// Parameters are the URI command parameters of a request.
type Parameters map[CmdParameter]string

type FolderSyncRequest struct {
	XMLName    xml.Name   `xml:"FolderSync"`
	NS         string     `xml:"xmlns,attr"`
	Parameters Parameters `xml:"-"`
	SyncKey    string
}

type FolderSyncResponse struct {
	*RawResponse
	ResponseData FolderSyncData
}

type FolderSyncData struct {
	XMLName xml.Name `xml:"FolderSync"`
	Status  string
	SyncKey string            `xml:",omitempty"`
	Changes *FolderSyncChange `xml:",omitempty"`
}

type FolderSyncChange struct {
	Count  int
	Update []Folder
	Delete []FolderRef
	Add    []Folder
}

type Folder struct {
	ServerId    string
	ParentId    string
	DisplayName string
	Type        int
}

type FolderRef struct {
	ServerId string
}

type FolderCreateRequest struct {
	XMLName     xml.Name   `xml:"FolderCreate"`
	NS          string     `xml:"xmlns,attr"`
	Parameters  Parameters `xml:"-"`
	SyncKey     string
	ParentId    string
	DisplayName string
	Type        int
}

type FolderCreateResponse struct {
	*RawResponse
	ResponseData FolderCreateData
}

type FolderCreateData struct {
	XMLName  xml.Name `xml:"FolderCreate"`
	Status   string
	SyncKey  string
	ServerId string
}

type FolderDeleteRequest struct {
	XMLName    xml.Name   `xml:"FolderDelete"`
	NS         string     `xml:"xmlns,attr"`
	Parameters Parameters `xml:"-"`
	SyncKey    string
	ServerId   string
}

type FolderDeleteResponse struct {
	*RawResponse
	ResponseData FolderDeleteData
}

type FolderDeleteData struct {
	XMLName xml.Name `xml:"FolderDelete"`
	Status  string
	SyncKey string
}

type FolderUpdateRequest struct {
	XMLName     xml.Name   `xml:"FolderUpdate"`
	NS          string     `xml:"xmlns,attr"`
	Parameters  Parameters `xml:"-"`
	SyncKey     string
	ServerId    string
	ParentId    string
	DisplayName string
}

type FolderUpdateResponse struct {
	*RawResponse
	ResponseData FolderUpdateData
}

type FolderUpdateData struct {
	XMLName xml.Name `xml:"FolderUpdate"`
	Status  string
	SyncKey string
}

// GetHierarchy does not have a request body.
type GetHierarchyResponse struct {
	*RawResponse
	ResponseData GetHierarchyData
}

type GetHierarchyData struct {
	// Folders is the top level element, not GetHierarchy.
	XMLName xml.Name `xml:"Folders"`
	Folder  []Folder
}

// Folder types of the FolderSync and FolderCreate commands.
const (
	FolderTypeGeneric            = 1
	FolderTypeInbox              = 2
	FolderTypeDrafts             = 3
	FolderTypeDeletedItems       = 4
	FolderTypeSentItems          = 5
	FolderTypeOutbox             = 6
	FolderTypeTasks              = 7
	FolderTypeCalendar           = 8
	FolderTypeContacts           = 9
	FolderTypeNotes              = 10
	FolderTypeJournal            = 11
	FolderTypeMail               = 12
	FolderTypeCalendarUser       = 13
	FolderTypeContactsUser       = 14
	FolderTypeTasksUser          = 15
	FolderTypeJournalUser        = 16
	FolderTypeNotesUser          = 17
	FolderTypeUnknown            = 18
	FolderTypeRecipientInfoCache = 19
)

// FindFolder returns the first added folder whose type is t.
func (r *FolderSyncData) FindFolder(t int) (Folder, bool) {
	if r.Changes == nil {
		return Folder{}, false
	}
	for _, v := range r.Changes.Add {
		if v.Type == t {
			return v, true
		}
	}

	return Folder{}, false
}
