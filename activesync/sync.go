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

type SyncRequest struct {
	XMLName           xml.Name                `xml:"Sync"`
	NS                string                  `xml:"xmlns,attr"`
	Parameters        Parameters              `xml:"-"`
	Collections       *SyncRequestCollections `xml:",omitempty"`
	Wait              string                  `xml:",omitempty"`
	HeartbeatInterval string                  `xml:",omitempty"`
	WindowSize        string                  `xml:",omitempty"`
	Partial           *Empty                  `xml:",omitempty"`
}

type SyncRequestCollections struct {
	Collection []SyncRequestCollection
}

type SyncRequestCollection struct {
	SyncKey        string
	CollectionId   string
	Supported      *InnerXML            `xml:",omitempty"`
	DeletesAsMoves string               `xml:",omitempty"`
	GetChanges     string               `xml:",omitempty"`
	WindowSize     string               `xml:",omitempty"`
	Options        []InnerXML           `xml:",omitempty"`
	Commands       *SyncRequestCommands `xml:",omitempty"`
}

type SyncRequestCommands struct {
	Add    []SyncAdd    `xml:",omitempty"`
	Change []SyncChange `xml:",omitempty"`
	Delete []SyncDelete `xml:",omitempty"`
	Fetch  []SyncFetch  `xml:",omitempty"`
}

type SyncAdd struct {
	ClientId        string    `xml:",omitempty"`
	ServerId        string    `xml:",omitempty"`
	Class           string    `xml:",omitempty"`
	ApplicationData *InnerXML `xml:",omitempty"`
}

type SyncChange struct {
	ServerId        string
	Class           string    `xml:",omitempty"`
	ApplicationData *InnerXML `xml:",omitempty"`
}

type SyncDelete struct {
	ServerId string
	Class    string `xml:",omitempty"`
}

type SyncFetch struct {
	ServerId string
}

// Empty is an element without content such as <MoreAvailable/>.
type Empty struct{}

// InnerXML keeps the content of an element as it is. It is used for
// application data whose schema belongs to other protocols.
type InnerXML struct {
	Data string `xml:",innerxml"`
}

type SyncResponse struct {
	*RawResponse
	ResponseData SyncData
}

type SyncData struct {
	XMLName     xml.Name                 `xml:"Sync"`
	Status      string                   `xml:",omitempty"`
	Limit       string                   `xml:",omitempty"`
	Collections *SyncResponseCollections `xml:",omitempty"`
}

type SyncResponseCollections struct {
	Collection []SyncResponseCollection
}

type SyncResponseCollection struct {
	SyncKey       string
	CollectionId  string
	Status        string
	Class         string                `xml:",omitempty"`
	MoreAvailable *Empty                `xml:",omitempty"`
	Commands      *SyncResponseCommands `xml:",omitempty"`
	Responses     *SyncResponses        `xml:",omitempty"`
}

type SyncResponseCommands struct {
	Add        []SyncAdd
	Change     []SyncChange
	Delete     []SyncDelete
	SoftDelete []SyncDelete
}

type SyncResponses struct {
	Add    []SyncResponseItem
	Change []SyncResponseItem
	Fetch  []SyncResponseItem
}

type SyncResponseItem struct {
	ClientId        string `xml:",omitempty"`
	ServerId        string `xml:",omitempty"`
	Status          string
	ApplicationData *InnerXML `xml:",omitempty"`
}

// Collection returns the first collection of the response, if any.
func (r *SyncData) Collection() (*SyncResponseCollection, bool) {
	if r.Collections == nil || len(r.Collections.Collection) == 0 {
		return nil, false
	}

	return &r.Collections.Collection[0], true
}

type GetItemEstimateRequest struct {
	XMLName     xml.Name   `xml:"GetItemEstimate"`
	NS          string     `xml:"xmlns,attr"`
	Parameters  Parameters `xml:"-"`
	Collections struct {
		Collection []GetItemEstimateCollection
	}
}

type GetItemEstimateCollection struct {
	SyncKey      string `xml:"AirSync: SyncKey"`
	CollectionId string
	Options      []InnerXML `xml:"AirSync: Options,omitempty"`
}

type GetItemEstimateResponse struct {
	*RawResponse
	ResponseData GetItemEstimateData
}

type GetItemEstimateData struct {
	XMLName  xml.Name `xml:"GetItemEstimate"`
	Status   string   `xml:",omitempty"`
	Response []struct {
		Status     string
		Collection struct {
			CollectionId string
			Estimate     string
		}
	}
}

type MoveItemsRequest struct {
	XMLName    xml.Name   `xml:"MoveItems"`
	NS         string     `xml:"xmlns,attr"`
	Parameters Parameters `xml:"-"`
	Move       []MoveItem
}

type MoveItem struct {
	SrcMsgId string
	SrcFldId string
	DstFldId string
}

type MoveItemsResponse struct {
	*RawResponse
	ResponseData MoveItemsData
}

type MoveItemsData struct {
	XMLName  xml.Name `xml:"MoveItems"`
	Status   string   `xml:",omitempty"`
	Response []MoveItemResult
}

type MoveItemResult struct {
	SrcMsgId string
	Status   string
	DstMsgId string `xml:",omitempty"`
}

type PingRequest struct {
	XMLName           xml.Name     `xml:"Ping"`
	NS                string       `xml:"xmlns,attr"`
	Parameters        Parameters   `xml:"-"`
	HeartbeatInterval string       `xml:",omitempty"`
	Folders           *PingFolders `xml:",omitempty"`
}

type PingFolders struct {
	Folder []PingFolder
}

type PingFolder struct {
	Id    string
	Class string
}

type PingResponse struct {
	*RawResponse
	ResponseData PingData
}

type PingData struct {
	XMLName           xml.Name `xml:"Ping"`
	Status            string
	HeartbeatInterval string `xml:",omitempty"`
	MaxFolders        string `xml:",omitempty"`
	Folders           *struct {
		Folder []string
	} `xml:",omitempty"`
}
