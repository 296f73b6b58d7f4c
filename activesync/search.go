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

// SearchPending is the Search and Find status the server returns while the
// search is still being processed.
const SearchPending = "10"

type SearchRequest struct {
	XMLName    xml.Name   `xml:"Search"`
	NS         string     `xml:"xmlns,attr"`
	Parameters Parameters `xml:"-"`
	Store      SearchStore
}

type SearchStore struct {
	// Name is one of Mailbox, DocumentLibrary and GAL.
	Name    string
	Query   InnerXML
	Options *SearchOptions `xml:",omitempty"`
}

type SearchOptions struct {
	Range          string     `xml:",omitempty"`
	UserName       string     `xml:",omitempty"`
	Password       string     `xml:",omitempty"`
	DeepTraversal  *Empty     `xml:",omitempty"`
	RebuildResults *Empty     `xml:",omitempty"`
	BodyPreference []InnerXML `xml:"AirSyncBase: BodyPreference,omitempty"`
}

type SearchResponse struct {
	*RawResponse
	ResponseData SearchData
}

type SearchData struct {
	XMLName  xml.Name `xml:"Search"`
	Status   string
	Response *struct {
		Store SearchResultStore
	} `xml:",omitempty"`
}

type SearchResultStore struct {
	Status string
	Result []SearchResult
	Range  string `xml:",omitempty"`
	Total  string `xml:",omitempty"`
}

type SearchResult struct {
	Class        string    `xml:",omitempty"`
	LongId       string    `xml:",omitempty"`
	CollectionId string    `xml:",omitempty"`
	Properties   *InnerXML `xml:",omitempty"`
}

type FindRequest struct {
	XMLName       xml.Name   `xml:"Find"`
	NS            string     `xml:"xmlns,attr"`
	Parameters    Parameters `xml:"-"`
	SearchId      string
	ExecuteSearch FindExecuteSearch
}

type FindExecuteSearch struct {
	MailBoxSearchCriterion *FindCriterion `xml:",omitempty"`
	GALSearchCriterion     *FindCriterion `xml:",omitempty"`
}

type FindCriterion struct {
	Query   FindQuery
	Options *FindOptions `xml:",omitempty"`
}

type FindQuery struct {
	Class        string `xml:"AirSync: Class,omitempty"`
	CollectionId string `xml:"AirSync: CollectionId,omitempty"`
	FreeText     string `xml:",omitempty"`
}

type FindOptions struct {
	Range         string `xml:",omitempty"`
	DeepTraversal *Empty `xml:",omitempty"`
}

type FindResponse struct {
	*RawResponse
	ResponseData FindData
}

type FindData struct {
	XMLName  xml.Name `xml:"Find"`
	Status   string
	Response *struct {
		Store  string
		Status string
		Result []FindResult
		Range  string `xml:",omitempty"`
		Total  string `xml:",omitempty"`
	} `xml:",omitempty"`
}

type FindResult struct {
	Class        string    `xml:",omitempty"`
	ServerId     string    `xml:",omitempty"`
	CollectionId string    `xml:",omitempty"`
	Properties   *InnerXML `xml:",omitempty"`
}

type ResolveRecipientsRequest struct {
	XMLName    xml.Name   `xml:"ResolveRecipients"`
	NS         string     `xml:"xmlns,attr"`
	Parameters Parameters `xml:"-"`
	To         []string
	Options    *ResolveRecipientsOptions `xml:",omitempty"`
}

type ResolveRecipientsOptions struct {
	CertificateRetrieval   string `xml:",omitempty"`
	MaxCertificates        string `xml:",omitempty"`
	MaxAmbiguousRecipients string `xml:",omitempty"`
	Availability           *struct {
		StartTime string
		EndTime   string
	} `xml:",omitempty"`
	Picture *InnerXML `xml:",omitempty"`
}

type ResolveRecipientsResponse struct {
	*RawResponse
	ResponseData ResolveRecipientsData
}

type ResolveRecipientsData struct {
	XMLName  xml.Name `xml:"ResolveRecipients"`
	Status   string
	Response []struct {
		To             string
		Status         string
		RecipientCount string
		Recipient      []Recipient
	}
}

type Recipient struct {
	Type         string
	DisplayName  string
	EmailAddress string
	Availability *struct {
		Status         string
		MergedFreeBusy string
	} `xml:",omitempty"`
	Certificates *struct {
		Status           string
		CertificateCount string
		RecipientCount   string
		Certificate      []string
		MiniCertificate  string
	} `xml:",omitempty"`
}

type ValidateCertRequest struct {
	XMLName          xml.Name   `xml:"ValidateCert"`
	NS               string     `xml:"xmlns,attr"`
	Parameters       Parameters `xml:"-"`
	CertificateChain *struct {
		Certificate []string
	} `xml:",omitempty"`
	Certificates struct {
		Certificate []string
	}
	CheckCRL string `xml:",omitempty"`
}

type ValidateCertResponse struct {
	*RawResponse
	ResponseData ValidateCertData
}

type ValidateCertData struct {
	XMLName     xml.Name `xml:"ValidateCert"`
	Status      string
	Certificate []struct {
		Status string
	}
}
