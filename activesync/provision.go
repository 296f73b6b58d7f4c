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

const (
	autodiscoverRequestNS  = "http://schemas.microsoft.com/exchange/autodiscover/mobilesync/requestschema/2006"
	AutodiscoverResponseNS = "http://schemas.microsoft.com/exchange/autodiscover/mobilesync/responseschema/2006"
)

type ProvisionRequest struct {
	XMLName    xml.Name   `xml:"Provision"`
	NS         string     `xml:"xmlns,attr"`
	Parameters Parameters `xml:"-"`
	// DeviceInformation must not be sent with protocol versions 12.1 and 14.0.
	DeviceInformation *DeviceInformation `xml:"Settings: DeviceInformation,omitempty"`
	Policies          *ProvisionPolicies `xml:",omitempty"`
	RemoteWipe        *struct {
		Status string
	} `xml:",omitempty"`
}

type ProvisionPolicies struct {
	Policy ProvisionPolicy
}

type ProvisionPolicy struct {
	PolicyType string
	PolicyKey  string `xml:",omitempty"`
	Status     string `xml:",omitempty"`
}

// PolicyTypeXML is the policy type of protocol versions 12.1 and later.
const PolicyTypeXML = "MS-EAS-Provisioning-WBXML"

type DeviceInformation struct {
	Set DeviceInformationSet
}

type DeviceInformationSet struct {
	Model             string `xml:",omitempty"`
	IMEI              string `xml:",omitempty"`
	FriendlyName      string `xml:",omitempty"`
	OS                string `xml:",omitempty"`
	OSLanguage        string `xml:",omitempty"`
	PhoneNumber       string `xml:",omitempty"`
	UserAgent         string `xml:",omitempty"`
	EnableOutboundSMS string `xml:",omitempty"`
	MobileOperator    string `xml:",omitempty"`
}

type ProvisionResponse struct {
	*RawResponse
	ResponseData ProvisionData
}

type ProvisionData struct {
	XMLName           xml.Name `xml:"Provision"`
	Status            string
	DeviceInformation *struct {
		Status string
	} `xml:",omitempty"`
	Policies *struct {
		Policy struct {
			PolicyType string
			Status     string
			PolicyKey  string
			Data       *InnerXML `xml:",omitempty"`
		}
	} `xml:",omitempty"`
	RemoteWipe *Empty `xml:",omitempty"`
}

// PolicyKey returns the policy key the server issued, if any.
func (r *ProvisionData) PolicyKey() string {
	if r.Policies == nil {
		return ""
	}

	return r.Policies.Policy.PolicyKey
}

type SettingsRequest struct {
	XMLName    xml.Name   `xml:"Settings"`
	NS         string     `xml:"xmlns,attr"`
	Parameters Parameters `xml:"-"`
	Oof        *struct {
		Get *struct {
			BodyType string
		} `xml:",omitempty"`
		Set *InnerXML `xml:",omitempty"`
	} `xml:",omitempty"`
	DevicePassword *struct {
		Set struct {
			Password string
		}
	} `xml:",omitempty"`
	DeviceInformation *DeviceInformation `xml:",omitempty"`
	UserInformation   *struct {
		Get *Empty
	} `xml:",omitempty"`
	RightsManagementInformation *struct {
		Get *Empty
	} `xml:",omitempty"`
}

type SettingsResponse struct {
	*RawResponse
	ResponseData SettingsData
}

type SettingsData struct {
	XMLName xml.Name `xml:"Settings"`
	Status  string
	Oof     *struct {
		Status string
		Get    *InnerXML `xml:",omitempty"`
	} `xml:",omitempty"`
	DevicePassword *struct {
		Status string
	} `xml:",omitempty"`
	DeviceInformation *struct {
		Status string
	} `xml:",omitempty"`
	UserInformation *struct {
		Status string
		Get    *struct {
			EmailAddresses *struct {
				SMTPAddress        []string
				PrimarySmtpAddress string `xml:",omitempty"`
			} `xml:",omitempty"`
			Accounts *InnerXML `xml:",omitempty"`
		} `xml:",omitempty"`
	} `xml:",omitempty"`
	RightsManagementInformation *struct {
		Status string
		Get    *InnerXML `xml:",omitempty"`
	} `xml:",omitempty"`
}

type AutodiscoverRequest struct {
	XMLName    xml.Name   `xml:"Autodiscover"`
	NS         string     `xml:"xmlns,attr"`
	Parameters Parameters `xml:"-"`
	Request    struct {
		EMailAddress             string
		AcceptableResponseSchema string
	}
}

// NewAutodiscoverRequest returns a request for the mobile sync settings of email.
func NewAutodiscoverRequest(email string) *AutodiscoverRequest {
	req := &AutodiscoverRequest{NS: autodiscoverRequestNS}
	req.Request.EMailAddress = email
	req.Request.AcceptableResponseSchema = AutodiscoverResponseNS

	return req
}

type AutodiscoverResponse struct {
	*RawResponse
	ResponseData AutodiscoverData
}

type AutodiscoverData struct {
	XMLName  xml.Name `xml:"Autodiscover"`
	Response *struct {
		Culture string
		User    struct {
			DisplayName  string
			EMailAddress string
		}
		Action *struct {
			Redirect string `xml:",omitempty"`
			Settings *struct {
				Server []struct {
					Type       string
					Url        string
					Name       string
					ServerData string `xml:",omitempty"`
				}
			} `xml:",omitempty"`
			Error *AutodiscoverError `xml:",omitempty"`
		} `xml:",omitempty"`
		Error *AutodiscoverError `xml:",omitempty"`
	} `xml:",omitempty"`
}

type AutodiscoverError struct {
	Status    string `xml:",omitempty"`
	ErrorCode string `xml:",omitempty"`
	Message   string `xml:",omitempty"`
	DebugData string `xml:",omitempty"`
}

type ItemOperationsRequest struct {
	XMLName             xml.Name   `xml:"ItemOperations"`
	NS                  string     `xml:"xmlns,attr"`
	Parameters          Parameters `xml:"-"`
	EmptyFolderContents []struct {
		CollectionId string `xml:"AirSync: CollectionId"`
		Options      *struct {
			DeleteSubFolders *Empty
		} `xml:",omitempty"`
	} `xml:",omitempty"`
	Fetch []ItemOperationsFetch `xml:",omitempty"`
	Move  []struct {
		ConversationId string
		DstFldId       string
		Options        *InnerXML `xml:",omitempty"`
	} `xml:",omitempty"`
}

type ItemOperationsFetch struct {
	Store         string
	ServerId      string    `xml:"AirSync: ServerId,omitempty"`
	CollectionId  string    `xml:"AirSync: CollectionId,omitempty"`
	LinkId        string    `xml:"DocumentLibrary: LinkId,omitempty"`
	LongId        string    `xml:"Search: LongId,omitempty"`
	FileReference string    `xml:"AirSyncBase: FileReference,omitempty"`
	Options       *InnerXML `xml:",omitempty"`
}

type ItemOperationsResponse struct {
	*RawResponse
	ResponseData ItemOperationsData
}

type ItemOperationsData struct {
	XMLName  xml.Name `xml:"ItemOperations"`
	Status   string
	Response *struct {
		EmptyFolderContents []struct {
			Status       string
			CollectionId string
		}
		Fetch []struct {
			Status        string
			CollectionId  string    `xml:",omitempty"`
			ServerId      string    `xml:",omitempty"`
			LongId        string    `xml:",omitempty"`
			LinkId        string    `xml:",omitempty"`
			FileReference string    `xml:",omitempty"`
			Class         string    `xml:",omitempty"`
			Properties    *InnerXML `xml:",omitempty"`
		}
		Move []struct {
			Status         string
			ConversationId string
		}
	} `xml:",omitempty"`
}
