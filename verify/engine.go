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

package verify

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/superkkt/ascmd/activesync"
)

const (
	wbxmlContentType     = "application/vnd.ms-sync.wbxml"
	multipartContentType = "application/vnd.ms-sync.multipart"
)

// Command specific status codes are 1 to the maximum below. Every command
// also shares the common status codes.
var maxStatus = map[activesync.CommandName]int{
	activesync.Sync:              16,
	activesync.FolderSync:        12,
	activesync.FolderCreate:      11,
	activesync.FolderDelete:      11,
	activesync.FolderUpdate:      11,
	activesync.MoveItems:         7,
	activesync.GetItemEstimate:   4,
	activesync.MeetingResponse:   6,
	activesync.Search:            15,
	activesync.Find:              15,
	activesync.Settings:          7,
	activesync.Ping:              8,
	activesync.ItemOperations:    18,
	activesync.Provision:         3,
	activesync.ResolveRecipients: 14,
	activesync.ValidateCert:      17,
	activesync.GetHierarchy:      1,
}

const (
	minCommonStatus = 101
	maxCommonStatus = 177
)

// Engine is the default Verifier. It checks the structure of the exchange
// only, not the content of the response.
type Engine struct{}

func (r Engine) Transport(resp *activesync.RawResponse) error {
	if resp == nil {
		return errors.New("nil response")
	}
	if resp.Method != "" && resp.Method != http.MethodPost {
		return fmt.Errorf("unexpected HTTP method: %v", resp.Method)
	}
	if resp.StatusCode != http.StatusOK || len(resp.Body) == 0 || resp.Request == nil {
		return nil
	}

	switch resp.Request.Command {
	case activesync.Autodiscover, activesync.GetAttachment, activesync.GetHierarchy:
		return nil
	}
	contentType := strings.ToLower(resp.Header.Get("Content-Type"))
	if !strings.HasPrefix(contentType, wbxmlContentType) && !strings.HasPrefix(contentType, multipartContentType) {
		return fmt.Errorf("unexpected response content type: %v", contentType)
	}

	return nil
}

func (r Engine) WBXMLCapture(cmd activesync.CommandName, resp activesync.Response) error {
	raw := resp.Raw()
	if raw == nil {
		return errors.New("nil response")
	}

	if raw.RequestXML != "" {
		if _, err := rootElement(raw.RequestXML); err != nil {
			return fmt.Errorf("malformed request XML: %v", err)
		}
	}
	if raw.XML == "" {
		return nil
	}
	root, err := rootElement(raw.XML)
	if err != nil {
		return fmt.Errorf("malformed response XML: %v", err)
	}
	if want := expectedRoot(cmd); root != want {
		return fmt.Errorf("unexpected root element: %v (expected %v)", root, want)
	}

	return nil
}

func (r Engine) Command(cmd activesync.CommandName, resp activesync.Response) error {
	raw := resp.Raw()
	if raw == nil {
		return errors.New("nil response")
	}
	if raw.XML == "" {
		return nil
	}

	status, ok, err := topLevelStatus(raw.XML)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	v, err := strconv.Atoi(status)
	if err != nil {
		return fmt.Errorf("invalid status: %v", status)
	}
	if v >= minCommonStatus && v <= maxCommonStatus {
		return nil
	}
	if limit := maxStatus[cmd]; v < 1 || v > limit {
		return fmt.Errorf("status out of range: %v", v)
	}

	return nil
}

func expectedRoot(cmd activesync.CommandName) string {
	if cmd == activesync.GetHierarchy {
		return "Folders"
	}

	return string(cmd)
}

func rootElement(doc string) (string, error) {
	d := xml.NewDecoder(strings.NewReader(doc))
	root := ""
	for {
		t, err := d.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
		if v, ok := t.(xml.StartElement); ok && root == "" {
			root = v.Name.Local
		}
	}
	if root == "" {
		return "", errors.New("no root element")
	}

	return root, nil
}

// topLevelStatus returns the Status element that is a direct child of the root.
func topLevelStatus(doc string) (status string, ok bool, err error) {
	d := xml.NewDecoder(strings.NewReader(doc))
	depth := 0
	for {
		t, err := d.Token()
		if err == io.EOF {
			return "", false, nil
		}
		if err != nil {
			return "", false, fmt.Errorf("malformed response XML: %v", err)
		}

		switch v := t.(type) {
		case xml.StartElement:
			depth++
			if depth == 2 && v.Name.Local == "Status" {
				var s string
				if err := d.DecodeElement(&s, &v); err != nil {
					return "", false, fmt.Errorf("malformed Status element: %v", err)
				}
				return strings.TrimSpace(s), true, nil
			}
		case xml.EndElement:
			depth--
		}
	}
}
