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
	"encoding/binary"
	"encoding/xml"
	"errors"
	"fmt"
	"strings"

	wbxml "github.com/superkkt/go-libwbxml"
	"github.com/superkkt/logger"
)

const (
	xmlHeader = `<?xml version="1.0" encoding="utf-8"?>`
	docType   = `<!DOCTYPE ActiveSync PUBLIC "-//MICROSOFT//DTD ActiveSync//EN" "http://www.microsoft.com/">`
)

// Codec converts between the XML and the WBXML representations.
type Codec interface {
	Encode(xml string) ([]byte, error)
	Decode(wbxml []byte) (string, error)
}

// WBXML is the libwbxml based Codec.
type WBXML struct{}

func (r WBXML) Encode(xml string) ([]byte, error) {
	if !strings.HasPrefix(xml, "<?xml") {
		xml = xmlHeader + docType + xml
	}

	encoded, err := wbxml.Encode(xml)
	if err != nil {
		return nil, err
	}
	logger.Debug(fmt.Sprintf("WBXML encoded: %v bytes", len(encoded)))

	return encoded, nil
}

func (r WBXML) Decode(data []byte) (string, error) {
	dec, err := wbxml.Decode(data)
	if err != nil {
		return "", fmt.Errorf("failed to decode WBXML: %v", err)
	}

	return dec, nil
}

// marshalBody returns the XML document of v without the XML header.
func marshalBody(v interface{}) (string, error) {
	if v == nil {
		return "", nil
	}
	output, err := xml.Marshal(v)
	if err != nil {
		return "", err
	}

	return string(output), nil
}

// unmarshalBody decodes the XML document into dest. An empty document
// leaves dest untouched.
func unmarshalBody(doc string, dest interface{}) error {
	if len(strings.TrimSpace(doc)) == 0 || dest == nil {
		return nil
	}
	if err := xml.Unmarshal([]byte(doc), dest); err != nil {
		return fmt.Errorf("malformed response XML: %v", err)
	}

	return nil
}

// parseParts reads the metadata at the head of a multipart body: the number
// of parts followed by an (offset, length) pair for each part, all of them
// 32-bit little-endian integers.
func parseParts(body []byte) ([]Part, error) {
	if len(body) < 4 {
		return nil, errors.New("too short multipart body")
	}
	count := int(int32(binary.LittleEndian.Uint32(body[0:4])))
	if count < 0 || len(body) < 4+count*8 {
		return nil, fmt.Errorf("invalid multipart part count: %v", count)
	}

	parts := make([]Part, count)
	for i := 0; i < count; i++ {
		p := body[4+i*8:]
		parts[i] = Part{
			Offset: int(int32(binary.LittleEndian.Uint32(p[0:4]))),
			Length: int(int32(binary.LittleEndian.Uint32(p[4:8]))),
		}
		if parts[i].Offset < 0 || parts[i].Length < 0 || parts[i].Offset+parts[i].Length > len(body) {
			return nil, fmt.Errorf("multipart part %v is out of range: offset=%v, length=%v", i, parts[i].Offset, parts[i].Length)
		}
	}

	return parts, nil
}

// PartData returns the bytes of the i-th part of a multipart response.
func (r *RawResponse) PartData(i int) ([]byte, error) {
	if i < 0 || i >= len(r.Parts) {
		return nil, fmt.Errorf("no such multipart part: %v", i)
	}
	p := r.Parts[i]

	return r.Body[p.Offset : p.Offset+p.Length], nil
}
