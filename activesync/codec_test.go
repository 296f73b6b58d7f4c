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
	"bytes"
	"encoding/binary"
	"testing"
)

func multipartBody(parts ...[]byte) []byte {
	var head, data bytes.Buffer
	binary.Write(&head, binary.LittleEndian, int32(len(parts)))
	offset := 4 + len(parts)*8
	for _, v := range parts {
		binary.Write(&head, binary.LittleEndian, int32(offset))
		binary.Write(&head, binary.LittleEndian, int32(len(v)))
		data.Write(v)
		offset += len(v)
	}

	return append(head.Bytes(), data.Bytes()...)
}

func TestParseParts(t *testing.T) {
	body := multipartBody([]byte("first"), []byte("second part"))
	resp := &RawResponse{Body: body}

	var err error
	resp.Parts, err = parseParts(body)
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Parts) != 2 {
		t.Fatalf("unexpected number of parts: %v", len(resp.Parts))
	}
	for i, want := range []string{"first", "second part"} {
		got, err := resp.PartData(i)
		if err != nil {
			t.Fatal(err)
		}
		if string(got) != want {
			t.Errorf("part %v = %q, want %q", i, got, want)
		}
	}
	if _, err := resp.PartData(2); err == nil {
		t.Fatal("we expect an error, but we got nil error!")
	}
}

func TestParsePartsMalformed(t *testing.T) {
	tests := [][]byte{
		nil,
		{1, 0},
		{2, 0, 0, 0, 12, 0, 0, 0},
		// A part that goes beyond the body.
		{1, 0, 0, 0, 12, 0, 0, 0, 10, 0, 0, 0},
		// Negative count.
		{0xff, 0xff, 0xff, 0xff},
	}

	for i, v := range tests {
		if _, err := parseParts(v); err == nil {
			t.Errorf("#%v: we expect an error, but we got nil error!", i)
		}
	}
}

func TestUnmarshalBody(t *testing.T) {
	var v FolderSyncData
	if err := unmarshalBody("", &v); err != nil {
		t.Fatalf("empty document: unexpected error: %v", err)
	}
	if err := unmarshalBody("<FolderSync><Status>1", &v); err == nil {
		t.Fatal("we expect an error, but we got nil error!")
	}
	if err := unmarshalBody(`<?xml version="1.0" encoding="utf-8"?><FolderSync xmlns="FolderHierarchy:"><Status>1</Status><SyncKey>1</SyncKey></FolderSync>`, &v); err != nil {
		t.Fatal(err)
	}
	if v.Status != "1" || v.SyncKey != "1" {
		t.Fatalf("unexpected result: %+v", v)
	}
}

func TestMarshalBody(t *testing.T) {
	doc, err := marshalBody(&FolderSyncRequest{NS: nsFolderHierarchy, SyncKey: "0"})
	if err != nil {
		t.Fatal(err)
	}
	want := `<FolderSync xmlns="FolderHierarchy:"><SyncKey>0</SyncKey></FolderSync>`
	if doc != want {
		t.Fatalf("marshalBody() = %v, want %v", doc, want)
	}
	if doc, _ := marshalBody(nil); doc != "" {
		t.Fatalf("nil body = %q", doc)
	}
}
