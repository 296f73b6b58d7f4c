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

package session

import (
	"fmt"
	"testing"
)

func TestParseVersion(t *testing.T) {
	tests := []struct {
		in   string
		want Version
		ok   bool
	}{
		{"14.0", Version140, true},
		{"140", Version140, true},
		{"121", Version121, true},
		{" 16.1 ", Version161, true},
		{"2.5", "", false},
		{"15.0", "", false},
		{"", "", false},
	}

	for _, v := range tests {
		got, err := ParseVersion(v.in)
		if v.ok && err != nil {
			t.Errorf("ParseVersion(%q): unexpected error: %v", v.in, err)
			continue
		}
		if !v.ok {
			if err == nil {
				t.Errorf("ParseVersion(%q): we expect an error, but we got nil error!", v.in)
			}
			continue
		}
		if got != v.want {
			t.Errorf("ParseVersion(%q) = %v, want %v", v.in, got, v.want)
		}
	}
}

func TestVersionCode(t *testing.T) {
	c, err := Version141.Code()
	if err != nil {
		t.Fatal(err)
	}
	if c != 141 {
		t.Fatalf("Code() = %v, want 141", c)
	}
	if _, err := Version("9.9").Code(); err == nil {
		t.Fatal("we expect an error, but we got nil error!")
	}
	if Version121.Major() != "12" {
		t.Fatalf("Major() = %v, want 12", Version121.Major())
	}
}

func TestVersionIs(t *testing.T) {
	if !Version140.Is("140") || !Version140.Is("14.0") {
		t.Fatal("14.0 should match both spellings")
	}
	if Version141.Is("14.0") || Version141.Is("garbage") {
		t.Fatal("14.1 should not match 14.0")
	}
	if !Version("121").Is("12.1") {
		t.Fatal("the compact spelling should match the dotted one")
	}
}

func TestParseHeaderEncoding(t *testing.T) {
	if v, err := ParseHeaderEncoding("base64"); err != nil || v != Base64 {
		t.Fatalf("ParseHeaderEncoding(base64) = %v, %v", v, err)
	}
	if v, err := ParseHeaderEncoding("PlainText"); err != nil || v != PlainText {
		t.Fatalf("ParseHeaderEncoding(PlainText) = %v, %v", v, err)
	}
	if _, err := ParseHeaderEncoding("hex"); err == nil {
		t.Fatal("we expect an error, but we got nil error!")
	}
}

func TestSetters(t *testing.T) {
	c := &Context{UserName: "bob", Password: "secret", Domain: "fabrikam", DeviceID: "OLD"}
	snapshot := c.Clone()

	c.SetCredential("alice", "pw", "contoso")
	c.SetDeviceID("DEV123")
	c.SetDeviceType("Phone")
	c.SetPolicyKey("3942919513")
	c.SetHeaderEncoding(Base64)

	if c.UserName != "alice" || c.Password != "pw" || c.Domain != "contoso" {
		t.Fatalf("unexpected credential: %+v", c)
	}
	if c.DeviceID != "DEV123" || c.DeviceType != "Phone" || c.PolicyKey != "3942919513" || c.HeaderEncoding != Base64 {
		t.Fatalf("unexpected device settings: %+v", c)
	}
	// A clone taken before the changes keeps the old values.
	if snapshot.UserName != "bob" || snapshot.DeviceID != "OLD" {
		t.Fatalf("clone was modified: %+v", snapshot)
	}
	if c.AuthUser() != `contoso\alice` {
		t.Fatalf("AuthUser() = %v", c.AuthUser())
	}
	c.Domain = ""
	if c.AuthUser() != "alice" {
		t.Fatalf("AuthUser() = %v", c.AuthUser())
	}
}

func ExampleParseVersion() {
	v, err := ParseVersion("140")
	if err != nil {
		panic(err)
	}
	fmt.Println(v, v.Major(), v.Is("14.0"), v.Is("14.1"))
	// Output: 14.0 14 true false
}
