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

// Package mime handles the RFC 822 messages carried by the SendMail,
// SmartForward and SmartReply commands.
package mime

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"time"

	"github.com/jhillyerd/go.enmime"
)

var bccHeader = regexp.MustCompile("(?im)^BCC:.*\\r\\n")

// Message is a parsed MIME message.
type Message struct {
	// Raw MIME message
	Raw []byte
	// Normalized is the message with CRLF line breaks and without the Bcc header.
	Normalized []byte
	// Recipient addresses including Cc and Bcc.
	Recipients []string
	Subject    string
	From       string
	Text       string
	// Number of the attachments
	Attachments int
	Header      mail.Header
}

func Parse(raw []byte) (*Message, error) {
	m, err := mail.ReadMessage(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	// Parse message body with enmime
	body, err := enmime.ParseMIMEBody(m)
	if err != nil {
		return nil, err
	}
	addrs, err := recipients(body)
	if err != nil {
		return nil, err
	}

	return &Message{
		Raw:         raw,
		Normalized:  RemoveBCC(ConvertToCRLF(raw)),
		Recipients:  addrs,
		Subject:     body.GetHeader("Subject"),
		From:        body.GetHeader("From"),
		Text:        body.Text,
		Attachments: len(body.Attachments),
		Header:      m.Header,
	}, nil
}

// ConvertToCRLF replaces every bare LF line break with CRLF.
func ConvertToCRLF(data []byte) []byte {
	if len(data) == 0 {
		return data
	}

	tokens := bytes.Split(data, []byte("\n"))
	out := make([][]byte, len(tokens))
	for i, v := range tokens {
		if len(v) == 0 {
			continue
		}
		switch v[len(v)-1] {
		case '\r':
			out[i] = v[:len(v)-1]
		default:
			out[i] = v
		}
	}

	return bytes.Join(out, []byte("\r\n"))
}

// RemoveBCC removes the Bcc header field. data should have CRLF line breaks.
func RemoveBCC(data []byte) []byte {
	if len(data) == 0 {
		return data
	}

	return bccHeader.ReplaceAll(data, []byte(""))
}

func recipients(body *enmime.MIMEBody) (addrs []string, err error) {
	to, err := body.AddressList("To")
	// To is required.
	if err != nil {
		return nil, err
	}
	addrs = append(addrs, plainAddrs(to)...)

	for _, key := range []string{"Cc", "Bcc"} {
		list, err := body.AddressList(key)
		// Optional.
		if err != nil && err != mail.ErrHeaderNotPresent {
			return nil, err
		}
		addrs = append(addrs, plainAddrs(list)...)
	}

	return addrs, nil
}

func plainAddrs(addrs []*mail.Address) []string {
	out := make([]string, len(addrs))
	for i, v := range addrs {
		out[i] = v.Address
	}

	return out
}

// Compose returns a plain text message with CRLF line breaks. A text that
// is not 7bit is base64 encoded.
func Compose(from string, to []string, subject, text string) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "From: %v\r\n", from)
	fmt.Fprintf(&buf, "To: %v\r\n", strings.Join(to, ", "))
	fmt.Fprintf(&buf, "Subject: %v\r\n", subject)
	fmt.Fprintf(&buf, "Date: %v\r\n", time.Now().Format(time.RFC1123Z))
	buf.WriteString("MIME-Version: 1.0\r\n")
	buf.WriteString("Content-Type: text/plain; charset=utf-8\r\n")

	body := ConvertToCRLF([]byte(text))
	if is7bit(body) {
		buf.WriteString("\r\n")
		buf.Write(body)
		buf.WriteString("\r\n")
		return buf.Bytes()
	}
	buf.WriteString("Content-Transfer-Encoding: base64\r\n")
	buf.WriteString("\r\n")
	buf.WriteString(WrapLines(base64.StdEncoding.EncodeToString(body)))

	return buf.Bytes()
}

// is7bit reports whether data is ASCII text whose lines are within the
// SMTP limit of 998 characters.
func is7bit(data []byte) bool {
	n := 0
	for _, v := range data {
		if v == 0 || v >= 0x80 {
			return false
		}
		if v == '\n' {
			n = 0
			continue
		}
		if n++; n > 998 {
			return false
		}
	}

	return true
}

// WrapLines breaks data into CRLF terminated lines of 76 characters, the
// line length of the base64 content transfer encoding.
func WrapLines(data string) string {
	if len(data) == 0 {
		return ""
	}

	buf := bytes.NewBufferString(data)
	line := make([]byte, 76)
	var out bytes.Buffer
	for {
		n, err := buf.Read(line)
		if err != nil {
			break
		}
		out.Write(line[:n])
		out.WriteString("\r\n")
	}

	return out.String()
}
