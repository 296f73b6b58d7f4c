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

package main

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/alecthomas/chroma"
	"github.com/alecthomas/chroma/formatters"
	"github.com/alecthomas/chroma/lexers"
	"github.com/alecthomas/chroma/styles"
	"golang.org/x/term"
)

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}

	return term.IsTerminal(int(f.Fd()))
}

// printXML writes the indented s. s is written as it is if it is not
// well-formed.
func printXML(w io.Writer, s string, color bool) {
	out := indentXML(s)
	if !color {
		fmt.Fprintln(w, out)
		return
	}

	var buf bytes.Buffer
	if err := highlight(&buf, out); err != nil {
		fmt.Fprintln(w, out)
		return
	}
	fmt.Fprintln(w, buf.String())
}

func indentXML(s string) string {
	var buf bytes.Buffer
	d := xml.NewDecoder(strings.NewReader(s))
	e := xml.NewEncoder(&buf)
	e.Indent("", "  ")
	for {
		t, err := d.RawToken()
		if err == io.EOF {
			break
		}
		if err != nil {
			return s
		}
		// Whitespace between elements is replaced by the indentation.
		if c, ok := t.(xml.CharData); ok && len(bytes.TrimSpace(c)) == 0 {
			continue
		}
		if err := e.EncodeToken(flatten(t)); err != nil {
			return s
		}
	}
	if err := e.Flush(); err != nil {
		return s
	}

	return buf.String()
}

// flatten keeps the namespace prefixes as a part of the local names so that
// the encoder writes the names as they are.
func flatten(t xml.Token) xml.Token {
	name := func(n xml.Name) xml.Name {
		if len(n.Space) == 0 {
			return n
		}
		return xml.Name{Local: n.Space + ":" + n.Local}
	}

	switch v := t.(type) {
	case xml.StartElement:
		v.Name = name(v.Name)
		attrs := make([]xml.Attr, len(v.Attr))
		for i, a := range v.Attr {
			attrs[i] = xml.Attr{Name: name(a.Name), Value: a.Value}
		}
		v.Attr = attrs
		return v
	case xml.EndElement:
		v.Name = name(v.Name)
		return v
	default:
		return xml.CopyToken(t)
	}
}

func highlight(w io.Writer, s string) error {
	lexer := lexers.Get("xml")
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	style := styles.Get("monokai")
	if style == nil {
		style = styles.Fallback
	}
	formatter := formatters.Get("terminal256")
	if formatter == nil {
		formatter = formatters.Fallback
	}

	iterator, err := lexer.Tokenise(nil, s)
	if err != nil {
		return err
	}

	return formatter.Format(w, style, iterator)
}

func escape(s string) string {
	var buf bytes.Buffer
	// Writing to a bytes.Buffer never fails.
	xml.EscapeText(&buf, []byte(s))

	return buf.String()
}
