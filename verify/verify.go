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

// Package verify checks command responses at three levels: the transport,
// the captured WBXML exchange and the command semantics.
package verify

import (
	"fmt"

	"github.com/superkkt/ascmd/activesync"
)

type Step int

const (
	Transport Step = iota
	WBXMLCapture
	Semantic
)

func (r Step) String() string {
	switch r {
	case Transport:
		return "Transport"
	case WBXMLCapture:
		return "WBXMLCapture"
	case Semantic:
		return "Semantic"
	default:
		return fmt.Sprintf("Step(%d)", int(r))
	}
}

// Failure is a verification failure of a command response.
type Failure struct {
	Command activesync.CommandName
	Step    Step
	Reason  string
}

func (r *Failure) Error() string {
	return fmt.Sprintf("%v verification failed at %v: %v", r.Command, r.Step, r.Reason)
}

// Verifier runs the verification routines. Every method returns nil if the
// response passes.
type Verifier interface {
	Transport(resp *activesync.RawResponse) error
	WBXMLCapture(cmd activesync.CommandName, resp activesync.Response) error
	Command(cmd activesync.CommandName, resp activesync.Response) error
}

// Run runs f as step of cmd and converts its error into a Failure. An error
// that is already a Failure is returned as it is.
func Run(cmd activesync.CommandName, step Step, f func() error) error {
	err := f()
	if err == nil {
		return nil
	}
	if v, ok := err.(*Failure); ok {
		return v
	}

	return &Failure{Command: cmd, Step: step, Reason: err.Error()}
}
