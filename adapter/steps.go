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

package adapter

import (
	"github.com/superkkt/ascmd/activesync"
	"github.com/superkkt/ascmd/verify"
)

// outcome is the part of a response that decides the verification steps.
type outcome struct {
	// HTTP status code
	statusCode int
	// Number of the Response elements in a MoveItems response
	moveResults int
}

// verificationSteps returns the verification steps of cmd in the order they
// should run.
func verificationSteps(cmd activesync.CommandName, o outcome) []verify.Step {
	all := []verify.Step{verify.Transport, verify.WBXMLCapture, verify.Semantic}

	switch cmd {
	case activesync.GetHierarchy:
		return []verify.Step{verify.Semantic}
	case activesync.GetAttachment:
		return []verify.Step{verify.Transport, verify.WBXMLCapture}
	case activesync.FolderSync:
		if o.statusCode != 200 {
			return []verify.Step{verify.Transport}
		}
		return all
	case activesync.MoveItems:
		if o.moveResults == 0 {
			return []verify.Step{verify.Transport}
		}
		return all
	default:
		return all
	}
}
