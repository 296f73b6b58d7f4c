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
	"errors"
	"fmt"

	"github.com/superkkt/ascmd/activesync"
	"github.com/superkkt/ascmd/cert"

	"github.com/urfave/cli/v3"
	"golang.org/x/net/context"
)

var validateCertCommand = &cli.Command{
	Name:  "validate-cert",
	Usage: "ask the server to validate the certificates in PEM files",
	Flags: []cli.Flag{
		&cli.StringSliceFlag{
			Name:     "cert",
			Usage:    "PEM file of the certificates to validate",
			Required: true,
		},
		&cli.StringSliceFlag{
			Name:  "chain",
			Usage: "PEM file of the intermediate certificates",
		},
		&cli.BoolFlag{
			Name:  "check-crl",
			Usage: "ask the server to check the revocation lists",
		},
		&cli.IntFlag{
			Name:  "user",
			Value: 1,
			Usage: "configured user number",
		},
	},
	Action: validateCertAction,
}

func validateCertAction(ctx context.Context, cmd *cli.Command) error {
	conf := configFrom(ctx)

	req, err := newValidateCertRequest(cmd.StringSlice("cert"), cmd.StringSlice("chain"), cmd.Bool("check-crl"))
	if err != nil {
		return err
	}
	user := int(cmd.Int("user")) - 1
	if user < 0 || user >= len(conf.Users) {
		return fmt.Errorf("invalid user number: %v", cmd.Int("user"))
	}
	if err := askPasswords(conf); err != nil {
		return err
	}

	sender, err := newSender(conf)
	if err != nil {
		return err
	}
	recorder, closer, err := openRecorder(conf)
	if err != nil {
		return fmt.Errorf("failed to open the capture: %v", err)
	}
	if closer != nil {
		defer closer.Close()
	}
	a, err := newAdapter(conf, sender, recorder, user)
	if err != nil {
		return err
	}

	resp, err := a.ValidateCert(req)
	if err != nil {
		return err
	}

	w := cmd.Root().Writer
	fmt.Fprintf(w, "Status: %v\n", resp.ResponseData.Status)
	for i, v := range resp.ResponseData.Certificate {
		fmt.Fprintf(w, "Certificate #%v: %v\n", i+1, v.Status)
	}

	return nil
}

// newValidateCertRequest reads the certificates of every file in certs and
// chain in the given order.
func newValidateCertRequest(certs, chain []string, checkCRL bool) (*activesync.ValidateCertRequest, error) {
	read := func(files []string) ([]string, error) {
		var result []string
		for _, v := range files {
			c, err := cert.ReadCertificates(v)
			if err != nil {
				return nil, fmt.Errorf("reading certificates from %v: %v", v, err)
			}
			result = append(result, c...)
		}
		return result, nil
	}

	req := new(activesync.ValidateCertRequest)
	c, err := read(certs)
	if err != nil {
		return nil, err
	}
	if len(c) == 0 {
		return nil, errors.New("no certificate to validate")
	}
	req.Certificates.Certificate = c

	if c, err = read(chain); err != nil {
		return nil, err
	}
	if len(c) > 0 {
		req.CertificateChain = &struct {
			Certificate []string
		}{Certificate: c}
	}
	if checkCRL {
		req.CheckCRL = "1"
	}

	return req, nil
}
