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
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"syscall"

	"github.com/superkkt/ascmd/activesync"
	"github.com/superkkt/ascmd/adapter"
	"github.com/superkkt/ascmd/capture"
	"github.com/superkkt/ascmd/cert"
	"github.com/superkkt/ascmd/config"
	"github.com/superkkt/ascmd/smtp"

	"golang.org/x/term"
)

// newSender returns the HTTP sender of the configured server.
func newSender(conf *config.Config) (*activesync.HTTPSender, error) {
	c := activesync.HTTPConfig{
		Scheme:               conf.Server.Scheme,
		Host:                 conf.Server.Host,
		Endpoint:             conf.Server.Endpoint,
		AutodiscoverEndpoint: conf.Server.AutodiscoverEndpoint,
		UserAgent:            fmt.Sprintf("%v/%v", programName, programVersion),
	}
	if conf.Server.Scheme == "https" {
		tlsConf, err := cert.NewClientConfig(cert.Config{
			CAFile:   conf.Server.CAFile,
			CertFile: conf.Server.ClientCertFile,
			KeyFile:  conf.Server.ClientKeyFile,
		})
		if err != nil {
			return nil, err
		}
		c.TLS = tlsConf
	}

	return activesync.NewHTTPSender(c), nil
}

// openRecorder returns nil recorder if the capture is disabled.
func openRecorder(conf *config.Config) (capture.Recorder, io.Closer, error) {
	switch conf.Capture.Driver {
	case "":
		return nil, nil, nil
	case "file":
		r, err := capture.OpenFile(conf.Capture.DSN)
		if err != nil {
			return nil, nil, err
		}
		return r, r, nil
	default:
		r, err := capture.OpenSQL(conf.Capture.Driver, conf.Capture.DSN)
		if err != nil {
			return nil, nil, err
		}
		return r, r, nil
	}
}

// newAdapter returns the adapter of the i-th configured user.
func newAdapter(conf *config.Config, sender activesync.Sender, recorder capture.Recorder, i int) (*adapter.Dispatcher, error) {
	s, err := conf.NewSession(i)
	if err != nil {
		return nil, err
	}

	return adapter.New(sender, adapter.Config{
		Session:                   s,
		WaitTime:                  conf.WaitTime,
		RetryCount:                conf.RetryCount,
		SuppressDeviceInformation: conf.SuppressDeviceInformation,
		Recorder:                  recorder,
	})
}

// newSeeder returns the SMTP seeder. STARTTLS verifies the server with the
// same CA file as the ActiveSync server.
func newSeeder(conf *config.Config) (*smtp.Sendmail, error) {
	tlsConf, err := cert.NewClientConfig(cert.Config{CAFile: conf.Server.CAFile})
	if err != nil {
		return nil, err
	}

	return smtp.New(smtp.Config{
		Host:     conf.SMTP.Host,
		Port:     conf.SMTP.Port,
		UserName: conf.SMTP.UserName,
		Password: conf.SMTP.Password,
		TLS:      tlsConf,
	}), nil
}

// askPasswords prompts the passwords that are not configured.
func askPasswords(conf *config.Config) error {
	for i := range conf.Users {
		if len(conf.Users[i].Password) > 0 {
			continue
		}
		password, err := promptPassword(fmt.Sprintf("Password for %v: ", conf.Users[i].Name))
		if err != nil {
			return fmt.Errorf("failed to read the password: %v", err)
		}
		conf.Users[i].Password = password
	}

	return nil
}

func promptPassword(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)

	if term.IsTerminal(int(syscall.Stdin)) {
		password, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", err
		}
		return string(password), nil
	}

	// Fallback to regular input if not a terminal
	input, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimSpace(input), nil
}
