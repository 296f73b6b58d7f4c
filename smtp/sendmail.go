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

// Package smtp delivers the messages that the scenarios later look for
// with Search, Find and Sync.
package smtp

import (
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/mail"
	"net/smtp"
	"regexp"
	"time"

	"github.com/superkkt/ascmd/mime"

	"github.com/superkkt/logger"
)

const (
	timeout = 30 * time.Second
)

var emailRegexp = regexp.MustCompile(`(?i)^[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}$`)

type Config struct {
	Host string
	Port uint16
	// PLAIN authentication is used if UserName is not empty. The server
	// should offer STARTTLS unless it is on the local host.
	UserName string
	Password string
	// STARTTLS is issued if TLS is not nil and the server supports it.
	TLS *tls.Config
}

// Sendmail submits messages to the mail server that hosts the mailboxes
// under test.
type Sendmail struct {
	config Config
}

func New(c Config) *Sendmail {
	return &Sendmail{config: c}
}

func validateEmail(email string) bool {
	return emailRegexp.MatchString(email)
}

// Seed delivers msg to the recipients in its To, Cc and Bcc header fields.
// The Bcc header field is removed from the delivered message.
func (r *Sendmail) Seed(msg []byte) error {
	m, err := mime.Parse(msg)
	if err != nil {
		return fmt.Errorf("parsing the seed message: %v", err)
	}
	from, err := mail.ParseAddress(m.From)
	if err != nil {
		return fmt.Errorf("invalid From header: %v", err)
	}
	logger.Debug(fmt.Sprintf("seeding a message: subject=%v, from=%v, to=%v", m.Subject, from.Address, m.Recipients))

	return r.Send(from.Address, m.Recipients, m.Normalized)
}

func checkEnvelope(from string, to []string, msg []byte) error {
	if !validateEmail(from) {
		return fmt.Errorf("invalid from address: %v", from)
	}
	if len(to) == 0 {
		return errors.New("empty recipient address")
	}
	for _, v := range to {
		if !validateEmail(v) {
			return fmt.Errorf("invalid to address: %v", v)
		}
	}
	if len(msg) == 0 {
		return errors.New("empty msg body")
	}

	return nil
}

// Send delivers msg as it is.
func (r *Sendmail) Send(from string, to []string, msg []byte) error {
	if err := checkEnvelope(from, to, msg); err != nil {
		return err
	}

	c, err := r.dial()
	if err != nil {
		return err
	}
	defer c.Close()

	if err := r.hello(c); err != nil {
		return err
	}
	if err := transfer(c, from, to, msg); err != nil {
		return err
	}

	return c.Quit()
}

func (r *Sendmail) dial() (*smtp.Client, error) {
	d := net.Dialer{Timeout: timeout}
	conn, err := d.Dial("tcp", net.JoinHostPort(r.config.Host, fmt.Sprint(r.config.Port)))
	if err != nil {
		return nil, err
	}
	// Bounds the whole session including DATA.
	conn.SetDeadline(time.Now().Add(timeout))

	c, err := smtp.NewClient(conn, r.config.Host)
	if err != nil {
		conn.Close()
		return nil, err
	}

	return c, nil
}

func (r *Sendmail) hello(c *smtp.Client) error {
	if r.config.TLS != nil {
		if ok, _ := c.Extension("STARTTLS"); ok {
			conf := r.config.TLS.Clone()
			if len(conf.ServerName) == 0 {
				conf.ServerName = r.config.Host
			}
			if err := c.StartTLS(conf); err != nil {
				return fmt.Errorf("STARTTLS: %v", err)
			}
		}
	}
	if len(r.config.UserName) == 0 {
		return nil
	}
	if ok, _ := c.Extension("AUTH"); !ok {
		return errors.New("SMTP server does not support authentication")
	}
	auth := smtp.PlainAuth("", r.config.UserName, r.config.Password, r.config.Host)
	if err := c.Auth(auth); err != nil {
		return fmt.Errorf("SMTP authentication: %v", err)
	}

	return nil
}

func transfer(c *smtp.Client, from string, to []string, msg []byte) error {
	if err := c.Mail(from); err != nil {
		return err
	}
	for _, v := range to {
		if err := c.Rcpt(v); err != nil {
			return fmt.Errorf("recipient %v: %v", v, err)
		}
	}

	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		w.Close()
		return err
	}

	return w.Close()
}
