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

// Package config reads the test configuration. Every property lives in
// the default section of an INI file.
package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/superkkt/ascmd/session"

	"github.com/dlintw/goconf"
	"github.com/google/uuid"
	"github.com/superkkt/logger"
)

const section = "default"

const (
	defaultLocale       = 1033
	defaultSMTPPort     = 25
	maxUsers            = 2
	defaultTransport    = "HTTPS"
	defaultSuppressList = "12.1,14.0"
)

type Config struct {
	LogLevel logger.Level
	Server   Server
	Session  SessionDefault
	Users    []User
	// Interval between Search or Find requests while the result is pending
	WaitTime time.Duration
	// Maximum number of the retries of a pending Search or Find
	RetryCount                int
	SuppressDeviceInformation []string
	Capture                   Capture
	SMTP                      SMTP
}

type Server struct {
	Host string
	// Scheme is either http or https.
	Scheme               string
	Endpoint             string
	AutodiscoverEndpoint string
	// PEM encoded CA certificates. Server certificates are not verified if it is empty.
	CAFile string
	// Optional client certificate and its private key
	ClientCertFile string
	ClientKeyFile  string
}

type SessionDefault struct {
	ProtocolVersion session.Version
	HeaderEncoding  session.HeaderEncoding
	Domain          string
	DeviceID        string
	DeviceType      string
	AcceptLanguage  string
	Locale          uint16
}

type User struct {
	Name     string
	Password string
}

type Capture struct {
	// Driver is one of file, mysql and sqlite3. Capture is disabled if it is empty.
	Driver string
	DSN    string
}

type SMTP struct {
	Host string
	Port uint16
	// Optional PLAIN authentication
	UserName string
	Password string
}

// Enabled reports whether the SMTP seeder is configured.
func (r SMTP) Enabled() bool {
	return len(r.Host) > 0
}

func ParseLogLevel(l string) (logger.Level, error) {
	switch strings.ToUpper(l) {
	case "DEBUG":
		return logger.LevelDebug, nil
	case "INFO":
		return logger.LevelInfo, nil
	case "WARNING":
		return logger.LevelWarning, nil
	case "ERROR":
		return logger.LevelError, nil
	case "FATAL":
		return logger.LevelFatal, nil
	default:
		return 0, fmt.Errorf("invalid log level: %v", l)
	}
}

func Read(configFile string) (*Config, error) {
	c, err := goconf.ReadConfigFile(configFile)
	if err != nil {
		return nil, err
	}

	return parse(c)
}

func ReadBytes(data []byte) (*Config, error) {
	c, err := goconf.ReadConfigBytes(data)
	if err != nil {
		return nil, err
	}

	return parse(c)
}

func parse(c *goconf.ConfigFile) (*Config, error) {
	r := new(Config)
	if err := r.readLog(c); err != nil {
		return nil, err
	}
	if err := r.readServer(c); err != nil {
		return nil, err
	}
	if err := r.readSession(c); err != nil {
		return nil, err
	}
	if err := r.readUsers(c); err != nil {
		return nil, err
	}
	if err := r.readPolling(c); err != nil {
		return nil, err
	}
	if err := r.readCapture(c); err != nil {
		return nil, err
	}
	if err := r.readSMTP(c); err != nil {
		return nil, err
	}

	return r, nil
}

// optional returns the value of key, or def if key does not exist.
func optional(c *goconf.ConfigFile, key, def string) (string, error) {
	if !c.HasOption(section, key) {
		return def, nil
	}
	v, err := c.GetString(section, key)
	if err != nil {
		return "", fmt.Errorf("invalid %v/%v value: %v", section, key, err)
	}

	return strings.TrimSpace(v), nil
}

func required(c *goconf.ConfigFile, key string) (string, error) {
	v, err := c.GetString(section, key)
	if err != nil || len(strings.TrimSpace(v)) == 0 {
		return "", fmt.Errorf("empty %v/%v value", section, key)
	}

	return strings.TrimSpace(v), nil
}

func (r *Config) readLog(c *goconf.ConfigFile) error {
	v, err := optional(c, "LogLevel", "INFO")
	if err != nil {
		return err
	}
	r.LogLevel, err = ParseLogLevel(v)

	return err
}

func (r *Config) readServer(c *goconf.ConfigFile) error {
	var err error

	if r.Server.Host, err = required(c, "SutComputerName"); err != nil {
		return err
	}
	transport, err := optional(c, "TransportType", defaultTransport)
	if err != nil {
		return err
	}
	switch strings.ToUpper(transport) {
	case "HTTP", "HTTPS":
		r.Server.Scheme = strings.ToLower(transport)
	default:
		return fmt.Errorf("invalid %v/TransportType value: %v (should be HTTP or HTTPS)", section, transport)
	}
	if r.Server.Endpoint, err = optional(c, "ActiveSyncEndPoint", "Microsoft-Server-ActiveSync"); err != nil {
		return err
	}
	r.Server.Endpoint = strings.TrimPrefix(r.Server.Endpoint, "/")
	if r.Server.AutodiscoverEndpoint, err = optional(c, "AutodiscoverEndPoint", "autodiscover/autodiscover.xml"); err != nil {
		return err
	}
	r.Server.AutodiscoverEndpoint = strings.TrimPrefix(r.Server.AutodiscoverEndpoint, "/")
	if r.Server.CAFile, err = optional(c, "CAFile", ""); err != nil {
		return err
	}
	if r.Server.ClientCertFile, err = optional(c, "ClientCertFile", ""); err != nil {
		return err
	}
	if r.Server.ClientKeyFile, err = optional(c, "ClientKeyFile", ""); err != nil {
		return err
	}
	if (len(r.Server.ClientCertFile) == 0) != (len(r.Server.ClientKeyFile) == 0) {
		return fmt.Errorf("%v/ClientCertFile and %v/ClientKeyFile should be configured together", section, section)
	}

	return nil
}

// NewDeviceID returns a random device ID of 32 hexadecimal characters.
func NewDeviceID() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
}

func (r *Config) readSession(c *goconf.ConfigFile) error {
	v, err := required(c, "ActiveSyncProtocolVersion")
	if err != nil {
		return err
	}
	if r.Session.ProtocolVersion, err = session.ParseVersion(v); err != nil {
		return err
	}

	if v, err = required(c, "HeaderEncodingType"); err != nil {
		return err
	}
	if r.Session.HeaderEncoding, err = session.ParseHeaderEncoding(v); err != nil {
		return err
	}

	if r.Session.Domain, err = optional(c, "Domain", ""); err != nil {
		return err
	}
	if r.Session.DeviceID, err = optional(c, "DeviceID", ""); err != nil {
		return err
	}
	if len(r.Session.DeviceID) == 0 {
		r.Session.DeviceID = NewDeviceID()
		logger.Debug(fmt.Sprintf("DeviceID is not configured, using a generated one: %v", r.Session.DeviceID))
	}
	if r.Session.DeviceType, err = optional(c, "DeviceType", "SmartPhone"); err != nil {
		return err
	}
	if r.Session.AcceptLanguage, err = optional(c, "AcceptLanguage", "en-us"); err != nil {
		return err
	}

	if v, err = optional(c, "Locale", strconv.Itoa(defaultLocale)); err != nil {
		return err
	}
	locale, err := strconv.ParseUint(v, 10, 16)
	if err != nil {
		return fmt.Errorf("invalid %v/Locale value: %v", section, v)
	}
	r.Session.Locale = uint16(locale)

	return nil
}

func (r *Config) readUsers(c *goconf.ConfigFile) error {
	r.Users = nil
	for i := 1; i <= maxUsers; i++ {
		nameKey := fmt.Sprintf("User%vName", i)
		passKey := fmt.Sprintf("User%vPassword", i)

		name, err := optional(c, nameKey, "")
		if err != nil {
			return err
		}
		if len(name) == 0 {
			if i == 1 {
				return fmt.Errorf("empty %v/%v value", section, nameKey)
			}
			break
		}
		// An empty password is asked to the user later.
		password, err := optional(c, passKey, "")
		if err != nil {
			return err
		}
		r.Users = append(r.Users, User{Name: name, Password: password})
	}

	return nil
}

// parseCount parses a non-negative decimal integer.
func parseCount(key, v string) (int, error) {
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("non-numeric %v/%v value: %v", section, key, v)
	}
	if n < 0 {
		return 0, fmt.Errorf("negative %v/%v value: %v", section, key, v)
	}

	return n, nil
}

func (r *Config) readPolling(c *goconf.ConfigFile) error {
	v, err := required(c, "WaitTime")
	if err != nil {
		return err
	}
	wait, err := parseCount("WaitTime", v)
	if err != nil {
		return err
	}
	r.WaitTime = time.Duration(wait) * time.Millisecond

	if v, err = required(c, "RetryCount"); err != nil {
		return err
	}
	if r.RetryCount, err = parseCount("RetryCount", v); err != nil {
		return err
	}

	if v, err = optional(c, "ProvisionSuppressDeviceInformation", defaultSuppressList); err != nil {
		return err
	}
	r.SuppressDeviceInformation = []string{}
	for _, s := range strings.Split(v, ",") {
		s = strings.TrimSpace(s)
		if len(s) == 0 {
			continue
		}
		if _, err := session.ParseVersion(s); err != nil {
			return fmt.Errorf("invalid %v/ProvisionSuppressDeviceInformation value: %v", section, err)
		}
		r.SuppressDeviceInformation = append(r.SuppressDeviceInformation, s)
	}

	return nil
}

func (r *Config) readCapture(c *goconf.ConfigFile) error {
	var err error

	if r.Capture.Driver, err = optional(c, "CaptureDriver", ""); err != nil {
		return err
	}
	r.Capture.Driver = strings.ToLower(r.Capture.Driver)
	if r.Capture.DSN, err = optional(c, "CaptureDSN", ""); err != nil {
		return err
	}
	switch r.Capture.Driver {
	case "":
		return nil
	case "file", "mysql", "sqlite3":
		if len(r.Capture.DSN) == 0 {
			return fmt.Errorf("empty %v/CaptureDSN value", section)
		}
		return nil
	default:
		return fmt.Errorf("invalid %v/CaptureDriver value: %v (should be file, mysql or sqlite3)", section, r.Capture.Driver)
	}
}

func (r *Config) readSMTP(c *goconf.ConfigFile) error {
	var err error

	if r.SMTP.Host, err = optional(c, "SMTPHost", ""); err != nil {
		return err
	}
	v, err := optional(c, "SMTPPort", strconv.Itoa(defaultSMTPPort))
	if err != nil {
		return err
	}
	port, err := strconv.Atoi(v)
	if err != nil || port <= 0 || port > 65535 {
		return errors.New("empty or invalid default/SMTPPort value")
	}
	r.SMTP.Port = uint16(port)

	if r.SMTP.UserName, err = optional(c, "SMTPUserName", ""); err != nil {
		return err
	}
	if r.SMTP.Password, err = optional(c, "SMTPPassword", ""); err != nil {
		return err
	}

	return nil
}

// EmailAddress returns the address of the i-th configured user. The domain
// is appended to a user name that is not an address.
func (r *Config) EmailAddress(i int) string {
	name := r.Users[i].Name
	if strings.Contains(name, "@") || len(r.Session.Domain) == 0 {
		return name
	}

	return fmt.Sprintf("%v@%v", name, r.Session.Domain)
}

// NewSession returns the session of the i-th configured user.
func (r *Config) NewSession(i int) (*session.Context, error) {
	if i < 0 || i >= len(r.Users) {
		return nil, fmt.Errorf("no such user: %v", i+1)
	}

	s := &session.Context{
		DeviceID:        r.Session.DeviceID,
		DeviceType:      r.Session.DeviceType,
		AcceptLanguage:  r.Session.AcceptLanguage,
		HeaderEncoding:  r.Session.HeaderEncoding,
		ProtocolVersion: r.Session.ProtocolVersion,
		Locale:          r.Session.Locale,
	}
	s.SetCredential(r.Users[i].Name, r.Users[i].Password, r.Session.Domain)

	return s, nil
}
