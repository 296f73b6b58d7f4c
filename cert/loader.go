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

// Package cert builds the TLS configuration of the HTTPS transport.
package cert

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
	"os"

	"github.com/superkkt/logger"
)

// Loader provides the client certificate. The certificate is read again
// on every handshake so that it can be replaced without a restart.
type Loader struct {
	certFile, keyFile string
	cached            tls.Certificate
}

func NewLoader(certFile, keyFile string) (*Loader, error) {
	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return nil, err
	}

	return &Loader{
		certFile: certFile,
		keyFile:  keyFile,
		cached:   cert,
	}, nil
}

func (r *Loader) GetClientCertificate(*tls.CertificateRequestInfo) (*tls.Certificate, error) {
	cert, err := tls.LoadX509KeyPair(r.certFile, r.keyFile)
	if err != nil {
		logger.Error(fmt.Sprintf("cert: failed to read new certifications: %v", err))
		logger.Warning("cert: fallback to the cached certification")
		// Fallback
		return &r.cached, nil
	}
	r.cached = cert

	return &cert, nil
}

type Config struct {
	// CAFile is the PEM encoded CA certificates. The server certificate is
	// not verified if it is empty.
	CAFile string
	// Optional client certificate
	CertFile, KeyFile string
}

// NewClientConfig returns the TLS configuration of c.
func NewClientConfig(c Config) (*tls.Config, error) {
	conf := &tls.Config{MinVersion: tls.VersionTLS12}

	if len(c.CAFile) == 0 {
		logger.Warning("cert: CA file is not configured, the server certificate will not be verified")
		conf.InsecureSkipVerify = true
	} else {
		data, err := os.ReadFile(c.CAFile)
		if err != nil {
			return nil, fmt.Errorf("reading the CA file: %v", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(data) {
			return nil, fmt.Errorf("no certificate in the CA file: %v", c.CAFile)
		}
		conf.RootCAs = pool
	}

	if len(c.CertFile) > 0 || len(c.KeyFile) > 0 {
		l, err := NewLoader(c.CertFile, c.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("loading the client certificate: %v", err)
		}
		conf.GetClientCertificate = l.GetClientCertificate
	}

	return conf, nil
}

// ReadCertificates returns the base64 encoded DER of every certificate in
// the PEM file, the form the ValidateCert command carries.
func ReadCertificates(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var result []string
	for {
		var block *pem.Block
		block, data = pem.Decode(data)
		if block == nil {
			break
		}
		if block.Type != "CERTIFICATE" {
			continue
		}
		if _, err := x509.ParseCertificate(block.Bytes); err != nil {
			return nil, fmt.Errorf("invalid certificate in %v: %v", path, err)
		}
		result = append(result, base64.StdEncoding.EncodeToString(block.Bytes))
	}
	if len(result) == 0 {
		return nil, errors.New("no certificate found")
	}

	return result, nil
}
