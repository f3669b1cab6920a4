// Copyright The Notary Project Authors.
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package truststore provides root certificate providers for the receipt
// and transaction verifiers.
package truststore

import (
	"crypto/x509"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/iapkit/iap-core-go/iap"
	iapx509 "github.com/iapkit/iap-core-go/x509"
)

// certificateExtension is the file extension of stored root certificates.
const certificateExtension = ".cer"

//go:embed certs/*.cer
var embeddedCerts embed.FS

// ErrCertificateNotFound is returned when a provider has no certificate for
// the requested identifier.
var ErrCertificateNotFound = errors.New("truststore: root certificate not found")

// NotFoundError is returned when a provider has no certificate for the
// requested identifier. It matches ErrCertificateNotFound with errors.Is.
type NotFoundError struct {
	Identifier string
	Detail     error
}

// Error returns the formatted error message.
func (e *NotFoundError) Error() string {
	msg := fmt.Sprintf("truststore: root certificate %q not found", e.Identifier)
	if e.Detail != nil {
		msg += ": " + e.Detail.Error()
	}
	return msg
}

// Is reports whether target is ErrCertificateNotFound.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrCertificateNotFound
}

// Unwrap returns the detail error.
func (e *NotFoundError) Unwrap() error {
	return e.Detail
}

// ProviderFunc adapts a function to iap.RootCertificateProvider.
type ProviderFunc func(identifier string) ([]byte, error)

// FetchRootCertificate calls f(identifier).
func (f ProviderFunc) FetchRootCertificate(identifier string) ([]byte, error) {
	return f(identifier)
}

// Embedded returns the provider backed by the root certificates compiled
// into the library. Only iap.ReceiptRootIdentifier is shipped.
func Embedded() iap.RootCertificateProvider {
	return ProviderFunc(func(identifier string) ([]byte, error) {
		if err := validateIdentifier(identifier); err != nil {
			return nil, err
		}
		data, err := embeddedCerts.ReadFile("certs/" + identifier + certificateExtension)
		if err != nil {
			return nil, &NotFoundError{Identifier: identifier}
		}
		return data, nil
	})
}

// Dir returns a provider reading <dir>/<identifier>.cer. The file may be DER
// or PEM encoded and must hold at least one certificate.
func Dir(dir string) iap.RootCertificateProvider {
	return ProviderFunc(func(identifier string) ([]byte, error) {
		if err := validateIdentifier(identifier); err != nil {
			return nil, err
		}
		path := filepath.Join(dir, identifier+certificateExtension)
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil, &NotFoundError{Identifier: identifier, Detail: err}
			}
			return nil, err
		}
		if _, err := ParseCertificates(data); err != nil {
			return nil, fmt.Errorf("invalid root certificate file %s: %w", path, err)
		}
		return data, nil
	})
}

// Chain returns a provider that asks each provider in order and returns the
// first success. A not found result moves on to the next provider, any other
// error is returned as is.
func Chain(providers ...iap.RootCertificateProvider) iap.RootCertificateProvider {
	return ProviderFunc(func(identifier string) ([]byte, error) {
		for _, p := range providers {
			if p == nil {
				continue
			}
			data, err := p.FetchRootCertificate(identifier)
			if err == nil {
				return data, nil
			}
			if !errors.Is(err, ErrCertificateNotFound) {
				return nil, err
			}
		}
		return nil, &NotFoundError{Identifier: identifier}
	})
}

// ParseCertificates parses a provider result, DER or PEM encoded, into
// trust anchors.
func ParseCertificates(data []byte) ([]*x509.Certificate, error) {
	certs, err := iapx509.ParseCertificates(data)
	if err != nil {
		return nil, err
	}
	if len(certs) == 0 {
		return nil, errors.New("no certificates found")
	}
	return certs, nil
}

func validateIdentifier(identifier string) error {
	if identifier == "" || identifier == "." || identifier == ".." || strings.ContainsAny(identifier, `/\`) {
		return fmt.Errorf("truststore: invalid root certificate identifier %q", identifier)
	}
	return nil
}
