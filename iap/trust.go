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

// Package iap holds the types shared by the receipt and transaction
// verifiers: error kinds, the trust configuration and the root certificate
// provider contract.
package iap

import (
	"crypto/x509"
	"errors"
)

// Root certificate identifiers requested from a RootCertificateProvider.
const (
	// ReceiptRootIdentifier names the anchor of legacy App Store receipts.
	ReceiptRootIdentifier = "AppleIncRootCertificate"

	// TransactionRootIdentifier names the anchor of signed transactions.
	TransactionRootIdentifier = "AppleRootCA-G3"
)

// RootCertificateProvider fetches trust anchor bytes, DER or PEM encoded, by
// identifier. It is consulted at most once per verification and only when
// the trust configuration asks for the default anchor.
type RootCertificateProvider interface {
	FetchRootCertificate(identifier string) ([]byte, error)
}

// TrustMode selects how a Trust resolves its anchors.
type TrustMode int

const (
	// TrustModeDefault verifies against the pinned anchor obtained from the
	// configured RootCertificateProvider.
	TrustModeDefault TrustMode = iota

	// TrustModeAnchors verifies against caller supplied anchors.
	TrustModeAnchors

	// TrustModeSkip disables signature and chain verification.
	TrustModeSkip
)

// Trust is the trust configuration of a verification. The zero value
// verifies against the default pinned anchor.
type Trust struct {
	mode    TrustMode
	anchors []*x509.Certificate
}

// TrustDefault returns the configuration verifying against the pinned
// anchor.
func TrustDefault() Trust {
	return Trust{}
}

// TrustAnchors returns the configuration verifying against the given
// anchors only. Anchors are searched in order.
func TrustAnchors(anchors ...*x509.Certificate) Trust {
	return Trust{
		mode:    TrustModeAnchors,
		anchors: append([]*x509.Certificate(nil), anchors...),
	}
}

// TrustSkip returns the explicit opt-out configuration. Payloads decoded
// under it are not authenticated.
func TrustSkip() Trust {
	return Trust{mode: TrustModeSkip}
}

// Mode returns the trust mode.
func (t Trust) Mode() TrustMode {
	return t.mode
}

// Skip reports whether verification is disabled.
func (t Trust) Skip() bool {
	return t.mode == TrustModeSkip
}

// Anchors resolves the trust anchors. Caller supplied anchors are returned
// as is; the default mode fetches identifier from provider and parses it
// with parse.
func (t Trust) Anchors(provider RootCertificateProvider, identifier string, parse func([]byte) ([]*x509.Certificate, error)) ([]*x509.Certificate, error) {
	switch t.mode {
	case TrustModeAnchors:
		if len(t.anchors) == 0 {
			return nil, &FormatError{Msg: "trust anchor set is empty"}
		}
		return t.anchors, nil
	case TrustModeSkip:
		return nil, errors.New("iap: trust verification is skipped")
	}
	if provider == nil {
		return nil, errors.New("iap: root certificate provider is not configured")
	}
	raw, err := provider.FetchRootCertificate(identifier)
	if err != nil {
		return nil, err
	}
	anchors, err := parse(raw)
	if err != nil {
		return nil, &ParseError{Msg: "invalid root certificate " + identifier, Detail: err}
	}
	if len(anchors) == 0 {
		return nil, &FormatError{Msg: "root certificate " + identifier + " is empty"}
	}
	return anchors, nil
}
