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

// Package receipt decodes and authenticates legacy App Store receipts.
//
// A receipt is a PKCS #7 SignedData whose content is a SET OF receipt
// attributes. Verify decodes the payload and checks the signature against a
// pinned Apple root at the receipt creation date.
package receipt

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/iapkit/iap-core-go/iap"
	"github.com/iapkit/iap-core-go/internal/crypto/cms"
	"github.com/iapkit/iap-core-go/log"
	"github.com/iapkit/iap-core-go/truststore"
)

// VerifyOptions configures Verify.
type VerifyOptions struct {
	// ReturnRemaining keeps undocumented attributes in Remaining.
	ReturnRemaining bool

	// Trust selects the anchors. The zero value verifies against the Apple
	// Inc. root obtained from RootProvider.
	Trust iap.Trust

	// VerifyCertTime checks that the certificate path is valid at the
	// receipt creation date. Nil means true.
	VerifyCertTime *bool

	// RootProvider supplies the default anchor. Nil means the embedded
	// certificates.
	RootProvider iap.RootCertificateProvider

	// Logger receives diagnostics. Nil discards them.
	Logger log.Logger
}

func (opts *VerifyOptions) verifyCertTime() bool {
	return opts.VerifyCertTime == nil || *opts.VerifyCertTime
}

// VerifyBase64 decodes a standard base64 receipt, ignoring whitespace, and
// verifies it.
func VerifyBase64(ctx context.Context, encoded string, opts *VerifyOptions) (*Receipt, error) {
	der, err := base64.StdEncoding.DecodeString(strings.Join(strings.Fields(encoded), ""))
	if err != nil {
		return nil, &iap.ParseError{Msg: "invalid base64 receipt", Detail: err}
	}
	return Verify(ctx, der, opts)
}

// Verify decodes a DER or BER encoded receipt and authenticates it.
//
// The payload is decoded before the signature is checked so that the
// creation date can serve as the verification time. No payload is returned
// on failure.
func Verify(ctx context.Context, der []byte, opts *VerifyOptions) (*Receipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if opts == nil {
		opts = &VerifyOptions{}
	}
	logger := log.OrDiscard(opts.Logger)

	signed, err := cms.ParseSignedData(der)
	if err != nil {
		return nil, &iap.ParseError{Msg: "invalid receipt container", Detail: err}
	}
	attrs, err := ParseAttributes(signed.Content)
	if err != nil {
		return nil, err
	}
	receipt := DecodeReceipt(attrs, DecodeOptions{
		ReturnRemaining: opts.ReturnRemaining,
		Logger:          logger,
	})

	if opts.Trust.Skip() {
		logger.Warnf("receipt signature verification is skipped, the payload of %q is not authenticated", receipt.BundleIdentifier)
		return receipt, nil
	}

	var currentTime time.Time
	if opts.verifyCertTime() {
		if receipt.CreationDate == nil {
			return nil, &iap.MissingFieldError{Field: "receipt creation date"}
		}
		currentTime = *receipt.CreationDate
	}

	provider := opts.RootProvider
	if provider == nil {
		provider = truststore.Embedded()
	}
	anchors, err := opts.Trust.Anchors(provider, iap.ReceiptRootIdentifier, truststore.ParseCertificates)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve receipt trust anchors: %w", err)
	}

	if _, err := signed.Verify(cms.VerifyOptions{
		Roots:       anchors,
		CurrentTime: currentTime,
	}); err != nil {
		return nil, &iap.SignatureError{Detail: err}
	}
	logger.Debugf("verified receipt for %q", receipt.BundleIdentifier)
	return receipt, nil
}
