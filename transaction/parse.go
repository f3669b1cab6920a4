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

// Package transaction verifies and decodes App Store signed transactions,
// compact JWS tokens carrying their certificate chain in the x5c header.
package transaction

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/iapkit/iap-core-go/iap"
	"github.com/iapkit/iap-core-go/internal/algorithm"
	"github.com/iapkit/iap-core-go/log"
	"github.com/iapkit/iap-core-go/truststore"
	iapx509 "github.com/iapkit/iap-core-go/x509"
)

// x5cLength is the number of certificates a signed transaction carries:
// leaf, intermediate and root.
const x5cLength = 3

// Options configures Parse.
type Options struct {
	// Trust selects the anchors. The zero value verifies against the Apple
	// Root CA G3 obtained from RootProvider.
	Trust iap.Trust

	// SignedDateExtractor returns the date the chain must be valid at.
	// Nil means the payload's own signing date, or the current time when
	// the payload carries none.
	SignedDateExtractor func(Payload) time.Time

	// RootProvider supplies the default anchor. Nil means the embedded
	// certificates.
	RootProvider iap.RootCertificateProvider

	// Logger receives diagnostics. Nil discards them.
	Logger log.Logger

	// Now returns the current time. Nil means time.Now.
	Now func() time.Time
}

func (opts *Options) now() time.Time {
	if opts.Now != nil {
		return opts.Now()
	}
	return time.Now()
}

// effectiveDate returns the date the certificate chain is checked at.
func (opts *Options) effectiveDate(payload Payload) time.Time {
	if opts.SignedDateExtractor != nil {
		return opts.SignedDateExtractor(payload)
	}
	if t, ok := payload.SignedAt(); ok {
		return t
	}
	return opts.now()
}

// header is the protected header of a signed transaction.
type header struct {
	Algorithm string   `json:"alg"`
	X5C       []string `json:"x5c"`
}

// ParseTransaction verifies and decodes a signed transaction.
func ParseTransaction(ctx context.Context, token string, opts *Options) (*JWSTransactionDecodedPayload, error) {
	return Parse[JWSTransactionDecodedPayload](ctx, token, opts)
}

// ParseAppTransaction verifies and decodes a signed app transaction.
func ParseAppTransaction(ctx context.Context, token string, opts *Options) (*AppTransaction, error) {
	return Parse[AppTransaction](ctx, token, opts)
}

// Parse verifies token and decodes its payload into T.
//
// The x5c header must hold exactly three certificates. The leaf and
// intermediate are checked against the trust anchors at the effective date,
// then the signature is verified with the leaf key using the algorithm its
// key type allows. No payload is returned on failure.
func Parse[T any](ctx context.Context, token string, opts *Options) (*T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if opts == nil {
		opts = &Options{}
	}
	logger := log.OrDiscard(opts.Logger)

	segments := strings.Split(token, ".")
	if len(segments) != 3 {
		return nil, &iap.ParseError{Msg: fmt.Sprintf("token must have 3 segments, got %d", len(segments))}
	}
	rawPayload, err := jwt.DecodeSegment(segments[1])
	if err != nil {
		return nil, &iap.ParseError{Msg: "invalid payload encoding", Detail: err}
	}
	out := new(T)
	if err := decodeJSON(rawPayload, out); err != nil {
		return nil, &iap.ParseError{Msg: "invalid payload", Detail: err}
	}

	if opts.Trust.Skip() {
		logger.Warnf("transaction signature verification is skipped, the payload is not authenticated")
		return out, nil
	}

	h, err := parseHeader(segments[0])
	if err != nil {
		return nil, err
	}
	if len(h.X5C) != x5cLength {
		return nil, &iap.FormatError{Msg: fmt.Sprintf("x5c must hold %d certificates, got %d", x5cLength, len(h.X5C))}
	}
	certs, err := iapx509.ParseBase64Certificates(h.X5C)
	if err != nil {
		return nil, &iap.ParseError{Msg: "invalid x5c certificate", Detail: err}
	}

	provider := opts.RootProvider
	if provider == nil {
		provider = truststore.Embedded()
	}
	anchors, err := opts.Trust.Anchors(provider, iap.TransactionRootIdentifier, truststore.ParseCertificates)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve transaction trust anchors: %w", err)
	}

	payload, ok := any(out).(Payload)
	if !ok {
		var claims Claims
		if err := decodeJSON(rawPayload, &claims); err != nil {
			return nil, &iap.ParseError{Msg: "invalid payload", Detail: err}
		}
		payload = claims
	}
	effectiveDate := opts.effectiveDate(payload)
	logger.Debugf("verifying transaction chain at %s", effectiveDate.Format(time.RFC3339))

	publicKey, err := iapx509.VerifyChain(certs[0], certs[1], anchors, iapx509.ChainOptions{
		EffectiveDate: &effectiveDate,
	})
	if err != nil {
		return nil, &iap.SignatureError{Detail: err}
	}
	if err := verifySignature(token, publicKey); err != nil {
		return nil, &iap.SignatureError{Detail: err}
	}
	return out, nil
}

// verifySignature checks the JWS signature with the leaf key, accepting only
// the algorithms that match the key.
func verifySignature(token string, publicKey interface{}) error {
	keySpec, err := algorithm.ExtractPublicKeySpec(publicKey)
	if err != nil {
		return err
	}
	parser := jwt.NewParser(
		jwt.WithValidMethods(keySpec.JWSAlgorithms()),
		jwt.WithJSONNumber(),
		jwt.WithoutClaimsValidation(),
	)
	_, err = parser.ParseWithClaims(token, jwt.MapClaims{}, func(*jwt.Token) (interface{}, error) {
		return publicKey, nil
	})
	return err
}

func parseHeader(segment string) (*header, error) {
	raw, err := jwt.DecodeSegment(segment)
	if err != nil {
		return nil, &iap.ParseError{Msg: "invalid header encoding", Detail: err}
	}
	var h header
	if err := json.Unmarshal(raw, &h); err != nil {
		return nil, &iap.ParseError{Msg: "invalid header", Detail: err}
	}
	return &h, nil
}

func decodeJSON(data []byte, v interface{}) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(v)
}
