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

package transaction

import (
	"crypto/sha512"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/gowebpki/jcs"
	"github.com/iapkit/iap-core-go/iap"
	"github.com/iapkit/iap-core-go/internal/crypto/hashutil"
)

// AppAccountTokenUUID parses the appAccountToken of the transaction.
func (p *JWSTransactionDecodedPayload) AppAccountTokenUUID() (uuid.UUID, error) {
	if p.AppAccountToken == "" {
		return uuid.Nil, &iap.MissingFieldError{Field: "appAccountToken"}
	}
	id, err := uuid.Parse(p.AppAccountToken)
	if err != nil {
		return uuid.Nil, &iap.ParseError{Msg: "invalid appAccountToken", Detail: err}
	}
	return id, nil
}

// VerifyDevice reports whether the app transaction was issued to the device
// identified by deviceID, the identifierForVendor of the device.
//
// The deviceVerification value is the base64 SHA-384 digest of the
// lowercase nonce followed by the lowercase device identifier.
func (p *AppTransaction) VerifyDevice(deviceID uuid.UUID) (bool, error) {
	if p.DeviceVerificationNonce == "" {
		return false, &iap.MissingFieldError{Field: "deviceVerificationNonce"}
	}
	if p.DeviceVerification == "" {
		return false, &iap.MissingFieldError{Field: "deviceVerification"}
	}
	expected, err := base64.StdEncoding.DecodeString(p.DeviceVerification)
	if err != nil {
		return false, &iap.ParseError{Msg: "invalid deviceVerification", Detail: err}
	}
	digest := sha512.Sum384([]byte(strings.ToLower(p.DeviceVerificationNonce) + strings.ToLower(deviceID.String())))
	return subtle.ConstantTimeCompare(digest[:], expected) == 1, nil
}

// CanonicalPayload returns the RFC 8785 canonical JSON of the token payload.
// The signature is not verified.
func CanonicalPayload(token string) ([]byte, error) {
	segments := strings.Split(token, ".")
	if len(segments) != 3 {
		return nil, &iap.ParseError{Msg: fmt.Sprintf("token must have 3 segments, got %d", len(segments))}
	}
	raw, err := jwt.DecodeSegment(segments[1])
	if err != nil {
		return nil, &iap.ParseError{Msg: "invalid payload encoding", Detail: err}
	}
	canonical, err := jcs.Transform(raw)
	if err != nil {
		return nil, &iap.ParseError{Msg: "invalid payload", Detail: err}
	}
	return canonical, nil
}

// Fingerprint returns the hex encoded SHA-256 of the canonical payload. It
// does not depend on the signature or on member order, so the same
// transaction signed twice has the same fingerprint.
func Fingerprint(token string) (string, error) {
	canonical, err := CanonicalPayload(token)
	if err != nil {
		return "", err
	}
	return hashutil.Fingerprint(canonical)
}
