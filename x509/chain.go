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

package x509

import (
	"crypto"
	"crypto/x509"
	"encoding/asn1"
	"time"

	"github.com/iapkit/iap-core-go/iap"
	"github.com/iapkit/iap-core-go/internal/crypto/oid"
)

// MaxClockSkew is the tolerance applied to both ends of a certificate
// validity period when checking it against an effective date.
const MaxClockSkew = 60 * time.Second

// ChainOptions configures VerifyChain.
type ChainOptions struct {
	// EffectiveDate is the instant the chain must be valid at, widened by
	// MaxClockSkew. A nil value disables the validity checks.
	EffectiveDate *time.Time

	// CAKeyUsage is the key usage the intermediate must carry to be accepted
	// as a certificate authority. The zero value requires
	// x509.KeyUsageCertSign.
	CAKeyUsage x509.KeyUsage

	// RequiredExtension is the extension both leaf and intermediate must
	// carry. The zero value requires the App Store receipt signing
	// extension 1.2.840.113635.100.6.11.1.
	RequiredExtension asn1.ObjectIdentifier
}

// VerifyChain validates a leaf and intermediate against the trust anchors
// and returns the public key of the leaf.
//
// The first anchor that signed the intermediate and whose subject matches
// the intermediate's issuer is used as root; anchors are searched in order.
// Failures are reported as *iap.ChainError.
func VerifyChain(leaf, intermediate *x509.Certificate, anchors []*x509.Certificate, opts ChainOptions) (crypto.PublicKey, error) {
	if leaf == nil || intermediate == nil {
		return nil, &iap.FormatError{Msg: "certificate chain requires a leaf and an intermediate"}
	}
	if len(anchors) == 0 {
		return nil, &iap.ChainError{Reason: iap.ReasonNoRoot, Msg: "trust anchor set is empty"}
	}
	caKeyUsage := opts.CAKeyUsage
	if caKeyUsage == 0 {
		caKeyUsage = x509.KeyUsageCertSign
	}
	requiredExtension := opts.RequiredExtension
	if len(requiredExtension) == 0 {
		requiredExtension = oid.AppleStoreReceiptSigning
	}

	var root *x509.Certificate
	for _, anchor := range anchors {
		if anchor != nil && isIssuedBy(intermediate, anchor) == nil {
			root = anchor
			break
		}
	}
	if root == nil {
		return nil, &iap.ChainError{Reason: iap.ReasonNoRoot, Msg: "no trust anchor issued " + intermediate.Subject.String()}
	}

	if err := isIssuedBy(leaf, intermediate); err != nil {
		return nil, &iap.ChainError{Reason: iap.ReasonLeafNotSigned, Detail: err}
	}

	if err := validateCAKeyUsage(intermediate, caKeyUsage); err != nil {
		return nil, &iap.ChainError{Reason: iap.ReasonNotCA, Detail: err}
	}

	for _, cert := range []*x509.Certificate{leaf, intermediate} {
		if err := validateExtensionPresent(cert, requiredExtension); err != nil {
			return nil, &iap.ChainError{Reason: iap.ReasonMissingExtension, Detail: err}
		}
	}

	if opts.EffectiveDate != nil {
		for _, cert := range []*x509.Certificate{leaf, intermediate, root} {
			if err := validateEffectiveDate(cert, *opts.EffectiveDate, MaxClockSkew); err != nil {
				return nil, &iap.ChainError{Reason: iap.ReasonDateInvalid, Detail: err}
			}
		}
	}

	return leaf.PublicKey, nil
}
