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
	"bytes"
	"crypto/x509"
	"encoding/asn1"
	"fmt"
	"time"

	"github.com/iapkit/iap-core-go/internal/crypto/oid"
)

// isIssuedBy checks the issuer linkage and the signature of subject.
// The signature is checked with CheckSignature rather than
// CheckSignatureFrom because the legacy receipt chains are SHA-1 signed.
func isIssuedBy(subject *x509.Certificate, issuer *x509.Certificate) error {
	if !bytes.Equal(issuer.RawSubject, subject.RawIssuer) {
		return fmt.Errorf("certificate with subject %q is not issued by %q", subject.Subject, issuer.Subject)
	}
	if err := issuer.CheckSignature(subject.SignatureAlgorithm, subject.RawTBSCertificate, subject.Signature); err != nil {
		return fmt.Errorf("certificate with subject %q: invalid signature from %q: %w", subject.Subject, issuer.Subject, err)
	}
	return nil
}

func isSelfSigned(cert *x509.Certificate) bool {
	return isIssuedBy(cert, cert) == nil
}

func validateCAKeyUsage(cert *x509.Certificate, required x509.KeyUsage) error {
	if !hasExtension(cert, oid.KeyUsage) {
		return fmt.Errorf("certificate with subject %q: key usage extension must be present", cert.Subject)
	}
	if cert.KeyUsage&required != required {
		return fmt.Errorf("certificate with subject %q: key usage must have the bit positions for %s set", cert.Subject, keyUsageToString(required))
	}
	if cert.BasicConstraintsValid && !cert.IsCA {
		return fmt.Errorf("certificate with subject %q: ca field in basic constraints must be set to true", cert.Subject)
	}
	return nil
}

func validateExtensionPresent(cert *x509.Certificate, id asn1.ObjectIdentifier) error {
	if !hasExtension(cert, id) {
		return fmt.Errorf("certificate with subject %q: extension %s must be present", cert.Subject, id)
	}
	return nil
}

// validateEffectiveDate checks notBefore-skew <= date <= notAfter+skew.
func validateEffectiveDate(cert *x509.Certificate, date time.Time, skew time.Duration) error {
	if date.Before(cert.NotBefore.Add(-skew)) || date.After(cert.NotAfter.Add(skew)) {
		return fmt.Errorf("certificate with subject %q was invalid at %s. Certificate is valid from [%s] to [%s]",
			cert.Subject, date.UTC(), cert.NotBefore.UTC(), cert.NotAfter.UTC())
	}
	return nil
}

func hasExtension(cert *x509.Certificate, id asn1.ObjectIdentifier) bool {
	for _, ext := range cert.Extensions {
		if ext.Id.Equal(id) {
			return true
		}
	}
	return false
}

func keyUsageToString(ku x509.KeyUsage) string {
	switch ku {
	case x509.KeyUsageDigitalSignature:
		return "digital signature"
	case x509.KeyUsageCertSign:
		return "key cert sign"
	case x509.KeyUsageCRLSign:
		return "crl sign"
	case x509.KeyUsageCertSign | x509.KeyUsageCRLSign:
		return "key cert sign and crl sign"
	default:
		return fmt.Sprintf("key usage %#x", int(ku))
	}
}
