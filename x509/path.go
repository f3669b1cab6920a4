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
	"time"

	"github.com/iapkit/iap-core-go/iap"
)

// maxPathLength bounds the number of intermediates walked by VerifyPath.
const maxPathLength = 8

// VerifyPath builds a path from leaf to one of roots through the given
// intermediates and returns it, leaf first and root last.
//
// Every issuer below the root must be a certificate authority allowed to
// sign certificates. Self-signed intermediates are ignored, so a root
// shipped alongside the leaf is never trusted on its own. When at is not
// nil every certificate of the path must be valid at that instant, without
// skew.
func VerifyPath(leaf *x509.Certificate, intermediates, roots []*x509.Certificate, at *time.Time) ([]*x509.Certificate, error) {
	if leaf == nil {
		return nil, &iap.FormatError{Msg: "certificate path requires a leaf"}
	}
	if len(roots) == 0 {
		return nil, &iap.ChainError{Reason: iap.ReasonNoRoot, Msg: "trust anchor set is empty"}
	}

	path := []*x509.Certificate{leaf}
	current := leaf
	for len(path) <= maxPathLength {
		if root := findIssuer(current, roots); root != nil {
			if !bytes.Equal(root.Raw, current.Raw) {
				path = append(path, root)
			}
			if at != nil {
				for _, cert := range path {
					if err := validateEffectiveDate(cert, *at, 0); err != nil {
						return nil, &iap.ChainError{Reason: iap.ReasonDateInvalid, Detail: err}
					}
				}
			}
			return path, nil
		}

		next := findIssuer(current, candidateIntermediates(intermediates, path))
		if next == nil {
			break
		}
		if err := validateCAKeyUsage(next, x509.KeyUsageCertSign); err != nil {
			return nil, &iap.ChainError{Reason: iap.ReasonNotCA, Detail: err}
		}
		path = append(path, next)
		current = next
	}
	return nil, &iap.ChainError{Reason: iap.ReasonNoRoot, Msg: "no trust anchor issued " + current.Subject.String()}
}

// findIssuer returns the first candidate that issued cert.
func findIssuer(cert *x509.Certificate, candidates []*x509.Certificate) *x509.Certificate {
	for _, candidate := range candidates {
		if candidate != nil && isIssuedBy(cert, candidate) == nil {
			return candidate
		}
	}
	return nil
}

// candidateIntermediates filters out self-signed certificates and the ones
// already on the path.
func candidateIntermediates(intermediates, path []*x509.Certificate) []*x509.Certificate {
	var candidates []*x509.Certificate
	for _, cert := range intermediates {
		if cert == nil || isSelfSigned(cert) || contains(path, cert) {
			continue
		}
		candidates = append(candidates, cert)
	}
	return candidates
}

func contains(certs []*x509.Certificate, cert *x509.Certificate) bool {
	for _, c := range certs {
		if bytes.Equal(c.Raw, cert.Raw) {
			return true
		}
	}
	return false
}
