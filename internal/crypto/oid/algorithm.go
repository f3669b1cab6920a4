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

package oid

import (
	"crypto"
	"crypto/x509"
	"encoding/asn1"
)

var digestAlgorithms = []struct {
	oid  asn1.ObjectIdentifier
	hash crypto.Hash
	rsa  x509.SignatureAlgorithm
}{
	{SHA1, crypto.SHA1, x509.SHA1WithRSA},
	{SHA256, crypto.SHA256, x509.SHA256WithRSA},
	{SHA384, crypto.SHA384, x509.SHA384WithRSA},
	{SHA512, crypto.SHA512, x509.SHA512WithRSA},
}

var signatureAlgorithms = []struct {
	oid asn1.ObjectIdentifier
	alg x509.SignatureAlgorithm
}{
	{SHA1WithRSA, x509.SHA1WithRSA},
	{SHA256WithRSA, x509.SHA256WithRSA},
	{SHA384WithRSA, x509.SHA384WithRSA},
	{SHA512WithRSA, x509.SHA512WithRSA},
	{ECDSAWithSHA1, x509.ECDSAWithSHA1},
	{ECDSAWithSHA256, x509.ECDSAWithSHA256},
	{ECDSAWithSHA384, x509.ECDSAWithSHA384},
	{ECDSAWithSHA512, x509.ECDSAWithSHA512},
}

// ToHash converts an ASN.1 digest algorithm identifier to a crypto hash.
// The boolean is false when the digest is unknown or not linked in.
func ToHash(alg asn1.ObjectIdentifier) (crypto.Hash, bool) {
	for _, d := range digestAlgorithms {
		if d.oid.Equal(alg) {
			return d.hash, d.hash.Available()
		}
	}
	return 0, false
}

// ToSignatureAlgorithm converts ASN.1 digest and signature algorithm
// identifiers to an x509 signature algorithm.
//
// SHA-1 based algorithms are mapped since legacy App Store receipts are
// signed with sha1WithRSAEncryption.
func ToSignatureAlgorithm(digestAlg, sigAlg asn1.ObjectIdentifier) x509.SignatureAlgorithm {
	if RSA.Equal(sigAlg) {
		for _, d := range digestAlgorithms {
			if d.oid.Equal(digestAlg) {
				return d.rsa
			}
		}
		return x509.UnknownSignatureAlgorithm
	}
	for _, s := range signatureAlgorithms {
		if s.oid.Equal(sigAlg) {
			return s.alg
		}
	}
	return x509.UnknownSignatureAlgorithm
}
