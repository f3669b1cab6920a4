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

package testhelper

import (
	"crypto"
	"crypto/x509"
	"encoding/base64"

	"github.com/golang-jwt/jwt/v4"
)

// SignToken signs claims as a compact JWS whose x5c header carries certs.
func SignToken(method jwt.SigningMethod, key crypto.PrivateKey, claims jwt.MapClaims, certs []*x509.Certificate) (string, error) {
	token := jwt.NewWithClaims(method, claims)
	x5c := make([]string, 0, len(certs))
	for _, cert := range certs {
		x5c = append(x5c, base64.StdEncoding.EncodeToString(cert.Raw))
	}
	token.Header["x5c"] = x5c
	return token.SignedString(key)
}

// SignTransaction signs claims with the leaf key using ES256, carrying the
// leaf, intermediate and root in the x5c header.
func (c Chain) SignTransaction(claims jwt.MapClaims) (string, error) {
	return SignToken(jwt.SigningMethodES256, c.Leaf.PrivateKey, claims, c.Certificates())
}

// SignTransaction signs claims with the leaf key using PS256.
func (c RSAChain) SignTransaction(claims jwt.MapClaims) (string, error) {
	return SignToken(jwt.SigningMethodPS256, c.Leaf.PrivateKey, claims, []*x509.Certificate{c.Leaf.Cert, c.Intermediate.Cert, c.Root.Cert})
}
