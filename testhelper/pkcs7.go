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

	"github.com/smallstep/pkcs7"
)

// SignedDataOptions configures SignPKCS7.
type SignedDataOptions struct {
	// WithoutAttributes signs the content directly, the way App Store
	// receipts are signed. Otherwise content type, message digest and
	// signing time attributes are signed.
	WithoutAttributes bool

	// Parents are bundled after the signer certificate.
	Parents []*x509.Certificate
}

// SignPKCS7 wraps content in a SHA-256 PKCS7 SignedData signed by leaf.
func SignPKCS7(content []byte, leaf *x509.Certificate, key crypto.PrivateKey, opts SignedDataOptions) ([]byte, error) {
	sd, err := pkcs7.NewSignedData(content)
	if err != nil {
		return nil, err
	}
	sd.SetDigestAlgorithm(pkcs7.OIDDigestAlgorithmSHA256)

	if opts.WithoutAttributes {
		if err := sd.SignWithoutAttr(leaf, key, pkcs7.SignerInfoConfig{}); err != nil {
			return nil, err
		}
		for _, parent := range opts.Parents {
			sd.AddCertificate(parent)
		}
	} else {
		if err := sd.AddSignerChain(leaf, key, opts.Parents, pkcs7.SignerInfoConfig{}); err != nil {
			return nil, err
		}
	}
	return sd.Finish()
}

// SignReceipt signs content as an App Store receipt, bundling the leaf,
// intermediate and root certificates.
func (c RSAChain) SignReceipt(content []byte) ([]byte, error) {
	return SignPKCS7(content, c.Leaf.Cert, c.Leaf.PrivateKey, SignedDataOptions{
		WithoutAttributes: true,
		Parents:           []*x509.Certificate{c.Intermediate.Cert, c.Root.Cert},
	})
}
