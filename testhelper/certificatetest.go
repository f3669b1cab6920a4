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

// Package testhelper implements utility routines required for writing unit tests.
// The testhelper should only be used in unit tests.
package testhelper

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	mrand "math/rand"
	"sync"
	"time"

	"github.com/iapkit/iap-core-go/internal/crypto/oid"
)

var (
	transactionChain Chain
	receiptChain     RSAChain
)

var setupCertificatesOnce sync.Once

// asn1Null is the DER encoding of an ASN.1 NULL, the value Apple uses for
// its marker extensions.
var asn1Null = []byte{0x05, 0x00}

type RSACertTuple struct {
	Cert       *x509.Certificate
	PrivateKey *rsa.PrivateKey
}

type ECCertTuple struct {
	Cert       *x509.Certificate
	PrivateKey *ecdsa.PrivateKey
}

// Chain is a root, intermediate and leaf generated with ECDSA P-256 keys,
// shaped like the chain embedded in signed transactions.
type Chain struct {
	Root         ECCertTuple
	Intermediate ECCertTuple
	Leaf         ECCertTuple
}

// RSAChain is a root, intermediate and leaf generated with RSA keys, shaped
// like the chain embedded in legacy receipts.
type RSAChain struct {
	Root         RSACertTuple
	Intermediate RSACertTuple
	Leaf         RSACertTuple
}

// ChainOptions customizes a generated chain. The zero value yields a chain
// that satisfies the App Store trust policy, valid from one hour ago for a
// year.
type ChainOptions struct {
	// NotBefore and NotAfter apply to every certificate of the chain.
	NotBefore time.Time
	NotAfter  time.Time

	// IntermediateKeyUsage defaults to cert sign and CRL sign.
	IntermediateKeyUsage x509.KeyUsage

	// OmitLeafExtension drops the receipt signing extension from the leaf.
	OmitLeafExtension bool

	// OmitIntermediateExtension drops the receipt signing extension from the
	// intermediate.
	OmitIntermediateExtension bool

	// RootName overrides the root common name.
	RootName string
}

// Certificates returns leaf, intermediate and root in that order.
func (c Chain) Certificates() []*x509.Certificate {
	return []*x509.Certificate{c.Leaf.Cert, c.Intermediate.Cert, c.Root.Cert}
}

// GetChain returns a shared ECDSA chain that satisfies the trust policy.
func GetChain() Chain {
	setupCertificates()
	return transactionChain
}

// GetRSAChain returns a shared RSA chain for signing receipts.
func GetRSAChain() RSAChain {
	setupCertificates()
	return receiptChain
}

func setupCertificates() {
	setupCertificatesOnce.Do(func() {
		transactionChain = NewChain(ChainOptions{})
		receiptChain = NewRSAChain(ChainOptions{})
	})
}

// NewChain generates a fresh ECDSA chain.
func NewChain(opts ChainOptions) Chain {
	rootKey, _ := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	intermediateKey, _ := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	leafKey, _ := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)

	root := GetECDSACertTupleWithPK(rootKey, getRootTemplate(opts), nil)
	intermediate := GetECDSACertTupleWithPK(intermediateKey, getIntermediateTemplate(opts), &root)
	leaf := GetECDSACertTupleWithPK(leafKey, getLeafTemplate(opts), &intermediate)
	return Chain{Root: root, Intermediate: intermediate, Leaf: leaf}
}

// NewRSAChain generates a fresh RSA chain.
func NewRSAChain(opts ChainOptions) RSAChain {
	rootKey, _ := rsa.GenerateKey(rand.Reader, 2048)
	intermediateKey, _ := rsa.GenerateKey(rand.Reader, 2048)
	leafKey, _ := rsa.GenerateKey(rand.Reader, 2048)

	root := GetRSACertTupleWithPK(rootKey, getRootTemplate(opts), nil)
	intermediate := GetRSACertTupleWithPK(intermediateKey, getIntermediateTemplate(opts), &root)
	leaf := GetRSACertTupleWithPK(leafKey, getLeafTemplate(opts), &intermediate)
	return RSAChain{Root: root, Intermediate: intermediate, Leaf: leaf}
}

// GetECRootCertificate returns a self-signed ECDSA root named cn.
func GetECRootCertificate(cn string) ECCertTuple {
	k, _ := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	return GetECDSACertTupleWithPK(k, getRootTemplate(ChainOptions{RootName: cn}), nil)
}

func GetRSACertTupleWithPK(privKey *rsa.PrivateKey, template *x509.Certificate, issuer *RSACertTuple) RSACertTuple {
	var certBytes []byte
	if issuer != nil {
		certBytes, _ = x509.CreateCertificate(rand.Reader, template, issuer.Cert, &privKey.PublicKey, issuer.PrivateKey)
	} else {
		certBytes, _ = x509.CreateCertificate(rand.Reader, template, template, &privKey.PublicKey, privKey)
	}

	cert, _ := x509.ParseCertificate(certBytes)
	return RSACertTuple{
		Cert:       cert,
		PrivateKey: privKey,
	}
}

func GetECDSACertTupleWithPK(privKey *ecdsa.PrivateKey, template *x509.Certificate, issuer *ECCertTuple) ECCertTuple {
	var certBytes []byte
	if issuer != nil {
		certBytes, _ = x509.CreateCertificate(rand.Reader, template, issuer.Cert, &privKey.PublicKey, issuer.PrivateKey)
	} else {
		certBytes, _ = x509.CreateCertificate(rand.Reader, template, template, &privKey.PublicKey, privKey)
	}

	cert, _ := x509.ParseCertificate(certBytes)
	return ECCertTuple{
		Cert:       cert,
		PrivateKey: privKey,
	}
}

func getRootTemplate(opts ChainOptions) *x509.Certificate {
	cn := opts.RootName
	if cn == "" {
		cn = "IAP Test Root CA"
	}
	template := getCertTemplate(opts, cn)
	template.SerialNumber = big.NewInt(1)
	template.KeyUsage = x509.KeyUsageCertSign | x509.KeyUsageCRLSign
	template.BasicConstraintsValid = true
	template.IsCA = true
	return template
}

func getIntermediateTemplate(opts ChainOptions) *x509.Certificate {
	template := getCertTemplate(opts, "IAP Test Worldwide Developer Relations CA")
	template.KeyUsage = x509.KeyUsageCertSign | x509.KeyUsageCRLSign
	if opts.IntermediateKeyUsage != 0 {
		template.KeyUsage = opts.IntermediateKeyUsage
	}
	template.BasicConstraintsValid = true
	template.IsCA = true
	template.MaxPathLen = 0
	template.MaxPathLenZero = true
	template.ExtraExtensions = []pkix.Extension{{Id: oid.AppleWWDRIntermediate, Value: asn1Null}}
	if !opts.OmitIntermediateExtension {
		template.ExtraExtensions = append(template.ExtraExtensions, pkix.Extension{Id: oid.AppleStoreReceiptSigning, Value: asn1Null})
	}
	return template
}

func getLeafTemplate(opts ChainOptions) *x509.Certificate {
	template := getCertTemplate(opts, "IAP Test Store Receipt Signing")
	template.KeyUsage = x509.KeyUsageDigitalSignature
	template.BasicConstraintsValid = true
	if !opts.OmitLeafExtension {
		template.ExtraExtensions = []pkix.Extension{{Id: oid.AppleStoreReceiptSigning, Value: asn1Null}}
	}
	return template
}

func getCertTemplate(opts ChainOptions, cn string) *x509.Certificate {
	notBefore := opts.NotBefore
	if notBefore.IsZero() {
		notBefore = time.Now().Add(-time.Hour)
	}
	notAfter := opts.NotAfter
	if notAfter.IsZero() {
		notAfter = notBefore.AddDate(1, 0, 0)
	}
	return &x509.Certificate{
		Subject: pkix.Name{
			Organization:       []string{"IAP Test"},
			OrganizationalUnit: []string{"Store"},
			Country:            []string{"US"},
			CommonName:         cn,
		},
		SerialNumber: big.NewInt(int64(mrand.Intn(1<<30) + 2)),
		NotBefore:    notBefore,
		NotAfter:     notAfter,
	}
}
