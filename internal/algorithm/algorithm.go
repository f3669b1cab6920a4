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

// Package algorithm maps certificate keys to the JWS signature algorithms
// accepted for signed transactions.
package algorithm

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/rsa"
	"crypto/x509"
	"errors"
	"fmt"
)

// Algorithm defines the signature algorithm.
type Algorithm int

// Signature algorithms supported by this library.
const (
	AlgorithmPS256 Algorithm = 1 + iota // RSASSA-PSS with SHA-256
	AlgorithmPS384                      // RSASSA-PSS with SHA-384
	AlgorithmPS512                      // RSASSA-PSS with SHA-512
	AlgorithmES256                      // ECDSA on secp256r1 with SHA-256
	AlgorithmES384                      // ECDSA on secp384r1 with SHA-384
	AlgorithmES512                      // ECDSA on secp521r1 with SHA-512
	AlgorithmRS256                      // RSASSA-PKCS1-v1_5 with SHA-256
	AlgorithmRS384                      // RSASSA-PKCS1-v1_5 with SHA-384
	AlgorithmRS512                      // RSASSA-PKCS1-v1_5 with SHA-512
)

// Hash returns the hash function of the algorithm.
func (alg Algorithm) Hash() crypto.Hash {
	switch alg {
	case AlgorithmPS256, AlgorithmES256, AlgorithmRS256:
		return crypto.SHA256
	case AlgorithmPS384, AlgorithmES384, AlgorithmRS384:
		return crypto.SHA384
	case AlgorithmPS512, AlgorithmES512, AlgorithmRS512:
		return crypto.SHA512
	}
	return 0
}

// String returns the JWS "alg" header value of the algorithm.
func (alg Algorithm) String() string {
	switch alg {
	case AlgorithmPS256:
		return "PS256"
	case AlgorithmPS384:
		return "PS384"
	case AlgorithmPS512:
		return "PS512"
	case AlgorithmES256:
		return "ES256"
	case AlgorithmES384:
		return "ES384"
	case AlgorithmES512:
		return "ES512"
	case AlgorithmRS256:
		return "RS256"
	case AlgorithmRS384:
		return "RS384"
	case AlgorithmRS512:
		return "RS512"
	}
	return fmt.Sprintf("Algorithm(%d)", int(alg))
}

// KeyType defines the key type.
type KeyType int

const (
	KeyTypeRSA KeyType = 1 + iota // KeyType RSA
	KeyTypeEC                     // KeyType EC
)

// KeySpec defines a key type and size.
type KeySpec struct {
	// KeyType is the type of the key.
	Type KeyType

	// KeySize is the size of the key in bits.
	Size int
}

// SignatureAlgorithm returns the preferred signing algorithm associated with
// the KeySpec.
func (k KeySpec) SignatureAlgorithm() Algorithm {
	switch k.Type {
	case KeyTypeEC:
		switch k.Size {
		case 256:
			return AlgorithmES256
		case 384:
			return AlgorithmES384
		case 521:
			return AlgorithmES512
		}
	case KeyTypeRSA:
		switch k.Size {
		case 2048:
			return AlgorithmPS256
		case 3072:
			return AlgorithmPS384
		case 4096:
			return AlgorithmPS512
		}
	}
	return 0
}

// JWSAlgorithms returns the "alg" header values a token signed by a key of
// this type and size may carry. ECDSA keys are bound to the curve's hash.
// RSA keys accept either padding with any of the SHA-2 hashes.
func (k KeySpec) JWSAlgorithms() []string {
	switch k.Type {
	case KeyTypeEC:
		if alg := k.SignatureAlgorithm(); alg != 0 {
			return []string{alg.String()}
		}
	case KeyTypeRSA:
		if k.SignatureAlgorithm() == 0 {
			return nil
		}
		return []string{
			AlgorithmRS256.String(), AlgorithmRS384.String(), AlgorithmRS512.String(),
			AlgorithmPS256.String(), AlgorithmPS384.String(), AlgorithmPS512.String(),
		}
	}
	return nil
}

// ExtractKeySpec extracts KeySpec from the signing certificate.
func ExtractKeySpec(signingCert *x509.Certificate) (KeySpec, error) {
	if signingCert == nil {
		return KeySpec{}, errors.New("signing certificate is nil")
	}
	return ExtractPublicKeySpec(signingCert.PublicKey)
}

// ExtractPublicKeySpec extracts KeySpec from a public key.
func ExtractPublicKeySpec(publicKey crypto.PublicKey) (KeySpec, error) {
	switch key := publicKey.(type) {
	case *rsa.PublicKey:
		switch bitSize := key.Size() << 3; bitSize {
		case 2048, 3072, 4096:
			return KeySpec{
				Type: KeyTypeRSA,
				Size: bitSize,
			}, nil
		default:
			return KeySpec{}, fmt.Errorf("rsa key size %d bits is not supported", bitSize)
		}
	case *ecdsa.PublicKey:
		switch bitSize := key.Curve.Params().BitSize; bitSize {
		case 256, 384, 521:
			return KeySpec{
				Type: KeyTypeEC,
				Size: bitSize,
			}, nil
		default:
			return KeySpec{}, fmt.Errorf("ecdsa key size %d bits is not supported", bitSize)
		}
	}
	return KeySpec{}, errors.New("unsupported public key type")
}
