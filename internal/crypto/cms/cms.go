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

// Package cms parses and verifies the PKCS #7 SignedData container of App
// Store receipts as profiled by RFC 5652.
//
// Only the subset used by receipts is modeled: attached content, signers
// identified by issuer and serial number, and optional signed attributes.
package cms

import (
	"crypto/x509/pkix"
	"encoding/asn1"
	"math/big"
)

// ContentInfo is the outer envelope.
//
//	ContentInfo ::= SEQUENCE {
//	  contentType ContentType,
//	  content [0] EXPLICIT ANY DEFINED BY contentType }
type ContentInfo struct {
	ContentType asn1.ObjectIdentifier
	Content     asn1.RawValue `asn1:"explicit,tag:0"`
}

// SignedData is the RFC 5652 5.1 signed-data content.
//
//	SignedData ::= SEQUENCE {
//	 version             CMSVersion,
//	 digestAlgorithms    DigestAlgorithmIdentifiers,
//	 encapContentInfo    EncapsulatedContentInfo,
//	 certificates        [0] IMPLICIT CertificateSet             OPTIONAL,
//	 crls                [1] IMPLICIT CertificateRevocationLists OPTIONAL,
//	 signerInfos         SignerInfos }
//
// Revocation lists are carried through undecoded. Receipts never include
// them.
type SignedData struct {
	Version                    int
	DigestAlgorithmIdentifiers []pkix.AlgorithmIdentifier `asn1:"set"`
	EncapsulatedContentInfo    EncapsulatedContentInfo
	Certificates               asn1.RawValue `asn1:"optional,tag:0"`
	CRLs                       asn1.RawValue `asn1:"optional,tag:1"`
	SignerInfos                []SignerInfo  `asn1:"set"`
}

// EncapsulatedContentInfo holds the signed payload. For receipts the content
// type is id-data and the content is the attribute SET.
//
//	EncapsulatedContentInfo ::= SEQUENCE {
//	 eContentType    ContentType,
//	 eContent        [0] EXPLICIT OCTET STRING   OPTIONAL }
type EncapsulatedContentInfo struct {
	ContentType asn1.ObjectIdentifier
	Content     []byte `asn1:"explicit,optional,tag:0"`
}

// SignerInfo is a single signature over the content.
//
//	SignerInfo ::= SEQUENCE {
//	 version             CMSVersion,
//	 sid                 SignerIdentifier,
//	 digestAlgorithm     DigestAlgorithmIdentifier,
//	 signedAttrs         [0] IMPLICIT SignedAttributes   OPTIONAL,
//	 signatureAlgorithm  SignatureAlgorithmIdentifier,
//	 signature           SignatureValue,
//	 unsignedAttrs       [1] IMPLICIT UnsignedAttributes OPTIONAL }
//
// Only version 1 is accepted, where the signer identifier is an
// IssuerAndSerialNumber. Legacy receipts carry no signed attributes.
type SignerInfo struct {
	Version            int
	SignerIdentifier   IssuerAndSerialNumber
	DigestAlgorithm    pkix.AlgorithmIdentifier
	SignedAttributes   Attributes `asn1:"optional,tag:0"`
	SignatureAlgorithm pkix.AlgorithmIdentifier
	Signature          []byte
	UnsignedAttributes Attributes `asn1:"optional,tag:1"`
}

// IssuerAndSerialNumber identifies the signing certificate.
type IssuerAndSerialNumber struct {
	Issuer       asn1.RawValue
	SerialNumber *big.Int
}

// Attribute is a signed or unsigned attribute of a signer.
//
//	Attribute ::= SEQUENCE {
//	  attrType    OBJECT IDENTIFIER,
//	  attrValues  SET OF AttributeValue }
type Attribute struct {
	Type   asn1.ObjectIdentifier
	Values asn1.RawValue `asn1:"set"`
}

// Attributes is a SET OF Attribute.
type Attributes []Attribute

// TryGet unmarshals the first value of the attribute identified by
// identifier into out. ErrAttributeNotFound is returned when absent.
func (a Attributes) TryGet(identifier asn1.ObjectIdentifier, out any) error {
	for _, attr := range a {
		if !identifier.Equal(attr.Type) {
			continue
		}
		rest, err := asn1.Unmarshal(attr.Values.Bytes, out)
		if err != nil {
			return err
		}
		if len(rest) != 0 {
			return SyntaxError{Message: "attribute " + identifier.String() + " has more than one value"}
		}
		return nil
	}
	return ErrAttributeNotFound
}
