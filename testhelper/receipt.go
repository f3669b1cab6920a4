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
	"time"

	"golang.org/x/crypto/cryptobyte"
	cbasn1 "golang.org/x/crypto/cryptobyte/asn1"
)

// ReceiptAttribute is one attribute of a receipt payload. Value holds the
// DER encoding carried inside the attribute's OCTET STRING.
type ReceiptAttribute struct {
	Type    int64
	Version int64
	Value   []byte
}

// EncodeReceiptPayload encodes attrs as a receipt payload SET, keeping the
// given order.
func EncodeReceiptPayload(attrs ...ReceiptAttribute) []byte {
	var b cryptobyte.Builder
	b.AddASN1(cbasn1.SET, func(set *cryptobyte.Builder) {
		for _, attr := range attrs {
			set.AddASN1(cbasn1.SEQUENCE, func(seq *cryptobyte.Builder) {
				seq.AddASN1Int64(attr.Type)
				seq.AddASN1Int64(attr.Version)
				seq.AddASN1OctetString(attr.Value)
			})
		}
	})
	return b.BytesOrPanic()
}

// UTF8Value encodes s as an ASN.1 UTF8String.
func UTF8Value(s string) []byte {
	return stringValue(cbasn1.UTF8String, s)
}

// IA5Value encodes s as an ASN.1 IA5String.
func IA5Value(s string) []byte {
	return stringValue(cbasn1.IA5String, s)
}

// DateValue encodes t as an RFC 3339 IA5String.
func DateValue(t time.Time) []byte {
	return IA5Value(t.UTC().Format(time.RFC3339))
}

// IntValue encodes n as an ASN.1 INTEGER.
func IntValue(n int64) []byte {
	var b cryptobyte.Builder
	b.AddASN1Int64(n)
	return b.BytesOrPanic()
}

func stringValue(tag cbasn1.Tag, s string) []byte {
	var b cryptobyte.Builder
	b.AddASN1(tag, func(b *cryptobyte.Builder) {
		b.AddBytes([]byte(s))
	})
	return b.BytesOrPanic()
}
