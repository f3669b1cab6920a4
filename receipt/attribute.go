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

package receipt

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/iapkit/iap-core-go/iap"
	"github.com/iapkit/iap-core-go/internal/crypto/cms/encoding/ber"
	"golang.org/x/crypto/cryptobyte"
	cbasn1 "golang.org/x/crypto/cryptobyte/asn1"
)

// Attribute is one entry of a receipt payload:
//
//	ReceiptAttribute ::= SEQUENCE {
//	  type    INTEGER,
//	  version INTEGER,
//	  value   OCTET STRING }
type Attribute struct {
	Type    int    `json:"type"`
	Version int    `json:"version"`
	Value   []byte `json:"value"`

	// Raw is the DER encoding of the whole SEQUENCE.
	Raw []byte `json:"-"`
}

// AttributeType identifies a top level receipt attribute.
type AttributeType int

// Top level receipt attributes.
const (
	AttributeEnvironment                AttributeType = 0
	AttributeAppItemID                  AttributeType = 1
	AttributeBundleIdentifier           AttributeType = 2
	AttributeAppVersion                 AttributeType = 3
	AttributeOpaqueValue                AttributeType = 4
	AttributeSHA1Hash                   AttributeType = 5
	AttributeCreationDate               AttributeType = 12
	AttributeVersionExternalIdentifier  AttributeType = 16
	AttributeInAppPurchase              AttributeType = 17
	AttributeOriginalApplicationVersion AttributeType = 19
	AttributeExpirationDate             AttributeType = 21
)

// InAppAttributeType identifies an attribute of an in-app purchase record.
type InAppAttributeType int

// In-app purchase attributes.
const (
	InAppQuantity                            InAppAttributeType = 1701
	InAppProductIdentifier                   InAppAttributeType = 1702
	InAppTransactionIdentifier               InAppAttributeType = 1703
	InAppPurchaseDate                        InAppAttributeType = 1704
	InAppOriginalTransactionIdentifier       InAppAttributeType = 1705
	InAppOriginalPurchaseDate                InAppAttributeType = 1706
	InAppSubscriptionExpirationDate          InAppAttributeType = 1708
	InAppWebOrderLineItemID                  InAppAttributeType = 1711
	InAppCancellationDate                    InAppAttributeType = 1712
	InAppSubscriptionIntroductoryPricePeriod InAppAttributeType = 1719
)

// ParseAttributes decodes a DER or BER encoded receipt payload, a SET OF
// ReceiptAttribute, keeping the encoded order.
func ParseAttributes(data []byte) ([]Attribute, error) {
	der, err := ber.ConvertToDER(data)
	if err != nil {
		return nil, &iap.ParseError{Msg: "invalid receipt payload", Detail: err}
	}

	input := cryptobyte.String(der)
	var set cryptobyte.String
	if !input.ReadASN1(&set, cbasn1.SET) {
		return nil, &iap.ParseError{Msg: "receipt payload is not a SET"}
	}
	if !input.Empty() {
		return nil, &iap.ParseError{Msg: "trailing data after receipt payload"}
	}

	attrs := []Attribute{}
	for !set.Empty() {
		attr, err := readAttribute(&set)
		if err != nil {
			return nil, &iap.ParseError{Msg: fmt.Sprintf("invalid receipt attribute at index %d", len(attrs)), Detail: err}
		}
		attrs = append(attrs, attr)
	}
	return attrs, nil
}

func readAttribute(s *cryptobyte.String) (Attribute, error) {
	var element cryptobyte.String
	if !s.ReadASN1Element(&element, cbasn1.SEQUENCE) {
		return Attribute{}, errors.New("expected SEQUENCE")
	}
	raw := append([]byte(nil), element...)

	var seq cryptobyte.String
	element.ReadASN1(&seq, cbasn1.SEQUENCE)

	var typ, version int64
	var value []byte
	if !seq.ReadASN1Integer(&typ) {
		return Attribute{}, errors.New("invalid attribute type")
	}
	if !seq.ReadASN1Integer(&version) {
		return Attribute{}, errors.New("invalid attribute version")
	}
	if !seq.ReadASN1Bytes(&value, cbasn1.OCTET_STRING) {
		return Attribute{}, errors.New("invalid attribute value")
	}
	if !seq.Empty() {
		return Attribute{}, errors.New("unexpected trailing fields")
	}
	return Attribute{
		Type:    int(typ),
		Version: int(version),
		Value:   append([]byte(nil), value...),
		Raw:     raw,
	}, nil
}

// stringValue decodes a UTF8String or IA5String carried in an attribute
// value.
func stringValue(value []byte) (string, bool) {
	s := cryptobyte.String(value)
	var content cryptobyte.String
	var tag cbasn1.Tag
	if !s.ReadAnyASN1(&content, &tag) || !s.Empty() {
		return "", false
	}
	switch tag {
	case cbasn1.UTF8String, cbasn1.IA5String, cbasn1.PrintableString:
		return string(content), true
	}
	return "", false
}

// intValue decodes an INTEGER carried in an attribute value.
func intValue(value []byte) (*int64, bool) {
	s := cryptobyte.String(value)
	var n int64
	if !s.ReadASN1Integer(&n) || !s.Empty() {
		return nil, false
	}
	return &n, true
}

// dateValue decodes an RFC 3339 date carried in an attribute value. An
// empty or unparsable date yields nil.
func dateValue(value []byte) *time.Time {
	str, ok := stringValue(value)
	if !ok {
		return nil
	}
	str = strings.TrimSpace(str)
	if str == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, str)
	if err != nil {
		return nil
	}
	t = t.UTC()
	return &t
}

// hexValue returns the lowercase hex encoding of the raw value.
func hexValue(value []byte) string {
	return hex.EncodeToString(value)
}
