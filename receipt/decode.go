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
	"time"

	"github.com/iapkit/iap-core-go/log"
)

// Receipt is a decoded App Store receipt payload.
type Receipt struct {
	// Environment is the receipt type, such as "Production" or
	// "ProductionSandbox".
	Environment                string          `json:"environment,omitempty"`
	AppItemID                  *int64          `json:"appItemId,omitempty"`
	BundleIdentifier           string          `json:"bundleIdentifier,omitempty"`
	AppVersion                 string          `json:"appVersion,omitempty"`
	OpaqueValue                string          `json:"opaqueValue,omitempty"`
	SHA1Hash                   string          `json:"sha1Hash,omitempty"`
	CreationDate               *time.Time      `json:"receiptCreationDate,omitempty"`
	VersionExternalIdentifier  *int64          `json:"versionExternalIdentifier,omitempty"`
	OriginalApplicationVersion string          `json:"originalApplicationVersion,omitempty"`
	ExpirationDate             *time.Time      `json:"receiptExpirationDate,omitempty"`
	InAppPurchases             []InAppPurchase `json:"inAppPurchaseReceipts"`

	// Remaining holds the attributes that were not decoded. It is only
	// populated when requested.
	Remaining []Attribute `json:"remaining,omitempty"`
}

// InAppPurchase is a decoded in-app purchase record of a receipt.
type InAppPurchase struct {
	Quantity                            *int64     `json:"quantity,omitempty"`
	ProductIdentifier                   string     `json:"productIdentifier,omitempty"`
	TransactionIdentifier               string     `json:"transactionIdentifier,omitempty"`
	OriginalTransactionIdentifier       string     `json:"originalTransactionIdentifier,omitempty"`
	PurchaseDate                        *time.Time `json:"purchaseDate,omitempty"`
	OriginalPurchaseDate                *time.Time `json:"originalPurchaseDate,omitempty"`
	SubscriptionExpirationDate          *time.Time `json:"subscriptionExpirationDate"`
	CancellationDate                    *time.Time `json:"cancellationDate"`
	SubscriptionIntroductoryPricePeriod *int64     `json:"subscriptionIntroductoryPricePeriod,omitempty"`
	WebOrderLineItemID                  *int64     `json:"webOrderLineItemId,omitempty"`

	// Remaining holds the attributes that were not decoded. It is only
	// populated when requested.
	Remaining []Attribute `json:"remaining,omitempty"`
}

// DecodeOptions configures DecodeReceipt and DecodeInAppPurchase.
type DecodeOptions struct {
	// ReturnRemaining keeps unknown and duplicate attributes in Remaining.
	ReturnRemaining bool

	// Logger receives debug messages. Nil discards them.
	Logger log.Logger
}

// DecodeReceipt decodes the top level attributes of a receipt payload.
//
// The first occurrence of a known attribute wins. Each in-app purchase
// attribute is decoded as a nested attribute set; a nested set that fails to
// parse is skipped.
func DecodeReceipt(attrs []Attribute, opts DecodeOptions) *Receipt {
	logger := log.OrDiscard(opts.Logger)
	r := &Receipt{InAppPurchases: []InAppPurchase{}}
	seen := map[AttributeType]bool{}

	for i, attr := range attrs {
		typ := AttributeType(attr.Type)
		if typ != AttributeInAppPurchase && seen[typ] && isKnownAttribute(typ) {
			logger.Debugf("ignoring duplicate receipt attribute %d at index %d", attr.Type, i)
			r.keep(attr, opts)
			continue
		}
		seen[typ] = true

		switch typ {
		case AttributeEnvironment:
			r.Environment, _ = stringValue(attr.Value)
		case AttributeAppItemID:
			r.AppItemID, _ = intValue(attr.Value)
		case AttributeBundleIdentifier:
			r.BundleIdentifier, _ = stringValue(attr.Value)
		case AttributeAppVersion:
			r.AppVersion, _ = stringValue(attr.Value)
		case AttributeOpaqueValue:
			r.OpaqueValue = hexValue(attr.Value)
		case AttributeSHA1Hash:
			r.SHA1Hash = hexValue(attr.Value)
		case AttributeCreationDate:
			r.CreationDate = dateValue(attr.Value)
		case AttributeVersionExternalIdentifier:
			r.VersionExternalIdentifier, _ = intValue(attr.Value)
		case AttributeInAppPurchase:
			nested, err := ParseAttributes(attr.Value)
			if err != nil {
				logger.Debugf("skipping in-app purchase record at index %d: %v", i, err)
				continue
			}
			r.InAppPurchases = append(r.InAppPurchases, *DecodeInAppPurchase(nested, opts))
		case AttributeOriginalApplicationVersion:
			r.OriginalApplicationVersion, _ = stringValue(attr.Value)
		case AttributeExpirationDate:
			r.ExpirationDate = dateValue(attr.Value)
		default:
			r.keep(attr, opts)
		}
	}
	logger.Debugf("decoded receipt for %q with %d in-app purchases", r.BundleIdentifier, len(r.InAppPurchases))
	return r
}

func (r *Receipt) keep(attr Attribute, opts DecodeOptions) {
	if opts.ReturnRemaining {
		r.Remaining = append(r.Remaining, attr)
	}
}

func isKnownAttribute(typ AttributeType) bool {
	switch typ {
	case AttributeEnvironment, AttributeAppItemID, AttributeBundleIdentifier,
		AttributeAppVersion, AttributeOpaqueValue, AttributeSHA1Hash,
		AttributeCreationDate, AttributeVersionExternalIdentifier,
		AttributeInAppPurchase, AttributeOriginalApplicationVersion,
		AttributeExpirationDate:
		return true
	}
	return false
}

// DecodeInAppPurchase decodes the attributes of one in-app purchase record.
// Nested records are not decoded; they are treated as unknown attributes.
func DecodeInAppPurchase(attrs []Attribute, opts DecodeOptions) *InAppPurchase {
	p := &InAppPurchase{}
	seen := map[InAppAttributeType]bool{}

	for _, attr := range attrs {
		typ := InAppAttributeType(attr.Type)
		if seen[typ] && isKnownInAppAttribute(typ) {
			p.keep(attr, opts)
			continue
		}
		seen[typ] = true

		switch typ {
		case InAppQuantity:
			p.Quantity, _ = intValue(attr.Value)
		case InAppProductIdentifier:
			p.ProductIdentifier, _ = stringValue(attr.Value)
		case InAppTransactionIdentifier:
			p.TransactionIdentifier, _ = stringValue(attr.Value)
		case InAppPurchaseDate:
			p.PurchaseDate = dateValue(attr.Value)
		case InAppOriginalTransactionIdentifier:
			p.OriginalTransactionIdentifier, _ = stringValue(attr.Value)
		case InAppOriginalPurchaseDate:
			p.OriginalPurchaseDate = dateValue(attr.Value)
		case InAppSubscriptionExpirationDate:
			p.SubscriptionExpirationDate = dateValue(attr.Value)
		case InAppWebOrderLineItemID:
			p.WebOrderLineItemID, _ = intValue(attr.Value)
		case InAppCancellationDate:
			p.CancellationDate = dateValue(attr.Value)
		case InAppSubscriptionIntroductoryPricePeriod:
			p.SubscriptionIntroductoryPricePeriod, _ = intValue(attr.Value)
		default:
			p.keep(attr, opts)
		}
	}
	return p
}

func (p *InAppPurchase) keep(attr Attribute, opts DecodeOptions) {
	if opts.ReturnRemaining {
		p.Remaining = append(p.Remaining, attr)
	}
}

func isKnownInAppAttribute(typ InAppAttributeType) bool {
	switch typ {
	case InAppQuantity, InAppProductIdentifier, InAppTransactionIdentifier,
		InAppPurchaseDate, InAppOriginalTransactionIdentifier,
		InAppOriginalPurchaseDate, InAppSubscriptionExpirationDate,
		InAppWebOrderLineItemID, InAppCancellationDate,
		InAppSubscriptionIntroductoryPricePeriod:
		return true
	}
	return false
}
