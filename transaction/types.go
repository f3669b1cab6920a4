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

package transaction

import (
	"encoding/json"
	"time"
)

// Type is the type of an in-app purchase product.
type Type string

const (
	TypeAutoRenewableSubscription Type = "Auto-Renewable Subscription"
	TypeNonConsumable             Type = "Non-Consumable"
	TypeConsumable                Type = "Consumable"
	TypeNonRenewingSubscription   Type = "Non-Renewing Subscription"
)

// TransactionReason is the cause of a purchase transaction.
type TransactionReason string

const (
	TransactionReasonPurchase TransactionReason = "PURCHASE"
	TransactionReasonRenewal  TransactionReason = "RENEWAL"
)

// RevocationReason is the reason for a refunded transaction.
type RevocationReason int32

const (
	RevocationReasonRefundedForOtherReason RevocationReason = 0
	RevocationReasonRefundedDueToIssue     RevocationReason = 1
)

// OfferType is the type of a subscription offer.
type OfferType int32

const (
	OfferTypeIntroductory          OfferType = 1
	OfferTypePromotional           OfferType = 2
	OfferTypeSubscriptionOfferCode OfferType = 3
	OfferTypeWinBack               OfferType = 4
)

// OfferDiscountType is the payment mode of a subscription offer.
type OfferDiscountType string

const (
	OfferDiscountTypeFreeTrial  OfferDiscountType = "FREE_TRIAL"
	OfferDiscountTypePayAsYouGo OfferDiscountType = "PAY_AS_YOU_GO"
	OfferDiscountTypePayUpFront OfferDiscountType = "PAY_UP_FRONT"
)

// InAppOwnershipType is the relationship of the user with a family shared
// purchase.
type InAppOwnershipType string

const (
	InAppOwnershipTypeFamilyShared InAppOwnershipType = "FAMILY_SHARED"
	InAppOwnershipTypePurchased    InAppOwnershipType = "PURCHASED"
)

// Environment is the server environment.
type Environment string

const (
	EnvironmentSandbox      Environment = "Sandbox"
	EnvironmentProduction   Environment = "Production"
	EnvironmentXcode        Environment = "Xcode"
	EnvironmentLocalTesting Environment = "LocalTesting"
)

// Payload is a decoded signed payload that may carry the date it was
// signed at.
type Payload interface {
	// SignedAt returns the signing date of the payload and whether the
	// payload carries one.
	SignedAt() (time.Time, bool)
}

// JWSTransactionDecodedPayload is the decoded payload of a signed
// transaction. Dates are UNIX milliseconds.
type JWSTransactionDecodedPayload struct {
	OriginalTransactionID       string             `json:"originalTransactionId,omitempty"`
	TransactionID               string             `json:"transactionId,omitempty"`
	WebOrderLineItemID          string             `json:"webOrderLineItemId,omitempty"`
	BundleID                    string             `json:"bundleId,omitempty"`
	ProductID                   string             `json:"productId,omitempty"`
	SubscriptionGroupIdentifier string             `json:"subscriptionGroupIdentifier,omitempty"`
	PurchaseDate                int64              `json:"purchaseDate,omitempty"`
	OriginalPurchaseDate        int64              `json:"originalPurchaseDate,omitempty"`
	ExpiresDate                 int64              `json:"expiresDate,omitempty"`
	Quantity                    int32              `json:"quantity,omitempty"`
	Type                        Type               `json:"type,omitempty"`
	AppAccountToken             string             `json:"appAccountToken,omitempty"`
	InAppOwnershipType          InAppOwnershipType `json:"inAppOwnershipType,omitempty"`
	SignedDate                  int64              `json:"signedDate,omitempty"`
	RevocationReason            *RevocationReason  `json:"revocationReason,omitempty"`
	RevocationDate              int64              `json:"revocationDate,omitempty"`
	IsUpgraded                  bool               `json:"isUpgraded,omitempty"`
	OfferType                   *OfferType         `json:"offerType,omitempty"`
	OfferIdentifier             string             `json:"offerIdentifier,omitempty"`
	Environment                 Environment        `json:"environment,omitempty"`
	Storefront                  string             `json:"storefront,omitempty"`
	StorefrontID                string             `json:"storefrontId,omitempty"`
	TransactionReason           TransactionReason  `json:"transactionReason,omitempty"`
	Currency                    string             `json:"currency,omitempty"`
	Price                       int64              `json:"price,omitempty"`
	OfferDiscountType           OfferDiscountType  `json:"offerDiscountType,omitempty"`
}

// SignedAt returns the signedDate of the transaction.
func (p *JWSTransactionDecodedPayload) SignedAt() (time.Time, bool) {
	return millisToTime(p.SignedDate)
}

// AppTransaction is the decoded payload of a signed app transaction. Dates
// are UNIX milliseconds.
type AppTransaction struct {
	ReceiptType                Environment `json:"receiptType,omitempty"`
	AppAppleID                 int64       `json:"appAppleId,omitempty"`
	BundleID                   string      `json:"bundleId,omitempty"`
	ApplicationVersion         string      `json:"applicationVersion,omitempty"`
	VersionExternalIdentifier  int64       `json:"versionExternalIdentifier,omitempty"`
	ReceiptCreationDate        int64       `json:"receiptCreationDate,omitempty"`
	OriginalPurchaseDate       int64       `json:"originalPurchaseDate,omitempty"`
	OriginalApplicationVersion string      `json:"originalApplicationVersion,omitempty"`
	DeviceVerification         string      `json:"deviceVerification,omitempty"`
	DeviceVerificationNonce    string      `json:"deviceVerificationNonce,omitempty"`
	PreorderDate               int64       `json:"preorderDate,omitempty"`
}

// SignedAt returns the receiptCreationDate of the app transaction.
func (p *AppTransaction) SignedAt() (time.Time, bool) {
	return millisToTime(p.ReceiptCreationDate)
}

// Claims is an undecoded signed payload. Numbers are kept as json.Number.
type Claims map[string]interface{}

// SignedAt returns the signedDate claim.
func (c Claims) SignedAt() (time.Time, bool) {
	switch v := c["signedDate"].(type) {
	case json.Number:
		if ms, err := v.Int64(); err == nil {
			return millisToTime(ms)
		}
		if f, err := v.Float64(); err == nil {
			return millisToTime(int64(f))
		}
	case float64:
		return millisToTime(int64(v))
	}
	return time.Time{}, false
}

// Timestamp converts UNIX milliseconds to a time. Zero yields nil.
func Timestamp(ms int64) *time.Time {
	t, ok := millisToTime(ms)
	if !ok {
		return nil
	}
	return &t
}

func millisToTime(ms int64) (time.Time, bool) {
	if ms == 0 {
		return time.Time{}, false
	}
	return time.UnixMilli(ms).UTC(), true
}
