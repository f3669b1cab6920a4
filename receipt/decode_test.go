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
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/iapkit/iap-core-go/testhelper"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

var (
	testCreationDate = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	testPurchaseDate = time.Date(2024, 2, 1, 9, 30, 0, 0, time.UTC)
	testExpiryDate   = time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
)

func attr(typ int64, value []byte) testhelper.ReceiptAttribute {
	return testhelper.ReceiptAttribute{Type: typ, Version: 1, Value: value}
}

func inAppPayload(extra ...testhelper.ReceiptAttribute) []byte {
	attrs := []testhelper.ReceiptAttribute{
		attr(1701, testhelper.IntValue(1)),
		attr(1702, testhelper.UTF8Value("com.example.app.monthly")),
		attr(1703, testhelper.UTF8Value("2000000123")),
		attr(1704, testhelper.DateValue(testPurchaseDate)),
		attr(1705, testhelper.UTF8Value("2000000001")),
		attr(1706, testhelper.DateValue(testPurchaseDate)),
		attr(1708, testhelper.DateValue(testExpiryDate)),
		attr(1711, testhelper.IntValue(230000000042)),
		attr(1712, testhelper.IA5Value("")),
		attr(1719, testhelper.IntValue(0)),
	}
	return testhelper.EncodeReceiptPayload(append(attrs, extra...)...)
}

func receiptPayload(extra ...testhelper.ReceiptAttribute) []byte {
	attrs := []testhelper.ReceiptAttribute{
		attr(0, testhelper.UTF8Value("ProductionSandbox")),
		attr(1, testhelper.IntValue(0)),
		attr(2, testhelper.UTF8Value("com.example.app")),
		attr(3, testhelper.UTF8Value("42")),
		attr(4, []byte{0x01, 0x02, 0xab}),
		attr(5, []byte{0xff, 0x00}),
		attr(12, testhelper.DateValue(testCreationDate)),
		attr(16, testhelper.IntValue(812345)),
		attr(17, inAppPayload()),
		attr(19, testhelper.UTF8Value("1.0")),
	}
	return testhelper.EncodeReceiptPayload(append(attrs, extra...)...)
}

func decodePayload(t *testing.T, payload []byte, opts DecodeOptions) *Receipt {
	t.Helper()
	attrs, err := ParseAttributes(payload)
	if err != nil {
		t.Fatalf("ParseAttributes() error = %v", err)
	}
	return DecodeReceipt(attrs, opts)
}

func int64Ptr(n int64) *int64 {
	return &n
}

func timePtr(t time.Time) *time.Time {
	return &t
}

func TestDecodeReceipt(t *testing.T) {
	got := decodePayload(t, receiptPayload(), DecodeOptions{})
	want := &Receipt{
		Environment:                "ProductionSandbox",
		AppItemID:                  int64Ptr(0),
		BundleIdentifier:           "com.example.app",
		AppVersion:                 "42",
		OpaqueValue:                "0102ab",
		SHA1Hash:                   "ff00",
		CreationDate:               timePtr(testCreationDate),
		VersionExternalIdentifier:  int64Ptr(812345),
		OriginalApplicationVersion: "1.0",
		InAppPurchases: []InAppPurchase{{
			Quantity:                            int64Ptr(1),
			ProductIdentifier:                   "com.example.app.monthly",
			TransactionIdentifier:               "2000000123",
			OriginalTransactionIdentifier:       "2000000001",
			PurchaseDate:                        timePtr(testPurchaseDate),
			OriginalPurchaseDate:                timePtr(testPurchaseDate),
			SubscriptionExpirationDate:          timePtr(testExpiryDate),
			WebOrderLineItemID:                  int64Ptr(230000000042),
			SubscriptionIntroductoryPricePeriod: int64Ptr(0),
		}},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("DecodeReceipt() = %+v, want %+v", got, want)
	}
}

func TestDecodeReceiptRemaining(t *testing.T) {
	payload := receiptPayload(attr(9999, testhelper.UTF8Value("reserved")))

	t.Run("dropped by default", func(t *testing.T) {
		got := decodePayload(t, payload, DecodeOptions{})
		if got.Remaining != nil {
			t.Errorf("Remaining = %v, want nil", got.Remaining)
		}
	})

	t.Run("retained on request", func(t *testing.T) {
		got := decodePayload(t, payload, DecodeOptions{ReturnRemaining: true})
		if len(got.Remaining) != 1 {
			t.Fatalf("got %d remaining attributes, want 1", len(got.Remaining))
		}
		if got.Remaining[0].Type != 9999 {
			t.Errorf("Remaining[0].Type = %d, want 9999", got.Remaining[0].Type)
		}
		if got.BundleIdentifier != "com.example.app" {
			t.Errorf("BundleIdentifier = %q, want com.example.app", got.BundleIdentifier)
		}
	})

	t.Run("nested records", func(t *testing.T) {
		nested := attr(17, inAppPayload(attr(1750, testhelper.IntValue(3))))
		got := decodePayload(t, testhelper.EncodeReceiptPayload(nested), DecodeOptions{ReturnRemaining: true})
		if len(got.InAppPurchases) != 1 {
			t.Fatalf("got %d in-app purchases, want 1", len(got.InAppPurchases))
		}
		remaining := got.InAppPurchases[0].Remaining
		if len(remaining) != 1 || remaining[0].Type != 1750 {
			t.Errorf("in-app Remaining = %v, want attribute 1750", remaining)
		}
	})
}

func TestDecodeReceiptDuplicates(t *testing.T) {
	payload := testhelper.EncodeReceiptPayload(
		attr(2, testhelper.UTF8Value("com.example.first")),
		attr(2, testhelper.UTF8Value("com.example.second")),
		attr(17, inAppPayload()),
		attr(17, inAppPayload()),
		attr(17, testhelper.EncodeReceiptPayload(
			attr(1702, testhelper.UTF8Value("first")),
			attr(1702, testhelper.UTF8Value("second")),
		)),
	)

	got := decodePayload(t, payload, DecodeOptions{ReturnRemaining: true})
	if got.BundleIdentifier != "com.example.first" {
		t.Errorf("BundleIdentifier = %q, want the first occurrence", got.BundleIdentifier)
	}
	if len(got.Remaining) != 1 || got.Remaining[0].Type != 2 {
		t.Errorf("Remaining = %v, want the duplicate bundle identifier", got.Remaining)
	}
	if len(got.InAppPurchases) != 3 {
		t.Fatalf("got %d in-app purchases, want 3", len(got.InAppPurchases))
	}
	last := got.InAppPurchases[2]
	if last.ProductIdentifier != "first" {
		t.Errorf("ProductIdentifier = %q, want the first occurrence", last.ProductIdentifier)
	}
	if len(last.Remaining) != 1 {
		t.Errorf("in-app Remaining = %v, want the duplicate product identifier", last.Remaining)
	}
}

func TestDecodeReceiptNullableDates(t *testing.T) {
	payload := testhelper.EncodeReceiptPayload(
		attr(12, testhelper.IA5Value("yesterday")),
		attr(21, testhelper.IA5Value("")),
		attr(17, testhelper.EncodeReceiptPayload(
			attr(1704, testhelper.IA5Value("2024-13-45T99:00:00Z")),
			attr(1708, testhelper.IA5Value("")),
			attr(1712, testhelper.DateValue(testExpiryDate)),
		)),
	)
	got := decodePayload(t, payload, DecodeOptions{})
	if got.CreationDate != nil || got.ExpirationDate != nil {
		t.Errorf("dates = %v, %v, want nil", got.CreationDate, got.ExpirationDate)
	}
	p := got.InAppPurchases[0]
	if p.PurchaseDate != nil || p.SubscriptionExpirationDate != nil {
		t.Errorf("dates = %v, %v, want nil", p.PurchaseDate, p.SubscriptionExpirationDate)
	}
	if p.CancellationDate == nil || !p.CancellationDate.Equal(testExpiryDate) {
		t.Errorf("CancellationDate = %v, want %v", p.CancellationDate, testExpiryDate)
	}
}

func TestDecodeReceiptSkipsBrokenRecord(t *testing.T) {
	payload := testhelper.EncodeReceiptPayload(
		attr(17, []byte{0x04, 0x01, 0x00}),
		attr(17, inAppPayload()),
	)
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	got := decodePayload(t, payload, DecodeOptions{Logger: logger})
	if len(got.InAppPurchases) != 1 {
		t.Fatalf("got %d in-app purchases, want 1", len(got.InAppPurchases))
	}
	var skipped bool
	for _, entry := range hook.AllEntries() {
		if entry.Level == logrus.DebugLevel && strings.Contains(entry.Message, "skipping in-app purchase record at index 0") {
			skipped = true
		}
	}
	if !skipped {
		t.Error("expected a debug entry for the skipped record")
	}
}

func TestDecodeReceiptNoPurchases(t *testing.T) {
	got := decodePayload(t, testhelper.EncodeReceiptPayload(attr(2, testhelper.UTF8Value("com.example.app"))), DecodeOptions{})
	if got.InAppPurchases == nil || len(got.InAppPurchases) != 0 {
		t.Errorf("InAppPurchases = %v, want empty", got.InAppPurchases)
	}
}

func TestDecodeInAppPurchaseDepth(t *testing.T) {
	nested := attr(17, inAppPayload())
	attrs, err := ParseAttributes(inAppPayload(nested))
	if err != nil {
		t.Fatal(err)
	}
	got := DecodeInAppPurchase(attrs, DecodeOptions{ReturnRemaining: true})
	if len(got.Remaining) != 1 || got.Remaining[0].Type != 17 {
		t.Errorf("Remaining = %v, want the nested record kept as an unknown attribute", got.Remaining)
	}
}

func TestDecodeDeterministic(t *testing.T) {
	payload := receiptPayload(attr(9999, testhelper.UTF8Value("reserved")))
	first := decodePayload(t, payload, DecodeOptions{ReturnRemaining: true})
	second := decodePayload(t, payload, DecodeOptions{ReturnRemaining: true})
	if !reflect.DeepEqual(first, second) {
		t.Fatal("decoding the same payload twice gave different results")
	}

	fp1, err := Fingerprint(first)
	if err != nil {
		t.Fatalf("Fingerprint() error = %v", err)
	}
	fp2, err := Fingerprint(second)
	if err != nil {
		t.Fatalf("Fingerprint() error = %v", err)
	}
	if fp1 != fp2 {
		t.Errorf("fingerprints differ: %s != %s", fp1, fp2)
	}
	if len(fp1) != 64 {
		t.Errorf("fingerprint %q is not a hex SHA-256", fp1)
	}

	other := decodePayload(t, receiptPayload(), DecodeOptions{ReturnRemaining: true})
	fp3, err := Fingerprint(other)
	if err != nil {
		t.Fatalf("Fingerprint() error = %v", err)
	}
	if fp3 == fp1 {
		t.Error("different receipts share a fingerprint")
	}
}

func TestFingerprintNil(t *testing.T) {
	if _, err := Fingerprint(nil); err == nil {
		t.Error("Fingerprint(nil) error = nil, wantErr true")
	}
}
