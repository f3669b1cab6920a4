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

package x509

import (
	"crypto/x509"
	"crypto/x509/pkix"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/iapkit/iap-core-go/iap"
	"github.com/iapkit/iap-core-go/testhelper"
)

func assertChainReason(t *testing.T, err error, want iap.ChainErrorReason) {
	t.Helper()
	var chainErr *iap.ChainError
	if !errors.As(err, &chainErr) {
		t.Fatalf("expected *iap.ChainError, got %v", err)
	}
	if chainErr.Reason != want {
		t.Fatalf("ChainError reason = %v, want %v (%v)", chainErr.Reason, want, err)
	}
}

// rootTwin self-signs a root with the key of chain's root.
func rootTwin(chain testhelper.Chain, cn string, notBefore, notAfter time.Time) *x509.Certificate {
	template := &x509.Certificate{
		SerialNumber:          big.NewInt(4242),
		Subject:               chain.Root.Cert.Subject,
		NotBefore:             notBefore,
		NotAfter:              notAfter,
		KeyUsage:              x509.KeyUsageCertSign,
		BasicConstraintsValid: true,
		IsCA:                  true,
	}
	if cn != "" {
		template.Subject = pkix.Name{CommonName: cn}
	}
	return testhelper.GetECDSACertTupleWithPK(chain.Root.PrivateKey, template, nil).Cert
}

func TestVerifyChain(t *testing.T) {
	chain := testhelper.GetChain()

	key, err := VerifyChain(chain.Leaf.Cert, chain.Intermediate.Cert, []*x509.Certificate{chain.Root.Cert}, ChainOptions{})
	if err != nil {
		t.Fatalf("VerifyChain() error = %v", err)
	}
	if !chain.Leaf.PrivateKey.PublicKey.Equal(key) {
		t.Error("VerifyChain() did not return the leaf public key")
	}

	now := time.Now()
	if _, err := VerifyChain(chain.Leaf.Cert, chain.Intermediate.Cert, []*x509.Certificate{chain.Root.Cert}, ChainOptions{EffectiveDate: &now}); err != nil {
		t.Errorf("VerifyChain() with effective date error = %v", err)
	}
}

func TestVerifyChainNoRoot(t *testing.T) {
	chain := testhelper.GetChain()

	t.Run("unrelated anchor", func(t *testing.T) {
		other := testhelper.GetECRootCertificate("Unrelated Root")
		_, err := VerifyChain(chain.Leaf.Cert, chain.Intermediate.Cert, []*x509.Certificate{other.Cert}, ChainOptions{})
		assertChainReason(t, err, iap.ReasonNoRoot)
	})

	t.Run("valid signature but different subject", func(t *testing.T) {
		twin := rootTwin(chain, "Renamed Root", chain.Root.Cert.NotBefore, chain.Root.Cert.NotAfter)
		intermediate := chain.Intermediate.Cert
		if err := twin.CheckSignature(intermediate.SignatureAlgorithm, intermediate.RawTBSCertificate, intermediate.Signature); err != nil {
			t.Fatalf("twin root must verify the intermediate signature: %v", err)
		}
		_, err := VerifyChain(chain.Leaf.Cert, chain.Intermediate.Cert, []*x509.Certificate{twin}, ChainOptions{})
		assertChainReason(t, err, iap.ReasonNoRoot)
	})

	t.Run("empty anchors", func(t *testing.T) {
		_, err := VerifyChain(chain.Leaf.Cert, chain.Intermediate.Cert, nil, ChainOptions{})
		assertChainReason(t, err, iap.ReasonNoRoot)
	})

	t.Run("missing certificate", func(t *testing.T) {
		_, err := VerifyChain(nil, chain.Intermediate.Cert, []*x509.Certificate{chain.Root.Cert}, ChainOptions{})
		var formatErr *iap.FormatError
		if !errors.As(err, &formatErr) {
			t.Errorf("VerifyChain() error = %v, want FormatError", err)
		}
	})
}

func TestVerifyChainLeafNotSigned(t *testing.T) {
	chain := testhelper.GetChain()
	stranger := testhelper.NewChain(testhelper.ChainOptions{})

	// the stranger leaf names the same issuer but carries another signature
	_, err := VerifyChain(stranger.Leaf.Cert, chain.Intermediate.Cert, []*x509.Certificate{chain.Root.Cert}, ChainOptions{})
	assertChainReason(t, err, iap.ReasonLeafNotSigned)
}

func TestVerifyChainCAKeyUsage(t *testing.T) {
	chain := testhelper.NewChain(testhelper.ChainOptions{IntermediateKeyUsage: x509.KeyUsageCRLSign})
	anchors := []*x509.Certificate{chain.Root.Cert}

	_, err := VerifyChain(chain.Leaf.Cert, chain.Intermediate.Cert, anchors, ChainOptions{})
	assertChainReason(t, err, iap.ReasonNotCA)

	if _, err := VerifyChain(chain.Leaf.Cert, chain.Intermediate.Cert, anchors, ChainOptions{CAKeyUsage: x509.KeyUsageCRLSign}); err != nil {
		t.Errorf("VerifyChain() with crl sign policy error = %v", err)
	}
}

func TestVerifyChainMissingExtension(t *testing.T) {
	tests := []struct {
		name string
		opts testhelper.ChainOptions
	}{
		{"leaf", testhelper.ChainOptions{OmitLeafExtension: true}},
		{"intermediate", testhelper.ChainOptions{OmitIntermediateExtension: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chain := testhelper.NewChain(tt.opts)
			_, err := VerifyChain(chain.Leaf.Cert, chain.Intermediate.Cert, []*x509.Certificate{chain.Root.Cert}, ChainOptions{})
			assertChainReason(t, err, iap.ReasonMissingExtension)
		})
	}
}

func TestVerifyChainEffectiveDate(t *testing.T) {
	notBefore := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	notAfter := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	chain := testhelper.NewChain(testhelper.ChainOptions{NotBefore: notBefore, NotAfter: notAfter})
	anchors := []*x509.Certificate{chain.Root.Cert}

	tests := []struct {
		name    string
		date    time.Time
		wantErr bool
	}{
		{"inside", notBefore.Add(24 * time.Hour), false},
		{"lower bound with skew", notBefore.Add(-MaxClockSkew), false},
		{"1ms before lower bound", notBefore.Add(-MaxClockSkew - time.Millisecond), true},
		{"upper bound with skew", notAfter.Add(MaxClockSkew), false},
		{"1ms after upper bound", notAfter.Add(MaxClockSkew + time.Millisecond), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			date := tt.date
			_, err := VerifyChain(chain.Leaf.Cert, chain.Intermediate.Cert, anchors, ChainOptions{EffectiveDate: &date})
			if tt.wantErr {
				assertChainReason(t, err, iap.ReasonDateInvalid)
			} else if err != nil {
				t.Errorf("VerifyChain() error = %v", err)
			}
		})
	}

	t.Run("no effective date skips validity", func(t *testing.T) {
		if _, err := VerifyChain(chain.Leaf.Cert, chain.Intermediate.Cert, anchors, ChainOptions{}); err != nil {
			t.Errorf("VerifyChain() error = %v", err)
		}
	})
}

func TestVerifyChainFirstMatchingAnchorWins(t *testing.T) {
	chain := testhelper.GetChain()
	expiredTwin := rootTwin(chain, "", time.Now().Add(-48*time.Hour), time.Now().Add(-24*time.Hour))
	now := time.Now()
	opts := ChainOptions{EffectiveDate: &now}

	if _, err := VerifyChain(chain.Leaf.Cert, chain.Intermediate.Cert, []*x509.Certificate{chain.Root.Cert, expiredTwin}, opts); err != nil {
		t.Errorf("VerifyChain() error = %v", err)
	}

	_, err := VerifyChain(chain.Leaf.Cert, chain.Intermediate.Cert, []*x509.Certificate{expiredTwin, chain.Root.Cert}, opts)
	assertChainReason(t, err, iap.ReasonDateInvalid)
}
