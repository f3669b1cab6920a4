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
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/iapkit/iap-core-go/internal/crypto/hashutil"
)

var fingerprintEncMode cbor.EncMode

func init() {
	var err error
	fingerprintEncMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
}

// Fingerprint returns the hex encoded SHA-256 of the core deterministic CBOR
// encoding of r. Decoding the same receipt twice yields the same
// fingerprint.
func Fingerprint(r *Receipt) (string, error) {
	if r == nil {
		return "", fmt.Errorf("receipt is nil")
	}
	encoded, err := fingerprintEncMode.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("failed to encode receipt: %w", err)
	}
	return hashutil.Fingerprint(encoded)
}
