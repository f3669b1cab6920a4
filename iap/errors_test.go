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

package iap

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorMessages(t *testing.T) {
	detail := errors.New("detail")
	tests := []struct {
		name    string
		err     error
		wantMsg string
	}{
		{"ParseError", &ParseError{Msg: "bad"}, "iap: parse error: bad"},
		{"ParseError with detail", &ParseError{Msg: "bad", Detail: detail}, "iap: parse error: bad: detail"},
		{"FormatError", &FormatError{Msg: "x5c"}, "iap: invalid format: x5c"},
		{"ChainError", &ChainError{Reason: ReasonNoRoot}, "iap: certificate chain verification failed: no root found"},
		{"ChainError with message", &ChainError{Reason: ReasonNotCA, Msg: "cn"}, "iap: certificate chain verification failed: intermediate is not a CA: cn"},
		{"ChainError unknown reason", &ChainError{Reason: 42}, "iap: certificate chain verification failed: unknown reason 42"},
		{"SignatureError", &SignatureError{}, "iap: signature verification failed"},
		{"SignatureError with detail", &SignatureError{Detail: detail}, "iap: signature verification failed: detail"},
		{"MissingFieldError", &MissingFieldError{Field: "receipt creation date"}, "iap: receipt creation date is missing"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if gotMsg := tt.err.Error(); gotMsg != tt.wantMsg {
				t.Errorf("Error() = %v, want %v", gotMsg, tt.wantMsg)
			}
		})
	}
}

func TestErrorUnwrap(t *testing.T) {
	chainErr := &ChainError{Reason: ReasonDateInvalid}
	err := fmt.Errorf("wrapped: %w", &SignatureError{Detail: chainErr})

	var sigErr *SignatureError
	if !errors.As(err, &sigErr) {
		t.Fatalf("errors.As(SignatureError) = false")
	}
	var gotChain *ChainError
	if !errors.As(err, &gotChain) {
		t.Fatalf("errors.As(ChainError) = false")
	}
	if gotChain.Reason != ReasonDateInvalid {
		t.Errorf("Reason = %v, want %v", gotChain.Reason, ReasonDateInvalid)
	}
}
