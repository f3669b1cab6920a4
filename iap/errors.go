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

import "fmt"

// ParseError is used when the receipt, certificate or token framing is
// malformed.
type ParseError struct {
	Msg    string
	Detail error
}

// Error returns the formatted error message.
func (e *ParseError) Error() string {
	msg := "iap: parse error"
	if e.Msg != "" {
		msg += ": " + e.Msg
	}
	if e.Detail != nil {
		msg += ": " + e.Detail.Error()
	}
	return msg
}

// Unwrap returns the detail error.
func (e *ParseError) Unwrap() error {
	return e.Detail
}

// FormatError is used when well-formed input has the wrong structure, such
// as a certificate chain of unexpected length.
type FormatError struct {
	Msg string
}

// Error returns the formatted error message.
func (e *FormatError) Error() string {
	return "iap: invalid format: " + e.Msg
}

// ChainErrorReason identifies the trust policy that a certificate chain
// violated.
type ChainErrorReason int

const (
	// ReasonNoRoot means no trust anchor issued the intermediate.
	ReasonNoRoot ChainErrorReason = 1 + iota

	// ReasonLeafNotSigned means the leaf was not issued by the intermediate.
	ReasonLeafNotSigned

	// ReasonNotCA means the intermediate is not allowed to sign
	// certificates.
	ReasonNotCA

	// ReasonMissingExtension means a required extension is absent.
	ReasonMissingExtension

	// ReasonDateInvalid means a certificate is not valid at the effective
	// date.
	ReasonDateInvalid
)

// String returns the reason in the form used by error messages.
func (r ChainErrorReason) String() string {
	switch r {
	case ReasonNoRoot:
		return "no root found"
	case ReasonLeafNotSigned:
		return "leaf not signed by intermediate"
	case ReasonNotCA:
		return "intermediate is not a CA"
	case ReasonMissingExtension:
		return "missing required extension"
	case ReasonDateInvalid:
		return "not valid at effective date"
	}
	return fmt.Sprintf("unknown reason %d", int(r))
}

// ChainError is used when a certificate chain violates the trust policy.
type ChainError struct {
	Reason ChainErrorReason
	Msg    string
	Detail error
}

// Error returns the formatted error message.
func (e *ChainError) Error() string {
	msg := "iap: certificate chain verification failed: " + e.Reason.String()
	if e.Msg != "" {
		msg += ": " + e.Msg
	}
	if e.Detail != nil {
		msg += ": " + e.Detail.Error()
	}
	return msg
}

// Unwrap returns the detail error.
func (e *ChainError) Unwrap() error {
	return e.Detail
}

// SignatureError is used when the signature over the purchase evidence does
// not verify. Detail carries the underlying cause, which may be a
// *ChainError.
type SignatureError struct {
	Detail error
}

// Error returns the formatted error message.
func (e *SignatureError) Error() string {
	if e.Detail != nil {
		return "iap: signature verification failed: " + e.Detail.Error()
	}
	return "iap: signature verification failed"
}

// Unwrap returns the detail error.
func (e *SignatureError) Unwrap() error {
	return e.Detail
}

// MissingFieldError is used when a field required by the verification
// policy is absent.
type MissingFieldError struct {
	Field string
}

// Error returns the formatted error message.
func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("iap: %s is missing", e.Field)
}
