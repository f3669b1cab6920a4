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

package cms

import "errors"

var (
	// ErrNotSignedData is returned when the envelope content type is not
	// id-signedData.
	ErrNotSignedData = errors.New("cms: content type is not signed-data")

	// ErrAttributeNotFound is returned by Attributes.TryGet.
	ErrAttributeNotFound = errors.New("cms: attribute not found")

	// ErrSignerInfoNotFound is returned when the SignedData has no signer.
	ErrSignerInfoNotFound = VerificationError{Message: "no signer info"}

	// ErrCertificateNotFound is returned when the signer certificate is not
	// embedded in the SignedData.
	ErrCertificateNotFound = VerificationError{Message: "signer certificate not found"}
)

// SyntaxError is used when the container is not valid ASN.1 or does not
// have the SignedData shape.
type SyntaxError struct {
	Message string
	Detail  error
}

func (e SyntaxError) Error() string {
	return format("cms: syntax error", e.Message, e.Detail)
}

// Unwrap returns the detail error.
func (e SyntaxError) Unwrap() error {
	return e.Detail
}

// VerificationError is used when the signature, the signer path or the
// signed attributes do not verify.
type VerificationError struct {
	Message string
	Detail  error
}

func (e VerificationError) Error() string {
	return format("cms: verification failure", e.Message, e.Detail)
}

// Unwrap returns the detail error.
func (e VerificationError) Unwrap() error {
	return e.Detail
}

func format(prefix, msg string, detail error) string {
	if msg != "" {
		prefix += ": " + msg
	}
	if detail != nil {
		prefix += ": " + detail.Error()
	}
	return prefix
}
