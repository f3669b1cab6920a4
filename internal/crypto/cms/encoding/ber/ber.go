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

// Package ber decodes BER-encoded ASN.1 data structures and encodes in DER.
// Note:
//   - DER is a subset of BER.
//   - Indefinite length is resolved by scanning for end-of-contents octets.
//   - Constructed OCTET STRINGs are flattened into a primitive OCTET STRING.
//   - The length of the encoded data must fit the memory space of the int type
//     (4 bytes).
//
// Reference:
// - http://luca.ntop.org/Teaching/Appunti/asn1.html
// - ISO/IEC 8825-1:2021
package ber

import (
	"encoding/asn1"
	"fmt"
)

const (
	// octetStringTag is the universal primitive OCTET STRING identifier.
	octetStringTag = 0x04

	// constructedOctetStringTag is the universal constructed OCTET STRING
	// identifier, which is only valid in BER.
	constructedOctetStringTag = 0x24

	// eocLen is the size of the end-of-contents octets terminating an
	// indefinite length value.
	eocLen = 2

	// maxIndefiniteDepth bounds nesting of indefinite length values.
	maxIndefiniteDepth = 64
)

// ConvertToDER converts BER-encoded ASN.1 data structures to DER-encoded.
func ConvertToDER(ber []byte) ([]byte, error) {
	if len(ber) == 0 {
		return nil, asn1.SyntaxError{Msg: "BER-encoded ASN.1 data structures is empty"}
	}

	nodes, err := decode(ber)
	if err != nil {
		return nil, err
	}

	// the root node carries the total length
	der := make([]byte, 0, nodes[0].encodedLen())
	for _, n := range nodes {
		der = n.appendHeader(der)
		if !n.constructed {
			der = append(der, n.content...)
		}
	}
	return der, nil
}

// decode decodes BER-encoded ASN.1 data structures.
// To get the DER of `r`, encode the values
// in the returned slice in order.
//
// Parameters:
// r - The input byte slice.
//
// Return:
// []*node - The flat slice of ASN.1 nodes,
// contains the nodes from a depth-first traversal.
// error - An error that can occur during the decoding process.
//
// Reference: ISO/IEC 8825-1: 8.1.1.3
func decode(r []byte) ([]*node, error) {
	// prepare the first value
	identifier, contentLen, trailerLen, r, err := decodeMetadata(r)
	if err != nil {
		return nil, err
	}
	if len(r) != contentLen+trailerLen {
		return nil, asn1.SyntaxError{Msg: fmt.Sprintf("decoding BER: length octets value %d does not match with content length %d", contentLen, len(r)-trailerLen)}
	}
	r = r[:contentLen]

	// primitive value
	if isPrimitive(identifier) {
		return []*node{newPrimitive(identifier, r)}, nil
	}
	if isConstructedOctetString(identifier) {
		content, err := flattenOctetString(r, 0)
		if err != nil {
			return nil, err
		}
		return []*node{newPrimitive([]byte{octetStringTag}, content)}, nil
	}

	// constructed value
	root := newConstructed(identifier, r)
	flatValues := []*node{root}

	// start depth-first decoding with stack
	constructedStack := []*node{root}
	for len(constructedStack) > 0 {
		stackLen := len(constructedStack)
		top := constructedStack[stackLen-1]

		// check that the constructed value is fully decoded
		if len(top.rawContent) == 0 {
			// calculate the length of the members
			for _, m := range top.members {
				top.length += m.encodedLen()
			}
			// pop
			constructedStack = constructedStack[:stackLen-1]
			continue
		}

		// decode the next member of the constructed value
		nextNodeIdentifier, nextNodeContentLen, nextTrailerLen, remainingContent, err := decodeMetadata(top.rawContent)
		if err != nil {
			return nil, err
		}
		nextNodeContent := remainingContent[:nextNodeContentLen]
		top.rawContent = remainingContent[nextNodeContentLen+nextTrailerLen:]

		switch {
		case isPrimitive(nextNodeIdentifier):
			primitiveNode := newPrimitive(nextNodeIdentifier, nextNodeContent)
			top.members = append(top.members, primitiveNode)
			flatValues = append(flatValues, primitiveNode)
		case isConstructedOctetString(nextNodeIdentifier):
			content, err := flattenOctetString(nextNodeContent, 0)
			if err != nil {
				return nil, err
			}
			primitiveNode := newPrimitive([]byte{octetStringTag}, content)
			top.members = append(top.members, primitiveNode)
			flatValues = append(flatValues, primitiveNode)
		default:
			constructedNode := newConstructed(nextNodeIdentifier, nextNodeContent)
			top.members = append(top.members, constructedNode)

			// push
			constructedStack = append(constructedStack, constructedNode)
			flatValues = append(flatValues, constructedNode)
		}
	}
	return flatValues, nil
}

// flattenOctetString concatenates the segments of a constructed OCTET STRING.
//
// Reference: ISO/IEC 8825-1: 8.7.3
func flattenOctetString(r []byte, depth int) ([]byte, error) {
	if depth > maxIndefiniteDepth {
		return nil, asn1.StructuralError{Msg: "decoding BER: constructed octet string nested too deeply"}
	}
	var content []byte
	for len(r) > 0 {
		identifier, contentLen, trailerLen, rest, err := decodeMetadata(r)
		if err != nil {
			return nil, err
		}
		segment := rest[:contentLen]
		r = rest[contentLen+trailerLen:]

		switch {
		case len(identifier) == 1 && identifier[0] == octetStringTag:
			content = append(content, segment...)
		case isConstructedOctetString(identifier):
			nested, err := flattenOctetString(segment, depth+1)
			if err != nil {
				return nil, err
			}
			content = append(content, nested...)
		default:
			return nil, asn1.StructuralError{Msg: fmt.Sprintf("decoding BER: unexpected identifier %#x in constructed octet string", identifier)}
		}
	}
	if content == nil {
		content = []byte{}
	}
	return content, nil
}

// decodeMetadata decodes the metadata of a BER-encoded ASN.1 value.
//
// Parameters:
// r - The input byte slice.
//
// Return:
// []byte - The identifier octets.
// int - The content length. For indefinite length values it is the length
// of the content up to, but excluding, the end-of-contents octets.
// int - The number of end-of-contents octets following the content.
// []byte - The subsequent octets after the length octets.
// error - An error that can occur during the decoding process.
//
// Reference: ISO/IEC 8825-1: 8.1.1.3
func decodeMetadata(r []byte) ([]byte, int, int, []byte, error) {
	// structure of an encoding (primitive or constructed)
	// +----------------+----------------+----------------+
	// | identifier     | length         | content        |
	// +----------------+----------------+----------------+
	identifier, r, err := decodeIdentifier(r)
	if err != nil {
		return nil, 0, 0, nil, err
	}

	if r[0] == 0x80 {
		// Reference: ISO/IEC 8825-1: 8.1.3.6
		if isPrimitive(identifier) {
			return nil, 0, 0, nil, asn1.StructuralError{Msg: "decoding BER length octets: indefinite length on a primitive value"}
		}
		contentLen, err := indefiniteContentLength(r[1:], 0)
		if err != nil {
			return nil, 0, 0, nil, err
		}
		return identifier, contentLen, eocLen, r[1:], nil
	}

	contentLen, r, err := decodeLength(r)
	if err != nil {
		return nil, 0, 0, nil, err
	}

	return identifier, contentLen, 0, r, nil
}

// indefiniteContentLength walks the members of an indefinite length value
// and returns the offset of its end-of-contents octets.
//
// Reference: ISO/IEC 8825-1: 8.1.3.6
func indefiniteContentLength(r []byte, depth int) (int, error) {
	if depth > maxIndefiniteDepth {
		return 0, asn1.StructuralError{Msg: "decoding BER: indefinite length values nested too deeply"}
	}
	offset := 0
	for {
		if len(r)-offset < eocLen {
			return 0, asn1.SyntaxError{Msg: "decoding BER: missing end-of-contents octets"}
		}
		if r[offset] == 0x00 && r[offset+1] == 0x00 {
			return offset, nil
		}
		identifier, rest, err := decodeIdentifier(r[offset:])
		if err != nil {
			return 0, err
		}
		if rest[0] == 0x80 {
			if isPrimitive(identifier) {
				return 0, asn1.StructuralError{Msg: "decoding BER length octets: indefinite length on a primitive value"}
			}
			n, err := indefiniteContentLength(rest[1:], depth+1)
			if err != nil {
				return 0, err
			}
			offset += len(identifier) + 1 + n + eocLen
			continue
		}
		contentLen, subsequent, err := decodeLength(rest)
		if err != nil {
			return 0, err
		}
		offset = len(r) - len(subsequent) + contentLen
	}
}

// decodeIdentifier decodes decodeIdentifier octets.
//
// Parameters:
// r - The input byte slice from which the identifier octets are to be decoded.
//
// Returns:
// []byte - The identifier octets decoded from the input byte slice.
// []byte - The remaining part of the input byte slice after the identifier octets.
// error - An error that can occur during the decoding process.
//
// Reference: ISO/IEC 8825-1: 8.1.2
func decodeIdentifier(r []byte) ([]byte, []byte, error) {
	if len(r) < 1 {
		return nil, nil, asn1.SyntaxError{Msg: "decoding BER identifier octets: identifier octets is empty"}
	}
	offset := 0
	b := r[offset]
	offset++

	// high-tag-number form
	// Reference: ISO/IEC 8825-1: 8.1.2.4
	if b&0x1f == 0x1f {
		for offset < len(r) && r[offset]&0x80 == 0x80 {
			offset++
		}
		if offset >= len(r) {
			return nil, nil, asn1.SyntaxError{Msg: "decoding BER identifier octets: high-tag-number form with early EOF"}
		}
		offset++
	}

	if offset >= len(r) {
		return nil, nil, asn1.SyntaxError{Msg: "decoding BER identifier octets: early EOF due to missing length and content octets"}
	}
	return r[:offset], r[offset:], nil
}

// decodeLength decodes definite length octets.
//
// Parameters:
// r - The input byte slice from which the length octets are to be decoded.
//
// Returns:
// int - The length decoded from the input byte slice.
// []byte - The remaining part of the input byte slice after the length octets.
// error - An error that can occur during the decoding process.
//
// Reference: ISO/IEC 8825-1: 8.1.3
func decodeLength(r []byte) (int, []byte, error) {
	if len(r) < 1 {
		return 0, nil, asn1.SyntaxError{Msg: "decoding BER length octets: length octets is empty"}
	}
	offset := 0
	b := r[offset]
	offset++

	if b < 0x80 {
		// short form
		// Reference: ISO/IEC 8825-1: 8.1.3.4
		contentLen := int(b)
		subsequentOctets := r[offset:]
		if contentLen > len(subsequentOctets) {
			return 0, nil, asn1.SyntaxError{Msg: "decoding BER length octets: short form length octets value should be less or equal to the subsequent octets length"}
		}
		return contentLen, subsequentOctets, nil
	} else if b == 0x80 {
		// indefinite length is handled by decodeMetadata
		// Reference: ISO/IEC 8825-1: 8.1.3.6.1
		return 0, nil, asn1.StructuralError{Msg: "decoding BER length octets: unexpected indefinite length"}
	}

	// long form
	// Reference: ISO/IEC 8825-1: 8.1.3.5
	n := int(b & 0x7f)
	if n > 4 {
		// length must fit the memory space of the int type (4 bytes).
		return 0, nil, asn1.StructuralError{Msg: fmt.Sprintf("decoding BER length octets: length of encoded data (%d bytes) cannot exceed 4 bytes", n)}
	}
	if offset+n >= len(r) {
		return 0, nil, asn1.SyntaxError{Msg: "decoding BER length octets: long form length octets with early EOF"}
	}
	var length uint64
	for i := 0; i < n; i++ {
		length = (length << 8) | uint64(r[offset])
		offset++
	}

	// length must fit the memory space of the int32.
	if (length >> 31) > 0 {
		return 0, nil, asn1.StructuralError{Msg: fmt.Sprintf("decoding BER length octets: length %d does not fit the memory space of int32", length)}
	}

	contentLen := int(length)
	subsequentOctets := r[offset:]
	if contentLen > len(subsequentOctets) {
		return 0, nil, asn1.SyntaxError{Msg: "decoding BER length octets: long form length octets value should be less or equal to the subsequent octets length"}
	}
	return contentLen, subsequentOctets, nil
}

// isPrimitive returns true if the first identifier octet is marked
// as primitive.
// Reference: ISO/IEC 8825-1: 8.1.2.5
func isPrimitive(identifier []byte) bool {
	return identifier[0]&0x20 == 0
}

// isConstructedOctetString reports whether the identifier is a universal
// OCTET STRING in constructed form.
func isConstructedOctetString(identifier []byte) bool {
	return len(identifier) == 1 && identifier[0] == constructedOctetStringTag
}
