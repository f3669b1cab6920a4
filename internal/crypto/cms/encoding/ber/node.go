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

package ber

// node is a decoded ASN.1 value. Primitive nodes carry their content
// octets; constructed nodes carry members and the DER length of them.
type node struct {
	identifier  []byte
	constructed bool
	content     []byte
	members     []*node
	length      int

	// rawContent is the undecoded BER content of a constructed node.
	rawContent []byte
}

func newPrimitive(identifier, content []byte) *node {
	return &node{identifier: identifier, content: content}
}

func newConstructed(identifier, rawContent []byte) *node {
	return &node{identifier: identifier, constructed: true, rawContent: rawContent}
}

// contentLen returns the length of the DER content octets.
func (n *node) contentLen() int {
	if n.constructed {
		return n.length
	}
	return len(n.content)
}

// encodedLen returns the length of the node in DER.
func (n *node) encodedLen() int {
	l := n.contentLen()
	return len(n.identifier) + lengthSize(l) + l
}

// appendHeader appends the identifier and DER length octets of the node.
// Primitive content follows the header directly; members of a constructed
// node follow in depth-first order.
func (n *node) appendHeader(dst []byte) []byte {
	dst = append(dst, n.identifier...)
	return appendLength(dst, n.contentLen())
}

// appendLength appends length in the minimum number of octets.
// Reference: ISO/IEC 8825-1: 10.1
func appendLength(dst []byte, length int) []byte {
	if length < 0x80 {
		return append(dst, byte(length))
	}
	size := lengthSize(length) - 1
	dst = append(dst, 0x80|byte(size))
	for i := size - 1; i >= 0; i-- {
		dst = append(dst, byte(length>>(8*i)))
	}
	return dst
}

// lengthSize returns the number of length octets for length in DER.
func lengthSize(length int) int {
	size := 1
	if length < 0x80 {
		return size
	}
	for ; length > 0; length >>= 8 {
		size++
	}
	return size
}
