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

import (
	"bytes"
	"testing"
)

func TestAppendLength(t *testing.T) {
	tests := []struct {
		length int
		want   []byte
	}{
		{0, []byte{0x00}},
		{127, []byte{0x7f}},
		{128, []byte{0x81, 0x80}},
		{255, []byte{0x81, 0xff}},
		{256, []byte{0x82, 0x01, 0x00}},
		{300, []byte{0x82, 0x01, 0x2c}},
		{5050, []byte{0x82, 0x13, 0xba}},
		{1 << 24, []byte{0x84, 0x01, 0x00, 0x00, 0x00}},
	}
	for _, tt := range tests {
		got := appendLength(nil, tt.length)
		if !bytes.Equal(got, tt.want) {
			t.Errorf("appendLength(%d) = %x, want %x", tt.length, got, tt.want)
		}
		if size := lengthSize(tt.length); size != len(tt.want) {
			t.Errorf("lengthSize(%d) = %d, want %d", tt.length, size, len(tt.want))
		}
	}
}

func TestNodeEncodedLen(t *testing.T) {
	leaf := newPrimitive([]byte{0x04}, bytes.Repeat([]byte{0xaa}, 200))
	if got := leaf.encodedLen(); got != 1+2+200 {
		t.Errorf("primitive encodedLen() = %d, want 203", got)
	}

	set := newConstructed([]byte{0x31}, nil)
	set.members = []*node{leaf}
	set.length = leaf.encodedLen()
	if got := set.encodedLen(); got != 1+3+203 {
		t.Errorf("constructed encodedLen() = %d, want 207", got)
	}
	if got := set.appendHeader(nil); !bytes.Equal(got, []byte{0x31, 0x81, 0xcb}) {
		t.Errorf("appendHeader() = %x", got)
	}
}
