// Copyright 2020-2025 Buf Technologies, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package token

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassString(t *testing.T) {
	t.Parallel()

	names := make(map[string]Class)
	for _, c := range Classes() {
		name := c.String()
		assert.NotContains(t, name, "token.Class", "class %d has no name", c)
		if prev, ok := names[name]; ok {
			t.Errorf("classes %d and %d are both named %s", prev, c, name)
		}
		names[name] = c
	}
	assert.Len(t, Classes(), 15)
	assert.Equal(t, "token.Class(42)", Class(42).String())
}

func TestLiteral(t *testing.T) {
	t.Parallel()

	var literal []Class
	for _, c := range Classes() {
		if c.Literal() {
			literal = append(literal, c)
		}
	}
	assert.Equal(t, []Class{Connector, Keyword}, literal)
}

func TestToken(t *testing.T) {
	t.Parallel()

	tok := Token{Class: Note, Text: "Eb3", Offset: 7}
	assert.True(t, tok.Valid())
	assert.Equal(t, 10, tok.End())
	assert.Equal(t, `NOTE "Eb3"`, tok.String())

	tok.Failed = []int{2}
	assert.False(t, tok.Valid())

	eof := Token{Class: EOF, Offset: 10}
	assert.Equal(t, 10, eof.End())
	assert.Equal(t, "end of input", eof.String())
}
