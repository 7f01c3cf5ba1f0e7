// Copyright (c) 2024 The Falcon Contributors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.
package ir

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const addFixture = `{
  "functions": [{
    "link_name": "add2",
    "calling_convention": "sysv-x64",
    "parameter_count": 2,
    "types": ["s32", "s32", "s32"],
    "constants": [],
    "instructions": [
      {"op": "add", "dest": {"reg": 2}, "lhs": {"reg": 0}, "rhs": {"reg": 1}},
      {"op": "return", "has_value": true, "value": {"reg": 2}}
    ]
  }],
  "exported": ["add2"]
}`

func TestDecodeLinkageBasic(t *testing.T) {
	linkage, err := DecodeLinkage(strings.NewReader(addFixture))
	require.NoError(t, err)
	require.Len(t, linkage.Functions, 1)

	fn := linkage.Functions[0]
	assert.Equal(t, "add2", fn.LinkName)
	assert.Equal(t, CallConvSysV, fn.CallConv)
	assert.Equal(t, 2, fn.ParameterCount)
	assert.Equal(t, []Primitive{TypeS32, TypeS32, TypeS32}, fn.Types)
	require.Len(t, fn.Instructions, 2)
	assert.Equal(t, OpAdd, fn.Instructions[0].Op)
	assert.Equal(t, Reg(2), fn.Instructions[0].Dest)
	assert.True(t, fn.Instructions[1].HasValue)
	assert.Equal(t, []string{"add2"}, linkage.Exported)
}

func TestDecodeLinkageRejectsUnknownOpcode(t *testing.T) {
	const bad = `{"functions":[{"link_name":"f","types":[],"instructions":[{"op":"frobnicate"}]}]}`
	_, err := DecodeLinkage(strings.NewReader(bad))
	assert.Error(t, err)
}

func TestDecodeLinkageRejectsAmbiguousOperand(t *testing.T) {
	const bad = `{"functions":[{"link_name":"f","types":["s32"],
		"instructions":[{"op":"return","has_value":true,"value":{"reg":0,"const":0}}]}]}`
	_, err := DecodeLinkage(strings.NewReader(bad))
	assert.Error(t, err)
}

func TestDecodeLinkageConstants(t *testing.T) {
	const fixture = `{"functions":[{"link_name":"f","types":["s32"],
		"constants":[{"kind":"str","type":"pointer","str":"hi\n"},{"kind":"sym","sym":"puts"}],
		"instructions":[]}]}`
	linkage, err := DecodeLinkage(strings.NewReader(fixture))
	require.NoError(t, err)
	fn := linkage.Functions[0]
	require.Len(t, fn.Constants, 2)
	assert.Equal(t, ConstStr, fn.Constants[0].Kind)
	assert.Equal(t, []byte("hi\n"), fn.Constants[0].StrVal)
	assert.Equal(t, ConstSym, fn.Constants[1].Kind)
	assert.Equal(t, "puts", fn.Constants[1].SymVal)
}
