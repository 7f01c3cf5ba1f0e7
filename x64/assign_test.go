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
package x64

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"x64lower/ir"
)

func TestAssignParametersUseABIRegisters(t *testing.T) {
	fn := &ir.Function{
		ParameterCount: 2,
		Types:          []ir.Primitive{ir.TypeS32, ir.TypeS32, ir.TypeS32},
	}
	layout, err := Assign(fn, ir.CallConvSysV)
	require.NoError(t, err)

	assert.Equal(t, Register, layout.Regs[0].Storage)
	assert.Equal(t, RDI, layout.Regs[0].Index)
	assert.Equal(t, Register, layout.Regs[1].Storage)
	assert.Equal(t, RSI, layout.Regs[1].Index)
	// v2, the local, takes the lowest free GP register: RCX (RAX/RBX
	// reserved, RDI/RSI occupied by the parameters).
	assert.Equal(t, Register, layout.Regs[2].Storage)
	assert.Equal(t, RCX, layout.Regs[2].Index)
}

func TestAssignSpillsOnRegisterExhaustion(t *testing.T) {
	// 16 physical GP registers; with RSP/RBP/RAX/RBX reserved, 12 remain
	// for the first-fit pool. A 13th non-parameter virtual must spill.
	types := make([]ir.Primitive, 13)
	for i := range types {
		types[i] = ir.TypeS64
	}
	fn := &ir.Function{Types: types}
	layout, err := Assign(fn, ir.CallConvSysV)
	require.NoError(t, err)

	for i := 0; i < 12; i++ {
		assert.Equalf(t, Register, layout.Regs[i].Storage, "virtual %d", i)
	}
	assert.Equal(t, LocalStack, layout.Regs[12].Storage)
	// The running offset starts at 16: rbp-0 is the saved caller rbp.
	assert.Equal(t, 16, layout.Regs[12].Index)
	assert.Equal(t, 16, layout.FrameSize)
}

func TestAssignUnusedReservedRegisterIsNotCalleeSaved(t *testing.T) {
	// Matches end-to-end scenario S1: a function that never drives RBX
	// into Occupied must not push/pop it, even though RBX is
	// permanently reserved and RBX is callee-saved on both ABIs.
	fn := &ir.Function{
		ParameterCount: 2,
		Types:          []ir.Primitive{ir.TypeS32, ir.TypeS32, ir.TypeS32},
	}
	layout, err := Assign(fn, ir.CallConvSysV)
	require.NoError(t, err)
	assert.Equal(t, RegSet(0), layout.CalleeSaved)
}

func TestAssignStackScratchPathSavesRBX(t *testing.T) {
	// 14 locals exhaust the 12-register first-fit pool, so v12 and v13
	// both spill to the stack; a load between them routes through RBX
	// as emit.go's second scratch register, which must be preserved.
	types := make([]ir.Primitive, 14)
	for i := range types {
		types[i] = ir.TypeS64
	}
	fn := &ir.Function{
		Types: types,
		Instructions: []ir.Instruction{
			ir.Two(ir.OpLoad, ir.Reg(13), ir.Reg(12)),
		},
	}
	layout, err := Assign(fn, ir.CallConvSysV)
	require.NoError(t, err)
	assert.True(t, layout.CalleeSaved.Has(RBX))
}

func TestAssignZeroVirtualFrame(t *testing.T) {
	fn := &ir.Function{}
	layout, err := Assign(fn, ir.CallConvSysV)
	require.NoError(t, err)
	assert.Equal(t, 0, layout.FrameSize)
}

func TestAssignWin64ReservesShadowStore(t *testing.T) {
	fn := &ir.Function{}
	layout, err := Assign(fn, ir.CallConvWin64)
	require.NoError(t, err)
	assert.Equal(t, 16, layout.FrameSize)
}

func TestAssignRejectsUnresolvedCallConv(t *testing.T) {
	fn := &ir.Function{}
	_, err := Assign(fn, ir.CallConvDefault)
	assert.Error(t, err)
}

func TestAbiFixesWin64NonVolatileMask(t *testing.T) {
	assert.True(t, win64ABI.nonVolatile.Has(RDI))
	assert.True(t, win64ABI.nonVolatile.Has(RSI))
	assert.True(t, win64ABI.nonVolatile.Has(RBX))
}
