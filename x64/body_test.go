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
	"x64lower/util"
)

func TestPredicateSwapTable(t *testing.T) {
	cases := map[ir.Op]ir.Op{
		ir.OpLt:  ir.OpGt,
		ir.OpGt:  ir.OpLt,
		ir.OpLte: ir.OpGte,
		ir.OpGte: ir.OpLte,
		ir.OpEq:  ir.OpEq,
		ir.OpNeq: ir.OpNeq,
	}
	for in, want := range cases {
		assert.Equal(t, want, invertPredicate(in))
	}
}

func TestCondJumpTable(t *testing.T) {
	assert.Equal(t, "je", condJump(ir.OpEq, false))
	assert.Equal(t, "jne", condJump(ir.OpEq, true))
	assert.Equal(t, "jl", condJump(ir.OpLt, false))
	assert.Equal(t, "jge", condJump(ir.OpLt, true))
	assert.Equal(t, "jg", condJump(ir.OpGt, false))
	assert.Equal(t, "jle", condJump(ir.OpGt, true))
	assert.Equal(t, "jle", condJump(ir.OpLte, false))
	assert.Equal(t, "jg", condJump(ir.OpLte, true))
	assert.Equal(t, "jge", condJump(ir.OpGte, false))
	assert.Equal(t, "jl", condJump(ir.OpGte, true))
}

// When a comparison is not immediately followed by a matching branch,
// the boolean result must be materialized with xor+setcc instead.
func TestCompareWithoutFollowingBranchMaterializesBoolean(t *testing.T) {
	fn := &ir.Function{
		LinkName:       "materialize",
		ParameterCount: 2,
		Types:          []ir.Primitive{ir.TypeS32, ir.TypeS32, ir.TypeS32},
		Instructions: []ir.Instruction{
			ir.Three(ir.OpEq, ir.Reg(2), ir.Reg(0), ir.Reg(1)),
			ir.Return(ir.Reg(2), true),
		},
	}
	out := lowerOne(t, fn, TargetSysV)
	assert.Contains(t, out, "cmp edi, esi")
	assert.Contains(t, out, "xor ecx, ecx")
	assert.Contains(t, out, "sete cl")
}

func TestCastNarrowingAndWidening(t *testing.T) {
	fn := &ir.Function{
		LinkName:       "casts",
		ParameterCount: 1,
		Types:          []ir.Primitive{ir.TypeS64, ir.TypeS32},
		Instructions: []ir.Instruction{
			ir.Two(ir.OpCast, ir.Reg(1), ir.Reg(0)),
			ir.Return(ir.Reg(1), true),
		},
	}
	out := lowerOne(t, fn, TargetSysV)
	// v0 lives in RDI (register), so the cast routes through RDI itself
	// rather than RAX.
	assert.Contains(t, out, "mov edi, edi")

	widen := &ir.Function{
		LinkName:       "widen",
		ParameterCount: 1,
		Types:          []ir.Primitive{ir.TypeS32, ir.TypeS64},
		Instructions: []ir.Instruction{
			ir.Two(ir.OpCast, ir.Reg(1), ir.Reg(0)),
			ir.Return(ir.Reg(1), true),
		},
	}
	out = lowerOne(t, widen, TargetSysV)
	// Widening: the 32-bit read zero-extends RDI, then the full 64-bit
	// register is written out to v1 (RCX).
	assert.Contains(t, out, "mov edi, edi")
	assert.Contains(t, out, "mov rcx, rdi")
}

func TestCastRoutesThroughRAXWhenSrcIsStack(t *testing.T) {
	// Exhaust GP registers so the cast source spills to the stack.
	types := make([]ir.Primitive, 13)
	for i := range types {
		types[i] = ir.TypeS64
	}
	types = append(types, ir.TypeS32)
	fn := &ir.Function{
		LinkName: "castSpill",
		Types:    types,
		Instructions: []ir.Instruction{
			ir.Two(ir.OpCast, ir.Reg(13), ir.Reg(12)),
			ir.Return(ir.Reg(13), true),
		},
	}
	out := lowerOne(t, fn, TargetSysV)
	// Narrowing cast: the spilled s64 source (first spill, so rbp-16,
	// not rbp-0 which is the saved caller rbp) is read at the narrower
	// (destination) width so the mov's operand sizes agree.
	assert.Contains(t, out, "mov eax, dword [rbp-16]")
}

func TestCmpNeverHasAnImmediateFirstOperand(t *testing.T) {
	fn := &ir.Function{
		LinkName:       "cmpConst",
		ParameterCount: 1,
		Types:          []ir.Primitive{ir.TypeS32, ir.TypeBool},
		Constants:      []ir.Constant{{Kind: ir.ConstInt, Type: ir.TypeS32, IntVal: 7}},
		Instructions: []ir.Instruction{
			ir.Three(ir.OpEq, ir.Reg(1), ir.Const(0), ir.Reg(0)),
			ir.Return(ir.Reg(0), false),
		},
	}
	out := lowerOne(t, fn, TargetSysV)
	assert.Contains(t, out, "cmp edi, 7")
	assert.NotContains(t, out, "cmp 7,")
}

func TestWin64CallPushesOverflowArgsAndAdjustsStack(t *testing.T) {
	fn := &ir.Function{
		LinkName:  "win64call",
		Types:     []ir.Primitive{ir.TypeS64, ir.TypeS64, ir.TypeS64, ir.TypeS64, ir.TypeS64, ir.TypeS64},
		Constants: []ir.Constant{{Kind: ir.ConstSym, SymVal: "f"}},
		Instructions: []ir.Instruction{
			ir.CallVoid(false, ir.Const(0), ir.CallConvDefault,
				ir.Reg(0), ir.Reg(1), ir.Reg(2), ir.Reg(3), ir.Reg(4), ir.Reg(5)),
			ir.Return(ir.Operand(0), false),
		},
	}
	out := lowerOne(t, fn, TargetWindows)
	assert.Contains(t, out, "push")
	assert.Contains(t, out, "add rsp, 16")
}

func TestSysvCallWithTooManyArgsIsUnimplemented(t *testing.T) {
	args := make([]ir.Operand, 7)
	types := make([]ir.Primitive, 7)
	for i := range args {
		args[i] = ir.Reg(i)
		types[i] = ir.TypeS64
	}
	fn := &ir.Function{
		LinkName:  "tooMany",
		Types:     types,
		Constants: []ir.Constant{{Kind: ir.ConstSym, SymVal: "f"}},
		Instructions: []ir.Instruction{
			ir.CallVoid(false, ir.Const(0), ir.CallConvSysV, args...),
		},
	}
	linkage := &ir.Linkage{Functions: []*ir.Function{fn}}
	var w util.Writer
	err := LowerToX64(linkage, TargetSysV, &w)
	require.Error(t, err)
	var shapeErr *UnimplementedCallShapeError
	assert.ErrorAs(t, err, &shapeErr)
}

func TestSyscallLoadsCalleeIntoRAX(t *testing.T) {
	fn := &ir.Function{
		LinkName:  "doSyscall",
		Types:     []ir.Primitive{ir.TypeS64},
		Constants: []ir.Constant{{Kind: ir.ConstInt, Type: ir.TypeS64, IntVal: 60}},
		Instructions: []ir.Instruction{
			ir.CallVoid(true, ir.Const(0), ir.CallConvSysV),
			ir.Return(ir.Reg(0), false),
		},
	}
	out := lowerOne(t, fn, TargetSysV)
	assert.Contains(t, out, "mov rax, 60")
	assert.Contains(t, out, "syscall")
}
