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
	"fmt"

	"x64lower/ir"
)

// operand renders an IR operand (virtual register or constant) to its
// NASM text.
func (c *funcCtx) operand(op ir.Operand) string {
	if op.IsConstant() {
		return c.constOperand(op.Index())
	}
	return c.regOperand(op.Index())
}

// operandSized renders op at an explicit width class k rather than its
// own declared kind: reg's own id under a different name-table entry for
// Register storage, or a differently-sized memory read at the same
// offset for stack storage. Used by lowerCast to reinterpret a virtual's
// storage at the narrower of its source/destination width.
func (c *funcCtx) operandSized(op ir.Operand, k Kind) string {
	if op.IsConstant() {
		return c.constOperand(op.Index())
	}
	r := c.layout.Regs[op.Index()]
	switch r.Storage {
	case Register:
		return k.name(r.Index)
	case LocalStack:
		return fmt.Sprintf("%s [rbp-%d]", k.sizeStr(), r.Index)
	case ParameterStack:
		return fmt.Sprintf("%s [rbp+%d]", k.sizeStr(), r.Index)
	default:
		panic("unknown storage class")
	}
}

func (c *funcCtx) regOperand(i int) string {
	r := c.layout.Regs[i]
	switch r.Storage {
	case Register:
		return r.Kind.name(r.Index)
	case LocalStack:
		return fmt.Sprintf("%s [rbp-%d]", r.Kind.sizeStr(), r.Index)
	case ParameterStack:
		return fmt.Sprintf("%s [rbp+%d]", r.Kind.sizeStr(), r.Index)
	default:
		panic("unknown storage class")
	}
}

// constOperand renders a constant reference: a label into .rodata for
// strings, the symbol name verbatim for externs, the literal value
// inline for integers.
func (c *funcCtx) constOperand(i int) string {
	k := c.fn.Constants[i]
	switch k.Kind {
	case ir.ConstStr:
		return fmt.Sprintf("CONST_%d_%d", c.fnIx, i)
	case ir.ConstSym:
		return k.SymVal
	default:
		return fmt.Sprintf("%d", k.IntVal)
	}
}

// kindOf derives the width class of an operand: its storage descriptor
// for a virtual register, its constant's declared type otherwise.
func (c *funcCtx) kindOf(op ir.Operand) Kind {
	if op.IsConstant() {
		return kindOfType(c.fn.Constants[op.Index()].Type)
	}
	return c.layout.Regs[op.Index()].Kind
}

// isStack reports whether operand op resolves to a stack-resident
// location. Constants are never stack-resident.
func (c *funcCtx) isStack(op ir.Operand) bool {
	if op.IsConstant() {
		return false
	}
	return c.layout.Regs[op.Index()].isStack()
}

// binop emits `op dest, src`, routing through RAX when both operands
// are stack-resident since x86 forbids memory-memory operands for mov,
// add, sub, and, or, xor, shl, shr and cmp.
func (c *funcCtx) binop(mnem string, dest, src ir.Operand) {
	if c.isStack(dest) && c.isStack(src) {
		tmp := c.kindOf(dest).name(RAX)
		c.w.Ins2("mov", tmp, c.operand(src))
		c.w.Ins2(mnem, c.operand(dest), tmp)
		return
	}
	c.w.Ins2(mnem, c.operand(dest), c.operand(src))
}

// moveVirt is binop("mov", ...) with the self-move elided.
func (c *funcCtx) moveVirt(dest, src ir.Operand) {
	if dest == src {
		return
	}
	c.binop("mov", dest, src)
}

// threeop lowers `dest = lhs op rhs` as `mov dest, lhs` (elided when
// dest == lhs) followed by `op dest, rhs`.
func (c *funcCtx) threeop(mnem string, dest, lhs, rhs ir.Operand) {
	c.moveVirt(dest, lhs)
	c.binop(mnem, dest, rhs)
}

// threeopNoDestStack is threeop for opcodes (imul) whose destination
// must be a register: when dest is stack-resident, the operation runs
// in RAX sized to dest's kind and the result is written back.
func (c *funcCtx) threeopNoDestStack(mnem string, dest, lhs, rhs ir.Operand) {
	if !c.isStack(dest) {
		c.threeop(mnem, dest, lhs, rhs)
		return
	}
	tmp := c.kindOf(dest).name(RAX)
	c.w.Ins2("mov", tmp, c.operand(lhs))
	c.w.Ins2(mnem, tmp, c.operand(rhs))
	c.w.Ins2("mov", c.operand(dest), tmp)
}

// load lowers `dest = [src]`.
func (c *funcCtx) load(dest, src ir.Operand) {
	destStack, srcStack := c.isStack(dest), c.isStack(src)
	destK := c.kindOf(dest)

	switch {
	case !destStack && !srcStack:
		c.w.Ins2("mov", c.operand(dest), "["+c.operand(src)+"]")
	case srcStack && !destStack:
		c.w.Ins2("mov", reg64[RAX], c.operand(src))
		c.w.Ins2("mov", c.operand(dest), "["+reg64[RAX]+"]")
	case !srcStack && destStack:
		c.w.Ins2("mov", destK.name(RAX), "["+c.operand(src)+"]")
		c.w.Ins2("mov", c.operand(dest), destK.name(RAX))
	default:
		// Both src and dest are stack-resident: RAX carries the address,
		// RBX carries the loaded value (see DESIGN.md: the source reuses
		// RAX for both, here the second temp is explicitly RBX).
		c.w.Ins2("mov", reg64[RAX], c.operand(src))
		c.w.Ins2("mov", destK.name(RBX), "["+reg64[RAX]+"]")
		c.w.Ins2("mov", c.operand(dest), destK.name(RBX))
	}
}

// store lowers `[dest] = src`. The size prefix for the memory operand
// is taken from src's kind.
func (c *funcCtx) store(dest, src ir.Operand) {
	destStack, srcStack := c.isStack(dest), c.isStack(src)
	srcK := c.kindOf(src)
	mem := func(addr string) string { return srcK.sizeStr() + " [" + addr + "]" }

	switch {
	case !destStack && !srcStack:
		c.w.Ins2("mov", mem(c.operand(dest)), c.operand(src))
	case destStack && !srcStack:
		c.w.Ins2("mov", reg64[RAX], c.operand(dest))
		c.w.Ins2("mov", mem(reg64[RAX]), c.operand(src))
	case !destStack && srcStack:
		c.w.Ins2("mov", srcK.name(RAX), c.operand(src))
		c.w.Ins2("mov", mem(c.operand(dest)), srcK.name(RAX))
	default:
		c.w.Ins2("mov", reg64[RAX], c.operand(dest))
		c.w.Ins2("mov", srcK.name(RBX), c.operand(src))
		c.w.Ins2("mov", mem(reg64[RAX]), srcK.name(RBX))
	}
}

// movToPhys moves src into the fixed physical register regID, sized to
// k. Idempotent: elided when src already lives in that register.
func (c *funcCtx) movToPhys(k Kind, regID int, src ir.Operand) {
	if !src.IsConstant() {
		if r := c.layout.Regs[src.Index()]; r.Storage == Register && r.Index == regID {
			return
		}
	}
	c.w.Ins2("mov", k.name(regID), c.operand(src))
}

// movFromPhys moves the fixed physical register regID into dest, sized
// to k. Idempotent: elided when dest already lives in that register.
func (c *funcCtx) movFromPhys(dest ir.Operand, k Kind, regID int) {
	if !dest.IsConstant() {
		if r := c.layout.Regs[dest.Index()]; r.Storage == Register && r.Index == regID {
			return
		}
	}
	c.w.Ins2("mov", c.operand(dest), k.name(regID))
}

// pushPhys/popPhys emit push/pop of a physical register.
func (c *funcCtx) pushPhys(regID int) { c.w.Ins1("push", reg64[regID]) }
func (c *funcCtx) popPhys(regID int)  { c.w.Ins1("pop", reg64[regID]) }

// movSave saves regID's current value on the stack, then moves src into
// it; used at call sites to preserve a caller-saved register that may
// be live across the call while also loading the new argument.
func (c *funcCtx) movSave(k Kind, regID int, src ir.Operand) {
	c.pushPhys(regID)
	c.w.Ins2("mov", k.name(regID), c.operand(src))
}
