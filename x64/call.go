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

// lowerCall implements §4.4.6. It resolves the effective calling
// convention, saves caller-saved state, loads arguments, emits the
// call or syscall, adjusts the stack for win64's pushed overflow
// arguments, restores saved state, and moves the result out of RAX.
func (c *funcCtx) lowerCall(in ir.Instruction) error {
	cc := in.CallConv
	switch cc {
	case ir.CallConvDefault:
		cc = c.cc
	case ir.CallConvSysV, ir.CallConvWin64:
	default:
		return &ConfigurationError{Reason: "unsupported calling convention on call instruction"}
	}
	a, err := abiFor(cc)
	if err != nil {
		return err
	}

	nArgs := len(in.Args)
	if cc == ir.CallConvSysV && nArgs > a.firstStackIx {
		return &UnimplementedCallShapeError{FuncName: c.fn.LinkName, NumArgs: nArgs, CallConv: cc.String()}
	}

	nRegArgs := nArgs
	if nRegArgs > a.firstStackIx {
		nRegArgs = a.firstStackIx
	}
	argRegs := regSetOf(a.paramRegs[:nRegArgs]...)

	// Common framing: save every caller-saved register that either holds
	// a live virtual (approximated by Occupied) or is about to be
	// repurposed as an argument register. R10/R11 fall out of this same
	// loop on sysv-x64 since both are caller-saved there.
	var saved []int
	for _, id := range callerSaved(a).Ascending() {
		if argRegs.Has(id) {
			continue
		}
		if c.layout.Occupied.Has(id) {
			c.pushPhys(id)
			saved = append(saved, id)
		}
	}

	if cc == ir.CallConvWin64 && nArgs > nRegArgs {
		for k := nArgs - 1; k >= nRegArgs; k-- {
			c.w.Ins1("push", c.operand(in.Args[k]))
		}
	}

	for i := 0; i < nRegArgs; i++ {
		regID := a.paramRegs[i]
		c.movSave(c.kindOf(in.Args[i]), regID, in.Args[i])
		saved = append(saved, regID)
	}

	if in.Op == ir.OpSyscall {
		c.movToPhys(R64Kind, RAX, in.Callee)
		c.w.Ins0("syscall")
	} else {
		if cc == ir.CallConvSysV {
			c.w.Ins2("mov", reg64[RAX], "0")
		}
		c.w.Ins1("call", c.operand(in.Callee))
	}

	if cc == ir.CallConvWin64 && nArgs > nRegArgs {
		c.w.Ins2("add", reg64[RSP], fmt.Sprintf("%d", 8*(nArgs-nRegArgs)))
	}

	for i := len(saved) - 1; i >= 0; i-- {
		c.popPhys(saved[i])
	}

	if in.HasDest {
		c.movFromPhys(in.Dest, c.kindOf(in.Dest), RAX)
	}
	return nil
}

// callerSaved is every GP register except the frame pointers and the
// ABI's non-volatile (callee-saved) set.
func callerSaved(a abi) RegSet {
	var s RegSet
	for id := 0; id < numGPRegs; id++ {
		if id == RSP || id == RBP {
			continue
		}
		if !a.nonVolatile.Has(id) {
			s = s.Add(id)
		}
	}
	return s
}
