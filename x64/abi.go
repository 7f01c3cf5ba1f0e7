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

import "x64lower/ir"

// abi bundles everything that differs between System V and Win64:
// parameter register order, the non-volatile (callee-saved) mask, and
// the stack-parameter offset formula.
type abi struct {
	paramRegs    []int
	nonVolatile  RegSet
	stackBase    int // bytes added to skip the saved base pointer and return address
	firstStackIx int // lowest parameter index that spills to the stack
}

var sysvABI = abi{
	paramRegs:    []int{RDI, RSI, RDX, RCX, R8, R9},
	nonVolatile:  regSetOf(RBX, R12, R13, R14, R15),
	stackBase:    16,
	firstStackIx: 6,
}

// win64ABI corrects the source's `(RDI << 12) | (RSI << 12)` non-volatile
// mask, which is not a bitmask at all, to the evidently intended
// behavior: RDI and RSI are callee-saved on win64 (see DESIGN.md).
var win64ABI = abi{
	paramRegs:    []int{RCX, RDX, R8, R9},
	nonVolatile:  regSetOf(RBX, RSI, RDI, R12, R13, R14, R15),
	stackBase:    16,
	firstStackIx: 4,
}

func regSetOf(ids ...int) RegSet {
	var s RegSet
	for _, id := range ids {
		s = s.Add(id)
	}
	return s
}

// abiFor returns the abi table for a resolved calling convention.
// Callers must resolve CallConvDefault via resolveCallConv first.
func abiFor(cc ir.CallConv) (abi, error) {
	switch cc {
	case ir.CallConvSysV:
		return sysvABI, nil
	case ir.CallConvWin64:
		return win64ABI, nil
	default:
		return abi{}, &ConfigurationError{Reason: "calling convention must be resolved to sysv-x64 or win64 before ABI lookup"}
	}
}

// paramStackOffset returns the ParameterStack offset for the i'th
// parameter once it has spilled past the register-passed prefix.
func (a abi) paramStackOffset(i int) int {
	return (i-a.firstStackIx)*8 + a.stackBase
}

// reservedRegs are pre-marked assigned and never handed to a virtual
// register by the first-fit pass: RSP/RBP are frame pointers, RAX/RBX
// are reserved as emission-primitive temporaries.
var reservedRegs = regSetOf(RSP, RBP, RAX, RBX)
