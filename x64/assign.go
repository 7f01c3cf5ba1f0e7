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
	"github.com/samber/lo"

	"x64lower/ir"
	"x64lower/util"
)

// FuncLayout is the per-function output of the storage assigner: a
// storage descriptor for every virtual register, the function's frame
// size, and the callee-saved set the prologue/epilogue must preserve.
type FuncLayout struct {
	Regs        []Reg
	FrameSize   int
	Assigned    RegSet // GP registers unavailable to the first-fit pass (reserved + parameters + allocated)
	Occupied    RegSet // GP registers actually holding a virtual register's value (params ∪ first-fit picks)
	CalleeSaved RegSet
}

// Assign computes storage for every virtual register of fn under the
// resolved calling convention cc. It implements the deterministic
// first-fit scheme of §4.2: no liveness analysis, no graph coloring, no
// linear scan.
func Assign(fn *ir.Function, cc ir.CallConv) (*FuncLayout, error) {
	a, err := abiFor(cc)
	if err != nil {
		return nil, err
	}

	layout := &FuncLayout{
		Regs:     make([]Reg, fn.RegisterCount()),
		Assigned: reservedRegs,
	}

	// Parameters: storage dictated by the ABI, not by first-fit. Their
	// registers are also excluded from the first-fit free pool: a
	// non-parameter virtual must never alias a live parameter register
	// (see DESIGN.md resolution of the source's open question on this).
	for i := 0; i < fn.ParameterCount; i++ {
		k := kindOfType(fn.Types[i])
		if i < len(a.paramRegs) {
			id := a.paramRegs[i]
			layout.Regs[i] = Reg{Kind: k, Storage: Register, Index: id}
			layout.Assigned = layout.Assigned.Add(id)
			layout.Occupied = layout.Occupied.Add(id)
		} else {
			layout.Regs[i] = Reg{Kind: k, Storage: ParameterStack, Index: a.paramStackOffset(i)}
		}
	}

	// Non-parameter virtuals: lowest-numbered free GP register, else a
	// LocalStack slot at the next aligned offset. Slot offsets start at
	// 16, not 0: rbp-0 is the saved caller rbp pushed in the prologue,
	// and a spill landing there would be silently overwritten by any
	// load/store/binop into that slot, corrupting the frame. The frame
	// is sized to reach the deepest slot, base included.
	used, deepest := 0, 0
	for i := fn.ParameterCount; i < fn.RegisterCount(); i++ {
		k := kindOfType(fn.Types[i])
		if id, ok := firstFree(layout.Assigned); ok {
			layout.Regs[i] = Reg{Kind: k, Storage: Register, Index: id}
			layout.Assigned = layout.Assigned.Add(id)
			layout.Occupied = layout.Occupied.Add(id)
			continue
		}
		l := LayoutOf(fn.Types[i])
		used = util.AlignUp(used, l.Align)
		layout.Regs[i] = Reg{Kind: k, Storage: LocalStack, Index: used + 16}
		deepest = used + 16
		used += l.Size
	}

	layout.FrameSize = util.Align16(deepest)
	if cc == ir.CallConvWin64 {
		// Reserve the shadow-store area the callee may spill into.
		layout.FrameSize += 16
	}

	// Intersect against Occupied, not Assigned: RBX is pre-marked assigned
	// as an emission-primitive temporary regardless of whether this
	// function's virtuals ever land in it, and an unused reserved
	// register must not trigger a spurious push/pop pair. But RBX is
	// also the second scratch register emit.go's load/store reach for
	// when both operands are stack-resident (see usesStackScratch), and
	// that write has to be saved/restored around even though RBX never
	// shows up in Occupied for holding a virtual's own value.
	layout.CalleeSaved = layout.Occupied.Intersect(a.nonVolatile)
	if usesStackScratch(fn, layout) && a.nonVolatile.Has(RBX) {
		layout.CalleeSaved = layout.CalleeSaved.Add(RBX)
	}
	return layout, nil
}

// usesStackScratch reports whether fn contains a load or store whose
// address and value operands are both stack-resident, the one case
// where emit.go's load/store route the value through RBX as a second
// scratch register (RAX alone carries the address).
func usesStackScratch(fn *ir.Function, layout *FuncLayout) bool {
	stack := func(op ir.Operand) bool {
		return !op.IsConstant() && layout.Regs[op.Index()].isStack()
	}
	for _, in := range fn.Instructions {
		if (in.Op == ir.OpLoad || in.Op == ir.OpStore) && stack(in.Dest) && stack(in.Src) {
			return true
		}
	}
	return false
}

// firstFree returns the lowest-numbered GP register id not present in
// assigned, walking ids in the naturally-ordered sequence lo.Range
// produces rather than ranging over a raw bitmask by hand.
func firstFree(assigned RegSet) (int, bool) {
	for _, id := range lo.Range(numGPRegs) {
		if !assigned.Has(id) {
			return id, true
		}
	}
	return 0, false
}
