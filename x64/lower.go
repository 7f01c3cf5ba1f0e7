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
	"x64lower/util"
)

// funcCtx is the shared context threaded through C4 for one function: a
// reference to the linkage-level writer, the active function, its
// computed layout, and the resolved calling convention. It is created
// anew per function and discarded once that function is lowered.
type funcCtx struct {
	w      *util.Writer
	fn     *ir.Function
	layout *FuncLayout
	fnIx   int
	target Target
	cc     ir.CallConv
	abi    abi
}

// LowerToX64 is the single entry point of the backend: it lowers every
// function in linkage with a non-empty LinkName to NASM text, appended
// to out. Output is deterministic — a function only of linkage and
// target, stable across runs.
func LowerToX64(linkage *ir.Linkage, target Target, out *util.Writer) error {
	out.WriteString("bits 64\n")
	out.WriteString("default rel\n\n")

	exported := make(map[string]bool, len(linkage.Exported))
	for _, name := range linkage.Exported {
		exported[name] = true
	}

	for _, fn := range linkage.Functions {
		if fn.LinkName != "" {
			out.Write("global %s\n", fn.LinkName)
		}
	}

	for _, sym := range externSymbols(linkage, exported) {
		out.Write("extern %s\n", sym)
	}

	out.WriteString("\nsection .text\n")
	for fnIx, fn := range linkage.Functions {
		if fn.LinkName == "" {
			continue
		}
		cc, err := resolveCallConv(fn.CallConv, target)
		if err != nil {
			return fmt.Errorf("%s: %w", fn.LinkName, err)
		}
		layout, err := Assign(fn, cc)
		if err != nil {
			return fmt.Errorf("%s: %w", fn.LinkName, err)
		}
		a, err := abiFor(cc)
		if err != nil {
			return fmt.Errorf("%s: %w", fn.LinkName, err)
		}
		ctx := &funcCtx{w: out, fn: fn, layout: layout, fnIx: fnIx, target: target, cc: cc, abi: a}

		util.Log.WithField("func", fn.LinkName).
			WithField("cc", cc.String()).
			WithField("frame", layout.FrameSize).
			Debug("lowering function")

		if err := validateLabels(fn); err != nil {
			return fmt.Errorf("%s: %w", fn.LinkName, err)
		}
		if err := ctx.lowerFunction(); err != nil {
			return fmt.Errorf("%s: %w", fn.LinkName, err)
		}
	}

	out.WriteString("\nsection .rodata\n")
	for fnIx, fn := range linkage.Functions {
		for constIx, k := range fn.Constants {
			if k.Kind == ir.ConstStr {
				emitStringConstant(out, fnIx, constIx, k.StrVal)
			}
		}
	}

	return nil
}

// externSymbols collects, in first-reference order, the distinct
// symbol-valued constants referenced by any function but not present in
// the linkage's exported set.
func externSymbols(linkage *ir.Linkage, exported map[string]bool) []string {
	seen := util.NewSet[string]()
	var order []string
	for _, fn := range linkage.Functions {
		for _, k := range fn.Constants {
			if k.Kind != ir.ConstSym || exported[k.SymVal] {
				continue
			}
			if seen.Add(k.SymVal) {
				order = append(order, k.SymVal)
			}
		}
	}
	return order
}

// emitStringConstant renders one .rodata entry: quoted ASCII runs
// (bytes >= 32) alternating with decimal-literal runs (bytes < 32),
// terminated by a trailing zero byte.
func emitStringConstant(w *util.Writer, fnIx, constIx int, data []byte) {
	w.Write("CONST_%d_%d: db ", fnIx, constIx)

	bytes := append(append([]byte{}, data...), 0)
	parts := make([]string, 0, len(bytes))
	i := 0
	for i < len(bytes) {
		if bytes[i] >= 32 {
			j := i
			for j < len(bytes) && bytes[j] >= 32 {
				j++
			}
			parts = append(parts, fmt.Sprintf("%q", string(bytes[i:j])))
			i = j
		} else {
			j := i
			for j < len(bytes) && bytes[j] < 32 {
				j++
			}
			nums := make([]string, 0, j-i)
			for _, b := range bytes[i:j] {
				nums = append(nums, fmt.Sprintf("%d", b))
			}
			parts = append(parts, joinComma(nums))
			i = j
		}
	}
	w.WriteString(joinComma(parts))
	w.WriteString("\n")
}

func joinComma(ss []string) string {
	out := ""
	for i, s := range ss {
		if i > 0 {
			out += ", "
		}
		out += s
	}
	return out
}

// validateLabels is the best-effort MalformedIR check of testable
// property #6: every label id a jump/branch targets must be defined
// exactly once within the function.
func validateLabels(fn *ir.Function) error {
	defined := map[int]int{}
	for _, in := range fn.Instructions {
		if in.Op == ir.OpLabel {
			defined[in.ID]++
		}
	}
	for id, n := range defined {
		if n > 1 {
			return &MalformedIRError{FuncName: fn.LinkName, Detail: fmt.Sprintf("label %d defined %d times", id, n)}
		}
	}
	for _, in := range fn.Instructions {
		var to int
		switch in.Op {
		case ir.OpJump, ir.OpBranch, ir.OpBranchNot:
			to = in.To
		default:
			continue
		}
		if defined[to] == 0 {
			return &MalformedIRError{FuncName: fn.LinkName, Detail: fmt.Sprintf("jump target label %d is never defined", to)}
		}
	}
	return nil
}

// label renders this function's mangled form of an internal label id.
func (c *funcCtx) label(id int) string {
	return fmt.Sprintf("label_%d_%d", c.fnIx, id)
}
