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

// Layout is the {size, alignment} pair C1 maps a primitive IR type to.
type Layout struct {
	Size  int
	Align int
}

var primitiveLayout = map[ir.Primitive]Layout{
	ir.TypeBool: {1, 1},
	ir.TypeS8:   {1, 1},
	ir.TypeU8:   {1, 1},
	ir.TypeS16:  {2, 2},
	ir.TypeU16:  {2, 2},
	ir.TypeS32:  {4, 4},
	ir.TypeU32:  {4, 4},
	ir.TypeS64:  {8, 8},
	ir.TypeU64:  {8, 8},
	ir.TypePointer: {8, 8},
	// f32 is promoted to 8-byte storage in this backend; both float
	// widths share a layout entry.
	ir.TypeF32: {8, 8},
	ir.TypeF64: {8, 8},
}

// LayoutOf returns the {size, alignment} pair for a primitive IR type.
// Unknown/other codes fall back to a single byte, naturally-aligned.
func LayoutOf(p ir.Primitive) Layout {
	if l, ok := primitiveLayout[p]; ok {
		return l
	}
	return Layout{1, 1}
}

// isFloat reports whether p is lowered through the XMM register file.
func isFloat(p ir.Primitive) bool {
	return p == ir.TypeF32 || p == ir.TypeF64
}

// kindOfType derives a Kind directly from a primitive IR type.
func kindOfType(p ir.Primitive) Kind {
	return kindOf(LayoutOf(p).Size, isFloat(p))
}
