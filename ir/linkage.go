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

// Function is one IR function in a Linkage. A Function with an empty
// LinkName is type-only and is skipped entirely by the backend.
type Function struct {
	LinkName       string
	CallConv       CallConv
	ParameterCount int
	Types          []Primitive // Types[i] is the type of virtual register i; len == RegisterCount.
	Constants      []Constant
	Instructions   []Instruction
}

// RegisterCount returns the number of virtual registers declared for
// this function (parameters first, locals after).
func (f *Function) RegisterCount() int {
	return len(f.Types)
}

// Linkage is a collection of IR functions and shared type definitions,
// as produced by an external frontend/type-checker.
type Linkage struct {
	Functions []*Function
	TypeDefs  map[TypeID]Primitive
	Exported  []string
}
