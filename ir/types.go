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

// Primitive is a scalar IR type code. Aggregate (struct/union/array)
// layout is out of scope for this backend; those type ids still appear
// in TypeDefs but are never resolved by the C1 layout table.
type Primitive int

const (
	TypeUnknown Primitive = iota
	TypeBool
	TypeS8
	TypeU8
	TypeS16
	TypeU16
	TypeS32
	TypeU32
	TypeS64
	TypeU64
	TypePointer
	TypeF32
	TypeF64
)

// TypeID indexes Linkage.TypeDefs.
type TypeID int

// CallConv is the calling convention an IR function was authored for.
type CallConv int

const (
	CallConvDefault CallConv = iota
	CallConvSysV
	CallConvWin64
)

func (cc CallConv) String() string {
	switch cc {
	case CallConvSysV:
		return "sysv-x64"
	case CallConvWin64:
		return "win64"
	default:
		return "default"
	}
}
