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
// Package util holds small cross-cutting helpers shared by the ir and
// x64 packages: assertions, alignment arithmetic and the buffered NASM
// text writer.
package util

import "fmt"

// Assert panics with a formatted message when cond is false. Used for
// internal sanity checks that indicate a compiler bug rather than bad
// input, mirroring how invariant violations are reported elsewhere in
// this toolchain.
func Assert(cond bool, format string, args ...interface{}) {
	if !cond {
		panic(fmt.Sprintf(format, args...))
	}
}

// Align16 rounds n up to the next multiple of 16.
func Align16(n int) int {
	return (n + 15) &^ 15
}

// AlignUp rounds n up to the next multiple of align. align must be a
// power of two.
func AlignUp(n, align int) int {
	return (n + align - 1) &^ (align - 1)
}
