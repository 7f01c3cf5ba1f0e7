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
package util

import (
	"fmt"
	"strings"
)

// Writer buffers generated assembly text. Emission is pure textual
// append; there is no I/O in the lowering hot loop, the caller decides
// where the final buffer goes (file, stdout, in-memory comparison).
type Writer struct {
	sb strings.Builder
}

// Write appends a formatted line (the format string must include its
// own trailing newline where one is wanted).
func (w *Writer) Write(format string, args ...interface{}) {
	fmt.Fprintf(&w.sb, format, args...)
}

// WriteString appends s verbatim.
func (w *Writer) WriteString(s string) {
	w.sb.WriteString(s)
}

// Label writes a one-line label definition.
func (w *Writer) Label(name string) {
	fmt.Fprintf(&w.sb, "%s:\n", name)
}

// Ins0 writes a zero-operand instruction, e.g. "ret" or "leave".
func (w *Writer) Ins0(op string) {
	fmt.Fprintf(&w.sb, "\t%s\n", op)
}

// Ins1 writes a one-operand instruction, e.g. "push rbp".
func (w *Writer) Ins1(op, a string) {
	fmt.Fprintf(&w.sb, "\t%s %s\n", op, a)
}

// Ins2 writes a two-operand instruction, e.g. "mov rax, rbx".
func (w *Writer) Ins2(op, dest, src string) {
	fmt.Fprintf(&w.sb, "\t%s %s, %s\n", op, dest, src)
}

// Comment writes a NASM comment line.
func (w *Writer) Comment(format string, args ...interface{}) {
	w.sb.WriteString("\t; ")
	fmt.Fprintf(&w.sb, format, args...)
	w.sb.WriteString("\n")
}

// String returns the accumulated buffer.
func (w *Writer) String() string {
	return w.sb.String()
}

// Len returns the number of bytes currently buffered.
func (w *Writer) Len() int {
	return w.sb.Len()
}
