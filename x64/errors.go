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

import "fmt"

// ConfigurationError signals an unsupported calling convention for the
// active target, e.g. CallConvDefault against a target with no derived
// default, or a non-x64 calling convention reaching the assigner.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("x64: configuration error: %s", e.Reason)
}

// UnimplementedCallShapeError signals a call site this backend cannot
// lower: a sysv-x64 call with more than six arguments. Win64 calls with
// more than four arguments are lowered by pushing the rest.
type UnimplementedCallShapeError struct {
	FuncName string
	NumArgs  int
	CallConv string
}

func (e *UnimplementedCallShapeError) Error() string {
	return fmt.Sprintf("x64: %s: unimplemented call shape: %d arguments under %s",
		e.FuncName, e.NumArgs, e.CallConv)
}

// MalformedIRError signals IR the backend rejects. The only check that
// raises it is validateLabels: a label defined more than once, or a
// jump/branch to a label that is never defined. Operands and
// instruction shapes are not validated.
type MalformedIRError struct {
	FuncName string
	Detail   string
}

func (e *MalformedIRError) Error() string {
	return fmt.Sprintf("x64: %s: malformed IR: %s", e.FuncName, e.Detail)
}
