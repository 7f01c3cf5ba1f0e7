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

import (
	"encoding/json"
	"fmt"
	"io"
)

// This file is the wire-format boundary the CLI driver reads linkage
// fixtures through (§6 "consumed IR structure"). The IR producer,
// type checker and frontend parser are external; this is the minimal
// JSON shape that lets the backend be driven without them.

var primitiveNames = map[string]Primitive{
	"bool": TypeBool, "s8": TypeS8, "u8": TypeU8,
	"s16": TypeS16, "u16": TypeU16, "s32": TypeS32, "u32": TypeU32,
	"s64": TypeS64, "u64": TypeU64, "pointer": TypePointer,
	"f32": TypeF32, "f64": TypeF64,
}

var callConvNames = map[string]CallConv{
	"default": CallConvDefault, "sysv-x64": CallConvSysV, "win64": CallConvWin64,
}

var opNamesReverse = func() map[string]Op {
	m := make(map[string]Op, len(opNames))
	for op, name := range opNames {
		m[name] = op
	}
	return m
}()

// operandJSON decodes either {"reg": N} or {"const": N} into an
// Operand.
type operandJSON struct {
	Reg   *int `json:"reg,omitempty"`
	Const *int `json:"const,omitempty"`
}

func (o *operandJSON) resolve() (Operand, error) {
	switch {
	case o == nil:
		return 0, nil
	case o.Reg != nil && o.Const != nil:
		return 0, fmt.Errorf("operand must set exactly one of reg, const")
	case o.Reg != nil:
		return Reg(*o.Reg), nil
	case o.Const != nil:
		return Const(*o.Const), nil
	default:
		return 0, fmt.Errorf("operand must set exactly one of reg, const")
	}
}

type constantJSON struct {
	Kind string `json:"kind"`
	Type string `json:"type"`
	Int  int64  `json:"int,omitempty"`
	Str  string `json:"str,omitempty"`
	Sym  string `json:"sym,omitempty"`
}

func (k constantJSON) resolve() (Constant, error) {
	typ, ok := primitiveNames[k.Type]
	if !ok && k.Type != "" {
		return Constant{}, fmt.Errorf("unknown constant type %q", k.Type)
	}
	switch k.Kind {
	case "int":
		return Constant{Kind: ConstInt, Type: typ, IntVal: k.Int}, nil
	case "str":
		return Constant{Kind: ConstStr, Type: typ, StrVal: []byte(k.Str)}, nil
	case "sym":
		return Constant{Kind: ConstSym, Type: typ, SymVal: k.Sym}, nil
	default:
		return Constant{}, fmt.Errorf("unknown constant kind %q", k.Kind)
	}
}

type instructionJSON struct {
	Op       string        `json:"op"`
	Dest     *operandJSON  `json:"dest,omitempty"`
	Lhs      *operandJSON  `json:"lhs,omitempty"`
	Rhs      *operandJSON  `json:"rhs,omitempty"`
	Src      *operandJSON  `json:"src,omitempty"`
	Cond     *operandJSON  `json:"cond,omitempty"`
	To       int           `json:"to,omitempty"`
	ID       int           `json:"id,omitempty"`
	Callee   *operandJSON  `json:"callee,omitempty"`
	CallConv string        `json:"calling_convention,omitempty"`
	Args     []operandJSON `json:"args,omitempty"`
	HasDest  bool          `json:"has_dest,omitempty"`
	HasValue bool          `json:"has_value,omitempty"`
	Value    *operandJSON  `json:"value,omitempty"`
}

func (j instructionJSON) resolve() (Instruction, error) {
	op, ok := opNamesReverse[j.Op]
	if !ok {
		return Instruction{}, fmt.Errorf("unknown opcode %q", j.Op)
	}
	in := Instruction{Op: op, To: j.To, ID: j.ID, HasDest: j.HasDest, HasValue: j.HasValue}

	var err error
	if in.Dest, err = j.Dest.resolve(); err != nil {
		return in, err
	}
	if in.Lhs, err = j.Lhs.resolve(); err != nil {
		return in, err
	}
	if in.Rhs, err = j.Rhs.resolve(); err != nil {
		return in, err
	}
	if in.Src, err = j.Src.resolve(); err != nil {
		return in, err
	}
	if in.Cond, err = j.Cond.resolve(); err != nil {
		return in, err
	}
	if in.Callee, err = j.Callee.resolve(); err != nil {
		return in, err
	}
	if in.Value, err = j.Value.resolve(); err != nil {
		return in, err
	}
	if j.CallConv != "" {
		cc, ok := callConvNames[j.CallConv]
		if !ok {
			return in, fmt.Errorf("unknown calling convention %q", j.CallConv)
		}
		in.CallConv = cc
	}
	for _, a := range j.Args {
		resolved, err := a.resolve()
		if err != nil {
			return in, err
		}
		in.Args = append(in.Args, resolved)
	}
	return in, nil
}

type functionJSON struct {
	LinkName       string            `json:"link_name"`
	CallConv       string            `json:"calling_convention"`
	ParameterCount int               `json:"parameter_count"`
	Types          []string          `json:"types"`
	Constants      []constantJSON    `json:"constants"`
	Instructions   []instructionJSON `json:"instructions"`
}

func (j functionJSON) resolve() (*Function, error) {
	cc := CallConvDefault
	if j.CallConv != "" {
		var ok bool
		cc, ok = callConvNames[j.CallConv]
		if !ok {
			return nil, fmt.Errorf("function %s: unknown calling convention %q", j.LinkName, j.CallConv)
		}
	}
	fn := &Function{
		LinkName:       j.LinkName,
		CallConv:       cc,
		ParameterCount: j.ParameterCount,
		Types:          make([]Primitive, len(j.Types)),
	}
	for i, t := range j.Types {
		p, ok := primitiveNames[t]
		if !ok {
			return nil, fmt.Errorf("function %s: unknown type %q at register %d", j.LinkName, t, i)
		}
		fn.Types[i] = p
	}
	for i, k := range j.Constants {
		c, err := k.resolve()
		if err != nil {
			return nil, fmt.Errorf("function %s: constant %d: %w", j.LinkName, i, err)
		}
		fn.Constants = append(fn.Constants, c)
	}
	for i, in := range j.Instructions {
		resolved, err := in.resolve()
		if err != nil {
			return nil, fmt.Errorf("function %s: instruction %d: %w", j.LinkName, i, err)
		}
		fn.Instructions = append(fn.Instructions, resolved)
	}
	return fn, nil
}

type linkageJSON struct {
	Functions []functionJSON `json:"functions"`
	Exported  []string       `json:"exported"`
}

// DecodeLinkage reads a JSON-encoded linkage fixture. It is the
// backend's substitute for the upstream IR producer/type-checker this
// package does not implement.
func DecodeLinkage(r io.Reader) (*Linkage, error) {
	var j linkageJSON
	if err := json.NewDecoder(r).Decode(&j); err != nil {
		return nil, fmt.Errorf("decode linkage: %w", err)
	}
	linkage := &Linkage{Exported: j.Exported}
	for i, f := range j.Functions {
		fn, err := f.resolve()
		if err != nil {
			return nil, fmt.Errorf("function %d: %w", i, err)
		}
		linkage.Functions = append(linkage.Functions, fn)
	}
	return linkage, nil
}
