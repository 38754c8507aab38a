// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package bootinfo

import (
	"fmt"
	"strings"
)

// maxNameLen is the maximum allowed variable name length (§8 boundary:
// 511 accepted, 512 rejected).
const maxNameLen = 511

// variable is one (name, value) pair in the in-memory table. Both
// strings are owned copies, never slices into a slot buffer, so the
// table outlives the buffer it was parsed from.
type variable struct {
	name  string
	value string
}

// varTable is the ordered, owned list of variables for a session.
// Order of first appearance on parse (and of append on Set) is
// preserved, matching the on-disk append order.
type varTable struct {
	vars []variable
}

// parseVars walks the variable area starting right after the header. A null byte where a name byte is expected stops the scan
// cleanly; a missing terminator before the area ends degrades gracefully
// by stopping (tolerant tail) rather than failing.
func parseVars(area []byte) *varTable {
	t := &varTable{}

	i := 0
	for i < len(area) {
		if area[i] == 0 {
			break
		}

		nameEnd := indexByte(area, i, 0)
		if nameEnd < 0 {
			break
		}

		valStart := nameEnd + 1
		valEnd := indexByte(area, valStart, 0)

		if valEnd < 0 {
			break
		}

		t.vars = append(t.vars, variable{
			name:  string(area[i:nameEnd]),
			value: string(area[valStart:valEnd]),
		})

		i = valEnd + 1
	}

	return t
}

func indexByte(b []byte, start int, v byte) int {
	for i := start; i < len(b); i++ {
		if b[i] == v {
			return i
		}
	}

	return -1
}

// serializedSize is the byte count serialize would emit: for each
// variable, len(name)+1+len(value)+1, plus one trailing null.
func (t *varTable) serializedSize() int {
	n := 1 // trailing null
	for _, v := range t.vars {
		n += len(v.name) + 1 + len(v.value) + 1
	}

	return n
}

// serialize packs the variable list into area. Fails with ErrOversize
// before writing anything if the result would not fit.
func (t *varTable) serialize(area []byte) error {
	size := t.serializedSize()
	if size > len(area) {
		return newErr(KindOversize, fmt.Sprintf("variable area needs %d bytes, have %d", size, len(area)))
	}

	i := 0
	for _, v := range t.vars {
		i += copy(area[i:], v.name)
		area[i] = 0
		i++
		i += copy(area[i:], v.value)
		area[i] = 0
		i++
	}

	area[i] = 0
	i++

	for ; i < len(area); i++ {
		area[i] = 0
	}

	return nil
}

// get returns the value for name, or ("", false) if absent.
func (t *varTable) get(name string) (string, bool) {
	for _, v := range t.vars {
		if v.name == name {
			return v.value, true
		}
	}

	return "", false
}

// validateName enforces [A-Za-z_][A-Za-z0-9_]* and length < 512 bytes.
func validateName(name string) error {
	if name == "" {
		return newErr(KindInvalidArgument, "empty variable name")
	}

	if len(name) > maxNameLen {
		return newErr(KindNameTooLong, fmt.Sprintf("name %q exceeds %d bytes", name, maxNameLen))
	}

	first := name[0]
	if !(first == '_' || isAlpha(first)) {
		return newErr(KindInvalidArgument, fmt.Sprintf("invalid variable name %q", name))
	}

	for i := 1; i < len(name); i++ {
		c := name[i]
		if !(c == '_' || isAlnum(c)) {
			return newErr(KindInvalidArgument, fmt.Sprintf("invalid variable name %q", name))
		}
	}

	return nil
}

// validateValue enforces that value contains only printable characters.
func validateValue(value string) error {
	for i := 0; i < len(value); i++ {
		if !isPrint(value[i]) {
			return newErr(KindInvalidArgument, "value contains non-printable byte")
		}
	}

	return nil
}

func isAlpha(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isAlnum(c byte) bool {
	return isAlpha(c) || (c >= '0' && c <= '9')
}

func isPrint(c byte) bool {
	return c >= 0x20 && c < 0x7f
}

// set mutates the table per the following rules:
//   - empty value means delete
//   - existing name + non-empty value: update in place
//   - existing name + empty value: delete
//   - missing name + non-empty value: append
//   - missing name + empty value: ErrNotFound
//
// capacity bounds the projected serialized size; set fails with
// ErrOversize before mutating if the projection would exceed it.
func (t *varTable) set(name, value string, capacity int) error {
	if err := validateName(name); err != nil {
		return err
	}

	if value != "" {
		if err := validateValue(value); err != nil {
			return err
		}
	}

	idx := -1

	for i, v := range t.vars {
		if v.name == name {
			idx = i

			break
		}
	}

	if idx < 0 {
		if value == "" {
			return newErr(KindNotFound, fmt.Sprintf("variable %q not found", name))
		}

		projected := t.serializedSize() + len(name) + 1 + len(value) + 1

		if projected > capacity {
			return newErr(KindOversize, "variable area capacity exceeded")
		}

		t.vars = append(t.vars, variable{name: name, value: value})

		return nil
	}

	if value == "" {
		t.vars = append(t.vars[:idx], t.vars[idx+1:]...)

		return nil
	}

	projected := t.serializedSize() - len(t.vars[idx].value) + len(value)
	if projected > capacity {
		return newErr(KindOversize, "variable area capacity exceeded")
	}

	t.vars[idx].value = value

	return nil
}

// preserveUnderscored returns a fresh varTable containing only the
// underscore-prefixed variables, value-copied (they already are, since
// varTable strings are always owned). Used by re-initialization.
func (t *varTable) preserveUnderscored() *varTable {
	out := &varTable{}

	for _, v := range t.vars {
		if strings.HasPrefix(v.name, "_") {
			out.vars = append(out.vars, variable{name: v.name, value: v.value})
		}
	}

	return out
}
