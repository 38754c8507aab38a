// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package bootinfo

import "github.com/pkg/errors"

// Kind classifies a failure raised by the bootinfo store.
type Kind int

// Error kinds raised by the store.
const (
	KindInvalidArgument Kind = iota
	KindReadOnly
	KindNotFound
	KindNameTooLong
	KindOversize
	KindNoDevice
	KindIO
	KindLock
	KindNoValidStore
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindInvalidArgument:
		return "invalid argument"
	case KindReadOnly:
		return "read-only"
	case KindNotFound:
		return "not found"
	case KindNameTooLong:
		return "name too long"
	case KindOversize:
		return "oversize"
	case KindNoDevice:
		return "no device"
	case KindIO:
		return "I/O error"
	case KindLock:
		return "lock error"
	case KindNoValidStore:
		return "no valid store"
	case KindInternal:
		return "internal error"
	default:
		return "unknown error"
	}
}

// Error is the error type returned by every bootinfo operation that can
// fail. It carries a Kind so callers can branch on failure category
// without string matching, per errors.Is/errors.As.
type Error struct {
	Kind Kind
	msg  string
	err  error
}

func (e *Error) Error() string {
	if e.msg == "" {
		return e.Kind.String()
	}

	return e.Kind.String() + ": " + e.msg
}

// Unwrap exposes the wrapped cause, if any, for errors.Is/errors.As.
func (e *Error) Unwrap() error {
	return e.err
}

// Is reports whether target is a *Error with the same Kind, so callers
// can write errors.Is(err, bootinfo.ErrNotFound) against the sentinels
// below.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}

	return t.Kind == e.Kind && t.msg == ""
}

func newErr(kind Kind, msg string) *Error {
	return &Error{Kind: kind, msg: msg}
}

func wrapErr(kind Kind, cause error, msg string) *Error {
	return &Error{Kind: kind, msg: msg, err: errors.Wrap(cause, msg)}
}

// Sentinel errors for use with errors.Is. Each carries only a Kind; use
// errors.As to recover the concrete *Error (and its message) from a
// returned error.
var (
	ErrInvalidArgument = &Error{Kind: KindInvalidArgument}
	ErrReadOnly        = &Error{Kind: KindReadOnly}
	ErrNotFound        = &Error{Kind: KindNotFound}
	ErrNameTooLong     = &Error{Kind: KindNameTooLong}
	ErrOversize        = &Error{Kind: KindOversize}
	ErrNoDevice        = &Error{Kind: KindNoDevice}
	ErrIO              = &Error{Kind: KindIO}
	ErrLock            = &Error{Kind: KindLock}
	ErrNoValidStore    = &Error{Kind: KindNoValidStore}
	ErrInternal        = &Error{Kind: KindInternal}
)
