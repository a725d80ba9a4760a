// Copyright 2020 Grail Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package kinderr classifies errors raised by the seqset/readmap/mergemap
// indexes and their builders into the small set of kinds callers need to
// branch on. It is a thin layer over github.com/grailbio/base/errors, the
// way every other grailbio/bio package wraps errors rather than returning
// bare fmt.Errorf values.
package kinderr

import (
	"fmt"

	"github.com/grailbio/base/errors"
)

// Kind classifies a failure so that callers can decide whether to retry,
// report, or propagate without inspecting message text.
type Kind int

const (
	// Unknown is the zero value; Is() never matches it.
	Unknown Kind = iota
	// IO covers filesystem, archive layout, permission, and corruption
	// errors detected at open time.
	IO
	// Version indicates a part's stored major version exceeds the
	// opener's.
	Version
	// Identity indicates a UUID mismatch across dependent structures
	// (readmap vs seqset, mergemap vs either).
	Identity
	// Input indicates a malformed input record.
	Input
	// Consistency indicates a finalize-time invariant violation.
	Consistency
	// Limit indicates a resource budget (memory, id width, packed width)
	// was exceeded.
	Limit
	// Cancelled indicates cooperative cancellation.
	Cancelled
)

func (k Kind) String() string {
	switch k {
	case IO:
		return "io"
	case Version:
		return "version"
	case Identity:
		return "identity"
	case Input:
		return "input"
	case Consistency:
		return "consistency"
	case Limit:
		return "limit"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// kindedError pairs a Kind with a wrapped github.com/grailbio/base/errors
// error so kind information survives formatting and %w-unwrapping.
type kindedError struct {
	kind Kind
	err  error
}

func (e *kindedError) Error() string { return e.err.Error() }
func (e *kindedError) Unwrap() error { return e.err }

// E builds an error of the given kind, formatting args the same way
// github.com/grailbio/base/errors.E does (a mix of strings, an optional
// wrapped error, and an optional final error.Args).
func E(kind Kind, args ...interface{}) error {
	return &kindedError{kind: kind, err: errors.E(args...)}
}

// Errorf builds an error of the given kind from a format string.
func Errorf(kind Kind, format string, args ...interface{}) error {
	return &kindedError{kind: kind, err: fmt.Errorf(format, args...)}
}

// Is reports whether err (or something it wraps) was constructed with kind.
func Is(err error, kind Kind) bool {
	for err != nil {
		if ke, ok := err.(*kindedError); ok {
			return ke.kind == kind
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

// KindOf returns the Kind attached to err, or Unknown if err was not built
// with E/Errorf.
func KindOf(err error) Kind {
	for err != nil {
		if ke, ok := err.(*kindedError); ok {
			return ke.kind
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return Unknown
		}
		err = u.Unwrap()
	}
	return Unknown
}
