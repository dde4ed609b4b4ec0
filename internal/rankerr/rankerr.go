// Copyright ©2024 The Bribbon Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package rankerr classifies and wraps the five fatal error kinds the
// system can raise: argument, input, numeric-sanity, resource, and
// collective errors. Every kind is fatal to the job; this package exists
// so a caller can still tell them apart (via errors.Is) before printing
// the rank-prefixed diagnostic and aborting.
package rankerr

import "github.com/pkg/errors"

// Kind sentinels. Wrap an underlying error with one of these via Wrap so
// that errors.Is(err, KindInput) (etc.) still reports true after wrapping.
var (
	KindArgument   = errors.New("argument error")
	KindInput      = errors.New("input error")
	KindSanity     = errors.New("numeric sanity error")
	KindResource   = errors.New("resource error")
	KindCollective = errors.New("collective error")
)

// Wrap annotates err with kind and a message, preserving err in the
// chain so errors.Cause and errors.Is continue to work.
func Wrap(kind error, err error, message string) error {
	if err == nil {
		return nil
	}
	return errors.Wrap(&kindedError{kind: kind, err: err}, message)
}

// New creates a fresh error of the given kind with no wrapped cause.
func New(kind error, message string) error {
	return errors.WithMessage(kind, message)
}

type kindedError struct {
	kind error
	err  error
}

func (e *kindedError) Error() string { return e.err.Error() }
func (e *kindedError) Unwrap() error { return e.err }
func (e *kindedError) Is(target error) bool {
	return e.kind == target
}
