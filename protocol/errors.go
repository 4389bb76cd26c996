// Copyright 2022~2024 wangqi. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package protocol

import (
	"errors"
	"fmt"
	"io"
)

var (
	// the far end never replied, or the first two bytes are not a reply marker.
	ErrNoResponse = errors.New("no response received")

	// a reply started but the stream ended before the terminating line feed.
	ErrMalformedResponse = errors.New("malformed response received")

	// ErrReported marks an error whose message was already written to the
	// reply descriptor; callers must not print it again.
	ErrReported = errors.New("already reported")
)

type reportedError struct {
	err error
}

func (e *reportedError) Error() string   { return e.err.Error() }
func (e *reportedError) Unwrap() []error { return []error{e.err, ErrReported} }

// report writes "(message)\n" to w and returns err marked as reported.
func report(w io.Writer, err error) error {
	fmt.Fprintf(w, "(%s)\n", err)
	return Reported(err)
}

// Reported marks err as already written to the reply descriptor.
func Reported(err error) error {
	return &reportedError{err: err}
}

// IsReported reports whether err was already written to the reply descriptor.
func IsReported(err error) bool {
	return errors.Is(err, ErrReported)
}
