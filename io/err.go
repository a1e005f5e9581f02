package io

import (
	"github.com/ezrec/minicpu/translate"
)

var f = translate.From

// ErrRead indicates a failure of the underlying reader, after a number
// of words had been read.
type ErrRead struct {
	Words int
	Err   error
}

func (err *ErrRead) Error() string {
	return f("read after %d words: %v", err.Words, err.Err)
}

func (err *ErrRead) Unwrap() error {
	return err.Err
}
