package snapshot

import (
	"errors"

	"github.com/ezrec/tickcpu/translate"
)

var f = translate.From

var (
	ErrMemorySize = errors.New(f("memory image truncated"))
	ErrNoSnapshot = errors.New(f("no snapshot found"))
)

// ErrFile indicates the snapshot file that failed.
type ErrFile struct {
	Name string
	Err  error
}

func (err *ErrFile) Error() string {
	return f("%v: %v", err.Name, err.Err)
}

func (err *ErrFile) Unwrap() error {
	return err.Err
}
