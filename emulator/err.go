package emulator

import (
	"errors"

	"github.com/ezrec/tickcpu/translate"
)

var f = translate.From

var (
	ErrStrategy            = errors.New(f("strategy unknown"))
	ErrMismatch            = errors.New(f("results differ"))
	ErrOpcodeUnimplemented = errors.New(f("opcode unimplemented"))
)

// ErrRuntime indicates the location of a runtime error.
type ErrRuntime struct {
	Cycle  uint64
	LineNo int
	Err    error
}

func (err *ErrRuntime) Error() string {
	return f("cycle %d line %d %v", err.Cycle, err.LineNo, err.Err)
}

func (err *ErrRuntime) Unwrap() error {
	return err.Err
}

// ErrVariant indicates the strategy and driver variant that failed.
type ErrVariant struct {
	Name string
	Err  error
}

func (err *ErrVariant) Error() string {
	return f("%v: %v", err.Name, err.Err)
}

func (err *ErrVariant) Unwrap() error {
	return err.Err
}
