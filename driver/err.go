package driver

import (
	"errors"

	"github.com/ezrec/tickcpu/translate"
)

var f = translate.From

var (
	ErrCount = errors.New(f("instruction count negative"))
)

type ErrDriverUnknown string

func (err ErrDriverUnknown) Error() string {
	return f("driver '%v' unknown", string(err))
}
