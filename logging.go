package dfk

import (
	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
)

// Logger is the structured logger type used throughout the kernel: a
// logiface facade over a concrete stumpy JSON backend.
type Logger = logiface.Logger[*stumpy.Event]

func defaultLogger() *Logger {
	return stumpy.L.New(
		stumpy.L.WithStumpy(),
	)
}
