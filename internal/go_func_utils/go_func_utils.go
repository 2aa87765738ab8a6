package go_func_utils

import (
	"log"
	"runtime/debug"
)

// SafeGo runs fn on a new goroutine. A panic is written to logger with its
// stack before being re-raised, so it ends up in the rotated log file even
// when stderr is not being watched.
func SafeGo(logger *log.Logger, fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Printf("PANIC: %v\n%s", r, debug.Stack())
				panic(r)
			}
		}()
		fn()
	}()
}

// SafeGoErr is SafeGo for functions that can fail. A returned error is
// logged under name. done, if set, receives the result (nil on success).
func SafeGoErr(logger *log.Logger, name string, fn func() error, done func(error)) {
	SafeGo(logger, func() {
		err := fn()
		if err != nil {
			logger.Printf("%s: %v", name, err)
		}
		if done != nil {
			done(err)
		}
	})
}
