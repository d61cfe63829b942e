// Package xlog provides the bracketed-component-tag logger texture used
// throughout hailam-chessplay (e.g. "[Engine] ...", "[TT] ..."), so that
// every package in this module logs the same way instead of each hand-
// rolling its own log.New call.
package xlog

import (
	"log"
	"os"
)

// Tagged returns a standard logger prefixed "[component] ", writing to
// stderr with the usual date/time flags, matching the teacher's
// log.New(os.Stderr, "[Tag] ", log.LstdFlags) convention.
func Tagged(component string) *log.Logger {
	return log.New(os.Stderr, "["+component+"] ", log.LstdFlags)
}
