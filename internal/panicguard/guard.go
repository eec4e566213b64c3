package panicguard

import (
	"github.com/sourcegraph/conc/panics"
)

// Call runs f and recovers a panic raised inside it, returning the recovered
// value as a *panics.ErrRecovered. A nil return means f returned normally.
func Call(f func()) error {
	if recovered := panics.Try(f); recovered != nil {
		return recovered.AsError()
	}
	return nil
}
