package panicutil

import (
	"github.com/sourcegraph/conc/panics"
)

// Call runs f with a double defer sandwich and returns its results.
// If f panics, the recovered value is returned as *panics.ErrRecovered.
// If f calls runtime.Goexit, onGoexit is called (when non-nil) while the goroutine keeps exiting,
// so Call never returns in that case.
func Call[V any](f func() (V, error), onGoexit func()) (v V, err error) {
	var (
		normalReturn bool
		recovered    bool
		panicValue   panics.Recovered
	)
	defer func() {
		switch {
		case normalReturn:
			return
		case recovered:
			var zero V
			v, err = zero, panicValue.AsError()
		default:
			if onGoexit != nil {
				onGoexit()
			}
		}
	}()
	func() {
		defer func() {
			panicValue = panics.NewRecovered(2, recover())
		}()
		v, err = f()
		normalReturn = true
	}()
	if !normalReturn {
		recovered = true
	}
	return
}
