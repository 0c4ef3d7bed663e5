// Package panicutil turns panics and runtime.Goexit calls of user supplied functions into ordinary outcomes.
package panicutil
