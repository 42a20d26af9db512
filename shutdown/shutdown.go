// Package shutdown registers OS termination signals, papering over the
// platform differences in which signals exist.
package shutdown

import "os"

// Handle invokes fn once when a termination signal arrives. It returns
// immediately; fn runs on a background goroutine.
func Handle(fn func()) {
	ch := make(chan os.Signal, 1)
	Notify(ch)
	go func() {
		<-ch
		fn()
	}()
}
