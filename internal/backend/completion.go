package backend

import "sync"

// completion is a one-shot result. The first Resolve wins; later calls are
// ignored, so competing signals (marker, process exit, timeout) can all try
// to finish the same wait.
type completion struct {
	once sync.Once
	done chan struct{}
	err  error
}

func newCompletion() *completion {
	return &completion{done: make(chan struct{})}
}

// Resolve records err as the result if nothing was recorded yet.
// It reports whether this call won.
func (c *completion) Resolve(err error) bool {
	won := false
	c.once.Do(func() {
		c.err = err
		close(c.done)
		won = true
	})
	return won
}

// Done is closed once a result has been recorded.
func (c *completion) Done() <-chan struct{} {
	return c.done
}

// Err returns the recorded result. Only valid after Done is closed.
func (c *completion) Err() error {
	<-c.done
	return c.err
}
