package cache

import "sync"

// Notifier is a broadcast wake-up: every waiter holding the channel
// from Done is released by the next Wake, and must re-check which
// folders actually changed (fingerprint comparison) itself.
type Notifier struct {
	mu sync.Mutex
	ch chan struct{}
}

func NewNotifier() *Notifier {
	return &Notifier{ch: make(chan struct{})}
}

// Wake releases every current waiter.
func (n *Notifier) Wake() {
	n.mu.Lock()
	close(n.ch)
	n.ch = make(chan struct{})
	n.mu.Unlock()
}

// Done returns a channel that is closed on the next Wake.
func (n *Notifier) Done() <-chan struct{} {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.ch
}
