package usecase

import "sync"

// notifier доставляет события подписчику в порядке публикации на отдельной горутине.
// Publish никогда не блокируется, поэтому колбэк может безопасно вызывать методы usecase.
type notifier[T any] struct {
	mu      sync.Mutex
	queue   []T
	signal  chan struct{}
	done    chan struct{}
	closed  bool
	deliver func(T)
}

func newNotifier[T any](deliver func(T)) *notifier[T] {
	n := &notifier[T]{
		signal:  make(chan struct{}, 1),
		done:    make(chan struct{}),
		deliver: deliver,
	}
	go n.loop()
	return n
}

func (n *notifier[T]) Publish(v T) {
	if n == nil || n.deliver == nil {
		return
	}
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return
	}
	n.queue = append(n.queue, v)
	n.mu.Unlock()

	select {
	case n.signal <- struct{}{}:
	default:
	}
}

func (n *notifier[T]) loop() {
	for {
		select {
		case <-n.signal:
		case <-n.done:
			return
		}
		for {
			n.mu.Lock()
			if len(n.queue) == 0 {
				n.mu.Unlock()
				break
			}
			batch := n.queue
			n.queue = nil
			n.mu.Unlock()

			for _, v := range batch {
				n.deliver(v)
			}
		}
	}
}

// Close stops delivery; queued events that were not delivered yet are dropped.
func (n *notifier[T]) Close() {
	if n == nil {
		return
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	if !n.closed {
		n.closed = true
		close(n.done)
	}
}
