package ppd

import (
	"sync"

	"github.com/godbus/dbus/v5"
)

var (
	_ dbus.SignalHandler   = (*signalQueue)(nil)
	_ dbus.SignalRegistrar = (*signalQueue)(nil)
	_ dbus.Terminator      = (*signalQueue)(nil)
)

// signalQueue is a dbus signal handler that delivers to each registered
// channel in the order the connection read the signals. Every channel has
// an unbounded FIFO drained by a single goroutine, so a slow receiver
// neither blocks the bus reader nor sees signals reordered.
type signalQueue struct {
	mu     sync.Mutex
	closed bool
	sinks  []*signalSink
}

func newSignalQueue() *signalQueue {
	return &signalQueue{}
}

// DeliverSignal is called by the connection's reader goroutine.
func (q *signalQueue) DeliverSignal(_, _ string, sig *dbus.Signal) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	for _, s := range q.sinks {
		s.push(sig)
	}
}

func (q *signalQueue) AddSignal(ch chan<- *dbus.Signal) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.sinks = append(q.sinks, newSignalSink(ch))
}

// RemoveSignal stops delivery to ch. Queued signals are dropped and ch is
// left open.
func (q *signalQueue) RemoveSignal(ch chan<- *dbus.Signal) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	kept := q.sinks[:0]
	for _, s := range q.sinks {
		if s.ch == ch {
			s.stop()
			continue
		}
		kept = append(kept, s)
	}
	for i := len(kept); i < len(q.sinks); i++ {
		q.sinks[i] = nil
	}
	q.sinks = kept
}

// Terminate runs when the connection closes. Every registered channel is
// closed.
func (q *signalQueue) Terminate() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	for _, s := range q.sinks {
		s.stop()
		close(s.ch)
	}
	q.closed = true
	q.sinks = nil
}

type signalSink struct {
	ch chan<- *dbus.Signal

	mu      sync.Mutex
	pending []*dbus.Signal

	wake   chan struct{}
	done   chan struct{}
	exited chan struct{}
}

func newSignalSink(ch chan<- *dbus.Signal) *signalSink {
	s := &signalSink{
		ch:     ch,
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
		exited: make(chan struct{}),
	}
	go s.forward()
	return s
}

func (s *signalSink) push(sig *dbus.Signal) {
	s.mu.Lock()
	s.pending = append(s.pending, sig)
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *signalSink) next() (*dbus.Signal, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.pending) == 0 {
		return nil, false
	}
	sig := s.pending[0]
	s.pending[0] = nil
	s.pending = s.pending[1:]
	return sig, true
}

func (s *signalSink) forward() {
	defer close(s.exited)
	for {
		sig, ok := s.next()
		if !ok {
			select {
			case <-s.wake:
				continue
			case <-s.done:
				return
			}
		}
		select {
		case s.ch <- sig:
		case <-s.done:
			return
		}
	}
}

// stop ends the forwarding goroutine and waits for it, so ch receives
// nothing afterwards.
func (s *signalSink) stop() {
	close(s.done)
	<-s.exited
}
