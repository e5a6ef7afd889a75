package ip

import "sync"

// FakeHandle is an in-memory Handle, standing in for the real ip scheme
// in tests: outbox records every outgoing datagram for tests to drain
// with Next, and inbox feeds incoming ones, the same split the
// teacher's packetimpact testbench draws between an injector and a
// sniffer on a connection.
type FakeHandle struct {
	mu     sync.Mutex
	url    string
	inbox  chan []byte
	outbox chan []byte
	sent   [][]byte
	closed bool
}

// NewFakeHandle returns a FakeHandle bound to url with room for
// backlog buffered incoming and outgoing datagrams before blocking.
func NewFakeHandle(url string, backlog int) *FakeHandle {
	return &FakeHandle{
		url:    url,
		inbox:  make(chan []byte, backlog),
		outbox: make(chan []byte, backlog),
	}
}

// Deliver enqueues b as though it had arrived from the peer.
func (f *FakeHandle) Deliver(b []byte) {
	f.inbox <- append([]byte(nil), b...)
}

// Next blocks for the next datagram written by the code under test,
// the synchronization primitive tests use instead of polling Sent.
func (f *FakeHandle) Next() []byte {
	return <-f.outbox
}

// Sent returns every datagram written so far, in order.
func (f *FakeHandle) Sent() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]byte(nil), f.sent...)
}

func (f *FakeHandle) ReadDatagram() ([]byte, error) {
	b, ok := <-f.inbox
	if !ok {
		return nil, ErrClosed
	}
	return b, nil
}

func (f *FakeHandle) WriteDatagram(b []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrClosed
	}
	cp := append([]byte(nil), b...)
	f.sent = append(f.sent, cp)
	f.outbox <- cp
	return nil
}

func (f *FakeHandle) URL() string { return f.url }

func (f *FakeHandle) Dup() (Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	dup := &FakeHandle{url: f.url, inbox: f.inbox, outbox: f.outbox}
	return dup, nil
}

func (f *FakeHandle) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil
	}
	f.closed = true
	close(f.inbox)
	return nil
}
