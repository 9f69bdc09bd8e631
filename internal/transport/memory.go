package transport

import (
	"fmt"
	"sync"
)

// LimitedBroadcast is the IPv4 limited broadcast address.
const LimitedBroadcast = "255.255.255.255"

// inboxSize bounds the per-endpoint queue; overflow drops like a full socket buffer.
const inboxSize = 256

type packet struct {
	payload []byte
	from    Addr
}

type binding struct {
	addr  Addr
	inbox chan packet
	done  chan struct{}
}

// Network is an in-memory datagram hub. Endpoints attached to it exchange
// datagrams as if they shared a broadcast domain.
type Network struct {
	mu        sync.RWMutex
	broadcast string
	bindings  map[Addr]*binding
}

// NewNetwork creates an empty hub. Datagrams sent to 255.255.255.255 reach
// every endpoint bound on the destination port, the sender included.
func NewNetwork() *Network {
	return &Network{
		broadcast: LimitedBroadcast,
		bindings:  make(map[Addr]*binding),
	}
}

// SetBroadcastAddress registers an additional address treated as broadcast,
// e.g. a subnet broadcast like 10.0.0.255.
func (n *Network) SetBroadcastAddress(ip string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.broadcast = ip
}

// Endpoint attaches a new endpoint with the given IP to the hub.
func (n *Network) Endpoint(ip string) *Endpoint {
	return &Endpoint{network: n, ip: ip}
}

func (n *Network) register(b *binding) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if _, taken := n.bindings[b.addr]; taken {
		return fmt.Errorf("address %s already in use", b.addr)
	}
	n.bindings[b.addr] = b
	return nil
}

func (n *Network) unregister(b *binding) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.bindings[b.addr] == b {
		delete(n.bindings, b.addr)
	}
}

func (n *Network) deliver(payload []byte, from, dst Addr) {
	n.mu.RLock()
	var targets []*binding
	if dst.IP == LimitedBroadcast || dst.IP == n.broadcast {
		for addr, b := range n.bindings {
			if addr.Port == dst.Port {
				targets = append(targets, b)
			}
		}
	} else if b, ok := n.bindings[dst]; ok {
		targets = append(targets, b)
	}
	n.mu.RUnlock()

	for _, b := range targets {
		buf := make([]byte, len(payload))
		copy(buf, payload)
		select {
		case <-b.done:
		case b.inbox <- packet{payload: buf, from: from}:
		default:
		}
	}
}

// Endpoint is one node's attachment to a Network. It satisfies the same
// Listen/Send/Close contract as UDP.
type Endpoint struct {
	network *Network
	ip      string

	mu      sync.Mutex
	current *binding
	closed  bool
	wg      sync.WaitGroup
}

// IP returns the endpoint's address on the hub.
func (e *Endpoint) IP() string {
	return e.ip
}

// Listen binds the endpoint on port, replacing any previous binding.
func (e *Endpoint) Listen(port int, handler Handler) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return ErrClosed
	}

	b := &binding{
		addr:  Addr{IP: e.ip, Port: port},
		inbox: make(chan packet, inboxSize),
		done:  make(chan struct{}),
	}
	if e.current != nil && e.current.addr == b.addr {
		e.stopLocked()
	}
	if err := e.network.register(b); err != nil {
		return err
	}
	e.stopLocked()
	e.current = b

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		for {
			select {
			case <-b.done:
				return
			case p := <-b.inbox:
				handler(p.payload, p.from)
			}
		}
	}()
	return nil
}

// Send queues payload for delivery. Unknown destinations are silently
// dropped, as on a real network.
func (e *Endpoint) Send(payload []byte, dst Addr) error {
	e.mu.Lock()
	b := e.current
	closed := e.closed
	e.mu.Unlock()

	if closed {
		return ErrClosed
	}
	if b == nil {
		return ErrNotListening
	}
	e.network.deliver(payload, b.addr, dst)
	return nil
}

// Close detaches the endpoint. Only the first call has any effect.
func (e *Endpoint) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	e.stopLocked()
	e.mu.Unlock()

	e.wg.Wait()
	return nil
}

// stopLocked releases the current binding. Caller must hold e.mu.
func (e *Endpoint) stopLocked() {
	if e.current == nil {
		return
	}
	e.network.unregister(e.current)
	close(e.current.done)
	e.current = nil
}
