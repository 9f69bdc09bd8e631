// Package discovery implements the peer discovery protocol: node identity,
// the ping/pong/broadcast message kinds, interest filtering and dispatch of
// application-defined events.
package discovery

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/edgecli/lanping/internal/metrics"
	"github.com/edgecli/lanping/internal/transport"
)

// Transport is the datagram adapter a Node sends and receives through.
// Listen may be called again to move the binding to another port; Close must
// tolerate repeated calls.
type Transport interface {
	Listen(port int, handler transport.Handler) error
	Send(payload []byte, dst transport.Addr) error
	Close() error
}

// Deps are the collaborators of a Node. Zero values select defaults: a UDP
// transport on all interfaces, slog.Default(), no metrics and a random ID.
type Deps struct {
	ID        string
	Transport Transport
	Logger    *slog.Logger
	Metrics   *metrics.Metrics
}

// BroadcastOptions describe a discovery request. Zero Port and Address use
// the configured port and broadcast address.
type BroadcastOptions struct {
	Filter  []string
	Port    int
	Address string
	Data    any
}

// PingOptions describe a direct probe. Address is required.
type PingOptions struct {
	Address string
	Port    int
	Data    any
}

// Node is one participant in the protocol. It answers ping and broadcast
// requests of interest with a pong, and routes other message types to the
// handlers registered with On.
type Node struct {
	transport Transport
	logger    *slog.Logger
	metrics   *metrics.Metrics
	events    *eventRegistry

	mu         sync.RWMutex
	self       Identity
	configured bool
	closed     bool
	onNode     Handler
}

// NewNode creates an unconfigured node. Nothing is bound until Configure.
func NewNode(deps Deps) *Node {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	tr := deps.Transport
	if tr == nil {
		tr = transport.NewUDP("", logger)
	}
	id := deps.ID
	if id == "" {
		id = NewID()
	}
	return &Node{
		transport: tr,
		logger:    logger.With("component", "discovery"),
		metrics:   deps.Metrics,
		events:    newEventRegistry(),
		self:      Identity{ID: id},
	}
}

// Configure applies opts and binds the transport on the configured port.
// It may be called again to change port, broadcast address, role or name;
// the ID is kept unless opts overrides it. On failure the previous
// configuration stays in effect.
func (n *Node) Configure(opts Options) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed {
		return ErrClosed
	}

	next := opts.apply(n.self)
	if !n.configured || next.Port != n.self.Port {
		if err := n.transport.Listen(next.Port, n.handlePacket); err != nil {
			return fmt.Errorf("failed to listen on port %d: %w", next.Port, err)
		}
	}

	n.self = next
	n.configured = true

	n.logger.Info("node configured",
		"id", next.ID, "role", next.Role, "name", next.Name,
		"port", next.Port, "broadcast", next.BroadcastAddress)
	return nil
}

// Config returns a snapshot of the node's identity and whether Configure
// has succeeded.
func (n *Node) Config() (Identity, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.self, n.configured
}

// OnNode sets the discovery callback, replacing any previous one. It runs
// for every pong and for every ping or broadcast that passes the interest
// filter. A nil fn clears it.
func (n *Node) OnNode(fn Handler) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.onNode = fn
}

// On appends h to the handlers for an application message type.
func (n *Node) On(eventType string, h Handler) error {
	return n.events.on(eventType, h)
}

// Off removes every handler for eventType and forgets the type.
func (n *Node) Off(eventType string) {
	n.events.off(eventType)
}

// OffIndex removes the handler at index, keeping the type registered even
// when no handlers remain.
func (n *Node) OffIndex(eventType string, index int) error {
	return n.events.offIndex(eventType, index)
}

// Listeners reports how many handlers eventType has and whether the type is
// registered at all.
func (n *Node) Listeners(eventType string) (int, bool) {
	return n.events.listeners(eventType)
}

// Broadcast sends a discovery request. Peers whose role matches the filter
// (or all peers, for an empty filter) answer with a pong.
func (n *Node) Broadcast(opts BroadcastOptions) error {
	self, configured := n.Config()
	if !configured {
		return ErrNotConfigured
	}

	data, err := marshalData(opts.Data)
	if err != nil {
		return err
	}

	return n.Send(&Envelope{
		Type:    TypeBroadcast,
		Node:    &self,
		Filter:  opts.Filter,
		Data:    data,
		Port:    opts.Port,
		Address: opts.Address,
	}, nil)
}

// Ping sends a direct probe to one peer, which answers with a pong.
func (n *Node) Ping(opts PingOptions) error {
	self, configured := n.Config()
	if !configured {
		return ErrNotConfigured
	}
	if opts.Address == "" {
		return ErrMissingAddress
	}

	data, err := marshalData(opts.Data)
	if err != nil {
		return err
	}

	return n.Send(&Envelope{
		Type:    TypePing,
		Node:    &self,
		Data:    data,
		Port:    opts.Port,
		Address: opts.Address,
	}, nil)
}

// Send transmits env after stamping the sender id and filling in the default
// port and address. Request errors are returned and nothing is sent.
// Transport errors are never returned: they go to done when it is non-nil
// and are logged otherwise.
func (n *Node) Send(env *Envelope, done func(error)) error {
	self, configured := n.Config()
	if !configured {
		return ErrNotConfigured
	}
	if env == nil || env.Type == "" {
		return ErrMissingType
	}

	msg := env.clone()
	if msg.Port == 0 {
		msg.Port = self.Port
	}
	if msg.Address == "" {
		msg.Address = self.BroadcastAddress
	}

	payload, err := Encode(msg, self.ID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}

	kind := metrics.Kind(msg.Type, IsBuiltin(msg.Type))
	dst := transport.Addr{IP: msg.Address, Port: msg.Port}
	sendErr := n.transport.Send(payload, dst)
	if sendErr != nil {
		n.metrics.SendError(kind)
		if done == nil {
			n.logger.Debug("send failed", "type", msg.Type, "to", dst.String(), "error", sendErr)
		}
	} else {
		n.metrics.MessageSent(kind)
	}

	if done != nil {
		done(sendErr)
	}
	return nil
}

// Close releases the transport. Only the first call has any effect. It must
// not be called from a callback running on the node's receive path.
func (n *Node) Close() error {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return nil
	}
	n.closed = true
	n.mu.Unlock()

	if err := n.transport.Close(); err != nil {
		return fmt.Errorf("failed to close transport: %w", err)
	}
	n.logger.Info("node closed")
	return nil
}

// handlePacket is the transport callback. Errors here are logged and
// counted; a bad datagram never stops the receive loop.
func (n *Node) handlePacket(payload []byte, from transport.Addr) {
	n.metrics.DatagramReceived(len(payload))

	msg, err := Decode(payload)
	if err != nil {
		n.metrics.DecodeError()
		n.logger.Debug("invalid message", "from", from.String(), "error", err)
		return
	}
	n.metrics.MessageReceived(metrics.Kind(msg.Type, IsBuiltin(msg.Type)))

	switch msg.Type {
	case TypePing, TypeBroadcast:
		self, _ := n.Config()
		if !IsOfInterest(msg, self) {
			n.metrics.Filtered()
			return
		}
		n.logger.Debug("request of interest", "type", msg.Type, "from", msg.Node.Label(), "addr", from.String())
		n.notify(msg, from)
		n.reply(self, from)

	case TypePong:
		n.logger.Debug("found peer", "peer", msg.Node.Label(), "addr", from.String())
		n.notify(msg, from)

	default:
		n.dispatchEvent(msg, from)
	}
}

func (n *Node) notify(msg *Envelope, from transport.Addr) {
	n.mu.RLock()
	fn := n.onNode
	n.mu.RUnlock()

	if fn != nil {
		fn(msg, from)
	}
}

// reply answers a request with our identity, addressed to the sender's
// source port.
func (n *Node) reply(self Identity, to transport.Addr) {
	pong := &Envelope{
		Type:    TypePong,
		Node:    &self,
		Address: to.IP,
		Port:    to.Port,
	}
	err := n.Send(pong, func(err error) {
		if err != nil {
			n.logger.Debug("pong failed", "to", to.String(), "error", err)
			return
		}
		n.metrics.ReplySent()
	})
	if err != nil {
		n.logger.Warn("pong not sent", "to", to.String(), "error", err)
	}
}

func (n *Node) dispatchEvent(msg *Envelope, from transport.Addr) {
	// A registered type whose handlers were all removed dispatches like an
	// unregistered one.
	handlers, _ := n.events.snapshot(msg.Type)
	if len(handlers) == 0 {
		n.metrics.Unhandled()
		n.logger.Debug("unhandled message type", "type", msg.Type, "from", from.String())
		return
	}
	for _, h := range handlers {
		h(msg, from)
	}
}
