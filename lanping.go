// Package lanping discovers peers on a local network and exchanges messages
// with them over UDP datagrams.
//
// A Node broadcasts discovery requests (optionally filtered by role), pings
// known peers directly and answers both with its identity. Applications can
// piggyback their own message types on the same socket with On and Send.
//
//	node, err := lanping.New()
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer node.Close()
//
//	node.OnNode(func(msg *lanping.Message, from lanping.Addr) {
//		log.Printf("found %s at %s", msg.Node.ID, from)
//	})
//	if err := node.Configure(lanping.Options{Role: "printer"}); err != nil {
//		log.Fatal(err)
//	}
//	_ = node.Broadcast(lanping.BroadcastOptions{})
//
// Delivery is fire-and-forget: a request nobody answers simply never
// triggers the callback. Callers that need a deadline apply it themselves.
package lanping

import (
	"fmt"
	"log/slog"

	"github.com/edgecli/lanping/internal/discovery"
	"github.com/edgecli/lanping/internal/metrics"
	"github.com/edgecli/lanping/internal/transport"
	"github.com/prometheus/client_golang/prometheus"
)

type (
	// Message is one datagram exchanged between nodes.
	Message = discovery.Envelope
	// Identity is a node's self-description.
	Identity = discovery.Identity
	// Options configure a node; zero values select defaults.
	Options = discovery.Options
	// BroadcastOptions describe a discovery request.
	BroadcastOptions = discovery.BroadcastOptions
	// PingOptions describe a direct probe.
	PingOptions = discovery.PingOptions
	// Handler receives a message and its sender's address.
	Handler = discovery.Handler
	// Addr is a datagram endpoint.
	Addr = transport.Addr
	// Transport is the datagram adapter a node uses.
	Transport = discovery.Transport
	// Network is an in-memory broadcast domain for tests.
	Network = transport.Network
)

// Built-in message types.
const (
	TypePing      = discovery.TypePing
	TypePong      = discovery.TypePong
	TypeBroadcast = discovery.TypeBroadcast
)

const (
	DefaultPort             = discovery.DefaultPort
	DefaultBroadcastAddress = discovery.DefaultBroadcastAddress
)

var (
	ErrNotConfigured   = discovery.ErrNotConfigured
	ErrMissingAddress  = discovery.ErrMissingAddress
	ErrMissingType     = discovery.ErrMissingType
	ErrInvalidArgument = discovery.ErrInvalidArgument
	ErrClosed          = discovery.ErrClosed
)

// NewNetwork creates an in-memory network. Nodes attached to it with
// WithNetwork exchange datagrams without touching real sockets.
func NewNetwork() *Network {
	return transport.NewNetwork()
}

// Option customizes New.
type Option func(*options) error

type options struct {
	id         string
	logger     *slog.Logger
	transport  Transport
	bindHost   string
	registerer prometheus.Registerer
}

// WithID fixes the node id instead of generating a random one.
func WithID(id string) Option {
	return func(o *options) error {
		if id == "" {
			return fmt.Errorf("%w: empty id", ErrInvalidArgument)
		}
		o.id = id
		return nil
	}
}

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) error {
		o.logger = logger
		return nil
	}
}

// WithTransport replaces the default UDP transport.
func WithTransport(t Transport) Option {
	return func(o *options) error {
		if t == nil {
			return fmt.Errorf("%w: nil transport", ErrInvalidArgument)
		}
		o.transport = t
		return nil
	}
}

// WithNetwork attaches the node to an in-memory network under ip.
func WithNetwork(network *Network, ip string) Option {
	return func(o *options) error {
		if network == nil || ip == "" {
			return fmt.Errorf("%w: network and ip are required", ErrInvalidArgument)
		}
		o.transport = network.Endpoint(ip)
		return nil
	}
}

// WithBindHost restricts the UDP socket to one local address.
func WithBindHost(host string) Option {
	return func(o *options) error {
		o.bindHost = host
		return nil
	}
}

// WithMetrics registers the node's Prometheus counters with reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(o *options) error {
		o.registerer = reg
		return nil
	}
}

// Node is a discovery participant. Only the operations below are exposed;
// identity, codec, filtering and dispatch stay internal.
type Node struct {
	node *discovery.Node
}

// New creates an unconfigured node. Call Configure before sending.
func New(opts ...Option) (*Node, error) {
	var o options
	for _, opt := range opts {
		if err := opt(&o); err != nil {
			return nil, err
		}
	}

	logger := o.logger
	if logger == nil {
		logger = slog.Default()
	}

	m, err := metrics.New(o.registerer)
	if err != nil {
		return nil, err
	}

	tr := o.transport
	if tr == nil {
		tr = transport.NewUDP(o.bindHost, logger)
	}

	return &Node{
		node: discovery.NewNode(discovery.Deps{
			ID:        o.id,
			Transport: tr,
			Logger:    logger,
			Metrics:   m,
		}),
	}, nil
}

// Configure applies opts and starts listening. It may be called again to
// change the port, broadcast address, role or name.
func (n *Node) Configure(opts Options) error {
	return n.node.Configure(opts)
}

// CurrentConfig returns a snapshot of the node identity and whether it has
// been configured.
func (n *Node) CurrentConfig() (Identity, bool) {
	return n.node.Config()
}

// Broadcast asks every peer (or those with a matching role) to identify.
func (n *Node) Broadcast(opts BroadcastOptions) error {
	return n.node.Broadcast(opts)
}

// Ping asks one peer to identify.
func (n *Node) Ping(opts PingOptions) error {
	return n.node.Ping(opts)
}

// Send transmits an arbitrary message. Transmission errors are passed to
// done, if given, and are never returned.
func (n *Node) Send(msg *Message, done func(error)) error {
	return n.node.Send(msg, done)
}

// OnNode sets the callback invoked whenever a peer is learned about.
func (n *Node) OnNode(fn Handler) {
	n.node.OnNode(fn)
}

// On registers a handler for an application message type.
func (n *Node) On(eventType string, h Handler) error {
	return n.node.On(eventType, h)
}

// Off removes all handlers for eventType.
func (n *Node) Off(eventType string) {
	n.node.Off(eventType)
}

// OffIndex removes the handler registered at position index.
func (n *Node) OffIndex(eventType string, index int) error {
	return n.node.OffIndex(eventType, index)
}

// Listeners reports the handler count for eventType and whether it is
// registered.
func (n *Node) Listeners(eventType string) (int, bool) {
	return n.node.Listeners(eventType)
}

// Close stops listening. Repeated calls are no-ops. Do not call it from a
// callback or handler.
func (n *Node) Close() error {
	return n.node.Close()
}
