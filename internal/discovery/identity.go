package discovery

import "github.com/google/uuid"

const (
	// DefaultPort is the default UDP port nodes listen and broadcast on
	DefaultPort = 3024
	// DefaultBroadcastAddress is the IPv4 limited broadcast address
	DefaultBroadcastAddress = "255.255.255.255"
)

// Identity is a node's self-description, sent on ping, pong and broadcast.
type Identity struct {
	ID               string `json:"id"`
	Role             string `json:"role,omitempty"`
	Name             string `json:"name,omitempty"`
	Port             int    `json:"port,omitempty"`
	BroadcastAddress string `json:"broadcastAddress,omitempty"`
}

// Options is the setup passed to Configure. Zero values select defaults;
// an empty ID keeps the node's current one.
type Options struct {
	ID               string
	Port             int
	BroadcastAddress string
	Role             string
	Name             string
}

// NewID returns a fresh random node identifier.
func NewID() string {
	return uuid.New().String()
}

// apply returns the identity that results from configuring cur with opts.
func (opts Options) apply(cur Identity) Identity {
	next := Identity{
		ID:               cur.ID,
		Role:             opts.Role,
		Name:             opts.Name,
		Port:             opts.Port,
		BroadcastAddress: opts.BroadcastAddress,
	}
	if opts.ID != "" {
		next.ID = opts.ID
	}
	if next.ID == "" {
		next.ID = NewID()
	}
	if next.Port == 0 {
		next.Port = DefaultPort
	}
	if next.BroadcastAddress == "" {
		next.BroadcastAddress = DefaultBroadcastAddress
	}
	return next
}

// HasRole reports whether the identity declared a role.
func (id Identity) HasRole() bool {
	return id.Role != ""
}

// Label is a short human-readable form for logs.
func (id Identity) Label() string {
	short := id.ID
	if len(short) > 8 {
		short = short[:8]
	}
	if id.Name != "" {
		return id.Name + " (" + short + ")"
	}
	return short
}
