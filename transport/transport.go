// Package transport defines the abstraction the device driver uses to
// exchange wire frames with a bootloader, independent of the physical
// medium (serial point-to-point, CAN bus, or an in-memory simulator for
// tests).
package transport

import (
	"context"
	"time"

	"github.com/franc0r/frankly-fw-update/wire"
	"github.com/rs/zerolog"
)

// DefaultTimeout is the protocol receive timeout used when OpenParams
// does not override it.
const DefaultTimeout = 500 * time.Millisecond

// Mode selects how a network-capable transport addresses frames.
type Mode struct {
	broadcast bool
	nodeID    uint8
}

// Broadcast addresses every node on the bus.
func Broadcast() Mode { return Mode{broadcast: true} }

// Specific addresses a single node by id.
func Specific(nodeID uint8) Mode { return Mode{nodeID: nodeID} }

// IsBroadcast reports whether m addresses every node.
func (m Mode) IsBroadcast() bool { return m.broadcast }

// NodeID returns the addressed node id. Only meaningful when
// !m.IsBroadcast().
func (m Mode) NodeID() uint8 { return m.nodeID }

// OpenParams carries the parameters needed to open any transport
// implementation. Fields unused by a given transport are ignored.
type OpenParams struct {
	Name    string
	Baud    int
	Timeout time.Duration
}

// Option mutates OpenParams; used to build one inline at call sites
// without a large positional constructor.
type Option func(*OpenParams)

// WithBaud sets the serial baud rate.
func WithBaud(baud int) Option {
	return func(p *OpenParams) { p.Baud = baud }
}

// WithTimeout overrides the default protocol receive timeout.
func WithTimeout(d time.Duration) Option {
	return func(p *OpenParams) { p.Timeout = d }
}

// NewOpenParams builds OpenParams for the named port/interface, applying
// opts over the defaults.
func NewOpenParams(name string, opts ...Option) OpenParams {
	p := OpenParams{Name: name, Timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(&p)
	}
	return p
}

// Transport is the medium-independent contract the device driver drives.
type Transport interface {
	// Open connects to the named port/interface.
	Open(ctx context.Context, params OpenParams) error

	// IsNetwork reports whether this transport is shared by multiple
	// nodes (true for CAN) or point-to-point (false for serial).
	IsNetwork() bool

	// ScanNetwork broadcasts a ping and collects the node ids that
	// answer, until no answer arrives for one receive timeout. Returns a
	// NotSupported error on a point-to-point transport.
	ScanNetwork(ctx context.Context) ([]uint8, error)

	// SetMode selects broadcast or a specific node id. In Specific mode a
	// network transport's Receive accepts only that node's responses.
	// Returns a NotSupported error on a point-to-point transport.
	SetMode(mode Mode) error

	// SetTimeout changes the receive timeout used by Receive and
	// ScanNetwork.
	SetTimeout(d time.Duration) error

	// GetTimeout returns the current receive timeout.
	GetTimeout() time.Duration

	// Send transmits one wire message.
	Send(ctx context.Context, msg wire.Message) error

	// Receive waits up to the current timeout for one wire message.
	Receive(ctx context.Context) (wire.Message, error)

	// Close releases the underlying port/socket.
	Close() error

	// SetLogger installs the logger used for per-frame Debug logging. The
	// zero value of zerolog.Logger is not safe to log with; callers that
	// don't want logging should pass zerolog.Nop(), which every
	// implementation also defaults to.
	SetLogger(logger zerolog.Logger)
}
