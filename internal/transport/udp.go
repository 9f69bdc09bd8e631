package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"
)

// ErrNotListening is returned by Send before Listen succeeded.
var ErrNotListening = errors.New("transport not listening")

// ErrClosed is returned by Listen and Send after Close.
var ErrClosed = errors.New("transport closed")

// readPollInterval bounds how long the read loop blocks before checking for
// cancellation.
const readPollInterval = time.Second

// UDP is a datagram adapter over a single IPv4 UDP socket.
type UDP struct {
	host   string
	logger *slog.Logger

	mu     sync.Mutex
	conn   *net.UDPConn
	cancel context.CancelFunc
	wg     sync.WaitGroup
	closed bool
}

// NewUDP creates a UDP adapter that binds on host (empty for all interfaces).
func NewUDP(host string, logger *slog.Logger) *UDP {
	if logger == nil {
		logger = slog.Default()
	}
	return &UDP{
		host:   host,
		logger: logger.With("component", "transport.udp"),
	}
}

// Listen binds the socket on port and starts the read loop. Calling it again
// releases the previous binding first. Port 0 picks an ephemeral port.
func (u *UDP) Listen(port int, handler Handler) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.closed {
		return ErrClosed
	}

	listenAddr := &net.UDPAddr{IP: net.IPv4zero, Port: port}
	if u.host != "" {
		ip := net.ParseIP(u.host)
		if ip == nil {
			return fmt.Errorf("invalid bind host %q", u.host)
		}
		listenAddr.IP = ip
	}

	// Go enables SO_BROADCAST on IPv4 UDP sockets by default.
	conn, err := net.ListenUDP("udp4", listenAddr)
	if err != nil {
		return fmt.Errorf("failed to bind UDP port %d: %w", port, err)
	}

	if err := conn.SetReadBuffer(MaxDatagramSize * 4); err != nil {
		u.logger.Warn("failed to set read buffer", "error", err)
	}

	u.stopLocked()

	ctx, cancel := context.WithCancel(context.Background())
	u.conn = conn
	u.cancel = cancel
	u.wg.Add(1)
	go u.readLoop(ctx, conn, handler)

	u.logger.Info("listening", "addr", conn.LocalAddr().String())
	return nil
}

// LocalAddr returns the bound address, or nil when not listening.
func (u *UDP) LocalAddr() *net.UDPAddr {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.conn == nil {
		return nil
	}
	return u.conn.LocalAddr().(*net.UDPAddr)
}

// Send transmits payload to dst from the bound socket, so the receiver sees
// our listening port as the source port.
func (u *UDP) Send(payload []byte, dst Addr) error {
	u.mu.Lock()
	conn := u.conn
	closed := u.closed
	u.mu.Unlock()

	if closed {
		return ErrClosed
	}
	if conn == nil {
		return ErrNotListening
	}

	ip := net.ParseIP(dst.IP)
	if ip == nil {
		ips, err := net.LookupIP(dst.IP)
		if err != nil || len(ips) == 0 {
			return fmt.Errorf("failed to resolve %s: %w", dst.IP, err)
		}
		ip = ips[0]
	}

	if _, err := conn.WriteToUDP(payload, &net.UDPAddr{IP: ip, Port: dst.Port}); err != nil {
		return fmt.Errorf("failed to send to %s: %w", dst, err)
	}
	return nil
}

// Close releases the socket. Only the first call has any effect.
func (u *UDP) Close() error {
	u.mu.Lock()
	if u.closed {
		u.mu.Unlock()
		return nil
	}
	u.closed = true
	u.stopLocked()
	u.mu.Unlock()

	u.wg.Wait()
	return nil
}

// stopLocked cancels and closes the current binding. Caller must hold u.mu.
func (u *UDP) stopLocked() {
	if u.cancel != nil {
		u.cancel()
		u.cancel = nil
	}
	if u.conn != nil {
		if err := u.conn.Close(); err != nil {
			u.logger.Debug("close failed", "error", err)
		}
		u.conn = nil
	}
}

func (u *UDP) readLoop(ctx context.Context, conn *net.UDPConn, handler Handler) {
	defer u.wg.Done()

	buf := make([]byte, MaxDatagramSize)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		// Periodic deadline so a cancelled loop notices even if Close races.
		if err := conn.SetReadDeadline(time.Now().Add(readPollInterval)); err != nil {
			if ctx.Err() != nil {
				return
			}
		}

		n, addr, err := conn.ReadFromUDP(buf)
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			if ctx.Err() != nil {
				return
			}
			u.logger.Warn("read error", "error", err)
			continue
		}

		payload := make([]byte, n)
		copy(payload, buf[:n])
		handler(payload, Addr{IP: addr.IP.String(), Port: addr.Port})
	}
}
