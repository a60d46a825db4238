// Package discovery implements the connectionless peer announcement
// protocol: a fixed magic string request answered with a JSON envelope
// carrying the responder's PeerInfo. Discovery is best effort; malformed
// datagrams are dropped and errors never reach the caller.
package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/Dyastin-0/lanlink/events"
	"github.com/Dyastin-0/lanlink/logger"
	"github.com/Dyastin-0/lanlink/types"
)

const (
	// Port is the fixed well-known discovery port.
	Port = 49372

	pingMagic = "LANLINK_PING"
	pongMagic = "LANLINK_PONG"

	broadcastAddr = "255.255.255.255"

	// BurstCount pings at BurstInterval improve the odds of reaching peers
	// across variable network stacks and timing.
	BurstCount    = 3
	BurstInterval = 300 * time.Millisecond

	maxDatagram = 4096
)

type envelope struct {
	T    string         `json:"t"`
	Info types.PeerInfo `json:"info"`
}

// Identity is the slice of the identity resolver discovery needs.
type Identity interface {
	ID() string
	LocalInfo() types.PeerInfo
}

type Service struct {
	port     int
	id       Identity
	emitter  *events.Emitter
	log      logger.Logger
	conn     net.PacketConn
	sendOnly bool
}

type Option func(*Service)

// WithPort overrides the well-known port. Tests bind port 0.
func WithPort(port int) Option {
	return func(s *Service) {
		s.port = port
	}
}

func New(id Identity, emitter *events.Emitter, log logger.Logger, opts ...Option) *Service {
	s := &Service{
		port:    Port,
		id:      id,
		emitter: emitter,
		log:     log,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start binds the discovery socket with broadcast and address reuse enabled
// and begins answering requests. A bind failure is not fatal: the service
// degrades to send-only and can still ping.
func (s *Service) Start(ctx context.Context) error {
	lc := net.ListenConfig{Control: control}

	conn, err := lc.ListenPacket(ctx, "udp4", fmt.Sprintf(":%d", s.port))
	if err != nil {
		s.sendOnly = true
		s.log.WithErr(err).Warn("discovery bind failed, degrading to send-only")
		return nil
	}

	s.conn = conn
	go s.readLoop(ctx)

	return nil
}

// Addr returns the bound socket address, nil in send-only mode.
func (s *Service) Addr() net.Addr {
	if s.conn == nil {
		return nil
	}
	return s.conn.LocalAddr()
}

func (s *Service) Close() error {
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

func (s *Service) readLoop(ctx context.Context) {
	defer s.conn.Close()

	buf := make([]byte, maxDatagram)

	for {
		select {
		case <-ctx.Done():
			return
		default:
			s.conn.SetReadDeadline(time.Now().Add(500 * time.Millisecond))

			n, src, err := s.conn.ReadFrom(buf)
			if err != nil {
				if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
					continue
				}
				return
			}

			s.handleDatagram(buf[:n], src)
		}
	}
}

func (s *Service) handleDatagram(data []byte, src net.Addr) {
	if strings.TrimSpace(string(data)) == pingMagic {
		s.reply(src)
		return
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return
	}

	if env.T != pongMagic || env.Info.ID == "" {
		return
	}

	// Self-discovery filter.
	if env.Info.ID == s.id.ID() {
		return
	}

	s.emitter.Publish(types.Event{
		Type: types.EventPeerDiscovered,
		Peer: &env.Info,
	})
}

// reply answers a request unicast at the observed source address. Every
// request gets a reply; there is no deduplication.
func (s *Service) reply(src net.Addr) {
	info := s.id.LocalInfo()

	data, err := json.Marshal(envelope{T: pongMagic, Info: info})
	if err != nil {
		return
	}

	if _, err := s.conn.WriteTo(data, src); err != nil {
		s.log.WithErr(err).Debug("discovery reply failed")
	}
}

// Ping fires a single wildcard-broadcast request datagram. When the service
// socket is bound the ping originates from it, so responses come back to the
// read loop; in send-only mode the ping still goes out but responses are
// lost, which is the documented degradation.
func (s *Service) Ping() error {
	dst, err := net.ResolveUDPAddr("udp4", fmt.Sprintf("%s:%d", broadcastAddr, s.port))
	if err != nil {
		return err
	}

	if s.conn != nil {
		_, err = s.conn.WriteTo([]byte(pingMagic), dst)
		return err
	}

	lc := net.ListenConfig{Control: control}

	conn, err := lc.ListenPacket(context.Background(), "udp4", ":0")
	if err != nil {
		return err
	}
	defer conn.Close()

	_, err = conn.WriteTo([]byte(pingMagic), dst)
	return err
}

// Burst sends BurstCount pings at fixed intervals.
func (s *Service) Burst(ctx context.Context) error {
	for i := range BurstCount {
		if err := s.Ping(); err != nil {
			return err
		}

		if i == BurstCount-1 {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(BurstInterval):
		}
	}

	return nil
}
