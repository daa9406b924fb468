// Package relay delivers transfers between nodes over QUIC.
//
// Every transfer travels on its own bidirectional stream: the sender writes a
// Transfer envelope holding the container file and its id, the receiver
// decodes it, recomputes the id and answers with Ack or Reject.
package relay

import (
	"context"
	"crypto/ed25519"
	"crypto/tls"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/quic-go/quic-go"

	"RGBStd/internal/codec"
	"RGBStd/internal/containers"
	"RGBStd/internal/logger"
	"RGBStd/internal/types"
)

const (
	// alpnProtocol is the ALPN protocol identifier.
	alpnProtocol = "rgb-relay/1"

	// defaultTimeout bounds a delivery when the context has no deadline.
	defaultTimeout = 30 * time.Second
)

var (
	// ErrRejected is returned by Send when the receiver refuses the transfer.
	ErrRejected = errors.New("transfer rejected")

	// ErrIDMismatch is returned when the announced and computed ids differ.
	ErrIDMismatch = errors.New("transfer id mismatch")

	// ErrNoHandler is the rejection sent when no transfer handler is set.
	ErrNoHandler = errors.New("no transfer handler")

	// ErrInFlight is the rejection sent while the same transfer is being handled.
	ErrInFlight = errors.New("transfer already in flight")
)

// Handler receives a verified transfer. Returning an error rejects it.
type Handler func(ctx context.Context, from Peer, id containers.TransferID, c *containers.Consignment) error

// Config holds the configuration of a Node.
type Config struct {
	PrivateKey ed25519.PrivateKey // PrivateKey is the node identity
	ListenAddr string             // ListenAddr is the UDP address to listen on, empty for send-only nodes
}

// Node sends transfers and, once started, receives them.
type Node struct {
	privateKey ed25519.PrivateKey // privateKey is the node identity
	listenAddr string             // listenAddr is the address to listen on
	tlsConfig  *tls.Config        // tlsConfig carries the self-signed certificate
	quicConfig *quic.Config       // quicConfig holds the transport settings

	listener *quic.Listener // listener accepts incoming connections

	handler   Handler      // handler receives verified transfers
	handlerMu sync.RWMutex // handlerMu protects handler

	recent *recent // recent holds recently accepted transfer ids

	ctx    context.Context    // ctx is cancelled by Close
	cancel context.CancelFunc // cancel cancels ctx
	wg     sync.WaitGroup     // wg waits for connection goroutines
}

// NewNode creates a node. Call Start to accept transfers.
func NewNode(cfg Config) (*Node, error) {
	if cfg.PrivateKey == nil {
		return nil, errors.New("private key is required")
	}

	cert, err := certificate(cfg.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("generate certificate:\n%w", err)
	}

	tlsConfig := &tls.Config{
		Certificates:       []tls.Certificate{cert},
		ClientAuth:         tls.RequireAnyClientCert,
		InsecureSkipVerify: true, // peers are identified by their key, checked in peerKey
		NextProtos:         []string{alpnProtocol},
		MinVersion:         tls.VersionTLS13,
	}

	quicConfig := &quic.Config{
		MaxIdleTimeout:  30 * time.Second,
		KeepAlivePeriod: 10 * time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Node{
		privateKey: cfg.PrivateKey,
		listenAddr: cfg.ListenAddr,
		tlsConfig:  tlsConfig,
		quicConfig: quicConfig,
		recent:     newRecent(recentTTL),
		ctx:        ctx,
		cancel:     cancel,
	}, nil
}

// PublicKey returns the node identity key.
func (n *Node) PublicKey() ed25519.PublicKey {
	return n.privateKey.Public().(ed25519.PublicKey)
}

// Addr returns the listener address, or "" before Start.
func (n *Node) Addr() string {
	if n.listener == nil {
		return ""
	}

	return n.listener.Addr().String()
}

// OnTransfer sets the handler called for every verified incoming transfer.
func (n *Node) OnTransfer(fn Handler) {
	n.handlerMu.Lock()
	n.handler = fn
	n.handlerMu.Unlock()
}

// Start listens on the configured address and accepts connections.
func (n *Node) Start() error {
	if n.listenAddr == "" {
		return errors.New("listen address is required")
	}

	listener, err := quic.ListenAddr(n.listenAddr, n.tlsConfig, n.quicConfig)
	if err != nil {
		return fmt.Errorf("listen on %s:\n%w", n.listenAddr, err)
	}

	n.listener = listener

	n.wg.Add(1)
	go n.acceptLoop()

	logger.Info("relay listening", "addr", n.Addr())

	return nil
}

// Send delivers c to the node at addr and waits for its answer.
// The returned id is the locally computed one, confirmed by the receiver.
func (n *Node) Send(ctx context.Context, addr string, c *containers.Consignment) (containers.TransferID, error) {
	start := time.Now()

	id, err := c.TransferID()
	if err != nil {
		return id, fmt.Errorf("compute transfer id:\n%w", err)
	}

	payload, err := codec.Encode(c)
	if err != nil {
		return id, fmt.Errorf("encode transfer:\n%w", err)
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, defaultTimeout)
		defer cancel()
	}

	conn, err := quic.DialAddr(ctx, addr, n.tlsConfig, n.quicConfig)
	if err != nil {
		return id, fmt.Errorf("dial %s:\n%w", addr, err)
	}
	defer conn.CloseWithError(0, "done")

	request := &envelope{kind: types.EnvelopeKindTransfer, id: id, payload: payload}

	reply, err := roundTrip(ctx, conn, request.marshal())
	if err != nil {
		return id, err
	}

	switch reply.kind {
	case types.EnvelopeKindAck:
		if reply.id != id {
			return id, fmt.Errorf("%w: sent %s, acknowledged %s", ErrIDMismatch, id, reply.id)
		}
	case types.EnvelopeKindReject:
		return id, fmt.Errorf("%w: %s", ErrRejected, reply.reason)
	default:
		return id, fmt.Errorf("unexpected reply %s", reply.kind)
	}

	logger.Info("transfer delivered", "id", id, "addr", addr, "bytes", len(payload), logger.Timed(start))

	return id, nil
}

// roundTrip writes a request on a new stream and reads the reply.
func roundTrip(ctx context.Context, conn *quic.Conn, data []byte) (*envelope, error) {
	stream, err := conn.OpenStreamSync(ctx)
	if err != nil {
		return nil, fmt.Errorf("open stream:\n%w", err)
	}
	defer stream.Close()

	if deadline, ok := ctx.Deadline(); ok {
		stream.SetDeadline(deadline)
	}

	if err := writeMessage(stream, data); err != nil {
		return nil, fmt.Errorf("write request:\n%w", err)
	}

	raw, err := readMessage(stream)
	if err != nil {
		return nil, fmt.Errorf("read reply:\n%w", err)
	}

	return unmarshalEnvelope(raw)
}

// Close stops accepting transfers and waits for in-flight ones.
func (n *Node) Close() error {
	n.cancel()

	var err error
	if n.listener != nil {
		err = n.listener.Close()
	}

	n.wg.Wait()
	n.recent.close()

	return err
}

// acceptLoop accepts incoming connections until the node is closed.
func (n *Node) acceptLoop() {
	defer n.wg.Done()

	for {
		conn, err := n.listener.Accept(n.ctx)
		if err != nil {
			return
		}

		n.wg.Add(1)
		go func() {
			defer n.wg.Done()
			n.serveConn(conn)
		}()
	}
}

// serveConn handles every stream of a connection.
func (n *Node) serveConn(conn *quic.Conn) {
	key, err := peerKey(conn.ConnectionState().TLS)
	if err != nil {
		logger.Debug("peer rejected", "addr", conn.RemoteAddr(), "error", err)
		conn.CloseWithError(1, "bad certificate")
		return
	}

	peer := Peer{PublicKey: key, Address: conn.RemoteAddr().String()}

	for {
		stream, err := conn.AcceptStream(n.ctx)
		if err != nil {
			return
		}

		n.wg.Add(1)
		go func() {
			defer n.wg.Done()
			n.serveStream(peer, stream)
		}()
	}
}

// serveStream answers a single transfer.
func (n *Node) serveStream(peer Peer, stream *quic.Stream) {
	defer stream.Close()

	stream.SetDeadline(time.Now().Add(defaultTimeout))

	data, err := readMessage(stream)
	if err != nil {
		logger.Debug("stream read error", "peer", peer.Address, "error", err)
		return
	}

	reply := n.receive(peer, data)

	if err := writeMessage(stream, reply.marshal()); err != nil {
		logger.Debug("stream write error", "peer", peer.Address, "error", err)
	}
}

// receive verifies an incoming transfer and returns the reply envelope.
func (n *Node) receive(peer Peer, data []byte) *envelope {
	request, err := unmarshalEnvelope(data)
	if err != nil {
		return reject(containers.TransferID{}, err)
	}

	if request.kind != types.EnvelopeKindTransfer {
		return reject(request.id, fmt.Errorf("unexpected message %s", request.kind))
	}

	c, err := codec.Decode(request.payload)
	if err != nil {
		return reject(request.id, err)
	}

	id, err := c.TransferID()
	if err != nil {
		return reject(request.id, err)
	}

	if id != request.id {
		return reject(request.id, fmt.Errorf("%w: announced %s, computed %s", ErrIDMismatch, request.id, id))
	}

	switch n.recent.claim(id) {
	case accepted:
		logger.Debug("duplicate transfer acknowledged", "id", id, "peer", peer)
		return &envelope{kind: types.EnvelopeKindAck, id: id}
	case inFlight:
		return reject(id, ErrInFlight)
	}

	n.handlerMu.RLock()
	handler := n.handler
	n.handlerMu.RUnlock()

	if handler == nil {
		n.recent.release(id)
		return reject(id, ErrNoHandler)
	}

	if err := handler(n.ctx, peer, id, c); err != nil {
		n.recent.release(id)
		return reject(id, err)
	}

	n.recent.accept(id)

	logger.Info("transfer received", "id", id, "peer", peer)

	return &envelope{kind: types.EnvelopeKindAck, id: id}
}

// reject builds a Reject envelope and logs the reason.
func reject(id containers.TransferID, err error) *envelope {
	logger.Warn("transfer rejected", "id", id, "error", err)

	return &envelope{kind: types.EnvelopeKindReject, id: id, reason: err.Error()}
}
