package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/brensch/mazewar/codec"
	"github.com/brensch/mazewar/game"
	"github.com/brensch/mazewar/player"
)

type HubOption func(*Hub)

func WithLogger(l *slog.Logger) HubOption {
	return func(h *Hub) {
		if l != nil {
			h.log = l
		}
	}
}

// WithCompression lets bots that ask for it switch to zstd frames.
func WithCompression(on bool) HubOption { return func(h *Hub) { h.compression = on } }

func WithHandshakeTimeout(d time.Duration) HubOption {
	return func(h *Hub) { h.handshakeTimeout = d }
}

// Hub accepts bot connections. Mount it on a path and take connected agents
// with Accept.
type Hub struct {
	log              *slog.Logger
	upgrader         websocket.Upgrader
	compression      bool
	handshakeTimeout time.Duration

	agents    chan *RemoteAgent
	done      chan struct{}
	closeOnce sync.Once
}

func NewHub(opts ...HubOption) *Hub {
	h := &Hub{
		log: slog.Default(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			// bots are not browsers
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		handshakeTimeout: 5 * time.Second,
		agents:           make(chan *RemoteAgent),
		done:             make(chan struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Hub) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(rw, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "err", err)
		return
	}
	defer conn.Close()

	a, err := h.handshake(conn)
	if err != nil {
		h.log.Warn("handshake failed", "remote", r.RemoteAddr, "err", err)
		return
	}

	select {
	case h.agents <- a:
	case <-h.done:
		a.w.closeWith(websocket.CloseGoingAway, "referee is not accepting agents")
		return
	case <-r.Context().Done():
		return
	}
	h.log.Info("agent connected", "name", a.Name, "session", a.Session, "remote", r.RemoteAddr, "compression", a.w.compress)
	a.readLoop()
	h.log.Info("agent disconnected", "name", a.Name, "session", a.Session, "err", a.cause)
}

func (h *Hub) handshake(conn *websocket.Conn) (*RemoteAgent, error) {
	w := newWire(conn)
	_ = conn.SetReadDeadline(time.Now().Add(h.handshakeTimeout))
	hello, err := w.recv()
	if err != nil {
		return nil, err
	}
	if hello.Type != TypeHello {
		w.closeWith(websocket.ClosePolicyViolation, "expected hello")
		return nil, fmt.Errorf("%w: got %q before hello", ErrProtocol, hello.Type)
	}
	if hello.ProtocolVersion != ProtocolVersion {
		w.closeWith(websocket.ClosePolicyViolation, "bad protocol_version")
		return nil, fmt.Errorf("%w: protocol version %q, want %q", ErrProtocol, hello.ProtocolVersion, ProtocolVersion)
	}
	_ = conn.SetReadDeadline(time.Time{})

	name := hello.Name
	if name == "" {
		name = "bot"
	}
	compress := h.compression && hello.Compression
	welcome := Message{Type: TypeWelcome, ProtocolVersion: ProtocolVersion, Session: uuid.NewString(), Compression: compress}
	if err := w.send(welcome); err != nil {
		return nil, err
	}
	w.compress = compress
	return newRemoteAgent(name, welcome.Session, w, h.log), nil
}

// Accept waits for the next bot to finish its handshake.
func (h *Hub) Accept(ctx context.Context) (*RemoteAgent, error) {
	select {
	case a := <-h.agents:
		return a, nil
	case <-h.done:
		return nil, ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close stops handing out agents. Connected agents stay open.
func (h *Hub) Close() {
	h.closeOnce.Do(func() { close(h.done) })
}

var errClosedByReferee = errors.New("closed by referee")

// RemoteAgent is a player.Agent played by a connected bot. Requests carry a
// fresh id; a response for a request that already gave up is dropped.
type RemoteAgent struct {
	Name    string
	Session string

	w   *wire
	log *slog.Logger

	mu      sync.Mutex
	pending map[string]chan Message

	closed    chan struct{}
	closeOnce sync.Once
	cause     error
}

func newRemoteAgent(name, session string, w *wire, log *slog.Logger) *RemoteAgent {
	return &RemoteAgent{
		Name:    name,
		Session: session,
		w:       w,
		log:     log.With("agent", name, "session", session),
		pending: make(map[string]chan Message),
		closed:  make(chan struct{}),
	}
}

func (a *RemoteAgent) Init(ctx context.Context, v player.View) error {
	_, err := a.request(ctx, ActionInit, &v)
	return err
}

func (a *RemoteAgent) GetMove(ctx context.Context, v player.View) (game.Move, error) {
	resp, err := a.request(ctx, ActionGetMove, &v)
	if err != nil {
		return game.Stop, err
	}
	m, err := game.ParseMove(resp.Move)
	if err != nil {
		return game.Stop, fmt.Errorf("%w: %v", ErrAgent, err)
	}
	return m, nil
}

// Done is closed once the connection is gone.
func (a *RemoteAgent) Done() <-chan struct{} { return a.closed }

// Close says goodbye to the bot and closes the connection.
func (a *RemoteAgent) Close() error {
	select {
	case <-a.closed:
		return nil
	default:
	}
	_ = a.w.send(Message{Type: TypeRequest, ID: uuid.NewString(), Action: ActionBye})
	err := a.w.closeWith(websocket.CloseNormalClosure, "game over")
	a.fail(errClosedByReferee)
	return err
}

func (a *RemoteAgent) request(ctx context.Context, action string, v *player.View) (Message, error) {
	select {
	case <-a.closed:
		return Message{}, a.closedErr()
	default:
	}

	req := Message{Type: TypeRequest, ID: uuid.NewString(), Action: action}
	if v != nil {
		b, err := codec.Marshal(*v)
		if err != nil {
			return Message{}, err
		}
		req.View = b
	}

	ch := make(chan Message, 1)
	a.mu.Lock()
	a.pending[req.ID] = ch
	a.mu.Unlock()
	defer func() {
		a.mu.Lock()
		delete(a.pending, req.ID)
		a.mu.Unlock()
	}()

	if err := a.w.send(req); err != nil {
		a.fail(err)
		return Message{}, a.closedErr()
	}

	select {
	case resp := <-ch:
		if resp.Error != "" {
			return resp, fmt.Errorf("%w: %s", ErrAgent, resp.Error)
		}
		return resp, nil
	case <-a.closed:
		return Message{}, a.closedErr()
	case <-ctx.Done():
		return Message{}, ctx.Err()
	}
}

func (a *RemoteAgent) readLoop() {
	for {
		m, err := a.w.recv()
		if errors.Is(err, ErrProtocol) {
			a.log.Warn("dropping bad frame", "err", err)
			continue
		}
		if err != nil {
			a.fail(err)
			return
		}
		if m.Type != TypeResponse {
			a.log.Warn("dropping unexpected message", "type", m.Type)
			continue
		}
		a.mu.Lock()
		ch, ok := a.pending[m.ID]
		a.mu.Unlock()
		if !ok {
			a.log.Debug("dropping late response", "id", m.ID)
			continue
		}
		select {
		case ch <- m:
		default:
		}
	}
}

func (a *RemoteAgent) fail(err error) {
	a.closeOnce.Do(func() {
		a.cause = err
		close(a.closed)
		a.w.conn.Close()
	})
}

func (a *RemoteAgent) closedErr() error {
	return fmt.Errorf("%w: %v", ErrClosed, a.cause)
}
