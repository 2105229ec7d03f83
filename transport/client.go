package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/brensch/mazewar/codec"
	"github.com/brensch/mazewar/game"
	"github.com/brensch/mazewar/player"
)

type DialOptions struct {
	// Compression asks the referee for zstd frames.
	Compression bool
	Header      http.Header
	Logger      *slog.Logger
}

// Conn is the bot side of a connection to a referee.
type Conn struct {
	Session     string
	Compression bool

	w   *wire
	log *slog.Logger
}

// Dial connects to a referee hub and performs the handshake.
func Dial(ctx context.Context, url, name string, opts DialOptions) (*Conn, error) {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, opts.Header)
	if err != nil {
		return nil, fmt.Errorf("transport: dial %s: %w", url, err)
	}
	w := newWire(conn)

	hello := Message{Type: TypeHello, ProtocolVersion: ProtocolVersion, Name: name, Compression: opts.Compression}
	if err := w.send(hello); err != nil {
		conn.Close()
		return nil, fmt.Errorf("transport: send hello: %w", err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetReadDeadline(deadline)
	}
	welcome, err := w.recv()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("transport: read welcome: %w", err)
	}
	_ = conn.SetReadDeadline(time.Time{})
	if welcome.Type != TypeWelcome {
		w.closeWith(websocket.ClosePolicyViolation, "expected welcome")
		return nil, fmt.Errorf("%w: got %q instead of welcome", ErrProtocol, welcome.Type)
	}
	w.compress = welcome.Compression
	return &Conn{
		Session:     welcome.Session,
		Compression: welcome.Compression,
		w:           w,
		log:         log.With("session", welcome.Session),
	}, nil
}

func (c *Conn) Close() error {
	return c.w.closeWith(websocket.CloseNormalClosure, "bot leaving")
}

// Serve answers the referee's requests with agent until the referee says
// bye, the connection closes or ctx is done. Requests are handled one at a
// time.
func Serve(ctx context.Context, c *Conn, agent player.Agent) error {
	stop := context.AfterFunc(ctx, func() { c.w.conn.Close() })
	defer stop()

	for {
		req, err := c.w.recv()
		if errors.Is(err, ErrProtocol) {
			c.log.Warn("dropping bad frame", "err", err)
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return err
		}
		if req.Type != TypeRequest {
			c.log.Warn("dropping unexpected message", "type", req.Type)
			continue
		}
		if req.Action == ActionBye {
			c.log.Info("referee said bye")
			return nil
		}

		resp := Message{Type: TypeResponse, ID: req.ID}
		move, err := answer(ctx, agent, req)
		if err != nil {
			c.log.Warn("agent failed", "action", req.Action, "err", err)
			resp.Error = err.Error()
		} else {
			resp.Move = move.String()
		}
		if err := c.w.send(resp); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
	}
}

func answer(ctx context.Context, agent player.Agent, req Message) (move game.Move, err error) {
	defer func() {
		if p := recover(); p != nil {
			move, err = game.Stop, fmt.Errorf("agent panicked: %v", p)
		}
	}()
	decoded, err := codec.Unmarshal(req.View)
	if err != nil {
		return game.Stop, err
	}
	v, ok := decoded.(player.View)
	if !ok {
		return game.Stop, fmt.Errorf("%w: view decoded to %T", ErrProtocol, decoded)
	}
	switch req.Action {
	case ActionInit:
		return game.Stop, agent.Init(ctx, v)
	case ActionGetMove:
		return agent.GetMove(ctx, v)
	}
	return game.Stop, fmt.Errorf("%w: unknown action %q", ErrProtocol, req.Action)
}
