// Package transport lets agents play from another process. The referee side
// is a Hub handing out RemoteAgents; the bot side dials in and Serves a local
// player.Agent.
//
// Every frame is one JSON Message, validated against message.schema.json.
// After the handshake both sides may switch to zstd-compressed binary frames.
package transport

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/klauspost/compress/zstd"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

const ProtocolVersion = "1"

// Message types.
const (
	TypeHello    = "hello"
	TypeWelcome  = "welcome"
	TypeRequest  = "request"
	TypeResponse = "response"
)

// Request actions.
const (
	ActionInit    = "init"
	ActionGetMove = "get_move"
	ActionBye     = "bye"
)

const (
	maxMessage = 8 << 20
	writeWait  = 5 * time.Second
)

var (
	// ErrProtocol is returned for frames that do not decode or fail the schema.
	ErrProtocol = errors.New("transport: protocol violation")
	// ErrClosed is returned for requests on a connection that has gone away.
	ErrClosed = errors.New("transport: connection closed")
	// ErrAgent wraps an error reported by the remote agent.
	ErrAgent = errors.New("transport: remote agent error")
)

// Message is the single envelope for every frame; Type says which fields are
// set.
type Message struct {
	Type            string          `json:"type"`
	ProtocolVersion string          `json:"protocol_version,omitempty"`
	Name            string          `json:"name,omitempty"`
	Compression     bool            `json:"compression,omitempty"`
	Session         string          `json:"session,omitempty"`
	ID              string          `json:"id,omitempty"`
	Action          string          `json:"action,omitempty"`
	View            json.RawMessage `json:"view,omitempty"`
	Move            string          `json:"move,omitempty"`
	Error           string          `json:"error,omitempty"`
}

//go:embed message.schema.json
var schemaText string

var messageSchema = jsonschema.MustCompileString("message.schema.json", schemaText)

var (
	zenc *zstd.Encoder
	zdec *zstd.Decoder
)

func init() {
	var err error
	if zenc, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest)); err != nil {
		panic(err)
	}
	if zdec, err = zstd.NewReader(nil, zstd.WithDecoderMaxMemory(maxMessage)); err != nil {
		panic(err)
	}
}

// EncodeFrame returns the websocket message type and payload for m.
func EncodeFrame(m Message, compress bool) (int, []byte, error) {
	b, err := json.Marshal(m)
	if err != nil {
		return 0, nil, err
	}
	if compress {
		return websocket.BinaryMessage, zenc.EncodeAll(b, nil), nil
	}
	return websocket.TextMessage, b, nil
}

// DecodeFrame accepts text frames and compressed binary frames alike.
func DecodeFrame(typ int, b []byte) (Message, error) {
	if typ == websocket.BinaryMessage {
		raw, err := zdec.DecodeAll(b, nil)
		if err != nil {
			return Message{}, fmt.Errorf("%w: zstd: %v", ErrProtocol, err)
		}
		b = raw
	}
	var doc any
	if err := json.Unmarshal(b, &doc); err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrProtocol, err)
	}
	if err := messageSchema.Validate(doc); err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrProtocol, err)
	}
	var m Message
	if err := json.Unmarshal(b, &m); err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrProtocol, err)
	}
	return m, nil
}

// wire owns one websocket connection. Reads happen on a single goroutine;
// writes are serialised by wmu.
type wire struct {
	conn     *websocket.Conn
	compress bool

	wmu sync.Mutex
}

func newWire(conn *websocket.Conn) *wire {
	conn.SetReadLimit(maxMessage)
	return &wire{conn: conn}
}

func (w *wire) send(m Message) error {
	typ, b, err := EncodeFrame(m, w.compress)
	if err != nil {
		return err
	}
	w.wmu.Lock()
	defer w.wmu.Unlock()
	_ = w.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return w.conn.WriteMessage(typ, b)
}

func (w *wire) recv() (Message, error) {
	typ, b, err := w.conn.ReadMessage()
	if err != nil {
		return Message{}, err
	}
	return DecodeFrame(typ, b)
}

// closeWith sends a close frame and closes the connection.
func (w *wire) closeWith(code int, reason string) error {
	w.wmu.Lock()
	_ = w.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), time.Now().Add(time.Second))
	w.wmu.Unlock()
	return w.conn.Close()
}
