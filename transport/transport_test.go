package transport

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/brensch/mazewar/game"
	"github.com/brensch/mazewar/layout"
	"github.com/brensch/mazewar/logging"
	"github.com/brensch/mazewar/player"
	"github.com/brensch/mazewar/referee"
)

func startHub(t *testing.T, opts ...HubOption) (*Hub, string) {
	t.Helper()
	opts = append([]HubOption{WithLogger(logging.Discard())}, opts...)
	h := NewHub(opts...)
	srv := httptest.NewServer(h)
	t.Cleanup(func() {
		h.Close()
		srv.Close()
	})
	return h, "ws" + strings.TrimPrefix(srv.URL, "http")
}

// connect dials url, starts serving agent and returns the referee's side.
func connect(t *testing.T, h *Hub, url string, agent player.Agent, compress bool) (*RemoteAgent, *Conn, <-chan error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	accepted := make(chan *RemoteAgent, 1)
	go func() {
		a, err := h.Accept(ctx)
		if err == nil {
			accepted <- a
		}
		close(accepted)
	}()
	c, err := Dial(ctx, url, "tester", DialOptions{Compression: compress, Logger: logging.Discard()})
	if err != nil {
		t.Fatal(err)
	}
	served := make(chan error, 1)
	go func() { served <- Serve(context.Background(), c, agent) }()

	ra, ok := <-accepted
	if !ok {
		t.Fatal("hub did not hand out the agent")
	}
	t.Cleanup(func() { ra.Close() })
	return ra, c, served
}

func view(t *testing.T) player.View {
	t.Helper()
	l, err := layout.Get("small", 4)
	if err != nil {
		t.Fatal(err)
	}
	u, err := game.NewCTFUniverse(l)
	if err != nil {
		t.Fatal(err)
	}
	return player.View{Index: 0, Current: u}
}

func TestFrameValidation(t *testing.T) {
	bad := []string{
		`not json`,
		`{"name":"x"}`,
		`{"type":"shout"}`,
		`{"type":"hello","name":"x"}`,
		`{"type":"request","id":"1","action":"get_move"}`,
		`{"type":"request","id":"1","action":"dance"}`,
		`{"type":"response","id":"1"}`,
		`{"type":"response","id":"1","move":"north","error":"both"}`,
		`{"type":"request","id":"1","action":"init","view":{"type_id":"game.Universe","value":{}}}`,
	}
	for _, doc := range bad {
		if _, err := DecodeFrame(websocket.TextMessage, []byte(doc)); !errors.Is(err, ErrProtocol) {
			t.Errorf("%s: err = %v", doc, err)
		}
	}
	if _, err := DecodeFrame(websocket.BinaryMessage, []byte(`{"type":"bye"}`)); !errors.Is(err, ErrProtocol) {
		t.Errorf("uncompressed binary frame: err = %v", err)
	}

	good := Message{Type: TypeResponse, ID: "abc", Move: "north"}
	for _, compress := range []bool{false, true} {
		typ, b, err := EncodeFrame(good, compress)
		if err != nil {
			t.Fatal(err)
		}
		if compress != (typ == websocket.BinaryMessage) {
			t.Fatalf("compress=%v gave frame type %d", compress, typ)
		}
		got, err := DecodeFrame(typ, b)
		if err != nil {
			t.Fatal(err)
		}
		if got.ID != "abc" || got.Move != "north" {
			t.Fatalf("got %+v", got)
		}
	}
}

func TestRemoteAgentRoundTrip(t *testing.T) {
	for _, compress := range []bool{false, true} {
		h, url := startHub(t, WithCompression(true))
		ra, c, _ := connect(t, h, url, player.NewScripted(game.South, game.East), compress)
		if c.Compression != compress || ra.w.compress != compress {
			t.Fatalf("compression negotiated %v/%v, want %v", c.Compression, ra.w.compress, compress)
		}
		if ra.Session == "" || ra.Session != c.Session || ra.Name != "tester" {
			t.Fatalf("session %q/%q name %q", ra.Session, c.Session, ra.Name)
		}

		ctx := context.Background()
		v := view(t)
		if err := ra.Init(ctx, v); err != nil {
			t.Fatal(err)
		}
		for _, want := range []game.Move{game.South, game.East} {
			if m, err := ra.GetMove(ctx, v); err != nil || m != want {
				t.Fatalf("GetMove = %v, %v; want %v", m, err, want)
			}
		}
		if _, err := ra.GetMove(ctx, v); !errors.Is(err, ErrAgent) || !strings.Contains(err.Error(), "no moves left") {
			t.Fatalf("exhausted agent err = %v", err)
		}
	}
}

func TestHubWithoutCompressionRefusesIt(t *testing.T) {
	h, url := startHub(t)
	ra, c, _ := connect(t, h, url, player.Stopping{}, true)
	if c.Compression || ra.w.compress {
		t.Fatal("hub without compression must not enable it")
	}
}

// slowFirst answers its first request late.
type slowFirst struct {
	mu    sync.Mutex
	calls int
}

func (s *slowFirst) Init(context.Context, player.View) error { return nil }

func (s *slowFirst) GetMove(context.Context, player.View) (game.Move, error) {
	s.mu.Lock()
	s.calls++
	n := s.calls
	s.mu.Unlock()
	if n == 1 {
		time.Sleep(200 * time.Millisecond)
		return game.North, nil
	}
	return game.South, nil
}

func TestLateResponseIsDropped(t *testing.T) {
	h, url := startHub(t)
	ra, _, _ := connect(t, h, url, &slowFirst{}, false)
	v := view(t)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := ra.GetMove(ctx, v); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("slow move err = %v", err)
	}
	m, err := ra.GetMove(context.Background(), v)
	if err != nil || m != game.South {
		t.Fatalf("second move = %v, %v; the late north must not be used", m, err)
	}
}

func TestClosedConnectionFailsFast(t *testing.T) {
	h, url := startHub(t)
	ra, c, served := connect(t, h, url, player.Stopping{}, false)
	c.Close()
	<-served

	select {
	case <-ra.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("hub never noticed the closed connection")
	}
	start := time.Now()
	if _, err := ra.GetMove(context.Background(), view(t)); !errors.Is(err, ErrClosed) {
		t.Fatalf("err = %v, want ErrClosed", err)
	}
	if time.Since(start) > time.Second {
		t.Fatal("request on a closed connection should not wait")
	}
}

func TestByeEndsServe(t *testing.T) {
	h, url := startHub(t)
	ra, _, served := connect(t, h, url, player.Stopping{}, false)
	if err := ra.Close(); err != nil {
		t.Logf("close: %v", err)
	}
	select {
	case err := <-served:
		if err != nil {
			t.Fatalf("Serve = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after bye")
	}
}

func TestHandshakeRejectsBadVersion(t *testing.T) {
	_, url := startHub(t)
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	conn.WriteJSON(Message{Type: TypeHello, ProtocolVersion: "0", Name: "old"})
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, _, err = conn.ReadMessage()
	if !websocket.IsCloseError(err, websocket.ClosePolicyViolation) {
		t.Fatalf("err = %v, want policy violation close", err)
	}
}

func TestAcceptAfterClose(t *testing.T) {
	h := NewHub(WithLogger(logging.Discard()))
	h.Close()
	if _, err := h.Accept(context.Background()); !errors.Is(err, ErrClosed) {
		t.Fatalf("err = %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewHub().Accept(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v", err)
	}
}

func TestRemoteGameMatchesLocalGame(t *testing.T) {
	const rounds = 20
	l, err := layout.Get("corridor", 2)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	local, err := referee.New(l, 2, rounds, referee.WithLogger(logging.Discard()))
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 2; i++ {
		if _, err := local.Register(ctx, player.NewBFS()); err != nil {
			t.Fatal(err)
		}
	}
	if err := local.Play(ctx); err != nil {
		t.Fatal(err)
	}

	h, url := startHub(t, WithCompression(true))
	remote, err := referee.New(l, 2, rounds, referee.WithLogger(logging.Discard()), referee.WithMoveTimeout(5*time.Second))
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 2; i++ {
		ra, _, _ := connect(t, h, url, player.NewBFS(), i == 1)
		if slot, err := remote.Register(ctx, ra); err != nil || slot != i {
			t.Fatalf("register = %d, %v", slot, err)
		}
	}
	if err := remote.Play(ctx); err != nil {
		t.Fatal(err)
	}

	if len(remote.Events()) != len(local.Events()) {
		t.Fatalf("remote events %v\nlocal events %v", remote.Events(), local.Events())
	}
	if !remote.Universe().Equal(local.Universe()) {
		t.Fatalf("remote game diverged:\n%s\nlocal:\n%s", remote.Universe(), local.Universe())
	}
}
