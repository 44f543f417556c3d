package server

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"

	"citysim/engine/internal/logging"
)

// Envelope is the frame exchanged in both directions on the websocket.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func encode(t string, data any) ([]byte, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Type: t, Payload: payload})
}

type directMsg struct {
	to  *client
	msg []byte
}

type client struct {
	id   string
	name string
	conn *websocket.Conn
	send chan []byte
}

// Hub fans broadcasts out to every connected client. A client whose send
// buffer is full is dropped rather than slowing the tick loop. Until start
// is called the hub refuses clients and discards messages.
type Hub struct {
	clients    map[*client]bool
	register   chan *client
	unregister chan *client
	broadcast  chan []byte
	direct     chan directMsg
	started    chan struct{}
	done       chan struct{}
	startOnce  sync.Once

	log     logging.Logger
	onCount func(int)
}

func newHub(log logging.Logger, onCount func(int)) *Hub {
	return &Hub{
		clients:    map[*client]bool{},
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan []byte, 256),
		direct:     make(chan directMsg, 16),
		started:    make(chan struct{}),
		done:       make(chan struct{}),
		log:        log,
		onCount:    onCount,
	}
}

// start launches the event loop once; later calls are no-ops.
func (h *Hub) start(ctx context.Context) {
	h.startOnce.Do(func() {
		close(h.started)
		go h.run(ctx)
	})
}

func (h *Hub) running() bool {
	select {
	case <-h.started:
		return true
	default:
		return false
	}
}

func (h *Hub) run(ctx context.Context) {
	defer func() {
		for c := range h.clients {
			delete(h.clients, c)
			close(c.send)
		}
		h.onCount(0)
		close(h.done)
	}()
	for {
		select {
		case <-ctx.Done():
			return
		case c := <-h.register:
			h.clients[c] = true
			h.onCount(len(h.clients))
		case c := <-h.unregister:
			if h.clients[c] {
				delete(h.clients, c)
				close(c.send)
				h.onCount(len(h.clients))
			}
		case msg := <-h.broadcast:
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					h.log.Warn(ctx, "dropping slow client", logging.String("client", c.id))
					delete(h.clients, c)
					close(c.send)
				}
			}
			h.onCount(len(h.clients))
		case d := <-h.direct:
			if h.clients[d.to] {
				select {
				case d.to.send <- d.msg:
				default:
				}
			}
		}
	}
}

// join registers c. It reports false before start and once the hub has
// stopped.
func (h *Hub) join(c *client) bool {
	if !h.running() {
		return false
	}
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) leave(c *client) {
	if !h.running() {
		return
	}
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

func (h *Hub) publish(msg []byte) {
	if !h.running() {
		return
	}
	select {
	case h.broadcast <- msg:
	case <-h.done:
	}
}

// sendTo queues msg for a single client; it is dropped if the client is gone
// or not keeping up.
func (h *Hub) sendTo(c *client, msg []byte) {
	if !h.running() {
		return
	}
	select {
	case h.direct <- directMsg{to: c, msg: msg}:
	case <-h.done:
	}
}

// reader decodes client actions and hands them to handle until the
// connection fails.
func (c *client) reader(h *Hub, handle func(*client, Envelope)) {
	defer func() {
		h.leave(c)
		c.conn.Close()
	}()
	c.conn.SetReadLimit(64 << 10)
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var env Envelope
		if json.Unmarshal(data, &env) != nil {
			continue
		}
		handle(c, env)
	}
}

func (c *client) writer() {
	defer c.conn.Close()
	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
	c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}
