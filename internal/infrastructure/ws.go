package infra

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

// WSHandler processes messages of one websocket connection
type WSHandler interface {
	// HandleMessage reads and handles one message, a non-nil error ends the connection
	HandleMessage(conn *WSConn) error
	// Close releases resources owned by the handler
	Close()
}

// WSConn a websocket connection safe for concurrent writers
type WSConn struct {
	*websocket.Conn
	mu sync.Mutex
}

// WriteJSON serialises v as one text frame
func (wc *WSConn) WriteJSON(v interface{}) error {
	wc.mu.Lock()
	defer wc.mu.Unlock()
	wc.Conn.SetWriteDeadline(time.Now().Add(writeWait))
	return wc.Conn.WriteJSON(v)
}

// WriteMessage writes one frame of type mt
func (wc *WSConn) WriteMessage(mt int, data []byte) error {
	wc.mu.Lock()
	defer wc.mu.Unlock()
	wc.Conn.SetWriteDeadline(time.Now().Add(writeWait))
	return wc.Conn.WriteMessage(mt, data)
}

const (
	writeWait    = 10 * time.Second
	pongWait     = 30 * time.Second
	pingInterval = pongWait * 9 / 10
)

// Websocket upgrades http requests and keeps the connections alive
type Websocket struct {
	upgrader     websocket.Upgrader
	pongWait     time.Duration
	pingInterval time.Duration
}

// NewWebsocket create a Websocket with default timings
func NewWebsocket() *Websocket {
	return &Websocket{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			HandshakeTimeout: 3 * time.Second,
		},
		pongWait:     pongWait,
		pingInterval: pingInterval,
	}
}

// WithHeartbeat wrap handler factory with heartbeat probe, the factory is called once per connection
func (ws *Websocket) WithHeartbeat(factory func(c echo.Context, conn *WSConn) WSHandler) echo.HandlerFunc {
	return func(c echo.Context) error {
		raw, err := ws.upgrader.Upgrade(c.Response(), c.Request(), nil)
		if err != nil {
			// the upgrader already replied
			return nil
		}

		conn := &WSConn{Conn: raw}
		handler := factory(c, conn)
		done := make(chan struct{})
		raw.SetReadDeadline(time.Now().Add(ws.pongWait))
		raw.SetPongHandler(func(string) error {
			raw.SetReadDeadline(time.Now().Add(ws.pongWait))
			return nil
		})

		go ws.heartbeatRoutine(conn, done)
		go ws.processRoutine(conn, handler, done)
		return nil
	}
}

func (ws *Websocket) heartbeatRoutine(conn *WSConn, done <-chan struct{}) {
	ticker := time.NewTicker(ws.pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				conn.Close()
				return
			}
		}
	}
}

func (ws *Websocket) processRoutine(conn *WSConn, handler WSHandler, done chan<- struct{}) {
	defer func() {
		close(done)
		handler.Close()
		conn.Close()
	}()
	for {
		if err := handler.HandleMessage(conn); err != nil {
			break
		}
	}
}
