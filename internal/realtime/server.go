package realtime

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"shellbridge/internal/protocol"
	"shellbridge/internal/shell"
	"shellbridge/internal/tools"
	"shellbridge/internal/watcher"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	pingInterval  = 30 * time.Second
	readDeadline  = 60 * time.Second
	writeDeadline = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow localhost origins for dev.
	},
}

// Server routes client requests onto the shell session, the file-operations
// tool, and the workspace watcher. The session accepts one command at a
// time; concurrency control lives there, not here.
type Server struct {
	session   *shell.Session
	fileOps   *tools.FileOps
	fileWatch *watcher.Watcher
	logger    *zap.Logger

	clients   map[*client]bool
	clientsMu sync.RWMutex
}

type client struct {
	id     string
	conn   *websocket.Conn
	send   chan []byte
	server *Server
}

// New creates a realtime server around one shell session.
func New(session *shell.Session, fileOps *tools.FileOps, fileWatch *watcher.Watcher, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		session:   session,
		fileOps:   fileOps,
		fileWatch: fileWatch,
		logger:    logger,
		clients:   make(map[*client]bool),
	}
}

// Handler returns an http.Handler with all routes configured.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// WebSocket endpoint.
	mux.HandleFunc("/ws", s.handleWebSocket)

	// REST API endpoints.
	mux.HandleFunc("POST /shell/execute", s.handleExecute)
	mux.HandleFunc("POST /shell/drain", s.handleDrain)
	mux.HandleFunc("POST /shell/interrupt", s.handleInterrupt)
	mux.HandleFunc("POST /shell/reset", s.handleReset)
	mux.HandleFunc("GET /shell/status", s.handleStatus)
	mux.HandleFunc("POST /files", s.handleFileOperation)
	mux.HandleFunc("GET /files/tree", s.handleFileTree)

	return corsMiddleware(mux)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// handleWebSocket upgrades an HTTP connection to WebSocket.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade error", zap.Error(err))
		return
	}

	c := &client{
		id:     uuid.New().String(),
		conn:   conn,
		send:   make(chan []byte, 256),
		server: s,
	}

	s.clientsMu.Lock()
	s.clients[c] = true
	s.clientsMu.Unlock()

	s.logger.Info("client connected", zap.String("client_id", c.id))

	// Send current session state to the new client.
	s.sendState(c)

	go c.writePump()
	go c.readPump()
}

// readPump reads messages from the WebSocket connection.
func (c *client) readPump() {
	defer func() {
		c.server.removeClient(c)
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(readDeadline))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(readDeadline))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.server.logger.Warn("websocket read error", zap.Error(err))
			}
			return
		}

		c.server.handleMessage(c, message)
	}
}

// writePump writes messages to the WebSocket connection.
func (c *client) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// removeClient cleans up a disconnected client.
func (s *Server) removeClient(c *client) {
	s.clientsMu.Lock()
	delete(s.clients, c)
	s.clientsMu.Unlock()

	close(c.send)
	s.logger.Info("client disconnected", zap.String("client_id", c.id))
}

// handleMessage processes a validated client message. Execute is dispatched
// to its own goroutine: it blocks until the command resolves, and the read
// loop must stay free so an interrupt arriving on the same connection is
// acted on without waiting for the timeout.
func (s *Server) handleMessage(c *client, raw []byte) {
	msg, err := protocol.ValidateClientMessage(raw)
	if err != nil {
		s.sendError(c, protocol.ErrInvalidMessage, err.Error())
		return
	}

	switch msg.Type {
	case protocol.TypeShellExecute:
		go s.handleWSExecute(c, msg)
	case protocol.TypeShellDrain:
		s.handleWSDrain(c)
	case protocol.TypeShellInterrupt:
		s.handleWSInterrupt(c)
	case protocol.TypeShellReset:
		s.handleWSReset(c)
	case protocol.TypeShellStatus:
		s.sendState(c)
	case protocol.TypeFilesRequestTree:
		s.handleWSFilesTree(c)
	}
}

func (s *Server) handleWSExecute(c *client, msg *protocol.Message) {
	var payload protocol.ShellExecutePayload
	json.Unmarshal(msg.Payload, &payload)

	res, err := s.session.Execute(payload.Command, time.Duration(payload.TimeoutMs)*time.Millisecond)
	if err != nil {
		s.sendError(c, errorCode(err), err.Error())
		return
	}
	s.sendResult(c, "execute", res)
}

func (s *Server) handleWSDrain(c *client) {
	res, err := s.session.ContinueDraining()
	if err != nil {
		s.sendError(c, errorCode(err), err.Error())
		return
	}
	s.sendResult(c, "drain", res)
}

func (s *Server) handleWSInterrupt(c *client) {
	res, err := s.session.Interrupt()
	if err != nil {
		s.sendError(c, errorCode(err), err.Error())
		return
	}
	s.sendResult(c, "interrupt", res)
}

func (s *Server) handleWSReset(c *client) {
	res := s.session.Reset()
	s.sendResult(c, "reset", res)
}

func (s *Server) handleWSFilesTree(c *client) {
	tree := watcher.BuildFileTree(s.fileWatch.WorkDir())

	msg, _ := protocol.NewMessage(protocol.TypeFilesTree, protocol.FilesTreePayload{Tree: tree})
	s.sendTo(c, msg)
}

// sendState sends the current session state to a client.
func (s *Server) sendState(c *client) {
	info := s.session.Status()
	msg, err := protocol.NewMessage(protocol.TypeShellState, protocol.ShellStatePayload{
		State:          string(info.State),
		Alive:          info.Alive,
		CommandsRun:    info.CommandsRun,
		PendingCommand: info.PendingCommand,
	})
	if err != nil {
		return
	}
	s.sendTo(c, msg)
}

func (s *Server) sendResult(c *client, op string, res shell.Result) {
	msg, err := protocol.NewMessage(protocol.TypeShellResult, protocol.ShellResultPayload{
		Op:       op,
		Status:   string(res.Status),
		Output:   res.Output,
		ExitCode: res.ExitCode,
	})
	if err != nil {
		return
	}
	s.sendTo(c, msg)
}

func (s *Server) sendError(c *client, code, message string) {
	msg, _ := protocol.NewErrorMessage(code, message)
	s.sendTo(c, msg)
}

func (s *Server) sendTo(c *client, msg *protocol.Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	select {
	case c.send <- data:
	default:
		// Client buffer full, skip.
	}
}

// broadcast sends a message to all connected clients.
func (s *Server) broadcast(msg *protocol.Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}

	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()

	for c := range s.clients {
		select {
		case c.send <- data:
		default:
		}
	}
}

// OnFileUpdate is the workspace watcher's callback.
func (s *Server) OnFileUpdate(fileCount int) {
	msg, err := protocol.NewMessage(protocol.TypeFilesUpdate, protocol.FilesUpdatePayload{
		FileCount: fileCount,
	})
	if err != nil {
		return
	}
	s.broadcast(msg)
}

// errorCode maps session errors onto protocol error codes.
func errorCode(err error) string {
	switch {
	case errors.Is(err, shell.ErrSessionBusy):
		return protocol.ErrSessionBusy
	case errors.Is(err, shell.ErrNoPending):
		return protocol.ErrNoPendingCommand
	case errors.Is(err, shell.ErrSpawn):
		return protocol.ErrSpawnFailed
	case errors.Is(err, shell.ErrBrokenPipe):
		return protocol.ErrBrokenPipe
	default:
		return protocol.ErrInvalidMessage
	}
}
