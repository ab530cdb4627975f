package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/wfunc/dungeonserver/broadcast"
	"github.com/wfunc/dungeonserver/config"
	"github.com/wfunc/dungeonserver/game"
	"github.com/wfunc/dungeonserver/logger"
	"github.com/wfunc/dungeonserver/models"
	"github.com/wfunc/dungeonserver/monitor"
	"github.com/wfunc/dungeonserver/network"
	"github.com/wfunc/dungeonserver/protocol"
	"github.com/wfunc/dungeonserver/room"
	"github.com/wfunc/dungeonserver/session"
)

// Transport labels for metrics and session records.
const (
	TransportTCP = "tcp"
	TransportWS  = "ws"
)

// ShutdownMessage is broadcast to every client before the server stops.
const ShutdownMessage = "Server shutting down"

const (
	defaultPollInterval = 200 * time.Millisecond
	teardownTimeout     = 5 * time.Second
	shutdownTimeout     = 5 * time.Second
)

// SessionRecorder receives a record for every finished connection.
type SessionRecorder interface {
	RecordSession(rec *models.SessionRecord)
}

type nopRecorder struct{}

func (nopRecorder) RecordSession(*models.SessionRecord) {}

// Option configures a GameServer.
type Option func(*GameServer)

func WithMonitor(m *monitor.Monitor) Option {
	return func(s *GameServer) { s.monitor = m }
}

func WithRecorder(r SessionRecorder) Option {
	return func(s *GameServer) { s.recorder = r }
}

// GameServer accepts clients over TCP and WebSocket and runs one handler
// per connection. Game state is only touched through the room.
type GameServer struct {
	cfg         config.ServerConfig
	room        *room.Room
	sessions    *session.Manager
	broadcaster broadcast.Broadcaster
	monitor     *monitor.Monitor
	recorder    SessionRecorder
	upgrader    websocket.Upgrader

	tcpListener *net.TCPListener
	wsListener  net.Listener
	httpServer  *http.Server

	mutex    sync.Mutex
	closing  bool
	handlers sync.WaitGroup
	stopOnce sync.Once
	stopErr  error
}

func NewGameServer(cfg config.ServerConfig, r *room.Room, sessions *session.Manager, opts ...Option) *GameServer {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	s := &GameServer{
		cfg:         cfg,
		room:        r,
		sessions:    sessions,
		broadcaster: broadcast.NewSessionBroadcaster(sessions),
		recorder:    nopRecorder{},
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.monitor == nil {
		s.monitor = monitor.NewMonitor("dungeon")
	}
	return s
}

// Listen binds the configured addresses. An empty address disables that
// transport.
func (s *GameServer) Listen() error {
	if addr := s.cfg.TCPAddress; addr != "" {
		ln, err := net.Listen("tcp", addr)
		if err != nil {
			return fmt.Errorf("listen tcp %s: %w", addr, err)
		}
		s.tcpListener = ln.(*net.TCPListener)
	}
	if addr := s.cfg.WSAddress; addr != "" {
		ln, err := net.Listen("tcp", addr)
		if err != nil {
			if s.tcpListener != nil {
				s.tcpListener.Close()
			}
			return fmt.Errorf("listen ws %s: %w", addr, err)
		}
		s.wsListener = ln
		mux := http.NewServeMux()
		mux.HandleFunc("/ws", s.handleWebSocket)
		s.httpServer = &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	}
	return nil
}

// TCPAddr is the bound TCP address, or nil.
func (s *GameServer) TCPAddr() net.Addr {
	if s.tcpListener == nil {
		return nil
	}
	return s.tcpListener.Addr()
}

// WSAddr is the bound WebSocket address, or nil.
func (s *GameServer) WSAddr() net.Addr {
	if s.wsListener == nil {
		return nil
	}
	return s.wsListener.Addr()
}

// Run listens and serves until ctx is cancelled.
func (s *GameServer) Run(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}
	return s.Serve(ctx)
}

// Serve runs the listeners bound by Listen. When ctx is cancelled it tells
// every client, closes all connections and waits for their handlers.
func (s *GameServer) Serve(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	if s.tcpListener != nil {
		logger.Log.Infof("Game server listening on %s (tcp)", s.tcpListener.Addr())
		g.Go(func() error {
			return s.acceptLoop(gctx)
		})
	}
	if s.httpServer != nil {
		logger.Log.Infof("Game server listening on %s (ws)", s.wsListener.Addr())
		g.Go(func() error {
			err := s.httpServer.Serve(s.wsListener)
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		return s.shutdown()
	})
	return g.Wait()
}

// acceptLoop wakes up every poll interval to check for cancellation.
func (s *GameServer) acceptLoop(ctx context.Context) error {
	for {
		if err := s.tcpListener.SetDeadline(time.Now().Add(s.cfg.PollInterval)); err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
		conn, err := s.tcpListener.Accept()
		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				if ctx.Err() != nil {
					return nil
				}
				continue
			}
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			s.monitor.IncConnectionErrors()
			logger.Log.Warnf("TCP accept error: %v", err)
			continue
		}
		if !s.track() {
			conn.Close()
			return nil
		}
		go func() {
			defer s.handlers.Done()
			s.handle(network.NewTCPConnection(conn, s.cfg.WriteTimeout), TransportTCP)
		}()
	}
}

func (s *GameServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.monitor.IncConnectionErrors()
		logger.Log.Infof("Failed to upgrade connection: %v", err)
		return
	}
	if !s.track() {
		conn.Close()
		return
	}
	defer s.handlers.Done()
	s.handle(network.NewWSConnection(conn, s.cfg.WriteTimeout), TransportWS)
}

// track registers a handler unless shutdown has started.
func (s *GameServer) track() bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.closing {
		return false
	}
	s.handlers.Add(1)
	return true
}

func (s *GameServer) isClosing() bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.closing
}

// StopListening closes the listeners. Clients already connected keep
// playing until Serve's context is cancelled.
func (s *GameServer) StopListening() error {
	s.stopOnce.Do(func() {
		if s.tcpListener != nil {
			if err := s.tcpListener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
				s.stopErr = multierr.Append(s.stopErr, err)
			}
		}
		if s.httpServer != nil {
			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			s.stopErr = multierr.Append(s.stopErr, s.httpServer.Shutdown(ctx))
			cancel()
		}
	})
	return s.stopErr
}

func (s *GameServer) shutdown() error {
	s.mutex.Lock()
	if s.closing {
		s.mutex.Unlock()
		return nil
	}
	s.closing = true
	s.mutex.Unlock()

	logger.Log.Info("Shutting down game server")
	errs := s.StopListening()

	if n, err := s.broadcaster.BroadcastToAll(protocol.Message{Text: ShutdownMessage}); err != nil {
		logger.Log.Debugf("Shutdown notice reached %d sessions: %v", n, err)
	}
	for _, sess := range s.sessions.All() {
		sess.Close()
	}
	s.handlers.Wait()
	return errs
}

// handle is the per-connection loop: greet, join, then one reply per
// command until the client quits or the connection fails.
func (s *GameServer) handle(conn network.Connection, transport string) {
	sess := session.NewSession(conn)
	s.sessions.Add(sess)
	s.monitor.IncOnlinePlayers(transport)

	rec := &models.SessionRecord{
		SessionID:   sess.GetID(),
		RemoteAddr:  conn.RemoteAddr().String(),
		Transport:   transport,
		PlayerID:    session.NoPlayer,
		Reason:      models.ReasonError,
		ConnectedAt: sess.CreatedAt,
	}
	logger.Log.Infof("New connection from %s, session ID: %s", rec.RemoteAddr, rec.SessionID)

	silent := false
	defer func() {
		s.teardown(sess, rec, silent)
	}()

	ctx := context.Background()
	goal, err := room.Call(ctx, s.room, func(e *game.Engine) (int, error) {
		return e.Goal(), nil
	})
	if err != nil {
		logger.Log.Warnf("Session %s: %v", rec.SessionID, err)
		return
	}
	if err := sess.Send(protocol.Goal{Amount: goal}); err != nil {
		return
	}

	id, err := room.Call(ctx, s.room, func(e *game.Engine) (int, error) {
		return e.AddPlayer(sess)
	})
	if err != nil {
		logger.Log.Warnf("Session %s could not join: %v", rec.SessionID, err)
		sess.Send(protocol.Fail{Reason: err.Error()})
		return
	}
	sess.SetPlayerID(id)
	rec.PlayerID = id

	for {
		line, err := conn.ReadLine()
		if err != nil {
			switch {
			case s.isClosing():
				rec.Reason = models.ReasonShutdown
			case errors.Is(err, io.EOF), errors.Is(err, network.ErrConnectionClosed), network.IsNormalClose(err):
				logger.Log.Infof("Session %s hung up without quitting", rec.SessionID)
			default:
				s.monitor.IncConnectionErrors()
				logger.Log.Warnf("Session %s read failed: %v", rec.SessionID, err)
			}
			return
		}
		sess.Touch()
		logger.Log.Debugw("command", "session", rec.SessionID, "player", id, "line", line)

		cmd, err := protocol.DecodeCommand(line)
		if err != nil {
			s.monitor.IncCommandFailures()
			if sess.Send(protocol.Fail{Reason: err.Error()}) != nil {
				return
			}
			continue
		}

		switch c := cmd.(type) {
		case protocol.Quit:
			rec.Reason = models.ReasonQuit
			silent = true
			return
		case protocol.Unknown:
			logger.Log.Debugf("Session %s sent unknown verb %q", rec.SessionID, c.Verb)
			continue
		}

		rec.Commands++
		start := time.Now()
		s.monitor.IncMessagesReceived(verbOf(cmd))
		reply, err := s.execute(ctx, id, cmd)
		s.monitor.ObserveMessageLatency(time.Since(start))
		if err != nil {
			if !game.IsRuleError(err) {
				logger.Log.Errorf("Session %s: %s failed: %v", rec.SessionID, verbOf(cmd), err)
				return
			}
			s.monitor.IncCommandFailures()
			logger.Log.Debugw("rule violation", "session", rec.SessionID, "player", id, "error", err)
			reply = protocol.Fail{Reason: err.Error()}
		}
		if err := sess.Send(reply); err != nil {
			return
		}
	}
}

// teardown runs once per connection.
func (s *GameServer) teardown(sess *session.Session, rec *models.SessionRecord, silent bool) {
	if id := sess.PlayerID(); id != session.NoPlayer {
		ctx, cancel := context.WithTimeout(context.Background(), teardownTimeout)
		err := s.room.Do(ctx, func(e *game.Engine) error {
			if p, err := e.Player(id); err == nil {
				rec.PlayerName = p.Name()
			}
			return e.RemovePlayer(id, silent)
		})
		cancel()
		if err != nil && !errors.Is(err, room.ErrClosed) {
			logger.Log.Warnf("Session %s: removing player %d: %v", rec.SessionID, id, err)
		}
	}
	s.sessions.Remove(sess.GetID())
	sess.Close()
	s.monitor.DecOnlinePlayers(rec.Transport)

	rec.DisconnectedAt = time.Now()
	s.recorder.RecordSession(rec)
	logger.Log.Infof("Connection closed from %s, session ID: %s (%s)", rec.RemoteAddr, rec.SessionID, rec.Reason)
}

// execute applies cmd for player id on the room goroutine and builds the
// reply. Rule violations come back as game.RuleError.
func (s *GameServer) execute(ctx context.Context, id int, cmd protocol.Command) (protocol.Event, error) {
	return room.Call(ctx, s.room, func(e *game.Engine) (protocol.Event, error) {
		switch c := cmd.(type) {
		case protocol.Hello:
			if err := e.SetName(id, c.Name); err != nil {
				return nil, err
			}
			p, err := e.Player(id)
			if err != nil {
				return nil, err
			}
			return protocol.Greeting{Name: p.Name()}, nil
		case protocol.Look:
			rows, err := e.Look(id)
			if err != nil {
				return nil, err
			}
			return protocol.LookReply{Rows: rows}, nil
		case protocol.Move:
			return success(e.Move(id, c.Dir))
		case protocol.Attack:
			return success(e.Attack(id, c.Dir))
		case protocol.Pickup:
			return success(e.Pickup(id))
		case protocol.EndTurn:
			return success(e.EndTurn(id, false))
		case protocol.SetPlayerPos:
			return success(e.SetPlayerPosition(id, c.Loc))
		case protocol.Shout:
			e.Shout(c.Text)
			return protocol.Success{}, nil
		}
		return nil, fmt.Errorf("unhandled command %T", cmd)
	})
}

func success(err error) (protocol.Event, error) {
	if err != nil {
		return nil, err
	}
	return protocol.Success{}, nil
}

func verbOf(cmd protocol.Command) string {
	verb, _, _ := strings.Cut(cmd.Line(), " ")
	return verb
}
