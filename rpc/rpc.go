package rpc

import (
	"context"
	"errors"
	"net"
	"net/rpc"
	"time"

	"github.com/wfunc/dungeonserver/broadcast"
	"github.com/wfunc/dungeonserver/game"
	"github.com/wfunc/dungeonserver/logger"
	"github.com/wfunc/dungeonserver/models"
	"github.com/wfunc/dungeonserver/protocol"
	"github.com/wfunc/dungeonserver/room"
)

// ServiceName is the name Admin is registered under.
const ServiceName = "Admin"

var ErrEmptyAnnouncement = errors.New("empty announcement")

const (
	callTimeout         = 5 * time.Second
	defaultHistoryLimit = 20
)

// Server manages the RPC listener.
type Server struct {
	listener net.Listener
	address  string
	rpc      *rpc.Server
}

// NewServer listens on addr and registers the admin service.
func NewServer(addr string, admin *Admin) (*Server, error) {
	srv := rpc.NewServer()
	if err := srv.RegisterName(ServiceName, admin); err != nil {
		return nil, err
	}
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Server{
		listener: listener,
		address:  listener.Addr().String(),
		rpc:      srv,
	}, nil
}

// Addr is the bound listen address.
func (s *Server) Addr() string {
	return s.address
}

// Start serves RPC connections until Stop is called.
func (s *Server) Start() {
	logger.Log.Infof("RPC server listening on %s", s.address)
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				logger.Log.Info("RPC server listener closed.")
				return
			}
			logger.Log.Errorf("RPC server accept error: %v", err)
			continue
		}
		go s.rpc.ServeConn(conn)
	}
}

// Stop closes the RPC listener.
func (s *Server) Stop() error {
	if s.listener == nil {
		return nil
	}
	logger.Log.Info("Stopping RPC server.")
	err := s.listener.Close()
	if errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}

// HistorySource lists finished games, newest first.
type HistorySource interface {
	History(ctx context.Context, limit int) ([]models.GameRecord, error)
}

// ActivitySource reports when a player's client last sent a line.
type ActivitySource interface {
	LastActive(playerID int) (time.Time, bool)
}

// Admin is the operator RPC service. Methods follow the net/rpc shape:
// exported, pointer reply, error result.
type Admin struct {
	room        *room.Room
	broadcaster broadcast.Broadcaster
	history     HistorySource
	activity    ActivitySource
}

func NewAdmin(r *room.Room, b broadcast.Broadcaster, history HistorySource, activity ActivitySource) *Admin {
	return &Admin{room: r, broadcaster: b, history: history, activity: activity}
}

// SnapshotArgs with HidePlayers set returns the bare map.
type SnapshotArgs struct {
	HidePlayers bool
}

type SnapshotReply struct {
	Map           string
	Rows          []string
	Goal          int
	Phase         string
	CurrentPlayer int
	Winner        int
}

// Snapshot returns the whole map with P over living players.
func (a *Admin) Snapshot(args *SnapshotArgs, reply *SnapshotReply) error {
	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()
	return a.room.Do(ctx, func(e *game.Engine) error {
		grid := e.Snapshot()
		if args.HidePlayers {
			grid = e.Map().View()
		}
		reply.Rows = make([]string, len(grid))
		for i, row := range grid {
			reply.Rows[i] = string(row)
		}
		reply.Map = e.Map().Name()
		reply.Goal = e.Goal()
		reply.Phase = e.Phase()
		reply.CurrentPlayer = e.CurrentPlayer()
		reply.Winner = e.Winner()
		return nil
	})
}

type RosterArgs struct {
	AliveOnly bool
}

// RosterReply.LastActive is keyed by player ID and only holds players whose
// client is still connected.
type RosterReply struct {
	Players    []game.PlayerView
	LastActive map[int]time.Time
}

func (a *Admin) Roster(args *RosterArgs, reply *RosterReply) error {
	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()
	players, err := room.Call(ctx, a.room, func(e *game.Engine) ([]game.PlayerView, error) {
		return e.Players(), nil
	})
	if err != nil {
		return err
	}
	for _, p := range players {
		if args.AliveOnly && !p.Alive {
			continue
		}
		reply.Players = append(reply.Players, p)
		if at, ok := a.activity.LastActive(p.ID); ok {
			if reply.LastActive == nil {
				reply.LastActive = make(map[int]time.Time)
			}
			reply.LastActive[p.ID] = at
		}
	}
	return nil
}

// AnnounceArgs sends Text to PlayerIDs, or to every connection when empty.
type AnnounceArgs struct {
	Text      string
	PlayerIDs []int
}

type AnnounceReply struct {
	Recipients int
}

func (a *Admin) Announce(args *AnnounceArgs, reply *AnnounceReply) error {
	if args.Text == "" {
		return ErrEmptyAnnouncement
	}
	ev := protocol.Message{Text: args.Text}
	var err error
	if len(args.PlayerIDs) == 0 {
		reply.Recipients, err = a.broadcaster.BroadcastToAll(ev)
	} else {
		reply.Recipients, err = a.broadcaster.BroadcastToPlayers(args.PlayerIDs, ev)
	}
	if err != nil {
		// Sessions that failed are already closed; the rest got the message.
		logger.Log.Warnf("Announcement reached %d sessions, some failed: %v", reply.Recipients, err)
	}
	logger.Log.Infof("Announced %q to %d sessions", args.Text, reply.Recipients)
	return nil
}

type HistoryArgs struct {
	Limit int
}

type HistoryReply struct {
	Games []models.GameRecord
}

func (a *Admin) History(args *HistoryArgs, reply *HistoryReply) error {
	limit := args.Limit
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()
	games, err := a.history.History(ctx, limit)
	if err != nil {
		return err
	}
	reply.Games = games
	return nil
}
