// room/room.go
package room

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/wfunc/dungeonserver/game"
	"github.com/wfunc/dungeonserver/logger"
)

// ErrClosed is returned once the room has stopped.
var ErrClosed = errors.New("room closed")

// command is one unit of work for the room loop.
type command struct {
	fn    func(*game.Engine) error
	reply chan error
}

// Room owns a game engine and applies commands to it one at a time on its
// own goroutine. Nothing else touches the engine.
type Room struct {
	ID        string
	Name      string
	CreatedAt time.Time

	engine    *game.Engine
	cmds      chan command
	closeChan chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// NewRoom starts the loop for engine.
func NewRoom(id, name string, engine *game.Engine) *Room {
	room := &Room{
		ID:        id,
		Name:      name,
		CreatedAt: time.Now(),
		engine:    engine,
		cmds:      make(chan command),
		closeChan: make(chan struct{}),
		done:      make(chan struct{}),
	}
	go room.loop()
	return room
}

func (r *Room) GetID() string {
	return r.ID
}

// loop is the single writer.
func (r *Room) loop() {
	defer close(r.done)
	for {
		select {
		case c := <-r.cmds:
			c.reply <- r.apply(c.fn)
		case <-r.closeChan:
			return
		}
	}
}

func (r *Room) apply(fn func(*game.Engine) error) (err error) {
	defer func() {
		if p := recover(); p != nil {
			logger.Log.Errorw("room command panicked", "room", r.ID, "panic", p)
			err = fmt.Errorf("room %s: command panicked: %v", r.ID, p)
		}
	}()
	return fn(r.engine)
}

// Do runs fn on the room goroutine and waits for its result. fn must not
// call back into the room.
func (r *Room) Do(ctx context.Context, fn func(*game.Engine) error) error {
	reply := make(chan error, 1)
	select {
	case r.cmds <- command{fn: fn, reply: reply}:
	case <-r.closeChan:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-reply:
		return err
	case <-r.done:
		select {
		case err := <-reply:
			return err
		default:
			return ErrClosed
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Call is Do for commands that produce a value.
func Call[T any](ctx context.Context, r *Room, fn func(*game.Engine) (T, error)) (T, error) {
	var out T
	err := r.Do(ctx, func(e *game.Engine) error {
		var err error
		out, err = fn(e)
		return err
	})
	return out, err
}

// Close stops the loop. Pending callers get ErrClosed.
func (r *Room) Close() {
	r.closeOnce.Do(func() {
		close(r.closeChan)
	})
}

// Done is closed when the loop has exited.
func (r *Room) Done() <-chan struct{} {
	return r.done
}
