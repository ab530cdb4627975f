package main

import (
	"fmt"
	"io"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/wfunc/dungeonserver/protocol"
)

// Presenter shows server events to the player.
type Presenter interface {
	Present(ev protocol.Event)
}

// Presenters fans out to several presenters in order.
type Presenters []Presenter

func (ps Presenters) Present(ev protocol.Event) {
	for _, p := range ps {
		p.Present(ev)
	}
}

// ConsolePresenter prints events for a human.
type ConsolePresenter struct {
	out io.Writer
}

func NewConsolePresenter(out io.Writer) *ConsolePresenter {
	return &ConsolePresenter{out: out}
}

func (c *ConsolePresenter) Present(ev protocol.Event) {
	switch e := ev.(type) {
	case protocol.LookReply:
		for _, row := range e.Rows {
			fmt.Fprintln(c.out, row)
		}
	case protocol.Goal:
		fmt.Fprintf(c.out, "Collect %d gold and find the exit.\n", e.Amount)
	case protocol.Greeting:
		fmt.Fprintf(c.out, "You are now known as %s.\n", e.Name)
	case protocol.Fail:
		fmt.Fprintf(c.out, "Failed: %s\n", e.Reason)
	case protocol.Message:
		fmt.Fprintf(c.out, "> %s\n", e.Text)
	case protocol.TurnStarted:
		fmt.Fprintln(c.out, "Your turn.")
	case protocol.TurnEnded:
		fmt.Fprintln(c.out, "Turn over.")
	case protocol.HealthChanged:
		fmt.Fprintf(c.out, "Health %+d\n", e.Delta)
	case protocol.GoldChanged:
		fmt.Fprintf(c.out, "Gold %+d\n", e.Delta)
	case protocol.Won:
		fmt.Fprintln(c.out, "You won!")
	case protocol.Lost:
		fmt.Fprintln(c.out, "You lost.")
	case protocol.Unrecognized:
		fmt.Fprintf(c.out, "? %s\n", e.Line)
	}
}

// LogPresenter writes every event line to a rolling log file.
type LogPresenter struct {
	log *zap.SugaredLogger
}

func NewLogPresenter(path string) *LogPresenter {
	sink := zapcore.AddSync(&lumberjack.Logger{
		Filename:   path,
		MaxSize:    5,
		MaxBackups: 2,
	})
	core := zapcore.NewCore(zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()), sink, zap.DebugLevel)
	return &LogPresenter{log: zap.New(core).Sugar()}
}

func (l *LogPresenter) Present(ev protocol.Event) {
	l.log.Infow("event", "type", fmt.Sprintf("%T", ev), "lines", ev.Lines())
}

func (l *LogPresenter) Sync() error {
	return l.log.Sync()
}
