// Command client is a line client for the dungeon server.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/wfunc/dungeonserver/network"
)

func main() {
	addr := flag.String("addr", "localhost:7777", "server address (host:port)")
	ws := flag.Bool("ws", false, "connect over WebSocket instead of TCP")
	logFile := flag.String("log", "", "also record every server event to this file")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var (
		conn network.Connection
		err  error
	)
	if *ws {
		url := "ws://" + *addr + "/ws"
		log.Printf("Connecting to %s", url)
		conn, err = network.DialWS(ctx, url, 5*time.Second)
	} else {
		log.Printf("Connecting to %s", *addr)
		conn, err = network.DialTCP(ctx, *addr, 5*time.Second)
	}
	if err != nil {
		log.Fatalf("Dial failed: %v", err)
	}

	presenters := Presenters{NewConsolePresenter(os.Stdout)}
	if *logFile != "" {
		lp := NewLogPresenter(*logFile)
		defer lp.Sync()
		presenters = append(presenters, lp)
	}

	log.Println("Connected. Type commands (LOOK, MOVE N, ATTACK E, PICKUP, ENDTURN, SHOUT hi) or quit.")
	if err := NewClient(conn, presenters).Run(ctx, os.Stdin); err != nil {
		log.Printf("Connection lost: %v", err)
	}
}
