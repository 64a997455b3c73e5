package main

import (
	"flag"
	"net/http"
	"time"

	"github.com/satoshiyanada888/Today-s-MLB-Games/internal/logger"
	"github.com/satoshiyanada888/Today-s-MLB-Games/internal/mockfeed"
)

var (
	addr     = flag.String("addr", "127.0.0.1:8788", "Listen address")
	date     = flag.String("date", "", "Schedule date YYYY-MM-DD (default today)")
	window   = flag.Duration("window", 15*time.Second, "Time per plate appearance")
	logLevel = flag.String("log-level", "info", "Log level")
)

func main() {
	flag.Parse()
	logger.Init(*logLevel, "text")

	d := *date
	if d == "" {
		d = time.Now().Format("2006-01-02")
	}
	srv := mockfeed.NewServer(d, *window, nil)

	logger.Info("Mock Stats API for %s on http://%s/api/v1 (one plate appearance every %v)", d, *addr, *window)
	for _, g := range mockfeed.DefaultGames {
		logger.Info("  game %s: %s @ %s, %d plate appearances", g.ID, g.Away, g.Home, len(srv.Timeline(g.ID)))
	}

	server := &http.Server{
		Addr:              *addr,
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	if err := server.ListenAndServe(); err != nil {
		logger.Fatal("Mock server failed: %v", err)
	}
}
