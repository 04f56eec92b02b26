package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/robfig/cron/v3"

	"github.com/sertantai/lrt-engine/internal/common"
	"github.com/sertantai/lrt-engine/internal/telemetry"
)

var adminUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// runServe starts the daily scrape trigger and, when configured, an
// admin HTTP endpoint that streams live telemetry over a websocket:
// build collaborators, start background services, block until a
// termination signal, then shut down in reverse order.
func runServe(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	a := newApp(fs, args)
	defer a.Close()

	sink := telemetry.NewWebSocketSink(a.logger)

	var server *http.Server
	if a.config.Server.Port != 0 {
		mux := http.NewServeMux()
		mux.HandleFunc("/admin/ws", adminWebSocketHandler(a, sink))
		server = &http.Server{
			Addr:    fmt.Sprintf("%s:%d", a.config.Server.Host, a.config.Server.Port),
			Handler: mux,
		}
		common.SafeGo(a.logger, "admin-endpoint", func() {
			a.logger.Info().Str("addr", server.Addr).Msg("admin endpoint listening")
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				a.logger.Error().Err(err).Msg("admin endpoint failed")
			}
		})
	}

	c := cron.New()
	if a.config.Scheduler.Enabled {
		_, err := c.AddFunc(a.config.Scheduler.Schedule, func() {
			common.SafeGo(a.logger, "scheduled-scrape", func() {
				a.logger.Info().Msg("scheduled scrape session triggered")
				runScrapeSession(context.Background(), a, sink)
			})
		})
		if err != nil {
			a.logger.Fatal().Err(err).Str("schedule", a.config.Scheduler.Schedule).Msg("invalid scheduler cron expression")
		}
		c.Start()
		a.logger.Info().Str("schedule", a.config.Scheduler.Schedule).Msg("scrape scheduler started")
	} else {
		a.logger.Info().Msg("scheduler disabled, serve is idle except for the admin endpoint")
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	a.logger.Info().Msg("shutdown signal received")

	if a.config.Scheduler.Enabled {
		stopCtx := c.Stop()
		<-stopCtx.Done()
	}

	if server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			a.logger.Warn().Err(err).Msg("admin endpoint shutdown error")
		}
	}

	a.logger.Info().Msg("serve stopped")
}

// adminWebSocketHandler upgrades a request to a websocket and registers
// it with sink for the lifetime of the connection, so admin clients can
// watch telemetry from whatever scrape session is currently running.
func adminWebSocketHandler(a *app, sink *telemetry.WebSocketSink) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := adminUpgrader.Upgrade(w, r, nil)
		if err != nil {
			a.logger.Warn().Err(err).Msg("admin websocket upgrade failed")
			return
		}
		defer conn.Close()

		sink.Register(conn)
		defer sink.Unregister(conn)

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
	}
}
