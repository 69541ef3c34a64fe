// reverb-inspect runs a synthetic reactive workload and serves the
// devtools inspector over it. Useful for poking at the graph endpoint,
// the metrics, and the live event stream:
//
//	go run ./cmd/reverb-inspect -addr :6060 -interval 250ms
//	curl localhost:6060/graph | jq .
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/reverb-dev/reverb/pkg/devtools"
	"github.com/reverb-dev/reverb/pkg/instrument"
	"github.com/reverb-dev/reverb/pkg/reverb"
)

func main() {
	addr := flag.String("addr", ":6060", "inspector listen address")
	interval := flag.Duration("interval", 250*time.Millisecond, "workload tick interval")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	hub := devtools.NewHub()
	metrics := instrument.Prometheus()
	e := reverb.New(
		reverb.WithLogger(logger),
		reverb.WithInstrumentation(reverb.MultiInstrumentation(metrics, hub)),
	)

	state := e.Reactive(map[string]any{
		"ticks": 0,
		"items": []any{},
	}).(*reverb.Rec)

	summary := e.Computed(func() any {
		items := state.Get("items").(*reverb.List)
		return fmt.Sprintf("%d ticks, %d items", state.Get("ticks").(int), items.Len())
	})

	stop := e.WatchEffect(func(reverb.OnCleanup) {
		logger.Info("workload", "summary", summary.Value().(string))
	})
	defer stop()

	go func() {
		ticker := time.NewTicker(*interval)
		defer ticker.Stop()
		for range ticker.C {
			e.Batch(func() {
				n := state.Get("ticks").(int) + 1
				state.Set("ticks", n)
				items := state.Get("items").(*reverb.List)
				items.Append(n)
				if items.Len() > 10 {
					// keep the graph small
					items.Pop()
					items.Pop()
				}
			})
		}
	}()

	srv := devtools.New(e, devtools.WithHub(hub), devtools.WithLogger(logger))
	httpServer := &http.Server{
		Addr:              *addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("inspector listening", "addr", *addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("inspector server failed", "error", err)
			os.Exit(1)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
	logger.Info("shutting down")
	httpServer.Close()
}
