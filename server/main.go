package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"

	"echoleaf/echo"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Usage: server [ADDR]
// ADDR defaults to the ECHO_ADDR environment variable, then 127.0.0.1:4000.
func main() {
	metricsAddr := flag.String("metrics-addr", ":8081", "Metrics listen address (empty disables)")
	pprofAddr := flag.String("pprof-addr", "", "pprof listen address (empty disables)")
	maxConns := flag.Int("max-conns", 0, "Maximum concurrent connections (0 = unlimited)")
	flag.Parse()

	addr := flag.Arg(0)
	if addr == "" {
		addr = os.Getenv("ECHO_ADDR")
	}

	reg := prometheus.NewRegistry()
	metrics := echo.NewMetrics(reg)

	if *metricsAddr != "" {
		http.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
		go func() {
			log.Printf("Metrics server listening on %s", *metricsAddr)
			if err := http.ListenAndServe(*metricsAddr, nil); err != nil {
				log.Fatalf("Metrics server error: %v", err)
			}
		}()
	}

	if *pprofAddr != "" {
		go func() {
			log.Printf("Starting pprof server on %s", *pprofAddr)
			log.Println(http.ListenAndServe(*pprofAddr, nil))
		}()
	}

	ctx, cancel := context.WithCancel(context.Background())
	server := echo.NewServer(echo.Config{Addr: addr, MaxConns: *maxConns}, metrics)
	if err := server.Start(ctx); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	log.Printf("Received signal: %v. Shutting down...", sig)

	cancel()
	server.Stop()
}
