package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"github.com/soheilhy/cmux"

	"github.com/ata-marzban/scanfilter/internal/admin"
	"github.com/ata-marzban/scanfilter/internal/keywords"
	"github.com/ata-marzban/scanfilter/internal/metrics"
	"github.com/ata-marzban/scanfilter/internal/server"
	"github.com/ata-marzban/scanfilter/internal/store"
)

func main() {
	port := flag.Int("port", 8080, "port to listen on")
	keywordsPath := flag.String("keywords", "", "YAML keyword table (default: built-in table)")
	seedPath := flag.String("seed", "", "JSON file with named filters to create at startup")
	defaultRows := flag.Int("default-rows", server.DefaultRows, "page size for filters without rows")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	flag.Parse()

	var level slog.Level
	if err := level.UnmarshalText([]byte(*logLevel)); err != nil {
		fmt.Fprintf(os.Stderr, "invalid -log-level %q: %v\n", *logLevel, err)
		os.Exit(2)
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))

	reg := keywords.Default()
	if *keywordsPath != "" {
		var err error
		reg, err = keywords.LoadFile(*keywordsPath)
		if err != nil {
			logger.Error("failed to load keyword table", "path", *keywordsPath, "error", err)
			os.Exit(1)
		}
	}

	// Create store and service.
	s := store.NewMemoryStore()
	m := metrics.New()
	svc := server.NewFilterService(s, reg,
		server.WithDefaultRows(*defaultRows),
		server.WithLogger(logger),
		server.WithMetrics(m),
	)

	if *seedPath != "" {
		if err := seed(context.Background(), svc, *seedPath); err != nil {
			logger.Error("failed to seed named filters", "path", *seedPath, "error", err)
			os.Exit(1)
		}
	}

	// Create gRPC server (health and reflection only).
	grpcServer, health := server.NewGRPCServer(logger)

	// REST routes live on a grpc-gateway mux.
	gwMux := runtime.NewServeMux()
	if err := server.RegisterFilterHandlers(gwMux, svc); err != nil {
		logger.Error("failed to register filter handlers", "error", err)
		os.Exit(1)
	}

	// Create HTTP mux for REST + admin + metrics.
	httpMux := http.NewServeMux()
	httpMux.Handle("/v1/", server.Instrument("/v1/", gwMux, logger, m))
	httpMux.Handle("/admin/", server.Instrument("/admin/", admin.NewHandler(s, svc, logger), logger, m))
	httpMux.Handle("/metrics", m.Handler())

	// Create listener.
	addr := fmt.Sprintf(":%d", *port)
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		logger.Error("failed to listen", "addr", addr, "error", err)
		os.Exit(1)
	}

	// Create cmux: multiplex gRPC and HTTP on the same port.
	mux := cmux.New(lis)
	grpcLis := mux.MatchWithWriters(cmux.HTTP2MatchHeaderFieldSendSettings("content-type", "application/grpc"))
	httpLis := mux.Match(cmux.Any())

	httpServer := &http.Server{Handler: httpMux}

	// Start servers.
	go func() {
		if err := grpcServer.Serve(grpcLis); err != nil {
			logger.Error("gRPC server error", "error", err)
		}
	}()
	go func() {
		if err := httpServer.Serve(httpLis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server error", "error", err)
		}
	}()

	logger.Info("scan filter service started",
		"port", *port,
		"grpc", fmt.Sprintf("localhost:%d", *port),
		"rest", fmt.Sprintf("http://localhost:%d/v1/", *port),
		"admin", fmt.Sprintf("http://localhost:%d/admin/", *port),
		"metrics", fmt.Sprintf("http://localhost:%d/metrics", *port),
		"default_rows", *defaultRows,
	)

	// Graceful shutdown on SIGINT/SIGTERM.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		logger.Info("shutting down", "signal", sig)
		health.Shutdown()
		httpServer.Shutdown(context.Background())
		grpcServer.GracefulStop()
		lis.Close()
	}()

	if err := mux.Serve(); err != nil {
		// cmux returns an error once the listener is closed on shutdown.
		if !isClosedErr(err) {
			logger.Error("cmux serve error", "error", err)
			os.Exit(1)
		}
	}
}

// seed creates the named filters listed in a JSON file.
func seed(ctx context.Context, svc *server.FilterService, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var filters []*store.NamedFilter
	if err := json.Unmarshal(data, &filters); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	for i, nf := range filters {
		if _, err := svc.CreateNamedFilter(ctx, nf); err != nil {
			return fmt.Errorf("filter %d: %w", i, err)
		}
	}
	return nil
}

func isClosedErr(err error) bool {
	return err != nil && (err.Error() == "mux: server closed" ||
		err.Error() == "mux: listener closed" ||
		errors.Is(err, net.ErrClosed))
}
