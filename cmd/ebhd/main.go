// Command ebhd serves the ebh codec over HTTP/JSON and gRPC on one port.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/RowanDark/ebh/internal/api"
	"github.com/RowanDark/ebh/internal/cipher"
	"github.com/RowanDark/ebh/internal/config"
	"github.com/RowanDark/ebh/internal/logging"
	"github.com/RowanDark/ebh/internal/rpc"
)

var version = "dev"

func main() {
	configPath := flag.String("config", "", "load configuration from this YAML file instead of ~/.ebh/config.yml and ./ebh.yml")
	addr := flag.String("addr", "", "listen address for HTTP and gRPC (overrides config)")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("ebhd %s\n", version)
		return
	}
	if flag.NArg() > 0 {
		fmt.Fprintf(os.Stderr, "unexpected arguments: %v\n", flag.Args())
		os.Exit(2)
	}

	var (
		cfg config.Config
		err error
	)
	if *configPath != "" {
		cfg, err = config.LoadFile(*configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = run(ctx, cfg, os.Stderr)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "ebhd: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, stderr io.Writer) error {
	logger, closer, err := newLogger(cfg.Log, stderr)
	if err != nil {
		return fmt.Errorf("configure logging: %w", err)
	}
	defer closer.Close()
	slog.SetDefault(logger)

	ln, err := net.Listen("tcp", cfg.Server.Addr)
	if err != nil {
		return err
	}
	return serve(ctx, cfg, logger, ln)
}

func newLogger(cfg config.LogConfig, stderr io.Writer) (*slog.Logger, io.Closer, error) {
	level, err := logging.ParseLevel(cfg.Level)
	if err != nil {
		return nil, nil, err
	}
	opts := []logging.Option{
		logging.WithWriter(stderr),
		logging.WithLevel(level),
		logging.WithFormat(cfg.Format),
		logging.WithComponent("ebhd"),
	}
	if cfg.File != "" {
		opts = append(opts, logging.WithFile(cfg.File))
	}
	return logging.New(opts...)
}

// serve blocks until ctx is cancelled. The gRPC server shares ln with the
// HTTP API and is stopped once the HTTP server has drained.
func serve(ctx context.Context, cfg config.Config, logger *slog.Logger, ln net.Listener) error {
	codec, err := cipher.NewCodec(cipher.WithMask(cfg.Mask), cipher.WithAlignment(cfg.Alignment))
	if err != nil {
		_ = ln.Close()
		return err
	}

	grpcServer := rpc.NewServer(codec, logger.With("subsystem", "grpc"))
	defer grpcServer.Stop()

	srv, err := api.NewServer(api.Config{
		Addr:            ln.Addr().String(),
		Codec:           codec,
		Logger:          logger,
		BatchLimit:      cfg.Server.BatchLimit,
		MaxBodyBytes:    cfg.Server.MaxBodyBytes,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		GRPC:            grpcServer,
	})
	if err != nil {
		_ = ln.Close()
		return err
	}

	logger.Info("starting ebhd",
		"version", version,
		"addr", ln.Addr().String(),
		"mask", fmt.Sprintf("%#08x", codec.Mask()),
		"alignment", codec.Alignment().String(),
	)
	if err := srv.Serve(ctx, ln); err != nil {
		return err
	}
	logger.Info("ebhd stopped")
	return nil
}
