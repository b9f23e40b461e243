package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/RowanDark/ebh/internal/cipher"
	"github.com/RowanDark/ebh/internal/config"
	"github.com/RowanDark/ebh/internal/rpc"
)

func startDaemon(t *testing.T, cfg config.Config) (string, context.CancelFunc, <-chan error) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	errCh := make(chan error, 1)
	go func() { errCh <- serve(ctx, cfg, logger, ln) }()
	t.Cleanup(cancel)
	return ln.Addr().String(), cancel, errCh
}

func waitHealthy(t *testing.T, addr string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		resp, err := http.Get("http://" + addr + "/healthz")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("server did not become healthy")
}

func TestServeHTTPAndGRPC(t *testing.T) {
	cfg := config.Default()
	cfg.Alignment = cipher.AlignTail
	addr, cancel, errCh := startDaemon(t, cfg)
	waitHealthy(t, addr)

	resp, err := http.Post("http://"+addr+"/api/v1/encode", "application/json",
		bytes.NewBufferString(`{"message":"Hello, World!"}`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	var body struct {
		Output string `json:"output"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	resp.Body.Close()
	if body.Output != "IlND9Q3fW0XScQk6bD" {
		t.Fatalf("unexpected encode result %q", body.Output)
	}

	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	ctx, cancelCall := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelCall()
	got, err := rpc.NewClient(conn).Decode(ctx, "IlND9Q3fW0XScQk6bD")
	if err != nil {
		t.Fatalf("grpc decode: %v", err)
	}
	if got != "Hello, World!" {
		t.Fatalf("grpc decode = %q", got)
	}

	cancel()
	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("serve returned %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("serve did not stop after cancel")
	}
}

func TestRunRejectsBadLogLevel(t *testing.T) {
	cfg := config.Default()
	cfg.Log.Level = "loud"
	var stderr bytes.Buffer
	err := run(context.Background(), cfg, &stderr)
	if err == nil || !strings.Contains(err.Error(), "configure logging") {
		t.Fatalf("expected logging error, got %v", err)
	}
}

func TestRunBadAddress(t *testing.T) {
	cfg := config.Default()
	cfg.Server.Addr = "127.0.0.1:notaport"
	var stderr bytes.Buffer
	if err := run(context.Background(), cfg, &stderr); err == nil {
		t.Fatal("expected listen error")
	}
}
