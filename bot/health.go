package bot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"
)

// HealthServer answers liveness checks from the hosting platform.
type HealthServer struct {
	srv *http.Server
}

func healthMux() *http.ServeMux {
	mux := http.NewServeMux()
	ok := func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	}
	mux.HandleFunc("GET /{$}", ok)
	mux.HandleFunc("GET /healthz", ok)
	return mux
}

// StartHealthServer listens on port and serves in the background.
func StartHealthServer(port int) (*HealthServer, error) {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return nil, fmt.Errorf("health: listen: %w", err)
	}
	h := &HealthServer{srv: &http.Server{
		Handler:           healthMux(),
		ReadHeaderTimeout: 5 * time.Second,
	}}
	go func() {
		if err := h.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("health: serve: %v", err)
		}
	}()
	log.Printf("health: listening on %s", ln.Addr())
	return h, nil
}

func (h *HealthServer) Shutdown(ctx context.Context) error {
	return h.srv.Shutdown(ctx)
}
