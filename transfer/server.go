package transfer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"

	"github.com/Dyastin-0/lanlink/logger"
	"github.com/Dyastin-0/lanlink/types"
)

// Server is the long-lived transport listener. It binds an OS-assigned port
// once and serves the three protocol endpoints.
type Server struct {
	coord *Coordinator
	log   logger.Logger

	mu   sync.Mutex
	ln   net.Listener
	srv  *http.Server
	port int
}

func NewServer(coord *Coordinator, log logger.Logger) *Server {
	if log == nil {
		log = logger.Nop()
	}

	return &Server{
		coord: coord,
		log:   log,
	}
}

// Start binds an ephemeral port and serves until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", ":0")
	if err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /lan/info", s.handleInfo)
	mux.HandleFunc("POST /lan/offer", s.handleOffer)
	mux.HandleFunc("POST /lan/upload", s.handleUpload)
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, types.UploadResult{OK: false, Error: "not found"})
	})

	srv := &http.Server{
		Handler:     s.recoverer(mux),
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	s.mu.Lock()
	s.ln = ln
	s.srv = srv
	s.port = ln.Addr().(*net.TCPAddr).Port
	s.mu.Unlock()

	s.log.WithInt("port", s.Port()).Info("transport server listening")

	go func() {
		<-ctx.Done()
		srv.Close()
	}()

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.WithErr(err).Error("transport server stopped")
		}
	}()

	return nil
}

// Port returns the bound port, 0 when not yet bound.
func (s *Server) Port() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.port
}

func (s *Server) Close() error {
	s.mu.Lock()
	srv := s.srv
	s.mu.Unlock()

	if srv != nil {
		return srv.Close()
	}
	return nil
}

// recoverer converts an uncaught handler panic into a generic server error
// instead of letting it take the listener down.
func (s *Server) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.log.WithStr("panic", fmt.Sprintf("%v", rec)).Error("handler panicked")
				writeJSON(w, http.StatusInternalServerError, types.UploadResult{OK: false, Error: "internal error"})
			}
		}()

		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.coord.cfg.Identity.LocalInfo())
}

func (s *Server) handleOffer(w http.ResponseWriter, r *http.Request) {
	var offer types.OfferRequest
	if err := json.NewDecoder(r.Body).Decode(&offer); err != nil {
		writeJSON(w, http.StatusBadRequest, types.UploadResult{OK: false, Error: "malformed offer"})
		return
	}

	// r.Host is the address the sender dialed, so the minted upload URL is
	// reachable from its side of the network.
	resp := s.coord.handleOffer(r.Context(), &offer, "http://"+r.Host)
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")

	result, status := s.coord.handleUpload(token, r.Body)
	writeJSON(w, status, result)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
