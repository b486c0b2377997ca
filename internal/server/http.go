// Package server exposes the pricelist over HTTP and pushes price updates to
// websocket subscribers.
package server

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/crypto/acme/autocert"

	"github.com/scrapyard/autopricer/internal/domain"
)

type pricelistReader interface {
	Get(sku string) (domain.ItemPrice, bool)
	All() []domain.ItemPrice
}

// Server serves the pricing API.
type Server struct {
	addr      string
	pricelist pricelistReader
	hub       *Hub
	l         *zap.Logger
}

// NewServer wires the API around a pricelist and a broadcast hub.
func NewServer(addr string, pricelist pricelistReader, hub *Hub, l *zap.Logger) *Server {
	return &Server{addr: addr, pricelist: pricelist, hub: hub, l: l}
}

func (s *Server) router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/items", s.handleItems).Methods(http.MethodGet)
	r.HandleFunc("/items/{sku}", s.handleItem).Methods(http.MethodGet)
	r.HandleFunc("/ws", s.hub.handleWS)
	return r
}

// Start runs the HTTP server until the context is cancelled.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.router(),
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.l.Info("api server listening", zap.String("addr", s.addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// StartWithAutoTLS runs the API over HTTPS with automatic ACME certificates,
// plus a plain HTTP listener on :80 for the HTTP-01 challenge.
func (s *Server) StartWithAutoTLS(ctx context.Context, domains []string, cacheDir string) error {
	if len(domains) == 0 {
		return errors.New("no domains provided for automatic TLS")
	}
	if cacheDir == "" {
		cacheDir = "cert-cache"
	}

	manager := &autocert.Manager{
		Prompt:     autocert.AcceptTOS,
		HostPolicy: autocert.HostWhitelist(domains...),
		Cache:      autocert.DirCache(cacheDir),
	}

	challengeSrv := &http.Server{
		Addr:              ":80",
		Handler:           manager.HTTPHandler(nil),
		ReadHeaderTimeout: 15 * time.Second,
	}

	tlsConfig := manager.TLSConfig()
	tlsConfig.MinVersion = tls.VersionTLS12

	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.router(),
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       120 * time.Second,
		TLSConfig:         tlsConfig,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = challengeSrv.Shutdown(shutdownCtx)
		_ = srv.Shutdown(shutdownCtx)
	}()

	go func() {
		if err := challengeSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.l.Error("acme challenge server", zap.Error(err))
		}
	}()

	s.l.Info("api server listening with TLS", zap.String("addr", s.addr))
	if err := srv.ListenAndServeTLS("", ""); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleItems(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": s.pricelist.All()})
}

func (s *Server) handleItem(w http.ResponseWriter, r *http.Request) {
	sku := mux.Vars(r)["sku"]
	price, ok := s.pricelist.Get(sku)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "item not priced"})
		return
	}
	writeJSON(w, http.StatusOK, price)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
