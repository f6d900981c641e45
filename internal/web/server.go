// Package web exposes the score ingestion/query API, balance history and
// the merged candle/score series over HTTP.
package web

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/crypto/acme/autocert"

	"folio/internal/domain"
)

const snapshotPollInterval = 2 * time.Second

type scoreStore interface {
	Put(record domain.ScoreRecord) error
	All() ([]domain.ScoreRecord, error)
	BySymbol(symbol string) ([]domain.ScoreRecord, error)
	DeleteSymbol(symbol string) (int, error)
}

type snapshotReader interface {
	History() ([]domain.BalanceSnapshot, error)
	SnapshotsAfter(index uint64) ([]domain.BalanceSnapshotRecord, error)
}

type seriesProvider interface {
	Series(ctx context.Context, pair domain.Pair, interval string, since time.Time, limit int) ([]domain.MergedRow, error)
}

// Server exposes HTTP endpoints for score CRUD, balance history, an SSE
// balance stream and the merged series view.
type Server struct {
	Addr      string
	Scores    scoreStore
	Snapshots snapshotReader
	Series    seriesProvider

	// TLSDomains switches the server to autocert-managed HTTPS when set.
	TLSDomains   []string
	CertCacheDir string
}

// NewServer creates a new web server instance.
func NewServer(addr string, scores scoreStore, snapshots snapshotReader, series seriesProvider) *Server {
	return &Server{Addr: addr, Scores: scores, Snapshots: snapshots, Series: series}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("POST /scores", s.handleAddScores)
	mux.HandleFunc("GET /scores", s.handleAllScores)
	mux.HandleFunc("GET /scores/{symbol}", s.handleScoresBySymbol)
	mux.HandleFunc("DELETE /scores/{symbol}", s.handleDeleteScores)
	mux.HandleFunc("GET /balance/history", s.handleBalanceHistory)
	mux.HandleFunc("GET /balance/stream", s.handleBalanceStream)
	mux.HandleFunc("GET /series/{pair}", s.handleSeries)
	return mux
}

// Start runs the HTTP server (blocking) and shuts it down when ctx is
// cancelled. With TLSDomains configured it serves HTTPS via autocert and a
// plain listener for ACME challenges.
func (s *Server) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	server := &http.Server{
		Addr:              s.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	shutdown := func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}

	if len(s.TLSDomains) > 0 {
		manager := &autocert.Manager{
			Prompt:     autocert.AcceptTOS,
			HostPolicy: autocert.HostWhitelist(s.TLSDomains...),
			Cache:      autocert.DirCache(s.CertCacheDir),
		}

		challengeSrv := &http.Server{
			Addr:              ":80",
			Handler:           manager.HTTPHandler(nil),
			ReadHeaderTimeout: 15 * time.Second,
		}
		go func() {
			if err := challengeSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Printf("acme challenge listener: %v", err)
			}
		}()

		tlsConfig := manager.TLSConfig()
		tlsConfig.MinVersion = tls.VersionTLS12
		server.TLSConfig = tlsConfig

		go func() {
			<-ctx.Done()
			shutdown()
			_ = challengeSrv.Close()
		}()

		if err := server.ListenAndServeTLS("", ""); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}

	go func() {
		<-ctx.Done()
		shutdown()
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, indexHTML)
}

// scoreInput mirrors the ingestion contract: timestamp must already be an
// integer of milliseconds, no string-date parsing happens here.
type scoreInput struct {
	Symbol    string   `json:"symbol"`
	Timestamp *int64   `json:"timestamp"`
	Score     *float64 `json:"score"`
}

func (s *Server) handleAddScores(w http.ResponseWriter, r *http.Request) {
	var raw json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		writeError(w, http.StatusBadRequest, "request must be JSON")
		return
	}

	// single object or list of objects
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		items = []json.RawMessage{raw}
	}
	if len(items) == 0 {
		writeError(w, http.StatusBadRequest, "empty score payload")
		return
	}

	var inserted []domain.ScoreRecord
	var itemErrors []string

	for i, item := range items {
		var input scoreInput
		if err := json.Unmarshal(item, &input); err != nil {
			itemErrors = append(itemErrors, fmt.Sprintf("item %d: timestamp must be a milliseconds integer and score a number", i))
			continue
		}
		if input.Symbol == "" || input.Timestamp == nil || input.Score == nil {
			itemErrors = append(itemErrors, fmt.Sprintf("item %d: missing symbol, timestamp or score", i))
			continue
		}

		record := domain.ScoreRecord{Symbol: input.Symbol, Timestamp: *input.Timestamp, Score: *input.Score}
		if err := s.Scores.Put(record); err != nil {
			itemErrors = append(itemErrors, fmt.Sprintf("item %d: %v", i, err))
			continue
		}
		inserted = append(inserted, record)
	}

	response := map[string]any{
		"message":            fmt.Sprintf("processed %d out of %d items", len(inserted), len(items)),
		"successful_inserts": inserted,
	}
	status := http.StatusCreated
	if len(itemErrors) > 0 {
		response["errors"] = itemErrors
		status = http.StatusMultiStatus
	}
	writeJSON(w, status, response)
}

func (s *Server) handleAllScores(w http.ResponseWriter, r *http.Request) {
	records, err := s.Scores.All()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleScoresBySymbol(w http.ResponseWriter, r *http.Request) {
	symbol := r.PathValue("symbol")

	records, err := s.Scores.BySymbol(symbol)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if len(records) == 0 {
		writeJSON(w, http.StatusNotFound, map[string]string{
			"message": fmt.Sprintf("no scores found for symbol %q", symbol),
		})
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleDeleteScores(w http.ResponseWriter, r *http.Request) {
	symbol := r.PathValue("symbol")

	removed, err := s.Scores.DeleteSymbol(symbol)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if removed == 0 {
		writeJSON(w, http.StatusNotFound, map[string]string{
			"message": fmt.Sprintf("no scores found for symbol %q to delete", symbol),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": fmt.Sprintf("deleted %d scores for symbol %q", removed, symbol),
		"deleted": removed,
	})
}

func (s *Server) handleBalanceHistory(w http.ResponseWriter, r *http.Request) {
	history, err := s.Snapshots.History()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, history)
}

func (s *Server) handleSeries(w http.ResponseWriter, r *http.Request) {
	pair, err := domain.ParsePair(r.PathValue("pair"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	interval := r.URL.Query().Get("interval")
	if interval == "" {
		interval = "1m"
	}
	limit := 1440
	if rawLimit := r.URL.Query().Get("limit"); rawLimit != "" {
		limit, err = strconv.Atoi(rawLimit)
		if err != nil || limit <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
	}
	var since time.Time
	if rawSince := r.URL.Query().Get("since"); rawSince != "" {
		millis, err := strconv.ParseInt(rawSince, 10, 64)
		if err != nil || millis < 0 {
			writeError(w, http.StatusBadRequest, "since must be a milliseconds integer")
			return
		}
		since = time.UnixMilli(millis)
	}

	rows, err := s.Series.Series(r.Context(), pair, interval, since, limit)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, domain.ErrSourceUnavailable) {
			status = http.StatusBadGateway
		}
		writeError(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) handleBalanceStream(w http.ResponseWriter, r *http.Request) {
	if s.Snapshots == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprint(w, "snapshot store not available")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	// comment heartbeat every 30s so proxies keep the connection
	heartbeat := time.NewTicker(30 * time.Second)
	defer heartbeat.Stop()

	pollTicker := time.NewTicker(snapshotPollInterval)
	defer pollTicker.Stop()

	lastIndex := uint64(0)
	sendSnapshots := func() error {
		records, err := s.Snapshots.SnapshotsAfter(lastIndex)
		if err != nil {
			return err
		}
		for _, record := range records {
			payload, err := json.Marshal(record.Snapshot)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "event: balance\n")
			fmt.Fprintf(w, "data: %s\n\n", payload)
			flusher.Flush()
			lastIndex = record.Index
		}
		return nil
	}

	if err := sendSnapshots(); err != nil {
		http.Error(w, "failed to load snapshots", http.StatusInternalServerError)
		log.Printf("balance stream initial load: %v", err)
		return
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			fmt.Fprintf(w, ": ping\n\n")
			flusher.Flush()
		case <-pollTicker.C:
			if err := sendSnapshots(); err != nil {
				log.Printf("balance stream poll err: %v", err)
			}
		}
	}
}
