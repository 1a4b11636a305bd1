package api

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ssargent/esmkit/pkg/catalog"
	"github.com/ssargent/esmkit/pkg/loadorder"
)

// maxLoadOrderBody caps POST /loadorder bodies.
const maxLoadOrderBody = 1 << 20

// Server holds the API server state
type Server struct {
	catalog RecordCatalog
	config  ServerConfig
	metrics *Metrics
	logger  *log.Logger
}

// NewServer creates a new API server. metrics may be nil.
func NewServer(cat RecordCatalog, config ServerConfig, metrics *Metrics, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Server{
		catalog: cat,
		config:  config,
		metrics: metrics,
		logger:  logger,
	}
}

func (s *Server) observe(operation string, start time.Time, err error) {
	if s.metrics != nil {
		s.metrics.RecordCatalogOperation(operation, err == nil || errors.Is(err, catalog.ErrNotFound), time.Since(start))
	}
}

func pathParam(r *http.Request, name string) (string, error) {
	return url.PathUnescape(chi.URLParam(r, name))
}

// handleHealth godoc
//
//	@Summary		Health check
//	@Description	Get the health status of the API
//	@Tags			health
//	@Produce		json
//	@Success		200	{object}	map[string]string
//	@Router			/health [get]
//	@Security		ApiKeyAuth
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.metrics != nil {
		s.metrics.RecordHealthCheck(true)
	}
	writeData(w, map[string]string{"status": "healthy"})
}

// handleFindRecords godoc
//
//	@Summary		Find records by ID
//	@Description	List every catalogued record with the given editor ID, across files and tags
//	@Tags			records
//	@Produce		json
//	@Param			id	path		string	true	"Record ID (case-insensitive)"
//	@Success		200	{array}		catalog.Entry
//	@Failure		404	{object}	map[string]string
//	@Failure		500	{object}	map[string]string
//	@Router			/records/{id} [get]
//	@Security		ApiKeyAuth
func (s *Server) handleFindRecords(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	id, err := pathParam(r, "id")
	if err != nil || id == "" {
		writeError(w, http.StatusBadRequest, "Invalid record ID")
		return
	}

	entries, err := s.catalog.Find(id)
	s.observe("find", start, err)
	if err != nil {
		s.logger.Printf("find %q: %v", id, err)
		writeError(w, http.StatusInternalServerError, "Failed to find record: %v", err)
		return
	}
	if len(entries) == 0 {
		writeError(w, http.StatusNotFound, "Record not found")
		return
	}

	// listings leave out the raw bytes
	out := make([]catalog.Entry, len(entries))
	for i, e := range entries {
		out[i] = *e
		out[i].Data = nil
	}
	writeData(w, out)
}

// handleGetRecord godoc
//
//	@Summary		Get one record
//	@Description	Get a catalogued record of one file, decoded when its type is known
//	@Tags			records
//	@Produce		json
//	@Param			file	path		string	true	"File name"
//	@Param			tag		path		string	true	"Record tag"
//	@Param			id		path		string	true	"Record ID"
//	@Success		200		{object}	RecordResponse
//	@Failure		404		{object}	map[string]string
//	@Failure		500		{object}	map[string]string
//	@Router			/records/{file}/{tag}/{id} [get]
//	@Security		ApiKeyAuth
func (s *Server) handleGetRecord(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	file, err1 := pathParam(r, "file")
	tag, err2 := pathParam(r, "tag")
	id, err3 := pathParam(r, "id")
	if err := errors.Join(err1, err2, err3); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid path encoding")
		return
	}

	entry, err := s.catalog.Lookup(file, tag, id)
	s.observe("lookup", start, err)
	if errors.Is(err, catalog.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Record not found")
		return
	}
	if err != nil {
		s.logger.Printf("lookup %s/%s/%s: %v", file, tag, id, err)
		writeError(w, http.StatusInternalServerError, "Failed to get record: %v", err)
		return
	}

	resp := RecordResponse{Entry: entry}
	if rec, err := entry.Record(); err == nil {
		resp.Record = rec
	} else {
		s.logger.Printf("decode %s %q from %s: %v", entry.Tag, entry.ID, entry.File, err)
	}
	writeData(w, resp)
}

// handleListRuns godoc
//
//	@Summary		List import runs
//	@Description	List catalog import runs, oldest first
//	@Tags			catalog
//	@Produce		json
//	@Success		200	{array}		catalog.Run
//	@Failure		500	{object}	map[string]string
//	@Router			/runs [get]
//	@Security		ApiKeyAuth
func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	runs, err := s.catalog.Runs()
	s.observe("runs", start, err)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list runs: %v", err)
		return
	}
	if runs == nil {
		runs = []catalog.Run{}
	}
	writeData(w, runs)
}

// handleResolveLoadOrder godoc
//
//	@Summary		Resolve a load order
//	@Description	Order files so that every file follows its masters
//	@Tags			loadorder
//	@Accept			json
//	@Produce		json
//	@Param			request	body		LoadOrderRequest	true	"Files and their masters"
//	@Success		200		{object}	LoadOrderResponse
//	@Failure		400		{object}	map[string]string
//	@Failure		422		{object}	map[string]string
//	@Router			/loadorder [post]
//	@Security		ApiKeyAuth
func (s *Server) handleResolveLoadOrder(w http.ResponseWriter, r *http.Request) {
	var req LoadOrderRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxLoadOrderBody)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON request")
		return
	}
	if len(req.Files) == 0 {
		writeError(w, http.StatusBadRequest, "At least one file is required")
		return
	}

	var opts []loadorder.Option
	if req.MastersFirst {
		opts = append(opts, loadorder.SortMastersFirst())
	}
	order, err := loadorder.Resolve(req.Files, opts...)
	if s.metrics != nil {
		s.metrics.RecordLoadOrderResolution(err == nil)
	}
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "%v", err)
		return
	}
	writeData(w, LoadOrderResponse{Order: order})
}

// updateCatalogStats refreshes catalog gauges until done is closed.
func (s *Server) updateCatalogStats(done <-chan struct{}, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		if runs, err := s.catalog.Runs(); err == nil {
			s.metrics.UpdateCatalogStats(len(runs))
		}
		select {
		case <-done:
			return
		case <-ticker.C:
		}
	}
}
