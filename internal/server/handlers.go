package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"carbonlens/internal/basescore"
	"carbonlens/internal/pipeline"

	"github.com/go-chi/chi/v5"
)

var serverStartTime = time.Now()

// HealthResponse is returned by /health
type HealthResponse struct {
	Status string            `json:"status"`
	Uptime string            `json:"uptime"`
	Checks map[string]string `json:"checks"`
}

// ManufacturerInfo lists the years with base scores for a manufacturer
type ManufacturerInfo struct {
	Name  string `json:"name"`
	Years []int  `json:"years"`
}

// ScoreResponse is returned by /api/scores/{manufacturer}
type ScoreResponse struct {
	Manufacturer string  `json:"manufacturer"`
	Year         int     `json:"year"`
	BaseScore    float64 `json:"base_score"`
}

// AdjustRequest is the body of POST /api/adjust. BaseScore, when omitted,
// is looked up in the score table for Year.
type AdjustRequest struct {
	Manufacturer string   `json:"manufacturer"`
	BaseScore    *float64 `json:"base_score,omitempty"`
	Year         int      `json:"year,omitempty"`
	PDFPath      string   `json:"pdf_path,omitempty"`
	Limit        int      `json:"limit,omitempty"`
	Refresh      bool     `json:"refresh,omitempty"`
}

// ErrorResponse is the body of every error reply
type ErrorResponse struct {
	Error string `json:"error"`
}

// handleHealth handles the /health endpoint
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{
		"pipeline": "ok",
		"scores":   "ok",
		"cache":    "ok",
	}
	status := "ok"

	if s.deps.Runner == nil {
		checks["pipeline"] = "missing"
		status = "unhealthy"
	}
	if s.deps.Scores == nil {
		checks["scores"] = "missing"
	}
	if s.deps.Cache == nil {
		checks["cache"] = "disabled"
	}

	code := http.StatusOK
	if status != "ok" {
		code = http.StatusServiceUnavailable
	}
	s.respondJSON(w, code, HealthResponse{
		Status: status,
		Uptime: time.Since(serverStartTime).Round(time.Second).String(),
		Checks: checks,
	})
}

// handleListManufacturers handles GET /api/manufacturers
func (s *Server) handleListManufacturers(w http.ResponseWriter, r *http.Request) {
	if s.deps.Scores == nil {
		s.respondError(w, http.StatusServiceUnavailable, "score table not loaded")
		return
	}

	names := s.deps.Scores.Manufacturers()
	out := make([]ManufacturerInfo, 0, len(names))
	for _, name := range names {
		out = append(out, ManufacturerInfo{Name: name, Years: s.deps.Scores.Years(name)})
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"manufacturers": out,
	})
}

// handleGetScore handles GET /api/scores/{manufacturer}?year=YYYY
func (s *Server) handleGetScore(w http.ResponseWriter, r *http.Request) {
	if s.deps.Scores == nil {
		s.respondError(w, http.StatusServiceUnavailable, "score table not loaded")
		return
	}

	manufacturer := chi.URLParam(r, "manufacturer")
	year := s.deps.DefaultYear
	if v := r.URL.Query().Get("year"); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "year must be an integer")
			return
		}
		year = y
	}

	score, err := s.deps.Scores.Lookup(manufacturer, year)
	if err != nil {
		s.respondLookupError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, ScoreResponse{
		Manufacturer: manufacturer,
		Year:         year,
		BaseScore:    score,
	})
}

// handleAdjust handles POST /api/adjust
func (s *Server) handleAdjust(w http.ResponseWriter, r *http.Request) {
	if s.deps.Runner == nil {
		s.respondError(w, http.StatusServiceUnavailable, "pipeline not configured")
		return
	}

	var body AdjustRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&body); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	req := pipeline.Request{
		Manufacturer: strings.TrimSpace(body.Manufacturer),
		PDFPath:      body.PDFPath,
		Limit:        body.Limit,
	}
	if err := pipeline.ValidateManufacturer(req.Manufacturer); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if body.BaseScore != nil {
		req.BaseScore = *body.BaseScore
	} else {
		if s.deps.Scores == nil {
			s.respondError(w, http.StatusBadRequest, "base_score is required when no score table is loaded")
			return
		}
		year := body.Year
		if year == 0 {
			year = s.deps.DefaultYear
		}
		score, err := s.deps.Scores.Lookup(req.Manufacturer, year)
		if err != nil {
			s.respondLookupError(w, err)
			return
		}
		req.BaseScore = score
	}

	if req.PDFPath == "" && s.deps.ReportPath != nil {
		if path := s.deps.ReportPath(req.Manufacturer); path != "" {
			if _, err := os.Stat(path); err == nil {
				req.PDFPath = path
			}
		}
	}

	s.runMu.Lock()
	defer s.runMu.Unlock()

	if body.Refresh && s.deps.Cache != nil {
		if err := s.deps.Cache.BumpVersion(); err != nil {
			s.log.Error("Failed to invalidate cache before run", "error", err)
		}
	}

	res, err := s.deps.Runner.Run(r.Context(), req)
	if err != nil {
		if errors.Is(err, pipeline.ErrInvalidInput) {
			s.respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.log.Error("Score adjustment failed", "manufacturer", req.Manufacturer, "error", err)
		s.respondError(w, http.StatusInternalServerError, "score adjustment failed")
		return
	}

	s.respondJSON(w, http.StatusOK, res)
}

// handleBumpCache handles POST /api/cache/bump
func (s *Server) handleBumpCache(w http.ResponseWriter, r *http.Request) {
	if s.deps.Cache == nil {
		s.respondError(w, http.StatusServiceUnavailable, "cache disabled")
		return
	}

	s.runMu.Lock()
	err := s.deps.Cache.BumpVersion()
	s.runMu.Unlock()

	if err != nil {
		s.log.Error("Failed to invalidate cache", "error", err)
		s.respondError(w, http.StatusInternalServerError, "failed to invalidate cache")
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]string{"status": "invalidated"})
}

func (s *Server) respondLookupError(w http.ResponseWriter, err error) {
	if errors.Is(err, basescore.ErrNotFound) {
		s.respondError(w, http.StatusNotFound, err.Error())
		return
	}
	s.respondError(w, http.StatusInternalServerError, err.Error())
}

// respondJSON writes a JSON response
func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error("Failed to encode JSON response", "error", err)
	}
}

// respondError writes a JSON error response
func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, ErrorResponse{Error: message})
}
