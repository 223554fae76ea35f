package web

import (
	"errors"
	"net/http"
	"strings"

	"github.com/JonMunkholm/sdvmigrate/internal/export"
	"github.com/JonMunkholm/sdvmigrate/internal/logging"
	"github.com/JonMunkholm/sdvmigrate/internal/model"
)

// SummaryResponse is returned by GET /api/summary.
type SummaryResponse struct {
	RunID          string       `json:"run_id"`
	Input          string       `json:"input"`
	Fingerprint    string       `json:"fingerprint"`
	Counts         model.Counts `json:"counts"`
	Errors         int          `json:"errors"`
	Warnings       int          `json:"warnings"`
	OrphanReceipts int          `json:"orphan_receipts"`
	RollChanges    int          `json:"roll_changes"`
	Sessions       []string     `json:"sessions"`
}

// SessionSummary is one entry of GET /api/sessions.
type SessionSummary struct {
	Session string `json:"session"`
	model.Counts
}

// ExportResponse is returned by POST /api/export.
type ExportResponse struct {
	Session string   `json:"session,omitempty"`
	Files   []string `json:"files"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok", "run_id": s.run.ID})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	res := s.run.Result
	writeJSON(w, r, http.StatusOK, SummaryResponse{
		RunID:          s.run.ID,
		Input:          s.run.Input,
		Fingerprint:    s.run.Discovery.Fingerprint,
		Counts:         res.Counts(),
		Errors:         len(res.Errors),
		Warnings:       len(res.Warnings),
		OrphanReceipts: len(res.OrphanReceipts),
		RollChanges:    len(s.run.RollChanges),
		Sessions:       append([]string{}, res.Sessions()...),
	})
}

// handleDiscovery returns the discovery report as JSON, or as the plain-text
// report when ?format=text.
func (s *Server) handleDiscovery(w http.ResponseWriter, r *http.Request) {
	if strings.EqualFold(r.URL.Query().Get("format"), "text") {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		if _, err := s.run.Discovery.WriteTo(w); err != nil {
			logging.FromContext(r.Context()).Error("write discovery", "error", err)
		}
		return
	}
	writeJSON(w, r, http.StatusOK, s.run.Discovery)
}

func (s *Server) handleValidation(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, s.run.ValidationReport())
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	res := s.run.Result
	out := []SessionSummary{}
	for _, session := range res.Sessions() {
		out = append(out, SessionSummary{
			Session: session,
			Counts: model.Counts{
				Students:  len(res.Students[session]),
				Receipts:  len(res.Receipts[session]),
				Bills:     len(res.Bills[session]),
				Discounts: len(res.Discounts[session]),
			},
		})
	}
	writeJSON(w, r, http.StatusOK, out)
}

// handleExport writes workbooks for ?session=, or for all sessions when the
// parameter is absent.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	session := strings.TrimSpace(r.URL.Query().Get("session"))

	if err := s.limiter.Acquire(r.Context()); err != nil {
		respondError(w, r, err, http.StatusConflict)
		return
	}
	defer s.limiter.Release()

	files, err := s.run.Export(r.Context(), s.exportOpts, session)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, export.ErrUnknownSession) {
			status = http.StatusNotFound
		}
		respondError(w, r, err, status)
		return
	}

	writeJSON(w, r, http.StatusOK, ExportResponse{Session: session, Files: files})
}
