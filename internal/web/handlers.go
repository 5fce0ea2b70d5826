package web

import (
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"

	_ "embed"

	"github.com/diogo/waychat/internal/history"
	"github.com/diogo/waychat/internal/panel"
)

//go:embed static/index.html
var indexHTML string

var pageTemplate = template.Must(template.New("index").Parse(indexHTML))

type clickRequest struct {
	Target panel.Target `json:"target"`
}

type sendRequest struct {
	Message string `json:"message"`
}

type pageData struct {
	Title string
	View  panel.View
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pageTemplate.Execute(w, pageData{Title: "WayChat", View: sess.ctrl.Render()}); err != nil {
		s.logger.Error().Err(err).Msg("failed to render page")
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "ok",
		"sessions": s.SessionCount(),
	})
}

func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	sess.ctrl.Toggle()
	writeJSON(w, http.StatusOK, sess.ctrl.Render())
}

func (s *Server) handleClick(w http.ResponseWriter, r *http.Request) {
	var req clickRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	switch req.Target {
	case panel.TargetPanel, panel.TargetToggle, panel.TargetOutside:
	default:
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown click target %q", req.Target))
		return
	}

	sess := s.session(w, r)
	sess.ctrl.Click(req.Target)
	writeJSON(w, http.StatusOK, sess.ctrl.Render())
}

// handleSend runs a full turn and answers with the resulting View. Clients
// connected to /chat/ws see the placeholder while the reply is outstanding.
func (s *Server) handleSend(w http.ResponseWriter, r *http.Request) {
	var req sendRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	sess := s.session(w, r)
	// Completion failures are already rendered as the error entry
	_ = sess.ctrl.Submit(r.Context(), req.Message)
	writeJSON(w, http.StatusOK, sess.ctrl.Render())
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	writeJSON(w, http.StatusOK, sess.ctrl.Render())
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	format, err := history.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	sess := s.session(w, r)
	opts := history.DefaultExportOptions()
	opts.Format = format
	opts.Model = s.opts.Model
	opts.ExportedAt = s.now()

	data, err := history.Export(sess.ctrl.Transcript(), opts)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	filename := "waychat-" + opts.ExportedAt.Format("20060102-150405") + format.Extension()
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	_, _ = w.Write(data)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
