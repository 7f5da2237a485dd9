package realtime

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"shellbridge/internal/shell"
	"shellbridge/internal/tools"
	"shellbridge/internal/watcher"
)

type executeRequest struct {
	Command   string `json:"command"`
	TimeoutMs int    `json:"timeoutMs,omitempty"`
}

func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	var req executeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Command == "" {
		writeError(w, http.StatusBadRequest, "command is required")
		return
	}

	res, err := s.session.Execute(req.Command, time.Duration(req.TimeoutMs)*time.Millisecond)
	if err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleDrain(w http.ResponseWriter, r *http.Request) {
	res, err := s.session.ContinueDraining()
	if err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleInterrupt(w http.ResponseWriter, r *http.Request) {
	res, err := s.session.Interrupt()
	if err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.session.Reset())
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.session.Status())
}

func (s *Server) handleFileOperation(w http.ResponseWriter, r *http.Request) {
	var req tools.FileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	out, err := s.fileOps.Execute(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"output": out})
}

func (s *Server) handleFileTree(w http.ResponseWriter, r *http.Request) {
	tree := watcher.BuildFileTree(s.fileWatch.WorkDir())
	writeJSON(w, http.StatusOK, tree)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeSessionError maps session errors onto HTTP statuses: caller protocol
// violations are conflicts, process failures are server-side errors.
func writeSessionError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, shell.ErrSessionBusy) || errors.Is(err, shell.ErrNoPending) {
		status = http.StatusConflict
	}
	writeError(w, status, err.Error())
}
