package api

import "net/http"

func (s *Server) handleCreateBackup(w http.ResponseWriter, r *http.Request) {
	path, err := s.backend.CreateBackup(s.backupDir)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"path": path})
}
