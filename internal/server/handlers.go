package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/mosquedir/mosqueadmin/pkg/actions"
	"github.com/mosquedir/mosqueadmin/pkg/backend"
	"github.com/mosquedir/mosqueadmin/pkg/dashboard"
	"github.com/mosquedir/mosqueadmin/pkg/directory"
	"github.com/mosquedir/mosqueadmin/pkg/feed"
	"github.com/mosquedir/mosqueadmin/pkg/query"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// errorStatus maps action errors to HTTP statuses.
func errorStatus(err error) int {
	var ve *actions.ValidationError
	if errors.As(err, &ve) {
		return http.StatusBadRequest
	}
	var apiErr *backend.APIError
	if errors.As(err, &apiErr) && apiErr.Status >= 400 && apiErr.Status < 500 {
		return apiErr.Status
	}
	return http.StatusBadGateway
}

type mosquesResponse struct {
	Query   query.State            `json:"query"`
	Mosques []directory.MosqueView `json:"mosques"`
}

func (s *Server) handleMosques(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if len(q) > 0 {
		st := s.Dash.Query()
		if q.Has("search") {
			st.Search = q.Get("search")
		}
		if q.Has("status") {
			status, err := query.ParseStatusFilter(q.Get("status"))
			if err != nil {
				writeError(w, http.StatusBadRequest, err)
				return
			}
			st.Status = status
		}
		if q.Has("admin") {
			f, err := query.ParseAdminFilter(q.Get("admin"))
			if err != nil {
				writeError(w, http.StatusBadRequest, err)
				return
			}
			st.Admin = f
		}
		if q.Has("synonyms") {
			st.SynonymShortcut = q.Get("synonyms") == "shortcut"
		}
		s.Dash.SetQuery(st)
	}
	writeJSON(w, http.StatusOK, mosquesResponse{Query: s.Dash.Query(), Mosques: s.Dash.Visible()})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Dash.Stats())
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	err := s.Dash.Refresh(r.Context())
	switch {
	case errors.Is(err, feed.ErrSuperseded):
		writeError(w, http.StatusConflict, err)
	case err != nil:
		writeError(w, http.StatusBadGateway, err)
	default:
		writeJSON(w, http.StatusOK, s.Dash.Stats())
	}
}

func (s *Server) handleSelection(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"ids": s.Dash.Selected()})
}

func (s *Server) handleSelectAll(w http.ResponseWriter, r *http.Request) {
	s.Dash.SelectAll()
	writeJSON(w, http.StatusOK, map[string][]string{"ids": s.Dash.Selected()})
}

type ToggleRequest struct {
	ID string `json:"id"`
}

func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request) {
	var req ToggleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	selected, err := s.Dash.Toggle(req.ID)
	if errors.Is(err, dashboard.ErrNotVisible) {
		writeError(w, http.StatusNotFound, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"id": directory.NormalizeID(req.ID), "selected": selected})
}

type DeleteRequest struct {
	Reason string `json:"reason"`
}

type failureJSON struct {
	ID    string `json:"id"`
	Error string `json:"error"`
}

type reportJSON struct {
	Succeeded []string      `json:"succeeded"`
	Failed    []failureJSON `json:"failed"`
}

func (s *Server) handleDeleteSelected(w http.ResponseWriter, r *http.Request) {
	var req DeleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	report, err := s.Dash.DeleteSelected(r.Context(), req.Reason)
	if err != nil {
		writeError(w, errorStatus(err), err)
		return
	}

	out := reportJSON{Succeeded: report.Succeeded, Failed: []failureJSON{}}
	if out.Succeeded == nil {
		out.Succeeded = []string{}
	}
	for _, f := range report.Failed {
		out.Failed = append(out.Failed, failureJSON{ID: f.ID, Error: f.Err.Error()})
	}
	status := http.StatusOK
	if !report.OK() {
		status = http.StatusMultiStatus
	}
	writeJSON(w, status, out)
}

func (s *Server) handleDeleteOne(w http.ResponseWriter, r *http.Request) {
	var req DeleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.Dash.Delete(r.Context(), chi.URLParam(r, "id"), req.Reason); err != nil {
		writeError(w, errorStatus(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleChanges(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		writeError(w, http.StatusNotFound, errors.New("snapshot history is not enabled"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	changes, err := s.DB.ListRecentChanges(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, changes)
}
