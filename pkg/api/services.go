package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/wolfstacksystems/wolfstack/pkg/types"
	"github.com/wolfstacksystems/wolfstack/pkg/wolferr"
)

func (s *Server) handleListServices(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.ListServices())
}

func (s *Server) handleGetService(w http.ResponseWriter, r *http.Request) {
	svc, err := s.store.Get(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, svc)
}

func (s *Server) handleCreateService(w http.ResponseWriter, r *http.Request) {
	var svc types.WolfRunService
	if err := json.NewDecoder(r.Body).Decode(&svc); err != nil {
		writeError(w, wolferr.Wrap(wolferr.Validation, err, "decode service body"))
		return
	}
	if svc.Name == "" {
		writeError(w, wolferr.New(wolferr.Validation, "name is required"))
		return
	}
	if svc.ClusterName == "" {
		svc.ClusterName = types.DefaultClusterName
	}

	created, err := s.store.Create(svc)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleDeleteService(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Delete(mux.Vars(r)["id"]); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleScaleService(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Replicas int `json:"replicas"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, wolferr.Wrap(wolferr.Validation, err, "decode scale body"))
		return
	}

	svc, err := s.store.Scale(mux.Vars(r)["id"], body.Replicas)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, svc)
}
