package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/wolfstacksystems/wolfstack/pkg/types"
	"github.com/wolfstacksystems/wolfstack/pkg/wolferr"
)

func (s *Server) handleListNodes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.registry.ListNodes())
}

func (s *Server) handleGetNode(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	node, ok := s.registry.Get(id)
	if !ok {
		writeError(w, wolferr.New(wolferr.NotFound, "node %s not found", id))
		return
	}
	writeJSON(w, http.StatusOK, node)
}

func (s *Server) handleAddNode(w http.ResponseWriter, r *http.Request) {
	var node types.Node
	if err := json.NewDecoder(r.Body).Decode(&node); err != nil {
		writeError(w, wolferr.Wrap(wolferr.Validation, err, "decode node body"))
		return
	}
	if node.ID == "" || node.Address == "" {
		writeError(w, wolferr.New(wolferr.Validation, "node id and address are required"))
		return
	}
	s.registry.AddManual(node)
	writeJSON(w, http.StatusCreated, node)
}

func (s *Server) handleRemoveNode(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	s.registry.Remove(id)
	w.WriteHeader(http.StatusNoContent)
}
