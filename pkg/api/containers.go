package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/wolfstacksystems/wolfstack/pkg/client"
	"github.com/wolfstacksystems/wolfstack/pkg/runtime"
	"github.com/wolfstacksystems/wolfstack/pkg/types"
	"github.com/wolfstacksystems/wolfstack/pkg/wolferr"
)

func runtimeFromPath(r *http.Request) (types.Runtime, error) {
	switch mux.Vars(r)["runtime"] {
	case "docker":
		return types.RuntimeDocker, nil
	case "lxc":
		return types.RuntimeLxc, nil
	default:
		return "", wolferr.New(wolferr.Validation, "unknown runtime %q", mux.Vars(r)["runtime"])
	}
}

func (s *Server) handleListContainers(w http.ResponseWriter, r *http.Request) {
	rt, err := runtimeFromPath(r)
	if err != nil {
		writeError(w, err)
		return
	}
	all := r.URL.Query().Get("all") == "true"

	containers, err := runtime.For(rt).List(r.Context(), all)
	if err != nil {
		writeError(w, wolferr.Wrap(wolferr.Adapter, err, "list %s containers", rt))
		return
	}
	writeJSON(w, http.StatusOK, containers)
}

func (s *Server) handleCreateContainer(w http.ResponseWriter, r *http.Request) {
	rt, err := runtimeFromPath(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req client.CreateContainerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, wolferr.Wrap(wolferr.Validation, err, "decode create request"))
		return
	}
	if req.Name == "" {
		writeError(w, wolferr.New(wolferr.Validation, "name is required"))
		return
	}

	spec := runtime.CreateSpec{
		Name:      req.Name,
		Image:     req.Image,
		Ports:     req.Ports,
		Env:       req.Env,
		Volumes:   req.Volumes,
		WolfnetIP: req.WolfnetIP,
		Lxc:       req.Lxc,
	}
	if err := runtime.For(rt).Create(r.Context(), spec); err != nil {
		writeError(w, wolferr.Wrap(wolferr.Adapter, err, "create %s container %s", rt, req.Name))
		return
	}
	w.WriteHeader(http.StatusCreated)
}

// actionableStates are the actions this adapter surface can actually drive;
// pause/unpause/freeze/unfreeze have no Adapter equivalent yet.
var actionableStates = map[string]func(a runtime.Adapter, ctx context.Context, name string) error{
	"start":   func(a runtime.Adapter, ctx context.Context, name string) error { return a.Start(ctx, name) },
	"stop":    func(a runtime.Adapter, ctx context.Context, name string) error { return a.Stop(ctx, name) },
	"remove":  func(a runtime.Adapter, ctx context.Context, name string) error { return a.Destroy(ctx, name) },
	"destroy": func(a runtime.Adapter, ctx context.Context, name string) error { return a.Destroy(ctx, name) },
	"restart": func(a runtime.Adapter, ctx context.Context, name string) error {
		if err := a.Stop(ctx, name); err != nil {
			return err
		}
		return a.Start(ctx, name)
	},
}

func (s *Server) handleContainerAction(w http.ResponseWriter, r *http.Request) {
	rt, err := runtimeFromPath(r)
	if err != nil {
		writeError(w, err)
		return
	}
	name := mux.Vars(r)["name"]

	var body struct {
		Action string `json:"action"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, wolferr.Wrap(wolferr.Validation, err, "decode action body"))
		return
	}

	fn, ok := actionableStates[body.Action]
	if !ok {
		writeError(w, wolferr.New(wolferr.Validation, "unsupported action %q", body.Action))
		return
	}
	if err := fn(runtime.For(rt), r.Context(), name); err != nil {
		writeError(w, wolferr.Wrap(wolferr.Adapter, err, "%s %s container %s", body.Action, rt, name))
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handlePullImage(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Image string `json:"image"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Image == "" {
		writeError(w, wolferr.New(wolferr.Validation, "image is required"))
		return
	}
	if err := runtime.For(types.RuntimeDocker).Pull(r.Context(), body.Image); err != nil {
		writeError(w, wolferr.Wrap(wolferr.Adapter, err, "pull image %s", body.Image))
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleCloneContainer(w http.ResponseWriter, r *http.Request) {
	template := mux.Vars(r)["name"]
	var body struct {
		NewName string `json:"new_name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.NewName == "" {
		writeError(w, wolferr.New(wolferr.Validation, "new_name is required"))
		return
	}
	if err := runtime.For(types.RuntimeLxc).Clone(r.Context(), template, body.NewName); err != nil {
		writeError(w, wolferr.Wrap(wolferr.Adapter, err, "clone %s to %s", template, body.NewName))
		return
	}
	w.WriteHeader(http.StatusCreated)
}
