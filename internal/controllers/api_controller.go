package controllers

import (
	"errors"
	"net/http"

	json "github.com/goccy/go-json"

	"gsd/internal/monitor"
	"gsd/internal/providers"
	"gsd/internal/services"
)

const maxRequestBodySize = 1 << 20 // 1 MB

type ApiController struct {
	logger     providers.Logger
	supervisor services.SupervisorInterface
	cache      providers.CacheProviderInterface
}

func NewApiController(logger providers.Logger, supervisor services.SupervisorInterface, cache providers.CacheProviderInterface) *ApiController {
	return &ApiController{
		logger:     logger,
		supervisor: supervisor,
		cache:      cache,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	gson, err := json.Marshal(v)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(gson)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// errStatus maps domain sentinels onto HTTP status codes.
func errStatus(err error) int {
	switch {
	case errors.Is(err, monitor.ErrInvalidIdentifier):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrTargetNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrDuplicateTarget),
		errors.Is(err, services.ErrTargetBusy),
		errors.Is(err, monitor.ErrSessionActive),
		errors.Is(err, monitor.ErrNothingToExport):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (ac *ApiController) AddTarget(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	var payload struct {
		Target string `json:"target"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	username, err := ac.supervisor.Add(payload.Target)
	if err != nil {
		writeError(w, errStatus(err), err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"username": username})
}

func (ac *ApiController) RemoveTarget(w http.ResponseWriter, r *http.Request) {
	username := r.URL.Query().Get("u")
	if err := ac.supervisor.Remove(username); err != nil {
		writeError(w, errStatus(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (ac *ApiController) StartTarget(w http.ResponseWriter, r *http.Request) {
	username := r.URL.Query().Get("u")
	if err := ac.supervisor.Start(username); err != nil {
		writeError(w, errStatus(err), err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"username": username, "status": monitor.StatusConnecting.String()})
}

func (ac *ApiController) StopTarget(w http.ResponseWriter, r *http.Request) {
	username := r.URL.Query().Get("u")
	if err := ac.supervisor.Stop(username); err != nil {
		writeError(w, errStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"username": username, "status": monitor.StatusIdle.String()})
}

func (ac *ApiController) StartAll(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]int{"started": ac.supervisor.StartAll()})
}

func (ac *ApiController) StopAll(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]int{"stopped": ac.supervisor.StopAll()})
}

func (ac *ApiController) Status(w http.ResponseWriter, r *http.Request) {
	if data, ok := ac.cache.Get("status"); ok {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
		return
	}

	snapshot := ac.supervisor.StatusSnapshot()
	gson, err := json.Marshal(snapshot)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	ac.cache.Set("status", gson)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(gson)
}

func (ac *ApiController) Export(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	var payload struct {
		Path string `json:"path"`
	}
	// An empty body means the default export path.
	_ = json.NewDecoder(r.Body).Decode(&payload)

	entries, path, err := ac.supervisor.Export(payload.Path)
	if err != nil {
		writeError(w, errStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries, "path": path})
}

func (ac *ApiController) SetAPIKey(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	var payload struct {
		APIKey string `json:"api_key"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	if err := ac.supervisor.SetAPIKey(payload.APIKey); err != nil {
		ac.logger.Errorf(providers.TypePost, "Cannot persist API key: %s", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
