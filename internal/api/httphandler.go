package api

import (
	"budgie/internal/flow"
	"budgie/internal/metrics"
	"budgie/internal/ports"
	"budgie/internal/types"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

// DefaultTenant is the configuration id used by the broker API mounted at /v2.
const DefaultTenant = "default"

const maxBodyBytes = 1 << 20

type Handler struct {
	Orchestrator *flow.Orchestrator
	Behavior     *flow.Behavior
	Catalog      *types.Catalog
	Metrics      *metrics.Metrics
	// Events is nil when the publisher cannot read back events.
	Events ports.EventLog
}

func NewHandler(orchestrator *flow.Orchestrator, catalog *types.Catalog, m *metrics.Metrics) *Handler {
	h := &Handler{
		Orchestrator: orchestrator,
		Behavior:     orchestrator.Behavior,
		Catalog:      catalog,
		Metrics:      m,
	}
	if events, ok := orchestrator.Publisher.(ports.EventLog); ok {
		h.Events = events
	}
	return h
}

// errorBody is the error document of the broker API.
type errorBody struct {
	Error       string `json:"error,omitempty"`
	Description string `json:"description,omitempty"`
}

type asyncResponse struct {
	Operation types.OperationType `json:"operation"`
}

type bindingResponse struct {
	Credentials map[string]any `json:"credentials,omitempty"`
}

func (h *Handler) Router() http.Handler {
	r := mux.NewRouter()
	r.Use(recovery, requestID, logging, instrument(h.Metrics))

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}).Methods(http.MethodGet)
	r.Handle("/metrics", h.Metrics.Handler()).Methods(http.MethodGet)

	r.HandleFunc("/configurations", h.listConfigurations).Methods(http.MethodGet)
	r.HandleFunc("/configurations/{configId}", h.getConfiguration).Methods(http.MethodGet)
	r.HandleFunc("/configurations/{configId}", h.putConfiguration).Methods(http.MethodPut)
	r.HandleFunc("/configurations/{configId}", h.deleteConfiguration).Methods(http.MethodDelete)
	r.HandleFunc("/configurations/{configId}/events", h.listEvents).Methods(http.MethodGet)

	h.brokerRoutes(r.PathPrefix("/v2").Subrouter())
	h.brokerRoutes(r.PathPrefix("/{configId}/v2").Subrouter())

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "NotFound", "endpoint not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "MethodNotAllowed", "method not allowed")
	})
	return r
}

func (h *Handler) brokerRoutes(v2 *mux.Router) {
	v2.HandleFunc("/catalog", h.getCatalog).Methods(http.MethodGet)

	v2.HandleFunc("/service_instances", h.listInstances).Methods(http.MethodGet)
	v2.HandleFunc("/service_instances", h.deleteAllInstances).Methods(http.MethodDelete)

	v2.HandleFunc("/service_instances/{instance_id}", h.getInstance).Methods(http.MethodGet)
	v2.HandleFunc("/service_instances/{instance_id}", h.createInstance).Methods(http.MethodPut)
	v2.HandleFunc("/service_instances/{instance_id}", h.updateInstance).Methods(http.MethodPatch)
	v2.HandleFunc("/service_instances/{instance_id}", h.deleteInstance).Methods(http.MethodDelete)
	v2.HandleFunc("/service_instances/{instance_id}/last_operation", h.lastOperation).Methods(http.MethodGet)

	b := "/service_instances/{instance_id}/service_bindings/{binding_id}"
	v2.HandleFunc(b, h.getBinding).Methods(http.MethodGet)
	v2.HandleFunc(b, h.bind).Methods(http.MethodPut)
	v2.HandleFunc(b, h.unbind).Methods(http.MethodDelete)
	v2.HandleFunc(b+"/last_operation", h.lastBindingOperation).Methods(http.MethodGet)
}

// ---- configurations

func (h *Handler) listConfigurations(w http.ResponseWriter, r *http.Request) {
	configs, err := h.Behavior.Configs.ListConfigs(r.Context())
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, configs)
}

func (h *Handler) getConfiguration(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["configId"]
	cfg, err := h.Behavior.Configs.GetConfig(r.Context(), id)
	if errors.Is(err, types.ErrNotFound) {
		writeError(w, http.StatusNotFound, "NotFound", "configuration "+id+" does not exist")
		return
	}
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

func (h *Handler) putConfiguration(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["configId"]
	var cfg types.BrokerConfig
	if err := decodeBody(r, &cfg, true); err != nil {
		writeError(w, http.StatusBadRequest, "InvalidConfiguration", err.Error())
		return
	}
	err := h.Behavior.Configure(r.Context(), id, cfg)
	switch {
	case errors.Is(err, types.ErrInvalidConfig), errors.Is(err, types.ErrUnknownReference):
		log.WithError(err).WithField("configId", id).Info("configuration rejected")
		writeError(w, http.StatusBadRequest, "InvalidConfiguration", err.Error())
		return
	case err != nil:
		h.internalError(w, r, err)
		return
	}
	log.WithField("configId", id).Info("configuration stored")
	writeJSON(w, http.StatusOK, cfg)
}

func (h *Handler) deleteConfiguration(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["configId"]
	err := h.Behavior.Configs.DeleteConfig(r.Context(), id)
	if errors.Is(err, types.ErrNotFound) {
		writeError(w, http.StatusNotFound, "NotFound", "configuration "+id+" does not exist")
		return
	}
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct{}{})
}

// listEvents returns the latest operation events of the tenant, newest first.
func (h *Handler) listEvents(w http.ResponseWriter, r *http.Request) {
	if h.Events == nil {
		writeError(w, http.StatusNotFound, "NotFound", "the event publisher does not keep events")
		return
	}
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "InvalidRequest", "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	events, err := h.Events.Events(r.Context(), mux.Vars(r)["configId"], limit)
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

// ---- broker API

func (h *Handler) getCatalog(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.Catalog)
}

func (h *Handler) listInstances(w http.ResponseWriter, r *http.Request) {
	instances, err := h.Orchestrator.Instances.ListInstances(r.Context())
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, instances)
}

func (h *Handler) deleteAllInstances(w http.ResponseWriter, r *http.Request) {
	if err := h.Orchestrator.DeleteAll(r.Context()); err != nil {
		h.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct{}{})
}

func (h *Handler) getInstance(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "instance_id")
	if !ok {
		return
	}
	inst, found := h.Orchestrator.Instances.LookupInstance(r.Context(), id)
	if !found {
		writeError(w, http.StatusNotFound, "NotFound", "service instance "+id.String()+" does not exist")
		return
	}
	writeJSON(w, http.StatusOK, inst)
}

func (h *Handler) createInstance(w http.ResponseWriter, r *http.Request) {
	h.provision(w, r, true)
}

func (h *Handler) updateInstance(w http.ResponseWriter, r *http.Request) {
	h.provision(w, r, false)
}

func (h *Handler) provision(w http.ResponseWriter, r *http.Request, create bool) {
	id, ok := pathUUID(w, r, "instance_id")
	if !ok {
		return
	}
	req, ok := brokerRequest(w, r)
	if !ok {
		return
	}
	var inst types.ServiceInstance
	if err := decodeBody(r, &inst, create); err != nil {
		writeError(w, http.StatusBadRequest, "BadRequest", err.Error())
		return
	}
	inst.ID = id
	inst.Bindings = nil
	if create {
		writeResult(w, h.Orchestrator.Create(r.Context(), req, inst))
		return
	}
	writeResult(w, h.Orchestrator.Update(r.Context(), req, inst))
}

func (h *Handler) deleteInstance(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "instance_id")
	if !ok {
		return
	}
	req, ok := brokerRequest(w, r)
	if !ok {
		return
	}
	writeResult(w, h.Orchestrator.Delete(r.Context(), req, id))
}

func (h *Handler) lastOperation(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "instance_id")
	if !ok {
		return
	}
	h.writeLastOperation(w, r, id)
}

func (h *Handler) getBinding(w http.ResponseWriter, r *http.Request) {
	instanceID, ok := pathUUID(w, r, "instance_id")
	if !ok {
		return
	}
	bindingID, ok := pathUUID(w, r, "binding_id")
	if !ok {
		return
	}
	b, err := h.Orchestrator.Instances.GetBinding(r.Context(), instanceID, bindingID)
	if errors.Is(err, types.ErrNotFound) {
		writeError(w, http.StatusNotFound, "NotFound", "binding "+bindingID.String()+" does not exist")
		return
	}
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (h *Handler) bind(w http.ResponseWriter, r *http.Request) {
	instanceID, ok := pathUUID(w, r, "instance_id")
	if !ok {
		return
	}
	bindingID, ok := pathUUID(w, r, "binding_id")
	if !ok {
		return
	}
	req, ok := brokerRequest(w, r)
	if !ok {
		return
	}
	var b types.Binding
	if err := decodeBody(r, &b, false); err != nil {
		writeError(w, http.StatusBadRequest, "BadRequest", err.Error())
		return
	}
	b.ID = bindingID
	writeResult(w, h.Orchestrator.Bind(r.Context(), req, instanceID, b))
}

func (h *Handler) unbind(w http.ResponseWriter, r *http.Request) {
	instanceID, ok := pathUUID(w, r, "instance_id")
	if !ok {
		return
	}
	bindingID, ok := pathUUID(w, r, "binding_id")
	if !ok {
		return
	}
	req, ok := brokerRequest(w, r)
	if !ok {
		return
	}
	writeResult(w, h.Orchestrator.Unbind(r.Context(), req, instanceID, bindingID))
}

func (h *Handler) lastBindingOperation(w http.ResponseWriter, r *http.Request) {
	if _, ok := pathUUID(w, r, "instance_id"); !ok {
		return
	}
	bindingID, ok := pathUUID(w, r, "binding_id")
	if !ok {
		return
	}
	h.writeLastOperation(w, r, bindingID)
}

func (h *Handler) writeLastOperation(w http.ResponseWriter, r *http.Request, trackingID uuid.UUID) {
	op, found := h.Orchestrator.LastOperation(r.Context(), trackingID)
	if !found {
		writeError(w, http.StatusBadRequest, "BadRequest", "no operation for "+trackingID.String())
		return
	}
	writeJSON(w, http.StatusOK, op)
}

func (h *Handler) internalError(w http.ResponseWriter, r *http.Request, err error) {
	log.WithError(err).WithFields(log.Fields{
		"requestID": RequestIDFrom(r.Context()),
		"path":      r.URL.Path,
	}).Error("request failed")
	writeError(w, http.StatusInternalServerError, "InternalError", "internal server error")
}

// ---- helpers

// brokerRequest derives the tenant from the path and reads accepts_incomplete.
func brokerRequest(w http.ResponseWriter, r *http.Request) (flow.Request, bool) {
	req := flow.Request{Tenant: DefaultTenant}
	if id, ok := mux.Vars(r)["configId"]; ok {
		req.Tenant = id
	}
	if v := r.URL.Query().Get("accepts_incomplete"); v != "" {
		accepts, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "BadRequest", "accepts_incomplete must be a boolean")
			return req, false
		}
		req.AcceptsIncomplete = accepts
	}
	return req, true
}

func pathUUID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)[name])
	if err != nil {
		writeError(w, http.StatusBadRequest, "BadRequest", name+" must be a UUID")
		return uuid.Nil, false
	}
	return id, true
}

// decodeBody reads a JSON body into v. An empty body is an error only when required.
func decodeBody(r *http.Request, v any, required bool) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	defer func() {
		_ = r.Body.Close()
	}()
	if err != nil {
		return types.Err(types.ErrInvalidRequest, err, "read error")
	}
	if len(body) == 0 {
		if required {
			return types.Err(types.ErrInvalidRequest, nil, "empty body")
		}
		return nil
	}
	if err := json.Unmarshal(body, v); err != nil {
		return types.Err(types.ErrInvalidRequest, nil, "invalid json: %v", err)
	}
	return nil
}

func writeResult(w http.ResponseWriter, res flow.Result) {
	if res.Status >= http.StatusBadRequest {
		writeError(w, res.Status, res.Error, res.Description)
		return
	}
	if res.Binding != nil {
		writeJSON(w, res.Status, bindingResponse{Credentials: res.Binding.Credentials})
		return
	}
	if res.Operation != "" {
		writeJSON(w, res.Status, asyncResponse{Operation: res.Operation})
		return
	}
	writeJSON(w, res.Status, struct{}{})
}

func writeError(w http.ResponseWriter, code int, errCode, description string) {
	writeJSON(w, code, errorBody{Error: errCode, Description: description})
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithError(err).Warn("failed to write response")
	}
}
