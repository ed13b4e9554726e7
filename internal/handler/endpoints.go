package handler

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aryan0dhankhar/deliveryhub/internal/domain"
	"github.com/aryan0dhankhar/deliveryhub/internal/respond"
	"github.com/aryan0dhankhar/deliveryhub/internal/security/identity"
	"github.com/aryan0dhankhar/deliveryhub/internal/service"
)

// LocationView is the JSON form of a location
type LocationView struct {
	ID           string         `json:"id"`
	Cloud        string         `json:"cloud"`
	Product      string         `json:"product"`
	Auth         map[string]any `json:"auth"`
	BucketInfo   map[string]any `json:"bucket_info"`
	LocationType string         `json:"location_type"`
	CreatedBy    string         `json:"created_by,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// EndpointView is the JSON form of a source or destination
type EndpointView struct {
	ID             string        `json:"id"`
	Name           string        `json:"name"`
	Description    *string       `json:"description"`
	Status         domain.Status `json:"status"`
	OrganizationID string        `json:"organization_id"`
	LocationUUID   string        `json:"location_uuid"`
	CreatedBy      string        `json:"created_by,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
	Location       *LocationView `json:"location"`
}

func newEndpointView(ep *domain.Endpoint) EndpointView {
	v := EndpointView{
		ID:             ep.ID,
		Name:           ep.Name,
		Description:    ep.Description,
		Status:         ep.Status,
		OrganizationID: ep.OrganizationID,
		LocationUUID:   ep.LocationID,
		CreatedBy:      ep.CreatedBy,
		CreatedAt:      ep.CreatedAt,
		UpdatedAt:      ep.UpdatedAt,
	}
	if loc := ep.Location; loc != nil {
		v.Location = &LocationView{
			ID:           loc.ID,
			Cloud:        loc.Cloud,
			Product:      loc.Product,
			Auth:         orEmpty(loc.Auth),
			BucketInfo:   orEmpty(loc.BucketInfo),
			LocationType: string(loc.LocationType),
			CreatedBy:    loc.CreatedBy,
			CreatedAt:    loc.CreatedAt,
			UpdatedAt:    loc.UpdatedAt,
		}
	}
	return v
}

func orEmpty(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}

// EndpointHandler serves /sources or /destinations
type EndpointHandler struct {
	svc    *service.EndpointService
	base   string
	noun   string
	logger *slog.Logger
}

// NewEndpointHandler creates a handler for the service's role
func NewEndpointHandler(svc *service.EndpointService, logger *slog.Logger) *EndpointHandler {
	if logger == nil {
		logger = slog.Default()
	}
	noun := string(svc.Role())
	return &EndpointHandler{
		svc:    svc,
		base:   "/" + noun + "s",
		noun:   noun,
		logger: logger,
	}
}

// Register mounts the collection and item routes on mux
func (h *EndpointHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST "+h.base, h.Create)
	mux.HandleFunc("GET "+h.base, h.List)
	mux.HandleFunc("GET "+h.base+"/{id}", h.Get)
	mux.HandleFunc("PUT "+h.base+"/{id}", h.Replace)
	mux.HandleFunc("PATCH "+h.base+"/{id}", h.Patch)
	mux.HandleFunc("DELETE "+h.base+"/{id}", h.Delete)
}

// title is the noun as it appears at the start of a message
func (h *EndpointHandler) title() string {
	return strings.ToUpper(h.noun[:1]) + h.noun[1:]
}

// Create handles POST /{role}s
func (h *EndpointHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in service.EndpointInput
	if err := decodeJSON(w, r, &in); err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	ep, err := h.svc.Create(r.Context(), identity.FromContext(r.Context()), in)
	if err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusCreated, newEndpointView(ep))
}

// List handles GET /{role}s
func (h *EndpointHandler) List(w http.ResponseWriter, r *http.Request) {
	eps, err := h.svc.List(r.Context(), identity.FromContext(r.Context()))
	if err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	views := make([]EndpointView, 0, len(eps))
	for _, ep := range eps {
		views = append(views, newEndpointView(ep))
	}
	respond.JSON(w, http.StatusOK, views)
}

// Get handles GET /{role}s/{id}
func (h *EndpointHandler) Get(w http.ResponseWriter, r *http.Request) {
	ep, err := h.svc.Get(r.Context(), identity.FromContext(r.Context()), r.PathValue("id"))
	if err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, newEndpointView(ep))
}

// Replace handles PUT /{role}s/{id}
func (h *EndpointHandler) Replace(w http.ResponseWriter, r *http.Request) {
	var in service.EndpointInput
	if err := decodeJSON(w, r, &in); err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	ep, err := h.svc.Replace(r.Context(), identity.FromContext(r.Context()), r.PathValue("id"), in)
	if err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	h.updated(w, ep)
}

// Patch handles PATCH /{role}s/{id}
func (h *EndpointHandler) Patch(w http.ResponseWriter, r *http.Request) {
	var p service.EndpointPatch
	if err := decodeJSON(w, r, &p); err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	ep, err := h.svc.Patch(r.Context(), identity.FromContext(r.Context()), r.PathValue("id"), p)
	if err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	h.updated(w, ep)
}

func (h *EndpointHandler) updated(w http.ResponseWriter, ep *domain.Endpoint) {
	respond.JSON(w, http.StatusOK, map[string]any{
		"message": h.title() + " updated successfully",
		h.noun:    newEndpointView(ep),
	})
}

// Delete handles DELETE /{role}s/{id}
func (h *EndpointHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), identity.FromContext(r.Context()), r.PathValue("id")); err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]string{"message": h.title() + " deleted successfully"})
}
