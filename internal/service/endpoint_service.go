package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/aryan0dhankhar/deliveryhub/internal/domain"
	"github.com/aryan0dhankhar/deliveryhub/internal/location"
	"github.com/aryan0dhankhar/deliveryhub/internal/observability/metrics"
	"github.com/aryan0dhankhar/deliveryhub/internal/observability/tracing"
	"github.com/aryan0dhankhar/deliveryhub/internal/security"
)

// Optional marks whether a JSON field was present in a request body.
// A present null sets Set with the zero Value.
type Optional[T any] struct {
	Set   bool
	Value T
}

func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		var zero T
		o.Value = zero
		return nil
	}
	return json.Unmarshal(data, &o.Value)
}

// EndpointInput is the body of a create or full replace
type EndpointInput struct {
	Name        string         `json:"name"`
	Description *string        `json:"description"`
	Status      domain.Status  `json:"status"`
	Location    map[string]any `json:"location"`
}

// EndpointPatch carries only the fields a PATCH body named.
// A nil Location leaves the stored location untouched.
type EndpointPatch struct {
	Name        Optional[string]        `json:"name"`
	Description Optional[*string]       `json:"description"`
	Status      Optional[domain.Status] `json:"status"`
	Location    map[string]any          `json:"location"`
}

// EndpointService runs the lifecycle of one role's endpoints: sources or destinations
type EndpointService struct {
	store     domain.Store
	role      domain.LocationType
	validator *location.Validator
	authz     *security.AuthorizationService
	logger    *slog.Logger
}

// NewEndpointService creates the service for role
func NewEndpointService(
	store domain.Store,
	role domain.LocationType,
	validator *location.Validator,
	authz *security.AuthorizationService,
	logger *slog.Logger,
) *EndpointService {
	if logger == nil {
		logger = slog.Default()
	}
	if authz == nil {
		authz = security.NewAuthorizationService(logger)
	}
	return &EndpointService{
		store:     store,
		role:      role,
		validator: validator,
		authz:     authz,
		logger:    logger.With(slog.String("role", string(role))),
	}
}

// Role returns the role this service manages
func (s *EndpointService) Role() domain.LocationType { return s.role }

// Create validates the payload, then stores the location and the endpoint in one transaction
func (s *EndpointService) Create(ctx context.Context, caller *domain.Identity, in EndpointInput) (ep *domain.Endpoint, err error) {
	ctx, done := s.begin(ctx, "create", "")
	defer func() { done(err) }()

	if err := s.authz.Require(caller, security.PermWriteEndpoints); err != nil {
		return nil, err
	}
	status, err := s.checkScalars(in.Name, in.Status)
	if err != nil {
		return nil, err
	}
	if in.Location == nil {
		return nil, domain.Validation("location", "location is required")
	}
	loc, err := s.validateLocation(in.Location, false)
	if err != nil {
		return nil, err
	}

	ep = &domain.Endpoint{
		Name:           strings.TrimSpace(in.Name),
		Description:    in.Description,
		Status:         status,
		OrganizationID: caller.OrganizationID,
		CreatedBy:      caller.UserID,
	}
	err = s.store.WithTx(ctx, func(tx domain.Store) error {
		loc.CreatedBy = caller.UserID
		if err := tx.Locations().Create(ctx, loc); err != nil {
			return err
		}
		ep.LocationID = loc.ID
		return tx.Endpoints(s.role).Create(ctx, ep)
	})
	if err != nil {
		return nil, err
	}
	ep.Location = loc

	s.logger.Info("endpoint created",
		slog.String("id", ep.ID),
		slog.String("location_id", loc.ID),
		slog.String("organization_id", ep.OrganizationID),
	)
	return ep, nil
}

// Get returns one endpoint of the caller's organization with its location
func (s *EndpointService) Get(ctx context.Context, caller *domain.Identity, id string) (ep *domain.Endpoint, err error) {
	ctx, done := s.begin(ctx, "get", id)
	defer func() { done(err) }()

	if err := s.authz.Require(caller, security.PermReadEndpoints); err != nil {
		return nil, err
	}
	return s.store.Endpoints(s.role).GetByID(ctx, caller.OrganizationID, id)
}

// List returns every endpoint of the caller's organization, newest first.
// An organization with none gets an empty slice.
func (s *EndpointService) List(ctx context.Context, caller *domain.Identity) (eps []*domain.Endpoint, err error) {
	ctx, done := s.begin(ctx, "list", "")
	defer func() { done(err) }()

	if err := s.authz.Require(caller, security.PermReadEndpoints); err != nil {
		return nil, err
	}
	eps, err = s.store.Endpoints(s.role).List(ctx, caller.OrganizationID)
	if err != nil {
		return nil, err
	}
	if eps == nil {
		eps = []*domain.Endpoint{}
	}
	return eps, nil
}

// Replace overwrites the endpoint's scalar fields. When in.Location is set it
// is validated in full and replaces the stored location fields.
func (s *EndpointService) Replace(ctx context.Context, caller *domain.Identity, id string, in EndpointInput) (ep *domain.Endpoint, err error) {
	ctx, done := s.begin(ctx, "replace", id)
	defer func() { done(err) }()

	if err := s.authz.Require(caller, security.PermWriteEndpoints); err != nil {
		return nil, err
	}
	status, err := s.checkScalars(in.Name, in.Status)
	if err != nil {
		return nil, err
	}
	var loc *domain.Location
	if in.Location != nil {
		if loc, err = s.validateLocation(in.Location, false); err != nil {
			return nil, err
		}
	}

	err = s.store.WithTx(ctx, func(tx domain.Store) error {
		current, err := tx.Endpoints(s.role).GetByID(ctx, caller.OrganizationID, id)
		if err != nil {
			return err
		}
		current.Name = strings.TrimSpace(in.Name)
		current.Description = in.Description
		current.Status = status

		if loc != nil {
			if current.Location == nil {
				return domain.NotFound("location for %s %s not found", s.role, id)
			}
			loc.ID = current.Location.ID
			loc.CreatedBy = current.Location.CreatedBy
			if err := tx.Locations().Update(ctx, loc); err != nil {
				return err
			}
		}
		if err := tx.Endpoints(s.role).Update(ctx, current); err != nil {
			return err
		}
		ep, err = tx.Endpoints(s.role).GetByID(ctx, caller.OrganizationID, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("endpoint replaced", slog.String("id", id))
	return ep, nil
}

// Patch applies only the fields present in p. A location patch is folded
// into the stored location and then validated partially; without one, no
// location rule runs.
func (s *EndpointService) Patch(ctx context.Context, caller *domain.Identity, id string, p EndpointPatch) (ep *domain.Endpoint, err error) {
	ctx, done := s.begin(ctx, "patch", id)
	defer func() { done(err) }()

	if err := s.authz.Require(caller, security.PermWriteEndpoints); err != nil {
		return nil, err
	}
	if p.Name.Set && strings.TrimSpace(p.Name.Value) == "" {
		return nil, domain.Validation("name", "name must not be empty")
	}
	if p.Status.Set && !p.Status.Value.Valid() {
		return nil, invalidStatus(p.Status.Value)
	}

	err = s.store.WithTx(ctx, func(tx domain.Store) error {
		current, err := tx.Endpoints(s.role).GetByID(ctx, caller.OrganizationID, id)
		if err != nil {
			return err
		}
		if p.Name.Set {
			current.Name = strings.TrimSpace(p.Name.Value)
		}
		if p.Description.Set {
			current.Description = p.Description.Value
		}
		if p.Status.Set {
			current.Status = p.Status.Value
		}

		if p.Location != nil {
			if current.Location == nil {
				return domain.NotFound("location for %s %s not found", s.role, id)
			}
			merged := location.Merge(current.Location, p.Location)
			if _, err := s.validateLocation(location.ValidationView(merged, p.Location), true); err != nil {
				return err
			}
			if err := tx.Locations().Update(ctx, merged); err != nil {
				return err
			}
		}
		if err := tx.Endpoints(s.role).Update(ctx, current); err != nil {
			return err
		}
		ep, err = tx.Endpoints(s.role).GetByID(ctx, caller.OrganizationID, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("endpoint patched", slog.String("id", id), slog.Bool("location", p.Location != nil))
	return ep, nil
}

// Delete removes the endpoint and the location it owns in one transaction
func (s *EndpointService) Delete(ctx context.Context, caller *domain.Identity, id string) (err error) {
	ctx, done := s.begin(ctx, "delete", id)
	defer func() { done(err) }()

	if err := s.authz.Require(caller, security.PermWriteEndpoints); err != nil {
		return err
	}
	err = s.store.WithTx(ctx, func(tx domain.Store) error {
		current, err := tx.Endpoints(s.role).GetByID(ctx, caller.OrganizationID, id)
		if err != nil {
			return err
		}
		if err := tx.Endpoints(s.role).Delete(ctx, id); err != nil {
			return err
		}
		if current.Location == nil {
			s.logger.Warn("endpoint had no location to delete", slog.String("id", id))
			return nil
		}
		return tx.Locations().Delete(ctx, current.Location.ID)
	})
	if err != nil {
		return err
	}
	s.logger.Info("endpoint deleted", slog.String("id", id))
	return nil
}

func (s *EndpointService) checkScalars(name string, status domain.Status) (domain.Status, error) {
	if strings.TrimSpace(name) == "" {
		return "", domain.Validation("name", "name must not be empty")
	}
	if status == "" {
		return domain.StatusActive, nil
	}
	if !status.Valid() {
		return "", invalidStatus(status)
	}
	return status, nil
}

func invalidStatus(status domain.Status) error {
	return domain.Validation("status", "invalid status %q, allowed values: %s, %s",
		status, domain.StatusActive, domain.StatusInactive)
}

// validateLocation runs the validator, then requires location_type to name
// this service's role. A partial payload is only checked when it carries
// location_type.
func (s *EndpointService) validateLocation(data map[string]any, partial bool) (*domain.Location, error) {
	loc, err := s.validator.Validate(data, partial)
	if err == nil {
		err = s.checkRole(data, loc, partial)
	}
	if err != nil {
		var de *domain.Error
		if errors.As(err, &de) && de.Kind == domain.KindValidation {
			metrics.ObserveValidationFailure(de.Field)
		}
		return nil, err
	}
	return loc, nil
}

func (s *EndpointService) checkRole(data map[string]any, loc *domain.Location, partial bool) error {
	if _, present := data["location_type"]; partial && !present {
		return nil
	}
	if loc.LocationType == "" {
		return domain.Validation("location_type", "location_type is required")
	}
	if loc.LocationType != s.role {
		return domain.Validation("location_type", "location_type must be %q for a %s", s.role, s.role)
	}
	return nil
}

// begin opens a span for op and returns a func that records the outcome
func (s *EndpointService) begin(ctx context.Context, op, id string) (context.Context, func(error)) {
	ctx, span := tracing.Tracer().Start(ctx, string(s.role)+"."+op)
	span.SetAttributes(attribute.String("deliveryhub.role", string(s.role)))
	if id != "" {
		span.SetAttributes(attribute.String("deliveryhub.id", id))
	}
	return ctx, func(err error) {
		result := "success"
		if err != nil {
			result = resultOf(err)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		metrics.ObserveLifecycle(string(s.role), op, result)
		span.End()
	}
}

func resultOf(err error) string {
	if kind := domain.KindOf(err); kind != "" {
		return string(kind)
	}
	return "error"
}
