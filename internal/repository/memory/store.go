// Package memory is an in-process domain.Store. Transactions work on a copy
// of the data that replaces the original only on commit.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aryan0dhankhar/deliveryhub/internal/domain"
)

type state struct {
	locations map[string]*domain.Location
	endpoints map[domain.LocationType]map[string]*domain.Endpoint
	users     map[string]*domain.User
	orgs      map[string]*domain.Organization
}

func newState() *state {
	return &state{
		locations: map[string]*domain.Location{},
		endpoints: map[domain.LocationType]map[string]*domain.Endpoint{
			domain.LocationSource:      {},
			domain.LocationDestination: {},
		},
		users: map[string]*domain.User{},
		orgs:  map[string]*domain.Organization{},
	}
}

func (s *state) clone() *state {
	out := newState()
	for k, v := range s.locations {
		out.locations[k] = v.Clone()
	}
	for role, eps := range s.endpoints {
		for k, v := range eps {
			c := *v
			out.endpoints[role][k] = &c
		}
	}
	for k, v := range s.users {
		c := *v
		out.users[k] = &c
	}
	for k, v := range s.orgs {
		c := *v
		out.orgs[k] = &c
	}
	return out
}

type db struct {
	mu  sync.Mutex
	st  *state
	now func() time.Time
}

// Store implements domain.Store in memory
type Store struct {
	db *db
	tx *state
}

// New returns an empty store
func New() *Store {
	return &Store{db: &db{st: newState(), now: time.Now}}
}

// SetClock replaces the time source used for timestamps
func (s *Store) SetClock(now func() time.Time) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	s.db.now = now
}

func (s *Store) run(fn func(st *state) error) error {
	if s.tx != nil {
		return fn(s.tx)
	}
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	return fn(s.db.st)
}

// WithTx runs fn on a copy of the data and publishes the copy if fn succeeds.
// Transactions are serialized; fn must only use the Store it is given.
func (s *Store) WithTx(_ context.Context, fn func(tx domain.Store) error) error {
	if s.tx != nil {
		return fn(s)
	}
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	work := s.db.st.clone()
	if err := fn(&Store{db: s.db, tx: work}); err != nil {
		return err
	}
	s.db.st = work
	return nil
}

func (s *Store) Locations() domain.LocationRepository { return locationRepo{s} }

func (s *Store) Endpoints(role domain.LocationType) domain.EndpointRepository {
	if role != domain.LocationDestination {
		role = domain.LocationSource
	}
	return endpointRepo{s: s, role: role}
}

func (s *Store) Users() domain.UserRepository { return userRepo{s} }

func (s *Store) Organizations() domain.OrganizationRepository { return orgRepo{s} }

// LocationCount returns how many locations have been stored
func (s *Store) LocationCount() int {
	n := 0
	_ = s.run(func(st *state) error {
		n = len(st.locations)
		return nil
	})
	return n
}

type locationRepo struct{ s *Store }

func (r locationRepo) Create(_ context.Context, loc *domain.Location) error {
	return r.s.run(func(st *state) error {
		if loc.ID == "" {
			loc.ID = uuid.NewString()
		}
		if _, ok := st.locations[loc.ID]; ok {
			return domain.Conflict("location already exists")
		}
		now := r.s.db.now()
		loc.CreatedAt, loc.UpdatedAt = now, now
		st.locations[loc.ID] = loc.Clone()
		return nil
	})
}

func (r locationRepo) GetByID(_ context.Context, id string) (*domain.Location, error) {
	var out *domain.Location
	err := r.s.run(func(st *state) error {
		loc, ok := st.locations[id]
		if !ok {
			return domain.NotFound("location not found")
		}
		out = loc.Clone()
		return nil
	})
	return out, err
}

func (r locationRepo) Update(_ context.Context, loc *domain.Location) error {
	return r.s.run(func(st *state) error {
		cur, ok := st.locations[loc.ID]
		if !ok {
			return domain.NotFound("location not found")
		}
		next := loc.Clone()
		next.CreatedAt, next.CreatedBy = cur.CreatedAt, cur.CreatedBy
		next.UpdatedAt = r.s.db.now()
		loc.UpdatedAt = next.UpdatedAt
		st.locations[loc.ID] = next
		return nil
	})
}

func (r locationRepo) Delete(_ context.Context, id string) error {
	return r.s.run(func(st *state) error {
		if _, ok := st.locations[id]; !ok {
			return domain.NotFound("location not found")
		}
		delete(st.locations, id)
		return nil
	})
}

func (r locationRepo) DeleteOrphans(_ context.Context, createdBefore time.Time) (int64, error) {
	var n int64
	err := r.s.run(func(st *state) error {
		referenced := map[string]bool{}
		for _, eps := range st.endpoints {
			for _, ep := range eps {
				referenced[ep.LocationID] = true
			}
		}
		for id, loc := range st.locations {
			if !referenced[id] && loc.CreatedAt.Before(createdBefore) {
				delete(st.locations, id)
				n++
			}
		}
		return nil
	})
	return n, err
}

type endpointRepo struct {
	s    *Store
	role domain.LocationType
}

func (r endpointRepo) what() string { return string(r.role) }

func (r endpointRepo) Create(_ context.Context, ep *domain.Endpoint) error {
	return r.s.run(func(st *state) error {
		if ep.ID == "" {
			ep.ID = uuid.NewString()
		}
		if ep.Status == "" {
			ep.Status = domain.StatusActive
		}
		if _, ok := st.locations[ep.LocationID]; !ok {
			return domain.NotFound("location not found")
		}
		now := r.s.db.now()
		ep.Role, ep.CreatedAt, ep.UpdatedAt = r.role, now, now
		c := *ep
		c.Location = nil
		st.endpoints[r.role][ep.ID] = &c
		return nil
	})
}

func (r endpointRepo) load(st *state, ep *domain.Endpoint) *domain.Endpoint {
	c := *ep
	c.Location = nil
	if loc, ok := st.locations[ep.LocationID]; ok {
		c.Location = loc.Clone()
	}
	return &c
}

func (r endpointRepo) GetByID(_ context.Context, organizationID, id string) (*domain.Endpoint, error) {
	var out *domain.Endpoint
	err := r.s.run(func(st *state) error {
		ep, ok := st.endpoints[r.role][id]
		if !ok || ep.OrganizationID != organizationID {
			return domain.NotFound("%s not found", r.what())
		}
		out = r.load(st, ep)
		return nil
	})
	return out, err
}

func (r endpointRepo) List(_ context.Context, organizationID string) ([]*domain.Endpoint, error) {
	out := []*domain.Endpoint{}
	err := r.s.run(func(st *state) error {
		for _, ep := range st.endpoints[r.role] {
			if ep.OrganizationID == organizationID {
				out = append(out, r.load(st, ep))
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, err
}

func (r endpointRepo) Update(_ context.Context, ep *domain.Endpoint) error {
	return r.s.run(func(st *state) error {
		cur, ok := st.endpoints[r.role][ep.ID]
		if !ok {
			return domain.NotFound("%s not found", r.what())
		}
		c := *ep
		c.Location = nil
		c.Role, c.CreatedAt, c.CreatedBy, c.OrganizationID = r.role, cur.CreatedAt, cur.CreatedBy, cur.OrganizationID
		c.UpdatedAt = r.s.db.now()
		ep.UpdatedAt = c.UpdatedAt
		st.endpoints[r.role][ep.ID] = &c
		return nil
	})
}

func (r endpointRepo) Delete(_ context.Context, id string) error {
	return r.s.run(func(st *state) error {
		if _, ok := st.endpoints[r.role][id]; !ok {
			return domain.NotFound("%s not found", r.what())
		}
		delete(st.endpoints[r.role], id)
		return nil
	})
}

type userRepo struct{ s *Store }

func (r userRepo) Create(_ context.Context, u *domain.User) error {
	return r.s.run(func(st *state) error {
		u.Email = strings.ToLower(u.Email)
		for _, other := range st.users {
			if other.Email == u.Email {
				return domain.Conflict("user already exists")
			}
		}
		if u.ID == "" {
			u.ID = uuid.NewString()
		}
		if u.Access == "" {
			u.Access = domain.AccessViewer
		}
		now := r.s.db.now()
		u.CreatedAt, u.UpdatedAt = now, now
		c := *u
		st.users[u.ID] = &c
		return nil
	})
}

func (r userRepo) find(match func(*domain.User) bool) (*domain.User, error) {
	var out *domain.User
	err := r.s.run(func(st *state) error {
		var hits []*domain.User
		for _, u := range st.users {
			if match(u) {
				hits = append(hits, u)
			}
		}
		if len(hits) == 0 {
			return domain.NotFound("user not found")
		}
		sort.Slice(hits, func(i, j int) bool { return hits[i].CreatedAt.Before(hits[j].CreatedAt) })
		c := *hits[0]
		out = &c
		return nil
	})
	return out, err
}

func (r userRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	return r.find(func(u *domain.User) bool { return u.ID == id })
}

func (r userRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	email = strings.ToLower(email)
	return r.find(func(u *domain.User) bool { return u.Email == email })
}

func (r userRepo) GetByFirstName(_ context.Context, firstName string) (*domain.User, error) {
	return r.find(func(u *domain.User) bool { return u.FirstName == firstName })
}

func (r userRepo) Update(_ context.Context, u *domain.User) error {
	return r.s.run(func(st *state) error {
		cur, ok := st.users[u.ID]
		if !ok {
			return domain.NotFound("user not found")
		}
		c := *u
		c.Email = strings.ToLower(c.Email)
		c.CreatedAt = cur.CreatedAt
		c.UpdatedAt = r.s.db.now()
		u.UpdatedAt = c.UpdatedAt
		st.users[u.ID] = &c
		return nil
	})
}

func (r userRepo) ListByOrganization(_ context.Context, organizationID string) ([]*domain.User, error) {
	var out []*domain.User
	err := r.s.run(func(st *state) error {
		for _, u := range st.users {
			if u.OrganizationID == organizationID {
				c := *u
				out = append(out, &c)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, err
}

type orgRepo struct{ s *Store }

func (r orgRepo) Create(_ context.Context, o *domain.Organization) error {
	return r.s.run(func(st *state) error {
		if o.ID == "" {
			o.ID = uuid.NewString()
		}
		now := r.s.db.now()
		o.CreatedAt, o.UpdatedAt = now, now
		c := *o
		st.orgs[o.ID] = &c
		return nil
	})
}

func (r orgRepo) GetByID(_ context.Context, id string) (*domain.Organization, error) {
	var out *domain.Organization
	err := r.s.run(func(st *state) error {
		o, ok := st.orgs[id]
		if !ok {
			return domain.NotFound("organization not found")
		}
		c := *o
		out = &c
		return nil
	})
	return out, err
}

var _ domain.Store = (*Store)(nil)
