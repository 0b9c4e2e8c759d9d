// Package memory provides an in-memory Store used by tests. Semantics
// mirror the GORM implementation, including atomic ping recording.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/pulsetrack/pulsetrack/internal/models"
	"github.com/pulsetrack/pulsetrack/internal/store"
)

// Store keeps everything in maps guarded by one mutex.
type Store struct {
	mu       sync.Mutex
	nextID   int
	checks   map[int]*models.Check
	pings    []models.Ping
	users    map[int]*models.User
	profiles map[int]*models.Profile
	members  map[int]*models.Member
	channels map[int]*models.Channel
}

// New creates an empty store.
func New() *Store {
	return &Store{
		checks:   make(map[int]*models.Check),
		users:    make(map[int]*models.User),
		profiles: make(map[int]*models.Profile),
		members:  make(map[int]*models.Member),
		channels: make(map[int]*models.Channel),
	}
}

func (s *Store) id() int {
	s.nextID++
	return s.nextID
}

func (s *Store) CreateCheck(_ context.Context, c *models.Check) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.ID = s.id()
	if c.Status == "" {
		c.Status = models.StatusNew
	}
	cp := *c
	s.checks[c.ID] = &cp
	return nil
}

func (s *Store) CheckByCode(_ context.Context, code string) (*models.Check, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.checks {
		if c.Code == code {
			cp := *c
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) ChecksForUser(_ context.Context, userID int) ([]models.Check, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Check
	for _, c := range s.checks {
		if c.UserID == userID {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) ChecksInStatus(_ context.Context, statuses []string) ([]models.Check, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	want := make(map[string]bool, len(statuses))
	for _, st := range statuses {
		want[st] = true
	}
	var out []models.Check
	for _, c := range s.checks {
		if want[c.Status] {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) UpdateCheckStatus(_ context.Context, checkID int, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.checks[checkID]
	if !ok {
		return store.ErrNotFound
	}
	c.Status = status
	return nil
}

func (s *Store) RecordPing(_ context.Context, c *models.Check, p *models.Ping) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.checks[c.ID]
	if !ok {
		return store.ErrNotFound
	}
	stored.NPings++
	stored.LastPing = c.LastPing
	stored.Status = c.Status
	p.ID = s.id()
	p.CheckID = c.ID
	s.pings = append(s.pings, *p)
	return nil
}

func (s *Store) PingsForCheck(_ context.Context, checkID, limit int) ([]models.Ping, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Ping
	for i := len(s.pings) - 1; i >= 0 && len(out) < limit; i-- {
		if s.pings[i].CheckID == checkID {
			out = append(out, s.pings[i])
		}
	}
	return out, nil
}

func (s *Store) CreateUser(_ context.Context, u *models.User, p *models.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u.ID = s.id()
	up := *u
	s.users[u.ID] = &up
	p.UserID = u.ID
	p.ID = s.id()
	pp := *p
	s.profiles[p.ID] = &pp
	return nil
}

func (s *Store) UserByID(_ context.Context, id int) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	up := *u
	return &up, nil
}

func (s *Store) UserByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			up := *u
			return &up, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) UserByUsername(_ context.Context, username string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Username == username {
			up := *u
			return &up, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) SaveUser(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.ID]; !ok {
		return store.ErrNotFound
	}
	up := *u
	s.users[u.ID] = &up
	return nil
}

func (s *Store) ProfileByAPIKey(_ context.Context, key string) (*models.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if key == "" {
		return nil, store.ErrNotFound
	}
	for _, p := range s.profiles {
		if p.APIKey == key {
			pp := *p
			return &pp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) ProfileByUserID(_ context.Context, userID int) (*models.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.profiles {
		if p.UserID == userID {
			pp := *p
			return &pp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) SaveProfile(_ context.Context, p *models.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.profiles[p.ID]; !ok {
		return store.ErrNotFound
	}
	pp := *p
	s.profiles[p.ID] = &pp
	return nil
}

func (s *Store) ProfilesDueReports(_ context.Context, now time.Time) ([]models.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Profile
	for _, p := range s.profiles {
		if p.ReportsAllowed == models.ReportsOff || p.ReportsAllowed == "" {
			continue
		}
		if p.NextReportAt == nil || !p.NextReportAt.After(now) {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) AddMember(_ context.Context, m *models.Member) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m.ID = s.id()
	mp := *m
	s.members[m.ID] = &mp
	return nil
}

func (s *Store) RemoveMember(_ context.Context, teamID, userID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, m := range s.members {
		if m.TeamID == teamID && m.UserID == userID {
			delete(s.members, id)
			return nil
		}
	}
	return store.ErrNotFound
}

func (s *Store) MembersOfTeam(_ context.Context, teamID int) ([]models.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Member
	for _, m := range s.members {
		if m.TeamID == teamID {
			out = append(out, *m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) CreateChannel(_ context.Context, ch *models.Channel) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch.ID = s.id()
	cp := *ch
	s.channels[ch.ID] = &cp
	return nil
}

func (s *Store) ChannelsForUser(_ context.Context, userID int) ([]models.Channel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Channel
	for _, ch := range s.channels {
		if ch.UserID == userID {
			out = append(out, *ch)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
