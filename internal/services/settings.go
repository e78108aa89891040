package services

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/abrezinsky/motsvote/internal/errors"
	"github.com/abrezinsky/motsvote/internal/logger"
	"github.com/abrezinsky/motsvote/internal/repository"
)

// DeadlineKey is the settings key of the voting deadline
const DeadlineKey = "VOTING_DEADLINE_UTC"

// DeadlineRefresh is how long a deadline read from the store is reused
const DeadlineRefresh = 30 * time.Second

// Broadcaster defines the interface for broadcasting messages to clients
type Broadcaster interface {
	BroadcastVotingStatus(open bool, deadline string)
	BroadcastTallyUpdated(category string)
}

// VotingWindow is the period during which managers may vote
type VotingWindow struct {
	Deadline time.Time
}

// Closed reports whether now is past the deadline
func (w VotingWindow) Closed(now time.Time) bool {
	return now.After(w.Deadline)
}

// Remaining renders the time left as "{d}d {h}h {m}m remaining", or
// "Voting Closed" once the deadline has passed.
func (w VotingWindow) Remaining(now time.Time) string {
	left := w.Deadline.Sub(now)
	if left <= 0 {
		return "Voting Closed"
	}
	days := int(left / (24 * time.Hour))
	hours := int(left%(24*time.Hour)) / int(time.Hour)
	minutes := int(left%time.Hour) / int(time.Minute)
	return fmt.Sprintf("%dd %dh %dm remaining", days, hours, minutes)
}

// VotingStatus is the public view of the voting window
type VotingStatus struct {
	Deadline  string `json:"deadline"`
	Open      bool   `json:"open"`
	Remaining string `json:"remaining"`
	Relative  string `json:"relative"`
}

// ParseDeadline accepts an RFC 3339 timestamp in UTC, written with a
// trailing Z.
func ParseDeadline(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if !strings.HasSuffix(value, "Z") {
		return time.Time{}, ErrInvalidDeadline
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, ErrInvalidDeadline
	}
	return t.UTC(), nil
}

// FormatDeadline renders t the way ParseDeadline reads it
func FormatDeadline(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// SettingsService owns the voting deadline
type SettingsService struct {
	log             logger.Logger
	repo            repository.SettingsRepository
	defaultDeadline time.Time

	mu          sync.RWMutex
	broadcaster Broadcaster
	now         func() time.Time

	cacheMu   sync.Mutex
	cached    *VotingWindow
	fetchedAt time.Time
	gen       uint64
	refresh   time.Duration
}

// NewSettingsService creates a new SettingsService. defaultDeadline applies
// until an admin stores one.
func NewSettingsService(log logger.Logger, repo repository.SettingsRepository, defaultDeadline time.Time) *SettingsService {
	return &SettingsService{
		log:             log,
		repo:            repo,
		defaultDeadline: defaultDeadline.UTC(),
		now:             time.Now,
		refresh:         DeadlineRefresh,
	}
}

// SetRefresh sets how long a stored deadline is reused before it is read
// again. Zero reads the store on every call.
func (s *SettingsService) SetRefresh(d time.Duration) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.refresh = d
}

// SetBroadcaster sets the broadcaster for sending updates to clients
func (s *SettingsService) SetBroadcaster(b Broadcaster) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.broadcaster = b
}

// SetClock replaces the wall clock
func (s *SettingsService) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// Now returns the current time in UTC
func (s *SettingsService) Now() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.now().UTC()
}

// Window returns the voting window. The stored deadline is read at most
// once per refresh interval; when a re-read fails the last value read is
// kept. A stored deadline that cannot be parsed is ignored in favour of
// the default.
func (s *SettingsService) Window(ctx context.Context) (VotingWindow, error) {
	s.cacheMu.Lock()
	if s.cached != nil && time.Since(s.fetchedAt) < s.refresh {
		w := *s.cached
		s.cacheMu.Unlock()
		return w, nil
	}
	gen := s.gen
	s.cacheMu.Unlock()

	w, err := s.readWindow(ctx)

	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	if err != nil {
		if s.cached != nil {
			s.log.Warn("Using last known deadline", "error", err)
			return *s.cached, nil
		}
		return VotingWindow{}, err
	}
	if gen == s.gen {
		s.cached = &w
		s.fetchedAt = time.Now()
	} else if s.cached != nil {
		w = *s.cached
	}
	return w, nil
}

func (s *SettingsService) readWindow(ctx context.Context) (VotingWindow, error) {
	value, err := s.repo.GetSetting(ctx, DeadlineKey)
	if err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return VotingWindow{Deadline: s.defaultDeadline}, nil
		}
		return VotingWindow{}, errors.Unavailable("voting deadline could not be read", err)
	}
	if strings.TrimSpace(value) == "" {
		return VotingWindow{Deadline: s.defaultDeadline}, nil
	}
	deadline, err := ParseDeadline(value)
	if err != nil {
		s.log.Warn("Ignoring invalid stored deadline", "value", value)
		return VotingWindow{Deadline: s.defaultDeadline}, nil
	}
	return VotingWindow{Deadline: deadline}, nil
}

// IsClosed reports whether the deadline has passed, checked against the
// clock on every call.
func (s *SettingsService) IsClosed(ctx context.Context) (bool, error) {
	w, err := s.Window(ctx)
	if err != nil {
		return false, err
	}
	return w.Closed(s.Now()), nil
}

// Status returns the voting window as shown to clients
func (s *SettingsService) Status(ctx context.Context) (*VotingStatus, error) {
	w, err := s.Window(ctx)
	if err != nil {
		return nil, err
	}
	now := s.Now()
	return &VotingStatus{
		Deadline:  FormatDeadline(w.Deadline),
		Open:      !w.Closed(now),
		Remaining: w.Remaining(now),
		Relative:  humanize.RelTime(w.Deadline, now, "ago", "from now"),
	}, nil
}

// SetDeadline stores a new deadline and notifies connected clients
func (s *SettingsService) SetDeadline(ctx context.Context, isAdmin bool, value string) (*VotingStatus, error) {
	if !isAdmin {
		return nil, ErrUnauthorized
	}
	deadline, err := ParseDeadline(value)
	if err != nil {
		return nil, err
	}
	formatted := FormatDeadline(deadline)
	if err := s.repo.SetSetting(ctx, DeadlineKey, formatted); err != nil {
		return nil, errors.Unavailable("voting deadline could not be saved", err)
	}

	s.cacheMu.Lock()
	s.gen++
	s.cached = &VotingWindow{Deadline: deadline}
	s.fetchedAt = time.Now()
	s.cacheMu.Unlock()

	now := s.Now()
	open := !VotingWindow{Deadline: deadline}.Closed(now)
	s.log.Info("Voting deadline updated", "deadline", formatted, "in", humanize.RelTime(deadline, now, "ago", "from now"))

	s.mu.RLock()
	b := s.broadcaster
	s.mu.RUnlock()
	if b != nil {
		b.BroadcastVotingStatus(open, formatted)
	}
	return s.Status(ctx)
}
