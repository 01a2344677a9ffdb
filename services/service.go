// Package services holds the read models shared by the HTTP controllers:
// cross-type search, per-type feeds, likes and chat.
package services

import (
	"time"

	"gorm.io/gorm"

	"github.com/pedulirasa/backend/storage"
)

// Service bundles the collaborators every query needs.
type Service struct {
	db      *gorm.DB
	now     func() time.Time
	loc     *time.Location
	resolve storage.Resolver
	feedTTL time.Duration
}

// Option customizes a Service.
type Option func(*Service)

// WithClock replaces time.Now. Date filters and the affairs feed read the clock.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLocation sets the calendar used for "today", "week", "month" and "year".
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithResolver sets how stored image paths become URLs.
func WithResolver(r storage.Resolver) Option {
	return func(s *Service) {
		if r != nil {
			s.resolve = r
		}
	}
}

// New returns a Service reading from db.
func New(db *gorm.DB, opts ...Option) *Service {
	s := &Service{
		db:      db,
		now:     time.Now,
		loc:     time.Local,
		resolve: storage.ResolverFor(nil),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DB exposes the underlying handle for controllers that write.
func (s *Service) DB() *gorm.DB { return s.db }

// Location is the calendar used for "today" and date-range windows.
func (s *Service) Location() *time.Location { return s.loc }

// Resolve turns a stored path into a URL.
func (s *Service) Resolve(path string) string { return s.resolve(path) }

// Today returns the start of the current day in the service calendar.
func (s *Service) Today() time.Time {
	start, _, _ := DateToday.Window(s.now(), s.loc)
	return start
}
