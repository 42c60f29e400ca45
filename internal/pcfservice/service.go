// Package pcfservice coordinates the dataset catalog, project state and the
// emissions aggregator. It is the single entry point shared by the HTTP API,
// the MCP server and the CLI.
package pcfservice

import (
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/starford/pcfledger/internal/apperr"
	"github.com/starford/pcfledger/internal/emissions"
	"github.com/starford/pcfledger/internal/sse"
	"github.com/starford/pcfledger/internal/store"
)

// Service implements the PCF use cases on top of a store.Repository.
type Service struct {
	repo            store.Repository
	pub             sse.Publisher
	logger          *slog.Logger
	processHotspots int
	now             func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithPublisher routes change notifications to p.
func WithPublisher(p sse.Publisher) Option {
	return func(s *Service) {
		if p != nil {
			s.pub = p
		}
	}
}

// WithLogger sets the logger used for degraded-path warnings.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithProcessHotspots sets how many processes project results rank as
// hotspots. Values <= 0 keep the default.
func WithProcessHotspots(k int) Option {
	return func(s *Service) {
		if k > 0 {
			s.processHotspots = k
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New creates a Service.
func New(repo store.Repository, opts ...Option) *Service {
	s := &Service{
		repo:            repo,
		pub:             sse.Discard,
		logger:          slog.Default(),
		processHotspots: emissions.DefaultProcessHotspots,
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func invalid(err error) error {
	return fmt.Errorf("%w: %s", apperr.ErrInvalid, err.Error())
}

func (s *Service) publish(resource, action, id, projectID string, affectsResults bool) {
	s.pub.PublishChange(sse.Change{
		Resource:       resource,
		Action:         action,
		ID:             id,
		ProjectID:      projectID,
		AffectsResults: affectsResults,
	})
}

func (s *Service) publishCatalog(change store.CatalogChange) {
	for _, id := range change.Created {
		s.publish("dataset", "created", strconv.FormatInt(id, 10), "", true)
	}
	for _, id := range change.Updated {
		s.publish("dataset", "updated", strconv.FormatInt(id, 10), "", true)
	}
	for _, id := range change.Deleted {
		s.publish("dataset", "deleted", strconv.FormatInt(id, 10), "", true)
	}
}
