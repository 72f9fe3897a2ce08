package implementations

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"jewelry-catalog/internal/config"
	"jewelry-catalog/internal/domain/ingest"
	"jewelry-catalog/internal/observability"
)

// Target names the catalog surface an upload is destined for.
type Target string

const (
	TargetCarousel Target = "carousel"
	TargetProduct  Target = "product"
	TargetStock    Target = "stock"
)

// ParseTarget validates a target name
func ParseTarget(s string) (Target, error) {
	switch t := Target(s); t {
	case TargetCarousel, TargetProduct, TargetStock:
		return t, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownTarget, s)
	}
}

// TargetProfile is the bucket and geometry used for a target.
type TargetProfile struct {
	Bucket string
	Policy ingest.Policy
}

// ProfilesFromConfig maps each target to its bucket and policy.
// Carousel and product images are cropped to a fixed frame; stock photos are
// bounded. A per-target policy override replaces the geometry and keeps the
// configured quality of its kind.
func ProfilesFromConfig(cfg *config.Config) map[Target]TargetProfile {
	in := cfg.Ingest
	crop := ingest.Crop(in.CropWidth, in.CropHeight).WithQuality(in.CropQuality)
	bound := ingest.Bound(in.BoundWidth, in.BoundHeight).WithQuality(in.BoundQuality)

	return map[Target]TargetProfile{
		TargetCarousel: {Bucket: cfg.Storage.CarouselBucket, Policy: policyOverride(in, in.CarouselPolicy, crop)},
		TargetProduct:  {Bucket: cfg.Storage.ProductBucket, Policy: policyOverride(in, in.ProductPolicy, crop)},
		TargetStock:    {Bucket: cfg.Storage.StockBucket, Policy: policyOverride(in, in.StockPolicy, bound)},
	}
}

// policyOverride returns fallback when raw is empty or unparsable; config
// validation rejects the latter at startup.
func policyOverride(in config.IngestConfig, raw string, fallback ingest.Policy) ingest.Policy {
	if raw == "" {
		return fallback
	}
	p, err := ingest.ParsePolicy(raw)
	if err != nil {
		return fallback
	}
	if p.Kind == ingest.PolicyCrop {
		return p.WithQuality(in.CropQuality)
	}
	return p.WithQuality(in.BoundQuality)
}

// CompressionFromConfig returns the compressor budget from cfg.
func CompressionFromConfig(cfg config.IngestConfig) ingest.CompressionOptions {
	return ingest.CompressionOptions{
		MaxSizeMB:    cfg.MaxSizeMB,
		MaxIteration: cfg.MaxIteration,
		UseWorker:    cfg.UseWorker,
	}
}

// Session is one admin form's pipeline.
type Session struct {
	ID        string    `json:"id"`
	Target    Target    `json:"target"`
	CreatedAt time.Time `json:"created_at"`
	Pipeline  *Pipeline `json:"-"`
}

// SessionInfo is the listing view of a session.
type SessionInfo struct {
	ID        string    `json:"id"`
	Target    Target    `json:"target"`
	CreatedAt time.Time `json:"created_at"`
	Status    Status    `json:"status"`
}

// UploadSessions keeps server-side pipelines keyed by session id and
// expires the ones left idle for longer than the TTL.
type UploadSessions struct {
	profiles    map[Target]TargetProfile
	compression ingest.CompressionOptions
	deps        PipelineDeps
	ttl         time.Duration
	logger      *observability.Logger

	now   func() time.Time
	newID func() string

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewUploadSessions creates an empty session registry
func NewUploadSessions(profiles map[Target]TargetProfile, compression ingest.CompressionOptions, ttl time.Duration, deps PipelineDeps) *UploadSessions {
	logger := deps.Logger
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &UploadSessions{
		profiles:    profiles,
		compression: compression,
		deps:        deps,
		ttl:         ttl,
		logger:      logger,
		now:         time.Now,
		newID:       uuid.NewString,
		sessions:    make(map[string]*Session),
	}
}

// Create opens a session for target
func (s *UploadSessions) Create(ctx context.Context, target Target) (*Session, error) {
	profile, ok := s.profiles[target]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTarget, target)
	}

	pipeline, err := NewPipeline(PipelineConfig{
		Bucket:      profile.Bucket,
		Policy:      profile.Policy,
		Compression: s.compression,
	}, s.deps)
	if err != nil {
		return nil, fmt.Errorf("failed to create pipeline for %s: %w", target, err)
	}
	pipeline.now = s.now
	pipeline.updatedAt = s.now()

	session := &Session{
		ID:        s.newID(),
		Target:    target,
		CreatedAt: s.now(),
		Pipeline:  pipeline,
	}

	s.mu.Lock()
	s.sessions[session.ID] = session
	s.mu.Unlock()

	s.logger.Debug(ctx).Str("session_id", session.ID).Str("target", string(target)).Msg("upload session opened")
	return session, nil
}

// Get returns a live session
func (s *UploadSessions) Get(id string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

// Remove cancels the session's in-flight work and forgets it
func (s *UploadSessions) Remove(id string) error {
	s.mu.Lock()
	session, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}
	session.Pipeline.Reset()
	return nil
}

// List returns every live session, oldest first
func (s *UploadSessions) List() []SessionInfo {
	s.mu.Lock()
	sessions := make([]*Session, 0, len(s.sessions))
	for _, session := range s.sessions {
		sessions = append(sessions, session)
	}
	s.mu.Unlock()

	sort.Slice(sessions, func(i, j int) bool {
		if sessions[i].CreatedAt.Equal(sessions[j].CreatedAt) {
			return sessions[i].ID < sessions[j].ID
		}
		return sessions[i].CreatedAt.Before(sessions[j].CreatedAt)
	})

	infos := make([]SessionInfo, 0, len(sessions))
	for _, session := range sessions {
		infos = append(infos, SessionInfo{
			ID:        session.ID,
			Target:    session.Target,
			CreatedAt: session.CreatedAt,
			Status:    session.Pipeline.Snapshot(),
		})
	}
	return infos
}

// Len returns the number of live sessions
func (s *UploadSessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Sweep drops sessions idle since before now-TTL. Sessions mid-processing or
// mid-upload are kept.
func (s *UploadSessions) Sweep(now time.Time) int {
	if s.ttl <= 0 {
		return 0
	}
	cutoff := now.Add(-s.ttl)

	var expired []*Session
	s.mu.Lock()
	for id, session := range s.sessions {
		switch session.Pipeline.State() {
		case ingest.StateProcessing, ingest.StateUploading:
			continue
		}
		if session.Pipeline.LastActivity().Before(cutoff) {
			expired = append(expired, session)
			delete(s.sessions, id)
		}
	}
	s.mu.Unlock()

	for _, session := range expired {
		session.Pipeline.Reset()
	}
	return len(expired)
}

// Run sweeps expired sessions every interval until ctx is done
func (s *UploadSessions) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Sweep(s.now()); n > 0 {
				s.logger.Info(ctx).Int("expired", n).Msg("expired idle upload sessions")
			}
		}
	}
}
