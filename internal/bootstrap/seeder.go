package bootstrap

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Jojopunk/elevate360-skill-builder/internal/challenge"
	"github.com/Jojopunk/elevate360-skill-builder/internal/infrastructure/logging"
	"github.com/Jojopunk/elevate360-skill-builder/internal/infrastructure/validate"
	"github.com/Jojopunk/elevate360-skill-builder/internal/video"
	"go.elastic.co/apm"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

//go:embed seed.yaml
var defaultCatalog []byte

// Catalog seed content
type Catalog struct {
	Challenges []*challenge.Challenge `yaml:"challenges"`
	Videos     []*video.LocalVideo    `yaml:"videos"`
}

// ParseCatalog decodes and validates a yaml seed catalog
func ParseCatalog(data []byte, v validate.Validator) (*Catalog, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	catalog := new(Catalog)
	if err := dec.Decode(catalog); err != nil {
		return nil, fmt.Errorf("decode seed catalog: %w", err)
	}
	for _, c := range catalog.Challenges {
		if errs := v.Struct(c); len(errs) > 0 {
			return nil, fmt.Errorf("seed challenge %q: %s", c.ID, joinFieldErrors(errs))
		}
	}
	for _, vid := range catalog.Videos {
		if errs := v.Struct(vid); len(errs) > 0 {
			return nil, fmt.Errorf("seed video %q: %s", vid.ID, joinFieldErrors(errs))
		}
	}
	return catalog, nil
}

func joinFieldErrors(errs []*validate.FieldError) string {
	reasons := make([]string, 0, len(errs))
	for _, e := range errs {
		reasons = append(reasons, e.Domain+": "+e.Reason)
	}
	return strings.Join(reasons, "; ")
}

// DefaultCatalog the embedded seed catalog
func DefaultCatalog(v validate.Validator) (*Catalog, error) {
	return ParseCatalog(defaultCatalog, v)
}

// SeedResult number of records inserted per table
type SeedResult struct {
	Challenges int `json:"challenges"`
	Videos     int `json:"videos"`
}

// Seeder fills empty content tables. Tables that already hold records are left alone,
// so seeding any number of times yields the same store.
type Seeder struct {
	Challenges challenge.ChallengeRepository
	Videos     video.VideoRepository
	Catalog    *Catalog
	Now        func() time.Time

	mu sync.Mutex
}

func NewSeeder(challenges challenge.ChallengeRepository, videos video.VideoRepository, catalog *Catalog) *Seeder {
	return &Seeder{
		Challenges: challenges,
		Videos:     videos,
		Catalog:    catalog,
		Now:        time.Now,
	}
}

// Seed inserts the catalog into every empty content table
func (s *Seeder) Seed(ctx context.Context) (*SeedResult, error) {
	apmSpan, ctx := apm.StartSpan(ctx, "Seeder.Seed", "service")
	defer apmSpan.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	logger := logging.ExtractLoggerFromContext(ctx)
	result := new(SeedResult)
	now := s.Now()

	n, err := s.Challenges.CountChallenges(ctx)
	if err != nil {
		return nil, fmt.Errorf("count challenges: %w", err)
	}
	if n == 0 {
		for i, c := range s.Catalog.Challenges {
			item := *c
			item.CreatedAt = now.UnixMilli() + int64(i)
			if err := s.Challenges.SaveChallenge(ctx, &item); err != nil {
				return nil, fmt.Errorf("seed challenge %s: %w", c.ID, err)
			}
			result.Challenges++
		}
	}

	n, err = s.Videos.CountVideos(ctx)
	if err != nil {
		return nil, fmt.Errorf("count videos: %w", err)
	}
	if n == 0 {
		for i, v := range s.Catalog.Videos {
			item := *v
			item.CreatedAt = now.UnixMilli() + int64(i)
			if err := s.Videos.SaveVideo(ctx, &item); err != nil {
				return nil, fmt.Errorf("seed video %s: %w", v.ID, err)
			}
			result.Videos++
		}
	}

	logger.Info("content seeded",
		zap.Int("seed.challenges", result.Challenges),
		zap.Int("seed.videos", result.Videos))
	return result, nil
}
