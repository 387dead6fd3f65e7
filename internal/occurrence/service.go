// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package occurrence runs an occurrence query end to end and assembles the
// response envelope: match, resolve, flatten, then paginate. Windowing runs
// on the resolved list so counts always describe the whole result.
package occurrence

import (
	"context"
	"fmt"
	"time"

	"github.com/pdiddy/epandda/internal/logging"
	"github.com/pdiddy/epandda/internal/match"
	"github.com/pdiddy/epandda/internal/resolve"
	"github.com/pdiddy/epandda/pkg/types"
)

// Endpoint names the operation in the response criteria.
const Endpoint = "occurrences"

// TimeFormat is the layout of Envelope.TimeReturned.
const TimeFormat = "2006-01-02 15:04:05.000000"

// Matcher runs the match pipeline.
type Matcher interface {
	Match(ctx context.Context, q match.Query) (match.Result, error)
}

// RecordResolver turns matched identifiers into resolved records.
type RecordResolver interface {
	Resolve(ctx context.Context, matched map[types.Source]match.Set, projections map[types.Source][]string, filter resolve.Filter) (map[types.Source][]types.ResolvedRecord, error)
}

// Counts reports unclipped result totals.
type Counts struct {
	TotalCount int `json:"totalCount"`
	IDBCount   int `json:"idbCount"`
	PBDBCount  int `json:"pbdbCount"`
}

// Criteria echoes what the query asked for and which index terms matched.
type Criteria struct {
	Endpoint   string         `json:"endpoint"`
	Parameters map[string]any `json:"parameters"`
	MatchTerms match.Criteria `json:"matchTerms"`
}

// Envelope is the occurrence response.
type Envelope struct {
	Counts             Counts                 `json:"counts"`
	Results            []types.ResolvedRecord `json:"results"`
	Criteria           Criteria               `json:"criteria"`
	Offset             int                    `json:"offset"`
	Limit              int                    `json:"limit"`
	Success            bool                   `json:"success"`
	SpecimenData       bool                   `json:"specimenData"`
	IncludeAnnotations bool                   `json:"includeAnnotations"`
	Warnings           []match.Warning        `json:"warnings,omitempty"`
	TimeReturned       string                 `json:"timeReturned"`
	Version            string                 `json:"v"`
}

// Service answers occurrence queries.
type Service struct {
	matcher  Matcher
	resolver RecordResolver
	version  string
	now      func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithVersion sets the API version reported in envelopes.
func WithVersion(v string) Option {
	return func(s *Service) { s.version = v }
}

// WithClock sets the clock used for TimeReturned.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService returns a service over m and r.
func NewService(m Matcher, r RecordResolver, opts ...Option) *Service {
	s := &Service{
		matcher:  m,
		resolver: r,
		version:  types.DefaultConfig().Server.Version,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Version returns the API version reported in envelopes.
func (s *Service) Version() string { return s.version }

// Now returns the formatted current time.
func (s *Service) Now() string { return s.now().Format(TimeFormat) }

// Query runs p. Any failure, including an expired ctx, fails the whole query;
// partial envelopes are never returned.
func (s *Service) Query(ctx context.Context, p Params) (Envelope, error) {
	if err := p.Validate(); err != nil {
		return Envelope{}, err
	}
	log := logging.FromContext(ctx)
	start := time.Now()

	res, err := s.matcher.Match(ctx, match.Query{TaxonName: p.TaxonName, Locality: p.Locality})
	if err != nil {
		return Envelope{}, fmt.Errorf("matching: %w", err)
	}

	filter := resolve.Filter{Period: p.Period, InstitutionCode: p.InstitutionCode}
	bySource, err := s.resolver.Resolve(ctx, res.Matched, p.Fields, filter)
	if err != nil {
		return Envelope{}, fmt.Errorf("resolving references: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return Envelope{}, err
	}

	all := resolve.Flatten(bySource)
	page := Paginate(all, p.Offset, p.Limit)

	env := Envelope{
		Counts: Counts{
			TotalCount: page.Total,
			IDBCount:   len(bySource[types.SourceIDigBio]),
			PBDBCount:  len(bySource[types.SourcePBDB]),
		},
		Results: page.Items,
		Criteria: Criteria{
			Endpoint:   Endpoint,
			Parameters: p.Echo(),
			MatchTerms: res.Criteria,
		},
		Offset:       page.Offset,
		Limit:        page.Limit,
		Success:      true,
		Warnings:     res.Warnings,
		TimeReturned: s.Now(),
		Version:      s.version,
	}

	log.Info().
		Str("taxon_name", p.TaxonName).
		Str("locality", p.Locality).
		Int("total", env.Counts.TotalCount).
		Int("returned", len(env.Results)).
		Int("warnings", len(env.Warnings)).
		Dur("elapsed", time.Since(start)).
		Msg("occurrence query")

	return env, nil
}
