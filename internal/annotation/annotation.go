// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package annotation builds W3C Open Annotation documents asserting a link
// between an aggregator specimen record and a paleobiology database record.
package annotation

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/pdiddy/epandda/pkg/errors"
)

// Fixed vocabulary of the annotation document.
const (
	ContextURL     = "https://www.w3.org/ns/oa.jsonld"
	DwCNamespace   = "http://rs.tdwg.org/dwc/terms/"
	AnnotationType = "oa:Annotation"
	TimestampFmt   = "2006-01-02 15:04:05"

	targetSourcePrefix = "http://search.idigbio.org/v2/view/records/"
	bodyRefTemplate    = "https://paleobiodb.org/data1.2/refs/single.json?id=%s&show=both"
)

// Target identifies the annotated aggregator record.
type Target struct {
	UUID string `json:"uuid"`
}

// Body identifies the linked paleobiology record. Both fields are optional.
type Body struct {
	MatchedOn *string `json:"matchedOn"`
	PBDBID    *string `json:"pbdb_id"`
}

// Agent is the annotator identity block.
type Agent struct {
	ID   string `json:"@id"`
	Type string `json:"@type"`
	Name string `json:"name"`
}

// Bot is the fixed annotator of every annotation.
var Bot = Agent{
	ID:   "https://epandda.org",
	Type: "foaf:Project",
	Name: "ePANDDA Annotation Bot",
}

// BodyNode is the hasBody section.
type BodyNode struct {
	Chars  string   `json:"! cnt:chars"`
	ID     string   `json:"@id"`
	Type   []string `json:"@type"`
	Format string   `json:"dc:format"`
}

// Ref is a bare JSON-LD node reference.
type Ref struct {
	ID string `json:"@id"`
}

// TargetNode is the hasTarget section.
type TargetNode struct {
	ID        string `json:"@id"`
	Type      string `json:"@type"`
	HasSource Ref    `json:"hasSource"`
}

// OpenAnnotation is an immutable provenance document. A link that needs
// re-asserting gets a new annotation.
type OpenAnnotation struct {
	Context     []any      `json:"@context"`
	ID          string     `json:"@id"`
	Type        string     `json:"@type"`
	AnnotatedAt string     `json:"annotatedAt"`
	AnnotatedBy Agent      `json:"annotatedBy"`
	HasBody     BodyNode   `json:"hasBody"`
	HasTarget   TargetNode `json:"hasTarget"`
}

// Builder creates annotations. The zero value is not usable; call New.
type Builder struct {
	now   func() time.Time
	newID func() string
}

// Option configures a Builder.
type Option func(*Builder)

// WithClock sets the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(b *Builder) { b.now = now }
}

// WithIDGenerator sets the annotation identifier source.
func WithIDGenerator(gen func() string) Option {
	return func(b *Builder) { b.newID = gen }
}

// New returns a builder using the wall clock and random v4 UUIDs.
func New(opts ...Option) *Builder {
	b := &Builder{
		now:   time.Now,
		newID: func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build returns the annotation linking target to body. Target must carry a
// UUID; absent body fields become empty strings.
func (b *Builder) Build(target Target, body Body) (OpenAnnotation, error) {
	targetID := strings.TrimSpace(target.UUID)
	if targetID == "" {
		return OpenAnnotation{}, apperrors.NewValidationError("uuid", "target uuid is required")
	}

	return OpenAnnotation{
		Context:     []any{ContextURL, map[string]string{"dwc": DwCNamespace}},
		ID:          "urn:uuid:" + b.newID(),
		Type:        AnnotationType,
		AnnotatedAt: b.now().UTC().Format(TimestampFmt),
		AnnotatedBy: Bot,
		HasBody: BodyNode{
			Chars:  deref(body.MatchedOn),
			ID:     fmt.Sprintf(bodyRefTemplate, deref(body.PBDBID)),
			Type:   []string{"dwc:Occurrence", "cnt:ContentAsText"},
			Format: "application/json",
		},
		HasTarget: TargetNode{
			ID:        "urn:uuid:" + targetID,
			Type:      "oa:SpecificResource",
			HasSource: Ref{ID: targetSourcePrefix + targetID},
		},
	}, nil
}

// Build creates an annotation with the default builder.
func Build(target Target, body Body) (OpenAnnotation, error) {
	return New().Build(target, body)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
