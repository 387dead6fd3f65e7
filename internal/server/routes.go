// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package server

import (
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"time"

	"github.com/pdiddy/epandda/internal/annotation"
	"github.com/pdiddy/epandda/internal/occurrence"
	apperrors "github.com/pdiddy/epandda/pkg/errors"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

// Route is one entry of the registration table.
type Route struct {
	// Pattern is a ServeMux pattern including the method.
	Pattern     string
	Name        string
	Description string
	Handler     http.HandlerFunc
}

func (s *Server) routes() []Route {
	return []Route{
		{"GET /{$}", "index", "Lists the available routes", s.handleIndex},
		{"GET /health", "health", "Liveness check", s.handleHealth},
		{"GET /occurrences", "occurrences", "Occurrences linked by taxon and locality; the endpoint description when called without parameters", s.handleOccurrences},
		{"POST /occurrences", "occurrences", "Occurrence query from a form or JSON body", s.handleOccurrences},
		{"POST /occurrences/batch", "occurrences_batch", `Runs every occurrence query of a {"queries": [...]} body`, s.handleBatch},
		{"POST /annotations", "annotations", "Builds an Open Annotation linking a specimen to a paleobiology record", s.handleAnnotate},
	}
}

// RouteInfo describes one route in the index listing.
type RouteInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Listing is the response of GET /.
type Listing struct {
	Description  string               `json:"description"`
	Routes       map[string]RouteInfo `json:"routes"`
	TimeReturned string               `json:"timeReturned"`
	Version      string               `json:"v"`
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	listing := Listing{
		Description:  "ePANDDA occurrence linkage API",
		Routes:       map[string]RouteInfo{},
		TimeReturned: s.occurrences.Now(),
		Version:      s.occurrences.Version(),
	}
	for _, rt := range s.routes() {
		listing.Routes[rt.Pattern] = RouteInfo{Name: rt.Name, Description: rt.Description}
	}
	writeJSON(w, http.StatusOK, listing)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "healthy",
		"service": "epandda",
		"v":       s.occurrences.Version(),
		"uptime":  time.Since(s.startTime).Round(time.Second).String(),
	})
}

func (s *Server) handleOccurrences(w http.ResponseWriter, r *http.Request) {
	values, err := requestValues(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !occurrence.HasParams(values) {
		writeJSON(w, http.StatusOK, occurrence.Describe())
		return
	}

	params, err := occurrence.ParseParams(values, s.defaultLimit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	env, err := s.occurrences.Query(r.Context(), params)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, env)
}

// BatchRequest is the body of POST /occurrences/batch.
type BatchRequest struct {
	Queries []map[string]any `json:"queries"`
}

// BatchResponse holds one envelope per query, in request order.
type BatchResponse struct {
	Queries      []occurrence.Envelope `json:"queries"`
	TimeReturned string                `json:"timeReturned"`
	Version      string                `json:"v"`
}

func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	var req BatchRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if len(req.Queries) == 0 {
		writeError(w, r, apperrors.NewValidationError(apperrors.GeneralField, "Query list is empty or not set"))
		return
	}

	resp := BatchResponse{Queries: make([]occurrence.Envelope, 0, len(req.Queries))}
	for i, q := range req.Queries {
		params, err := occurrence.ParseParams(occurrence.ValuesFromJSON(q), s.defaultLimit)
		if err != nil {
			writeError(w, r, prefixFields(err, fmt.Sprintf("queries[%d].", i)))
			return
		}
		env, err := s.occurrences.Query(r.Context(), params)
		if err != nil {
			writeError(w, r, err)
			return
		}
		resp.Queries = append(resp.Queries, env)
	}
	resp.TimeReturned = s.occurrences.Now()
	resp.Version = s.occurrences.Version()
	writeJSON(w, http.StatusOK, resp)
}

// AnnotateRequest is the body of POST /annotations.
type AnnotateRequest struct {
	Target annotation.Target `json:"target"`
	Body   annotation.Body   `json:"body"`
}

func (s *Server) handleAnnotate(w http.ResponseWriter, r *http.Request) {
	var req AnnotateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	a, err := s.annotations.Build(req.Target, req.Body)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

// requestValues gathers parameters from the query string and, for POST,
// from a JSON or form body. Body values override query values.
func requestValues(r *http.Request) (url.Values, error) {
	values := r.URL.Query()
	if r.Method != http.MethodPost {
		return values, nil
	}

	if isJSON(r) {
		var obj map[string]any
		if err := decodeJSON(r, &obj); err != nil {
			return nil, err
		}
		for k, v := range occurrence.ValuesFromJSON(obj) {
			values[k] = v
		}
		return values, nil
	}

	if err := r.ParseForm(); err != nil {
		return nil, apperrors.NewValidationError(apperrors.GeneralField, "malformed form body")
	}
	for k, v := range r.PostForm {
		values[k] = v
	}
	return values, nil
}

func isJSON(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mt == "application/json"
}

// decodeJSON reads a JSON body into v. An empty body leaves v untouched.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil && err != io.EOF {
		return apperrors.NewValidationError(apperrors.GeneralField, "malformed JSON body: "+err.Error())
	}
	return nil
}

// prefixFields qualifies validation field names with prefix.
func prefixFields(err error, prefix string) error {
	verr, ok := err.(*apperrors.ValidationError)
	if !ok {
		return err
	}
	out := &apperrors.ValidationError{}
	for k, msgs := range verr.Fields {
		for _, m := range msgs {
			out.Add(prefix+k, m)
		}
	}
	return out
}
