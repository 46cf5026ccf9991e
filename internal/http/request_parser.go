// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for parsing and validating HTTP request data.
// It reduces code duplication by providing reusable functions for path
// parameters, body decoding and input sanitization.

package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"bilancio/internal/core"
)

// maxBodyBytes bounds request bodies; finance records are tiny.
const maxBodyBytes = 64 << 10

// errBodyTooLarge is returned by Parse when the body exceeds maxBodyBytes.
var errBodyTooLarge = errors.New("request body too large")

// ParsePeriodPath reads the {year} and {month} path values and validates them.
func ParsePeriodPath(r *http.Request) (core.Period, error) {
	year, err := strconv.Atoi(strings.TrimSpace(r.PathValue("year")))
	if err != nil {
		return core.Period{}, core.NewValidationError("year", "must be an integer")
	}
	month, err := strconv.Atoi(strings.TrimSpace(r.PathValue("month")))
	if err != nil {
		return core.Period{}, core.NewValidationError("month", "must be an integer")
	}
	return core.NewPeriod(year, month)
}

// ParseIDPath reads the {id} path value.
func ParseIDPath(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(r.PathValue("id")), 10, 64)
	if err != nil {
		return 0, core.NewValidationError("id", "must be an integer")
	}
	return id, nil
}

// RequestBodyParser handles different content types for request body parsing.
// It supports both JSON and form-encoded data.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]interface{}
	formData    url.Values
	parsed      bool
	err         error
}

// NewRequestBodyParser creates a parser for the given request.
// It reads the body once and stores it for subsequent parsing. Bodies over
// maxBodyBytes are rejected whole rather than parsed in part.
func NewRequestBodyParser(w http.ResponseWriter, r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{
		contentType: r.Header.Get("Content-Type"),
	}

	if r.Body != nil {
		p.body, p.err = io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(p.err, &tooLarge):
			p.body, p.err = nil, errBodyTooLarge
		case p.err != nil:
			p.body, p.err = nil, core.NewValidationError("", "Unreadable request body")
		}
	}
	return p
}

// Parse attempts to parse the body as JSON or form data.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		return p.err
	}

	trimmed := bytes.TrimSpace(p.body)
	if len(trimmed) == 0 {
		p.formData = url.Values{}
		return nil
	}

	// Try JSON first if content looks like JSON
	if trimmed[0] == '{' || strings.HasPrefix(p.contentType, "application/json") {
		dec := json.NewDecoder(bytes.NewReader(trimmed))
		dec.UseNumber()
		p.jsonData = make(map[string]interface{})
		if err := dec.Decode(&p.jsonData); err != nil {
			p.jsonData = nil
			p.err = core.NewValidationError("", "Invalid JSON body")
			return p.err
		}
		return nil
	}

	// Fall back to form parsing
	p.formData, p.err = url.ParseQuery(string(trimmed))
	if p.err != nil {
		p.err = core.NewValidationError("", "Invalid form body")
	}
	return p.err
}

// Get returns a string value from the parsed data (JSON or form).
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return strings.TrimSpace(sanitizeInput(stringValue(val)))
		}
		return ""
	}
	if p.formData != nil {
		return strings.TrimSpace(sanitizeInput(p.formData.Get(key)))
	}
	return ""
}

// Has reports whether key was supplied with a non-empty value.
func (p *RequestBodyParser) Has(key string) bool {
	return p.Get(key) != ""
}

// Missing returns the keys that were not supplied.
func (p *RequestBodyParser) Missing(keys ...string) []string {
	var missing []string
	for _, k := range keys {
		if !p.Has(k) {
			missing = append(missing, k)
		}
	}
	return missing
}

// IsJSON returns true if the parsed content was JSON.
func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

// stringValue converts an interface{} to string.
func stringValue(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case json.Number:
		return val.String()
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// RequireFields returns a 400 response naming the first problem when any of
// keys is absent, or nil when all are present.
func RequireFields(p *RequestBodyParser, keys ...string) *JSONResponseBuilder {
	if missing := p.Missing(keys...); len(missing) > 0 {
		return BadRequestError("Missing required fields: " + strings.Join(missing, ", "))
	}
	return nil
}

// ParseIntField parses a required integer field.
func ParseIntField(p *RequestBodyParser, key string) (int, error) {
	raw := p.Get(key)
	n, err := strconv.Atoi(raw)
	if err != nil {
		// JSON numbers like 6.0 are still whole months
		if f, ferr := strconv.ParseFloat(raw, 64); ferr == nil && f == float64(int(f)) {
			return int(f), nil
		}
		return 0, core.NewValidationError(key, "must be an integer")
	}
	return n, nil
}
