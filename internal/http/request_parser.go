// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for parsing and validating HTTP request data.
// It reduces code duplication by providing reusable functions for form
// extraction, view window parsing and input sanitization.

package http

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"lawnledger/internal/core"
	"lawnledger/internal/ledger"
	"lawnledger/internal/services"
)

// maxBodyBytes caps request bodies; a transaction form is a few hundred bytes.
const maxBodyBytes = 64 << 10

// RequestBodyParser handles different content types for request body parsing.
// It supports both JSON and form-encoded data, commonly used with HTMX.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]interface{}
	formData    url.Values
	parsed      bool
	err         error
}

// NewRequestBodyParser creates a parser for the given request.
// It reads the body once and stores it for subsequent parsing.
func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{
		contentType: r.Header.Get("Content-Type"),
	}

	p.body, p.err = io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
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

	if len(p.body) == 0 {
		p.formData = url.Values{}
		return nil
	}

	// Try JSON first if content looks like JSON
	if p.body[0] == '{' {
		p.jsonData = make(map[string]interface{})
		if err := json.Unmarshal(p.body, &p.jsonData); err != nil {
			p.err = err
			return err
		}
		return nil
	}

	// Fall back to form parsing
	p.formData, p.err = url.ParseQuery(string(p.body))
	return p.err
}

// Get returns a string value from the parsed data (JSON or form).
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return strings.TrimSpace(sanitizeInput(stringValue(val)))
		}
	}
	if p.formData != nil {
		return strings.TrimSpace(sanitizeInput(p.formData.Get(key)))
	}
	return ""
}

// GetBool interprets the value of key as a checkbox: "true", "1" and "on"
// are true, anything else is false.
func (p *RequestBodyParser) GetBool(key string) bool {
	switch strings.ToLower(p.Get(key)) {
	case "true", "1", "on", "yes":
		return true
	}
	return false
}

// GetRaw returns the raw body bytes.
func (p *RequestBodyParser) GetRaw() []byte {
	return p.body
}

// ContentType returns the Content-Type header value.
func (p *RequestBodyParser) ContentType() string {
	return p.contentType
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

// ParseFormInput reads a transaction or template form from the request body.
func ParseFormInput(r *http.Request) (services.FormInput, error) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		return services.FormInput{}, err
	}
	return services.FormInput{
		Description:    p.Get("description"),
		Amount:         p.Get("amount"),
		Date:           p.Get("date"),
		Kind:           p.Get("type"),
		Client:         p.Get("client"),
		SaveAsTemplate: p.GetBool("save_as_template"),
	}, nil
}

// ParseTranscript reads the "transcript" field from the request body.
func ParseTranscript(r *http.Request) (string, error) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		return "", err
	}
	return p.Get("transcript"), nil
}

// ViewParams is the visible window and kind filter of a view request.
type ViewParams struct {
	Range  ledger.Range
	Filter ledger.Filter
}

// ParseViewParams extracts the view window from query parameters.
//
// An explicit start/end pair wins. Otherwise "period" (day, week or month,
// default month) is applied around "date" (default today). An inverted
// start/end pair is kept as is and yields an empty view.
func ParseViewParams(query url.Values, today core.Date) (ViewParams, error) {
	filter, err := ledger.ParseFilter(query.Get("type"))
	if err != nil {
		return ViewParams{}, err
	}

	startRaw := strings.TrimSpace(query.Get("start"))
	endRaw := strings.TrimSpace(query.Get("end"))
	if startRaw != "" || endRaw != "" {
		start, err := core.ParseDate(startRaw)
		if err != nil {
			return ViewParams{}, fmt.Errorf("start: %w", err)
		}
		end, err := core.ParseDate(endRaw)
		if err != nil {
			return ViewParams{}, fmt.Errorf("end: %w", err)
		}
		return ViewParams{Range: ledger.Range{Start: start, End: end}, Filter: filter}, nil
	}

	anchor := today
	if v := strings.TrimSpace(query.Get("date")); v != "" {
		anchor, err = core.ParseDate(v)
		if err != nil {
			return ViewParams{}, fmt.Errorf("date: %w", err)
		}
	}

	var r ledger.Range
	switch strings.ToLower(strings.TrimSpace(query.Get("period"))) {
	case "", "month":
		r = ledger.MonthRange(anchor.Year(), anchor.Month())
	case "week":
		r = ledger.WeekRange(anchor)
	case "day":
		r = ledger.DayRange(anchor)
	default:
		return ViewParams{}, fmt.Errorf("invalid period %q: must be day, week or month", query.Get("period"))
	}
	return ViewParams{Range: r, Filter: filter}, nil
}

// ParseLimit reads a positive "limit" query parameter, falling back to def
// when absent and capping at max.
func ParseLimit(query url.Values, def, max int) (int, error) {
	v := strings.TrimSpace(query.Get("limit"))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid limit %q: must be a positive integer", v)
	}
	if n > max {
		n = max
	}
	return n, nil
}
