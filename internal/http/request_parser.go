// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for parsing and validating HTTP request data:
// path identifiers, the report window query and JSON bodies.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"budget/internal/core"
)

// maxBodyBytes bounds every JSON request body.
const maxBodyBytes = 1 << 20

var (
	errInvalidID   = errors.New("invalid id")
	errInvalidBody = errors.New("invalid request body")
	errInvalidTop  = errors.New("invalid top")
)

// ParseWindow reads the report window from the query string. Accepted forms
// are month=YYYY-MM, year=YYYY&month=M, or neither for the full history.
func ParseWindow(query url.Values) (*core.Month, error) {
	yearStr := strings.TrimSpace(query.Get("year"))
	monthStr := strings.TrimSpace(query.Get("month"))

	switch {
	case yearStr == "" && monthStr == "":
		return nil, nil
	case yearStr == "":
		if !strings.Contains(monthStr, "-") {
			return nil, fmt.Errorf("%w: year is required when month is a number", core.ErrInvalidYear)
		}
		m, err := core.ParseMonth(monthStr)
		if err != nil {
			return nil, err
		}
		return &m, nil
	case monthStr == "":
		return nil, fmt.Errorf("%w: month is required when year is given", core.ErrInvalidMonth)
	}

	year, err := strconv.Atoi(yearStr)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", core.ErrInvalidYear, yearStr)
	}
	month, err := strconv.Atoi(monthStr)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", core.ErrInvalidMonth, monthStr)
	}
	m, err := core.NewMonth(year, month)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// ParseTop reads ?top=N. An absent value yields def; negative values are rejected.
func ParseTop(query url.Values, def int) (int, error) {
	v := strings.TrimSpace(query.Get("top"))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %q must be a non-negative integer", errInvalidTop, v)
	}
	return n, nil
}

// pathID parses a positive integer path wildcard.
func pathID(r *http.Request, name string) (int64, error) {
	v := r.PathValue(name)
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %s %q", errInvalidID, name, v)
	}
	return id, nil
}

// decodeJSON reads one JSON value from the body. An empty body decodes to
// the zero value when allowEmpty is set.
func decodeJSON(r *http.Request, w http.ResponseWriter, v any, allowEmpty bool) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) && allowEmpty {
			return nil
		}
		if isClientError(err) {
			return err
		}
		return fmt.Errorf("%w: %v", errInvalidBody, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: trailing data after JSON value", errInvalidBody)
	}
	return nil
}
