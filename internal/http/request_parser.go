package http

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"financemei/internal/aggregate"
	"financemei/internal/core"
)

const maxBodyBytes = 1 << 20

// OwnerHeader names the caller. Authentication happens upstream.
const OwnerHeader = "X-Owner-ID"

func ownerOf(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(OwnerHeader))
}

// parseMonthParams reads year and month, defaulting to today's.
func parseMonthParams(query url.Values, today core.Date) (core.Window, error) {
	year, month := today.Year(), today.Month()
	if v := strings.TrimSpace(query.Get("year")); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil {
			return core.Window{}, fmt.Errorf("%w: year %q", core.ErrInvalidInput, v)
		}
		year = y
	}
	if v := strings.TrimSpace(query.Get("month")); v != "" {
		m, err := strconv.Atoi(v)
		if err != nil {
			return core.Window{}, core.ErrInvalidMonth
		}
		month = m
	}
	return aggregate.MonthWindow(year, month)
}

// parseWindow reads an inclusive start/end pair of YYYY-MM-DD dates. A
// missing bound falls back to the current month's.
func parseWindow(query url.Values, today core.Date) (core.Window, error) {
	w := aggregate.MonthOf(today)
	if v := strings.TrimSpace(query.Get("start")); v != "" {
		d, err := core.ParseDate(v)
		if err != nil {
			return core.Window{}, err
		}
		w.Start = d
	}
	if v := strings.TrimSpace(query.Get("end")); v != "" {
		d, err := core.ParseDate(v)
		if err != nil {
			return core.Window{}, err
		}
		w.End = d
	}
	return w, w.Validate()
}

func parseBool(query url.Values, key string) (bool, error) {
	v := strings.TrimSpace(query.Get(key))
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%w: %s must be true or false", core.ErrInvalidInput, key)
	}
	return b, nil
}

func parseInt(query url.Values, key string, def int) (int, error) {
	v := strings.TrimSpace(query.Get(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", core.ErrInvalidInput, key)
	}
	return n, nil
}

// parseRevenue reads an optional revenue amount in reais ("81000,00" or
// "81000.00"). Absent means nil.
func parseRevenue(query url.Values) (*core.Money, error) {
	v := strings.TrimSpace(query.Get("revenue"))
	if v == "" {
		return nil, nil
	}
	m, err := core.ParseRevenue(v)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// decodeJSON reads a bounded JSON body into dst, rejecting unknown fields
// and trailing data.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: malformed body: %v", core.ErrInvalidInput, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: trailing data after body", core.ErrInvalidInput)
	}
	return nil
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' {
			return -1
		}
		return r
	}, s))
}
