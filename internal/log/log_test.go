package log

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"", slog.LevelInfo, false},
		{"DEBUG", slog.LevelDebug, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"verbose", slog.LevelInfo, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNew_JSONWithComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelDebug, Format: "json", Component: ComponentWorker, Output: &buf})

	logger.Debug("band changed", NewFields().WithOwner("owner-1").WithError(errors.New("boom")).ToSlice()...)

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("output is not JSON: %v (%s)", err, buf.String())
	}
	if rec[FieldComponent] != ComponentWorker {
		t.Errorf("component = %v", rec[FieldComponent])
	}
	if rec[FieldOwnerID] != "owner-1" || rec[FieldError] != "boom" {
		t.Errorf("fields missing: %v", rec)
	}
}

func TestContextRoundTrip(t *testing.T) {
	logger := New(Config{Handler: slog.NewTextHandler(&bytes.Buffer{}, nil), Component: ComponentHTTP})
	ctx := NewContext(context.Background(), logger)
	if got := FromContext(ctx); got != logger {
		t.Error("expected the stored logger back")
	}
	if got := FromContext(context.Background()); got.Component() != "unknown" {
		t.Errorf("fallback component = %q", got.Component())
	}
}

func TestFieldsSkipEmpty(t *testing.T) {
	f := NewFields().WithOwner("").WithClientIP("").WithHTTPRequest("GET", "/", "", "")
	if _, ok := f[FieldOwnerID]; ok {
		t.Error("empty owner should be skipped")
	}
	if _, ok := f[FieldQuery]; ok {
		t.Error("empty query should be skipped")
	}
	if len(f.ToSlice()) != 4 {
		t.Errorf("slice = %v", f.ToSlice())
	}
}
