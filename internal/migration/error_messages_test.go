package migration

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/JonMunkholm/sdvmigrate/internal/config"
	"github.com/JonMunkholm/sdvmigrate/internal/dump"
	"github.com/JonMunkholm/sdvmigrate/internal/export"
	"github.com/JonMunkholm/sdvmigrate/internal/mapping"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{"nil error returns empty", nil, ""},
		{"missing input", fmt.Errorf("read: %w", dump.ErrInputNotFound), "INP001"},
		{"unknown encoding", fmt.Errorf("%w: klingon", dump.ErrUnknownEncoding), "INP002"},
		{"invalid config", fmt.Errorf("config validation: %w", config.ErrInvalidConfig), "CFG001"},
		{"invalid mappings", fmt.Errorf("%w: bad yaml", mapping.ErrInvalidMappings), "MAP001"},
		{"unknown session", fmt.Errorf("%w: 1999-2000", export.ErrUnknownSession), "EXP001"},
		{"template", fmt.Errorf("%w: t.xlsx", export.ErrTemplate), "EXP002"},
		{"output", fmt.Errorf("%w /x: denied", ErrOutput), "EXP003"},
		{"busy", export.ErrBusy, "EXP004"},
		{"strict validation", errors.New("validation reported errors"), "VAL001"},
		{"cancelled", context.Canceled, "REQ001"},
		{"deadline", fmt.Errorf("session 2024-2025: %w", context.DeadlineExceeded), "REQ002"},
		{"pattern without sentinel", errors.New("Session Not Found: 2030-2031"), "EXP001"},
		{"unknown error returns default", errors.New("some random internal error"), "ERR000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			if got.Code != tt.wantCode {
				t.Errorf("MapError() code = %q, want %q", got.Code, tt.wantCode)
			}
		})
	}
}

func TestFormatUserError(t *testing.T) {
	if got := FormatUserError(nil); got != "" {
		t.Errorf("FormatUserError(nil) = %q, want empty", got)
	}

	got := FormatUserError(dump.ErrInputNotFound)
	want := "Input dump file not found (Code: INP001). Pass the dump path with --input or MIGRATE_INPUT"
	if got != want {
		t.Errorf("FormatUserError() = %q, want %q", got, want)
	}
}

func TestIsUserFacing(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{export.ErrTemplate, true},
		{errors.New("boom"), false},
	}

	for _, tt := range tests {
		if got := IsUserFacing(tt.err); got != tt.want {
			t.Errorf("IsUserFacing(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestUserError(t *testing.T) {
	if NewUserError(nil) != nil {
		t.Error("NewUserError(nil) should return nil")
	}

	technical := fmt.Errorf("export: %w", export.ErrUnknownSession)
	ue := NewUserError(technical)

	if ue.Error() != "No students were extracted for that session" {
		t.Errorf("Error() = %q", ue.Error())
	}
	if !errors.Is(ue, export.ErrUnknownSession) {
		t.Error("UserError should unwrap to the technical error")
	}
	if ue.User.Code != "EXP001" {
		t.Errorf("Code = %q, want EXP001", ue.User.Code)
	}
}
