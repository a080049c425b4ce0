package core

import (
	"errors"
	"fmt"
	"testing"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{name: "nil error returns empty", err: nil, wantCode: ""},
		{name: "not found", err: fmt.Errorf("load x: %w: x", ErrSourceNotFound), wantCode: "FILE004"},
		{name: "malformed", err: fmt.Errorf("%w: record on line 3: wrong number of fields", ErrSourceMalformed), wantCode: "FILE002"},
		{name: "empty file wins over invalid csv", err: fmt.Errorf("%w: %w", ErrSourceMalformed, ErrEmptyFile), wantCode: "FILE005"},
		{name: "too large", err: fmt.Errorf("%w: exceeds 10 bytes", ErrFileTooLarge), wantCode: "FILE001"},
		{name: "unreadable", err: fmt.Errorf("%w: permission denied", ErrSourceUnreadable), wantCode: "FILE006"},
		{name: "negative expected rows", err: WithExpectedRows(-4).Validate(), wantCode: "REQ001"},
		{name: "busy", err: ErrTooManyValidations, wantCode: "UPL002"},
		{name: "invalid delimiter", err: errors.New(`invalid delimiter: "ab" must be a single character`), wantCode: "REQ003"},
		{name: "run lookup with bad id", err: errors.New("invalid run ID: invalid UUID length: 3"), wantCode: "RUN002"},
		{name: "run missing", err: errors.New("run not found"), wantCode: "RUN001"},
		{name: "case insensitive matching", err: errors.New("FILE TOO LARGE"), wantCode: "FILE001"},
		{name: "unknown error returns default", err: errors.New("some random internal error"), wantCode: "ERR000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			if got.Code != tt.wantCode {
				t.Errorf("MapError() code = %q, want %q", got.Code, tt.wantCode)
			}
			if tt.err != nil && got.Message == "" {
				t.Error("MapError() message is empty")
			}
		})
	}
}

func TestCheckMessage(t *testing.T) {
	for _, code := range []string{CodeRowCountMismatch, CodeMissingKeyColumn, CodeDuplicateKeys, CodeColumnMismatch} {
		msg, ok := CheckMessage(code)
		if !ok {
			t.Errorf("CheckMessage(%q) not found", code)
			continue
		}
		if msg.Code != code || msg.Action == "" {
			t.Errorf("CheckMessage(%q) = %+v", code, msg)
		}
	}

	if _, ok := CheckMessage("ERR000"); ok {
		t.Error("CheckMessage(ERR000) should not be found")
	}
}

func TestFormatUserError(t *testing.T) {
	result := FormatUserError(fmt.Errorf("%w: a.csv", ErrSourceNotFound))

	expected := "The submission file does not exist (Code: FILE004). Check the path and try again"
	if result != expected {
		t.Errorf("FormatUserError() = %q, want %q", result, expected)
	}
	if got := FormatUserError(nil); got != "" {
		t.Errorf("FormatUserError(nil) = %q, want empty", got)
	}
}

func TestMapError_LoadErrorUsesCode(t *testing.T) {
	tests := []struct {
		name     string
		err      *LoadError
		wantCode string
	}{
		{
			name:     "path text does not leak into mapping",
			err:      newLoadError(CauseNotFound, "/data/empty file samples/sub.csv", fmt.Errorf("%w: /data/empty file samples/sub.csv", ErrSourceNotFound)),
			wantCode: "FILE004",
		},
		{
			name:     "empty file",
			err:      newLoadError(CauseMalformed, "sub.csv", fmt.Errorf("%w: %w", ErrSourceMalformed, ErrEmptyFile)),
			wantCode: "FILE005",
		},
		{
			name:     "malformed",
			err:      newLoadError(CauseMalformed, "too large.csv", fmt.Errorf("%w: bare quote", ErrSourceMalformed)),
			wantCode: "FILE002",
		},
		{
			name:     "cause only, as read back from an older report",
			err:      &LoadError{Cause: CauseUnreadable, Source: "sub.csv", Detail: "source unreadable: EIO"},
			wantCode: "FILE006",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := fmt.Errorf("validate: %w", tt.err)
			if got := MapError(wrapped).Code; got != tt.wantCode {
				t.Errorf("MapError() code = %q, want %q", got, tt.wantCode)
			}
		})
	}
}
