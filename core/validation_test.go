package core

import (
	"errors"
	"testing"
)

func TestValidateDocumentInput(t *testing.T) {
	tests := []struct {
		name    string
		title   string
		text    string
		wantErr error
	}{
		{
			name:    "valid input",
			title:   "Regional Workforce Report",
			text:    "The program serves three counties.",
			wantErr: nil,
		},
		{
			name:    "empty title",
			title:   "",
			text:    "content",
			wantErr: ErrValidation,
		},
		{
			name:    "whitespace title",
			title:   "   ",
			text:    "content",
			wantErr: ErrValidation,
		},
		{
			name:    "empty text",
			title:   "Title",
			text:    "",
			wantErr: ErrEmptyContent,
		},
		{
			name:    "whitespace text",
			title:   "Title",
			text:    " \n\t ",
			wantErr: ErrEmptyContent,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDocumentInput(tt.title, tt.text)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateDocumentInput() error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateDocumentInput() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateQuery(t *testing.T) {
	if err := ValidateQuery("site selection incentives"); err != nil {
		t.Errorf("ValidateQuery() error = %v, want nil", err)
	}
	if err := ValidateQuery("  "); !errors.Is(err, ErrValidation) {
		t.Errorf("ValidateQuery() error = %v, want ErrValidation", err)
	}
}

func TestValidateLimit(t *testing.T) {
	tests := []struct {
		name  string
		limit int
		def   int
		max   int
		want  int
	}{
		{"zero uses default", 0, 5, 50, 5},
		{"negative uses default", -3, 5, 50, 5},
		{"in range passes through", 10, 5, 50, 10},
		{"over max clamps", 200, 5, 50, 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidateLimit(tt.limit, tt.def, tt.max); got != tt.want {
				t.Errorf("ValidateLimit() = %d, want %d", got, tt.want)
			}
		})
	}
}
