package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateTitle(t *testing.T) {
	tests := []struct {
		name    string
		title   string
		wantErr bool
	}{
		{"simple", "Learn Go", false},
		{"padded", "  Read  ", false},
		{"empty", "", true},
		{"whitespace", "   ", true},
		{"max length", strings.Repeat("a", MaxTitleLength), false},
		{"too long", strings.Repeat("a", MaxTitleLength+1), true},
		{"multibyte within limit", strings.Repeat("é", MaxTitleLength), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTitle(tt.title)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateDaysOfWeek(t *testing.T) {
	tests := []struct {
		mask    string
		wantErr bool
	}{
		{"1111111", false},
		{"1111100", false},
		{"0000001", false},
		{"0000000", true},
		{"111111", true},
		{"11111111", true},
		{"11111a1", true},
	}

	for _, tt := range tests {
		t.Run(tt.mask, func(t *testing.T) {
			err := ValidateDaysOfWeek(tt.mask)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateImportance(t *testing.T) {
	assert.NoError(t, ValidateImportance(1, 1, 5))
	assert.NoError(t, ValidateImportance(5, 1, 5))
	assert.Error(t, ValidateImportance(0, 1, 5))
	assert.Error(t, ValidateImportance(6, 1, 5))
}

func TestValidateDescription(t *testing.T) {
	assert.NoError(t, ValidateDescription(""))
	assert.Error(t, ValidateDescription(strings.Repeat("x", MaxDescriptionLength+1)))
}
