package validation

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	MaxTitleLength       = 200
	MaxDescriptionLength = 2000
)

// ValidateTitle validates a goal title
func ValidateTitle(title string) error {
	trimmed := strings.TrimSpace(title)

	if trimmed == "" {
		return errors.New("title is required")
	}

	if utf8.RuneCountInString(trimmed) > MaxTitleLength {
		return fmt.Errorf("title is too long (max %d characters)", MaxTitleLength)
	}

	return nil
}

func ValidateDescription(description string) error {
	if utf8.RuneCountInString(description) > MaxDescriptionLength {
		return fmt.Errorf("description is too long (max %d characters)", MaxDescriptionLength)
	}
	return nil
}

// ValidateDaysOfWeek validates a Mon..Sun schedule mask such as "1111100".
func ValidateDaysOfWeek(mask string) error {
	if len(mask) != 7 {
		return errors.New("days of week must have 7 characters (Mon..Sun)")
	}

	if strings.Trim(mask, "01") != "" {
		return errors.New("days of week may only contain 0 and 1")
	}

	if !strings.Contains(mask, "1") {
		return errors.New("at least one day must be selected")
	}

	return nil
}

func ValidateImportance(importance, min, max int) error {
	if importance < min || importance > max {
		return fmt.Errorf("importance must be between %d and %d", min, max)
	}
	return nil
}
