// Package request validates request descriptors at the pipeline boundary
// and applies configured defaults to omitted fields.
package request

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"newscollector/internal/config"
	"newscollector/internal/core"
)

var validate = validator.New()

// ValidationError reports every constraint a request violates. The caller
// receives all failures at once rather than the first one found.
type ValidationError struct {
	Violations []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid request: %s", strings.Join(e.Violations, "; "))
}

// ApplyDefaults fills omitted request fields from configuration.
func ApplyDefaults(req *core.Request, cfg *config.Config) {
	if req.Language == "" {
		req.Language = cfg.Defaults.Language
	}
	if req.Country == "" {
		req.Country = cfg.Defaults.Country
	}
	if req.Limit == 0 {
		req.Limit = cfg.Defaults.Limit
	}
	if req.GroupBy == "" {
		req.GroupBy = core.Grouping(cfg.Defaults.GroupBy)
	}
	req.Diversity = req.Diversity || cfg.Defaults.Diversity
	req.VerifiedOnly = req.VerifiedOnly || cfg.Defaults.VerifiedSourcesOnly
}

// Validate checks the request against its invariants. A nil return means
// the request is acceptable; otherwise the error is a *ValidationError
// listing every failing constraint.
func Validate(req core.Request) error {
	var violations []string

	if err := validate.Struct(req); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			for _, fe := range fieldErrs {
				violations = append(violations, describeFieldError(fe))
			}
		} else {
			return fmt.Errorf("request validation: %w", err)
		}
	}

	if req.From != nil && req.To != nil && req.From.After(*req.To) {
		violations = append(violations, "time window: from must not be after to")
	}

	if len(violations) == 0 {
		return nil
	}
	return &ValidationError{Violations: violations}
}

func describeFieldError(fe validator.FieldError) string {
	field := fe.Field()
	switch {
	case field == "Limit":
		return fmt.Sprintf("limit must be between 1 and 100, got %v", fe.Value())
	case field == "Offset":
		return fmt.Sprintf("offset must be non-negative, got %v", fe.Value())
	case field == "Preset":
		return fmt.Sprintf("preset must be one of quality, trending, credible, latest; got %q", fe.Value())
	case field == "GroupBy":
		return fmt.Sprintf("group_by must be one of none, day, source; got %q", fe.Value())
	case field == "Keywords":
		if kws, ok := fe.Value().([]string); ok {
			return fmt.Sprintf("at most 10 include keywords allowed, got %d", len(kws))
		}
		return "at most 10 include keywords allowed"
	case strings.HasPrefix(field, "Categories"):
		return fmt.Sprintf("unknown category %q", fe.Value())
	default:
		return fmt.Sprintf("%s fails constraint %q", field, fe.Tag())
	}
}
