package importers

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

var (
	usernamePattern = regexp.MustCompile(`^[\w.@+-]+$`)
	slugPattern     = regexp.MustCompile(`^[-a-zA-Z0-9_]+$`)
)

// newValidator registers the collaborator rules as validation tags:
// username, slug, score and notfuture.
func newValidator(rules Rules, now func() time.Time) (*validator.Validate, error) {
	v := validator.New(validator.WithRequiredStructEnabled())

	reserved := make([]string, len(rules.ReservedUsernames))
	for i, name := range rules.ReservedUsernames {
		reserved[i] = strings.ToLower(name)
	}

	custom := map[string]validator.Func{
		"username": func(fl validator.FieldLevel) bool {
			name := fl.Field().String()
			return usernamePattern.MatchString(name) && !slices.Contains(reserved, strings.ToLower(name))
		},
		"slug": func(fl validator.FieldLevel) bool {
			return slugPattern.MatchString(fl.Field().String())
		},
		"score": func(fl validator.FieldLevel) bool {
			score := fl.Field().Int()
			return score >= int64(rules.ScoreMin) && score <= int64(rules.ScoreMax)
		},
		"notfuture": func(fl validator.FieldLevel) bool {
			return fl.Field().Int() <= int64(now().Year())
		},
	}
	for tag, fn := range custom {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return nil, fmt.Errorf("failed to register %s validation: %w", tag, err)
		}
	}
	return v, nil
}

func describeValidation(errs validator.ValidationErrors, rules Rules) []string {
	reasons := make([]string, 0, len(errs))
	for _, fe := range errs {
		field := toSnake(fe.Field())
		var reason string
		switch fe.Tag() {
		case "required":
			reason = "is required"
		case "max":
			reason = fmt.Sprintf("exceeds %s characters", fe.Param())
		case "gte":
			reason = fmt.Sprintf("must be at least %s", fe.Param())
		case "email":
			reason = "is not a valid email"
		case "username":
			reason = "is not a valid username"
		case "slug":
			reason = "is not a valid slug"
		case "score":
			reason = fmt.Sprintf("must be between %d and %d", rules.ScoreMin, rules.ScoreMax)
		case "notfuture":
			reason = "is in the future"
		default:
			reason = "failed " + fe.Tag()
		}
		reasons = append(reasons, fmt.Sprintf("%s=%v %s", field, fe.Value(), reason))
	}
	return reasons
}

func toSnake(name string) string {
	var b strings.Builder
	for i, r := range name {
		if r >= 'A' && r <= 'Z' {
			if i > 0 && !(name[i-1] >= 'A' && name[i-1] <= 'Z') {
				b.WriteByte('_')
			}
			b.WriteRune(r + ('a' - 'A'))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
