package validate

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/dshills/riskloggr/internal/schema"
)

var (
	// ErrMalformedResponse means the payload is not a JSON object of the
	// expected shape (syntax error or a field of the wrong JSON type).
	ErrMalformedResponse = errors.New("malformed response")
	// ErrValidation means the payload parsed but violates a field constraint.
	ErrValidation = errors.New("validation failed")
)

// requiredKeys must be present in every model response. A null
// control_recommendations is tolerated and normalizes to an empty list.
var requiredKeys = []string{"basel_ii_category", "severity_score", "root_cause", "control_recommendations"}

var structValidator = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	// Registration only fails on an empty tag or nil func.
	_ = v.RegisterValidation("risk_level", func(fl validator.FieldLevel) bool {
		return schema.IsValidRiskLevel(schema.RiskLevel(fl.Field().String()))
	})
	_ = v.RegisterValidation("likelihood", func(fl validator.FieldLevel) bool {
		return schema.IsValidLikelihood(schema.Likelihood(fl.Field().String()))
	})
	_ = v.RegisterValidation("impact_type", func(fl validator.FieldLevel) bool {
		return schema.IsValidImpactType(schema.ImpactType(fl.Field().String()))
	})
	return v
}

// Parse strips markdown fences, decodes the model output into a
// Classification and validates it. Nothing partial is ever returned: on
// error the Classification is nil.
//
// IncidentDescription and FrameworkTags are not taken from the payload; the
// caller owns the former and routing computes the latter.
func Parse(raw string) (*schema.Classification, error) {
	cleaned := stripFences(raw)

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(cleaned), &fields); err != nil {
		return nil, fmt.Errorf("%w: JSON parse failed: %w", ErrMalformedResponse, err)
	}
	if fields == nil {
		return nil, fmt.Errorf("%w: expected a JSON object, got null", ErrMalformedResponse)
	}
	for _, key := range requiredKeys {
		v, ok := fields[key]
		if !ok {
			return nil, fmt.Errorf("%w: %s is required", ErrValidation, key)
		}
		if key != "control_recommendations" && bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
			return nil, fmt.Errorf("%w: %s is required", ErrValidation, key)
		}
	}

	var c schema.Classification
	if err := json.Unmarshal([]byte(cleaned), &c); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}

	c.IncidentDescription = ""
	c.FrameworkTags = []string{}
	c.Normalize()

	if err := Classification(&c); err != nil {
		return nil, err
	}
	return &c, nil
}

// Classification checks c against the field constraints: required text
// fields, severity range and enumeration membership. Violations are reported
// as ErrValidation naming the offending JSON field.
func Classification(c *schema.Classification) error {
	err := structValidator.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describe(fe))
	}
	return fmt.Errorf("%w: %s", ErrValidation, strings.Join(msgs, "; "))
}

func describe(fe validator.FieldError) string {
	field := fe.Field()
	if ns := fe.Namespace(); strings.Contains(ns, "[") {
		// impact_type[1] rather than the bare field name
		_, field, _ = strings.Cut(ns, ".")
	}
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min", "max":
		return fmt.Sprintf("%s %v must be between 1 and 5", field, fe.Value())
	case "risk_level":
		return fmt.Sprintf("%s %q must be Low, Medium, High, or Very High", field, fe.Value())
	case "likelihood":
		return fmt.Sprintf("%s %q must be Rare, Unlikely, Possible, Likely, or Certain", field, fe.Value())
	case "impact_type":
		return fmt.Sprintf("%s %q must be Financial, Legal, Reputational, or Operational", field, fe.Value())
	default:
		return fmt.Sprintf("%s failed %s", field, fe.Tag())
	}
}

// stripFences removes leading/trailing markdown code fences (```json ... ``` or ``` ... ```).
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		// Remove first line (the fence opener)
		idx := strings.Index(s, "\n")
		if idx >= 0 {
			s = s[idx+1:]
		}
	}
	if strings.HasSuffix(s, "```") {
		idx := strings.LastIndex(s, "\n```")
		if idx >= 0 {
			s = s[:idx]
		}
	}
	return strings.TrimSpace(s)
}
