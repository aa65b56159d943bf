// Package model holds what the tree and sequence models share: evaluation
// metrics, feature importance and hyperparameter decoding.
package model

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// Validator returns the shared validator instance.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		// Report fields by their config key.
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name, _, _ := strings.Cut(fld.Tag.Get("mapstructure"), ",")
			if name == "" || name == "-" {
				return fld.Name
			}
			return name
		})
	})
	return validate
}

// DecodeParams overlays raw (typically a config "params" map) onto out, which
// must be a pointer to a struct already holding defaults, then validates the
// result. Unknown keys are rejected so typos do not silently fall back to
// defaults.
func DecodeParams(raw map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return fmt.Errorf("failed to create params decoder: %w", err)
	}
	if len(raw) > 0 {
		if err := dec.Decode(raw); err != nil {
			return fmt.Errorf("invalid params: %w", err)
		}
	}
	return ValidateParams(out)
}

// ValidateParams checks the validate tags of a params struct and flattens
// failures into one readable error.
func ValidateParams(params any) error {
	err := Validator().Struct(params)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("invalid params: %w", err)
	}

	msgs := make([]string, len(verrs))
	for i, fe := range verrs {
		msgs[i] = fmt.Sprintf("%s must satisfy %s", fe.Field(), tagDescription(fe))
	}
	return fmt.Errorf("invalid params: %s", strings.Join(msgs, "; "))
}

func tagDescription(fe validator.FieldError) string {
	switch fe.Tag() {
	case "gt":
		return "> " + fe.Param()
	case "gte":
		return ">= " + fe.Param()
	case "lt":
		return "< " + fe.Param()
	case "lte":
		return "<= " + fe.Param()
	default:
		if fe.Param() != "" {
			return fe.Tag() + "=" + fe.Param()
		}
		return fe.Tag()
	}
}

// Importance is the share of a feature in a model's total split gain.
type Importance struct {
	Feature string  `json:"feature" yaml:"feature"`
	Score   float64 `json:"score" yaml:"score"`
}

// Prediction pairs a model output with the observed value for one sample.
type Prediction struct {
	Parish    string  `json:"parish" yaml:"parish"`
	Year      int     `json:"year" yaml:"year"`
	Actual    float64 `json:"actual" yaml:"actual"`
	Predicted float64 `json:"predicted" yaml:"predicted"`
}
