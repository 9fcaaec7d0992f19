package shared

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
)

// validate is shared across all handlers; the validator caches struct
// metadata per type, so one instance serves every request shape.
var validate = validator.New()

// DecodeJSON decodes the request body into dst. Unknown fields are
// rejected so a misspelled payload key surfaces as a 400 instead of
// silently submitting a zero value.
func DecodeJSON(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("failed to decode request body: %w", err)
	}
	return nil
}

// ValidateRequest validates a decoded request. Types that carry their own
// Validate method (domain entities) check themselves; plain request DTOs
// are checked against their validate tags.
func ValidateRequest(v interface{}) error {
	if checker, ok := v.(interface{ Validate() error }); ok {
		return checker.Validate()
	}
	return validate.Struct(v)
}
