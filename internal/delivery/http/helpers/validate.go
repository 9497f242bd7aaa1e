package helpers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// maxBodyBytes bounds request bodies. Event content is the largest field.
const maxBodyBytes = 1 << 20

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validator is implemented by request DTOs with checks that struct tags cannot express.
// Validate returns field messages; nil or empty means valid.
type Validator interface {
	Validate() map[string]string
}

// DecodeAndValidate decodes the request body into dest (with DisallowUnknownFields),
// runs the struct tag rules and then Validate() when dest implements Validator.
// On failure it writes a 400 JSON error and returns false.
// Callers should return immediately when DecodeAndValidate returns false.
func DecodeAndValidate(w http.ResponseWriter, r *http.Request, dest any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dest); err != nil {
		WriteJSONError(w, http.StatusBadRequest, ErrCodeBadRequest, decodeMessage(err))
		return false
	}
	fields := StructFieldErrors(dest)
	if v, ok := dest.(Validator); ok {
		for k, msg := range v.Validate() {
			if _, seen := fields[k]; !seen {
				fields[k] = msg
			}
		}
	}
	if len(fields) > 0 {
		WriteValidationError(w, fields)
		return false
	}
	return true
}

// StructFieldErrors runs the validate tags of s and returns messages keyed by the
// JSON path of each failing field.
func StructFieldErrors(s any) map[string]string {
	fields := make(map[string]string)
	err := validate.Struct(s)
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fields
	}
	for _, fe := range verrs {
		key := fe.Namespace()
		if _, rest, ok := strings.Cut(key, "."); ok {
			key = rest
		}
		if _, seen := fields[key]; !seen {
			fields[key] = fieldMessage(fe)
		}
	}
	return fields
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "uuid":
		return "must be a UUID"
	case "url", "http_url":
		return "must be an absolute URL"
	default:
		return "is invalid"
	}
}

func decodeMessage(err error) string {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	var maxErr *http.MaxBytesError
	switch {
	case errors.As(err, &syntaxErr):
		return "malformed JSON body"
	case errors.As(err, &typeErr):
		return fmt.Sprintf("field %q has the wrong type", typeErr.Field)
	case errors.As(err, &maxErr):
		return "request body too large"
	case strings.HasPrefix(err.Error(), "json: unknown field "):
		return err.Error()
	default:
		return "invalid request body"
	}
}
