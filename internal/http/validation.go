package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"

	"github.com/fjod/products-api/internal/domain"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/cast"
)

const modelName = "Product"

// productFieldOrder is the order fields are checked and reported in.
var productFieldOrder = []string{"title", "description", "price", "phone"}

var numberFields = map[string]bool{"price": true, "phone": true}

type createProductRequest struct {
	Title       *string  `json:"title" validate:"required"`
	Description *string  `json:"description" validate:"required"`
	Price       *float64 `json:"price" validate:"required"`
	Phone       *float64 `json:"phone" validate:"required"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// FieldError describes one failing path of a ValidationError.
type FieldError struct {
	Name    string `json:"name"`
	Message string `json:"message"`
	Kind    string `json:"kind"`
	Path    string `json:"path"`
	Value   any    `json:"value,omitempty"`
}

// ValidationError is returned to clients as-is when a create request is rejected.
type ValidationError struct {
	Errors      map[string]FieldError `json:"errors"`
	ShortReason string                `json:"_message"`
	Name        string                `json:"name"`
	Message     string                `json:"message"`

	paths []string
}

func newValidationError() *ValidationError {
	return &ValidationError{
		Errors:      map[string]FieldError{},
		ShortReason: modelName + " validation failed",
		Name:        "ValidationError",
	}
}

func (e *ValidationError) add(fe FieldError) {
	if _, ok := e.Errors[fe.Path]; ok {
		return
	}
	e.Errors[fe.Path] = fe
	e.paths = append(e.paths, fe.Path)
}

func (e *ValidationError) empty() bool { return len(e.paths) == 0 }

func (e *ValidationError) finish() *ValidationError {
	ordered := make([]string, 0, len(e.paths))
	for _, p := range productFieldOrder {
		if fe, ok := e.Errors[p]; ok {
			ordered = append(ordered, p+": "+fe.Message)
		}
	}
	e.Message = e.ShortReason + ": " + strings.Join(ordered, ", ")
	return e
}

func (e *ValidationError) Error() string { return e.Message }

// CastError is returned when a supplied field cannot be coerced to the field's type.
type CastError struct {
	FieldError
}

func (e *CastError) Error() string { return e.Message }

func requiredError(path string) FieldError {
	return FieldError{
		Name:    "ValidatorError",
		Message: fmt.Sprintf("Path `%s` is required.", path),
		Kind:    "required",
		Path:    path,
	}
}

func castError(path, kind string, value any) *CastError {
	return &CastError{FieldError{
		Name:    "CastError",
		Message: fmt.Sprintf("Cast to %s failed for value %s (type %s) at path %q", kind, describe(value), typeName(value), path),
		Kind:    kind,
		Path:    path,
		Value:   value,
	}}
}

func describe(v any) string {
	if s, ok := v.(string); ok {
		return fmt.Sprintf("%q", s)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}

func typeName(v any) string {
	switch v.(type) {
	case string:
		return "string"
	case float64:
		return "number"
	case bool:
		return "boolean"
	case []any:
		return "Array"
	case map[string]any:
		return "Object"
	default:
		return fmt.Sprintf("%T", v)
	}
}

// decodeBody reads a JSON object. An empty body decodes to an empty object.
func decodeBody(r io.Reader) (map[string]any, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read request body: %w", err)
	}
	if len(strings.TrimSpace(string(raw))) == 0 {
		return map[string]any{}, nil
	}

	var body map[string]any
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, fmt.Errorf("decode request body: %w", err)
	}
	if body == nil {
		body = map[string]any{}
	}
	return body, nil
}

func castString(path string, v any) (*string, error) {
	switch v.(type) {
	case []any, map[string]any:
		return nil, castError(path, "string", v)
	}
	s, err := cast.ToStringE(v)
	if err != nil {
		return nil, castError(path, "string", v)
	}
	return &s, nil
}

// castNumber follows JavaScript Number(): surrounding whitespace is ignored
// and a blank string is 0. The empty string is handled by the callers.
func castNumber(path string, v any) (*float64, error) {
	in := v
	switch t := v.(type) {
	case []any, map[string]any:
		return nil, castError(path, "Number", v)
	case string:
		in = strings.TrimSpace(t)
		if in == "" {
			zero := 0.0
			return &zero, nil
		}
	}
	f, err := cast.ToFloat64E(in)
	if err != nil {
		return nil, castError(path, "Number", v)
	}
	return &f, nil
}

func castField(path string, v any) (any, error) {
	if numberFields[path] {
		return castNumber(path, v)
	}
	return castString(path, v)
}

// parseCreate coerces and checks every field a new product needs.
func parseCreate(body map[string]any) (domain.ProductFields, error) {
	verr := newValidationError()
	var req createProductRequest

	for _, path := range productFieldOrder {
		v, ok := body[path]
		if !ok || v == nil {
			continue
		}
		if s, isStr := v.(string); isStr && s == "" {
			continue
		}
		casted, err := castField(path, v)
		if err != nil {
			var ce *CastError
			if errors.As(err, &ce) {
				verr.add(ce.FieldError)
			}
			continue
		}
		assign(&req, path, casted)
	}

	if err := validate.Struct(req); err != nil {
		var ves validator.ValidationErrors
		if !errors.As(err, &ves) {
			return domain.ProductFields{}, err
		}
		for _, fe := range ves {
			verr.add(requiredError(fe.Field()))
		}
	}

	if !verr.empty() {
		return domain.ProductFields{}, verr.finish()
	}

	return domain.ProductFields{
		Title:       *req.Title,
		Description: *req.Description,
		Price:       *req.Price,
		Phone:       *req.Phone,
	}, nil
}

// parseUpdate coerces the supplied fields. Absent and null fields, and empty
// strings for numeric fields, are left out of the update.
func parseUpdate(body map[string]any) (domain.ProductUpdate, error) {
	var req createProductRequest
	for _, path := range productFieldOrder {
		v, ok := body[path]
		if !ok || v == nil {
			continue
		}
		if s, isStr := v.(string); isStr && s == "" && numberFields[path] {
			continue
		}
		casted, err := castField(path, v)
		if err != nil {
			return domain.ProductUpdate{}, err
		}
		assign(&req, path, casted)
	}

	return domain.ProductUpdate{
		Title:       req.Title,
		Description: req.Description,
		Price:       req.Price,
		Phone:       req.Phone,
	}, nil
}

func assign(req *createProductRequest, path string, v any) {
	switch path {
	case "title":
		req.Title = v.(*string)
	case "description":
		req.Description = v.(*string)
	case "price":
		req.Price = v.(*float64)
	case "phone":
		req.Phone = v.(*float64)
	}
}
