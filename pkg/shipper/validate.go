package shipper

import (
	"bytes"
	"encoding/json"
	"errors"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validate *validator.Validate
	once     sync.Once

	rateRequestType = reflect.TypeOf(RateRequest{})
)

// getValidator returns the shared validator instance.
func getValidator() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())

		// Report fields by their JSON names so paths match the wire input.
		validate.RegisterTagNameFunc(jsonName)
	})
	return validate
}

// ValidateRateRequest checks untyped input against the rate request schema.
//
// input may be raw JSON ([]byte, json.RawMessage or string), a decoded JSON
// value such as map[string]any, or a RateRequest. Object keys must match the
// schema's JSON names exactly. On failure the returned *Error has
// KindValidation and lists every issue found, indexed by field path.
func ValidateRateRequest(input any) (*RateRequest, error) {
	data, err := rawJSON(input)
	if err != nil {
		return nil, notAnObject()
	}

	var tree any
	if err := json.Unmarshal(data, &tree); err != nil {
		return nil, notAnObject()
	}
	if tree == nil {
		tree = map[string]any{}
	}
	if _, ok := tree.(map[string]any); !ok {
		return nil, notAnObject()
	}

	// Shape problems (unknown keys, wrong JSON types) are reported here with
	// their exact paths, and the offending values are dropped so the typed
	// decode below cannot fail or guess.
	s := &shapeChecker{seen: map[string]bool{}}
	clean := s.check("", tree, rateRequestType)

	cleanData, err := json.Marshal(clean)
	if err != nil {
		return nil, notAnObject()
	}
	var req RateRequest
	dec := json.NewDecoder(bytes.NewReader(cleanData))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		return nil, NewValidationError(append(s.issues, Issue{Message: err.Error()}))
	}

	issues := s.issues
	if err := getValidator().Struct(&req); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return nil, NewValidationError(append(issues, Issue{Message: err.Error()}))
		}
		for _, fe := range verrs {
			field := fieldPath(fe.Namespace())
			if s.covers(field) {
				continue
			}
			issues = append(issues, Issue{Field: field, Message: issueMessage(fe)})
		}
	}

	if len(issues) > 0 {
		return nil, NewValidationError(issues)
	}
	return &req, nil
}

func notAnObject() error {
	return NewValidationError([]Issue{{Message: "must be a JSON object"}})
}

func rawJSON(input any) ([]byte, error) {
	switch v := input.(type) {
	case []byte:
		return v, nil
	case json.RawMessage:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return json.Marshal(v)
	}
}

// shapeChecker walks a decoded JSON tree alongside the Go type it must
// decode into.
type shapeChecker struct {
	issues []Issue
	seen   map[string]bool // paths already reported
}

func (s *shapeChecker) report(path, message string) {
	s.issues = append(s.issues, Issue{Field: path, Message: message})
	s.seen[path] = true
}

// covers reports whether path is, or lies under, an already reported path.
func (s *shapeChecker) covers(path string) bool {
	for p := range s.seen {
		if path == p || strings.HasPrefix(path, p+".") || strings.HasPrefix(path, p+"[") {
			return true
		}
	}
	return false
}

// check returns v with unknown keys and mistyped values removed. A nil
// result means the value is dropped.
func (s *shapeChecker) check(path string, v any, t reflect.Type) any {
	if v == nil {
		return nil
	}
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	switch t.Kind() {
	case reflect.Struct:
		obj, ok := v.(map[string]any)
		if !ok {
			s.report(path, "must be an object")
			return nil
		}
		keys := make([]string, 0, len(obj))
		for k := range obj {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		out := make(map[string]any, len(obj))
		for _, k := range keys {
			childPath := joinPath(path, k)
			ft, ok := fieldType(t, k)
			if !ok {
				s.report(childPath, "is not a recognized field")
				continue
			}
			if cv := s.check(childPath, obj[k], ft); cv != nil {
				out[k] = cv
			}
		}
		return out

	case reflect.Slice:
		arr, ok := v.([]any)
		if !ok {
			s.report(path, "must be an array")
			return nil
		}
		out := make([]any, len(arr))
		for i, item := range arr {
			itemPath := path + "[" + strconv.Itoa(i) + "]"
			out[i] = s.check(itemPath, item, t.Elem())
			if out[i] == nil && item != nil {
				// Keep the element so later indexes stay aligned.
				out[i] = map[string]any{}
			}
		}
		return out

	case reflect.String:
		if _, ok := v.(string); !ok {
			s.report(path, "must be a string")
			return nil
		}
		return v

	case reflect.Float32, reflect.Float64:
		if _, ok := v.(float64); !ok {
			s.report(path, "must be a number")
			return nil
		}
		return v

	default:
		return v
	}
}

// fieldType finds the struct field whose JSON name is exactly name.
func fieldType(t reflect.Type, name string) (reflect.Type, bool) {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.IsExported() && jsonName(f) == name {
			return f.Type, true
		}
	}
	return nil, false
}

func jsonName(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	if name == "" {
		return fld.Name
	}
	return name
}

func joinPath(parent, key string) string {
	if parent == "" {
		return key
	}
	return parent + "." + key
}

// fieldPath drops the root struct name from a validator namespace:
// "RateRequest.packages[0].weight" becomes "packages[0].weight".
func fieldPath(namespace string) string {
	if i := strings.IndexByte(namespace, '.'); i >= 0 {
		return namespace[i+1:]
	}
	return namespace
}

func issueMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "len":
		return "must be exactly " + fe.Param() + " characters"
	case "gt":
		return "must be greater than " + fe.Param()
	case "min":
		return "must contain at least " + fe.Param() + " item(s)"
	case "oneof":
		return "must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	default:
		return "is invalid"
	}
}
