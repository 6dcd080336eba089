package domain

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/duet-robotics/drc-backend/internal/media"
	"github.com/duet-robotics/drc-backend/internal/sanitize"
)

var validate = validator.New()

// Build creates a new entity from client input. Fields are stored in their
// JSON shape (numbers as float64, lists as []any) so every backend returns
// the same values it was given.
func (s *Schema) Build(input map[string]any, env Env) (*Entity, error) {
	e := &Entity{IsActive: true, Fields: map[string]any{}}
	errs := FieldErrors{}

	s.applyBase(e, input, errs)
	for _, f := range s.Fields {
		raw, ok := input[f.Name]
		if !ok || raw == nil {
			if f.Default != nil {
				e.Fields[f.Name] = deepCopy(f.Default)
			}
			continue
		}
		if v, ok := coerce(f, raw, f.Name, errs); ok {
			e.Fields[f.Name] = v
		}
	}

	s.finish(e, env, errs)
	if err := errs.Err(); err != nil {
		return nil, err
	}
	return e, nil
}

// Merge applies a partial update on a copy of cur. A null value clears the
// field; object fields are replaced as a whole.
func (s *Schema) Merge(cur *Entity, patch map[string]any, env Env) (*Entity, error) {
	e := cur.Clone()
	errs := FieldErrors{}

	s.applyBase(e, patch, errs)
	for _, f := range s.Fields {
		raw, ok := patch[f.Name]
		if !ok {
			continue
		}
		if raw == nil {
			delete(e.Fields, f.Name)
			continue
		}
		if v, ok := coerce(f, raw, f.Name, errs); ok {
			e.Fields[f.Name] = v
		}
	}

	s.finish(e, env, errs)
	if err := errs.Err(); err != nil {
		return nil, err
	}
	return e, nil
}

func (s *Schema) applyBase(e *Entity, in map[string]any, errs FieldErrors) {
	if v, ok := in["order"]; ok && v != nil {
		n, ok := toInt(v)
		if !ok || n < 0 {
			errs.Add("order", "must be a non-negative integer")
		} else {
			e.Order = n
		}
	}

	if v, ok := in["isActive"]; ok && v != nil {
		b, ok := toBool(v)
		if !ok {
			errs.Add("isActive", "must be a boolean")
		} else {
			e.IsActive = b
		}
	}

	if s.ImageKey == "" {
		return
	}
	if raw, ok := in[s.ImageKey]; ok {
		img, msg := parseImage(raw)
		if msg != "" {
			errs.Add(s.ImageKey, msg)
			return
		}
		e.Image = img
	}
}

func (s *Schema) finish(e *Entity, env Env, errs FieldErrors) {
	if env.Now.IsZero() {
		env.Now = time.Now().UTC()
	}
	if s.Normalize != nil {
		s.Normalize(e.Fields, env, errs)
	}
	validateFields(s.Fields, e.Fields, "", errs)

	if s.ImageRequired && (e.Image == nil || e.Image.URL == "") {
		errs.Add(s.ImageKey, "is required")
	}
}

func parseImage(raw any) (*media.Image, string) {
	switch t := raw.(type) {
	case nil:
		return nil, ""
	case media.Image:
		return parseImage(&t)
	case *media.Image:
		if t == nil || (t.URL == "" && t.PublicID == "") {
			return nil, ""
		}
		if t.URL == "" {
			return nil, "url is required"
		}
		img := *t
		return &img, ""
	case string:
		if strings.TrimSpace(t) == "" {
			return nil, ""
		}
		return &media.Image{URL: strings.TrimSpace(t)}, ""
	case map[string]any:
		img := media.Image{}
		for key, dst := range map[string]*string{"url": &img.URL, "alt": &img.Alt, "publicId": &img.PublicID} {
			if v, ok := t[key]; ok && v != nil {
				str, ok := v.(string)
				if !ok {
					return nil, key + " must be a string"
				}
				*dst = strings.TrimSpace(str)
			}
		}
		return parseImage(&img)
	default:
		return nil, "must be an object with url, alt and publicId"
	}
}

func coerce(f Field, raw any, path string, errs FieldErrors) (any, bool) {
	switch f.Kind {
	case KindString, KindHTML:
		str, ok := raw.(string)
		if !ok {
			if n, isNum := toFloat(raw); isNum {
				str = strconv.FormatFloat(n, 'f', -1, 64)
			} else {
				errs.Add(path, "must be a string")
				return nil, false
			}
		}
		str = applyCase(strings.TrimSpace(str), f.Case)
		if f.Kind == KindHTML {
			str = sanitize.HTML(str)
		}
		return str, true

	case KindInt:
		n, ok := toInt(raw)
		if !ok {
			errs.Add(path, "must be an integer")
			return nil, false
		}
		return float64(n), true

	case KindNumber:
		n, ok := toFloat(raw)
		if !ok {
			errs.Add(path, "must be a number")
			return nil, false
		}
		return n, true

	case KindBool:
		b, ok := toBool(raw)
		if !ok {
			errs.Add(path, "must be a boolean")
			return nil, false
		}
		return b, true

	case KindStringList:
		var items []string
		switch t := raw.(type) {
		case string:
			items = strings.Split(t, ",")
		case []string:
			items = t
		case []any:
			for _, it := range t {
				str, ok := it.(string)
				if !ok {
					errs.Add(path, "must be a list of strings")
					return nil, false
				}
				items = append(items, str)
			}
		default:
			errs.Add(path, "must be a list of strings")
			return nil, false
		}
		out := make([]any, 0, len(items))
		for _, it := range items {
			if it = applyCase(strings.TrimSpace(it), f.Case); it != "" {
				out = append(out, it)
			}
		}
		return out, true

	case KindObject:
		m, ok := raw.(map[string]any)
		if !ok {
			errs.Add(path, "must be an object")
			return nil, false
		}
		return coerceObject(f, m, path, errs), true

	case KindObjectList:
		list, ok := raw.([]any)
		if !ok {
			errs.Add(path, "must be a list")
			return nil, false
		}
		out := make([]any, 0, len(list))
		for i, it := range list {
			m, ok := it.(map[string]any)
			if !ok {
				errs.Add(fmt.Sprintf("%s[%d]", path, i), "must be an object")
				continue
			}
			out = append(out, coerceObject(f, m, fmt.Sprintf("%s[%d]", path, i), errs))
		}
		return out, true

	case KindTime:
		switch t := raw.(type) {
		case time.Time:
			return t.UTC().Format(time.RFC3339), true
		case string:
			if strings.TrimSpace(t) == "" {
				return nil, false
			}
			for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02"} {
				if ts, err := time.Parse(layout, strings.TrimSpace(t)); err == nil {
					return ts.UTC().Format(time.RFC3339), true
				}
			}
		}
		errs.Add(path, "must be a date")
		return nil, false
	}

	return deepCopy(raw), true
}

func coerceObject(f Field, m map[string]any, path string, errs FieldErrors) map[string]any {
	if len(f.Fields) == 0 {
		out, _ := deepCopy(m).(map[string]any)
		return out
	}
	out := make(map[string]any, len(f.Fields))
	for _, sub := range f.Fields {
		raw, ok := m[sub.Name]
		if !ok || raw == nil {
			if sub.Default != nil {
				out[sub.Name] = deepCopy(sub.Default)
			}
			continue
		}
		if v, ok := coerce(sub, raw, path+"."+sub.Name, errs); ok {
			out[sub.Name] = v
		}
	}
	return out
}

func validateFields(fields []Field, values map[string]any, prefix string, errs FieldErrors) {
	for _, f := range fields {
		path := f.Name
		if prefix != "" {
			path = prefix + "." + f.Name
		}

		v, ok := values[f.Name]
		if !ok || isEmpty(v) {
			if f.Required {
				errs.Add(path, "is required")
			}
			continue
		}

		if len(f.Enum) > 0 {
			str, _ := v.(string)
			if !slices.Contains(f.Enum, str) {
				errs.Add(path, "must be one of "+strings.Join(f.Enum, ", "))
				continue
			}
		}

		if f.Rules != "" {
			if err := validate.Var(v, f.Rules); err != nil {
				errs.Add(path, ruleMessage(err))
				continue
			}
		}

		switch f.Kind {
		case KindObject:
			if m, ok := v.(map[string]any); ok {
				validateFields(f.Fields, m, path, errs)
			}
		case KindObjectList:
			list, _ := v.([]any)
			for i, it := range list {
				if m, ok := it.(map[string]any); ok {
					validateFields(f.Fields, m, fmt.Sprintf("%s[%d]", path, i), errs)
				}
			}
		}
	}
}

func ruleMessage(err error) string {
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) || len(ves) == 0 {
		return "is invalid"
	}
	fe := ves[0]

	unit := ""
	switch fe.Kind() {
	case reflect.String:
		unit = " characters"
	case reflect.Slice:
		unit = " items"
	}

	switch fe.Tag() {
	case "max", "lte":
		return "must be at most " + fe.Param() + unit
	case "min", "gte":
		return "must be at least " + fe.Param() + unit
	case "email":
		return "must be a valid email address"
	case "url", "http_url":
		return "must be a valid URL"
	case "hexcolor":
		return "must be a hex color"
	default:
		return "failed " + fe.Tag() + " validation"
	}
}

func isEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	case []any:
		return len(t) == 0
	case map[string]any:
		return len(t) == 0
	}
	return false
}

func applyCase(s string, c Case) string {
	switch c {
	case CaseLower:
		return strings.ToLower(s)
	case CaseUpper:
		return strings.ToUpper(s)
	}
	return s
}

func toInt(v any) (int, bool) {
	switch t := v.(type) {
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(t))
		return n, err == nil
	}
	f, ok := toFloat(v)
	if !ok || f != math.Trunc(f) {
		return 0, false
	}
	return int(f), true
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int32:
		return float64(t), true
	case int64:
		return float64(t), true
	}
	return 0, false
}

func toBool(v any) (bool, bool) {
	switch t := v.(type) {
	case bool:
		return t, true
	case string:
		b, err := strconv.ParseBool(t)
		return b, err == nil
	}
	return false, false
}

// Int reads an integral field stored in JSON shape.
func Int(v any) (int, bool) { return toInt(v) }
