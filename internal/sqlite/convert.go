package sqlite

import (
	"strconv"
	"strings"

	"github.com/mesh-intelligence/crmstore/pkg/types"
)

// columnValue converts a CRM string value into the value bound to the
// field's column. Empty numeric values bind NULL. Values that do not parse
// as the field type, or would lose precision, are stored as text.
func columnValue(t types.FieldType, value string) any {
	if !t.IsNumeric() {
		return value
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}

	switch t {
	case types.FieldTypeBoolean:
		switch strings.ToLower(value) {
		case "true", "yes", "x":
			return int64(1)
		case "false", "no":
			return int64(0)
		}
		if n, err := strconv.ParseInt(value, 10, 64); err == nil {
			return boolToInt64(n != 0)
		}
	case types.FieldTypeFloat:
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	default:
		if n, err := strconv.ParseInt(value, 10, 64); err == nil {
			return n
		}
		if f, err := strconv.ParseFloat(value, 64); err == nil && f == float64(int64(f)) {
			return int64(f)
		}
	}
	return value
}

// stringValue converts a scanned column value back into its CRM string form.
func stringValue(t types.FieldType, v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case int64:
		if t == types.FieldTypeBoolean {
			return strconv.FormatBool(x != 0)
		}
		return strconv.FormatInt(x, 10)
	case float64:
		if t == types.FieldTypeBoolean {
			return strconv.FormatBool(x != 0)
		}
		if t != types.FieldTypeFloat && x == float64(int64(x)) {
			return strconv.FormatInt(int64(x), 10)
		}
		return strconv.FormatFloat(x, 'f', -1, 64)
	case []byte:
		return string(x)
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	default:
		return ""
	}
}

func boolToInt64(value bool) int64 {
	if value {
		return 1
	}
	return 0
}

// participantValues splits a participants field value into its entries.
func participantValues(value string) []string {
	var out []string
	for _, p := range strings.Split(value, ";") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
