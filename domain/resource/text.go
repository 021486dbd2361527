package resource

import (
	"fmt"
	"strings"
)

// unknownValue substitutes for fields absent from a payload.
const unknownValue = "Unknown"

// describeFields lists the rendered labels and the payload keys they read,
// in output order. The text fed to the embedding model must be stable:
// changing labels or order changes every vector.
var describeFields = []struct {
	label string
	key   string
}{
	{"Instance Type", "instance_type"},
	{"State", "state"},
	{"Environment", "environment"},
	{"Team", "team"},
	{"Region", "region"},
}

// DescribeText renders a record's payload as the fixed-label description
// used as embedding input. Missing fields render as "Unknown" and the
// public-reachability flag as "Yes"/"No". A payload that is not a JSON
// object falls back to its raw text so the step never fails.
func DescribeText(r Record) string {
	fields, err := r.Payload().Fields()
	if err != nil {
		return r.Payload().String()
	}

	var b strings.Builder
	b.WriteString("EC2 Instance Configuration:")
	for _, f := range describeFields {
		b.WriteString("\n")
		b.WriteString(f.label)
		b.WriteString(": ")
		b.WriteString(fieldValue(fields, f.key))
	}
	b.WriteString("\nPublic IP: ")
	if truthy(fields["has_public_ip"]) {
		b.WriteString("Yes")
	} else {
		b.WriteString("No")
	}
	return b.String()
}

// fieldValue renders a payload field as text, substituting "Unknown" for
// absent or null values.
func fieldValue(fields map[string]any, key string) string {
	v, ok := fields[key]
	if !ok || v == nil {
		return unknownValue
	}
	switch t := v.(type) {
	case string:
		return t
	case float64:
		// JSON numbers decode as float64; render integers without a decimal point.
		if t == float64(int64(t)) {
			return fmt.Sprintf("%d", int64(t))
		}
		return fmt.Sprintf("%v", t)
	default:
		return fmt.Sprintf("%v", t)
	}
}

// truthy interprets a decoded JSON value loosely: false, 0, "", null and
// absent are all false.
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		return t != ""
	default:
		return true
	}
}
