package telemetry

import (
	"encoding/hex"

	commonv1 "go.opentelemetry.io/proto/otlp/common/v1"
)

// DecodeAnyValue converts an OTLP AnyValue union into a native Go value.
// Arrays and key-value lists are decoded recursively; bytes are hex-encoded.
// Returns nil for empty or unrecognized values.
func DecodeAnyValue(v *commonv1.AnyValue) any {
	if v == nil {
		return nil
	}
	switch val := v.GetValue().(type) {
	case *commonv1.AnyValue_StringValue:
		return val.StringValue
	case *commonv1.AnyValue_IntValue:
		return val.IntValue
	case *commonv1.AnyValue_DoubleValue:
		return val.DoubleValue
	case *commonv1.AnyValue_BoolValue:
		return val.BoolValue
	case *commonv1.AnyValue_ArrayValue:
		if val.ArrayValue == nil {
			return nil
		}
		out := make([]any, 0, len(val.ArrayValue.GetValues()))
		for _, item := range val.ArrayValue.GetValues() {
			out = append(out, DecodeAnyValue(item))
		}
		return out
	case *commonv1.AnyValue_KvlistValue:
		if val.KvlistValue == nil {
			return nil
		}
		return DecodeAttributes(val.KvlistValue.GetValues())
	case *commonv1.AnyValue_BytesValue:
		return hex.EncodeToString(val.BytesValue)
	default:
		return nil
	}
}

// DecodeAttributes converts an OTLP KeyValue list into a plain map.
// Entries whose value decodes to nil are dropped.
func DecodeAttributes(attrs []*commonv1.KeyValue) map[string]any {
	out := make(map[string]any, len(attrs))
	for _, kv := range attrs {
		if kv == nil {
			continue
		}
		if v := DecodeAnyValue(kv.GetValue()); v != nil {
			out[kv.GetKey()] = v
		}
	}
	return out
}

// AttrString returns the string value for key, or "" when absent or not a string.
func AttrString(attrs map[string]any, key string) string {
	if s, ok := attrs[key].(string); ok {
		return s
	}
	return ""
}
