package telemetry

import (
	"reflect"
	"testing"

	commonv1 "go.opentelemetry.io/proto/otlp/common/v1"
)

func strVal(s string) *commonv1.AnyValue {
	return &commonv1.AnyValue{Value: &commonv1.AnyValue_StringValue{StringValue: s}}
}

func intVal(i int64) *commonv1.AnyValue {
	return &commonv1.AnyValue{Value: &commonv1.AnyValue_IntValue{IntValue: i}}
}

func TestDecodeAnyValue(t *testing.T) {
	tests := []struct {
		name string
		in   *commonv1.AnyValue
		want any
	}{
		{"nil", nil, nil},
		{"string", strVal("hello"), "hello"},
		{"int", intVal(42), int64(42)},
		{"double", &commonv1.AnyValue{Value: &commonv1.AnyValue_DoubleValue{DoubleValue: 3.5}}, 3.5},
		{"bool", &commonv1.AnyValue{Value: &commonv1.AnyValue_BoolValue{BoolValue: true}}, true},
		{"bytes", &commonv1.AnyValue{Value: &commonv1.AnyValue_BytesValue{BytesValue: []byte{0xde, 0xad}}}, "dead"},
		{
			"array",
			&commonv1.AnyValue{Value: &commonv1.AnyValue_ArrayValue{ArrayValue: &commonv1.ArrayValue{
				Values: []*commonv1.AnyValue{strVal("a"), intVal(1)},
			}}},
			[]any{"a", int64(1)},
		},
		{
			"kvlist",
			&commonv1.AnyValue{Value: &commonv1.AnyValue_KvlistValue{KvlistValue: &commonv1.KeyValueList{
				Values: []*commonv1.KeyValue{{Key: "inner", Value: strVal("v")}},
			}}},
			map[string]any{"inner": "v"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DecodeAnyValue(tt.in)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("DecodeAnyValue() = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestDecodeAttributes(t *testing.T) {
	attrs := []*commonv1.KeyValue{
		{Key: "session.id", Value: strVal("S1")},
		{Key: "count", Value: intVal(5)},
		{Key: "empty", Value: nil},
		nil,
	}
	got := DecodeAttributes(attrs)
	want := map[string]any{"session.id": "S1", "count": int64(5)}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("DecodeAttributes() = %#v, want %#v", got, want)
	}
}

func TestAttrString(t *testing.T) {
	attrs := map[string]any{"s": "text", "n": int64(1)}
	if got := AttrString(attrs, "s"); got != "text" {
		t.Errorf("AttrString(s) = %q", got)
	}
	if got := AttrString(attrs, "n"); got != "" {
		t.Errorf("AttrString on non-string = %q, want empty", got)
	}
	if got := AttrString(attrs, "missing"); got != "" {
		t.Errorf("AttrString on missing key = %q, want empty", got)
	}
}
