package otlp

import (
	commonpb "go.opentelemetry.io/proto/otlp/common/v1"

	"github.com/ollystack/otell/internal/model"
)

// convertAttrs converts OTLP KeyValue pairs into the domain's tagged-variant
// Attrs map. Nested maps (AnyValue_KvlistValue) are folded to their JSON
// string form, matching the "nested maps are JSON-encoded in the string
// form" rule.
func convertAttrs(kvs []*commonpb.KeyValue) model.Attrs {
	attrs := make(model.Attrs, len(kvs))
	for _, kv := range kvs {
		if kv == nil || kv.Value == nil {
			continue
		}
		attrs[kv.Key] = convertAnyValue(kv.Value)
	}
	return attrs
}

func convertAnyValue(v *commonpb.AnyValue) model.Value {
	switch val := v.Value.(type) {
	case *commonpb.AnyValue_StringValue:
		return model.StringValue(val.StringValue)
	case *commonpb.AnyValue_BoolValue:
		return model.BoolValue(val.BoolValue)
	case *commonpb.AnyValue_IntValue:
		return model.IntValue(val.IntValue)
	case *commonpb.AnyValue_DoubleValue:
		return model.DoubleValue(val.DoubleValue)
	case *commonpb.AnyValue_ArrayValue:
		if val.ArrayValue == nil {
			return model.ListValue(nil)
		}
		vals := make([]model.Value, len(val.ArrayValue.Values))
		for i, e := range val.ArrayValue.Values {
			vals[i] = convertAnyValue(e)
		}
		return model.ListValue(vals)
	case *commonpb.AnyValue_KvlistValue:
		if val.KvlistValue == nil {
			return model.StringValue("{}")
		}
		return model.StringValue(convertAttrs(val.KvlistValue.Values).JSON())
	case *commonpb.AnyValue_BytesValue:
		return model.StringValue(string(val.BytesValue))
	default:
		return model.StringValue("")
	}
}

// extractServiceName pulls service.name out of resource attributes, per the
// "if present it becomes service, otherwise null" rule.
func extractServiceName(attrs model.Attrs) *string {
	if v, ok := attrs["service.name"]; ok {
		s := v.Text()
		return &s
	}
	return nil
}

// mergeResourceAndScope merges resource attrs directly and scope attrs with
// a "scope." key prefix into dst.
func mergeResourceAndScope(dst model.Attrs, resourceAttrs model.Attrs, scopeAttrs []*commonpb.KeyValue) {
	dst.Merge(resourceAttrs, "")
	dst.Merge(convertAttrs(scopeAttrs), "scope.")
}
