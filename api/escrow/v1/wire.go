package escrowv1

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"google.golang.org/protobuf/types/known/structpb"
)

// Messages travel as google.protobuf.Struct. 64-bit integers are encoded as decimal
// strings because number_value is a double; readers also accept integral numbers up
// to 2^53.

const maxExactFloat = 1 << 53

// Message is implemented by every EscrowService request and response.
type Message interface {
	ToStruct() *structpb.Struct
	FromStruct(s *structpb.Struct) error
}

func int64Value(v int64) *structpb.Value {
	return structpb.NewStringValue(strconv.FormatInt(v, 10))
}

func timeValue(t time.Time) *structpb.Value {
	return structpb.NewStringValue(t.UTC().Format(time.RFC3339Nano))
}

func listValue[T interface{ ToStruct() *structpb.Struct }](items []T) *structpb.Value {
	values := make([]*structpb.Value, 0, len(items))
	for _, item := range items {
		values = append(values, structpb.NewStructValue(item.ToStruct()))
	}
	return structpb.NewListValue(&structpb.ListValue{Values: values})
}

// fieldReader decodes Struct fields and keeps the first error.
type fieldReader struct {
	fields map[string]*structpb.Value
	err    error
}

func newFieldReader(s *structpb.Struct) *fieldReader {
	return &fieldReader{fields: s.GetFields()}
}

func (r *fieldReader) fail(key, want string) {
	if r.err == nil {
		r.err = fmt.Errorf("field %q: expected %s", key, want)
	}
}

// lookup returns nil for absent and null fields.
func (r *fieldReader) lookup(key string) *structpb.Value {
	v, ok := r.fields[key]
	if !ok || v == nil {
		return nil
	}
	if _, isNull := v.GetKind().(*structpb.Value_NullValue); isNull {
		return nil
	}
	return v
}

func (r *fieldReader) str(key string) string {
	v := r.lookup(key)
	if v == nil {
		return ""
	}
	s, ok := v.GetKind().(*structpb.Value_StringValue)
	if !ok {
		r.fail(key, "string")
		return ""
	}
	return s.StringValue
}

func (r *fieldReader) i64(key string) int64 {
	v := r.lookup(key)
	if v == nil {
		return 0
	}
	switch k := v.GetKind().(type) {
	case *structpb.Value_StringValue:
		n, err := strconv.ParseInt(k.StringValue, 10, 64)
		if err != nil {
			r.fail(key, "integer")
			return 0
		}
		return n
	case *structpb.Value_NumberValue:
		f := k.NumberValue
		if f != math.Trunc(f) || math.Abs(f) > maxExactFloat {
			r.fail(key, "integer")
			return 0
		}
		return int64(f)
	}
	r.fail(key, "integer")
	return 0
}

func (r *fieldReader) i32(key string) int32 {
	n := r.i64(key)
	if n < math.MinInt32 || n > math.MaxInt32 {
		r.fail(key, "32-bit integer")
		return 0
	}
	return int32(n)
}

func (r *fieldReader) u32(key string) uint32 {
	n := r.i64(key)
	if n < 0 || n > math.MaxUint32 {
		r.fail(key, "unsigned 32-bit integer")
		return 0
	}
	return uint32(n)
}

func (r *fieldReader) flag(key string) bool {
	v := r.lookup(key)
	if v == nil {
		return false
	}
	b, ok := v.GetKind().(*structpb.Value_BoolValue)
	if !ok {
		r.fail(key, "bool")
		return false
	}
	return b.BoolValue
}

func (r *fieldReader) optFlag(key string) *bool {
	if r.lookup(key) == nil {
		return nil
	}
	b := r.flag(key)
	return &b
}

func (r *fieldReader) when(key string) time.Time {
	s := r.str(key)
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		r.fail(key, "RFC 3339 timestamp")
		return time.Time{}
	}
	return t
}

func (r *fieldReader) optWhen(key string) *time.Time {
	if r.lookup(key) == nil {
		return nil
	}
	t := r.when(key)
	return &t
}

func (r *fieldReader) object(key string) *structpb.Struct {
	v := r.lookup(key)
	if v == nil {
		return nil
	}
	s, ok := v.GetKind().(*structpb.Value_StructValue)
	if !ok {
		r.fail(key, "object")
		return nil
	}
	return s.StructValue
}

func (r *fieldReader) objects(key string) []*structpb.Struct {
	v := r.lookup(key)
	if v == nil {
		return nil
	}
	l, ok := v.GetKind().(*structpb.Value_ListValue)
	if !ok {
		r.fail(key, "list")
		return nil
	}
	out := make([]*structpb.Struct, 0, len(l.ListValue.GetValues()))
	for _, item := range l.ListValue.GetValues() {
		s, ok := item.GetKind().(*structpb.Value_StructValue)
		if !ok {
			r.fail(key, "list of objects")
			return nil
		}
		out = append(out, s.StructValue)
	}
	return out
}

func (r *fieldReader) strMap(key string) map[string]string {
	obj := r.object(key)
	if obj == nil {
		return nil
	}
	inner := newFieldReader(obj)
	out := make(map[string]string, len(obj.GetFields()))
	for k := range obj.GetFields() {
		out[k] = inner.str(k)
	}
	if inner.err != nil && r.err == nil {
		r.err = fmt.Errorf("field %q: %w", key, inner.err)
	}
	return out
}

// nested decodes a child message and reports its error under key.
func (r *fieldReader) nested(key string, s *structpb.Struct, m Message) {
	if err := m.FromStruct(s); err != nil && r.err == nil {
		r.err = fmt.Errorf("field %q: %w", key, err)
	}
}

func stringMapValue(m map[string]string) *structpb.Value {
	fields := make(map[string]*structpb.Value, len(m))
	for k, v := range m {
		fields[k] = structpb.NewStringValue(v)
	}
	return structpb.NewStructValue(&structpb.Struct{Fields: fields})
}
