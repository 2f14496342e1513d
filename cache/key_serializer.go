package cache

import (
	"bytes"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/vmihailenco/msgpack/v5"
)

// KeySeparator defines the delimiter used between cache key segments.
const KeySeparator = "::"

// defaultKeySerializer implements KeySerializer using reflection-based serialization.
// It handles function pointers using %p formatting, recursive slices, and falls back to
// msgpack for opaque types while ensuring deterministic key generation across runs.
type defaultKeySerializer struct {
	maxKeyLength int
}

// SerializerOption configures the default key serializer.
type SerializerOption func(*defaultKeySerializer)

// WithMaxKeyLength compacts keys longer than n bytes to method::xxh:<hash>.
// Zero disables compaction.
func WithMaxKeyLength(n int) SerializerOption {
	return func(s *defaultKeySerializer) {
		s.maxKeyLength = n
	}
}

// NewDefaultKeySerializer creates a new instance of the default key serializer.
func NewDefaultKeySerializer(opts ...SerializerOption) KeySerializer {
	s := &defaultKeySerializer{}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewStatementKey fingerprints one statement invocation: its id, row bounds,
// SQL text, parameter object and the environment it runs in.
func NewStatementKey(serializer KeySerializer, statementID string, offset, limit int, sql string, params any, environment string) Key {
	if serializer == nil {
		serializer = NewDefaultKeySerializer()
	}
	return serializer.SerializeKey(statementID, offset, limit, sql, params, environment)
}

// SerializeKey builds a cache key from method name and args using reflection.
// It produces stable keys across runs by handling various Go types deterministically.
func (s *defaultKeySerializer) SerializeKey(method string, args ...any) Key {
	if len(args) == 0 {
		return Key(method)
	}

	parts := make([]string, 0, len(args)+1)
	parts = append(parts, method)
	for _, arg := range args {
		parts = append(parts, s.serializeValue(arg))
	}

	key := strings.Join(parts, KeySeparator)
	if s.maxKeyLength > 0 && len(key) > s.maxKeyLength {
		return Key(method + KeySeparator + "xxh:" + strconv.FormatUint(xxhash.Sum64String(key), 16))
	}
	return Key(key)
}

// serializeValue encodes one argument. Composite values are walked
// recursively; anything else falls back to msgpack.
func (s *defaultKeySerializer) serializeValue(v any) string {
	if v == nil {
		return "nil"
	}

	rv := reflect.ValueOf(v)
	rt := rv.Type()

	switch rt.Kind() {
	case reflect.Func:
		return fmt.Sprintf("func:%p", v)
	case reflect.Chan:
		return fmt.Sprintf("chan:%p", v)
	case reflect.Ptr, reflect.Interface:
		if rv.IsNil() {
			return "nil"
		}
		return s.serializeValue(rv.Elem().Interface())
	case reflect.Slice:
		if rv.IsNil() {
			return "slice:nil"
		}
		return s.serializeSequence("slice", rv)
	case reflect.Array:
		return s.serializeSequence("array", rv)
	case reflect.Map:
		if rv.IsNil() {
			return "map:nil"
		}
		return s.serializeMap(rv)
	case reflect.Struct:
		return s.serializeStruct(rv, rt)
	}

	if s.isBasicType(rt.Kind()) {
		return fmt.Sprintf("%v", v)
	}
	return s.msgpackFallback(v)
}

func (s *defaultKeySerializer) serializeSequence(label string, rv reflect.Value) string {
	parts := make([]string, rv.Len())
	for i := range parts {
		parts[i] = s.serializeValue(rv.Index(i).Interface())
	}
	return fmt.Sprintf("%s[%d]:{%s}", label, len(parts), strings.Join(parts, ","))
}

// serializeMap orders entries by their encoded key so iteration order never
// leaks into the cache key.
func (s *defaultKeySerializer) serializeMap(rv reflect.Value) string {
	type entry struct{ key, value string }

	entries := make([]entry, 0, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		entries = append(entries, entry{
			key:   s.serializeValue(iter.Key().Interface()),
			value: s.serializeValue(iter.Value().Interface()),
		})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].key < entries[j].key })

	pairs := make([]string, len(entries))
	for i, e := range entries {
		pairs[i] = e.key + "=" + e.value
	}
	return fmt.Sprintf("map[%d]:{%s}", len(pairs), strings.Join(pairs, ","))
}

// serializeStruct encodes exported fields by name. Structs without exported
// fields (time.Time and friends) are encoded opaquely.
func (s *defaultKeySerializer) serializeStruct(rv reflect.Value, rt reflect.Type) string {
	if !hasExportedFields(rt) {
		return s.msgpackFallback(rv.Interface())
	}

	parts := make([]string, 0, rt.NumField())
	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		if !field.IsExported() {
			continue
		}
		parts = append(parts, field.Name+":"+s.serializeValue(rv.Field(i).Interface()))
	}
	return fmt.Sprintf("struct:{%s}", strings.Join(parts, ","))
}

// isBasicType checks if a kind represents a basic Go type
func (s *defaultKeySerializer) isBasicType(kind reflect.Kind) bool {
	switch kind {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64,
		reflect.Complex64, reflect.Complex128,
		reflect.String:
		return true
	default:
		return false
	}
}

func hasExportedFields(rt reflect.Type) bool {
	for i := 0; i < rt.NumField(); i++ {
		if rt.Field(i).IsExported() {
			return true
		}
	}
	return false
}

// msgpackFallback encodes opaque values with sorted map keys as a last resort
func (s *defaultKeySerializer) msgpackFallback(v any) string {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetSortMapKeys(true)
	if err := enc.Encode(v); err != nil {
		// If encoding fails, use type info only
		return fmt.Sprintf("fallback:%s", reflect.TypeOf(v).String())
	}
	return fmt.Sprintf("msgpack:%x", buf.Bytes())
}
