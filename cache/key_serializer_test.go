package cache

import (
	"strings"
	"testing"
	"time"
)

func joinWithSeparator(parts ...string) string {
	return strings.Join(parts, KeySeparator)
}

// statementParams mirrors a typical parameter object handed to a mapped statement.
type statementParams struct {
	ID     int
	Status string
	secret string
}

func TestDefaultKeySerializer_Encoding(t *testing.T) {
	serializer := NewDefaultKeySerializer()
	limit := 25

	tests := []struct {
		name string
		args []any
		want string
	}{
		{name: "statement without params", args: nil, want: "users.selectAll"},
		{name: "scalar params", args: []any{42, "active", true, 0.5}, want: joinWithSeparator("users.selectAll", "42", "active", "true", "0.5")},
		{name: "separator-like text", args: []any{"a::b"}, want: joinWithSeparator("users.selectAll", "a::b")},
		{name: "nil param object", args: []any{nil}, want: joinWithSeparator("users.selectAll", "nil")},
		{name: "nil pointer", args: []any{(*int)(nil)}, want: joinWithSeparator("users.selectAll", "nil")},
		{name: "pointer is dereferenced", args: []any{&limit}, want: joinWithSeparator("users.selectAll", "25")},
		{name: "nil slice", args: []any{([]int)(nil)}, want: joinWithSeparator("users.selectAll", "slice:nil")},
		{name: "empty slice", args: []any{[]int{}}, want: joinWithSeparator("users.selectAll", "slice[0]:{}")},
		{name: "id list", args: []any{[]int{3, 1, 2}}, want: joinWithSeparator("users.selectAll", "slice[3]:{3,1,2}")},
		{name: "nested slices", args: []any{[][]string{{"a"}, {"b", "c"}}}, want: joinWithSeparator("users.selectAll", "slice[2]:{slice[1]:{a},slice[2]:{b,c}}")},
		{name: "array", args: []any{[2]string{"x", "y"}}, want: joinWithSeparator("users.selectAll", "array[2]:{x,y}")},
		{name: "nil map", args: []any{(map[string]any)(nil)}, want: joinWithSeparator("users.selectAll", "map:nil")},
		{name: "empty map", args: []any{map[string]any{}}, want: joinWithSeparator("users.selectAll", "map[0]:{}")},
		{name: "map keys are sorted", args: []any{map[string]any{"status": "active", "id": 7}}, want: joinWithSeparator("users.selectAll", "map[2]:{id=7,status=active}")},
		{name: "struct keeps exported fields", args: []any{statementParams{ID: 7, Status: "active", secret: "x"}}, want: joinWithSeparator("users.selectAll", "struct:{ID:7,Status:active}")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := serializer.SerializeKey("users.selectAll", tt.args...)
			if string(got) != tt.want {
				t.Errorf("SerializeKey() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDefaultKeySerializer_Functions(t *testing.T) {
	serializer := NewDefaultKeySerializer()
	filter := func() {}

	first := serializer.SerializeKey("users.selectFiltered", filter)
	if first != serializer.SerializeKey("users.selectFiltered", filter) {
		t.Errorf("the same function should produce the same key, got %v", first)
	}
	if !strings.HasPrefix(string(first), joinWithSeparator("users.selectFiltered", "func")+":") {
		t.Errorf("functions should be keyed by pointer, got %v", first)
	}
}

func TestDefaultKeySerializer_Stability(t *testing.T) {
	serializer := NewDefaultKeySerializer()

	// Test that the same arguments produce the same key across multiple calls
	args := []any{1, "hello", []int{1, 2, 3}, map[string]int{"a": 1, "b": 2}}

	key1 := serializer.SerializeKey("TestMethod", args...)
	key2 := serializer.SerializeKey("TestMethod", args...)

	if key1 != key2 {
		t.Errorf("Key serialization should be stable across runs: %v != %v", key1, key2)
	}
}

func TestDefaultKeySerializer_Channels(t *testing.T) {
	serializer := NewDefaultKeySerializer()

	key := serializer.SerializeKey("events.stream", make(chan int))
	if !strings.HasPrefix(string(key), joinWithSeparator("events.stream", "chan")+":") {
		t.Errorf("channels should be keyed by pointer, got %v", key)
	}
}

func TestDefaultKeySerializer_OpaqueStructs(t *testing.T) {
	serializer := NewDefaultKeySerializer()

	first := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	second := first.Add(time.Hour)

	key1 := serializer.SerializeKey("ListSince", first)
	key2 := serializer.SerializeKey("ListSince", second)

	if key1 == key2 {
		t.Errorf("distinct times must produce distinct keys, both were %v", key1)
	}
	if !strings.HasPrefix(string(key1), joinWithSeparator("ListSince", "msgpack")+":") {
		t.Errorf("expected msgpack encoding for opaque struct, got %v", key1)
	}
	if key1 != serializer.SerializeKey("ListSince", first) {
		t.Error("opaque struct encoding should be stable")
	}
}

func TestDefaultKeySerializer_MaxKeyLength(t *testing.T) {
	serializer := NewDefaultKeySerializer(WithMaxKeyLength(32))

	short := serializer.SerializeKey("Get", 1)
	if string(short) != joinWithSeparator("Get", "1") {
		t.Errorf("short keys should stay verbatim, got %v", short)
	}

	long := serializer.SerializeKey("List", strings.Repeat("x", 64))
	if !strings.HasPrefix(string(long), joinWithSeparator("List", "xxh")+":") {
		t.Errorf("long keys should be compacted, got %v", long)
	}
	if long != serializer.SerializeKey("List", strings.Repeat("x", 64)) {
		t.Error("compacted keys should be stable")
	}
	if long == serializer.SerializeKey("List", strings.Repeat("y", 64)) {
		t.Error("different long keys should hash differently")
	}
}

func TestNewStatementKey(t *testing.T) {
	params := map[string]any{"id": 7, "status": "active"}

	key := NewStatementKey(nil, "users.selectByID", 0, 10, "SELECT 1", params, "dev")
	want := joinWithSeparator("users.selectByID", "0", "10", "SELECT 1", "map[2]:{id=7,status=active}", "dev")
	if string(key) != want {
		t.Errorf("NewStatementKey() = %v, want %v", key, want)
	}

	if key == NewStatementKey(nil, "users.selectByID", 0, 10, "SELECT 1", params, "prod") {
		t.Error("environment must be part of the key")
	}
	if key == NewStatementKey(nil, "users.selectByID", 10, 10, "SELECT 1", params, "dev") {
		t.Error("row bounds must be part of the key")
	}
}

func BenchmarkDefaultKeySerializer(b *testing.B) {
	serializer := NewDefaultKeySerializer()
	args := []any{1, "benchmark", []int{1, 2, 3}, map[string]int{"test": 1}}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		serializer.SerializeKey("BenchmarkMethod", args...)
	}
}
