package resp

import (
	"bytes"
	"testing"
)

func TestAppend(t *testing.T) {
	tests := []struct {
		name     string
		value    Value
		expected string
	}{
		{"simple string", OKValue(), "+OK\r\n"},
		{"error", ErrorValue("ERR boom"), "-ERR boom\r\n"},
		{"integer", IntegerValue(-12), ":-12\r\n"},
		{"bulk string", BulkStringValue("hello"), "$5\r\nhello\r\n"},
		{"empty bulk string", BulkStringValue(""), "$0\r\n\r\n"},
		{"null bulk string", NullBulkStringValue(), "$-1\r\n"},
		{"empty array", ArrayValue(), "*0\r\n"},
		{"null array", Value{Type: Array, Null: true}, "*-1\r\n"},
		{
			"nested array",
			ArrayValue(IntegerValue(1), ArrayValue(BulkStringValue("a"))),
			"*2\r\n:1\r\n*1\r\n$1\r\na\r\n",
		},
		{"unknown type", Value{Type: 'x'}, "-ERR invalid reply type\r\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := string(Append(nil, tt.value))
			if got != tt.expected {
				t.Errorf("Append() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestWrite(t *testing.T) {
	var buf bytes.Buffer

	if err := Write(&buf, Command("SET", "k", "v")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	want := "*3\r\n$3\r\nSET\r\n$1\r\nk\r\n$1\r\nv\r\n"
	if buf.String() != want {
		t.Errorf("Write() = %q, want %q", buf.String(), want)
	}
}

func TestAppendDecodeBinary(t *testing.T) {
	in := BulkStringValue("a\r\nb\x00c")

	out, n, err := Decode(Append(nil, in))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if n != len(Append(nil, in)) || out.Str != in.Str {
		t.Errorf("Decode(Append()) = %+v (%d bytes)", out, n)
	}
}
