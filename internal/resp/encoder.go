package resp

import (
	"io"
	"strconv"

	"github.com/valyala/bytebufferpool"
)

var crlf = []byte("\r\n")

// Append writes the wire form of v to dst. Values with an unknown type are
// sent as an error reply so the peer never sees a malformed frame.
func Append(dst []byte, v Value) []byte {
	switch v.Type {
	case SimpleString, Error:
		dst = append(dst, byte(v.Type))
		dst = append(dst, v.Str...)
		return append(dst, crlf...)

	case Integer:
		dst = append(dst, ':')
		dst = strconv.AppendInt(dst, v.Int, 10)
		return append(dst, crlf...)

	case BulkString:
		if v.Null {
			return append(dst, "$-1\r\n"...)
		}
		dst = append(dst, '$')
		dst = strconv.AppendInt(dst, int64(len(v.Str)), 10)
		dst = append(dst, crlf...)
		dst = append(dst, v.Str...)
		return append(dst, crlf...)

	case Array:
		if v.Null {
			return append(dst, "*-1\r\n"...)
		}
		dst = append(dst, '*')
		dst = strconv.AppendInt(dst, int64(len(v.Array)), 10)
		dst = append(dst, crlf...)
		for _, elem := range v.Array {
			dst = Append(dst, elem)
		}
		return dst

	default:
		return append(dst, "-ERR invalid reply type\r\n"...)
	}
}

// Write encodes v into a pooled buffer and writes it to w in one call.
func Write(w io.Writer, v Value) error {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	buf.B = Append(buf.B, v)
	_, err := w.Write(buf.B)
	return err
}

// Command builds the array-of-bulk-strings form a client sends.
func Command(name string, args ...string) Value {
	values := make([]Value, 0, len(args)+1)
	values = append(values, BulkStringValue(name))
	for _, arg := range args {
		values = append(values, BulkStringValue(arg))
	}
	return ArrayValue(values...)
}

func SimpleStringValue(str string) Value {
	return Value{Type: SimpleString, Str: str}
}

func ErrorValue(str string) Value {
	return Value{Type: Error, Str: str}
}

func IntegerValue(num int64) Value {
	return Value{Type: Integer, Int: num}
}

func BulkStringValue(str string) Value {
	return Value{Type: BulkString, Str: str}
}

func NullBulkStringValue() Value {
	return Value{Type: BulkString, Null: true}
}

func ArrayValue(values ...Value) Value {
	return Value{Type: Array, Array: values}
}

func OKValue() Value {
	return SimpleStringValue("OK")
}

func PongValue() Value {
	return SimpleStringValue("PONG")
}
