package resp

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
)

type Type byte

const (
	SimpleString Type = '+'
	Error        Type = '-'
	Integer      Type = ':'
	BulkString   Type = '$'
	Array        Type = '*'
)

const (
	MaxBulkLength   = 512 << 20
	MaxNestingDepth = 32
)

var (
	ErrInvalidType   = errors.New("invalid RESP type")
	ErrInvalidFormat = errors.New("invalid RESP format")
	ErrIncomplete    = errors.New("incomplete RESP value")
)

// incompleteError carries a lower bound on the buffer length that could
// hold the whole frame.
type incompleteError struct {
	need int
}

func (e *incompleteError) Error() string {
	return ErrIncomplete.Error()
}

func (e *incompleteError) Is(target error) bool {
	return target == ErrIncomplete
}

func short(need int) error {
	return &incompleteError{need: need}
}

// Needed returns the smallest buffer length worth decoding again after err
// reported an incomplete frame, or 0 for any other error.
func Needed(err error) int {
	var ie *incompleteError
	if errors.As(err, &ie) {
		return ie.need
	}
	return 0
}

type Value struct {
	Type  Type
	Str   string
	Int   int64
	Array []Value
	Null  bool
}

// Decode parses the first value in buf and returns it with the number of
// bytes it occupied. ErrIncomplete means buf holds a valid prefix only.
func Decode(buf []byte) (Value, int, error) {
	return decodeAt(buf, 0, 0)
}

func decodeAt(buf []byte, pos, depth int) (Value, int, error) {
	// The shortest value, an empty simple string, is three bytes.
	if pos >= len(buf) {
		return Value{}, 0, short(pos + 3)
	}

	typ := Type(buf[pos])
	line, next, err := readLine(buf, pos+1)
	if err != nil {
		return Value{}, 0, err
	}

	switch typ {
	case SimpleString, Error:
		return Value{Type: typ, Str: string(line)}, next, nil

	case Integer:
		num, err := strconv.ParseInt(string(line), 10, 64)
		if err != nil {
			return Value{}, 0, fmt.Errorf("%w: invalid integer", ErrInvalidFormat)
		}
		return Value{Type: Integer, Int: num}, next, nil

	case BulkString:
		return decodeBulkString(buf, line, next)

	case Array:
		return decodeArray(buf, line, next, depth)

	default:
		return Value{}, 0, fmt.Errorf("%w: %q", ErrInvalidType, byte(typ))
	}
}

func decodeBulkString(buf, line []byte, pos int) (Value, int, error) {
	length, err := strconv.Atoi(string(line))
	if err != nil || length < -1 || length > MaxBulkLength {
		return Value{}, 0, fmt.Errorf("%w: invalid bulk string length", ErrInvalidFormat)
	}

	if length == -1 {
		return Value{Type: BulkString, Null: true}, pos, nil
	}

	end := pos + length
	if len(buf) < end+2 {
		return Value{}, 0, short(end + 2)
	}
	if buf[end] != '\r' || buf[end+1] != '\n' {
		return Value{}, 0, fmt.Errorf("%w: missing CRLF after bulk string", ErrInvalidFormat)
	}

	return Value{Type: BulkString, Str: string(buf[pos:end])}, end + 2, nil
}

func decodeArray(buf, line []byte, pos, depth int) (Value, int, error) {
	if depth >= MaxNestingDepth {
		return Value{}, 0, fmt.Errorf("%w: arrays nested deeper than %d", ErrInvalidFormat, MaxNestingDepth)
	}

	count, err := strconv.Atoi(string(line))
	if err != nil || count < -1 {
		return Value{}, 0, fmt.Errorf("%w: invalid array length", ErrInvalidFormat)
	}

	if count == -1 {
		return Value{Type: Array, Null: true}, pos, nil
	}

	// Each element needs at least three bytes, so a huge count on a short
	// buffer can wait for more input before anything is allocated.
	if count > (len(buf)-pos)/3 {
		return Value{}, 0, short(pos + 3*count)
	}

	array := make([]Value, count)
	for i := range count {
		val, next, err := decodeAt(buf, pos, depth+1)
		if err != nil {
			if need := Needed(err); need > 0 {
				return Value{}, 0, short(need + 3*(count-i-1))
			}
			return Value{}, 0, err
		}
		array[i] = val
		pos = next
	}

	return Value{Type: Array, Array: array}, pos, nil
}

func readLine(buf []byte, pos int) ([]byte, int, error) {
	i := bytes.IndexByte(buf[pos:], '\n')
	if i < 0 {
		return nil, 0, short(max(len(buf)+1, pos+2))
	}

	end := pos + i
	if i == 0 || buf[end-1] != '\r' {
		return nil, 0, fmt.Errorf("%w: missing CRLF", ErrInvalidFormat)
	}

	return buf[pos : end-1], end + 1, nil
}

// Reader decodes a stream of values from an io.Reader.
type Reader struct {
	r     io.Reader
	buf   []byte
	chunk []byte
}

func NewReader(r io.Reader) *Reader {
	return &Reader{r: r, chunk: make([]byte, 4096)}
}

func (r *Reader) Read() (Value, error) {
	for {
		if len(r.buf) > 0 {
			v, n, err := Decode(r.buf)
			if err == nil {
				r.buf = r.buf[n:]
				return v, nil
			}
			if !errors.Is(err, ErrIncomplete) {
				return Value{}, err
			}
		}

		n, err := r.r.Read(r.chunk)
		r.buf = append(r.buf, r.chunk[:n]...)
		if err != nil && n == 0 {
			if errors.Is(err, io.EOF) && len(r.buf) > 0 {
				return Value{}, io.ErrUnexpectedEOF
			}
			return Value{}, err
		}
	}
}
