package command

import (
	"path"
	"strings"

	"github.com/lojhan/chainmap/internal/resp"
	"github.com/lojhan/chainmap/internal/store"
)

func SetCommand(s *store.Store) func([]resp.Value) resp.Value {
	return func(args []resp.Value) resp.Value {
		if len(args) < 2 {
			return resp.ErrorValue("ERR wrong number of arguments for 'set' command")
		}

		if args[0].Type != resp.BulkString || args[1].Type != resp.BulkString {
			return resp.ErrorValue("ERR invalid argument type")
		}

		key := args[0].Str
		value := args[1].Str

		nx := false
		xx := false
		for _, arg := range args[2:] {
			if arg.Type != resp.BulkString {
				return resp.ErrorValue("ERR invalid argument type")
			}

			switch strings.ToUpper(arg.Str) {
			case "NX":
				nx = true
			case "XX":
				xx = true
			default:
				return resp.ErrorValue("ERR syntax error")
			}
		}

		switch {
		case nx && xx:
			return resp.ErrorValue("ERR syntax error")
		case nx:
			if !s.SetNX(key, value) {
				return resp.NullBulkStringValue()
			}
		case xx:
			if !s.SetXX(key, value) {
				return resp.NullBulkStringValue()
			}
		default:
			s.Set(key, value)
		}

		return resp.OKValue()
	}
}

func GetCommand(s *store.Store) func([]resp.Value) resp.Value {
	return func(args []resp.Value) resp.Value {
		if len(args) != 1 {
			return resp.ErrorValue("ERR wrong number of arguments for 'get' command")
		}

		if args[0].Type != resp.BulkString {
			return resp.ErrorValue("ERR invalid argument type")
		}

		value, exists := s.Get(args[0].Str)
		if !exists {
			return resp.NullBulkStringValue()
		}

		return resp.BulkStringValue(value)
	}
}

func DelCommand(s *store.Store) func([]resp.Value) resp.Value {
	return func(args []resp.Value) resp.Value {
		if len(args) == 0 {
			return resp.ErrorValue("ERR wrong number of arguments for 'del' command")
		}

		count := int64(0)
		for _, arg := range args {
			if arg.Type != resp.BulkString {
				return resp.ErrorValue("ERR invalid argument type")
			}
			if _, deleted := s.Delete(arg.Str); deleted {
				count++
			}
		}

		return resp.IntegerValue(count)
	}
}

// GetDelCommand returns the removed value, which DEL discards.
func GetDelCommand(s *store.Store) func([]resp.Value) resp.Value {
	return func(args []resp.Value) resp.Value {
		if len(args) != 1 {
			return resp.ErrorValue("ERR wrong number of arguments for 'getdel' command")
		}

		if args[0].Type != resp.BulkString {
			return resp.ErrorValue("ERR invalid argument type")
		}

		value, deleted := s.Delete(args[0].Str)
		if !deleted {
			return resp.NullBulkStringValue()
		}

		return resp.BulkStringValue(value)
	}
}

func ExistsCommand(s *store.Store) func([]resp.Value) resp.Value {
	return func(args []resp.Value) resp.Value {
		if len(args) == 0 {
			return resp.ErrorValue("ERR wrong number of arguments for 'exists' command")
		}

		count := int64(0)
		for _, arg := range args {
			if arg.Type != resp.BulkString {
				return resp.ErrorValue("ERR invalid argument type")
			}
			if s.Exists(arg.Str) {
				count++
			}
		}

		return resp.IntegerValue(count)
	}
}

func KeysCommand(s *store.Store) func([]resp.Value) resp.Value {
	return func(args []resp.Value) resp.Value {
		if len(args) > 1 {
			return resp.ErrorValue("ERR wrong number of arguments for 'keys' command")
		}

		pattern := "*"
		if len(args) == 1 {
			if args[0].Type != resp.BulkString {
				return resp.ErrorValue("ERR invalid argument type")
			}
			pattern = args[0].Str
		}

		if _, err := path.Match(pattern, ""); err != nil {
			return resp.ErrorValue("ERR invalid pattern")
		}

		keys := s.Keys()
		values := make([]resp.Value, 0, len(keys))
		for _, key := range keys {
			if ok, _ := path.Match(pattern, key); ok {
				values = append(values, resp.BulkStringValue(key))
			}
		}

		return resp.ArrayValue(values...)
	}
}

func DBSizeCommand(s *store.Store) func([]resp.Value) resp.Value {
	return func(args []resp.Value) resp.Value {
		if len(args) != 0 {
			return resp.ErrorValue("ERR wrong number of arguments for 'dbsize' command")
		}

		return resp.IntegerValue(int64(s.Len()))
	}
}

func FlushDBCommand(s *store.Store) func([]resp.Value) resp.Value {
	return func(args []resp.Value) resp.Value {
		if len(args) != 0 {
			return resp.ErrorValue("ERR wrong number of arguments for 'flushdb' command")
		}

		if err := s.FlushDB(); err != nil {
			return resp.ErrorValue("ERR " + err.Error())
		}
		return resp.OKValue()
	}
}
