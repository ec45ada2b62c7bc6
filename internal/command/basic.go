package command

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/lojhan/chainmap/internal/hashtable"
	"github.com/lojhan/chainmap/internal/resp"
	"github.com/lojhan/chainmap/internal/store"
)

const Version = "0.3.0"

func PingCommand(args []resp.Value) resp.Value {
	if len(args) == 0 {
		return resp.PongValue()
	}

	if len(args) > 1 {
		return resp.ErrorValue("ERR wrong number of arguments for 'ping' command")
	}

	if args[0].Type != resp.BulkString {
		return resp.ErrorValue("ERR invalid argument type")
	}

	return args[0]
}

func EchoCommand(args []resp.Value) resp.Value {
	if len(args) != 1 {
		return resp.ErrorValue("ERR wrong number of arguments for 'echo' command")
	}

	if args[0].Type != resp.BulkString {
		return resp.ErrorValue("ERR invalid argument type")
	}

	return args[0]
}

func CommandCommand(args []resp.Value) resp.Value {

	return resp.ArrayValue()
}

// InfoCommand reports server, client and keyspace sections. clients may be
// nil when no server is attached.
func InfoCommand(s *store.Store, clients func() int64) func([]resp.Value) resp.Value {
	return func(args []resp.Value) resp.Value {
		if len(args) > 1 {
			return resp.ErrorValue("ERR wrong number of arguments for 'info' command")
		}

		section := "all"
		if len(args) == 1 {
			if args[0].Type != resp.BulkString {
				return resp.ErrorValue("ERR invalid argument type")
			}
			section = strings.ToLower(args[0].Str)
		}

		var b strings.Builder
		if section == "all" || section == "server" {
			b.WriteString("# Server\r\n")
			fmt.Fprintf(&b, "chainmap_version:%s\r\n", Version)
			fmt.Fprintf(&b, "go_version:%s\r\n", runtime.Version())
			fmt.Fprintf(&b, "os:%s\r\n", runtime.GOOS)
			fmt.Fprintf(&b, "arch:%s\r\n", runtime.GOARCH)
		}

		if section == "all" || section == "clients" {
			connected := int64(0)
			if clients != nil {
				connected = clients()
			}
			b.WriteString("# Clients\r\n")
			fmt.Fprintf(&b, "connected_clients:%d\r\n", connected)
		}

		if section == "all" || section == "keyspace" {
			stats := s.Stats()
			b.WriteString("# Keyspace\r\n")
			fmt.Fprintf(&b, "keys:%d\r\n", stats.Keys)
			fmt.Fprintf(&b, "capacity:%d\r\n", stats.Capacity)
			fmt.Fprintf(&b, "load_factor:%.4f\r\n", stats.LoadFactor)
			fmt.Fprintf(&b, "load_factor_threshold:%.2f\r\n", hashtable.LoadFactorThreshold)
			fmt.Fprintf(&b, "resizes:%d\r\n", stats.Resizes)
		}

		return resp.BulkStringValue(b.String())
	}
}
