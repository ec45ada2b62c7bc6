package command

import (
	"strings"
	"testing"

	"github.com/lojhan/chainmap/internal/resp"
	"github.com/lojhan/chainmap/internal/store"
)

func TestPingCommand(t *testing.T) {
	tests := []struct {
		name     string
		args     []resp.Value
		expected resp.Value
	}{
		{
			name:     "PING without argument",
			args:     []resp.Value{},
			expected: resp.PongValue(),
		},
		{
			name: "PING with message",
			args: []resp.Value{
				resp.BulkStringValue("hello"),
			},
			expected: resp.BulkStringValue("hello"),
		},
		{
			name: "PING with multiple arguments (error)",
			args: []resp.Value{
				resp.BulkStringValue("hello"),
				resp.BulkStringValue("world"),
			},
			expected: resp.ErrorValue("ERR wrong number of arguments for 'ping' command"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := PingCommand(tt.args)

			if result.Type != tt.expected.Type {
				t.Errorf("Expected type %v, got %v", tt.expected.Type, result.Type)
			}

			if result.Type == resp.SimpleString || result.Type == resp.Error || result.Type == resp.BulkString {
				if result.Str != tt.expected.Str {
					t.Errorf("Expected %q, got %q", tt.expected.Str, result.Str)
				}
			}
		})
	}
}

func TestEchoCommand(t *testing.T) {
	tests := []struct {
		name     string
		args     []resp.Value
		expected resp.Value
	}{
		{
			name: "ECHO with message",
			args: []resp.Value{
				resp.BulkStringValue("hello world"),
			},
			expected: resp.BulkStringValue("hello world"),
		},
		{
			name:     "ECHO without argument (error)",
			args:     []resp.Value{},
			expected: resp.ErrorValue("ERR wrong number of arguments for 'echo' command"),
		},
		{
			name: "ECHO with multiple arguments (error)",
			args: []resp.Value{
				resp.BulkStringValue("hello"),
				resp.BulkStringValue("world"),
			},
			expected: resp.ErrorValue("ERR wrong number of arguments for 'echo' command"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := EchoCommand(tt.args)

			if result.Type != tt.expected.Type {
				t.Errorf("Expected type %v, got %v", tt.expected.Type, result.Type)
			}

			if result.Type == resp.BulkString || result.Type == resp.Error {
				if result.Str != tt.expected.Str {
					t.Errorf("Expected %q, got %q", tt.expected.Str, result.Str)
				}
			}
		})
	}
}

func TestCommandCommand(t *testing.T) {
	result := CommandCommand([]resp.Value{})

	if result.Type != resp.Array {
		t.Errorf("Expected Array type, got %v", result.Type)
	}
}

func TestInfoCommand(t *testing.T) {
	s := newTestStore(t, 4)
	set := SetCommand(s)
	for _, k := range []string{"a", "b", "c", "d"} {
		set([]resp.Value{resp.BulkStringValue(k), resp.BulkStringValue(k)})
	}

	info := InfoCommand(s, func() int64 { return 3 })

	tests := []struct {
		name     string
		args     []resp.Value
		contains []string
		absent   string
	}{
		{
			name:     "INFO without argument",
			args:     []resp.Value{},
			contains: []string{"# Server", "# Clients", "# Keyspace", "chainmap_version"},
		},
		{
			name:     "INFO server",
			args:     []resp.Value{resp.BulkStringValue("server")},
			contains: []string{"# Server"},
			absent:   "# Keyspace",
		},
		{
			name:     "INFO clients",
			args:     []resp.Value{resp.BulkStringValue("clients")},
			contains: []string{"connected_clients:3"},
		},
		{
			name: "INFO keyspace",
			args: []resp.Value{resp.BulkStringValue("KEYSPACE")},
			contains: []string{
				"keys:4\r\n",
				"capacity:8\r\n",
				"load_factor:0.5000\r\n",
				"load_factor_threshold:0.75\r\n",
				"resizes:1\r\n",
			},
			absent: "# Server",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := info(tt.args)

			if result.Type != resp.BulkString {
				t.Errorf("Expected BulkString type, got %v", result.Type)
			}

			for _, want := range tt.contains {
				if !strings.Contains(result.Str, want) {
					t.Errorf("Expected result to contain %q, got %q", want, result.Str)
				}
			}

			if tt.absent != "" && strings.Contains(result.Str, tt.absent) {
				t.Errorf("Expected result to not contain %q, got %q", tt.absent, result.Str)
			}
		})
	}
}

func TestInfoCommandWithoutServer(t *testing.T) {
	result := InfoCommand(newTestStore(t, 4), nil)([]resp.Value{resp.BulkStringValue("clients")})

	if !strings.Contains(result.Str, "connected_clients:0") {
		t.Errorf("Expected 0 connected clients, got %q", result.Str)
	}
}

func newTestStore(t *testing.T, capacity int) *store.Store {
	t.Helper()

	s, err := store.NewStore(capacity, nil)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return s
}
