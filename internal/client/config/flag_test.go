package config

import (
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	tests := []struct {
		expected *Config
		name     string
		args     []string
		wantErr  bool
	}{
		{name: "all flags", args: []string{"cmd", "-a", "http://127.0.0.1:9090/api", "-i", "10", "-d", "/tmp/s.db", "-l", "debug"},
			expected: &Config{ServerBaseURL: "http://127.0.0.1:9090/api", OnlineCheckInterval: 10 * time.Second, DatabasePath: "/tmp/s.db", LogLevel: "debug"}},
		{name: "unknown flags are ignored", args: []string{"cmd", "-x", "1", "-a=http://h/api", "-c", "cfg.json"},
			expected: &Config{ServerBaseURL: "http://h/api"}},
		{name: "incorrect check interval", args: []string{"cmd", "-a", "http://h/api", "-i", "abc"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Args = tt.args

			config := &Config{}
			err := parseFlags(config)

			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Empty(t, cmp.Diff(tt.expected, config))
		})
	}
}
