// Package config loads runtime configuration for the Connecta CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected via flags: -c or -config.
//  3. CONNECTA_* environment variables (see parseEnv).
//  4. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-a string   API base URL, e.g. https://connecta.example/api
//	-i int      online status check interval (seconds)
//	-d string   path to the local session database
//	-l string   log level
//
// # JSON schema
//
// The JSON loader uses timex.Duration for intervals, so values can be either
// strings like "3s" or integer nanoseconds:
//
//	{
//	  "server_base_url": "http://localhost:8000/api",
//	  "online_check_interval": "3s",
//	  "page_size": 5
//	}
//
// The resulting Config is validated before LoadConfig returns it.
package config
