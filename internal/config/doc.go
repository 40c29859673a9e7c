// Package config provides configuration management for empath.
//
// # Configuration File
//
// The configuration is stored at ~/.empath/config.yaml and is created with
// defaults on first use. The file structure mirrors the structs in this
// package.
//
// # Environment Variables
//
// Every key can be overridden with an EMPATH_ prefixed variable. Nested keys
// are joined by underscores:
//   - EMPATH_MEMORY_BACKEND=redis
//   - EMPATH_MEMORY_REDIS_ADDR=10.0.0.5:6379
//   - EMPATH_PIPELINE_RECALL_LIMIT=20
//   - EMPATH_LOGGING_LEVEL=debug
//
// A .env file in the working directory, or next to the config file, is read
// before the environment is consulted. Variables already set win.
//
// # Configuration Sections
//
//   - Pipeline: recall limits and suggestion sampling
//   - Memory: store backend (memory, sqlite, redis) and writer queue
//   - Sessions: mood history size and the idle-session janitor schedule
//   - Server: HTTP and websocket listener
//   - Logging: level, format and optional log file
//   - Personas: default persona and a directory of YAML persona files
//
// Config instances are not safe for concurrent mutation.
package config
