// Package logger provides the structured logger shared by the server, the
// batch job and the estimators.
//
// Output always goes to stderr: stdout carries the MCP protocol stream.
package logger

import (
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// EnvLevel names the environment variable that overrides the log level.
const EnvLevel = "PELLET_MCP_LOG_LEVEL"

// Logger provides structured logging with a component tag and fields.
type Logger interface {
	Info(component, message string, fields map[string]interface{})
	Error(component string, err error, fields map[string]interface{})
	Warning(component, message string, fields map[string]interface{})
	Debug(component, message string, fields map[string]interface{})
}

// ParseLevel maps a level name to a zerolog level. Unknown or empty names
// fall back to info.
func ParseLevel(name string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(name)))
	if err != nil || name == "" {
		return zerolog.InfoLevel
	}
	return lvl
}

// LevelFromEnv resolves the level from PELLET_MCP_LOG_LEVEL, falling back to
// the given name when the variable is unset.
func LevelFromEnv(fallback string) zerolog.Level {
	if v, ok := os.LookupEnv(EnvLevel); ok && v != "" {
		return ParseLevel(v)
	}
	return ParseLevel(fallback)
}

type nop struct{}

// Nop returns a logger that discards everything.
func Nop() Logger { return nop{} }

func (nop) Info(string, string, map[string]interface{})    {}
func (nop) Error(string, error, map[string]interface{})    {}
func (nop) Warning(string, string, map[string]interface{}) {}
func (nop) Debug(string, string, map[string]interface{})   {}

// OrNop returns l, or a no-op logger when l is nil.
func OrNop(l Logger) Logger {
	if l == nil {
		return Nop()
	}
	return l
}
