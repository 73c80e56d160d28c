package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]zapcore.Level{
		"DEBUG":   zapcore.DebugLevel,
		"warning": zapcore.WarnLevel,
		"WARN":    zapcore.WarnLevel,
		"ERROR":   zapcore.ErrorLevel,
		"INFO":    zapcore.InfoLevel,
		"":        zapcore.InfoLevel,
		"verbose": zapcore.InfoLevel,
	}
	for in, want := range cases {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}

func TestRedact(t *testing.T) {
	assert.Equal(t, "abcdefgh...", Redact("abcdefghijklmnop"))
	assert.Equal(t, "****", Redact("abcd"))
	assert.Equal(t, "", Redact(""))
}
