package appender

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nerrad567/gray-logic-logship/internal/record"
)

func TestResolveTopic(t *testing.T) {
	tests := []struct {
		name     string
		template string
		level    record.Level
		want     string
	}{
		{"placeholder at end", "test/logs/{level}", record.LevelInfo, "test/logs/info"},
		{"error level", "app/{level}", record.LevelError, "app/error"},
		{"warn level", "app/{level}", record.LevelWarn, "app/warn"},
		{"debug level", "app/{level}", record.LevelDebug, "app/debug"},
		{"trace level", "app/{level}", record.LevelTrace, "app/trace"},
		{"placeholder in middle", "site/{level}/raw", record.LevelInfo, "site/info/raw"},
		{"no placeholder", "logs", record.LevelError, "logs"},
		{"only first occurrence", "{level}/{level}", record.LevelWarn, "warn/{level}"},
		{"unbalanced braces kept", "logs/{lvl}", record.LevelInfo, "logs/{lvl}"},
		{"empty template", "", record.LevelInfo, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveTopic(tt.template, tt.level))
		})
	}
}
