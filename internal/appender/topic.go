package appender

import (
	"strings"

	"github.com/nerrad567/gray-logic-logship/internal/record"
)

// LevelPlaceholder is substituted in topic templates.
const LevelPlaceholder = "{level}"

// ResolveTopic replaces the first LevelPlaceholder in template with the
// lowercase name of level. The result is not validated as an MQTT topic.
func ResolveTopic(template string, level record.Level) string {
	return strings.Replace(template, LevelPlaceholder, strings.ToLower(level.String()), 1)
}
