package renderer

import (
	"context"
	"log/slog"

	"github.com/vkngwrapper/extensions/v3/ext_debug_utils"
)

// debugLogger forwards validation layer messages to slog. Messages never
// influence control flow.
type debugLogger struct {
	log *slog.Logger
}

func (d *debugLogger) createInfo() ext_debug_utils.DebugUtilsMessengerCreateInfo {
	return ext_debug_utils.DebugUtilsMessengerCreateInfo{
		MessageSeverity: ext_debug_utils.SeverityVerbose | ext_debug_utils.SeverityWarning | ext_debug_utils.SeverityError,
		MessageType:     ext_debug_utils.TypeGeneral | ext_debug_utils.TypeValidation | ext_debug_utils.TypePerformance,
		UserCallback:    d.callback,
	}
}

func (d *debugLogger) callback(msgType ext_debug_utils.DebugUtilsMessageTypeFlags, severity ext_debug_utils.DebugUtilsMessageSeverityFlags, data *ext_debug_utils.DebugUtilsMessengerCallbackData) bool {
	message := ""
	if data != nil {
		message = data.Message
	}
	d.log.Log(context.Background(), severityLevel(severity), message, "type", msgType.String())
	return false
}

func severityLevel(severity ext_debug_utils.DebugUtilsMessageSeverityFlags) slog.Level {
	switch {
	case severity&ext_debug_utils.SeverityError != 0:
		return slog.LevelError
	case severity&ext_debug_utils.SeverityWarning != 0:
		return slog.LevelWarn
	case severity&ext_debug_utils.SeverityInfo != 0:
		return slog.LevelInfo
	}
	return slog.LevelDebug
}
