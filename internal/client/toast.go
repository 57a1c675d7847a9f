package client

import (
	"notification_hub/internal/notification"

	"go.uber.org/zap"
)

// Toaster shows user-visible notices. Implementations must be safe for
// concurrent use.
type Toaster interface {
	Notify(n notification.Notification)
	Error(action string, err error)
}

// LogToaster renders toasts as log lines; used by the listener command.
type LogToaster struct {
	logger *zap.Logger
}

func NewLogToaster(logger *zap.Logger) *LogToaster {
	return &LogToaster{logger: logger.Named("toast")}
}

func (t *LogToaster) Notify(n notification.Notification) {
	fields := []zap.Field{
		zap.String("id", n.ID),
		zap.String("variant", string(n.Variant)),
		zap.Bool("global", n.IsGlobal),
	}
	if n.Task != nil {
		fields = append(fields, zap.String("task", n.Task.Identifier))
	}
	t.logger.Info(n.Text, fields...)
}

func (t *LogToaster) Error(action string, err error) {
	t.logger.Error("Could not "+action, zap.Error(err))
}
