// Package notify is the boundary for user-facing side effects: transient
// toasts and audio cues. The session layer drives it from reconciler
// effects; rendering and playback themselves live outside this repository.
package notify

import (
	"go.uber.org/zap"

	"github.com/OVECJOE/zai-client/internal/game"
)

// Notifier receives the user-facing side effects of a session.
type Notifier interface {
	Toast(level game.ToastLevel, message string)
	PlaySound(name string)
}

type logNotifier struct {
	log *zap.Logger
}

// NewLogNotifier returns a Notifier that records everything on the logger.
// It is the default sink for front-ends without their own toast or audio
// surface.
func NewLogNotifier(log *zap.Logger) Notifier {
	if log == nil {
		log = zap.NewNop()
	}
	return &logNotifier{log: log}
}

func (n *logNotifier) Toast(level game.ToastLevel, message string) {
	switch level {
	case game.ToastError:
		n.log.Error(message)
	case game.ToastWarning:
		n.log.Warn(message)
	default:
		n.log.Info(message)
	}
}

func (n *logNotifier) PlaySound(name string) {
	n.log.Debug("sound cue", zap.String("sound", name))
}
