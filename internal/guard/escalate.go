package guard

import "go.uber.org/zap"

// logger is package-scoped the same way internal/pathlock's is:
// EscalateToOperator is called from deep inside finalization with no
// logger otherwise in scope.
var logger = zap.NewNop()

// SetLogger installs l as the package-wide logger for escalation
// delivery failures. Passing nil restores the no-op logger.
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	logger = l
}

// Notifier is the narrow interface EscalateToOperator needs from
// internal/notify: deliver a message to whatever operator channel is
// configured (Slack, if set up; otherwise the caller's own logger).
type Notifier interface {
	Notify(subject, body string) error
}

// EscalateToOperator forwards security-relevant stderr from a
// non-blocking finalization phase (README regeneration, lore
// discovery) to the operator escalation channel without halting
// finalization. A nil notifier or a delivery failure is swallowed —
// escalation is best-effort and must never turn a non-blocking phase
// into a blocking one — but a delivery failure is still logged so it
// isn't silently lost.
func EscalateToOperator(notifier Notifier, phase, stderr string) {
	if notifier == nil || stderr == "" {
		return
	}
	if err := notifier.Notify("bridge: "+phase+" reported a security-relevant warning", stderr); err != nil {
		logger.Warn("operator escalation delivery failed",
			zap.String("phase", phase),
			zap.Error(err),
		)
	}
}
