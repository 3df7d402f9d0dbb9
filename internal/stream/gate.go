package stream

import (
	"log/slog"
	"time"

	"github.com/earshot-app/earshot/internal/metrics"
)

// Admission reject reasons.
const (
	rejectInactive  = "inactive"
	rejectDuplicate = "duplicate"
	rejectCooldown  = "cooldown"
	rejectBusy      = "busy"
)

// TryAdmit offers a candidate question to the dispatcher. Admission
// requires, in one critical section: an active dispatch queue, a
// question different from the last admitted one, and, unless manual,
// an elapsed cooldown. On success the question is queued, the dedup
// and cooldown fields advance, and the window is cleared; rejection
// has no side effects.
func (g *Gate) TryAdmit(question string, now time.Time, manual bool) bool {
	if question == "" {
		return false
	}

	reason := g.state.Update(func(s *sessionState) any {
		if s.answers == nil {
			return rejectInactive
		}
		if question == s.lastQuestion {
			return rejectDuplicate
		}
		if !manual && now.Sub(s.lastAnswerAt) < g.minBetween {
			return rejectCooldown
		}
		select {
		case s.answers <- question:
		default:
			return rejectBusy
		}
		s.lastQuestion = question
		s.lastAnswerAt = now
		s.window = ""
		return ""
	}).(string)

	if reason != "" {
		slog.Debug("stream question rejected", "reason", reason, "manual", manual)
		metrics.QuestionsRejected.WithLabelValues(reason).Inc()
		return false
	}

	trigger := "auto"
	if manual {
		trigger = "manual"
	}
	slog.Info("stream question admitted", "question", question, "trigger", trigger)
	metrics.QuestionsAdmitted.WithLabelValues(trigger).Inc()
	return true
}
