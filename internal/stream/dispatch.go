package stream

import (
	"context"
	"log/slog"
	"time"

	"github.com/earshot-app/earshot/internal/clients"
	"github.com/earshot-app/earshot/internal/metrics"
)

// dispatchLoop is the per-session answer worker. It consumes admitted
// questions one at a time and forwards finished answers to the relay.
// A failure ends the current question only, never the loop; the loop
// ends only on the session stop signal.
func (c *Controller) dispatchLoop(ctx context.Context, s *session, answers <-chan string) {
	defer s.wg.Done()

	for {
		select {
		case <-s.stop:
			return
		case question := <-answers:
			if question == "" {
				continue
			}
			c.answer(ctx, question)
		}
	}
}

// answer runs one question through the reasoning service and posts the
// result. Faults are contained to this iteration.
func (c *Controller) answer(ctx context.Context, question string) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("answer pipeline fault", "panic", r)
		}
	}()

	started := time.Now()
	slog.Info("answering stream question", "model", c.cfg.Model)

	answer, err := c.reasoner.Answer(ctx, c.cfg.Model, c.cfg.Prompt, question)
	if err != nil {
		slog.Error("reasoning call failed for stream question", "error", err)
		metrics.Answers.WithLabelValues("reason_error").Inc()
		return
	}
	if answer == "" {
		slog.Info("empty answer for stream question, skipping")
		metrics.Answers.WithLabelValues("empty").Inc()
		return
	}

	payload := clients.FeedbackPayload{
		Feedback:  answer,
		Image:     "",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Meta: map[string]any{
			"mode":     "audio",
			"source":   "loopback_stream",
			"model":    c.cfg.Model,
			"question": question,
		},
	}
	if err := c.sink.PostFeedback(ctx, payload); err != nil {
		slog.Error("failed to deliver stream answer", "error", err)
		metrics.Answers.WithLabelValues("relay_error").Inc()
		return
	}

	metrics.Answers.WithLabelValues("sent").Inc()
	metrics.AnswerLatency.Observe(time.Since(started).Seconds())
	slog.Info("stream answer delivered")
}
