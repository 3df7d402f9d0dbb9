package record

import (
	"strings"

	"github.com/earshot-app/earshot/internal/clients"
)

// AssignSpeakers labels each transcript segment with the diarizer turn
// it overlaps most. Segments overlapping no turn keep an empty speaker.
func AssignSpeakers(segments []clients.TranscriptSegment, turns []clients.Turn) {
	for i := range segments {
		best := ""
		bestOverlap := 0.0
		for _, turn := range turns {
			start := max(segments[i].Start, turn.Start)
			end := min(segments[i].End, turn.End)
			if overlap := end - start; overlap > bestOverlap {
				bestOverlap = overlap
				best = turn.Speaker
			}
		}
		if best != "" {
			segments[i].Speaker = best
		}
	}
}

// TargetSpeaker picks whose speech carries the question: the configured
// target when set, otherwise the speaker with the most total talk time.
// No turns means no target.
func TargetSpeaker(turns []clients.Turn, configured string) string {
	if configured != "" {
		return configured
	}

	totals := make(map[string]float64)
	for _, turn := range turns {
		totals[turn.Speaker] += turn.Duration()
	}

	target := ""
	most := 0.0
	for speaker, total := range totals {
		if total > most || (total == most && speaker < target) {
			most = total
			target = speaker
		}
	}
	return target
}

// TranscriptFor joins the texts spoken by speaker. An empty speaker, or
// one who never appears, falls back to the full transcript.
func TranscriptFor(segments []clients.TranscriptSegment, speaker string) string {
	if speaker != "" {
		var parts []string
		for _, seg := range segments {
			if seg.Speaker == speaker {
				if t := strings.TrimSpace(seg.Text); t != "" {
					parts = append(parts, t)
				}
			}
		}
		if len(parts) > 0 {
			return strings.Join(parts, " ")
		}
	}
	return clients.JoinText(segments)
}
