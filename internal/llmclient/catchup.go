package llmclient

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// TranscriptCitation points to a specific moment in the transcript an
// insight was drawn from.
type TranscriptCitation struct {
	SegmentID   string
	TimestampMs int64
	Speaker     string
	TextExcerpt string
}

// TranscriptSegment is one utterance fed into a catch-up briefing.
type TranscriptSegment struct {
	ID          string
	TimestampMs int64
	Speaker     string
	Text        string
}

// MeetingMetadata is the meeting context given to the briefing prompt.
type MeetingMetadata struct {
	Title     string
	Attendees []string
}

// CatchUpCapsule is a point-in-time "what did I miss" summary (spec
// §10, supplemented from catch_up_agent.rs, not present in spec.md).
type CatchUpCapsule struct {
	WhatMissed         []string
	CurrentTopic       string
	Decisions          []string
	OpenThreads        []string
	NextMoves          []string
	Risks              []string
	QuestionsToAsk     []string
	TenSecondVersion   string
	SixtySecondVersion string
	Confidence         float64
	GeneratedAtMinute  int
}

// CatchUpBriefing generates a CatchUpCapsule summarizing segments up
// to minutesSinceStart minutes into the meeting. Returns ErrUnavailable
// (wrapped) when client is nil; when the backend call fails, the
// backend's error is returned wrapped as a "catch-up briefing
// unavailable" error — callers should not retry, just surface the
// failure.
func CatchUpBriefing(ctx context.Context, client Client, model string, segments []TranscriptSegment, metadata MeetingMetadata, minutesSinceStart int) (CatchUpCapsule, error) {
	if len(segments) == 0 {
		return CatchUpCapsule{
			TenSecondVersion:   "No transcript data available yet.",
			SixtySecondVersion: "Meeting is in progress but no transcript has been captured yet.",
			GeneratedAtMinute:  minutesSinceStart,
		}, nil
	}

	if client == nil {
		return CatchUpCapsule{}, fmt.Errorf("llmclient: catch-up briefing: %w", ErrUnavailable)
	}

	ctx, cancel := context.WithTimeout(ctx, CompletionTimeout)
	defer cancel()

	prompt := buildCatchUpPrompt(segments, metadata, minutesSinceStart)
	reply, err := client.Chat(ctx, model, []Message{{Role: "user", Content: prompt}})
	if err != nil {
		return CatchUpCapsule{}, fmt.Errorf("llmclient: catch-up briefing unavailable: %w", err)
	}

	return parseCatchUpResponse(reply, minutesSinceStart)
}

func buildCatchUpPrompt(segments []TranscriptSegment, metadata MeetingMetadata, minutesSinceStart int) string {
	var transcript strings.Builder
	for _, s := range segments {
		ts := formatTimestamp(s.TimestampMs)
		if s.Speaker != "" {
			fmt.Fprintf(&transcript, "[%s] %s: %s\n", ts, s.Speaker, s.Text)
		} else {
			fmt.Fprintf(&transcript, "[%s] %s\n", ts, s.Text)
		}
	}

	attendees := "Unknown"
	if len(metadata.Attendees) > 0 {
		attendees = strings.Join(metadata.Attendees, ", ")
	}

	return fmt.Sprintf(`You are analyzing a meeting transcript. The user just joined %d minutes late and needs to quickly understand what happened.

MEETING: %s
ATTENDEES: %s
TRANSCRIPT SO FAR:
%s

Generate a Catch-Up Capsule in this exact JSON format:
{
  "what_missed": ["key point 1", "key point 2", "key point 3"],
  "current_topic": "what is being discussed right now",
  "decisions": ["decision 1 if any"],
  "open_threads": ["unresolved question 1", "unresolved question 2"],
  "next_moves": ["suggestion 1 for what to say/do", "suggestion 2"],
  "risks": ["any tension or sensitive topics detected"],
  "questions_to_ask": ["good question to ask based on discussion"],
  "ten_second_version": "3-4 ultra-short bullet points for quick scan",
  "sixty_second_version": "fuller summary paragraph",
  "confidence": 0.85
}

HARD RULES:
- Be factual. Only cite what's actually in the transcript.
- No hallucination. If the transcript is unclear, say so.
- Keep ten_second_version to 3-4 bullet points max.
- Make next_moves actionable and specific.

Return ONLY valid JSON, no other text.`, minutesSinceStart, metadata.Title, attendees, transcript.String())
}

func formatTimestamp(ms int64) string {
	totalSeconds := ms / 1000
	minutes := (totalSeconds / 60) % 60
	seconds := totalSeconds % 60
	return fmt.Sprintf("%02d:%02d", minutes, seconds)
}

type rawCapsule struct {
	WhatMissed         []string `json:"what_missed"`
	CurrentTopic       string   `json:"current_topic"`
	Decisions          []string `json:"decisions"`
	OpenThreads        []string `json:"open_threads"`
	NextMoves          []string `json:"next_moves"`
	Risks              []string `json:"risks"`
	QuestionsToAsk     []string `json:"questions_to_ask"`
	TenSecondVersion   string   `json:"ten_second_version"`
	SixtySecondVersion string   `json:"sixty_second_version"`
	Confidence         float64  `json:"confidence"`
}

func parseCatchUpResponse(response string, minutesSinceStart int) (CatchUpCapsule, error) {
	jsonStr, err := extractJSON(response)
	if err != nil {
		return CatchUpCapsule{}, fmt.Errorf("llmclient: catch-up briefing: %w", err)
	}

	var raw rawCapsule
	if err := json.Unmarshal([]byte(jsonStr), &raw); err != nil {
		return CatchUpCapsule{}, fmt.Errorf("llmclient: catch-up briefing: parse response: %w", err)
	}

	capsule := CatchUpCapsule{
		WhatMissed:         raw.WhatMissed,
		CurrentTopic:       raw.CurrentTopic,
		Decisions:          raw.Decisions,
		OpenThreads:        raw.OpenThreads,
		NextMoves:          raw.NextMoves,
		Risks:              raw.Risks,
		QuestionsToAsk:     raw.QuestionsToAsk,
		TenSecondVersion:   raw.TenSecondVersion,
		SixtySecondVersion: raw.SixtySecondVersion,
		Confidence:         raw.Confidence,
		GeneratedAtMinute:  minutesSinceStart,
	}
	if capsule.CurrentTopic == "" {
		capsule.CurrentTopic = "Unknown"
	}
	if capsule.TenSecondVersion == "" {
		capsule.TenSecondVersion = "Summary not available"
	}
	if capsule.SixtySecondVersion == "" {
		capsule.SixtySecondVersion = "Summary not available"
	}
	return capsule, nil
}
