package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/nofriction/meetings-engine/internal/store"
	"github.com/nofriction/meetings-engine/internal/timeline"
	"github.com/nofriction/meetings-engine/internal/transcript"
	"github.com/nofriction/meetings-engine/internal/vectorstore"
)

// Message is the single envelope carried over both transports
// (websocket and gRPC), matching the teacher's own Message-over-
// either-transport design in internal/api/types.go, narrowed to the
// control-plane operations: start_meeting, stop_recording, pause,
// resume, get_timeline_events, search_transcripts, preview_delete,
// delete_meetings, and semantic_search.
type Message struct {
	Type string `json:"type"`

	// start_meeting / meeting started / stop_recording / pause / resume
	MeetingID uuid.UUID  `json:"meetingId,omitempty"`
	StartedAt *time.Time `json:"startedAt,omitempty"`

	// mode_changed
	Mode string `json:"mode,omitempty"`

	// get_timeline_events / timeline_events
	Events []timeline.Event `json:"events,omitempty"`

	// timeline_event (one pushed event, fanned out as it's produced)
	Event *timeline.Event `json:"event,omitempty"`

	// transcript_segment (one pushed segment)
	Segment *transcript.Segment `json:"segment,omitempty"`

	// search_transcripts / search_results
	Query   string               `json:"query,omitempty"`
	Limit   int                  `json:"limit,omitempty"`
	Results []store.SearchResult `json:"results,omitempty"`

	// preview_delete / delete_preview
	MeetingIDs []uuid.UUID          `json:"meetingIds,omitempty"`
	Previews   []store.DeletePreview `json:"previews,omitempty"`

	// delete_meetings / deleted
	Deleted []uuid.UUID `json:"deleted,omitempty"`

	// semantic_search / semantic_results: the caller supplies an
	// already-computed embedding (spec §6.9's vector-store collaborator
	// is a pure index, not an embedding generator) and gets back the
	// nearest indexed chunks for the meeting.
	QueryEmbedding []float32             `json:"queryEmbedding,omitempty"`
	TopK           int                   `json:"topK,omitempty"`
	VectorResults  []vectorstore.Result  `json:"vectorResults,omitempty"`

	Error string `json:"error,omitempty"`
}
