package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nofriction/meetings-engine/internal/diffbuilder"
	"github.com/nofriction/meetings-engine/internal/episode"
	"github.com/nofriction/meetings-engine/internal/snapshot"
	"github.com/nofriction/meetings-engine/internal/state"
	"github.com/nofriction/meetings-engine/internal/timeline"
	"github.com/nofriction/meetings-engine/internal/transcript"
)

// uuidPtrString converts an optional uuid.UUID to the nullable TEXT
// column representation pgx expects: a nil *string for NULL.
func uuidPtrString(id *uuid.UUID) *string {
	if id == nil {
		return nil
	}
	s := id.String()
	return &s
}

func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

// SaveMeeting inserts a new meeting row.
func (s *Store) SaveMeeting(ctx context.Context, meetingID uuid.UUID, startTS time.Time) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO meetings (meeting_id, start_ts) VALUES ($1, $2)`,
		meetingID.String(), startTS)
	if err != nil {
		return fmt.Errorf("store: save meeting: %w", err)
	}
	return nil
}

// EndMeeting stamps a meeting's end timestamp.
func (s *Store) EndMeeting(ctx context.Context, meetingID uuid.UUID, endTS time.Time) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE meetings SET end_ts = $2 WHERE meeting_id = $1`,
		meetingID.String(), endTS)
	if err != nil {
		return fmt.Errorf("store: end meeting: %w", err)
	}
	return nil
}

// SaveScreenState persists one completed screen state.
func (s *Store) SaveScreenState(ctx context.Context, st state.ScreenState) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO screen_states
			(state_id, meeting_id, start_ts, end_ts, app_name, window_title,
			 phash, delta_score, keyframe_path, state_type,
			 flag_high_motion, flag_blurry, flag_low_text, flag_scroll_like)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		st.StateID.String(), st.MeetingID.String(), st.StartTS, st.EndTS, st.AppName, st.WindowTitle,
		st.PHash, st.DeltaScore, st.KeyframePath, int16(st.StateType),
		st.Flags.HighMotion, st.Flags.Blurry, st.Flags.LowText, st.Flags.ScrollLike)
	if err != nil {
		return fmt.Errorf("store: save screen state: %w", err)
	}
	return nil
}

// SaveTextSnapshot persists one OCR/accessibility text checkpoint.
func (s *Store) SaveTextSnapshot(ctx context.Context, snap snapshot.TextSnapshot) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO text_snapshots
			(snapshot_id, episode_id, state_id, ts, text, text_hash,
			 quality_score, source, word_count)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		snap.SnapshotID.String(), uuidPtrString(snap.EpisodeID), uuidPtrString(snap.StateID),
		snap.Timestamp, snap.Text, snap.TextHash, snap.QualityScore, int16(snap.Source), snap.WordCount)
	if err != nil {
		return fmt.Errorf("store: save text snapshot: %w", err)
	}
	return nil
}

// SaveTextDiff persists one unified diff between two text snapshots.
func (s *Store) SaveTextDiff(ctx context.Context, d diffbuilder.TextDiff) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO text_patches
			(patch_id, episode_id, from_text_hash, to_text_hash, ts,
			 unified_diff, lines_added, lines_removed, change_type, change_summary)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		d.PatchID.String(), d.EpisodeID.String(), d.FromTextHash, d.ToTextHash, d.Timestamp,
		d.UnifiedDiff, d.LinesAdded, d.LinesRemoved, int16(d.ChangeType), d.ChangeSummary)
	if err != nil {
		return fmt.Errorf("store: save text diff: %w", err)
	}
	return nil
}

// SaveEpisode persists one completed document episode.
func (s *Store) SaveEpisode(ctx context.Context, e episode.DocumentEpisode) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO episodes
			(episode_id, meeting_id, start_ts, end_ts, app_name, window_title,
			 document_fingerprint, state_ids, state_count)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		e.EpisodeID.String(), e.MeetingID.String(), e.StartTS, e.EndTS, e.AppName, e.WindowTitle,
		e.DocumentFingerprint, uuidStrings(e.StateIDs), e.StateCount)
	if err != nil {
		return fmt.Errorf("store: save episode: %w", err)
	}
	return nil
}

// SaveTimelineEvent persists one published timeline event.
func (s *Store) SaveTimelineEvent(ctx context.Context, e timeline.Event) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO timeline_events
			(event_id, meeting_id, ts, event_type, title, description,
			 app_name, window_title, duration_ms, episode_id, state_id, topic, importance)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		e.EventID.String(), e.MeetingID.String(), e.Timestamp, int16(e.EventType), e.Title, e.Description,
		e.AppName, e.WindowTitle, e.DurationMs, uuidPtrString(e.EpisodeID), uuidPtrString(e.StateID), e.Topic, e.Importance)
	if err != nil {
		return fmt.Errorf("store: save timeline event: %w", err)
	}
	return nil
}

// SaveTranscriptSegment persists one recognized speech segment and
// returns its generated ID.
func (s *Store) SaveTranscriptSegment(ctx context.Context, meetingID uuid.UUID, seg transcript.Segment) (uuid.UUID, error) {
	segmentID := uuid.New()
	_, err := s.pool.Exec(ctx,
		`INSERT INTO transcripts
			(segment_id, meeting_id, text, is_final, confidence, start_seconds, duration, speaker)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		segmentID.String(), meetingID.String(), seg.Text, seg.IsFinal, seg.Confidence, seg.StartSeconds, seg.Duration, seg.Speaker)
	if err != nil {
		return uuid.Nil, fmt.Errorf("store: save transcript segment: %w", err)
	}
	return segmentID, nil
}

// ListTimelineEvents returns every timeline event recorded for a
// meeting, oldest first — backs the "get timeline events for meeting"
// control-plane operation (spec §6).
func (s *Store) ListTimelineEvents(ctx context.Context, meetingID uuid.UUID) ([]timeline.Event, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT event_id, meeting_id, ts, event_type, title, description,
		        app_name, window_title, duration_ms, episode_id, state_id, topic, importance
		   FROM timeline_events
		  WHERE meeting_id = $1
		  ORDER BY ts ASC`,
		meetingID.String())
	if err != nil {
		return nil, fmt.Errorf("store: list timeline events: %w", err)
	}
	defer rows.Close()

	var events []timeline.Event
	for rows.Next() {
		var (
			e                  timeline.Event
			eventID, mID       string
			eventType          int16
			episodeID, stateID *string
		)
		if err := rows.Scan(&eventID, &mID, &e.Timestamp, &eventType, &e.Title, &e.Description,
			&e.AppName, &e.WindowTitle, &e.DurationMs, &episodeID, &stateID, &e.Topic, &e.Importance); err != nil {
			return nil, fmt.Errorf("store: scan timeline event: %w", err)
		}
		e.EventID, err = uuid.Parse(eventID)
		if err != nil {
			return nil, fmt.Errorf("store: parse event id: %w", err)
		}
		e.MeetingID, err = uuid.Parse(mID)
		if err != nil {
			return nil, fmt.Errorf("store: parse meeting id: %w", err)
		}
		e.EventType = timeline.EventType(eventType)
		if episodeID != nil {
			id, err := uuid.Parse(*episodeID)
			if err != nil {
				return nil, fmt.Errorf("store: parse episode id: %w", err)
			}
			e.EpisodeID = &id
		}
		if stateID != nil {
			id, err := uuid.Parse(*stateID)
			if err != nil {
				return nil, fmt.Errorf("store: parse state id: %w", err)
			}
			e.StateID = &id
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// DeletePreview reports, per table, how many rows deleting a meeting
// would remove — surfaced by the "preview delete of meeting ids"
// control-plane operation (spec §6) so the UI can confirm before the
// caller actually deletes anything.
type DeletePreview struct {
	MeetingID      uuid.UUID
	ScreenStates   int
	Episodes       int
	TextSnapshots  int
	TextPatches    int
	TimelineEvents int
	Transcripts    int
	Entities       int
}

// PreviewDelete computes the row counts DeleteMeeting would remove for
// each meeting ID, without deleting anything.
func (s *Store) PreviewDelete(ctx context.Context, meetingIDs []uuid.UUID) ([]DeletePreview, error) {
	previews := make([]DeletePreview, 0, len(meetingIDs))
	for _, id := range meetingIDs {
		var p DeletePreview
		p.MeetingID = id
		row := s.pool.QueryRow(ctx,
			`SELECT
				(SELECT count(*) FROM screen_states WHERE meeting_id = $1),
				(SELECT count(*) FROM episodes WHERE meeting_id = $1),
				(SELECT count(*) FROM text_snapshots ts JOIN episodes e ON e.episode_id = ts.episode_id WHERE e.meeting_id = $1),
				(SELECT count(*) FROM text_patches tp JOIN episodes e ON e.episode_id = tp.episode_id WHERE e.meeting_id = $1),
				(SELECT count(*) FROM timeline_events WHERE meeting_id = $1),
				(SELECT count(*) FROM transcripts WHERE meeting_id = $1),
				(SELECT count(*) FROM entities WHERE meeting_id = $1)`,
			id.String())
		if err := row.Scan(&p.ScreenStates, &p.Episodes, &p.TextSnapshots, &p.TextPatches,
			&p.TimelineEvents, &p.Transcripts, &p.Entities); err != nil {
			return nil, fmt.Errorf("store: preview delete %s: %w", id, err)
		}
		previews = append(previews, p)
	}
	return previews, nil
}

// DeleteMeeting removes a meeting and every row that references it, in
// FK-safe order, inside one transaction. Callers are expected to have
// already removed the meeting's keyframe/audio/video files via
// fsstore.Store.ValidateForDelete before calling this.
func (s *Store) DeleteMeeting(ctx context.Context, meetingID uuid.UUID) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("store: delete meeting: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	id := meetingID.String()
	stmts := []string{
		`DELETE FROM text_patches WHERE episode_id IN (SELECT episode_id FROM episodes WHERE meeting_id = $1)`,
		`DELETE FROM text_snapshots WHERE episode_id IN (SELECT episode_id FROM episodes WHERE meeting_id = $1)`,
		`DELETE FROM timeline_events WHERE meeting_id = $1`,
		`DELETE FROM episodes WHERE meeting_id = $1`,
		`DELETE FROM screen_states WHERE meeting_id = $1`,
		`DELETE FROM transcripts WHERE meeting_id = $1`,
		`DELETE FROM entities WHERE meeting_id = $1`,
		`DELETE FROM frame_queue WHERE meeting_id = $1`,
		`DELETE FROM audit_log WHERE meeting_id = $1`,
		`DELETE FROM meetings WHERE meeting_id = $1`,
	}
	for _, stmt := range stmts {
		if _, err := tx.Exec(ctx, stmt, id); err != nil {
			return fmt.Errorf("store: delete meeting: %w", err)
		}
	}
	return tx.Commit(ctx)
}

// SaveDismissal records that suggestionID was dismissed on day (spec
// §4.9/§10: dismissals are valid "for the rest of the day" and survive a
// process restart within that day).
func (s *Store) SaveDismissal(ctx context.Context, suggestionID string, day time.Time) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO dismissed_suggestions (suggestion_id, dismissed_day)
		 VALUES ($1, $2) ON CONFLICT (suggestion_id, dismissed_day) DO NOTHING`,
		suggestionID, day.UTC().Truncate(24*time.Hour))
	if err != nil {
		return fmt.Errorf("store: save dismissal: %w", err)
	}
	return nil
}

// LoadDismissalsForDay returns every suggestion id dismissed on day, for
// seeding mode.Trigger's in-memory cache at startup so a process restart
// doesn't resurface a suggestion the user already dismissed that day.
func (s *Store) LoadDismissalsForDay(ctx context.Context, day time.Time) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT suggestion_id FROM dismissed_suggestions WHERE dismissed_day = $1`,
		day.UTC().Truncate(24*time.Hour))
	if err != nil {
		return nil, fmt.Errorf("store: load dismissals: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("store: load dismissals: scan: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// SearchResult is one full-text search hit across transcripts and text
// snapshots, ranked by Postgres's ts_rank.
type SearchResult struct {
	MeetingID uuid.UUID
	Source    string // "transcript" or "snapshot"
	Text      string
	Timestamp time.Time
	Rank      float64
}

// Search runs a full-text query (spec §6.8's FTS requirement) across
// both transcripts and text_snapshots for one meeting, ranked and
// merged by relevance.
func (s *Store) Search(ctx context.Context, meetingID uuid.UUID, query string, limit int) ([]SearchResult, error) {
	rows, err := s.pool.Query(ctx,
		`(SELECT 'transcript' AS source, text, ts_rank(search_vector, plainto_tsquery('english', $2)) AS rank
		    FROM transcripts
		   WHERE meeting_id = $1 AND search_vector @@ plainto_tsquery('english', $2))
		 UNION ALL
		 (SELECT 'snapshot' AS source, text, ts_rank(ts.search_vector, plainto_tsquery('english', $2)) AS rank
		    FROM text_snapshots ts
		    JOIN episodes e ON e.episode_id = ts.episode_id
		   WHERE e.meeting_id = $1 AND ts.search_vector @@ plainto_tsquery('english', $2))
		 ORDER BY rank DESC
		 LIMIT $3`,
		meetingID.String(), query, limit)
	if err != nil {
		return nil, fmt.Errorf("store: search: %w", err)
	}
	defer rows.Close()

	var results []SearchResult
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.Source, &r.Text, &r.Rank); err != nil {
			return nil, fmt.Errorf("store: scan search result: %w", err)
		}
		r.MeetingID = meetingID
		results = append(results, r)
	}
	return results, rows.Err()
}
