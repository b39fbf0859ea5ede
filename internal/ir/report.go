package ir

// Report is the outbound attempt-report event, emitted once per run.
//
// The core emits it; an attempt-logging collaborator persists or forwards it.
type Report struct {
	SessionID string `json:"session_id"`
	LevelID   string `json:"level_id"`
	Succeeded bool   `json:"succeeded"`
	Tier      Tier   `json:"tier"`
	Source    string `json:"source"` // stripped program source text
	Attempt   int64  `json:"attempt"`
	ElapsedMs int64  `json:"elapsed_ms"` // wall-clock time since session start
}

// canonicalMap converts the report into the shape accepted by MarshalCanonical.
// The tier is recorded by its numeric code.
func (r Report) canonicalMap() map[string]any {
	return map[string]any{
		"session_id": r.SessionID,
		"level_id":   r.LevelID,
		"succeeded":  r.Succeeded,
		"tier":       int64(r.Tier),
		"source":     r.Source,
		"attempt":    r.Attempt,
		"elapsed_ms": r.ElapsedMs,
	}
}
