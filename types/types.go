package types

import (
	"fmt"
	"strings"
)

// Topic is one trending subject pulled from the feed
type Topic struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Source string `json:"source"`
	Score  int    `json:"score"`
}

// Script is the narration text for one video
type Script struct {
	Niche  string   `json:"niche"`
	Topics []string `json:"topics"`
	Text   string   `json:"text"`
	Model  string   `json:"model"`
}

// Scene is one narration segment: a search keyword and its spoken duration
type Scene struct {
	Keyword string `json:"keyword"`
	Seconds int    `json:"seconds"`
}

// ScenePlan is the ordered keyword -> duration mapping.
// Order defines narration progression and output file naming.
type ScenePlan []Scene

// Keywords returns the keywords in plan order.
func (p ScenePlan) Keywords() []string {
	out := make([]string, len(p))
	for i, s := range p {
		out[i] = s.Keyword
	}
	return out
}

// Seconds returns the planned duration for keyword, or false if absent.
func (p ScenePlan) Seconds(keyword string) (int, bool) {
	for _, s := range p {
		if s.Keyword == keyword {
			return s.Seconds, true
		}
	}
	return 0, false
}

// TotalSeconds sums every scene's duration.
func (p ScenePlan) TotalSeconds() int {
	total := 0
	for _, s := range p {
		total += s.Seconds
	}
	return total
}

// String renders the plan as "keyword: Ns" pairs, for the ledger and logs.
func (p ScenePlan) String() string {
	parts := make([]string, len(p))
	for i, s := range p {
		parts[i] = fmt.Sprintf("%s: %ds", s.Keyword, s.Seconds)
	}
	return strings.Join(parts, ", ")
}

// FootageCandidate is one downloadable stock video variant
type FootageCandidate struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// Portrait reports whether the variant is vertical (height > width).
func (c FootageCandidate) Portrait() bool {
	return c.Height > c.Width
}

// Selection is the resolver's outcome for one keyword.
// Found == false is "no selection", which is not an error.
type Selection struct {
	Keyword   string           `json:"keyword"`
	Found     bool             `json:"found"`
	Candidate FootageCandidate `json:"candidate"`
	Err       error            `json:"-"`
}

// ClipState is the lifecycle of a local clip file
type ClipState string

const (
	ClipRaw     ClipState = "raw"
	ClipTrimmed ClipState = "trimmed"
)

// Clip is a local video file for one scene keyword
type Clip struct {
	Keyword string    `json:"keyword"`
	Path    string    `json:"path"`
	State   ClipState `json:"state"`
	Seconds int       `json:"seconds"`
}

// MarkTrimmed moves a raw clip to its trimmed file.
func (c *Clip) MarkTrimmed(path string) {
	c.Path = path
	c.State = ClipTrimmed
}

// ClipResult is the fetch/trim outcome for one keyword
type ClipResult struct {
	Keyword string `json:"keyword"`
	Clip    *Clip  `json:"clip,omitempty"`
	Skipped bool   `json:"skipped"`
	Err     error  `json:"-"`
}

// VideoMetadata holds all YouTube upload metadata
type VideoMetadata struct {
	Title            string   `json:"title"`
	Description      string   `json:"description"`
	Tags             []string `json:"tags"`
	CategoryID       string   `json:"category_id"`
	Visibility       string   `json:"visibility"`
	ScheduledTimeUTC string   `json:"scheduled_time_utc"`
}

// PipelineState tracks the full state of one pipeline run
type PipelineState struct {
	RunID       string         `json:"run_id"`
	StartedAt   string         `json:"started_at"`
	CompletedAt string         `json:"completed_at"`
	Niche       string         `json:"niche"`
	Topics      []Topic        `json:"topics"`
	Script      *Script        `json:"script"`
	Plan        ScenePlan      `json:"plan"`
	ParseIssues []string       `json:"parse_issues,omitempty"`
	Selections  []Selection    `json:"selections"`
	Clips       []Clip         `json:"clips"`
	AudioFile   string         `json:"audio_file"`
	VideoFile   string         `json:"video_file"`
	Metadata    *VideoMetadata `json:"metadata,omitempty"`
	YouTubeURL  string         `json:"youtube_url,omitempty"`
	YouTubeID   string         `json:"youtube_id,omitempty"`
	Error       string         `json:"error,omitempty"`
}
