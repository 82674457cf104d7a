package metadata

import (
	"strings"
	"time"
	_ "time/tzdata"
	"unicode/utf8"

	"trend-shorts/config"
	"trend-shorts/logging"
	"trend-shorts/types"

	"github.com/rs/zerolog"
	"github.com/samber/lo"
)

// maxTags is the number of tags YouTube keeps per video in practice.
const maxTags = 30

// Generator builds upload metadata from what the run already produced
type Generator struct {
	cfg    *config.Config
	logger zerolog.Logger
	now    func() time.Time
}

// New creates a new metadata Generator
func New(cfg *config.Config) *Generator {
	return &Generator{
		cfg:    cfg,
		logger: logging.WithComponent("metadata"),
		now:    time.Now,
	}
}

// Run derives title, description and tags. It makes no network calls.
func (g *Generator) Run(topics []types.Topic, script *types.Script, plan types.ScenePlan) *types.VideoMetadata {
	title := script.Niche
	if len(topics) > 0 {
		title = topics[0].Title
	}
	title = truncateTitle(title, g.cfg.Publish.TitleMaxChars)

	desc := strings.TrimSpace(script.Text) + "\n\n#shorts #" + strings.ReplaceAll(script.Niche, " ", "")

	tags := lo.Uniq(lo.Map(append(plan.Keywords(), script.Niche), func(s string, _ int) string {
		return strings.ToLower(strings.TrimSpace(s))
	}))
	tags = lo.Compact(tags)
	if len(tags) > maxTags {
		tags = tags[:maxTags]
	}

	md := &types.VideoMetadata{
		Title:       title,
		Description: desc,
		Tags:        tags,
		CategoryID:  g.cfg.Publish.CategoryID,
		Visibility:  g.cfg.Publish.Visibility,
	}
	if g.cfg.Publish.Schedule {
		md.ScheduledTimeUTC = g.scheduledTime()
	}

	g.logger.Info().Str("title", md.Title).Int("tags", len(md.Tags)).Msg("✅ metadata ready")
	return md
}

// scheduledTime is the next configured publish slot in RFC3339 UTC, or ""
// when the schedule names no valid weekday.
func (g *Generator) scheduledTime() string {
	pc := g.cfg.Publish
	loc, err := time.LoadLocation(pc.ScheduleTimezone)
	if err != nil {
		g.logger.Warn().Err(err).Str("tz", pc.ScheduleTimezone).Msg("unknown schedule timezone, using UTC")
		loc = time.UTC
	}
	slot, ok := nextSlot(g.now(), scheduleDays(pc.ScheduleDays), pc.ScheduleHour, loc)
	if !ok {
		g.logger.Warn().Strs("days", pc.ScheduleDays).Msg("no valid publish weekday, not scheduling")
		return ""
	}
	return slot.UTC().Format(time.RFC3339)
}

// truncateTitle cuts to max runes, ending with "..." when shortened.
func truncateTitle(s string, max int) string {
	s = strings.TrimSpace(s)
	if max <= 3 || utf8.RuneCountInString(s) <= max {
		return s
	}
	r := []rune(s)
	return strings.TrimSpace(string(r[:max-3])) + "..."
}

// nextSlot returns the first publish slot strictly after now: a day in days
// at hour:00 in loc. It looks at most one week ahead.
func nextSlot(now time.Time, days map[time.Weekday]bool, hour int, loc *time.Location) (time.Time, bool) {
	local := now.In(loc)
	for offset := 0; offset <= 7; offset++ {
		d := local.AddDate(0, 0, offset)
		slot := time.Date(d.Year(), d.Month(), d.Day(), hour, 0, 0, 0, loc)
		if days[slot.Weekday()] && slot.After(now) {
			return slot, true
		}
	}
	return time.Time{}, false
}

// scheduleDays parses weekday names; unknown names are skipped.
func scheduleDays(names []string) map[time.Weekday]bool {
	days := make(map[time.Weekday]bool)
	for _, n := range names {
		for wd := time.Sunday; wd <= time.Saturday; wd++ {
			if strings.EqualFold(strings.TrimSpace(n), wd.String()) {
				days[wd] = true
			}
		}
	}
	return days
}
