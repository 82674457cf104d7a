package script

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"trend-shorts/types"
)

// ErrNoScenes is returned when the planner reply yields no usable scene.
var ErrNoScenes = errors.New("scene plan is empty")

// ParseIssue records one scene dropped while parsing the planner reply.
type ParseIssue struct {
	Pair   int // zero-based pair index in the reply
	Token  string
	Reason string
}

func (p ParseIssue) String() string {
	return fmt.Sprintf("pair %d (%q): %s", p.Pair, p.Token, p.Reason)
}

// units are stripped from duration tokens, longest first.
var units = []string{"seconds", "second", "secs", "sec", "s"}

// Plan asks the LLM to split the script into keyword/duration scenes and
// parses the reply. Dropped scenes are returned as issues, not errors.
func (w *Writer) Plan(ctx context.Context, s *types.Script) (types.ScenePlan, []ParseIssue, error) {
	w.logger.Info().Msg("planning scenes")

	raw, err := w.complete(ctx, buildPlanPrompt(s.Text))
	if err != nil {
		return nil, nil, err
	}
	w.logger.Debug().Str("reply", raw).Msg("scene planner reply")

	plan, issues := ParseScenePlan(raw)
	for _, issue := range issues {
		w.logger.Warn().Int("pair", issue.Pair).Str("token", issue.Token).Msg("scene dropped: " + issue.Reason)
	}
	if len(plan) == 0 {
		return nil, issues, ErrNoScenes
	}
	w.logger.Info().Int("scenes", len(plan)).Int("seconds", plan.TotalSeconds()).Str("plan", plan.String()).Msg("✅ scene plan ready")
	return plan, issues, nil
}

// ParseScenePlan turns "keyword, 5 seconds, keyword, 8 seconds, ..." into an
// ordered plan. Tokens pair positionally; an odd trailing keyword is dropped
// rather than given a made-up duration. A bad duration, an empty keyword or a
// repeated keyword drops only that scene.
func ParseScenePlan(raw string) (types.ScenePlan, []ParseIssue) {
	tokens := tokenize(raw)

	var plan types.ScenePlan
	var issues []ParseIssue
	seen := make(map[string]bool)

	for i := 0; i < len(tokens); i += 2 {
		pair := i / 2
		if i+1 >= len(tokens) {
			issues = append(issues, ParseIssue{Pair: pair, Token: tokens[i], Reason: "keyword has no duration"})
			break
		}
		keyword, durTok := tokens[i], tokens[i+1]

		if keyword == "" {
			issues = append(issues, ParseIssue{Pair: pair, Token: durTok, Reason: "empty keyword"})
			continue
		}
		seconds, err := parseSeconds(durTok)
		if err != nil {
			issues = append(issues, ParseIssue{Pair: pair, Token: durTok, Reason: err.Error()})
			continue
		}
		key := strings.ToLower(keyword)
		if seen[key] {
			issues = append(issues, ParseIssue{Pair: pair, Token: keyword, Reason: "duplicate keyword"})
			continue
		}
		seen[key] = true
		plan = append(plan, types.Scene{Keyword: keyword, Seconds: seconds})
	}
	return plan, issues
}

// lineBreaks matches a run of line breaks together with any comma touching it.
var lineBreaks = regexp.MustCompile(`[ \t]*,?[ \t]*(?:\r?\n[ \t]*)+,?`)

// tokenize splits on commas and trims each token, keeping interior empty
// tokens so that pairing stays positional. A line break counts as one comma
// (some models emit one pair per line); trailing separators are ignored.
func tokenize(raw string) []string {
	raw = strings.TrimSpace(raw)
	raw = lineBreaks.ReplaceAllString(raw, ",")
	raw = strings.TrimRight(raw, ", \t")
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	tokens := make([]string, len(parts))
	for i, part := range parts {
		tokens[i] = strings.TrimSpace(strings.Trim(strings.TrimSpace(part), `"'`+"`"))
	}
	return tokens
}

func parseSeconds(tok string) (int, error) {
	s := strings.TrimSpace(strings.TrimRight(tok, ". "))
	lower := strings.ToLower(s)
	for _, u := range units {
		if !strings.HasSuffix(lower, u) {
			continue
		}
		rest := strings.TrimSpace(s[:len(s)-len(u)])
		if rest != "" && rest[len(rest)-1] >= '0' && rest[len(rest)-1] <= '9' {
			s = rest
			break
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("duration %q is not an integer", tok)
	}
	if n <= 0 {
		return 0, fmt.Errorf("duration %d is not positive", n)
	}
	return n, nil
}

func buildPlanPrompt(scriptText string) string {
	return "Divide this voiceover into scenes. Give each scene one short stock-footage search keyword " +
		"and estimate how many seconds the scene takes when read out by a text-to-speech voice. " +
		"Return only the keywords with their estimated time, in order, separated by commas, " +
		"like: keyword, 5 seconds, keyword, 8 seconds. No headings, no numbering.\n\n" +
		"'" + scriptText + "'"
}
