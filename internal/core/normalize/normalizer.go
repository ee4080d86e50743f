package normalize

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/pulsevest/backend/internal/core/domain"
)

// Field spellings observed across providers and prompt revisions. Every
// lookup goes through canonKey, so each alias also covers its casing and
// separator variants.
var (
	wrapperAliases     = newAliasSet("analysis", "audio analysis", "video analysis", "result")
	scoresAliases      = newAliasSet(domain.FieldScores, "categories", "category scores")
	categoryAliases    = newAliasSet("category", "name", "title")
	scoreAliases       = newAliasSet("score", "rating")
	explanationAliases = newAliasSet("explanation", "reason", "rationale", "comment")
	pulseScoreAliases  = newAliasSet(domain.FieldPulseScore, "final pulse score")
	suggestionAliases  = newAliasSet(domain.FieldSuggestions, "actionable suggestions")
)

// Normalize parses raw scoring-service text into a canonical ScoreCard.
// It tolerates fenced-code wrapping, a named wrapper object, alternate
// key spellings, and both the canonical scores array and the per-category
// object layout. It fails with domain.ErrMalformedResponse when the text
// is not a JSON object at all, and with domain.ErrValidation when the
// parsed structure cannot yield a valid scorecard. The raw text rides
// along on every failure for diagnosis.
func Normalize(raw string) (domain.ScoreCard, error) {
	stripped := stripWrapping(raw)
	top, err := decodeObject([]byte(stripped))
	if err != nil {
		return domain.ScoreCard{}, domain.NewMalformedResponseError("reply is not a JSON object", raw, err)
	}

	payload := unwrap(top)

	scores, err := collectScores(payload, raw)
	if err != nil {
		return domain.ScoreCard{}, err
	}
	if len(scores) == 0 {
		return domain.ScoreCard{}, domain.NewValidationError("no score categories found", raw)
	}

	card := domain.ScoreCard{Scores: scores}

	if agg, ok := lookupNumber(payload, pulseScoreAliases); ok && agg >= 0 && agg <= 100 {
		card.PulseScore = domain.Round1(agg)
	} else {
		card.PulseScore = card.MeanScore()
	}

	if sug, ok := lookupValue(payload, suggestionAliases); ok {
		card.Suggestions = sug
	}

	return card, nil
}

// stripWrapping removes fenced code block markers and surrounding
// whitespace, the one non-JSON decoration providers add routinely.
func stripWrapping(raw string) string {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}

// unwrap descends into a lone recognized wrapper object, e.g.
// {"analysis": {...}}. Anything else is already the payload.
func unwrap(top []entry) []entry {
	if len(top) != 1 {
		return top
	}
	only := top[0]
	if !wrapperAliases.matches(only.key) || !isObject(only.value) {
		return top
	}
	inner, err := decodeObject(only.value)
	if err != nil {
		return top
	}
	return inner
}

// collectScores gathers categories from the canonical scores array when
// present, otherwise from first-level entries shaped like a category
// (an object holding a score-like and an explanation-like field).
func collectScores(payload []entry, raw string) ([]domain.ScoreCategory, error) {
	if arr, ok := lookupRaw(payload, scoresAliases); ok && isArray(arr) {
		return scoresFromArray(arr, raw)
	}
	return scoresFromEntries(payload, raw)
}

func scoresFromArray(arr json.RawMessage, raw string) ([]domain.ScoreCategory, error) {
	items, err := decodeArray(arr)
	if err != nil {
		return nil, domain.NewValidationError("scores field is not a valid array", raw)
	}
	var out []domain.ScoreCategory
	for _, item := range items {
		if !isObject(item) {
			continue
		}
		fields, err := decodeObject(item)
		if err != nil {
			continue
		}
		score, okScore := lookupNumber(fields, scoreAliases)
		expl, okExpl := lookupString(fields, explanationAliases)
		name, okName := lookupString(fields, categoryAliases)
		if !okScore || !okExpl || !okName {
			continue
		}
		if score < 0 || score > 100 {
			return nil, domain.NewValidationError("category score out of range [0,100]", raw)
		}
		out = append(out, domain.ScoreCategory{
			Category:    name,
			Score:       roundScore(score),
			Explanation: expl,
		})
	}
	return out, nil
}

func scoresFromEntries(payload []entry, raw string) ([]domain.ScoreCategory, error) {
	var out []domain.ScoreCategory
	for _, e := range payload {
		// Reserved fields never classify as categories, whatever their shape.
		if pulseScoreAliases.matches(e.key) || suggestionAliases.matches(e.key) || scoresAliases.matches(e.key) {
			continue
		}
		if !isObject(e.value) {
			continue
		}
		fields, err := decodeObject(e.value)
		if err != nil {
			continue
		}
		score, okScore := lookupNumber(fields, scoreAliases)
		expl, okExpl := lookupString(fields, explanationAliases)
		if !okScore || !okExpl {
			continue
		}
		if score < 0 || score > 100 {
			return nil, domain.NewValidationError("category score out of range [0,100]", raw)
		}
		out = append(out, domain.ScoreCategory{
			Category:    displayName(e.key),
			Score:       roundScore(score),
			Explanation: expl,
		})
	}
	return out, nil
}

func roundScore(v float64) int {
	return int(v + 0.5)
}

func lookupRaw(payload []entry, aliases aliasSet) (json.RawMessage, bool) {
	for _, e := range payload {
		if aliases.matches(e.key) {
			return e.value, true
		}
	}
	return nil, false
}

// lookupNumber accepts JSON numbers and numeric strings; some providers
// quote every scalar.
func lookupNumber(payload []entry, aliases aliasSet) (float64, bool) {
	raw, ok := lookupRaw(payload, aliases)
	if !ok {
		return 0, false
	}
	return parseNumber(raw)
}

func parseNumber(raw json.RawMessage) (float64, bool) {
	var num json.Number
	if err := json.Unmarshal(raw, &num); err == nil {
		if f, err := num.Float64(); err == nil {
			return f, true
		}
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			return f, true
		}
	}
	return 0, false
}

func lookupString(payload []entry, aliases aliasSet) (string, bool) {
	raw, ok := lookupRaw(payload, aliases)
	if !ok {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, true
	}
	return "", false
}

// lookupValue decodes the matched field into its native Go shape so a
// suggestions paragraph stays a string and a structured mapping stays a
// mapping.
func lookupValue(payload []entry, aliases aliasSet) (any, bool) {
	raw, ok := lookupRaw(payload, aliases)
	if !ok {
		return nil, false
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, false
	}
	return v, true
}
