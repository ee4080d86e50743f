package domain

// SchemaVersion identifies the response schema spelled out in the prompt.
// Bump it whenever the category sets or the canonical field names change,
// so a logged raw reply can be matched to the schema it was asked for.
const SchemaVersion = "v2"

// Canonical field names of the scorecard JSON contract. The prompt
// builder and the response normalizer both read these constants; the
// category sets below are likewise the single definition for both sides.
// Keeping them in one place is what prevents the prompt and the parser
// from drifting apart across revisions.
const (
	FieldPulseScore  = "pulseScore"
	FieldSuggestions = "suggestions"
	FieldScores      = "scores"
)

var audioCategories = []string{
	"Rhythm/Groove Quality",
	"Sound/Production Quality",
	"Lyrical Content/Vocal Delivery",
	"Market Potential",
}

var videoCategories = []string{
	"Storyline/Narrative",
	"Acting Quality",
	"Cinematography/Visuals",
	"Market Potential",
}

// CategoriesFor returns the fixed, ordered category names for a media
// kind. The second return value is false for kinds that are not scored.
func CategoriesFor(kind MediaKind) ([]string, bool) {
	switch kind {
	case MediaKindAudio:
		return append([]string(nil), audioCategories...), true
	case MediaKindVideo:
		return append([]string(nil), videoCategories...), true
	default:
		return nil, false
	}
}
