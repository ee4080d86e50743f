package normalize

import "testing"

func TestCanonKey(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Pulse_Score", "pulsescore"},
		{"pulse score", "pulsescore"},
		{"PulseScore", "pulsescore"},
		{"pulse-score", "pulsescore"},
		{"  Actionable Suggestions ", "actionablesuggestions"},
		{"score", "score"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := canonKey(tt.in); got != tt.want {
			t.Errorf("canonKey(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestAliasSet_Matches(t *testing.T) {
	s := newAliasSet("pulse score", "final pulse score")

	for _, key := range []string{"Pulse_Score", "pulse score", "PulseScore", "PULSE-SCORE", "Final_Pulse_Score"} {
		if !s.matches(key) {
			t.Errorf("expected %q to match", key)
		}
	}
	for _, key := range []string{"pulse", "score", "pulse scored"} {
		if s.matches(key) {
			t.Errorf("did not expect %q to match", key)
		}
	}
}

func TestDisplayName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Rhythm_Quality", "Rhythm Quality"},
		{"rhythm quality", "Rhythm Quality"},
		{"soundQuality", "Sound Quality"},
		{"MarketPotential", "Market Potential"},
		{"market-potential", "Market Potential"},
		{"genre__relevance", "Genre Relevance"},
	}

	for _, tt := range tests {
		if got := displayName(tt.in); got != tt.want {
			t.Errorf("displayName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
