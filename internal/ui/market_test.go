package ui

import "testing"

func TestStepTradeDate(t *testing.T) {
	dates := []string{"20240102", "20240103", "20240104", "20240108"}
	tests := []struct {
		current string
		delta   int
		want    string
	}{
		{"20240103", -1, "20240102"},
		{"20240103", 1, "20240104"},
		{"20240104", 1, "20240108"},
		{"20240108", 1, ""},
		{"20240102", -1, ""},
		{"20240106", -1, "20240104"}, // weekend falls back to Thursday
		{"20240106", 1, "20240108"},
		{"", 1, "20240102"},
	}
	for _, tt := range tests {
		if got := stepTradeDate(dates, tt.current, tt.delta); got != tt.want {
			t.Fatalf("stepTradeDate(%s, %d) = %q, want %q", tt.current, tt.delta, got, tt.want)
		}
	}
	if got := stepTradeDate(nil, "20240103", 1); got != "" {
		t.Fatalf("stepTradeDate(nil) = %q, want empty", got)
	}
}
