package services

import "testing"

func TestHasLeadSignal(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want bool
	}{
		{"ten digit run", "call me at 1234567890", true},
		{"long digit run", "my number is 123456789012", true},
		{"nine digits only", "code 123456789", false},
		{"email", "reach me at jane.doe+x@example.co.uk thanks", true},
		{"clock time", "call me at 14:30 tomorrow", true},
		{"am pm time", "I'm free after 3pm", true},
		{"am pm with space", "maybe 10 AM works", true},
		{"plain chat", "what do you sell?", false},
		{"at sign without domain", "meet @ the office", false},
		{"empty", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HasLeadSignal(tt.in); got != tt.want {
				t.Fatalf("HasLeadSignal(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}
