package cache

import (
	"strings"
	"testing"
)

func TestKeySkipsEmptySegments(t *testing.T) {
	tests := []struct {
		parts []string
		want  string
	}{
		{[]string{"user", "42", "profile"}, "user:42:profile"},
		{[]string{"user", "", "profile"}, "user:profile"},
		{[]string{"", "leaderboard"}, "leaderboard"},
		{[]string{"leaderboard", ""}, "leaderboard"},
	}

	for _, tt := range tests {
		got := Key(tt.parts...)
		if got != tt.want {
			t.Fatalf("Key(%v) = %q, want %q", tt.parts, got, tt.want)
		}
		if strings.Contains(got, "::") || strings.HasPrefix(got, ":") || strings.HasSuffix(got, ":") {
			t.Fatalf("Key(%v) = %q violates the key convention", tt.parts, got)
		}
	}
}

func TestRateLimitKey(t *testing.T) {
	got := RateLimitKey("guess:203.0.113.9", 29451123)
	want := "ratelimit:guess:203.0.113.9:29451123"
	if got != want {
		t.Fatalf("RateLimitKey = %q, want %q", got, want)
	}
}

func TestUserProfileKey(t *testing.T) {
	if got := UserProfileKey("42"); got != "user:42:profile" {
		t.Fatalf("UserProfileKey = %q, want %q", got, "user:42:profile")
	}
}
