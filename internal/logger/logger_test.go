package logger

import "testing"

func TestSanitizeKVsRedactsSecrets(t *testing.T) {
	got := sanitizeKVs([]interface{}{"bot_token", "123:abc", "user", 42, "X-Telegram-Init-Data", "query_id=1", "dangling"})
	want := []interface{}{"bot_token", "[REDACTED]", "user", 42, "X-Telegram-Init-Data", "[REDACTED]", "dangling"}
	if len(got) != len(want) {
		t.Fatalf("len: got=%d want=%d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("index %d: got=%v want=%v", i, got[i], want[i])
		}
	}
}
