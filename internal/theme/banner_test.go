package theme

import (
	"strings"
	"testing"
)

func TestBannerMentionsPurpose(t *testing.T) {
	b := Banner()
	if !strings.Contains(b, "mine tweets by keyword") || !strings.HasSuffix(b, "\n") {
		t.Fatalf("unexpected banner: %q", b)
	}
}
