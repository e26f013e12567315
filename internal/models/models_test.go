package models

import "testing"

func TestParseUserID(t *testing.T) {
	id, err := ParseUserID("42")
	if err != nil || id != 42 {
		t.Errorf("ParseUserID(42) = %d, %v", id, err)
	}

	for _, bad := range []string{"", "abc", "-1", "0", "1.5", "9999999999999999999999"} {
		if _, err := ParseUserID(bad); err == nil {
			t.Errorf("ParseUserID(%q) succeeded, want error", bad)
		}
	}
}

func TestParsePlatform(t *testing.T) {
	for _, good := range []string{"INSTAGRAM", "TIKTOK"} {
		if _, err := ParsePlatform(good); err != nil {
			t.Errorf("ParsePlatform(%q) error: %v", good, err)
		}
	}

	for _, bad := range []string{"", "instagram", "YOUTUBE"} {
		if _, err := ParsePlatform(bad); err == nil {
			t.Errorf("ParsePlatform(%q) succeeded, want error", bad)
		}
	}
}

func TestParsePostStatus(t *testing.T) {
	for _, good := range []string{"PENDING", "PUBLISHING", "SUCCESS", "FAILED"} {
		status, err := ParsePostStatus(good)
		if err != nil || status != PostStatus(good) {
			t.Errorf("ParsePostStatus(%q) = %q, %v", good, status, err)
		}
	}

	for _, bad := range []string{"", "pending", "DRAFT"} {
		if _, err := ParsePostStatus(bad); err == nil {
			t.Errorf("ParsePostStatus(%q) succeeded, want error", bad)
		}
	}
}
