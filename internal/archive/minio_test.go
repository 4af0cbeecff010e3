package archive

import (
	"testing"
	"time"
)

func TestObjectKey(t *testing.T) {
	at := time.Date(2026, time.March, 4, 9, 5, 7, 0, time.UTC)

	cases := []struct {
		name     string
		userID   string
		filename string
		want     string
	}{
		{name: "user", userID: "u-1", filename: "intro.pdf", want: "u-1/2026/03/20260304T090507Z-intro.pdf"},
		{name: "anonymous", userID: "", filename: "document.docx", want: "anonymous/2026/03/20260304T090507Z-document.docx"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := objectKey(tc.userID, tc.filename, at); got != tc.want {
				t.Fatalf("objectKey() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestObjectKeyUsesUTC(t *testing.T) {
	seoul := time.FixedZone("KST", 9*60*60)
	at := time.Date(2026, time.January, 1, 3, 0, 0, 0, seoul)
	want := "u/2025/12/20251231T180000Z-a.pdf"
	if got := objectKey("u", "a.pdf", at); got != want {
		t.Fatalf("objectKey() = %q, want %q", got, want)
	}
}
