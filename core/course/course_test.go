package course

import "testing"

func TestSlugify(t *testing.T) {
	tests := map[string]string{
		"Learn Go":                      "learn-go",
		"Advanced C++ Programming":      "advanced-c-programming",
		"  Spaces   everywhere  ":       "spaces-everywhere",
		"Belajar Pemrograman Dasar 101": "belajar-pemrograman-dasar-101",
		"---":                           "",
	}

	for in, want := range tests {
		if got := Slugify(in); got != want {
			t.Errorf("Slugify(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCheckContent(t *testing.T) {
	lecture := ContentNew{Title: "Introduction", Class: ClassLecture}
	if err := checkContent(lecture); err == nil {
		t.Error("lecture without embed URL accepted")
	}

	lecture.EmbedURL = "https://videos.example/intro"
	if err := checkContent(lecture); err != nil {
		t.Errorf("valid lecture rejected: %v", err)
	}

	text := ContentNew{Title: "Reading notes", Class: ClassText}
	if err := checkContent(text); err == nil {
		t.Error("text content without body accepted")
	}

	text.TextContent = "Some notes."
	if err := checkContent(text); err != nil {
		t.Errorf("valid text content rejected: %v", err)
	}
}
