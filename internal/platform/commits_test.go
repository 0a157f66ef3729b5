package platform

import "testing"

func TestFormatCommitMessage(t *testing.T) {
	tests := []struct {
		name    string
		ctype   string
		scope   string
		subject string
		body    string
		want    string
	}{
		{"simple", "feat", "", "add post", "", "feat: add post\n\nPowered-by: inlay"},
		{"with scope", "fix", "blog", "typo", "", "fix(blog): typo\n\nPowered-by: inlay"},
		{"with body", "docs", "", "update about", "  Reworded intro.\n", "docs: update about\n\nReworded intro.\n\nPowered-by: inlay"},
		{"default type", "", "", "misc", "", "chore: misc\n\nPowered-by: inlay"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FormatCommitMessage(tt.ctype, tt.scope, tt.subject, tt.body)
			if got != tt.want {
				t.Errorf("FormatCommitMessage() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAppendFooter(t *testing.T) {
	tests := map[string]string{
		"update post":                      "update post\n\nPowered-by: inlay",
		"update post\n":                    "update post\n\nPowered-by: inlay",
		"update post\n\nPowered-by: inlay": "update post\n\nPowered-by: inlay",
	}
	for in, want := range tests {
		if got := AppendFooter(in); got != want {
			t.Errorf("AppendFooter(%q) = %q, want %q", in, got, want)
		}
	}
}
