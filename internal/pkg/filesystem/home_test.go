package filesystem

import (
	"path/filepath"
	"testing"
)

func TestExpandHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	tests := []struct {
		in   string
		want string
	}{
		{"~", home},
		{"~/.pdqa/history.db", filepath.Join(home, ".pdqa", "history.db")},
		{"/var/lib/pdqa.db", "/var/lib/pdqa.db"},
		{"data/../history.jsonl", "history.jsonl"},
		{"~user/file", "~user/file"},
	}
	for _, tt := range tests {
		if got := ExpandHome(tt.in); got != tt.want {
			t.Errorf("ExpandHome(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestAppPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	if got, want := AppPath("config.yaml"), filepath.Join(home, AppDirName, "config.yaml"); got != want {
		t.Errorf("AppPath() = %q, want %q", got, want)
	}
}
