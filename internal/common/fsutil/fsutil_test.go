package fsutil

import (
	"os"
	"path/filepath"
	"testing"
)

func TestExpandHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)

	cases := map[string]string{
		"":             "",
		"/etc/x.yaml":  "/etc/x.yaml",
		"rel/x.yaml":   "rel/x.yaml",
		"~bob/x":       "~bob/x",
		"~":            home,
		"~/":           home,
		"~/cfg/a.yaml": filepath.Join(home, "cfg", "a.yaml"),
	}
	for in, want := range cases {
		got, err := ExpandHome(in)
		if err != nil {
			t.Fatalf("ExpandHome(%q): %v", in, err)
		}
		if got != want {
			t.Fatalf("ExpandHome(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFileExists(t *testing.T) {
	dir := t.TempDir()
	f := filepath.Join(dir, "a.env")
	if err := os.WriteFile(f, []byte("A=1\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if !FileExists(f) {
		t.Fatalf("expected %s to exist", f)
	}
	if FileExists(dir) {
		t.Fatalf("directory must not count as a file")
	}
	if FileExists(filepath.Join(dir, "missing")) {
		t.Fatalf("missing file reported as existing")
	}
}

func TestFirstExisting(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)
	if err := os.MkdirAll(filepath.Join(home, ".config"), 0o755); err != nil {
		t.Fatal(err)
	}
	want := filepath.Join(home, ".config", "dash.yaml")
	if err := os.WriteFile(want, []byte("addr: :1\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	got := FirstExisting(filepath.Join(home, "nope.yaml"), "~/.config/dash.yaml", "~/.config")
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
	if got := FirstExisting("~/absent.toml"); got != "" {
		t.Fatalf("expected empty, got %q", got)
	}
}
