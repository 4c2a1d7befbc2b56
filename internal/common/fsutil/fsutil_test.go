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

	if got, err := ExpandHome("/tmp"); err != nil || got != "/tmp" {
		t.Fatalf("got %q err=%v", got, err)
	}
	if got, err := ExpandHome(""); err != nil || got != "" {
		t.Fatalf("got %q err=%v", got, err)
	}
	p, err := ExpandHome("~")
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if p != home {
		t.Fatalf("expected %q, got %q", home, p)
	}
	exp, err := ExpandHome("~/models")
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if want := filepath.Join(home, "models"); exp != want {
		t.Fatalf("expected %q, got %q", want, exp)
	}
}

func TestPathChecks(t *testing.T) {
	dir := t.TempDir()
	f := filepath.Join(dir, "clip.wav")
	if err := os.WriteFile(f, []byte("RIFF"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	missing := filepath.Join(dir, "nope.wav")

	if !PathExists(f) || !PathExists(dir) || PathExists(missing) {
		t.Fatalf("PathExists mismatch")
	}
	if !IsFile(f) || IsFile(dir) || IsFile(missing) {
		t.Fatalf("IsFile mismatch")
	}
	if !IsDir(dir) || IsDir(f) || IsDir(missing) {
		t.Fatalf("IsDir mismatch")
	}
}
