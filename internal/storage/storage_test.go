package storage

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"reelcrew/internal/job"
	"reelcrew/internal/script"
)

func testScript() *script.Script {
	return &script.Script{
		Topic:    "Deep sea",
		Takeaway: "The ocean floor is mostly unexplored.",
		Captions: []string{
			"Darkness below two hundred metres",
			"Pressure crushes like elephants",
			"Fish make their own light",
			"Vents feed whole ecosystems",
			"Most of it remains unmapped",
		},
	}
}

func TestWorkspacePaths(t *testing.T) {
	w := NewWorkspace("/work", "")

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"voiceover", w.VoiceoverPath(3, ".mp3"), "/work/voiceovers/voiceover_3.mp3"},
		{"image", w.ImagePath(1, ".webp"), "/work/images/image_1.webp"},
		{"output", w.OutputPath(), "/work/yt_shorts_video.mp4"},
		{"script", w.ScriptPath(), "/work/script.json"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != filepath.FromSlash(tt.want) {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
}

func TestWorkspaceLayout(t *testing.T) {
	w := NewWorkspace("ws", "out.mp4")
	l := w.Layout(".wav", ".png")

	if got := l.VoiceoverPath(2); got != filepath.Join("ws", "voiceovers", "voiceover_2.wav") {
		t.Errorf("VoiceoverPath() = %q", got)
	}
	if got := l.ImagePath(5); got != filepath.Join("ws", "images", "image_5.png") {
		t.Errorf("ImagePath() = %q", got)
	}
}

func TestWorkspaceScriptRoundTrip(t *testing.T) {
	w := NewWorkspace(t.TempDir(), "")

	if _, err := w.LoadScript(); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("LoadScript() on empty workspace error = %v, want fs.ErrNotExist", err)
	}

	want := testScript()
	if err := w.SaveScript(want); err != nil {
		t.Fatalf("SaveScript() error = %v", err)
	}

	got, err := w.LoadScript()
	if err != nil {
		t.Fatalf("LoadScript() error = %v", err)
	}
	if got.Topic != want.Topic || got.Takeaway != want.Takeaway || len(got.Captions) != 5 {
		t.Errorf("LoadScript() = %+v", got)
	}
	for i := range want.Captions {
		if got.Captions[i] != want.Captions[i] {
			t.Errorf("caption %d = %q, want %q", i+1, got.Captions[i], want.Captions[i])
		}
	}
}

func TestWorkspaceLoadScriptRejectsInvalid(t *testing.T) {
	dir := t.TempDir()
	w := NewWorkspace(dir, "")
	_ = os.WriteFile(w.ScriptPath(), []byte(`{"topic":"x","takeaway":"y","captions":["one"]}`), 0644)

	if _, err := w.LoadScript(); err == nil {
		t.Error("LoadScript() should reject a script with one caption")
	}
}

func TestWorkspaceWriteArtifact(t *testing.T) {
	w := NewWorkspace(t.TempDir(), "")
	path := w.ImagePath(1, ".png")

	if err := w.WriteArtifact(path, []byte("png")); err != nil {
		t.Fatalf("WriteArtifact() error = %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil || string(data) != "png" {
		t.Fatalf("artifact = %q, %v", data, err)
	}

	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Errorf("images dir has %d entries, want only the artifact", len(entries))
	}
}

func TestWorkspaceSaveJob(t *testing.T) {
	dir := t.TempDir()
	w := NewWorkspace(dir, "")
	j := job.New("Deep sea")
	j.Plan(testScript(), w.Layout(".mp3", ".webp"))

	if err := w.SaveJob(j); err != nil {
		t.Fatalf("SaveJob() error = %v", err)
	}

	got, err := w.LoadJob()
	if err != nil {
		t.Fatalf("LoadJob() error = %v", err)
	}
	if got.ID != j.ID || got.Topic != "Deep sea" || len(got.Items) != 5 {
		t.Errorf("LoadJob() = %+v", got)
	}
	if got.Items[4].Image.Path != w.ImagePath(5, ".webp") {
		t.Errorf("item 5 image path = %q", got.Items[4].Image.Path)
	}
}

func TestWorkspaceLoadJobMissing(t *testing.T) {
	w := NewWorkspace(t.TempDir(), "")
	if _, err := w.LoadJob(); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("LoadJob() error = %v, want fs.ErrNotExist", err)
	}
}

func TestWorkspaceClear(t *testing.T) {
	dir := t.TempDir()
	w := NewWorkspace(dir, "video.mp4")
	if err := w.EnsureDirectories(); err != nil {
		t.Fatal(err)
	}
	_ = w.WriteArtifact(w.VoiceoverPath(1, ".mp3"), []byte("a"))
	_ = w.WriteArtifact(w.ImagePath(1, ".webp"), []byte("i"))
	_ = w.SaveScript(testScript())
	_ = os.WriteFile(w.OutputPath(), []byte("v"), 0644)
	keep := filepath.Join(dir, "config.yaml")
	_ = os.WriteFile(keep, []byte("llm: {}"), 0644)

	if err := w.Clear(); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}

	for _, p := range []string{
		filepath.Join(dir, VoiceoverDir),
		filepath.Join(dir, ImageDir),
		w.ScriptPath(),
		w.OutputPath(),
	} {
		if _, err := os.Stat(p); !os.IsNotExist(err) {
			t.Errorf("%s still exists", p)
		}
	}
	if _, err := os.Stat(keep); err != nil {
		t.Error("Clear() removed an unrelated file")
	}

	if err := w.Clear(); err != nil {
		t.Errorf("second Clear() error = %v", err)
	}
}

func TestLocalMusic(t *testing.T) {
	path, err := LocalMusic{Path: "assets/music/background.mp3"}.Prepare(context.Background())
	if err != nil || path != "assets/music/background.mp3" {
		t.Errorf("Prepare() = %q, %v", path, err)
	}
}

func TestGCSMusicUsesCache(t *testing.T) {
	cache := filepath.Join(t.TempDir(), "background.mp3")
	_ = os.WriteFile(cache, []byte("mp3"), 0644)

	// no client: a cached file must short-circuit before any bucket access
	m := &GCSMusic{bucket: "b", object: "music/", cachePath: cache}
	got, err := m.Prepare(context.Background())
	if err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	if got != cache {
		t.Errorf("Prepare() = %q, want %q", got, cache)
	}
}

func TestIsAudio(t *testing.T) {
	tests := map[string]bool{
		"music/calm.MP3":  true,
		"music/loop.wav":  true,
		"music/cover.jpg": false,
		"music/":          false,
	}
	for name, want := range tests {
		if got := isAudio(name); got != want {
			t.Errorf("isAudio(%q) = %v, want %v", name, got, want)
		}
	}
}
