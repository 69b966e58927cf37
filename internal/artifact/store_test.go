package artifact

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return s
}

func TestSaveAndLoad(t *testing.T) {
	s := newTestStore(t)
	data := []byte("\x89PNG fake")

	a, err := s.Save("web:u1:s1", "outfit.PNG", "", data)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if !strings.HasSuffix(a.Name, ".png") {
		t.Errorf("expected .png name, got %q", a.Name)
	}
	if a.MimeType != "image/png" {
		t.Errorf("expected image/png, got %q", a.MimeType)
	}
	if a.Size != int64(len(data)) {
		t.Errorf("size %d", a.Size)
	}

	got, err := s.Load("web:u1:s1", a.Name)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Error("loaded bytes differ")
	}
}

func TestSave_ExtensionFromMimeType(t *testing.T) {
	s := newTestStore(t)
	a, err := s.Save("web:u1:s1", "", "image/jpeg", []byte("jpg"))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if !strings.HasSuffix(a.Name, ".jpg") {
		t.Errorf("expected .jpg name, got %q", a.Name)
	}
}

func TestList_PerSessionOldestFirst(t *testing.T) {
	s := newTestStore(t)
	first, _ := s.Save("web:u1:s1", "a.png", "image/png", []byte("a"))
	time.Sleep(5 * time.Millisecond)
	second, _ := s.Save("web:u1:s1", "b.png", "image/png", []byte("b"))
	_, _ = s.Save("web:u2:s9", "c.png", "image/png", []byte("c"))

	list, err := s.List("web:u1:s1")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 artifacts, got %d", len(list))
	}
	if list[0].Name != first.Name || list[1].Name != second.Name {
		t.Errorf("unexpected order: %q, %q", list[0].Name, list[1].Name)
	}
	if list[0].OriginalName != "a.png" {
		t.Errorf("original name lost: %q", list[0].OriginalName)
	}
}

func TestList_EmptySession(t *testing.T) {
	s := newTestStore(t)
	list, err := s.List("web:nobody:none")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 0 {
		t.Errorf("expected empty list, got %d", len(list))
	}
}

func TestPath_RejectsTraversalAndUnknown(t *testing.T) {
	s := newTestStore(t)
	a, _ := s.Save("web:u1:s1", "a.png", "image/png", []byte("a"))

	for _, name := range []string{"", "../a.png", "missing.png", a.Name + ".json"} {
		if _, err := s.Path("web:u1:s1", name); !errors.Is(err, ErrNotFound) {
			t.Errorf("%q: expected ErrNotFound, got %v", name, err)
		}
	}
	if _, err := s.Path("web:u2:s2", a.Name); !errors.Is(err, ErrNotFound) {
		t.Errorf("artifact leaked across sessions: %v", err)
	}
}

func TestSave_DeclaredImageTypeWinsOverName(t *testing.T) {
	s := newTestStore(t)
	cases := map[string]struct{ name, mimeType, ext string }{
		"misleading name": {"look.txt", "image/png", ".png"},
		"heic":            {"", "image/heic", ".heic"},
	}
	for label, tc := range cases {
		a, err := s.Save("web:u1:s1", tc.name, tc.mimeType, []byte("img"))
		if err != nil {
			t.Fatalf("%s: Save: %v", label, err)
		}
		if !strings.HasSuffix(a.Name, tc.ext) {
			t.Errorf("%s: expected %s name, got %q", label, tc.ext, a.Name)
		}
		path, err := s.Path("web:u1:s1", a.Name)
		if err != nil {
			t.Fatal(err)
		}
		if got := MimeType(path); got != tc.mimeType {
			t.Errorf("%s: recorded type %q, want %q", label, got, tc.mimeType)
		}
	}
}

func TestMimeType_NoSidecar(t *testing.T) {
	if got := MimeType(t.TempDir() + "/loose.png"); got != "" {
		t.Errorf("expected empty type, got %q", got)
	}
}

func TestList_KeysDifferingOnlyBySeparatorStayApart(t *testing.T) {
	s := newTestStore(t)
	mine, _ := s.Save("web:a_b:c", "mine.png", "image/png", []byte("a"))
	theirs, _ := s.Save("web:a:b_c", "theirs.png", "image/png", []byte("b"))

	for key, want := range map[string]string{"web:a_b:c": mine.Name, "web:a:b_c": theirs.Name} {
		list, err := s.List(key)
		if err != nil {
			t.Fatal(err)
		}
		if len(list) != 1 || list[0].Name != want {
			t.Errorf("%s: expected only %s, got %+v", key, want, list)
		}
	}
	if _, err := s.Path("web:a_b:c", theirs.Name); !errors.Is(err, ErrNotFound) {
		t.Errorf("artifact visible from the other chat: %v", err)
	}
}
