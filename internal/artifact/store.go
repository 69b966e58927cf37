// Package artifact stores images customers upload during a conversation so the
// agent can load them back into the model context on demand.
//
// Layout:
//
//	<root>/<session dir>/<uuid>.<ext>
//	<root>/<session dir>/<uuid>.<ext>.json   sidecar with the original name
package artifact

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/monica-concierge/monica/internal/shared/fsutils"
)

// ErrNotFound is returned when a session has no artifact with the given name.
var ErrNotFound = errors.New("artifact not found")

// Artifact describes one stored file.
type Artifact struct {
	Name         string    `json:"name"`
	OriginalName string    `json:"originalName"`
	MimeType     string    `json:"mimeType"`
	Size         int64     `json:"size"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Store keeps artifacts on the local filesystem, one directory per session.
type Store struct {
	root string
}

// NewStore creates a Store rooted at dir, creating it if needed.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create artifact dir: %w", err)
	}
	return &Store{root: dir}, nil
}

// Save writes data as a new artifact for sessionKey.
// mimeType may be empty, in which case it is derived from originalName.
func (s *Store) Save(sessionKey, originalName, mimeType string, data []byte) (Artifact, error) {
	ext := extensionFor(originalName, mimeType)
	if mimeType == "" {
		mimeType = mime.TypeByExtension(ext)
	}
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	dir := s.sessionDir(sessionKey)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Artifact{}, fmt.Errorf("create session artifact dir: %w", err)
	}

	a := Artifact{
		Name:         uuid.NewString() + ext,
		OriginalName: originalName,
		MimeType:     mimeType,
		Size:         int64(len(data)),
		CreatedAt:    time.Now().UTC(),
	}

	if err := os.WriteFile(filepath.Join(dir, a.Name), data, 0o644); err != nil {
		return Artifact{}, fmt.Errorf("write artifact: %w", err)
	}

	meta, err := json.Marshal(a)
	if err != nil {
		return Artifact{}, fmt.Errorf("marshal artifact meta: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, a.Name+".json"), meta, 0o644); err != nil {
		return Artifact{}, fmt.Errorf("write artifact meta: %w", err)
	}

	return a, nil
}

// List returns the artifacts of a session, oldest first.
// A session without uploads has an empty list.
func (s *Store) List(sessionKey string) ([]Artifact, error) {
	metas, err := filepath.Glob(filepath.Join(s.sessionDir(sessionKey), "*.json"))
	if err != nil {
		return nil, err
	}

	out := make([]Artifact, 0, len(metas))
	for _, path := range metas {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var a Artifact
		if err := json.Unmarshal(data, &a); err != nil {
			continue
		}
		out = append(out, a)
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// Path returns the filesystem path of a stored artifact.
func (s *Store) Path(sessionKey, name string) (string, error) {
	if name == "" || name != filepath.Base(name) || strings.HasSuffix(name, ".json") {
		return "", ErrNotFound
	}
	path := filepath.Join(s.sessionDir(sessionKey), name)
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return "", ErrNotFound
		}
		return "", err
	}
	return path, nil
}

// MimeType returns the media type recorded when the artifact at path was
// saved. It is empty when path has no sidecar.
func MimeType(path string) string {
	data, err := os.ReadFile(path + ".json")
	if err != nil {
		return ""
	}
	var a Artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return ""
	}
	return a.MimeType
}

// Load returns the bytes of a stored artifact.
func (s *Store) Load(sessionKey, name string) ([]byte, error) {
	path, err := s.Path(sessionKey, name)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(path)
}

func (s *Store) sessionDir(sessionKey string) string {
	return filepath.Join(s.root, fsutils.KeyFilename(sessionKey))
}

var preferredExt = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
	"image/heic": ".heic",
	"image/heif": ".heif",
	"image/avif": ".avif",
}

// extensionFor picks a safe lowercase extension. A declared image type wins
// over the original file name, which is only a hint from the client.
func extensionFor(originalName, mimeType string) string {
	if strings.HasPrefix(mimeType, "image/") {
		if ext, ok := preferredExt[mimeType]; ok {
			return ext
		}
		if exts, _ := mime.ExtensionsByType(mimeType); len(exts) > 0 {
			return exts[0]
		}
	}

	ext := strings.ToLower(filepath.Ext(originalName))
	ext = strings.Map(func(r rune) rune {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, strings.TrimPrefix(ext, "."))
	if ext != "" {
		return "." + ext
	}

	if ext, ok := preferredExt[mimeType]; ok {
		return ext
	}
	if mimeType != "" {
		if exts, _ := mime.ExtensionsByType(mimeType); len(exts) > 0 {
			return exts[0]
		}
	}
	return ".bin"
}
