package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/monica-concierge/monica/internal/artifact"
)

// LoadArtifactsTool lets the model see images the customer uploaded in the
// current session.
type LoadArtifactsTool struct {
	store *artifact.Store
}

func NewLoadArtifactsTool(store *artifact.Store) *LoadArtifactsTool {
	return &LoadArtifactsTool{store: store}
}

type loadArtifactsResult struct {
	ArtifactNames []string `json:"artifact_names"`
	Loaded        []string `json:"loaded,omitempty"`
	NotFound      []string `json:"not_found,omitempty"`
}

func (t *LoadArtifactsTool) Name() string { return string(ToolLoadArtifacts) }
func (t *LoadArtifactsTool) Description() string {
	return "Loads images the user uploaded in this conversation. Call with no names to list the available " +
		"artifacts; call with artifact_names to view those images in the next step."
}
func (t *LoadArtifactsTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"artifact_names": {
				"type": "array",
				"items": {"type": "string"},
				"description": "Names of the artifacts to load."
			}
		}
	}`)
}

func (t *LoadArtifactsTool) Execute(ctx context.Context, params map[string]any) (string, error) {
	tc := TurnCtx(ctx)
	if tc.SessionKey == "" {
		return "Error: no active session", nil
	}

	available, err := t.store.List(tc.SessionKey)
	if err != nil {
		return "", fmt.Errorf("list artifacts: %w", err)
	}

	res := loadArtifactsResult{ArtifactNames: make([]string, 0, len(available))}
	for _, a := range available {
		res.ArtifactNames = append(res.ArtifactNames, a.Name)
	}

	for _, name := range stringList(params["artifact_names"]) {
		path, err := t.store.Path(tc.SessionKey, name)
		switch {
		case errors.Is(err, artifact.ErrNotFound):
			res.NotFound = append(res.NotFound, name)
			continue
		case err != nil:
			return "", fmt.Errorf("resolve artifact %s: %w", name, err)
		}
		if tc.Attachments != nil {
			tc.Attachments.Add(path)
		}
		res.Loaded = append(res.Loaded, name)
	}

	return encodeResult(res)
}
