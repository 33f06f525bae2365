package learn

import (
	"errors"
	"fmt"
	"time"

	json "github.com/goccy/go-json"
	"github.com/oklog/ulid/v2"
)

// ErrBadArtifact covers blobs that cannot be decoded or do not belong together.
var ErrBadArtifact = errors.New("bad model artifact")

// Meta stamps every persisted model part.
type Meta struct {
	Version       string    `json:"version"`
	SchemaVersion int       `json:"schema_version"`
	TrainedAt     time.Time `json:"trained_at"`
	Samples       int       `json:"samples"`
}

// NewMeta stamps a fresh model version.
func NewMeta(schemaVersion, samples int, at time.Time) Meta {
	return Meta{
		Version:       ulid.MustNew(ulid.Timestamp(at), ulid.DefaultEntropy()).String(),
		SchemaVersion: schemaVersion,
		TrainedAt:     at.UTC(),
		Samples:       samples,
	}
}

type envelope struct {
	Role string          `json:"role"`
	Meta Meta            `json:"meta"`
	Body json.RawMessage `json:"body"`
}

// EncodeBlob wraps payload with its role and meta.
func EncodeBlob(role string, meta Meta, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", role, err)
	}
	return json.Marshal(envelope{Role: role, Meta: meta, Body: body})
}

// DecodeBlob unwraps b into payload after checking the role and schema.
func DecodeBlob(b []byte, role string, schemaVersion int, payload any) (Meta, error) {
	var env envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return Meta{}, fmt.Errorf("%w: %s: %v", ErrBadArtifact, role, err)
	}
	if env.Role != role {
		return Meta{}, fmt.Errorf("%w: want role %s, got %s", ErrBadArtifact, role, env.Role)
	}
	if env.Meta.SchemaVersion != schemaVersion {
		return Meta{}, fmt.Errorf("%w: %s has schema %d, want %d",
			ErrBadArtifact, role, env.Meta.SchemaVersion, schemaVersion)
	}
	if err := json.Unmarshal(env.Body, payload); err != nil {
		return Meta{}, fmt.Errorf("%w: %s body: %v", ErrBadArtifact, role, err)
	}
	return env.Meta, nil
}

// DecodeSet decodes one blob per role and requires them to share a version.
func DecodeSet(blobs map[string][]byte, schemaVersion int, parts map[string]any) (Meta, error) {
	var meta Meta
	first := true
	for role, payload := range parts {
		b, ok := blobs[role]
		if !ok {
			return Meta{}, fmt.Errorf("%w: %s missing", ErrBadArtifact, role)
		}
		m, err := DecodeBlob(b, role, schemaVersion, payload)
		if err != nil {
			return Meta{}, err
		}
		if first {
			meta, first = m, false
			continue
		}
		if m.Version != meta.Version {
			return Meta{}, fmt.Errorf("%w: %s version %s does not match %s",
				ErrBadArtifact, role, m.Version, meta.Version)
		}
	}
	return meta, nil
}
