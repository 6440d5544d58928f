package cargo

import (
	"bytes"
	"context"
	"fmt"

	"github.com/goccy/go-json"
)

// Metadata is the part of `cargo metadata` output cargo-xwin uses.
type Metadata struct {
	TargetDirectory string `json:"target_directory"`
	WorkspaceRoot   string `json:"workspace_root"`
}

// Metadata asks cargo where the workspace for inv builds to.
func (cb *CommandBuilder) Metadata(ctx context.Context, inv Invocation, env []string) (*Metadata, error) {
	meta := Invocation{
		Subcommand: "metadata",
		CargoArgs:  []string{"--format-version", "1", "--no-deps"},
		WorkDir:    inv.WorkDir,
	}

	if inv.ManifestPath != "" {
		meta.CargoArgs = append(meta.CargoArgs, "--manifest-path", inv.ManifestPath)
	}

	var out bytes.Buffer
	if err := cb.run(ctx, meta, env, nil, &out); err != nil {
		return nil, err
	}

	var m Metadata
	if err := json.Unmarshal(out.Bytes(), &m); err != nil {
		return nil, fmt.Errorf("failed to parse cargo metadata: %w", err)
	}

	return &m, nil
}
