package cargo

import (
	"bytes"
	"io"
	"slices"

	"github.com/goccy/go-json"
)

// Artifact is a compiler-artifact message from cargo.
type Artifact struct {
	PackageID    string `json:"package_id"`
	ManifestPath string `json:"manifest_path"`

	Target struct {
		Name string   `json:"name"`
		Kind []string `json:"kind"`
	} `json:"target"`

	Profile struct {
		Test bool `json:"test"`
	} `json:"profile"`

	// Empty for libraries and build script outputs
	Executable string `json:"executable"`

	Fresh bool `json:"fresh"`
}

// HasKind reports whether the artifact's target has kind k
func (a Artifact) HasKind(k string) bool {
	return slices.Contains(a.Target.Kind, k)
}

type message struct {
	Reason string `json:"reason"`
	Artifact
}

// messageWriter parses cargo's JSON lines. Anything that is not a JSON
// object is forwarded to out unchanged.
type messageWriter struct {
	out       io.Writer
	buf       bytes.Buffer
	artifacts []Artifact
}

func newMessageWriter(out io.Writer) *messageWriter {
	return &messageWriter{out: out}
}

func (w *messageWriter) Write(p []byte) (int, error) {
	w.buf.Write(p)

	for {
		i := bytes.IndexByte(w.buf.Bytes(), '\n')
		if i < 0 {
			break
		}

		line := w.buf.Next(i + 1)
		w.line(line)
	}

	return len(p), nil
}

// Flush handles a final line without a newline
func (w *messageWriter) Flush() {
	if w.buf.Len() > 0 {
		w.line(w.buf.Next(w.buf.Len()))
	}
}

func (w *messageWriter) line(line []byte) {
	trimmed := bytes.TrimSpace(line)
	if len(trimmed) == 0 {
		return
	}

	if trimmed[0] != '{' {
		if w.out != nil {
			w.out.Write(line)
		}
		return
	}

	var msg message
	if err := json.Unmarshal(trimmed, &msg); err != nil {
		if w.out != nil {
			w.out.Write(line)
		}
		return
	}

	if msg.Reason == "compiler-artifact" {
		w.artifacts = append(w.artifacts, msg.Artifact)
	}
}

func (w *messageWriter) Artifacts() []Artifact {
	return w.artifacts
}

// Executables filters artifacts that produced a runnable file outside the
// test profile.
func Executables(artifacts []Artifact) []Artifact {
	var out []Artifact
	for _, a := range artifacts {
		if a.Executable == "" || a.Profile.Test {
			continue
		}
		out = append(out, a)
	}

	return out
}
