package cache

import (
	"time"

	"github.com/Norgate-AV/cargo-xwin/internal/target"
)

// Entry represents a ready payload directory
type Entry struct {
	// Key is the payload identity shared by every triple that needs it
	Key string `json:"key"`

	// Name is the directory name under sdk/, the key plus extras suffix
	Name string `json:"name"`

	// Backend the payload serves (clang-cl or clang)
	Backend string `json:"backend"`

	// Provider that populated the entry
	Provider string `json:"provider"`

	Arches          []string `json:"arches,omitempty"`
	Variants        []string `json:"variants,omitempty"`
	ManifestVersion string   `json:"manifest_version,omitempty"`
	SDKVersion      string   `json:"sdk_version,omitempty"`
	CRTVersion      string   `json:"crt_version,omitempty"`
	IncludeATL      bool     `json:"include_atl,omitempty"`

	Extras target.Extras `json:"extras"`

	// Upstream version reported by the provider
	Version string `json:"version,omitempty"`

	// Where the payload was downloaded from
	Source string `json:"source,omitempty"`

	// BLAKE3 of the downloaded archive, if any
	Fingerprint string `json:"fingerprint,omitempty"`

	// Timestamp when this entry became ready
	Timestamp time.Time `json:"timestamp"`
}

func newEntry(spec target.Spec, name, provider string) Entry {
	e := Entry{
		Key:      spec.CacheKey(),
		Name:     name,
		Backend:  string(spec.Backend),
		Provider: provider,
		Extras:   spec.Extras(),
	}

	if spec.Backend != target.Clang {
		for _, a := range spec.PayloadArches {
			e.Arches = append(e.Arches, string(a))
		}
		for _, v := range spec.Variants {
			e.Variants = append(e.Variants, string(v))
		}
		e.ManifestVersion = spec.ManifestVersion
		e.SDKVersion = spec.SDKVersion
		e.CRTVersion = spec.CRTVersion
		e.IncludeATL = spec.IncludeATL
	}

	return e
}
