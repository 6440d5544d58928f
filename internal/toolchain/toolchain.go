// Package toolchain renders the CMake toolchain file cmake-rs picks up
// through CMAKE_TOOLCHAIN_FILE_<target>.
package toolchain

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"text/template"

	"github.com/Norgate-AV/cargo-xwin/internal/compiler"
	"github.com/Norgate-AV/cargo-xwin/internal/env"
	"github.com/Norgate-AV/cargo-xwin/internal/target"
)

// OverrideName is written next to every toolchain file
const OverrideName = "override.cmake"

//go:embed templates/*.tmpl
var templates embed.FS

var (
	toolchainTemplate = template.Must(template.ParseFS(templates, "templates/toolchain.cmake.tmpl"))
	overrideTemplate  = template.Must(template.ParseFS(templates, "templates/override.cmake.tmpl"))
)

// Descriptor is the rendered text of both files.
type Descriptor struct {
	Toolchain string
	Override  string

	// Names of the quirks the override applies
	Quirks []string
}

type toolchainData struct {
	Triple         string
	MinimumVersion string
	Processor      string

	CC, CXX, RC, AR, Linker string
	LinkerType              string

	RuntimeLibrary string
	CompileFlags   []string
	CXXFlags       []string
	LinkFlags      []string
	OverrideName   string
}

type overrideSection struct {
	Name  string
	Lines []string
}

// Render produces the toolchain and override text for plan. The output
// depends only on the plan.
func Render(plan *env.Plan) (Descriptor, error) {
	if plan == nil || plan.Backend == nil {
		return Descriptor{}, errors.New("toolchain: plan has no backend")
	}

	b := plan.Backend
	data := toolchainData{
		Triple:         plan.Spec.Triple,
		Processor:      compiler.CMakeProcessor(plan.Spec.Triple),
		CC:             b.CC,
		CXX:            b.CXX,
		RC:             b.RC,
		AR:             b.AR,
		Linker:         b.Linker,
		RuntimeLibrary: "MultiThreadedDLL",
		CompileFlags:   b.CompileFlags(plan.Spec.Triple),
		CXXFlags:       b.CXXFlags(),
		OverrideName:   OverrideName,
	}

	if plan.StaticCRT {
		data.RuntimeLibrary = "MultiThreaded"
	}

	for _, dir := range plan.Paths.Include {
		data.CompileFlags = append(data.CompileFlags, b.IncludeFlag(env.QuoteIfSpaced(dir)))
	}

	if b.Kind == target.Clang {
		// CMAKE_LINKER_TYPE needs 3.29
		data.MinimumVersion = "3.29"
		data.LinkerType = "LLD"
	} else {
		data.LinkFlags = append(data.LinkFlags, "/manifest:no")
	}

	for _, dir := range plan.Paths.Lib {
		data.LinkFlags = append(data.LinkFlags, b.LibFlag(env.QuoteIfSpaced(dir)))
	}

	var sections []overrideSection
	for _, q := range Quirks {
		if lines := q.Lines(plan); len(lines) > 0 {
			sections = append(sections, overrideSection{Name: q.Name, Lines: lines})
		}
	}

	var tc, ov bytes.Buffer
	if err := toolchainTemplate.Execute(&tc, data); err != nil {
		return Descriptor{}, fmt.Errorf("failed to render toolchain for %s: %w", plan.Spec.Triple, err)
	}

	if err := overrideTemplate.Execute(&ov, sections); err != nil {
		return Descriptor{}, fmt.Errorf("failed to render override for %s: %w", plan.Spec.Triple, err)
	}

	d := Descriptor{Toolchain: tc.String(), Override: ov.String()}
	for _, s := range sections {
		d.Quirks = append(d.Quirks, s.Name)
	}

	return d, nil
}

// Write stores the toolchain at path and the override beside it. Files
// that already hold the same bytes are left untouched so cmake does not
// see a changed toolchain.
func Write(d Descriptor, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}

	if err := writeFile(filepath.Join(dir, OverrideName), d.Override); err != nil {
		return err
	}

	return writeFile(path, d.Toolchain)
}

func writeFile(path, content string) error {
	if existing, err := os.ReadFile(path); err == nil && string(existing) == content {
		return nil
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", path, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}

	return nil
}
