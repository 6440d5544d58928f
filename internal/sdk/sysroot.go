package sdk

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"

	"github.com/goccy/go-json"
	"lukechampine.com/blake3"

	"github.com/Norgate-AV/cargo-xwin/internal/console"
	"github.com/Norgate-AV/cargo-xwin/internal/target"
)

const (
	DefaultGitHubAPI     = "https://api.github.com"
	SysrootRepository    = "trcrsired/windows-msvc-sysroot"
	SysrootAssetName     = "windows-msvc-sysroot.tar.xz"
	gitHubAPIVersion     = "2022-11-28"
	downloadStagingEntry = ".download"
)

type gitHubRelease struct {
	TagName string `json:"tag_name"`
	Assets  []struct {
		Name               string `json:"name"`
		BrowserDownloadURL string `json:"browser_download_url"`
		Size               int64  `json:"size"`
	} `json:"assets"`
}

// SysrootProvider downloads the windows-msvc-sysroot release used by the
// clang backend.
type SysrootProvider struct {
	Client *http.Client

	// Base URL of the GitHub REST API
	APIBase    string
	Repository string
	Asset      string

	// Token sent as a bearer token when set
	Token string

	// Direct archive URL, skipping the release lookup
	URL string
}

// NewSysrootProvider creates a provider for the latest upstream release.
// XWIN_SYSROOT_URL overrides the archive location.
func NewSysrootProvider() *SysrootProvider {
	return &SysrootProvider{
		Client:     http.DefaultClient,
		APIBase:    DefaultGitHubAPI,
		Repository: SysrootRepository,
		Asset:      SysrootAssetName,
		Token:      os.Getenv("GITHUB_TOKEN"),
		URL:        os.Getenv("XWIN_SYSROOT_URL"),
	}
}

func (p *SysrootProvider) Name() string {
	return "windows-msvc-sysroot"
}

// Fetch downloads and unpacks the sysroot into dest
func (p *SysrootProvider) Fetch(ctx context.Context, spec target.Spec, dest string) (Result, error) {
	downloadURL, version, size := p.URL, "custom", int64(-1)

	if downloadURL == "" {
		release, err := p.latestRelease(ctx)
		if err != nil {
			return Result{}, err
		}

		for _, a := range release.Assets {
			if a.Name == p.Asset {
				downloadURL, size = a.BrowserDownloadURL, a.Size
				break
			}
		}

		if downloadURL == "" {
			return Result{}, fmt.Errorf("release %s of %s has no asset %s", release.TagName, p.Repository, p.Asset)
		}

		version = release.TagName
	}

	workDir := filepath.Join(dest, downloadStagingEntry)
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return Result{}, err
	}
	defer os.RemoveAll(workDir)

	archive := filepath.Join(workDir, archiveName(downloadURL, p.Asset))
	fingerprint, err := p.download(ctx, downloadURL, archive, size)
	if err != nil {
		return Result{}, err
	}

	if err := Extract(ctx, archive, dest); err != nil {
		return Result{}, fmt.Errorf("failed to unpack %s: %w", path.Base(archive), err)
	}

	return Result{
		Version:     version,
		Source:      downloadURL,
		Fingerprint: fingerprint,
	}, nil
}

func (p *SysrootProvider) latestRelease(ctx context.Context) (*gitHubRelease, error) {
	endpoint := fmt.Sprintf("%s/repos/%s/releases/latest", p.APIBase, p.Repository)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", gitHubAPIVersion)
	if p.Token != "" {
		req.Header.Set("Authorization", "Bearer "+p.Token)
	}

	resp, err := p.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to get GitHub release: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to get GitHub release: %s", resp.Status)
	}

	var release gitHubRelease
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		return nil, fmt.Errorf("failed to decode GitHub release: %w", err)
	}

	return &release, nil
}

// download streams url into dest and returns the BLAKE3 of the bytes read
func (p *SysrootProvider) download(ctx context.Context, rawURL, dest string, size int64) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", err
	}

	resp, err := p.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to download %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to download %s: %s", rawURL, resp.Status)
	}

	if resp.ContentLength > 0 {
		size = resp.ContentLength
	}

	out, err := os.Create(dest)
	if err != nil {
		return "", err
	}

	h := blake3.New(32, nil)
	bar := console.NewProgress(size, "Downloading "+filepath.Base(dest))

	_, err = io.Copy(io.MultiWriter(out, h, bar), resp.Body)
	_ = bar.Finish()
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return "", fmt.Errorf("failed to download %s: %w", rawURL, err)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

func archiveName(rawURL, fallback string) string {
	if u, err := url.Parse(rawURL); err == nil {
		if base := path.Base(u.Path); base != "." && base != "/" && base != "" {
			return base
		}
	}

	return fallback
}
