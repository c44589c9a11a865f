package metadata

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/andybalholm/brotli"
	"github.com/arthur-debert/npkg/pkg/errors"
	"github.com/schollz/progressbar/v3"
)

// DefaultBaseURL is where NixOS releases are published
const DefaultBaseURL = "https://releases.nixos.org/nixos"

// ReleaseURL returns the packages.json.br location for a nixpkgs version
// such as "23.11.20240101.abcdef0". Pre-release versions ("24.05pre...")
// are published under "unstable".
func ReleaseURL(baseURL, version string) string {
	release := version
	if len(release) > 5 {
		release = release[:5]
	}
	if len(version) >= 8 && version[5:8] == "pre" {
		release = "unstable"
	}
	return fmt.Sprintf("%s/%s/nixos-%s/packages.json.br", baseURL, release, version)
}

// download fetches url and returns the brotli-decoded body
func (c *Cache) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrDownload, "invalid metadata url %s", url)
	}

	c.logger.Info().Str("url", url).Msg("Downloading package metadata")
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrDownload, "failed to download %s", url)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Newf(errors.ErrDownload, "failed to download %s: %s", url, resp.Status).
			WithDetail("status", resp.StatusCode)
	}

	var body io.Reader = resp.Body
	if c.progress != nil {
		bar := progressbar.NewOptions64(resp.ContentLength,
			progressbar.OptionSetWriter(c.progress),
			progressbar.OptionSetDescription("Downloading package metadata"),
			progressbar.OptionShowBytes(true),
			progressbar.OptionSetRenderBlankState(true),
			progressbar.OptionClearOnFinish(),
		)
		defer func() { _ = bar.Finish() }()
		body = io.TeeReader(resp.Body, bar)
	}

	var raw bytes.Buffer
	if _, err := io.Copy(&raw, brotli.NewReader(body)); err != nil {
		return nil, errors.Wrapf(err, errors.ErrDownload, "failed to decode %s", url)
	}
	return raw.Bytes(), nil
}
