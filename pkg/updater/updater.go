// Package updater checks a release feed for a newer castrank version.
package updater

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// DefaultReleasesURL is the latest-release endpoint for castrank.
const DefaultReleasesURL = "https://api.github.com/repos/castrank/castrank/releases/latest"

type Release struct {
	TagName string `json:"tag_name"`
	HTMLURL string `json:"html_url"`
}

// CheckForUpdates fetches the latest release from url and reports whether
// it is newer than current.
func CheckForUpdates(ctx context.Context, url, current string) (Release, bool, error) {
	// Short timeout and a single retry: this runs on demand from the CLI.
	client := retryablehttp.NewClient()
	client.HTTPClient.Timeout = 5 * time.Second
	client.RetryMax = 1
	client.Logger = nil

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Release{}, false, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return Release{}, false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Release{}, false, fmt.Errorf("release feed returned status: %s", resp.Status)
	}

	var rel Release
	if err := json.NewDecoder(resp.Body).Decode(&rel); err != nil {
		return Release{}, false, fmt.Errorf("decode release: %w", err)
	}
	if rel.TagName == "" {
		return Release{}, false, fmt.Errorf("release has no tag")
	}
	return rel, CompareVersions(rel.TagName, current) > 0, nil
}

// CompareVersions returns 1 if v1 > v2, -1 if v1 < v2, 0 if equal.
// Versions are dotted numbers with an optional "v" prefix and "-suffix";
// a suffixed version sorts before the same version without one.
func CompareVersions(v1, v2 string) int {
	core1, pre1 := splitVersion(v1)
	core2, pre2 := splitVersion(v2)

	for i := 0; i < max(len(core1), len(core2)); i++ {
		a, b := segment(core1, i), segment(core2, i)
		if a != b {
			if a > b {
				return 1
			}
			return -1
		}
	}

	switch {
	case pre1 == pre2:
		return 0
	case pre1 == "":
		return 1
	case pre2 == "":
		return -1
	case pre1 > pre2:
		return 1
	default:
		return -1
	}
}

func splitVersion(v string) (core []string, pre string) {
	v = strings.TrimPrefix(strings.TrimSpace(v), "v")
	v, pre, _ = strings.Cut(v, "-")
	return strings.Split(v, "."), pre
}

// segment returns the i-th numeric segment, treating missing or malformed
// segments as zero.
func segment(core []string, i int) int {
	if i >= len(core) {
		return 0
	}
	n, err := strconv.Atoi(core[i])
	if err != nil {
		return 0
	}
	return n
}
