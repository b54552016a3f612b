package update

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/cockroachdb/errors"
	"github.com/tidwall/gjson"
)

// maxResponseBytes bounds how much of a registry response is read.
const maxResponseBytes = 64 << 20

// PackageVersion is the release information the registry reports for a package.
type PackageVersion struct {
	Version               string `json:"version"`
	CompatibleCoreVersion string `json:"compatible_core_version"`
	Notes                 string `json:"notes,omitempty"`
}

// PackageEntry is one element of the registry's package list.
type PackageEntry struct {
	Name    string          `json:"name"`
	Version *PackageVersion `json:"version"`
}

// packageQuery is the JSON body posted to the registry.
type packageQuery struct {
	Type    string `json:"type"`
	Version string `json:"version"`
}

// fetchPackages posts the package-list query and returns the raw package list.
func (c *Checker) fetchPackages(ctx context.Context, apiKey, coreVersion string) ([]gjson.Result, error) {
	body, err := json.Marshal(packageQuery{Type: c.packageType, Version: coreVersion})
	if err != nil {
		return nil, errors.Wrap(err, "encode package query")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Mark(errors.Wrap(err, "create request"), ErrNetworkFailure)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "APIKey:"+apiKey)
	req.Header.Set("User-Agent", "modnotifier-update-checker")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Mark(errors.Wrap(err, "post package list"), ErrNetworkFailure)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, errors.Mark(errors.Newf("registry responded with status %d", resp.StatusCode), ErrNetworkFailure)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, errors.Mark(errors.Wrap(err, "read response"), ErrNetworkFailure)
	}
	return parsePackageList(data)
}

// parsePackageList validates the response envelope and returns its packages.
func parsePackageList(data []byte) ([]gjson.Result, error) {
	if !gjson.ValidBytes(data) {
		return nil, errors.Mark(errors.New("response is not valid JSON"), ErrProtocol)
	}
	if status := gjson.GetBytes(data, "status"); status.Type != gjson.String || status.Str != "success" {
		return nil, errors.Mark(errors.Newf("unexpected response status %q", status.Raw), ErrProtocol)
	}
	packages := gjson.GetBytes(data, "packages")
	if !packages.IsArray() {
		return nil, errors.Mark(errors.New("response packages is not an array"), ErrProtocol)
	}
	return packages.Array(), nil
}

// packageEntryFrom converts one raw package. Entries without a name or a
// version are rejected.
func packageEntryFrom(raw gjson.Result) (PackageEntry, bool) {
	name := raw.Get("name")
	version := raw.Get("version")
	if name.String() == "" || !truthy(version) {
		return PackageEntry{}, false
	}
	entry := PackageEntry{Name: name.String()}
	if version.IsObject() {
		entry.Version = &PackageVersion{
			Version:               version.Get("version").String(),
			CompatibleCoreVersion: version.Get("compatible_core_version").String(),
			Notes:                 version.Get("notes").String(),
		}
	}
	return entry, true
}

func truthy(r gjson.Result) bool {
	switch r.Type {
	case gjson.Null, gjson.False:
		return false
	case gjson.String:
		return r.Str != ""
	case gjson.Number:
		return r.Num != 0
	default:
		return r.Exists()
	}
}

// indexPackages maps package names to entries, chunk by chunk. Later
// duplicates overwrite earlier ones.
func indexPackages(packages []gjson.Result, size int, yield YieldFunc) map[string]PackageEntry {
	index := make(map[string]PackageEntry, len(packages))
	ForEachChunk(packages, size, yield, func(raw gjson.Result) {
		if entry, ok := packageEntryFrom(raw); ok {
			index[entry.Name] = entry
		}
	})
	return index
}
