package host

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"modnotifier/internal/debug"
	"modnotifier/internal/domain"
	appErrors "modnotifier/internal/errors"
)

// ManifestFileName is the manifest every installed module carries.
const ManifestFileName = "module.json"

// moduleManifest holds the manifest fields the notifier reads. Older
// manifests name the module with "name" instead of "id".
type moduleManifest struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Title   string `json:"title"`
	Version string `json:"version"`
}

// ManifestDir lists modules from a directory of installed modules laid out as
// <dir>/<module>/module.json.
type ManifestDir struct {
	dir    string
	active map[string]struct{}
}

// NewManifestDir creates a lister over dir. When active is non-empty only the
// named modules are reported as active; otherwise every module is.
func NewManifestDir(dir string, active []string) *ManifestDir {
	md := &ManifestDir{dir: dir}
	for _, id := range active {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if md.active == nil {
			md.active = make(map[string]struct{})
		}
		md.active[id] = struct{}{}
	}
	return md
}

// Modules implements ModuleLister. Modules are sorted by directory name;
// directories without a readable manifest are skipped.
func (m *ManifestDir) Modules(ctx context.Context) ([]domain.Module, error) {
	entries, err := os.ReadDir(m.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, appErrors.New(appErrors.CodeNotFound, fmt.Sprintf("modules directory %s does not exist", m.dir), err)
	}
	if err != nil {
		return nil, appErrors.New(appErrors.CodeStorageFailed, fmt.Sprintf("read modules directory %s", m.dir), err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var modules []domain.Module
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !entry.IsDir() {
			continue
		}
		mod, err := m.readManifest(filepath.Join(m.dir, entry.Name(), ManifestFileName))
		if err != nil {
			debug.Logger().Warn().Err(err).Str("module", entry.Name()).Msg("skipping module manifest")
			continue
		}
		modules = append(modules, mod)
	}
	return modules, nil
}

func (m *ManifestDir) readManifest(path string) (domain.Module, error) {
	//nolint:gosec // G304: Manifest paths come from the configured modules directory
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Module{}, fmt.Errorf("read %s: %w", path, err)
	}
	var manifest moduleManifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return domain.Module{}, fmt.Errorf("parse %s: %w", path, err)
	}
	id := manifest.ID
	if strings.TrimSpace(id) == "" {
		id = manifest.Name
	}
	return domain.NewModule(id, manifest.Title, manifest.Version, m.isActive(id))
}

func (m *ManifestDir) isActive(id string) bool {
	if len(m.active) == 0 {
		return true
	}
	_, ok := m.active[strings.TrimSpace(id)]
	return ok
}
