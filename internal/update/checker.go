package update

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/hashicorp/go-cleanhttp"

	"modnotifier/internal/debug"
	"modnotifier/internal/domain"
	appErrors "modnotifier/internal/errors"
)

// Default configuration values.
const (
	DefaultEndpoint    = "https://foundryvtt.com/_api/packages/get"
	DefaultPackageType = "module"
	DefaultTimeout     = 30 * time.Second
)

// Error variables for specific error conditions.
var (
	ErrAuthMissing    = errors.New("registry api key is not configured")
	ErrNetworkFailure = errors.New("network request failed")
	ErrProtocol       = errors.New("invalid response from package registry")
)

// Record describes an installed module with a newer version on the registry.
type Record struct {
	ID             string `json:"id" yaml:"id"`
	Title          string `json:"title" yaml:"title"`
	Current        string `json:"current" yaml:"current"`
	Latest         string `json:"latest" yaml:"latest"`
	CompatibleCore string `json:"compatibleCore,omitempty" yaml:"compatibleCore,omitempty"`
	ReleaseNotes   string `json:"releaseNotes,omitempty" yaml:"releaseNotes,omitempty"`
}

// Request carries the inputs of a single check.
type Request struct {
	APIKey      string
	CoreVersion string
	Modules     []domain.Module
}

// Result is the outcome of a check. A failed check carries no updates; a
// successful check may carry zero.
type Result struct {
	Updates []Record
	Err     error
}

// Failed reports whether the check produced no result.
func (r Result) Failed() bool {
	return r.Err != nil
}

// Stage identifies the step a running check is in.
type Stage int

const (
	StageFetching Stage = iota
	StageIndexing
	StageComparing
	StageDone
)

// String returns the string representation of a Stage.
func (s Stage) String() string {
	switch s {
	case StageFetching:
		return "fetching"
	case StageIndexing:
		return "indexing"
	case StageComparing:
		return "comparing"
	case StageDone:
		return "done"
	default:
		return "unknown"
	}
}

// ProgressFunc observes stage transitions of a running check.
type ProgressFunc func(stage Stage, detail string)

// Checker compares installed modules against the package registry.
type Checker struct {
	endpoint    string
	packageType string
	chunkSize   int
	httpClient  *http.Client
	yield       YieldFunc
	newer       Comparator
	progress    ProgressFunc
}

// CheckerOption configures a Checker.
type CheckerOption func(*Checker)

// WithHTTPClient sets a custom HTTP client for the checker.
func WithHTTPClient(client *http.Client) CheckerOption {
	return func(c *Checker) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(timeout time.Duration) CheckerOption {
	return func(c *Checker) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// WithEndpoint overrides the registry endpoint.
func WithEndpoint(endpoint string) CheckerOption {
	return func(c *Checker) {
		if strings.TrimSpace(endpoint) != "" {
			c.endpoint = strings.TrimSpace(endpoint)
		}
	}
}

// WithPackageType overrides the package type sent in the query.
func WithPackageType(packageType string) CheckerOption {
	return func(c *Checker) {
		if strings.TrimSpace(packageType) != "" {
			c.packageType = strings.TrimSpace(packageType)
		}
	}
}

// WithChunkSize sets how many items are scanned between yields.
func WithChunkSize(size int) CheckerOption {
	return func(c *Checker) {
		if size > 0 {
			c.chunkSize = size
		}
	}
}

// WithYield sets the function called between chunks.
func WithYield(yield YieldFunc) CheckerOption {
	return func(c *Checker) {
		c.yield = yield
	}
}

// WithComparator replaces the newer-than predicate.
func WithComparator(newer Comparator) CheckerOption {
	return func(c *Checker) {
		if newer != nil {
			c.newer = newer
		}
	}
}

// WithProgress registers a stage observer.
func WithProgress(fn ProgressFunc) CheckerOption {
	return func(c *Checker) {
		c.progress = fn
	}
}

// NewChecker creates a registry checker.
func NewChecker(opts ...CheckerOption) *Checker {
	client := cleanhttp.DefaultPooledClient()
	client.Timeout = DefaultTimeout
	c := &Checker{
		endpoint:    DefaultEndpoint,
		packageType: DefaultPackageType,
		chunkSize:   DefaultChunkSize,
		httpClient:  client,
		newer:       IsNewerVersion,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Check fetches the registry package list and returns an update record for
// every active module whose registry version is strictly newer. Failures are
// logged and reported through Result.Err; Check never panics on a malformed
// response and never retries.
func (c *Checker) Check(ctx context.Context, req Request) Result {
	apiKey := strings.TrimSpace(req.APIKey)
	if apiKey == "" {
		debug.Logger().Warn().Msg("update check skipped: no api key configured")
		return Result{Err: classify(ErrAuthMissing)}
	}

	c.report(StageFetching, c.endpoint)
	packages, err := c.fetchPackages(ctx, apiKey, req.CoreVersion)
	if err != nil {
		classified := classify(err)
		debug.Logger().Error().
			Err(err).
			Str("code", string(appErrors.CodeOf(classified))).
			Str("endpoint", c.endpoint).
			Msg("failed to check for updates")
		return Result{Err: classified}
	}

	c.report(StageIndexing, "")
	index := indexPackages(packages, c.chunkSize, c.yield)

	c.report(StageComparing, "")
	updates := c.compareModules(domain.ActiveModules(req.Modules), index)

	debug.Logger().Debug().
		Int("packages", len(packages)).
		Int("indexed", len(index)).
		Int("updates", len(updates)).
		Msg("update check finished")
	c.report(StageDone, "")
	return Result{Updates: updates}
}

// compareModules walks the modules chunk by chunk, in order.
func (c *Checker) compareModules(modules []domain.Module, index map[string]PackageEntry) []Record {
	updates := make([]Record, 0)
	ForEachChunk(modules, c.chunkSize, c.yield, func(m domain.Module) {
		remote, ok := index[m.ID]
		if !ok {
			return
		}
		if rec, ok := recordFor(m, remote, c.newer); ok {
			updates = append(updates, rec)
		}
	})
	return updates
}

// recordFor builds the update record for one module, if the registry has a
// strictly newer version.
func recordFor(m domain.Module, remote PackageEntry, newer Comparator) (Record, bool) {
	if remote.Version == nil || remote.Version.Version == "" {
		return Record{}, false
	}
	current := NormalizeVersion(m.Version)
	latest := NormalizeVersion(remote.Version.Version)
	if !newer(latest, current) {
		return Record{}, false
	}
	return Record{
		ID:             m.ID,
		Title:          m.DisplayTitle(),
		Current:        current,
		Latest:         latest,
		CompatibleCore: remote.Version.CompatibleCoreVersion,
		ReleaseNotes:   remote.Version.Notes,
	}, true
}

func (c *Checker) report(stage Stage, detail string) {
	if c.progress != nil {
		c.progress(stage, detail)
	}
}

// classify attaches the structured error code matching a check failure.
func classify(err error) error {
	switch {
	case errors.Is(err, ErrAuthMissing):
		return appErrors.New(appErrors.CodeAuthMissing, "registry api key is not configured", err)
	case errors.Is(err, ErrProtocol):
		return appErrors.New(appErrors.CodeProtocolError, err.Error(), err)
	case errors.Is(err, ErrNetworkFailure):
		return appErrors.New(appErrors.CodeNetworkFailed, err.Error(), err)
	default:
		return appErrors.New(appErrors.CodeUnknown, err.Error(), err)
	}
}
