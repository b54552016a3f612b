package update

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sync/atomic"
	"testing"
	"time"

	"modnotifier/internal/domain"
	appErrors "modnotifier/internal/errors"
)

type registryPackage struct {
	Name    string          `json:"name"`
	Version *PackageVersion `json:"version,omitempty"`
}

func newRegistry(t *testing.T, packages []registryPackage) (*httptest.Server, *int32) {
	t.Helper()
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if got := r.Header.Get("Authorization"); got != "APIKey:secret" {
			t.Errorf("Authorization = %q, want %q", got, "APIKey:secret")
		}
		if got := r.Header.Get("Content-Type"); got != "application/json" {
			t.Errorf("Content-Type = %q", got)
		}
		var q packageQuery
		if err := json.NewDecoder(r.Body).Decode(&q); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if q.Type != "module" || q.Version != "12.331" {
			t.Errorf("unexpected query: %+v", q)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":   "success",
			"packages": packages,
		})
	}))
	t.Cleanup(server.Close)
	return server, &calls
}

func pkg(name, version string) registryPackage {
	return registryPackage{Name: name, Version: &PackageVersion{Version: version, CompatibleCoreVersion: "12"}}
}

func TestNewCheckerDefaults(t *testing.T) {
	c := NewChecker()
	if c.endpoint != DefaultEndpoint {
		t.Errorf("endpoint = %q, want %q", c.endpoint, DefaultEndpoint)
	}
	if c.packageType != DefaultPackageType {
		t.Errorf("packageType = %q, want %q", c.packageType, DefaultPackageType)
	}
	if c.chunkSize != DefaultChunkSize {
		t.Errorf("chunkSize = %d, want %d", c.chunkSize, DefaultChunkSize)
	}
	if c.httpClient == nil || c.httpClient.Timeout != DefaultTimeout {
		t.Errorf("httpClient should default to a %s timeout", DefaultTimeout)
	}
}

func TestNewCheckerWithOptions(t *testing.T) {
	customClient := &http.Client{}
	c := NewChecker(
		WithHTTPClient(customClient),
		WithTimeout(2*time.Second),
		WithEndpoint(" http://localhost/api "),
		WithPackageType("system"),
		WithChunkSize(10),
		WithChunkSize(0),
	)
	if c.httpClient != customClient {
		t.Error("custom HTTP client not applied")
	}
	if customClient.Timeout != 2*time.Second {
		t.Errorf("timeout = %s, want 2s", customClient.Timeout)
	}
	if c.endpoint != "http://localhost/api" {
		t.Errorf("endpoint = %q", c.endpoint)
	}
	if c.packageType != "system" {
		t.Errorf("packageType = %q", c.packageType)
	}
	if c.chunkSize != 10 {
		t.Errorf("chunkSize = %d, want 10 (non-positive sizes ignored)", c.chunkSize)
	}
}

func TestCheckerCheck(t *testing.T) {
	notes := registryPackage{Name: "bar", Version: &PackageVersion{Version: "v0.5.0", CompatibleCoreVersion: "11", Notes: "https://example.com/bar"}}
	server, _ := newRegistry(t, []registryPackage{
		pkg("foo", "1.3.0"),
		notes,
		pkg("baz", "1.9.9"),
		pkg("same", "3.0.0"),
		pkg("inactive", "9.0.0"),
	})

	modules := []domain.Module{
		{ID: "foo", Title: "Foo", Version: "v1.2.0", Active: true},
		{ID: "bar", Title: "Bar", Version: "0.4.2", Active: true},
		{ID: "baz", Title: "Baz", Version: "2.0.0", Active: true},
		{ID: "same", Title: "Same", Version: "v3.0.0", Active: true},
		{ID: "inactive", Title: "Inactive", Version: "1.0.0", Active: false},
		{ID: "local-only", Title: "Local", Version: "0.0.1", Active: true},
	}

	var stages []Stage
	c := NewChecker(WithEndpoint(server.URL), WithProgress(func(s Stage, _ string) {
		stages = append(stages, s)
	}))
	res := c.Check(context.Background(), Request{APIKey: "secret", CoreVersion: "12.331", Modules: modules})
	if res.Failed() {
		t.Fatalf("Check() failed: %v", res.Err)
	}

	want := []Record{
		{ID: "foo", Title: "Foo", Current: "1.2.0", Latest: "1.3.0", CompatibleCore: "12"},
		{ID: "bar", Title: "Bar", Current: "0.4.2", Latest: "0.5.0", CompatibleCore: "11", ReleaseNotes: "https://example.com/bar"},
	}
	if !reflect.DeepEqual(res.Updates, want) {
		t.Fatalf("updates = %+v\nwant %+v", res.Updates, want)
	}
	wantStages := []Stage{StageFetching, StageIndexing, StageComparing, StageDone}
	if !reflect.DeepEqual(stages, wantStages) {
		t.Fatalf("stages = %v, want %v", stages, wantStages)
	}
}

func TestCheckerCheckNoUpdatesIsNotFailure(t *testing.T) {
	server, _ := newRegistry(t, []registryPackage{pkg("foo", "1.0.0")})
	c := NewChecker(WithEndpoint(server.URL))

	res := c.Check(context.Background(), Request{
		APIKey:      "secret",
		CoreVersion: "12.331",
		Modules:     []domain.Module{{ID: "foo", Version: "1.0.0", Active: true}},
	})
	if res.Failed() {
		t.Fatalf("unexpected failure: %v", res.Err)
	}
	if res.Updates == nil || len(res.Updates) != 0 {
		t.Fatalf("expected empty non-nil updates, got %#v", res.Updates)
	}
}

func TestCheckerCheckMissingAPIKey(t *testing.T) {
	server, calls := newRegistry(t, nil)
	c := NewChecker(WithEndpoint(server.URL))

	for _, key := range []string{"", "   "} {
		res := c.Check(context.Background(), Request{APIKey: key, Modules: []domain.Module{{ID: "foo", Active: true}}})
		if !res.Failed() {
			t.Fatalf("expected failure for key %q", key)
		}
		if !appErrors.IsCode(res.Err, appErrors.CodeAuthMissing) {
			t.Fatalf("expected auth_missing, got %v", res.Err)
		}
		if res.Updates != nil {
			t.Fatalf("failed check should carry no updates")
		}
	}
	if n := atomic.LoadInt32(calls); n != 0 {
		t.Fatalf("registry was called %d times without an api key", n)
	}
}

func TestCheckerCheckFailures(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantCode appErrors.Code
	}{
		{name: "unauthorized", status: http.StatusUnauthorized, body: `{"status":"error"}`, wantCode: appErrors.CodeNetworkFailed},
		{name: "server error", status: http.StatusInternalServerError, body: ``, wantCode: appErrors.CodeNetworkFailed},
		{name: "status not success", status: http.StatusOK, body: `{"status":"error","message":"bad key"}`, wantCode: appErrors.CodeProtocolError},
		{name: "packages not array", status: http.StatusOK, body: `{"status":"success","packages":"nope"}`, wantCode: appErrors.CodeProtocolError},
		{name: "garbage body", status: http.StatusOK, body: `not json`, wantCode: appErrors.CodeProtocolError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = fmt.Fprint(w, tt.body)
			}))
			defer server.Close()

			c := NewChecker(WithEndpoint(server.URL))
			res := c.Check(context.Background(), Request{APIKey: "secret", Modules: []domain.Module{{ID: "foo", Active: true}}})
			if !res.Failed() {
				t.Fatalf("expected failure")
			}
			if got := appErrors.CodeOf(res.Err); got != tt.wantCode {
				t.Fatalf("code = %q, want %q (err: %v)", got, tt.wantCode, res.Err)
			}
			if res.Updates != nil {
				t.Fatalf("failed check should carry no updates")
			}
		})
	}
}

func TestCheckerCheckTransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := server.URL
	server.Close()

	c := NewChecker(WithEndpoint(url), WithTimeout(time.Second))
	res := c.Check(context.Background(), Request{APIKey: "secret"})
	if !appErrors.IsCode(res.Err, appErrors.CodeNetworkFailed) {
		t.Fatalf("expected network_failed, got %v", res.Err)
	}
}

func TestCheckerChunkSizeDoesNotChangeResults(t *testing.T) {
	var packages []registryPackage
	var modules []domain.Module
	for i := 0; i < 57; i++ {
		id := fmt.Sprintf("mod-%02d", i)
		packages = append(packages, pkg(id, fmt.Sprintf("1.%d.0", i%5)))
		modules = append(modules, domain.Module{ID: id, Title: id, Version: "1.2.0", Active: i%7 != 0})
	}
	server, _ := newRegistry(t, packages)

	baseline := NewChecker(WithEndpoint(server.URL), WithChunkSize(len(packages)+len(modules)))
	want := baseline.Check(context.Background(), Request{APIKey: "secret", CoreVersion: "12.331", Modules: modules})
	if want.Failed() {
		t.Fatalf("baseline failed: %v", want.Err)
	}
	if len(want.Updates) == 0 {
		t.Fatalf("fixture should produce updates")
	}

	for _, size := range []int{1, 2, 5, 13, 56, 57, 58} {
		yields := 0
		c := NewChecker(WithEndpoint(server.URL), WithChunkSize(size), WithYield(func() { yields++ }))
		got := c.Check(context.Background(), Request{APIKey: "secret", CoreVersion: "12.331", Modules: modules})
		if !reflect.DeepEqual(got.Updates, want.Updates) {
			t.Fatalf("chunk size %d changed results", size)
		}
		active := len(domain.ActiveModules(modules))
		wantYields := ceilDiv(len(packages), size) + ceilDiv(active, size)
		if yields != wantYields {
			t.Fatalf("chunk size %d: yields = %d, want %d", size, yields, wantYields)
		}
	}
}

func TestCheckerCustomComparator(t *testing.T) {
	server, _ := newRegistry(t, []registryPackage{pkg("foo", "1.0.0")})
	var seen [2]string
	c := NewChecker(WithEndpoint(server.URL), WithComparator(func(candidate, baseline string) bool {
		seen = [2]string{candidate, baseline}
		return true
	}))
	res := c.Check(context.Background(), Request{
		APIKey:      "secret",
		CoreVersion: "12.331",
		Modules:     []domain.Module{{ID: "foo", Version: "v1.0.0", Active: true}},
	})
	if len(res.Updates) != 1 {
		t.Fatalf("expected comparator decision to be honoured, got %+v", res.Updates)
	}
	if seen != [2]string{"1.0.0", "1.0.0"} {
		t.Fatalf("comparator received %v, want normalized versions", seen)
	}
}

func TestRecordFor(t *testing.T) {
	m := domain.Module{ID: "foo", Title: "", Version: "v1.2.0", Active: true}
	if _, ok := recordFor(m, PackageEntry{Name: "foo"}, IsNewerVersion); ok {
		t.Fatalf("entry without version should not produce a record")
	}
	if _, ok := recordFor(m, PackageEntry{Name: "foo", Version: &PackageVersion{}}, IsNewerVersion); ok {
		t.Fatalf("entry with empty version should not produce a record")
	}
	rec, ok := recordFor(m, PackageEntry{Name: "foo", Version: &PackageVersion{Version: "1.3.0"}}, IsNewerVersion)
	if !ok {
		t.Fatalf("expected a record")
	}
	if rec.ID != "foo" || rec.Title != "foo" || rec.Current != "1.2.0" || rec.Latest != "1.3.0" {
		t.Fatalf("unexpected record %+v", rec)
	}
}

func TestStageString(t *testing.T) {
	if StageComparing.String() != "comparing" || Stage(42).String() != "unknown" {
		t.Fatalf("unexpected stage strings")
	}
}

func ceilDiv(n, k int) int {
	return (n + k - 1) / k
}
