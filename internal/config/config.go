package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

const (
	KeyAPIKey = "api-key"

	KeyRegistryEndpoint    = "registry.endpoint"
	KeyRegistryPackageType = "registry.package-type"
	KeyCoreVersion         = "core-version"

	KeyChunkSize    = "check.chunk-size"
	KeyInitialDelay = "check.initial-delay"
	KeyTimeout      = "check.timeout"

	KeyWorldDatabase = "world.database"
	KeyModulesDir    = "world.modules-dir"
	KeyActiveModules = "world.active-modules"
	KeyWorldUser     = "world.user"

	KeyWebhookURL   = "notify.webhook"
	KeyReadmeURL    = "notify.readme-url"
	KeyOutputFormat = "output.format"
)

const (
	// DefaultInitialDelay is how long a session waits before its first check.
	DefaultInitialDelay = 7500 * time.Millisecond
	// DefaultCoreVersion is sent to the registry when no core version is configured.
	DefaultCoreVersion = "13.345"
	// DefaultReadmeURL points administrators at the key setup instructions.
	DefaultReadmeURL = "https://github.com/modnotifier/modnotifier#api-key"

	configDirName  = ".modnotifier"
	configFileName = "config.yaml"
	envPrefix      = "MN"
)

type initSettings struct {
	workingDir        string
	projectConfigPath string
	userConfigPath    string
}

// Option configures Initialize behaviour. Useful for tests to override paths.
type Option func(*initSettings)

// WithWorkingDir overrides the directory used for project config discovery.
func WithWorkingDir(dir string) Option {
	return func(cfg *initSettings) {
		cfg.workingDir = dir
	}
}

// WithProjectConfig explicitly sets the project config path instead of discovery.
func WithProjectConfig(path string) Option {
	return func(cfg *initSettings) {
		cfg.projectConfigPath = path
	}
}

// WithUserConfig overrides the default user config path.
func WithUserConfig(path string) Option {
	return func(cfg *initSettings) {
		cfg.userConfigPath = path
	}
}

var (
	configOnce sync.Once
	configMu   sync.RWMutex
	configInst *viper.Viper
	initErr    error

	// writablePath is the config file that Save writes to, resolved during
	// Initialize: the project config if one exists, otherwise the user config.
	writablePath string
)

// Initialize loads configuration using the precedence:
// defaults < user config < project config < environment variables < overrides.
func Initialize(opts ...Option) error {
	configOnce.Do(func() {
		settings := initSettings{}
		for _, opt := range opts {
			opt(&settings)
		}
		initErr = configure(&settings)
	})
	return initErr
}

// ApplyOverrides injects values typically coming from CLI flags.
func ApplyOverrides(overrides map[string]any) error {
	if len(overrides) == 0 {
		return nil
	}
	if err := Initialize(); err != nil {
		return err
	}
	configMu.Lock()
	defer configMu.Unlock()
	if configInst == nil {
		return fmt.Errorf("configuration not initialized")
	}
	for k, v := range overrides {
		configInst.Set(k, v)
	}
	return nil
}

// GetString fetches a string configuration value, initializing on demand.
func GetString(key string) string {
	return read(func(v *viper.Viper) string { return v.GetString(key) })
}

// GetStringSlice fetches a list configuration value, initializing on demand.
func GetStringSlice(key string) []string {
	return read(func(v *viper.Viper) []string { return v.GetStringSlice(key) })
}

// GetBool fetches a bool configuration value, initializing on demand.
func GetBool(key string) bool {
	return read(func(v *viper.Viper) bool { return v.GetBool(key) })
}

// GetInt fetches an integer configuration value, initializing on demand.
func GetInt(key string) int {
	return read(func(v *viper.Viper) int { return v.GetInt(key) })
}

// GetDuration fetches a duration configuration value, initializing on demand.
func GetDuration(key string) time.Duration {
	return read(func(v *viper.Viper) time.Duration { return v.GetDuration(key) })
}

// Set updates a configuration key at runtime, initializing on demand.
func Set(key string, value any) error {
	if err := Initialize(); err != nil {
		return err
	}
	configMu.Lock()
	defer configMu.Unlock()
	if configInst == nil {
		return fmt.Errorf("configuration not initialized")
	}
	configInst.Set(key, value)
	return nil
}

func configure(settings *initSettings) error {
	workingDir := strings.TrimSpace(settings.workingDir)
	if workingDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("determine working directory: %w", err)
		}
		workingDir = wd
	}

	userConfigPath := strings.TrimSpace(settings.userConfigPath)
	if userConfigPath == "" {
		path, err := defaultUserConfigPath()
		if err != nil {
			return err
		}
		userConfigPath = path
	}

	projectConfigPath := strings.TrimSpace(settings.projectConfigPath)
	if projectConfigPath == "" {
		path, err := findProjectConfig(workingDir)
		if err != nil {
			return err
		}
		projectConfigPath = path
	}

	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := mergeConfigFile(v, userConfigPath); err != nil {
		return fmt.Errorf("load user config: %w", err)
	}
	if err := mergeConfigFile(v, projectConfigPath); err != nil {
		return fmt.Errorf("load project config: %w", err)
	}

	configMu.Lock()
	defer configMu.Unlock()
	configInst = v
	writablePath = userConfigPath
	if projectConfigPath != "" {
		writablePath = projectConfigPath
	}
	return nil
}

func mergeConfigFile(v *viper.Viper, path string) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("config path %s is a directory", path)
	}
	//nolint:gosec // G304: Config loader intentionally reads user and project config files
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := v.MergeConfig(bytes.NewReader(data)); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("determine user home: %w", err)
	}
	return filepath.Join(home, configDirName, configFileName), nil
}

func findProjectConfig(startDir string) (string, error) {
	if strings.TrimSpace(startDir) == "" {
		return "", nil
	}
	dir := startDir
	for {
		candidate := filepath.Join(dir, configDirName, configFileName)
		info, err := os.Stat(candidate)
		if err == nil {
			if info.IsDir() {
				return "", fmt.Errorf("config path %s is a directory", candidate)
			}
			return candidate, nil
		}
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("stat %s: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil
		}
		dir = parent
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(KeyAPIKey, "")
	v.SetDefault(KeyRegistryEndpoint, "https://foundryvtt.com/_api/packages/get")
	v.SetDefault(KeyRegistryPackageType, "module")
	v.SetDefault(KeyCoreVersion, DefaultCoreVersion)
	v.SetDefault(KeyChunkSize, 500)
	v.SetDefault(KeyInitialDelay, DefaultInitialDelay)
	v.SetDefault(KeyTimeout, 30*time.Second)
	v.SetDefault(KeyWorldDatabase, "")
	v.SetDefault(KeyModulesDir, "")
	v.SetDefault(KeyActiveModules, []string{})
	v.SetDefault(KeyWorldUser, "")
	v.SetDefault(KeyWebhookURL, "")
	v.SetDefault(KeyReadmeURL, DefaultReadmeURL)
	v.SetDefault(KeyOutputFormat, "rich")
}

// read runs fn against the shared instance under the read lock. Viper is not
// safe for concurrent use and WatchAPIKey writes from its own goroutine.
func read[T any](fn func(*viper.Viper) T) T {
	var zero T
	if err := Initialize(); err != nil {
		return zero
	}
	configMu.RLock()
	defer configMu.RUnlock()
	if configInst == nil {
		return zero
	}
	return fn(configInst)
}

// reset clears package state for tests.
//
//nolint:unused // Used in config_test.go
func reset() {
	configMu.Lock()
	defer configMu.Unlock()
	configInst = nil
	initErr = nil
	configOnce = sync.Once{}
	writablePath = ""
}

// ResetForTesting clears package state for tests in other packages and
// initializes against an empty temporary user config.
// Returns a cleanup function that should be deferred.
func ResetForTesting(t interface{ TempDir() string }) func() {
	reset()
	tmp := t.TempDir()
	_ = Initialize(WithWorkingDir(tmp), WithUserConfig(filepath.Join(tmp, configDirName, configFileName)))
	return reset
}

// WritablePath returns the config file that Save writes to.
func WritablePath() (string, error) {
	if err := Initialize(); err != nil {
		return "", err
	}
	configMu.RLock()
	defer configMu.RUnlock()
	if writablePath == "" {
		return defaultUserConfigPath()
	}
	return writablePath, nil
}

// Save persists a single key to the appropriate config file and applies it
// to the running configuration.
// If a project config (.modnotifier/config.yaml) exists, it updates that file.
// Otherwise, it updates the user config (~/.modnotifier/config.yaml).
// The user config directory is auto-created if needed, but project config
// directories are never auto-created.
func Save(key string, value any) error {
	targetPath, err := WritablePath()
	if err != nil {
		return fmt.Errorf("find config path: %w", err)
	}

	// Fresh viper instance for this file only, so defaults and env stay out.
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigFile(targetPath)
	_ = v.ReadInConfig() // ignore error if file doesn't exist
	v.Set(key, value)

	dir := filepath.Dir(targetPath)
	//nolint:gosec // G301: User config directory needs standard permissions
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := v.WriteConfigAs(targetPath); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return Set(key, value)
}

// SaveAPIKey persists the registry API key.
func SaveAPIKey(key string) error {
	return Save(KeyAPIKey, strings.TrimSpace(key))
}

// WatchAPIKey re-reads the writable config file whenever it changes on disk
// and calls onChange with the API key it now contains. Watching lasts for the
// life of the process.
func WatchAPIKey(onChange func(key string)) error {
	path, err := WritablePath()
	if err != nil {
		return fmt.Errorf("find config path: %w", err)
	}
	//nolint:gosec // G301: User config directory needs standard permissions
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	w := viper.New()
	w.SetConfigType("yaml")
	w.SetConfigFile(path)
	_ = w.ReadInConfig()
	w.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		key := strings.TrimSpace(w.GetString(KeyAPIKey))
		configMu.Lock()
		live := configInst
		if live != nil {
			live.Set(KeyAPIKey, key)
		}
		configMu.Unlock()
		if live == nil {
			return
		}
		if onChange != nil {
			onChange(key)
		}
	})
	w.WatchConfig()
	return nil
}

// DefaultWorldDatabasePath returns the world database used when none is
// configured: world.db next to the user config.
func DefaultWorldDatabasePath() (string, error) {
	path, err := defaultUserConfigPath()
	if err != nil {
		return "", err
	}
	return filepath.Join(filepath.Dir(path), "world.db"), nil
}
