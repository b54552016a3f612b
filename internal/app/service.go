// Package app wires the update checker to the world: it runs checks, keeps
// the latest results and tells the right users about them.
package app

import (
	"context"
	"time"

	"modnotifier/internal/debug"
	"modnotifier/internal/decorate"
	"modnotifier/internal/domain"
	appErrors "modnotifier/internal/errors"
	"modnotifier/internal/host"
	"modnotifier/internal/notify"
	"modnotifier/internal/session"
	"modnotifier/internal/settings"
	"modnotifier/internal/update"
)

// Checker runs a single update check.
type Checker interface {
	Check(ctx context.Context, req update.Request) update.Result
}

// KeySource provides the registry API key.
type KeySource interface {
	APIKey() string
}

// KeyNotifier lets the service rerun checks when the key changes.
type KeyNotifier interface {
	OnChange(fn settings.ChangeFunc)
}

// Config holds the collaborators of a Service.
type Config struct {
	Keys        KeySource
	Modules     host.ModuleLister
	Users       host.UserDirectory
	Checker     Checker
	Sink        notify.Sink
	State       *update.State
	CurrentUser string
	CoreVersion string
	ReadmeURL   string
}

// Service runs update checks and posts their outcome.
type Service struct {
	keys        KeySource
	modules     host.ModuleLister
	users       host.UserDirectory
	checker     Checker
	sink        notify.Sink
	state       *update.State
	currentUser string
	coreVersion string
	readmeURL   string
}

// NewService creates a service. A nil State gets a fresh one and a nil Sink
// discards messages.
func NewService(cfg Config) *Service {
	state := cfg.State
	if state == nil {
		state = &update.State{}
	}
	sink := cfg.Sink
	if sink == nil {
		sink = notify.MultiSink{}
	}
	checker := cfg.Checker
	if checker == nil {
		checker = update.NewChecker()
	}
	return &Service{
		keys:        cfg.Keys,
		modules:     cfg.Modules,
		users:       cfg.Users,
		checker:     checker,
		sink:        sink,
		state:       state,
		currentUser: cfg.CurrentUser,
		coreVersion: cfg.CoreVersion,
		readmeURL:   cfg.ReadmeURL,
	}
}

// State returns the state updated by successful checks.
func (s *Service) State() *update.State {
	return s.state
}

// CheckAndNotify runs one check and reports its outcome:
//   - missing key: the current user is told how to configure one
//   - any other failure: logged only, state is kept
//   - updates found: every GM is whispered the list, state is replaced
//   - nothing found: state is cleared and the current user is told
func (s *Service) CheckAndNotify(ctx context.Context) update.Result {
	apiKey := ""
	if s.keys != nil {
		apiKey = s.keys.APIKey()
	}

	var modules []domain.Module
	if s.modules != nil {
		listed, err := s.modules.Modules(ctx)
		if err != nil {
			debug.Logger().Error().Err(err).Msg("failed to list installed modules")
			return update.Result{Err: err}
		}
		modules = listed
	}

	result := s.checker.Check(ctx, update.Request{
		APIKey:      apiKey,
		CoreVersion: s.coreVersion,
		Modules:     modules,
	})

	switch {
	case result.Failed() && appErrors.IsCode(result.Err, appErrors.CodeAuthMissing):
		s.post(ctx, notify.APIKeyRequired(s.readmeURL, s.currentUser))
	case result.Failed():
		debug.Logger().Error().
			Err(result.Err).
			Str("code", string(appErrors.CodeOf(result.Err))).
			Msg("update check failed; keeping previous results")
	case len(result.Updates) > 0:
		s.state.Replace(result.Updates)
		gms, err := s.gmIDs(ctx)
		if err != nil {
			debug.Logger().Error().Err(err).Msg("failed to list GMs; updates not announced")
			break
		}
		s.post(ctx, notify.UpdatesAvailable(result.Updates, gms))
	default:
		s.state.Replace(nil)
		msg := notify.AllUpToDate()
		if s.currentUser != "" {
			msg.Recipients = []string{s.currentUser}
		}
		s.post(ctx, msg)
	}
	return result
}

// Bind reruns the check every time the API key changes.
func (s *Service) Bind(keys KeyNotifier) {
	keys.OnChange(func(string) {
		s.CheckAndNotify(context.Background())
	})
}

// Decorate marks rows using the latest successful check.
func (s *Service) Decorate(rows []decorate.Row) []decorate.Row {
	return decorate.Decorate(rows, s.state.Snapshot())
}

// ScheduleStartupCheck schedules the first check after delay when the current
// user is the elected coordinator. It returns nil when another session is
// responsible for the check.
func (s *Service) ScheduleStartupCheck(ctx context.Context, sched *session.Scheduler, delay time.Duration) (<-chan bool, error) {
	if s.users == nil {
		return nil, appErrors.New(appErrors.CodeConfigurationError, "no user directory configured", nil)
	}
	users, err := s.users.Users(ctx)
	if err != nil {
		return nil, err
	}
	if !session.IsCoordinator(users, s.currentUser) {
		debug.Logger().Debug().
			Str("user", s.currentUser).
			Str("coordinator", session.ElectCoordinator(users)).
			Msg("not the coordinator; skipping startup check")
		return nil, nil
	}
	return sched.ScheduleOnce(ctx, delay, func(ctx context.Context) {
		s.CheckAndNotify(ctx)
	}), nil
}

func (s *Service) gmIDs(ctx context.Context) ([]string, error) {
	if s.users == nil {
		return nil, appErrors.New(appErrors.CodeConfigurationError, "no user directory configured", nil)
	}
	users, err := s.users.Users(ctx)
	if err != nil {
		return nil, err
	}
	return domain.GMIDs(users), nil
}

func (s *Service) post(ctx context.Context, msg notify.Message) {
	if err := s.sink.Post(ctx, msg); err != nil {
		debug.Logger().Error().Err(err).Str("kind", string(msg.Kind)).Msg("failed to deliver notification")
	}
}
