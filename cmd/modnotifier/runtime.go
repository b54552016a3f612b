package main

import (
	"context"
	"io"
	"strings"

	"modnotifier/internal/app"
	"modnotifier/internal/config"
	"modnotifier/internal/debug"
	"modnotifier/internal/host"
	"modnotifier/internal/notify"
	"modnotifier/internal/session"
	"modnotifier/internal/settings"
	"modnotifier/internal/update"
)

type runtimeOptions struct {
	out      io.Writer
	progress update.ProgressFunc
	// notify enables the chat log and webhook sinks.
	notify bool
	// terminal additionally prints notifications to out.
	terminal bool
}

// worldRuntime bundles everything a command needs to talk to one world.
type worldRuntime struct {
	world       *host.SQLiteStore
	modules     host.ModuleLister
	store       *settings.Store
	service     *app.Service
	currentUser string
}

func openRuntime(ctx context.Context, opts runtimeOptions) (*worldRuntime, error) {
	world, err := openWorld(ctx)
	if err != nil {
		return nil, err
	}

	var modules host.ModuleLister = world
	if dir := strings.TrimSpace(config.GetString(config.KeyModulesDir)); dir != "" {
		modules = host.NewManifestDir(dir, config.GetStringSlice(config.KeyActiveModules))
	}

	currentUser := strings.TrimSpace(config.GetString(config.KeyWorldUser))
	if currentUser == "" {
		users, err := world.Users(ctx)
		if err != nil {
			_ = world.Close()
			return nil, err
		}
		currentUser = session.ElectCoordinator(users)
		debug.Logger().Debug().Str("user", currentUser).Msg("no user configured; acting as the coordinator")
	}

	var sinks notify.MultiSink
	if opts.notify {
		sinks = append(sinks, notify.NewChatSink(world))
		if url := strings.TrimSpace(config.GetString(config.KeyWebhookURL)); url != "" {
			sinks = append(sinks, notify.NewWebhookSink(url, nil))
		}
	}
	if opts.terminal && opts.out != nil {
		sinks = append(sinks, notify.NewTerminalSink(opts.out,
			notify.WithStyle(terminalStyle(outputFormat())),
			notify.WithWidth(terminalWidth(opts.out)),
		))
	}

	store := settings.NewStore(nil)
	checker := update.NewChecker(
		update.WithEndpoint(config.GetString(config.KeyRegistryEndpoint)),
		update.WithPackageType(config.GetString(config.KeyRegistryPackageType)),
		update.WithTimeout(config.GetDuration(config.KeyTimeout)),
		update.WithChunkSize(config.GetInt(config.KeyChunkSize)),
		update.WithProgress(opts.progress),
	)
	service := app.NewService(app.Config{
		Keys:        store,
		Modules:     modules,
		Users:       world,
		Checker:     checker,
		Sink:        sinks,
		CurrentUser: currentUser,
		CoreVersion: config.GetString(config.KeyCoreVersion),
		ReadmeURL:   config.GetString(config.KeyReadmeURL),
	})

	return &worldRuntime{
		world:       world,
		modules:     modules,
		store:       store,
		service:     service,
		currentUser: currentUser,
	}, nil
}

func (r *worldRuntime) Close() error {
	return r.world.Close()
}

func openWorld(ctx context.Context) (*host.SQLiteStore, error) {
	path := strings.TrimSpace(config.GetString(config.KeyWorldDatabase))
	if path == "" {
		defaultPath, err := config.DefaultWorldDatabasePath()
		if err != nil {
			return nil, err
		}
		path = defaultPath
	}
	return host.OpenSQLite(ctx, path)
}
