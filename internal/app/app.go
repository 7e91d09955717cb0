package app

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"github.com/five82/tickerdeck/internal/api"
	"github.com/five82/tickerdeck/internal/config"
	"github.com/five82/tickerdeck/internal/logging"
	"github.com/five82/tickerdeck/internal/notify"
	"github.com/five82/tickerdeck/internal/prefs"
	"github.com/five82/tickerdeck/internal/session"
	"github.com/five82/tickerdeck/internal/state"
	"github.com/five82/tickerdeck/internal/ui"
)

// Options configure the tickerdeck application.
type Options struct {
	ConfigPath string
	PrefsPath  string // empty uses default ~/.config/tickerdeck/prefs.toml
	APIURL     string // overrides config and environment
	LogLevel   string // overrides config and environment
	Version    string
	ExportDir  string // where PDF exports land; empty is the working directory

	// Console adds a stderr log writer. CLI subcommands set it; the TUI
	// owns the terminal and never does.
	Console bool
}

// Env holds the dependencies shared by the TUI and the CLI subcommands.
type Env struct {
	Config  config.Config
	Logger  zerolog.Logger
	Session *session.Session

	closer io.Closer
}

// Setup loads configuration, starts logging and restores the session.
func Setup(opts Options) (*Env, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if opts.APIURL != "" {
		cfg.APIURL = opts.APIURL
	}
	if opts.LogLevel != "" {
		cfg.LogLevel = opts.LogLevel
	}

	logger, closer, err := logging.Init(logging.Options{
		Level:   cfg.LogLevel,
		File:    cfg.LogPath(),
		Console: opts.Console,
		Version: opts.Version,
	})
	if err != nil {
		return nil, fmt.Errorf("init logging: %w", err)
	}
	logger.Info().Str("config", cfg.String()).Msg("configuration loaded")

	sess, err := session.Open(session.FileStore{Path: cfg.TokenPath}, component(logger, "session"))
	if err != nil {
		_ = closer.Close()
		return nil, fmt.Errorf("open session: %w", err)
	}
	return &Env{Config: cfg, Logger: logger, Session: sess, closer: closer}, nil
}

// Client builds a request pipeline that authenticates with the session and
// reports failures to n.
func (e *Env) Client(n notify.Notifier) (*api.Client, error) {
	client, err := api.NewClient(e.Config.APIURL,
		api.WithCredentials(e.Session),
		api.WithNotifier(n),
		api.WithLogger(component(e.Logger, "api")),
		api.WithTimeout(e.Config.Timeout),
	)
	if err != nil {
		return nil, fmt.Errorf("init api client: %w", err)
	}
	return client, nil
}

// Auth binds the session actions to client.
func (e *Env) Auth(client *api.Client) *session.Auth {
	return session.NewAuth(e.Session, client, component(e.Logger, "auth"))
}

// Close flushes the log file.
func (e *Env) Close() error {
	if e.closer == nil {
		return nil
	}
	return e.closer.Close()
}

func component(logger zerolog.Logger, name string) zerolog.Logger {
	return logger.With().Str("component", name).Logger()
}

// Run boots the tickerdeck TUI until the user quits or ctx is cancelled.
func Run(ctx context.Context, opts Options) error {
	opts.Console = false
	env, err := Setup(opts)
	if err != nil {
		return err
	}
	defer env.Close()

	userPrefs := prefs.Load(opts.PrefsPath)
	notices := notify.NewCenter(0, component(env.Logger, "notify"))

	client, err := env.Client(notices)
	if err != nil {
		return err
	}
	// The poller gets its own pipeline so background refreshes never raise
	// notices; the header shows its failures instead.
	pollClient, err := env.Client(notify.Discard)
	if err != nil {
		return err
	}

	store := &state.Store{}
	StartPoller(ctx, store, pollClient, env.Config.PollEvery, component(env.Logger, "poller"))

	err = ui.Run(ui.Options{
		Context:   ctx,
		Client:    client,
		Auth:      env.Auth(client),
		Store:     store,
		Notices:   notices,
		Config:    &env.Config,
		Prefs:     userPrefs,
		PrefsPath: opts.PrefsPath,
		ExportDir: opts.ExportDir,
		Logger:    component(env.Logger, "ui"),
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
