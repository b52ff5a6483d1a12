package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/nhle/recruit-inbox/internal/credential"
	"github.com/nhle/recruit-inbox/internal/logging"
	"github.com/nhle/recruit-inbox/internal/model"
	"github.com/nhle/recruit-inbox/internal/remote"
	"github.com/nhle/recruit-inbox/internal/remote/rest"
	"github.com/nhle/recruit-inbox/internal/store"
	appsync "github.com/nhle/recruit-inbox/internal/sync"
)

type Flags struct {
	LogLevel   string
	LogFile    string
	ConfigPath string

	// Config is loaded in the Before hook and available to all commands.
	Config *model.AppConfig

	// NewService builds the remote service. Tests replace it.
	NewService func(cfg *model.AppConfig) (remote.Service, error)
}

// DefaultConfigPath returns the default config file path.
func DefaultConfigPath() string {
	return model.DefaultConfigPath()
}

// RESTService builds the REST adapter from cfg and the stored token.
func RESTService(cfg *model.AppConfig) (remote.Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	token, err := credential.Token()
	if err != nil {
		return nil, err
	}

	return rest.NewAdapter(cfg.API.BaseURL, token, rest.ClientOptions{
		Timeout:    time.Duration(cfg.API.TimeoutSec) * time.Second,
		MaxRetries: cfg.API.MaxRetries,
		Logger:     logging.Component("rest"),
	}), nil
}

// openCache opens the snapshot cache when it is enabled. A cache that
// cannot be opened is skipped with a warning.
func (f *Flags) openCache() *store.SQLiteStore {
	if !f.Config.Cache.Enabled || f.Config.Cache.Path == "" {
		return nil
	}

	path := f.Config.Cache.Path
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			log.Warn().Err(err).Str("path", path).Msg("cache disabled")
			return nil
		}
	}

	st, err := store.NewSQLiteStore(path)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("cache disabled")
		return nil
	}
	return st
}

// session is an attached engine plus everything that must be released
// with it.
type session struct {
	engine *appsync.Engine
	cache  *store.SQLiteStore
}

// attach builds an engine from the loaded config and attaches it. The
// caller must call close. With keepOnError the session survives a failed
// initial load and the error is only logged.
func (f *Flags) attach(ctx context.Context, keepOnError bool) (*session, error) {
	newService := f.NewService
	if newService == nil {
		newService = RESTService
	}
	svc, err := newService(f.Config)
	if err != nil {
		return nil, err
	}

	s := &session{cache: f.openCache()}

	opts := appsync.Options{
		Viewer:             f.Config.Viewer,
		PollInterval:       f.Config.PollInterval(),
		FetchTimeout:       f.Config.FetchTimeout(),
		MaxReconcilePasses: f.Config.Sync.MaxReconcilePasses,
		Logger:             logging.Component("sync"),
	}
	if s.cache != nil {
		opts.Cache = s.cache
	}

	s.engine = appsync.New(svc, opts)
	if err := s.engine.Attach(ctx); err != nil {
		if keepOnError {
			log.Warn().Err(err).Msg("initial load failed")
			return s, nil
		}
		s.close()
		return nil, err
	}
	return s, nil
}

func (s *session) close() {
	s.engine.Detach()
	if s.cache != nil {
		if err := s.cache.Close(); err != nil {
			log.Warn().Err(err).Msg("closing cache")
		}
	}
}
