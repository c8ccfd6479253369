package buildCFG

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/wb-go/wbf/config"
	"github.com/wb-go/wbf/dbpg"

	"uconnect/internal/mailer"
	"uconnect/internal/rabbit"
	"uconnect/internal/session"
)

const DefaultRequestTimeout = 5 * time.Second

type ServerConfig struct {
	Port           string
	RequestTimeout time.Duration
	AllowOrigins   []string
}

type AppConfig struct {
	Timezone           *time.Location
	MigrationsDir      string
	RollbackOnShutdown bool
}

type RabbitConfig struct {
	rabbit.Config
	Enabled      bool
	ReminderLead time.Duration
}

func BuildServerConfig(cfg *config.Config, log *zerolog.Logger) ServerConfig {
	port := cfg.GetString("server.port")
	if port == "" {
		port = "8080"
		log.Warn().Msgf("server.port is not set, using %s", port)
	}

	timeout := cfg.GetDuration("server.request_timeout")
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}

	return ServerConfig{
		Port:           port,
		RequestTimeout: timeout,
		AllowOrigins:   cfg.GetStringSlice("server.allow_origins"),
	}
}

func BuildAppConfig(cfg *config.Config, log *zerolog.Logger) (AppConfig, error) {
	tz := cfg.GetString("app.timezone")
	if tz == "" {
		tz = "UTC"
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return AppConfig{}, fmt.Errorf("app.timezone %q: %w", tz, err)
	}

	dir := cfg.GetString("app.migrations_dir")
	if dir == "" {
		dir = "migrations/postgres"
	}

	log.Debug().Str("timezone", loc.String()).Str("migrations", dir).Msg("app config loaded")
	return AppConfig{
		Timezone:           loc,
		MigrationsDir:      dir,
		RollbackOnShutdown: cfg.GetBool("app.rollback_on_shutdown"),
	}, nil
}

func BuildDBConfig(cfg *config.Config, log *zerolog.Logger) (string, []string, *dbpg.Options, error) {
	master := cfg.GetString("db.master_dsn")
	if master == "" {
		return "", nil, nil, errors.New("db.master_dsn is required")
	}
	slaves := cfg.GetStringSlice("db.slave_dsns")

	opts := &dbpg.Options{
		MaxOpenConns:    cfg.GetInt("db.max_open_conns"),
		MaxIdleConns:    cfg.GetInt("db.max_idle_conns"),
		ConnMaxLifetime: cfg.GetDuration("db.conn_max_lifetime"),
	}
	if opts.MaxOpenConns <= 0 {
		opts.MaxOpenConns = 10
	}
	if opts.MaxIdleConns <= 0 {
		opts.MaxIdleConns = 5
	}
	if opts.ConnMaxLifetime <= 0 {
		opts.ConnMaxLifetime = 30 * time.Minute
	}

	log.Debug().
		Int("slaves", len(slaves)).
		Int("max_open_conns", opts.MaxOpenConns).
		Msg("db config loaded")
	return master, slaves, opts, nil
}

func BuildRabbitConfig(cfg *config.Config, log *zerolog.Logger) (RabbitConfig, error) {
	rc := RabbitConfig{
		Config: rabbit.Config{
			URL:      cfg.GetString("rabbit.url"),
			Exchange: cfg.GetString("rabbit.exchange"),
			Queue:    cfg.GetString("rabbit.queue"),
		},
		Enabled:      cfg.GetBool("rabbit.enabled"),
		ReminderLead: cfg.GetDuration("rabbit.reminder_lead"),
	}
	if !rc.Enabled {
		log.Info().Msg("rabbit is disabled, event reminders are off")
		return rc, nil
	}
	if rc.URL == "" || rc.Exchange == "" || rc.Queue == "" {
		return rc, errors.New("rabbit.url, rabbit.exchange and rabbit.queue are required")
	}
	if rc.ReminderLead <= 0 {
		rc.ReminderLead = time.Hour
	}
	return rc, nil
}

func BuildSessionConfig(cfg *config.Config, log *zerolog.Logger) session.Config {
	maxAge := cfg.GetDuration("session.max_age")
	if maxAge <= 0 {
		maxAge = session.DefaultMaxAge
	}
	sc := session.Config{
		Secret: cfg.GetString("session.secret"),
		MaxAge: maxAge,
		Secure: cfg.GetBool("session.secure"),
	}
	if !sc.Secure {
		log.Warn().Msg("session cookie is not marked secure")
	}
	return sc
}

func BuildMailConfig(cfg *config.Config, log *zerolog.Logger) mailer.Config {
	mc := mailer.Config{
		Enabled:  cfg.GetBool("mail.enabled"),
		Host:     cfg.GetString("mail.host"),
		Port:     cfg.GetInt("mail.port"),
		Username: cfg.GetString("mail.username"),
		Password: cfg.GetString("mail.password"),
		From:     cfg.GetString("mail.from"),
	}
	if mc.Port == 0 {
		mc.Port = 587
	}
	if !mc.Enabled {
		log.Info().Msg("mail is disabled, reminders are only logged")
	}
	return mc
}
