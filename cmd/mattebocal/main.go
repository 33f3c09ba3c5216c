package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/larshallqvist-cell/mattebo-calendar/internal/config"
	"github.com/larshallqvist-cell/mattebo-calendar/internal/ics"
	appLog "github.com/larshallqvist-cell/mattebo-calendar/internal/log"
	"github.com/larshallqvist-cell/mattebo-calendar/internal/store"
	"github.com/larshallqvist-cell/mattebo-calendar/internal/web"
)

type flagConfig struct {
	configPath string
	listen     string
	once       bool
	debug      bool
}

func main() {
	flags := parseFlags()

	if flags.debug {
		appLog.SetLevel(appLog.LevelDebug)
	}
	appLog.Info("mattebocal starting", "version", "0.1.0")

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}
	if flags.listen != "" {
		conf.Listen = flags.listen
	}
	if conf.Gateway.Endpoint == "" {
		appLog.Error("gateway endpoint is not configured", errors.New("missing gateway.endpoint"), "config_path", flags.configPath)
		os.Exit(1)
	}

	appLog.Info("effective config",
		"listen", conf.Listen,
		"grades", conf.Grades,
		"refresh", conf.RefreshCron,
		"cache_ttl_minutes", conf.CacheTTLMinutes,
		"horizon_weeks", conf.HorizonWeeks,
		"max_occurrences", conf.MaxOccurrences,
	)

	client := ics.NewClient(conf.Gateway.Endpoint, conf.Gateway.APIKey)
	expandOpts := ics.ExpandOptions{
		Horizon:        time.Duration(conf.HorizonWeeks) * 7 * 24 * time.Hour,
		MaxOccurrences: conf.MaxOccurrences,
	}
	events := store.New(
		time.Duration(conf.CacheTTLMinutes)*time.Minute,
		ics.Loader(client, expandOpts),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		appLog.Info("signal received, shutting down", "signal", sig.String())
		cancel()
	}()

	if flags.once {
		// Single prewarm pass over all grades, then exit. Useful for
		// smoke tests against a real gateway.
		code := 0
		for _, grade := range conf.Grades {
			if err := events.Refresh(ctx, grade); err != nil {
				code = 1
			}
		}
		os.Exit(code)
	}

	// Background prewarm keeps the per-grade cache warm so interactive
	// requests rarely pay for a full pipeline run.
	if conf.RefreshCron != "" {
		c := cron.New()
		_, err := c.AddFunc(conf.RefreshCron, func() {
			for _, grade := range conf.Grades {
				if err := events.Refresh(ctx, grade); err != nil {
					appLog.Error("scheduled refresh failed", err, "grade", grade)
				}
			}
		})
		if err != nil {
			appLog.Error("invalid refresh schedule", err, "refresh", conf.RefreshCron)
			os.Exit(1)
		}
		c.Start()
		defer c.Stop()
	}

	srv := &http.Server{
		Addr:    conf.Listen,
		Handler: web.NewServer(conf, events).Handler(),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			appLog.Error("server shutdown failed", err)
		}
	}()

	appLog.Info("starting HTTP server", "listen", "http://"+conf.Listen)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		appLog.Error("server failed", err)
		os.Exit(1)
	}

	appLog.Info("mattebocal exiting")
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "/etc/mattebocal/config.yaml", "Path to config file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.BoolVar(&cfg.once, "once", false, "Prewarm all grades once and exit")
	flag.BoolVar(&cfg.debug, "debug", false, "Enable debug logging")

	flag.Parse()

	return cfg
}
