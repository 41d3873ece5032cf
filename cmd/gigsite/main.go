package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/afero"

	"gigsite/internal/build"
	"gigsite/internal/capture"
	"gigsite/internal/config"
	"gigsite/internal/feed"
	appLog "gigsite/internal/log"
	"gigsite/internal/web"
)

const version = "0.3.0"

// flagConfig holds CLI flag values that override the config file.
type flagConfig struct {
	configPath string
	listen     string
	out        string
	feed       string
	pngPath    string
	snapURL    string
	command    string
}

func main() {
	flags := parseFlags()

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}
	flags.apply(conf)

	appLog.SetLevel(appLog.ParseLevel(conf.Log.Level))
	appLog.EnableFile(appLog.FileConfig{
		Path:       conf.Log.File,
		MaxSizeMB:  conf.Log.MaxSizeMB,
		MaxBackups: conf.Log.MaxBackups,
	})
	defer appLog.Close()

	appLog.Info("gigsite starting", "version", version, "command", flags.command)

	loc, err := conf.Location()
	if err != nil {
		appLog.Warn("unknown timezone, using local time", "timezone", conf.Timezone, "error", err)
	}

	appLog.Info("effective config",
		"feed", conf.Feed,
		"out", conf.OutDir,
		"listen", conf.Listen,
		"timezone", loc.String(),
		"reminder_mode", conf.ReminderMode,
		"rebuild", conf.RebuildCron,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	loader := feed.NewLoader(conf.Feed, feed.NewFetcher(conf.CacheDir, nil), nil)

	switch flags.command {
	case "build":
		err = runBuild(ctx, conf, loc, loader)
	case "serve":
		err = runServe(ctx, conf, loc, loader)
	case "snapshot":
		err = runSnapshot(ctx, conf, loc, loader, flags)
	default:
		err = fmt.Errorf("unknown command %q (want build, serve or snapshot)", flags.command)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		appLog.Error("command failed", err, "command", flags.command)
		appLog.Close()
		os.Exit(1)
	}
	appLog.Info("gigsite exiting")
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "gigsite.yaml", "Path to config file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.StringVar(&cfg.out, "out", "", "Output directory (overrides config if set)")
	flag.StringVar(&cfg.feed, "feed", "", "Feed path or URL (overrides config if set)")
	flag.StringVar(&cfg.pngPath, "png", "", "snapshot: PNG output path (default <out>/preview.png)")
	flag.StringVar(&cfg.snapURL, "url", "", "snapshot: page to capture (default: serve the build locally)")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] build|serve|snapshot\n", filepath.Base(os.Args[0]))
		flag.PrintDefaults()
	}

	flag.Parse()

	cfg.command = "build"
	if flag.NArg() > 0 {
		cfg.command = flag.Arg(0)
	}
	return cfg
}

func (f flagConfig) apply(c *config.Config) {
	if f.listen != "" {
		c.Listen = f.listen
	}
	if f.out != "" {
		c.OutDir = f.out
	}
	if f.feed != "" {
		c.Feed = f.feed
	}
}

func newBuilder(conf *config.Config, loc *time.Location, src feed.EventSource) (*build.Builder, error) {
	if err := os.MkdirAll(conf.OutDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	out := afero.NewBasePathFs(afero.NewOsFs(), conf.OutDir)
	return build.New(src, out, build.OptionsFromConfig(conf, loc))
}

func runBuild(ctx context.Context, conf *config.Config, loc *time.Location, src feed.EventSource) error {
	b, err := newBuilder(conf, loc, src)
	if err != nil {
		return err
	}
	_, err = b.Build(ctx)
	return err
}

func runServe(ctx context.Context, conf *config.Config, loc *time.Location, src feed.EventSource) error {
	b, err := newBuilder(conf, loc, src)
	if err != nil {
		return err
	}
	if _, err := b.Build(ctx); err != nil {
		appLog.Error("initial build failed", err)
	}

	if conf.RebuildCron != "" {
		logger := cronLogger{}
		c := cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(logger),
			cron.WithChain(cron.SkipIfStillRunning(logger)),
		)
		_, err := c.AddFunc(conf.RebuildCron, func() {
			if _, err := b.Build(ctx); err != nil {
				appLog.Error("scheduled rebuild failed", err)
			}
		})
		if err != nil {
			return fmt.Errorf("rebuild schedule %q: %w", conf.RebuildCron, err)
		}
		c.Start()
		defer func() { <-c.Stop().Done() }()
		appLog.Info("scheduled rebuilds enabled", "rebuild", conf.RebuildCron)
	}

	srv, err := web.NewServer(conf, loc, src)
	if err != nil {
		return err
	}
	err = srv.Run(ctx)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// runSnapshot captures -url, or builds and serves the site in-process and
// captures its index page.
func runSnapshot(ctx context.Context, conf *config.Config, loc *time.Location, src feed.EventSource, flags flagConfig) error {
	out := flags.pngPath
	if out == "" {
		out = filepath.Join(conf.OutDir, "preview.png")
	}

	target := flags.snapURL
	if target == "" {
		if err := runBuild(ctx, conf, loc, src); err != nil {
			return err
		}
		srv, err := web.NewServer(conf, loc, src)
		if err != nil {
			return err
		}
		srvCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		go func() {
			if err := srv.Run(srvCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				appLog.Error("snapshot server failed", err)
			}
		}()

		target = "http://" + conf.Listen + "/"
		if err := waitHealthy(ctx, "http://"+conf.Listen+"/health", 10*time.Second); err != nil {
			return err
		}
	}

	if err := capture.Snapshot(ctx, capture.Options{URL: target, OutputPath: out}); err != nil {
		return err
	}
	appLog.Info("snapshot written", "url", target, "png", out)
	return nil
}

func waitHealthy(ctx context.Context, url string, limit time.Duration) error {
	deadline := time.Now().Add(limit)
	client := &http.Client{Timeout: time.Second}
	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		resp, err := client.Do(req)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("server at %s not ready after %s", url, limit)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(100 * time.Millisecond):
		}
	}
}
