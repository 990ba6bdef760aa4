package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/jonasfroeller/tube-visibility-inspector/fetcher"
	"github.com/jonasfroeller/tube-visibility-inspector/handler"
	"github.com/jonasfroeller/tube-visibility-inspector/metrics"
	"github.com/jonasfroeller/tube-visibility-inspector/resolver"
	"github.com/jonasfroeller/tube-visibility-inspector/storage"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/exp/slog"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		if errors.Is(err, resolver.ErrConfig) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := newViper()

	root := &cobra.Command{
		Use:           "tube-visibility-inspector",
		Short:         "Resolve the visibility of YouTube videos and channels",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), v)
		},
	}
	root.PersistentFlags().String("log-level", "info", "debug, info, warn or error")
	v.BindPFlag("log_level", root.PersistentFlags().Lookup("log-level"))

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), v)
		},
	}
	serve.Flags().Int("port", 8080, "listen port")
	v.BindPFlag("api_port", serve.Flags().Lookup("port"))

	var (
		channel     string
		ignoreCache bool
		format      string
	)
	check := &cobra.Command{
		Use:   "check [video ids or urls...]",
		Short: "Resolve videos once and print the results",
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "json" && format != "text" {
				return fmt.Errorf("%w: unknown format %q", resolver.ErrInvalidRequest, format)
			}
			req := resolver.Request{VideoIDs: args, ChannelReference: channel, IgnoreCache: ignoreCache}
			return runCheck(cmd.Context(), v, req, format, cmd.OutOrStdout())
		},
	}
	check.Flags().StringVar(&channel, "channel", "", "channel handle, name or URL to enumerate")
	check.Flags().BoolVar(&ignoreCache, "ignore-cache", false, "bypass cached results")
	check.Flags().StringVar(&format, "format", "json", "output format: json or text")

	root.AddCommand(serve, check)

	return root
}

func newLogger(level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

type app struct {
	engine  *resolver.Engine
	store   storage.Store
	metrics *metrics.Metrics
	reg     *prometheus.Registry
}

func newApp(ctx context.Context, cfg Config, logger *slog.Logger) (*app, error) {
	store, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("unable to open %s cache: %w", cfg.Storage.Backend, err)
	}

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	scraper := fetcher.NewScraper(&http.Client{Timeout: cfg.HTTPTimeout}, fetcher.DefaultBaseURL, logger)
	deps := resolver.Dependencies{
		Pages:      scraper,
		Extractor:  fetcher.NewExtractor(),
		Classifier: scraper,
		Cache:      store,
		Observer:   resolver.Observers{resolver.NewLogObserver(logger), m},
	}
	if cfg.YoutubeAPIKey != "" {
		ytClient, err := youtube.NewService(ctx, option.WithAPIKey(cfg.YoutubeAPIKey))
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("unable to create youtube service: %w", err)
		}
		yt := fetcher.NewYoutube(ytClient)
		deps.Channels = yt
		deps.Metadata = yt
	} else {
		logger.Warn("YOUTUBE_API_KEY is not set, every resolution will fail")
	}

	return &app{
		engine:  resolver.NewEngine(deps, cfg.Engine, logger),
		store:   store,
		metrics: m,
		reg:     reg,
	}, nil
}

func runServe(ctx context.Context, v *viper.Viper) error {
	cfg, err := loadConfig(v)
	if err != nil {
		return err
	}
	logger := newLogger(cfg.LogLevel)

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		logger.Error("unable to start", slog.String("err", err.Error()))
		return err
	}
	defer a.store.Close()

	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.Port),
		Handler:           handler.NewServer(a.engine, a.metrics, a.reg, cfg.RequestTimeout, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}
	logger.Info("http server starting", slog.Int("port", cfg.Port), slog.String("cache", cfg.Storage.Backend))

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(done)

	return serve(srv, done, logger)
}

// serve runs srv until a signal arrives on stop or the listener fails.
func serve(srv *http.Server, stop <-chan os.Signal, logger *slog.Logger) error {
	failed := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			failed <- err
		}
	}()

	select {
	case err := <-failed:
		logger.Error("http server failed", slog.String("err", err.Error()))
		return fmt.Errorf("http server failed: %w", err)
	case sig := <-stop:
		logger.Info("shutting down", slog.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("shutdown failed", slog.String("err", err.Error()))
		return err
	}
	logger.Info("service stopped")

	return nil
}

func runCheck(ctx context.Context, v *viper.Viper, req resolver.Request, format string, out io.Writer) error {
	cfg, err := loadConfig(v)
	if err != nil {
		return err
	}
	logger := newLogger(cfg.LogLevel)

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.store.Close()

	if cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.RequestTimeout)
		defer cancel()
	}
	resp, err := a.engine.Resolve(ctx, req)
	if err != nil {
		return err
	}

	return writeResults(out, resp, format)
}

func writeResults(out io.Writer, resp resolver.Response, format string) error {
	if format == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}

	if _, err := fmt.Fprintln(out, "id\ttitle\tstatus\tcontentType\tdurationSeconds\tpublishedAt\tfromCache"); err != nil {
		return err
	}
	for _, r := range resp.Results {
		if _, err := fmt.Fprintf(out, "%s\t%s\t%s\t%s\t%s\t%s\t%t\n", r.ID, r.Title, r.Status, r.ContentType, optionalInt(r.DurationSeconds), optionalTime(r.PublishedAt), r.FromCache); err != nil {
			return err
		}
	}

	return nil
}

func optionalInt(i *int) string {
	if i == nil {
		return ""
	}
	return strconv.Itoa(*i)
}

func optionalTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
