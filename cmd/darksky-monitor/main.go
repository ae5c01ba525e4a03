package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"darksky-monitor/config"
	"darksky-monitor/internal/alert"
	"darksky-monitor/internal/api"
	"darksky-monitor/internal/checker"
	"darksky-monitor/internal/cleardarksky"
	"darksky-monitor/internal/forecast"
	"darksky-monitor/internal/mqtt"
	"darksky-monitor/internal/observability"
	"darksky-monitor/internal/service"
	"darksky-monitor/internal/storage"
)

var (
	configFile string
	verbose    bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "darksky-monitor",
		Short:         "Clear sky chart alert monitor",
		Long:          "Watches Clear Sky Chart forecasts and reports when a saved alert profile's conditions hold",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(checkCmd())
	rootCmd.AddCommand(profileCmd())
	rootCmd.AddCommand(forecastCmd())
	rootCmd.AddCommand(locationsCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, friendly(err))
		os.Exit(1)
	}
}

func friendly(err error) string {
	switch {
	case errors.Is(err, service.ErrProfileNotFound):
		return "No such alert profile. " + err.Error()
	case errors.Is(err, service.ErrProfileExists):
		return "An alert profile with that name already exists. " + err.Error()
	case errors.Is(err, service.ErrInvalidLocation):
		return "Unknown Clear Sky Chart location key. " + err.Error()
	case errors.Is(err, service.ErrUnavailable):
		return "The forecast could not be retrieved, try again later. " + err.Error()
	}
	return err.Error()
}

// app holds everything a command needs, built from config.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	metrics *observability.Metrics
	db      *storage.Database
	client  *cleardarksky.Client
	redis   *redis.Client
	svc     *service.Service
}

func newApp() (*app, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	level := cfg.Log.Level
	if verbose {
		level = "debug"
	}
	logger, err := observability.NewLogger(level, cfg.Log.Format, os.Stderr)
	if err != nil {
		return nil, err
	}

	db, err := storage.NewDatabase(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	logger.Debug("database opened", "path", cfg.Database.Path)

	a := &app{cfg: cfg, logger: logger, metrics: observability.NewMetrics(), db: db}

	opts := []cleardarksky.Option{
		cleardarksky.WithMetrics(a.metrics),
		cleardarksky.WithLogger(logger),
	}
	if cfg.Cache.Enabled {
		a.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Cache.RedisAddr,
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
		})
		opts = append(opts, cleardarksky.WithCache(cleardarksky.NewRedisCache(a.redis, cfg.Cache.TTL)))
		logger.Info("forecast page cache enabled", "redis", cfg.Cache.RedisAddr, "ttl", cfg.Cache.TTL)
	}

	a.client = cleardarksky.NewClient(cleardarksky.Config{
		BaseURL:      cfg.Forecast.BaseURL,
		LocationsURL: cfg.Forecast.LocationsURL,
		UserAgent:    cfg.Forecast.UserAgent,
		RetryCount:   cfg.Forecast.RetryCount,
		RetryDelay:   cfg.Forecast.RetryDelay,
		Timeout:      cfg.Forecast.Timeout,
	}, opts...)

	a.svc = service.New(a.client, db, a.metrics, logger)
	return a, nil
}

func (a *app) Close() {
	if a.redis != nil {
		a.redis.Close()
	}
	a.db.Close()
}

// withApp builds the app for a command and closes it afterwards.
func withApp(run func(ctx context.Context, a *app, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()
		return run(cmd.Context(), a, args)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the monitoring service",
		Long:  "Start the daily checker, the API server and the MQTT alert publisher",
		RunE: withApp(func(_ context.Context, a *app, _ []string) error {
			cfg := a.cfg

			publisher, err := mqtt.NewPublisher(mqtt.PublisherConfig{
				Broker:      cfg.MQTT.Broker,
				ClientID:    cfg.MQTT.ClientID,
				Username:    cfg.MQTT.Username,
				Password:    cfg.MQTT.Password,
				TopicPrefix: cfg.MQTT.TopicPrefix,
				Enabled:     cfg.MQTT.Enabled,
				Logger:      a.logger,
			})
			if err != nil {
				a.logger.Warn("MQTT connection failed, alerts will only be logged", "error", err)
				publisher, _ = mqtt.NewPublisher(mqtt.PublisherConfig{Enabled: false})
			}
			defer publisher.Close()

			loc, err := cfg.Checker.Location()
			if err != nil {
				return err
			}

			var notifier checker.Notifier
			if publisher.Enabled() {
				notifier = publisher
			}
			chk, err := checker.NewChecker(checker.Config{
				Checks:   a.svc,
				Notifier: notifier,
				DailyAt:  cfg.Checker.DailyAt,
				Location: loc,
				Enabled:  cfg.Checker.Enabled,
				Metrics:  a.metrics,
				Logger:   a.logger,
			})
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			g, ctx := errgroup.WithContext(ctx)
			g.Go(func() error { return chk.Start(ctx) })

			if cfg.API.Enabled {
				server := api.NewServer(api.ServerConfig{
					Port:    cfg.API.Port,
					Service: a.svc,
					Checker: chk,
					MQTT:    publisher,
					Logger:  a.logger,
				})
				g.Go(func() error {
					if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						return fmt.Errorf("API server: %w", err)
					}
					return nil
				})
				g.Go(func() error {
					<-ctx.Done()
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					return server.Stop(shutdownCtx)
				})
			}

			a.logger.Info("darksky monitor started, press Ctrl+C to stop")
			err = g.Wait()
			a.logger.Info("shut down")
			return err
		}),
	}
}

func checkCmd() *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "check [owner name]",
		Short: "Check alert profiles against the current forecast",
		Args: func(cmd *cobra.Command, args []string) error {
			if all {
				return cobra.NoArgs(cmd, args)
			}
			return cobra.ExactArgs(2)(cmd, args)
		},
		RunE: withApp(func(ctx context.Context, a *app, args []string) error {
			if !all {
				res, err := a.svc.CheckProfile(ctx, args[0], args[1])
				if err != nil {
					return err
				}
				fmt.Println(res.Report)
				return nil
			}

			chk, err := checker.NewChecker(checker.Config{
				Checks:  a.svc,
				DailyAt: a.cfg.Checker.DailyAt,
				Metrics: a.metrics,
				Logger:  a.logger,
			})
			if err != nil {
				return err
			}
			summary, err := chk.RunOnce(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("Checked %d profile(s): %d matched, %d unavailable\n",
				summary.Profiles, summary.Matched, summary.Unavailable)
			return nil
		}),
	}
	cmd.Flags().BoolVar(&all, "all", false, "check every stored profile")
	return cmd
}

func profileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Manage alert profiles",
	}

	var hours int
	create := &cobra.Command{
		Use:   "create <owner> <name> <location>",
		Short: "Create an empty alert profile for a location key",
		Args:  cobra.ExactArgs(3),
		RunE: withApp(func(ctx context.Context, a *app, args []string) error {
			p, err := a.svc.CreateProfile(ctx, args[0], args[1], args[2], hours)
			if err != nil {
				return err
			}
			fmt.Println(p.Describe())
			return nil
		}),
	}
	create.Flags().IntVar(&hours, "duration", 0, "minimum consecutive hours")

	show := &cobra.Command{
		Use:   "show <owner> <name>",
		Short: "Show an alert profile",
		Args:  cobra.ExactArgs(2),
		RunE: withApp(func(_ context.Context, a *app, args []string) error {
			p, err := a.svc.GetProfile(args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Println(p.Describe())
			return nil
		}),
	}

	var asJSON bool
	list := &cobra.Command{
		Use:   "list <owner>",
		Short: "List an owner's alert profiles",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(_ context.Context, a *app, args []string) error {
			profiles, err := a.svc.ListProfiles(args[0])
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(profiles)
			}
			if len(profiles) == 0 {
				fmt.Println("No alert profiles.")
			}
			for _, p := range profiles {
				fmt.Printf("%s (%s)\n", p, p.Location)
			}
			return nil
		}),
	}
	list.Flags().BoolVar(&asJSON, "json", false, "print JSON")

	set := &cobra.Command{
		Use:   "set <owner> <name> <attribute> <value>",
		Short: "Set one threshold",
		Long:  "Set one threshold. Temperature takes \"min,max\" in Fahrenheit, either side may be empty.",
		Args:  cobra.ExactArgs(4),
		RunE: withApp(func(_ context.Context, a *app, args []string) error {
			attr, err := forecast.ParseAttribute(args[2])
			if err != nil {
				return err
			}
			t, err := alert.ParseThreshold(attr, args[3])
			if err != nil {
				return err
			}
			p, err := a.svc.UpdateProfileAttribute(args[0], args[1], t)
			if err != nil {
				return err
			}
			fmt.Println(p.Describe())
			return nil
		}),
	}

	unset := &cobra.Command{
		Use:   "unset <owner> <name> <attribute>",
		Short: "Remove one threshold",
		Args:  cobra.ExactArgs(3),
		RunE: withApp(func(_ context.Context, a *app, args []string) error {
			attr, err := forecast.ParseAttribute(args[2])
			if err != nil {
				return err
			}
			p, err := a.svc.RemoveProfileAttribute(args[0], args[1], attr)
			if err != nil {
				return err
			}
			fmt.Println(p.Describe())
			return nil
		}),
	}

	duration := &cobra.Command{
		Use:   "duration <owner> <name> <hours>",
		Short: "Set the minimum number of consecutive hours",
		Args:  cobra.ExactArgs(3),
		RunE: withApp(func(_ context.Context, a *app, args []string) error {
			h, err := strconv.Atoi(args[2])
			if err != nil {
				return fmt.Errorf("%w: hours must be a whole number", service.ErrInvalidArgument)
			}
			p, err := a.svc.SetProfileDuration(args[0], args[1], h)
			if err != nil {
				return err
			}
			fmt.Println(p.Describe())
			return nil
		}),
	}

	del := &cobra.Command{
		Use:   "delete <owner> <name>",
		Short: "Delete an alert profile",
		Args:  cobra.ExactArgs(2),
		RunE: withApp(func(_ context.Context, a *app, args []string) error {
			deleted, err := a.svc.DeleteProfile(args[0], args[1])
			if err != nil {
				return err
			}
			if !deleted {
				fmt.Println("Nothing to delete.")
				return nil
			}
			fmt.Printf("Deleted %s by %s.\n", args[1], args[0])
			return nil
		}),
	}

	// options needs no config or database.
	options := &cobra.Command{
		Use:   "options <attribute>",
		Short: "List the suggested threshold values for an attribute",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			attr, err := forecast.ParseAttribute(args[0])
			if err != nil {
				return err
			}
			opts, err := alert.ThresholdOptions(attr)
			if err != nil {
				return err
			}
			for _, o := range opts {
				fmt.Printf("%-28s %s\n", o.Label, o.Value)
			}
			return nil
		},
	}

	cmd.AddCommand(create, show, list, set, unset, duration, del, options)
	return cmd
}

func forecastCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "forecast <location>",
		Short: "Print the current forecast for a location key",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(ctx context.Context, a *app, args []string) error {
			series, err := a.svc.Forecast(ctx, args[0])
			if err != nil {
				return err
			}
			for _, pt := range series.Points() {
				fmt.Println(pt.Describe())
				fmt.Println()
			}
			if series.Malformed > 0 {
				a.logger.Debug("malformed forecast cells", "location", series.Location, "count", series.Malformed)
			}
			return nil
		}),
	}
}

func locationsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "locations",
		Short: "Clear Sky Chart location keys",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "validate <key>",
		Short: "Check that a location key exists",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(ctx context.Context, a *app, args []string) error {
			ok, err := a.client.ValidateLocation(ctx, args[0])
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("%q: %w", args[0], service.ErrInvalidLocation)
			}
			fmt.Printf("%s is a valid location key.\n", args[0])
			return nil
		}),
	})
	return cmd
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
