package main

import (
	"context"
	"flag"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/golang/glog"

	httpapi "github.com/i474232898/weather-dashboard/internal/api/http"
	"github.com/i474232898/weather-dashboard/internal/config"
	"github.com/i474232898/weather-dashboard/internal/freshness"
	"github.com/i474232898/weather-dashboard/internal/locations"
	"github.com/i474232898/weather-dashboard/internal/scheduler"
	"github.com/i474232898/weather-dashboard/internal/settings"
	"github.com/i474232898/weather-dashboard/internal/store"
	"github.com/i474232898/weather-dashboard/internal/weather"
	"github.com/i474232898/weather-dashboard/internal/weather/providers"
)

func main() {
	flag.Parse()
	defer glog.Flush()

	cfg, err := config.Load()
	if err != nil {
		glog.Fatalf("failed to load config: %v", err)
	}

	// Shared HTTP client for outbound provider calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	var provs []weather.Provider
	if cfg.OpenWeatherAPIKey != "" {
		provs = append(provs, providers.NewOpenWeatherProvider(httpClient, cfg.OpenWeatherAPIKey))
	}
	if cfg.WeatherAPIKey != "" {
		provs = append(provs, providers.NewWeatherAPIProvider(httpClient, cfg.WeatherAPIKey))
	}
	// Open-Meteo needs no key; without a geocoder it only serves locations
	// that carry coordinates.
	var geocode providers.GeocodeFunc
	if cfg.GeocoderAPIKey != "" {
		geocode = providers.GoogleGeocoder(cfg.GeocoderAPIKey)
	}
	provs = append(provs, providers.NewOpenMeteoProvider(httpClient, geocode))

	dir := locations.NewDirectory(cfg.Locations, cfg.Home)
	if cfg.DeviceLat != nil {
		dir.SetCurrent(*cfg.DeviceLat, *cfg.DeviceLon)
	}

	history := store.NewMemoryStore(cfg.StoreMaxHistory, cfg.StoreMaxAge)
	service := weather.NewService(dir, provs).WithStore(history)

	var storage settings.Storage
	switch cfg.StorageDriver {
	case "sqlite":
		db, err := settings.NewSQLiteStorage(cfg.StoragePath)
		if err != nil {
			glog.Fatalf("failed to open settings storage: %v", err)
		}
		defer db.Close()
		storage = db
	default:
		storage = settings.NewMemoryStorage()
	}
	prefs := settings.New(storage, settings.Values{
		RefreshIntervalMinutes: int(cfg.DefaultRefreshInterval / time.Minute),
		TemperatureUnit:        cfg.DefaultUnit,
	})

	ctrl := freshness.NewController(freshness.FetcherFunc(service.FetchByID), dir, prefs, freshness.Options{
		TTL:           cfg.CacheTTL,
		Cooldown:      cfg.RefreshCooldown,
		DebounceDelay: cfg.DebounceDelay,
		FetchTimeout:  cfg.FetchTimeout,
	})
	defer ctrl.Close()

	startCtx, cancelStart := context.WithTimeout(context.Background(), 5*time.Second)
	if err := ctrl.Mount(startCtx); err != nil {
		glog.Warningf("restoring last location: %v", err)
	}
	values, err := prefs.Load(startCtx)
	cancelStart()
	if err != nil {
		glog.Warningf("loading settings, using defaults: %v", err)
	}

	// Revalidates the active location at the user's refresh interval.
	sched := scheduler.New(ctrl, values.RefreshInterval())
	if err := sched.Start(); err != nil {
		glog.Fatalf("failed to start scheduler: %v", err)
	}
	defer sched.Stop()

	prefs.OnChange(func(v settings.Values) {
		if err := sched.Reschedule(v.RefreshInterval()); err != nil {
			glog.Errorf("rescheduling revalidation: %v", err)
		}
	})

	app := fiber.New(fiber.Config{
		AppName:               "weather-dashboard",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		ErrorHandler:          httpapi.ErrorHandler,
	})

	app.Use(logger.New())
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "weather-dashboard",
		})
	})

	httpapi.RegisterRoutes(app, httpapi.Deps{
		Controller: ctrl,
		Directory:  dir,
		Settings:   prefs,
		History:    history,
	})

	go func() {
		glog.Infof("listening on :%s", cfg.Port)
		if err := app.Listen(":" + cfg.Port); err != nil {
			glog.Errorf("fiber server stopped: %v", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()
	glog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		glog.Errorf("error during shutdown: %v", err)
	}
}
