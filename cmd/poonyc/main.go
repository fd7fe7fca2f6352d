package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/samirrijal/poonyc/internal/adapters/nominatim"
	"github.com/samirrijal/poonyc/internal/adapters/postgres"
	"github.com/samirrijal/poonyc/internal/adapters/valkey"
	"github.com/samirrijal/poonyc/internal/core/domain"
	"github.com/samirrijal/poonyc/internal/core/ports"
	"github.com/samirrijal/poonyc/internal/core/usecases"
	"github.com/samirrijal/poonyc/internal/pkg/config"
	"github.com/samirrijal/poonyc/internal/pkg/geoindex"
	"github.com/samirrijal/poonyc/internal/pkg/logging"
	"github.com/samirrijal/poonyc/migrations"
)

var (
	timeout time.Duration
	noCache bool

	centerLat float64
	centerLon float64
	span      float64
)

var rootCmd = &cobra.Command{
	Use:   "poonyc",
	Short: "Operate the restroom map backend",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.FromEnv()
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply or roll back database migrations",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply pending migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(cmd.Context(), func(ctx context.Context, _ *config.Config, db *postgres.DB) error {
			return postgres.Migrate(ctx, db, migrations.FS)
		})
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back applied migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(cmd.Context(), func(ctx context.Context, _ *config.Config, db *postgres.DB) error {
			return postgres.Rollback(ctx, db, migrations.FS)
		})
	},
}

var geocodeCmd = &cobra.Command{
	Use:   "geocode <address>",
	Short: "Resolve an address to a coordinate",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load("poonyc-cli")
		if err != nil {
			return err
		}
		geo, closeFn := buildGeocoder(cfg)
		defer closeFn()

		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()
		pt, err := usecases.NewSearchService(geo, cfg.Map.FocusSpan).Resolve(ctx, strings.Join(args, " "))
		if err != nil {
			return err
		}
		return printJSON(pt)
	},
}

var pinsCmd = &cobra.Command{
	Use:   "pins",
	Short: "Geocode every restroom record and print the resulting pins",
	Long: `Runs the pin pipeline once over the record store. With --lat and --lon
only pins inside the region of the given span around that point are printed.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		pins, err := loadPins(cmd.Context())
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("lat") || cmd.Flags().Changed("lon") {
			region := domain.RegionAround(domain.GeoPoint{Lat: centerLat, Lon: centerLon}, span)
			if !region.Valid() {
				return fmt.Errorf("region %+v: %w", region, domain.ErrValidation)
			}
			pins = geoindex.New(pins).InBounds(region.Bounds())
		}
		return printJSON(pins)
	},
}

var nearestCmd = &cobra.Command{
	Use:   "nearest",
	Short: "Print the restroom closest to --lat/--lon",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		p := domain.GeoPoint{Lat: centerLat, Lon: centerLon}
		if !p.Valid() {
			return fmt.Errorf("point %+v: %w", p, domain.ErrValidation)
		}
		pins, err := loadPins(cmd.Context())
		if err != nil {
			return err
		}
		pin, dist, ok := geoindex.New(pins).Nearest(p)
		if !ok {
			return fmt.Errorf("no pins: %w", domain.ErrNotFound)
		}
		return printJSON(map[string]any{"pin": pin, "distance_m": dist})
	},
}

func init() {
	rootCmd.PersistentFlags().DurationVarP(&timeout, "timeout", "t", 60*time.Second, "Overall command timeout")
	rootCmd.PersistentFlags().BoolVar(&noCache, "no-cache", false, "Bypass the shared geocode cache")

	for _, c := range []*cobra.Command{pinsCmd, nearestCmd} {
		c.Flags().Float64Var(&centerLat, "lat", 0, "Latitude")
		c.Flags().Float64Var(&centerLon, "lon", 0, "Longitude")
	}
	pinsCmd.Flags().Float64Var(&span, "span", 0.05, "Region span in degrees")
	_ = nearestCmd.MarkFlagRequired("lat")
	_ = nearestCmd.MarkFlagRequired("lon")

	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd)
	rootCmd.AddCommand(migrateCmd, geocodeCmd, pinsCmd, nearestCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func withDB(parent context.Context, fn func(ctx context.Context, cfg *config.Config, db *postgres.DB) error) error {
	cfg, err := config.Load("poonyc-cli")
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer db.Close()
	return fn(ctx, cfg, db)
}

func loadPins(parent context.Context) ([]domain.Pin, error) {
	var pins []domain.Pin
	err := withDB(parent, func(ctx context.Context, cfg *config.Config, db *postgres.DB) error {
		geo, closeFn := buildGeocoder(cfg)
		defer closeFn()

		var err error
		pins, err = usecases.NewPinResolver(postgres.NewRestroomRepo(db), geo, cfg.Geocoder.Timeout()).Load(ctx)
		return err
	})
	return pins, err
}

// buildGeocoder returns the Nominatim client, behind the shared cache unless
// --no-cache is set or valkey is unreachable.
func buildGeocoder(cfg *config.Config) (ports.Geocoder, func()) {
	client := nominatim.New(cfg.Geocoder.BaseURL, cfg.Geocoder.UserAgent, cfg.Geocoder.Timeout())
	if noCache {
		return client, func() {}
	}
	cache, err := valkey.New(cfg.Valkey.Addr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: geocode cache unavailable: %v\n", err)
		return client, func() {}
	}
	return valkey.NewGeocodeCache(client, cache, cfg.Geocoder.CacheTTLSeconds), cache.Close
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
