package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/Jojopunk/elevate360-skill-builder/internal/infrastructure/driver"
	"github.com/Jojopunk/elevate360-skill-builder/internal/interfaces/rest"
	"github.com/Jojopunk/elevate360-skill-builder/internal/progress"
	"github.com/Jojopunk/elevate360-skill-builder/internal/user"
	"github.com/Jojopunk/elevate360-skill-builder/internal/video"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the http server",
	Long:  "Seed the content catalog, then serve the REST api and the playback websocket until interrupted.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		app, err := newApplication(ctx, cmd)
		if err != nil {
			return err
		}
		defer app.close(context.Background())

		// the catalog must be in place before the first request
		if err := app.seed(ctx); err != nil {
			return err
		}

		option := app.option
		kv := driver.NewRedisClient(option.KVStore.Host, option.KVStore.Port, option.KVStore.Password)
		defer kv.Close()
		if err := kv.Ping(ctx); err != nil {
			app.logger.Warn("kv store unreachable, url cache and sign-out are degraded", zap.Error(err))
		}

		// nil interfaces when no remote backend is configured
		var (
			catalog video.Catalog
			storage video.PublicURLProvider
		)
		if rc := video.NewRemoteCatalog(video.CatalogConfig{
			BaseURL: option.Catalog.BaseURL,
			APIKey:  option.Catalog.APIKey,
			Bucket:  option.Catalog.Bucket,
			Table:   option.Catalog.Table,
			Timeout: option.Catalog.Timeout,
		}); rc != nil {
			catalog, storage = rc, rc
		}
		resolver := video.NewResolver(storage, kv, video.ResolverConfig{
			FallbackURL:   option.Media.FallbackURL,
			LocalPrefixes: option.Media.LocalPrefixes,
			CacheTTL:      option.KVStore.CacheTTL,
		})

		services := &rest.Services{
			UserUseCase: user.NewUserUseCase(
				user.NewUserRepository(app.conn, app.ids),
				user.NewEducationRepository(app.conn, app.ids),
				option.Security.MaxLoginAttempts,
				option.Security.RetryTimeout,
				option.Security.BcryptCost,
			),
			ProgressUseCase: progress.NewProgressUseCase(progress.NewProgressRepository(app.conn, app.ids), app.challenges),
			VideoUseCase: video.NewVideoUseCase(app.videos, catalog, resolver, video.DownloadConfig{
				Dir:        option.Media.DownloadDir,
				PublicPath: option.Media.PublicPath,
			}),
			Resolver: resolver,
			Seeder:   app.seeder,
		}
		server := rest.NewServer(app.conn, kv, option, services, app.logger)
		return rest.Serve(ctx, server, option, app.logger)
	},
}
