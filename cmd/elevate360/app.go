package main

import (
	"context"
	"fmt"
	"time"

	"github.com/Jojopunk/elevate360-skill-builder/internal/bootstrap"
	"github.com/Jojopunk/elevate360-skill-builder/internal/challenge"
	infra "github.com/Jojopunk/elevate360-skill-builder/internal/infrastructure"
	"github.com/Jojopunk/elevate360-skill-builder/internal/infrastructure/driver"
	"github.com/Jojopunk/elevate360-skill-builder/internal/infrastructure/logging"
	"github.com/Jojopunk/elevate360-skill-builder/internal/infrastructure/uuid"
	"github.com/Jojopunk/elevate360-skill-builder/internal/infrastructure/validate"
	"github.com/Jojopunk/elevate360-skill-builder/internal/video"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// application shared dependencies of every command
type application struct {
	option *infra.AppConfig
	logger *zap.Logger
	conn   driver.ITransactionalDB
	ids    uuid.Generator

	challenges *challenge.ChallengeSQL
	videos     *video.VideoSQL
	seeder     *bootstrap.Seeder
}

// newApplication loads the config, connects the database and makes sure every table exists
func newApplication(ctx context.Context, cmd *cobra.Command) (*application, error) {
	option, err := infra.LoadConfig(cmd.Flags())
	if err != nil {
		return nil, err
	}

	logger, err := logging.NewLogger(&logging.Config{
		FilePath: option.Logging.FilePath,
		Level:    option.Logging.Level,
		AppID:    option.AppID,
		Env:      option.Env,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	conn, err := driver.GetDBConnection(logging.SetLoggerInContext(ctx, logger), &driver.DBConfig{
		Driver:   option.Database.Driver,
		Host:     option.Database.Host,
		MaxConn:  option.Database.MaxConn,
		Password: option.Database.Password,
		Path:     option.Database.Path,
		Port:     option.Database.Port,
		Protocol: option.Database.Protocol,
		Query:    option.Database.Query,
		Schema:   option.Database.Schema,
		User:     option.Database.User,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create DB connection: %w", err)
	}
	logger.Debug("Create DB connection instance",
		zap.String("db.driver", option.Database.Driver),
		zap.String("db.schema", option.Database.Schema),
		zap.String("db.host", option.Database.Host),
	)

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := bootstrap.EnsureSchema(logging.SetLoggerInContext(ctx, logger), conn); err != nil {
		conn.Close(ctx)
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	catalog, err := bootstrap.DefaultCatalog(validate.NewValidator())
	if err != nil {
		conn.Close(ctx)
		return nil, err
	}
	challenges := challenge.NewChallengeRepository(conn)
	videos := video.NewVideoRepository(conn)
	return &application{
		option:     option,
		logger:     logger,
		conn:       conn,
		ids:        uuid.NewNanoIDGenerator(option.Security.IDLength),
		challenges: challenges,
		videos:     videos,
		seeder:     bootstrap.NewSeeder(challenges, videos, catalog),
	}, nil
}

func (app *application) seed(ctx context.Context) error {
	result, err := app.seeder.Seed(logging.SetLoggerInContext(ctx, app.logger))
	if err != nil {
		return fmt.Errorf("failed to seed content: %w", err)
	}
	app.logger.Info("Content seeded", zap.Int("challenges", result.Challenges), zap.Int("videos", result.Videos))
	return nil
}

func (app *application) close(ctx context.Context) {
	if err := app.conn.Close(ctx); err != nil {
		app.logger.Warn("failed to close DB connection", zap.Error(err))
	}
	app.logger.Sync()
}
