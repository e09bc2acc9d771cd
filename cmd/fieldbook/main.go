package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/fieldbook/internal/clock"
	"github.com/smallbiznis/fieldbook/internal/config"
	"github.com/smallbiznis/fieldbook/internal/migration"
	"github.com/smallbiznis/fieldbook/internal/observability"
	"github.com/smallbiznis/fieldbook/internal/scheduler"
	"github.com/smallbiznis/fieldbook/internal/seed"
	"github.com/smallbiznis/fieldbook/internal/server"
	"github.com/smallbiznis/fieldbook/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,
		seed.Module,
		server.Module,
		scheduler.Module,
	)
	app.Run()
}

func RegisterSnowflake(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.SnowflakeNode)
}
