package main

import (
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"

	"github.com/salasbeats/marketplace/internal/clock"
	"github.com/salasbeats/marketplace/internal/config"
	"github.com/salasbeats/marketplace/internal/logger"
	"github.com/salasbeats/marketplace/internal/migration"
	"github.com/salasbeats/marketplace/internal/observability"
	"github.com/salasbeats/marketplace/internal/server"
	"github.com/salasbeats/marketplace/pkg/db"
)

func newSnowflakeNode() (*snowflake.Node, error) {
	return snowflake.NewNode(1)
}

func main() {
	app := fx.New(
		config.Module,
		logger.Module,
		observability.Module,
		fx.Provide(newSnowflakeNode),
		db.Module,
		clock.Module,
		migration.Module,
		server.Module,
	)
	app.Run()
}
