package main

import (
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"

	"github.com/tokomart/tokomart/internal/clock"
	"github.com/tokomart/tokomart/internal/config"
	"github.com/tokomart/tokomart/internal/logger"
	"github.com/tokomart/tokomart/internal/migration"
	"github.com/tokomart/tokomart/internal/server"
	"github.com/tokomart/tokomart/pkg/db"
)

func main() {
	app := fx.New(
		config.Module,
		logger.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,
		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
