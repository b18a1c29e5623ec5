package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/qualitrace/qualitrace/internal/migration"
	"github.com/qualitrace/qualitrace/internal/server"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		fx.Provide(RegisterSnowflake),
		server.Module,
		migration.Module,
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
