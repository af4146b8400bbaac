package main

import (
	"github.com/gencam/gencam/internal/api"
	"github.com/gencam/gencam/internal/api/ws"
	"github.com/gencam/gencam/internal/app"
	"github.com/gencam/gencam/internal/camera"
	"github.com/gencam/gencam/pkg/shell"
)

func main() {
	app.Init() // init config and logs

	api.Init() // init HTTP API server
	ws.Init()  // init websocket server

	camera.Init() // open configured capture devices

	shell.RunUntilSignal()

	camera.Shutdown()
	app.Shutdown()
}
