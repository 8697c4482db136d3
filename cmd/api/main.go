package main

import (
	"context"
	"fmt"
	"os"

	_ "go.uber.org/automaxprocs"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"arzaquna-api/internal/app"
	"arzaquna-api/internal/core/config"
	"arzaquna-api/internal/transport/http/router"
)

// 用户端与移动端接口：/api/v1
func main() {
	_ = godotenv.Load()
	cfg := config.Load(os.Getenv("CONFIG_PATH"))

	a, err := app.New(context.Background(), cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "bootstrap:", err)
		os.Exit(1)
	}

	r := router.NewAPIEngine(a.Log, a.Options(cfg.App.Name), a.JWT, a.Users, a.Mods)
	err = a.Serve(app.Listener{Name: "api", Host: cfg.App.HTTP.Host, Port: cfg.App.HTTP.Port, Prefix: "/api/v1"}, r)
	if err != nil {
		a.Log.Error("api exited", zap.Error(err))
	}
	a.Close()
	if err != nil {
		os.Exit(1)
	}
}
