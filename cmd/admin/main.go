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

// 后台管理：/admin/v1，整组要求 ADMIN
func main() {
	_ = godotenv.Load()
	cfg := config.Load(os.Getenv("CONFIG_PATH"))

	a, err := app.New(context.Background(), cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "bootstrap:", err)
		os.Exit(1)
	}

	r := router.NewAdminEngine(a.Log, a.Options(cfg.App.Name+"-admin"), a.JWT, a.Users, a.Mods)
	err = a.Serve(app.Listener{Name: "admin", Host: cfg.App.Admin.Host, Port: cfg.App.Admin.Port, Prefix: "/admin/v1"}, r)
	if err != nil {
		a.Log.Error("admin exited", zap.Error(err))
	}
	a.Close()
	if err != nil {
		os.Exit(1)
	}
}
