package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"duocal/src-server/metric"
	"duocal/src-server/model"
	"duocal/src-server/planner"
	"duocal/src-server/route"
	"duocal/src-server/utils"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func init() {
	if err := godotenv.Load(); err != nil {
		slog.Info(err.Error())
	}
	slog.SetDefault(slog.New(
		tint.NewHandler(os.Stderr, &tint.Options{
			Level:      utils.ParseLogLevel(os.Getenv("LOG_LEVEL")),
			TimeFormat: time.RFC1123Z,
		}),
	))
}

func main() {
	as := utils.NewAppState()

	if err := model.CreateSchema(context.Background(), as.BunDB); err != nil {
		slog.Error("can't create database schema", "error", err)
		os.Exit(1)
	}

	store := model.NewRuleStore(as.BunDB, as.Clock, as.MetricChans)
	p := planner.New(store, as.Clock, as.Natural, as.Config.GetExpandOptions(), as.MetricChans)

	metric.Init(as, prometheus.DefaultRegisterer)

	// http server
	muxer := http.NewServeMux()
	muxer.Handle("GET /metrics", promhttp.Handler())
	route.Calendar(muxer, as, p)
	route.Ical(muxer, as, p)
	route.Time(muxer, as)
	server := &http.Server{Addr: ":" + as.Config.GetPort(), Handler: muxer}
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("cannot start HTTP server", "error", err)
			as.AppCloseSignalChan <- syscall.SIGTERM
		}
	}()

	slog.Info("app is now running, press Ctrl+C to exit", "port", as.Config.GetPort())

	signal.Notify(as.AppCloseSignalChan, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	<-as.AppCloseSignalChan

	slog.Info("Gracefully shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		slog.Warn("can't shut down HTTP server", "error", err)
	}
	as.GracefulShutdown()
}
