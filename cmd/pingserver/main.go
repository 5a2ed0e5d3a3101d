package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/caarlos0/env/v11"
	"github.com/df-mc/dragonfly/server/player/chat"
	"github.com/hbidamian/pausescreenping/pingboard"
	"github.com/hbidamian/pausescreenping/server"
	"github.com/hbidamian/pausescreenping/server/cmd/builtin"
	"github.com/hbidamian/pausescreenping/server/console"
	"github.com/hbidamian/pausescreenping/server/plugin"
	"github.com/hbidamian/pausescreenping/server/query"
	"github.com/hbidamian/pausescreenping/server/session"
)

// environment holds settings read from environment variables.
type environment struct {
	ConfigPath string     `env:"PINGSERVER_CONFIG" envDefault:"pingserver.toml"`
	LogLevel   slog.Level `env:"PINGSERVER_LOG_LEVEL" envDefault:"INFO"`
}

func main() {
	var e environment
	if err := env.Parse(&e); err != nil {
		slog.Error("Parse environment.", "error", err)
		os.Exit(1)
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: e.LogLevel}))
	slog.SetDefault(log)
	chat.Global.Subscribe(chat.StdoutSubscriber{})

	if err := run(e, log); err != nil {
		log.Error("Server stopped with an error.", "error", err)
		os.Exit(1)
	}
}

func run(e environment, log *slog.Logger) error {
	c, err := server.ReadConfig(e.ConfigPath)
	if err != nil {
		return err
	}
	reg := session.NewRegistry()
	conf, err := c.ServerConfig(reg, log)
	if err != nil {
		return err
	}
	srv := conf.New()

	host := server.NewHost(srv, reg, conf.Name, log)
	manager := plugin.NewManager(host, c.PluginConfig())
	manager.Register(pingboard.Name, pingboard.New)
	builtin.Register(manager, host)
	if c.Query.Enabled {
		query.Register(host.QueryProvider(manager), log)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go manager.Run(ctx)
	manager.LoadConfigured()
	go console.New(srv.World(), log).Run(ctx)
	go func() {
		<-ctx.Done()
		manager.Shutdown()
		if err := srv.Close(); err != nil {
			log.Error("Close server.", "error", err)
		}
	}()

	srv.Listen()
	host.Serve(manager)
	return nil
}
