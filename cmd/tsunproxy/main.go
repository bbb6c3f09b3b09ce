// Command tsunproxy runs the TSUN Gen3+/Gen3 data-logger proxy: it
// terminates inverter connections, decodes Solarman V5 telemetry,
// relays traffic on to the TSUN cloud, and publishes AT-command
// responses over MQTT.
package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/benbjohnson/clock"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/tsunproxy/gen3plus/internal/config"
	"github.com/tsunproxy/gen3plus/internal/gen3"
	"github.com/tsunproxy/gen3plus/internal/gen3plus"
	"github.com/tsunproxy/gen3plus/internal/infos"
	"github.com/tsunproxy/gen3plus/internal/mqttpub"
	"github.com/tsunproxy/gen3plus/internal/server"
)

var cfgPath string

func main() {
	root := &cobra.Command{
		Use:   "tsunproxy",
		Short: "Proxy between TSUN Gen3/Gen3+ data loggers and the TSUN cloud",
		RunE:  run,
	}
	root.Flags().StringVar(&cfgPath, "config", "", "path to a YAML config file")

	if err := root.Execute(); err != nil {
		logrus.WithError(err).Fatal("tsunproxy exited with error")
	}
}

func run(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}

	log := logrus.New()
	if lvl, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(lvl)
	}
	entry := logrus.NewEntry(log)

	pub, err := mqttpub.New(cfg.MQTT.Broker, cfg.MQTT.ClientID, cfg.MQTT.Username, cfg.MQTT.Password, cfg.MQTT.TopicRoot, entry)
	if err != nil {
		return err
	}
	defer pub.Close()

	clk := clock.New()
	srv := server.New(cfg.Gen3Plus.CloudAddr, gen3plus.DialTCP, pub, clk, entry.WithField("listener", "gen3plus"))
	legacy := gen3.New(infos.NewStore(), entry.WithField("listener", "gen3"))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 2)
	go func() { errCh <- srv.ListenAndServe(ctx, cfg.Gen3Plus.ListenAddr) }()
	go func() { errCh <- legacy.ListenAndServe(ctx, cfg.Gen3.ListenAddr) }()

	httpSrv := &httpServer{addr: cfg.HTTP.ListenAddr, handler: server.NewHTTPHandler(srv, entry)}
	go httpSrv.run(ctx, entry)

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			entry.WithError(err).Error("listener failed")
		}
	}

	entry.Info("shutting down")
	srv.Shutdown(ctx)
	return nil
}
