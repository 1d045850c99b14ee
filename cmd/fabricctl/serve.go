package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/danmuck/fabricctl/internal/logging"
	"github.com/danmuck/fabricctl/internal/openflow"
	"github.com/danmuck/fabricctl/internal/routing"
	"github.com/danmuck/fabricctl/internal/server"
	"github.com/danmuck/fabricctl/internal/session"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newServeCmd() *cobra.Command {
	var (
		fabric fabricFlags
		listen string
		admin  string
		mode   string
		noHTTP bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Accept OpenFlow 1.3 switches and route packet-ins",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fs := cmd.Flags()
			cfg, err := fabric.load(fs)
			if err != nil {
				return err
			}
			if fs.Changed("listen") {
				cfg.Controller.ListenAddr = listen
			}
			if fs.Changed("admin") {
				cfg.Admin.ListenAddr = admin
			}
			if fs.Changed("mode") {
				cfg.Controller.Mode = mode
			}
			if noHTTP {
				cfg.Admin.Enabled = false
			}
			if _, err := routing.ParseMode(cfg.Controller.Mode); err != nil {
				return err
			}
			logging.SetLevel(cfg.Log.Level)

			engine, err := routing.NewEngine(cfg.Routing())
			if err != nil {
				return err
			}
			manager := session.NewManager(engine, cfg.Mode(), log.Logger)
			controller := openflow.NewController(cfg.OpenFlow(), manager, log.Logger)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			log.Info().
				Int("fanout", cfg.Fabric.Fanout).
				Int("depth", cfg.Fabric.Depth).
				Str("mode", string(cfg.Mode())).
				Msg("fabricctl_start")

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error { return controller.ListenAndServe(gctx) })
			if cfg.Admin.Enabled {
				gin.SetMode(gin.ReleaseMode)
				srv := server.New("fabricctl", cfg.Admin.ListenAddr, cfg.Admin.CorsOrigins, manager)
				g.Go(func() error { return srv.Serve(gctx) })
			}
			err = g.Wait()
			if err != nil && ctx.Err() == nil {
				return err
			}
			log.Info().Msg("fabricctl_stopped")
			return nil
		},
	}
	fs := cmd.Flags()
	fabric.register(fs)
	fs.StringVar(&listen, "listen", "", "OpenFlow listen address (default from config, :6653)")
	fs.StringVar(&admin, "admin", "", "admin HTTP listen address")
	fs.StringVar(&mode, "mode", "", "forwarding mode: topology|hub|learning")
	fs.BoolVar(&noHTTP, "no-admin", false, "disable the admin HTTP server")
	return cmd
}
