package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/shouni/go-storyboard-kit/internal/server"

	"github.com/spf13/cobra"
)

var serveAddr string

// serveCmd はローカル UI 向けの API サーバーを起動するのだ。
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "ローカル API サーバーを起動するのだ。",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		addr := app.Config.Addr
		if serveAddr != "" {
			addr = serveAddr
		}
		return server.Start(ctx, server.StartOpts{
			Manager:        app.Manager,
			Addr:           addr,
			RequestTimeout: app.Config.RequestTimeout,
			Out:            cmd.OutOrStdout(),
		})
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "待ち受けアドレス（設定より優先）なのだ。")
}
