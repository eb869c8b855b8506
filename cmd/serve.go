package cmd

import (
	"log/slog"

	"github.com/shouni/go-media-studio/internal/builder"
	"github.com/shouni/go-media-studio/internal/config"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

var serveAddr string

// serveCmd は、ComfyUI と Gemini をつなぐバックエンドサーバーを起動するのだ。
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "生成サーバーを起動するのだ。",
	Long: `ComfyUI のアドレスは IP_PORT_ADDRESS.txt（IP と PORT）から読み込むのだ。
GEMINI_API_KEY が無い場合はプロンプト生成だけが無効になるのだよ。`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if !opts.Verbose {
			gin.SetMode(gin.ReleaseMode)
		}

		srv, err := builder.BuildServer(ctx, loadConfig(cmd))
		if err != nil {
			return err
		}
		slog.Info("サーバーを起動するのだ！", "addr", serveAddr)
		return srv.Run(ctx, serveAddr)
	},
}

func init() {
	serveCmd.Flags().StringVarP(&serveAddr, "addr", "a", config.DefaultListenAddr, "待ち受けアドレスなのだ。")
}
