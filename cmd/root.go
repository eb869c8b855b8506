package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/shouni/go-media-studio/internal/builder"
	"github.com/shouni/go-media-studio/internal/config"
	"github.com/shouni/go-media-studio/pkg/domain"

	"github.com/spf13/cobra"
)

const appName = "media-studio"

// opts はグローバルフラグの値を受け取るのだ。
var opts config.Options

var rootCmd = &cobra.Command{
	Use:               appName,
	Short:             "プロンプトから画像と動画を生成するスタジオなのだ。",
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: preRunAppE,
}

// addAppFlags は、アプリケーション全般に適用されるグローバルフラグを定義するのだ。
func addAppFlags(rootCmd *cobra.Command) {
	// --- 接続先 ---
	rootCmd.PersistentFlags().StringVarP(&opts.ServerURL, "server", "s", config.DefaultServerURL, "生成サーバーの URL なのだ。")
	rootCmd.PersistentFlags().DurationVar(&opts.HTTPTimeout, "http-timeout", config.DefaultHTTPTimeout, "リクエストのタイムアウトなのだ。")

	// --- 状態の保存先 ---
	rootCmd.PersistentFlags().StringVar(&opts.StateDB, "state-db", config.DefaultStateDB, "ユーザーIDや直前のプロンプトを保存する SQLite ファイルなのだ。")
	rootCmd.PersistentFlags().StringVar(&opts.SessionFile, "session-file", config.DefaultSessionFile, "画面間で受け渡すプロンプトの一時ファイルなのだ。")

	rootCmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "デバッグログを出力するのだ。")
}

// preRunAppE は、コマンド実行前にログの出力レベルを決めるのだ。
func preRunAppE(cmd *cobra.Command, args []string) error {
	level := slog.LevelInfo
	if opts.Verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	return nil
}

// loadConfig は環境変数の設定にフラグの値を重ねるのだ。
// --server が省略されたときだけ STUDIO_SERVER_URL を使うのだ。
func loadConfig(cmd *cobra.Command) *config.Config {
	cfg := config.LoadConfig()
	if cmd.Flags().Changed("server") {
		cfg.ServerURL = opts.ServerURL
	}
	cfg.Options = opts
	cfg.Options.ServerURL = cfg.ServerURL
	return cfg
}

// withAppContext は AppContext を開いて fn を実行し、最後に閉じるのだ。
func withAppContext(cmd *cobra.Command, fn func(ctx context.Context, appCtx *builder.AppContext) error) error {
	ctx := cmd.Context()
	appCtx, err := builder.NewAppContext(ctx, loadConfig(cmd))
	if err != nil {
		return err
	}
	defer func() {
		if err := appCtx.Close(); err != nil {
			slog.Warn("ストアのクローズに失敗したのだ", "error", err)
		}
	}()
	return fn(ctx, appCtx)
}

// exitCode は入力不備なら 2、それ以外の失敗なら 1 を返すのだ。
func exitCode(err error) int {
	if errors.Is(err, domain.ErrValidation) {
		return 2
	}
	return 1
}

// Execute は、アプリケーションのメインエントリポイントなのだ。
// main.go から呼び出されて、cobra のコマンドライン解析を開始するのだよ。
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	addAppFlags(rootCmd)
	rootCmd.AddCommand(
		resolutionCmd,
		framesCmd,
		prefsCmd,
		promptCmd,
		examplesCmd,
		videoCmd,
		serveCmd,
	)

	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "エラー:", err)
		os.Exit(exitCode(err))
	}
}
