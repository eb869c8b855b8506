package builder

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shouni/go-media-studio/internal/comfyui"
	"github.com/shouni/go-media-studio/internal/config"
	"github.com/shouni/go-media-studio/internal/promptstore"
	"github.com/shouni/go-media-studio/internal/runner"
	"github.com/shouni/go-media-studio/internal/server"
	"github.com/shouni/go-media-studio/pkg/promptgen"

	"github.com/shouni/go-http-kit/pkg/httpkit"
)

// BuildPreviewRunner はサンプル画像をローカルに保存する Runner を構築します。
func BuildPreviewRunner(appCtx *AppContext, destDir string) *runner.PreviewRunner {
	return runner.NewPreviewRunner(appCtx.API, destDir, config.DefaultPreviewInterval)
}

// BuildPromptGenerator は Gemini を使うプロンプト生成器を構築します。
func BuildPromptGenerator(ctx context.Context, cfg *config.Config) (*promptgen.Generator, error) {
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("環境変数 GEMINI_API_KEY が設定されていないのだ")
	}
	completer, err := promptgen.NewGeminiCompleter(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	if err != nil {
		return nil, fmt.Errorf("AIクライアントの初期化に失敗しました: %w", err)
	}
	return promptgen.NewGenerator(completer), nil
}

// BuildComfyClient はアドレスファイルを読み込んで ComfyUI クライアントを構築します。
func BuildComfyClient(cfg *config.Config) (*comfyui.Client, error) {
	addr, err := config.LoadComfyAddress(cfg.AddressFile)
	if err != nil {
		return nil, err
	}
	client, err := comfyui.NewClient(addr, cfg.OutputDir, httpkit.New(cfg.Options.HTTPTimeout))
	if err != nil {
		return nil, fmt.Errorf("ComfyUIクライアントの初期化に失敗したのだ: %w", err)
	}
	slog.Info("ComfyUI に接続するのだ", "url", addr, "output_dir", cfg.OutputDir)
	return client, nil
}

// BuildServer はバックエンドサーバーを構築します。
// GEMINI_API_KEY が無い場合、プロンプト生成だけが無効になります。
func BuildServer(ctx context.Context, cfg *config.Config) (*server.Server, error) {
	comfy, err := BuildComfyClient(cfg)
	if err != nil {
		return nil, err
	}

	opts := server.Options{
		OutputDir: comfy.OutputDir(),
		Media:     comfy,
		Store:     promptstore.New(comfy.OutputDir()),
	}
	gen, err := BuildPromptGenerator(ctx, cfg)
	if err != nil {
		slog.WarnContext(ctx, "プロンプト生成は無効なのだ", "error", err)
	} else {
		opts.Prompts = gen
	}

	return server.New(opts)
}
