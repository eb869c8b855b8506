package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shouni/go-media-studio/internal/builder"
	"github.com/shouni/go-media-studio/pkg/domain"
	"github.com/shouni/go-media-studio/pkg/params"
	"github.com/shouni/go-media-studio/pkg/resolution"
	"github.com/shouni/go-media-studio/pkg/studioapi"
	"github.com/shouni/go-media-studio/pkg/transfer"
)

// ExamplesOptions はサンプル画像生成の入力なのだ。
type ExamplesOptions struct {
	Prompt      string // 空なら受け渡し済み、または直前のプロンプトを使うのだ
	Orientation resolution.Orientation
	DestDir     string // 空ならダウンロードしないのだ
}

// ExamplesResult はサンプル画像生成の結果なのだ。
type ExamplesResult struct {
	Prompt     string
	Source     transfer.Source
	ImagePaths []string // サーバー上の相対パスなのだ
	LocalPaths []string
	Layout     params.GridLayout
}

// ExecuteExamples は、プロンプトを確定させてサンプル画像を生成し、
// 指定があればプレビューをローカルに保存するのだ。
func ExecuteExamples(ctx context.Context, appCtx *builder.AppContext, opts ExamplesOptions) (*ExamplesResult, error) {
	res := &ExamplesResult{Prompt: opts.Prompt}
	if res.Prompt == "" {
		prompt, source, err := appCtx.Restorer.Restore(ctx)
		if err != nil {
			return nil, err
		}
		res.Prompt, res.Source = prompt, source
	}
	if res.Prompt == "" {
		return nil, domain.NewValidationError("prompt", "プロンプトを入力してください")
	}
	if err := appCtx.Restorer.Remember(ctx, res.Prompt); err != nil {
		return nil, err
	}

	prefs, err := appCtx.Prefs.Load(ctx, domain.PagePrompt)
	if err != nil {
		slog.WarnContext(ctx, "設定の読み込みに失敗したので既定値を使うのだ", "error", err)
	}

	slog.Info("サンプル画像の生成を開始するのだ", "user_id", prefs.UserID, "sub_path", prefs.SubPath, "source", res.Source)
	paths, err := appCtx.API.GenerateExamples(ctx, res.Prompt, prefs)
	if err != nil {
		return nil, fmt.Errorf("サンプル画像の生成に失敗したのだ: %w", err)
	}
	res.ImagePaths = paths
	res.Layout = params.PreviewGrid(len(paths), opts.Orientation)

	if opts.DestDir != "" && len(paths) > 0 {
		local, err := builder.BuildPreviewRunner(appCtx, opts.DestDir).Run(ctx, paths)
		if err != nil {
			return nil, fmt.Errorf("プレビューの保存に失敗したのだ: %w", err)
		}
		res.LocalPaths = local
	}
	return res, nil
}

// VideoOutcome は動画生成の結果なのだ。
type VideoOutcome struct {
	domain.VideoResult
	Prompt string
	URL    string
}

// ExecuteVideo は、動画画面の入力値で動画を生成するのだ。
// プロンプトが空ならプロンプト画面から受け渡された値を1度だけ使うのだ。
func ExecuteVideo(ctx context.Context, appCtx *builder.AppContext, settings studioapi.VideoSettings) (*VideoOutcome, error) {
	if settings.Prompt == "" {
		prompt, ok, err := appCtx.Transfer.TakeVideoPrompt(ctx)
		if err != nil {
			return nil, err
		}
		if ok {
			slog.Info("受け渡されたプロンプトを使うのだ")
			settings.Prompt = prompt
		}
	}

	prefs, err := appCtx.Prefs.Load(ctx, domain.PageVideo)
	if err != nil {
		slog.WarnContext(ctx, "設定の読み込みに失敗したので既定値を使うのだ", "error", err)
	}

	slog.Info("動画の生成を開始するのだ",
		"frames", settings.FrameLength,
		"width", settings.Dimensions.Width,
		"height", settings.Dimensions.Height,
		"upscale", settings.EnableUpscale)

	res, err := appCtx.API.GenerateVideo(ctx, settings, prefs)
	if err != nil {
		return nil, fmt.Errorf("動画の生成に失敗したのだ: %w", err)
	}

	out := &VideoOutcome{
		VideoResult: res,
		Prompt:      settings.Prompt,
		URL:         appCtx.API.OutputURL(res.Folder + "/" + res.Filename),
	}
	slog.Info("動画が完成したのだ！", "seed", res.Seed, "url", out.URL)
	return out, nil
}
