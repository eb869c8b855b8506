package runner

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// OutputFetcher はサーバーの /output から生成物を取得するのだ。
type OutputFetcher interface {
	FetchOutput(ctx context.Context, relPath string) ([]byte, error)
}

// PreviewRunner は生成されたサンプル画像を並列でダウンロードしてローカルに保存するのだ。
// 1枚でも失敗したら何も保存しないのだ。
type PreviewRunner struct {
	fetcher  OutputFetcher
	destDir  string
	interval time.Duration
}

// NewPreviewRunner は PreviewRunner を生成するのだ。
func NewPreviewRunner(fetcher OutputFetcher, destDir string, interval time.Duration) *PreviewRunner {
	return &PreviewRunner{
		fetcher:  fetcher,
		destDir:  destDir,
		interval: interval,
	}
}

// Run は relPaths をすべて取得し、保存したローカルパスを同じ順序で返すのだ。
func (pr *PreviewRunner) Run(ctx context.Context, relPaths []string) ([]string, error) {
	if len(relPaths) == 0 {
		return nil, nil
	}

	data := make([][]byte, len(relPaths))
	eg, egCtx := errgroup.WithContext(ctx)

	// Burst 2 で開始直後の2枚は待たずに取りに行くのだ
	limiter := rate.NewLimiter(rate.Every(pr.interval), 2)
	slog.Info("プレビューの取得を開始するのだ", "count", len(relPaths), "interval", pr.interval)

	for i, rel := range relPaths {
		eg.Go(func() error {
			if err := limiter.Wait(egCtx); err != nil {
				return err
			}
			b, err := pr.fetcher.FetchOutput(egCtx, rel)
			if err != nil {
				slog.Error("プレビューの取得に失敗したのだ", "path", rel, "error", err)
				return fmt.Errorf("プレビュー '%s' の取得に失敗したのだ: %w", rel, err)
			}
			data[i] = b
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(pr.destDir, 0o755); err != nil {
		return nil, fmt.Errorf("保存先ディレクトリの作成に失敗したのだ: %w", err)
	}
	saved := make([]string, len(relPaths))
	for i, rel := range relPaths {
		p := filepath.Join(pr.destDir, path.Base(rel))
		if err := os.WriteFile(p, data[i], 0o644); err != nil {
			return nil, fmt.Errorf("プレビューの保存に失敗したのだ: %w", err)
		}
		saved[i] = p
	}

	slog.Info("すべてのプレビューを保存したのだ", "total", len(saved), "dir", pr.destDir)
	return saved, nil
}
