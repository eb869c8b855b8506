package builder

import (
	"context"
	"fmt"

	"github.com/shouni/go-media-studio/internal/config"
	"github.com/shouni/go-media-studio/pkg/prefs"
	"github.com/shouni/go-media-studio/pkg/storage"
	"github.com/shouni/go-media-studio/pkg/studioapi"
	"github.com/shouni/go-media-studio/pkg/transfer"

	"github.com/shouni/go-http-kit/pkg/httpkit"
)

// AppContext は、CLI の各コマンドが共有する依存関係を保持する
// これを各Build関数に渡すことで、依存関係の注入を簡素化します。
type AppContext struct {
	Config   *config.Config        // Configは、環境変数から読み込まれた設定です。
	Options  config.Options        // Optionsは、コマンドラインから渡された実行時の設定です。
	Local    *storage.LocalStore   // Localは、userId や previousPrompt を永続化するストアです。
	Session  *storage.SessionStore // Sessionは、ページ間で受け渡すプロンプトを一時的に保持するストアです。
	Prefs    *prefs.Store
	Transfer *transfer.Adapter
	Restorer *transfer.Restorer
	API      *studioapi.Client
}

// NewAppContext は ストアを開いて AppContext を組み立てる
func NewAppContext(ctx context.Context, cfg *config.Config) (*AppContext, error) {
	opts := cfg.Options
	local, err := storage.OpenLocal(ctx, opts.StateDB)
	if err != nil {
		return nil, fmt.Errorf("ローカルストアのオープンに失敗したのだ: %w", err)
	}
	session, err := storage.OpenSessionStore(opts.SessionFile, config.DefaultSessionTTL)
	if err != nil {
		local.Close()
		return nil, fmt.Errorf("セッションストアのオープンに失敗したのだ: %w", err)
	}

	transferAdapter := transfer.New(session)

	return &AppContext{
		Config:   cfg,
		Options:  opts,
		Local:    local,
		Session:  session,
		Prefs:    prefs.New(local),
		Transfer: transferAdapter,
		Restorer: transfer.NewRestorer(transferAdapter, local),
		API:      studioapi.New(opts.ServerURL, httpkit.New(opts.HTTPTimeout)),
	}, nil
}

// Close は開いているストアを閉じる
func (a *AppContext) Close() error {
	return a.Local.Close()
}
