package builder

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shouni/go-media-studio/internal/config"
	"github.com/shouni/go-media-studio/pkg/domain"
)

func TestNewAppContext(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	cfg := &config.Config{Options: config.Options{
		ServerURL:   "http://localhost:8888",
		HTTPTimeout: time.Second,
		StateDB:     filepath.Join(dir, "state", "state.db"),
		SessionFile: filepath.Join(dir, "state", "session.gob"),
	}}

	appCtx, err := NewAppContext(ctx, cfg)
	if err != nil {
		t.Fatalf("AppContext の構築に失敗したのだ: %v", err)
	}
	if appCtx.API == nil || appCtx.Prefs == nil || appCtx.Transfer == nil || appCtx.Restorer == nil {
		t.Fatalf("依存関係が組み立てられていないのだ: %+v", appCtx)
	}

	if err := appCtx.Prefs.SetUserID(ctx, "studio-user"); err != nil {
		t.Fatal(err)
	}
	if _, err := appCtx.Transfer.HandOffToVideo(ctx, "ocean"); err != nil {
		t.Fatal(err)
	}
	if err := appCtx.Close(); err != nil {
		t.Fatalf("クローズに失敗したのだ: %v", err)
	}

	// 開き直しても設定と受け渡し中のプロンプトが残っているのだ
	reopened, err := NewAppContext(ctx, cfg)
	if err != nil {
		t.Fatal(err)
	}
	defer reopened.Close()

	p, err := reopened.Prefs.Load(ctx, domain.PageVideo)
	if err != nil || p.UserID != "studio-user" || p.SubPath != "videos" {
		t.Errorf("設定が引き継がれていないのだ: %+v (%v)", p, err)
	}
	if got, ok, err := reopened.Transfer.TakeVideoPrompt(ctx); err != nil || !ok || got != "ocean" {
		t.Errorf("受け渡し中のプロンプトが引き継がれていないのだ: %q %v %v", got, ok, err)
	}
}
