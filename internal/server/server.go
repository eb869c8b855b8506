// Package server は生成スタジオのバックエンド HTTP サーバーなのだ。
//
// プロンプト生成は Gemini に、画像・動画生成は ComfyUI に委ねるのだ。
// プロンプトファイルは出力ディレクトリ配下にユーザーごとに保存するのだ。
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/shouni/go-media-studio/internal/comfyui"
	"github.com/shouni/go-media-studio/internal/promptstore"
	"github.com/shouni/go-media-studio/pkg/domain"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

const (
	// DefaultExamplesFolder は savePath が省略されたときのサンプル画像の保存先なのだ。
	DefaultExamplesFolder = "flux_examples"
	// DefaultVideoFolder は savePath が省略されたときの動画の保存先なのだ。
	DefaultVideoFolder = "KTaivle"

	defaultListCacheTTL = 30 * time.Second
	shutdownTimeout     = 10 * time.Second
)

// MediaGenerator は画像・動画の生成バックエンドなのだ。
type MediaGenerator interface {
	GenerateImages(ctx context.Context, job comfyui.ImageJob) ([]string, error)
	GenerateVideo(ctx context.Context, job comfyui.VideoJob) (string, error)
}

// PromptGenerator はターゲット設定からプロンプトを生成するのだ。
type PromptGenerator interface {
	Generate(ctx context.Context, req domain.PromptRequest) (string, error)
}

// Options はサーバーの依存関係なのだ。
type Options struct {
	OutputDir string
	Media     MediaGenerator
	Prompts   PromptGenerator
	Store     *promptstore.Store
	// Limiter は生成系エンドポイントの流量制限なのだ。nil なら1秒に1件なのだ。
	Limiter *rate.Limiter
}

// Server は gin のエンジンと依存関係をまとめたものなのだ。
type Server struct {
	engine    *gin.Engine
	outputDir string
	media     MediaGenerator
	prompts   PromptGenerator
	store     *promptstore.Store
	limiter   *rate.Limiter
	listCache *cache.Cache
}

// New はルーティングを設定した Server を返すのだ。
func New(opts Options) (*Server, error) {
	if opts.OutputDir == "" {
		return nil, errors.New("出力ディレクトリは必須なのだ")
	}
	if opts.Store == nil {
		opts.Store = promptstore.New(opts.OutputDir)
	}
	if opts.Limiter == nil {
		opts.Limiter = rate.NewLimiter(rate.Every(time.Second), 1)
	}

	s := &Server{
		engine:    gin.New(),
		outputDir: opts.OutputDir,
		media:     opts.Media,
		prompts:   opts.Prompts,
		store:     opts.Store,
		limiter:   opts.Limiter,
		listCache: cache.New(defaultListCacheTTL, 2*defaultListCacheTTL),
	}
	s.engine.Use(gin.Recovery(), requestLogger())
	s.routes()
	return s, nil
}

func (s *Server) routes() {
	s.engine.POST("/generate_prompt", s.handleGeneratePrompt)
	s.engine.POST("/generate_examples", s.rateLimited, s.handleGenerateExamples)
	s.engine.POST("/generate", s.rateLimited, s.handleGenerateVideo)
	s.engine.POST("/save_prompt", s.handleSavePrompt)
	s.engine.GET("/load_prompts", s.handleLoadPrompts)
	s.engine.GET("/load_prompt", s.handleLoadPrompt)
	s.engine.GET("/output/*filepath", s.handleOutput)
}

// Handler は http.Handler としてのサーバーを返すのだ。
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run は addr で待ち受け、ctx がキャンセルされたら処理中のリクエストを待って終了するのだ。
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("サーバーを起動したのだ", "addr", addr, "output_dir", s.outputDir)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("サーバーの起動に失敗したのだ: %w", err)
	case <-ctx.Done():
	}

	slog.Info("サーバーを停止するのだ")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("サーバーの停止に失敗したのだ: %w", err)
	}
	return nil
}

// rateLimited は生成系リクエストを1秒に1件までに制限するのだ。
func (s *Server) rateLimited(c *gin.Context) {
	if !s.limiter.Allow() {
		abortError(c, http.StatusTooManyRequests, "リクエストが多すぎます。しばらく待ってから再度お試しください")
		return
	}
	c.Next()
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		slog.Info("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"elapsed", time.Since(start),
		)
	}
}

func abortError(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}
