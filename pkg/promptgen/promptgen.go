// Package promptgen はターゲット設定から動画広告向けのプロンプトを生成します。
package promptgen

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shouni/go-media-studio/pkg/domain"

	"github.com/shouni/go-gemini-client/pkg/gemini"
	"google.golang.org/genai"
)

// SystemPrompt は生成モデルへの役割指示です。
const SystemPrompt = `You are an expert at creating detailed prompts for video advertisements. Your task is to generate clear, specific, and creative prompts that will be used to generate video content. Focus on these aspects:
1. Visual elements and scenes
2. Style and atmosphere
3. Color schemes and lighting
4. Camera movements and transitions
5. Target audience considerations
6. Brand tone and message

The prompt should be optimized for AI video generation and maintain consistency with the target audience and marketing goals.`

// DefaultTemperature はプロンプト生成時の温度です。
const DefaultTemperature = float32(0.7)

// ErrEmptyResponse はモデルが空の応答を返したことを表します。
var ErrEmptyResponse = errors.New("生成されたプロンプトが空です")

// Completer はテキストを補完するモデルです。
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// BuildStructuredPrompt は入力された項目だけを並べた指示文を作ります。
func BuildStructuredPrompt(req domain.PromptRequest) string {
	var b strings.Builder
	b.WriteString("Create a video advertisement with the following specifications:\n\n")

	var target []string
	if req.Gender != "" {
		target = append(target, "Gender: "+req.Gender)
	}
	if req.AgeGroup != "" {
		target = append(target, "Age Group: "+req.AgeGroup)
	}
	if len(target) > 0 {
		b.WriteString("Target Audience:\n" + strings.Join(target, "\n") + "\n\n")
	}
	if req.ProductCategory != "" {
		fmt.Fprintf(&b, "Product Category: %s\n\n", req.ProductCategory)
	}
	if req.SeasonEvent != "" {
		fmt.Fprintf(&b, "Seasonal Context: %s\n\n", req.SeasonEvent)
	}
	if req.AdTone != "" {
		fmt.Fprintf(&b, "Advertisement Tone: %s\n\n", req.AdTone)
	}
	if req.AdditionalRequests != "" {
		fmt.Fprintf(&b, "Additional Requirements:\n%s\n", req.AdditionalRequests)
	}
	return b.String()
}

// Generator はターゲット設定からプロンプトを生成します。
type Generator struct {
	model Completer
}

// NewGenerator は Generator を生成します。
func NewGenerator(model Completer) *Generator {
	return &Generator{model: model}
}

// Generate は構造化した指示文をモデルに渡し、生成されたプロンプトを返します。
func (g *Generator) Generate(ctx context.Context, req domain.PromptRequest) (string, error) {
	structured := BuildStructuredPrompt(req)
	slog.InfoContext(ctx, "プロンプトを生成します",
		"product_category", req.ProductCategory,
		"ad_tone", req.AdTone,
	)

	out, err := g.model.Complete(ctx, SystemPrompt+"\n\n"+structured)
	if err != nil {
		return "", fmt.Errorf("プロンプトの生成に失敗しました: %w", err)
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return "", ErrEmptyResponse
	}
	return out, nil
}

// geminiCompleter は Gemini を Completer として扱います。
type geminiCompleter struct {
	client gemini.GenerativeModel
	model  string
}

// NewGeminiCompleter は Gemini クライアントを初期化して Completer を返します。
func NewGeminiCompleter(ctx context.Context, apiKey, model string) (Completer, error) {
	clientConfig := gemini.Config{
		APIKey:      apiKey,
		Temperature: genai.Ptr(DefaultTemperature),
	}
	client, err := gemini.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("AIクライアントの初期化に失敗しました: %w", err)
	}
	return &geminiCompleter{client: client, model: model}, nil
}

func (g *geminiCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.GenerateContent(ctx, prompt, g.model)
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}
