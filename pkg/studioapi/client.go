// Package studioapi は生成サーバーの HTTP API クライアントです。
//
// 入力の不備はリクエストを送る前に ValidationError として返します。
// 同じ操作・同じ内容の同時送信は1回のリクエストにまとめられます。
// 再試行は行いません。
package studioapi

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/shouni/go-media-studio/pkg/domain"
	"github.com/shouni/go-media-studio/pkg/framelength"
	"github.com/shouni/go-media-studio/pkg/params"
	"github.com/shouni/go-media-studio/pkg/resolution"

	"golang.org/x/sync/singleflight"
)

const (
	EndpointGeneratePrompt   = "/generate_prompt"
	EndpointGenerateExamples = "/generate_examples"
	EndpointGenerateVideo    = "/generate"
	EndpointSavePrompt       = "/save_prompt"
	EndpointLoadPrompts      = "/load_prompts"
	EndpointLoadPrompt       = "/load_prompt"
	EndpointOutput           = "/output/"
)

// Doer は HTTP リクエストを実行するクライアントです。
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client は生成サーバーとの通信を担当します。
type Client struct {
	baseURL string
	http    Doer
	group   singleflight.Group
}

// New は Client を生成します。
func New(baseURL string, doer Doer) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    doer,
	}
}

// GeneratePrompt はターゲット設定と追加要望から画像生成用プロンプトを作成させます。
func (c *Client) GeneratePrompt(ctx context.Context, req domain.PromptRequest) (string, error) {
	var res domain.PromptResult
	if err := c.postJSON(ctx, EndpointGeneratePrompt, req, &res); err != nil {
		return "", err
	}
	return res.GeneratedPrompt, nil
}

// GenerateExamples はプロンプトからサンプル画像を生成させ、出力ディレクトリからの相対パスを返します。
func (c *Client) GenerateExamples(ctx context.Context, prompt string, prefs domain.UserPreferences) ([]string, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, domain.NewValidationError("prompt", "プロンプトを入力してください")
	}
	savePath, err := prefs.SavePath()
	if err != nil {
		return nil, err
	}

	var res domain.ExamplesResult
	body := domain.ExamplesRequest{Prompt: prompt, SavePath: savePath}
	if err := c.postJSON(ctx, EndpointGenerateExamples, body, &res); err != nil {
		return nil, err
	}
	return res.ImagePaths, nil
}

// VideoSettings は動画画面の入力値です。
type VideoSettings struct {
	Prompt        string
	UseRandomSeed bool
	Seed          int64
	FrameLength   int
	Dimensions    resolution.Dimensions
	EnableUpscale bool
}

// GenerateVideo は動画を生成させます。フレーム数は送信前に 4k+1 に量子化されます。
func (c *Client) GenerateVideo(ctx context.Context, s VideoSettings, prefs domain.UserPreferences) (domain.VideoResult, error) {
	req, err := BuildVideoRequest(s, prefs)
	if err != nil {
		return domain.VideoResult{}, err
	}

	var res domain.VideoResult
	if err := c.postJSON(ctx, EndpointGenerateVideo, req, &res); err != nil {
		return domain.VideoResult{}, err
	}
	return res, nil
}

// BuildVideoRequest は入力値を検証して /generate のリクエストボディを組み立てます。
func BuildVideoRequest(s VideoSettings, prefs domain.UserPreferences) (domain.VideoRequest, error) {
	prompt := strings.TrimSpace(s.Prompt)
	if prompt == "" {
		return domain.VideoRequest{}, domain.NewValidationError("prompt", "プロンプトを入力してください")
	}
	savePath, err := prefs.SavePath()
	if err != nil {
		return domain.VideoRequest{}, err
	}
	req := domain.VideoRequest{
		Prompt:        prompt,
		UseRandomSeed: s.UseRandomSeed,
		FrameLength:   framelength.Quantize(s.FrameLength),
		Width:         s.Dimensions.Width,
		Height:        s.Dimensions.Height,
		SavePath:      savePath,
		EnableUpscale: s.EnableUpscale,
	}
	if !s.UseRandomSeed {
		if err := params.ValidateSeed(s.Seed); err != nil {
			return domain.VideoRequest{}, err
		}
		req.Seed = s.Seed
	}
	if req.Width <= 0 || req.Height <= 0 {
		return domain.VideoRequest{}, domain.NewValidationError("resolution", "解像度が設定されていません")
	}
	return req, nil
}

// SavePrompt はプロンプトをサーバーに保存し、タイムスタンプ付きのファイル名を返します。
func (c *Client) SavePrompt(ctx context.Context, userID, fileName, content string) (string, error) {
	userID = strings.TrimSpace(userID)
	fileName = strings.TrimSpace(fileName)
	switch {
	case userID == "":
		return "", domain.NewValidationError("userId", "ユーザーIDを入力してください")
	case fileName == "":
		return "", domain.NewValidationError("fileName", "ファイル名を入力してください")
	case strings.TrimSpace(content) == "":
		return "", domain.NewValidationError("content", "保存するプロンプトがありません")
	}

	var res domain.SavePromptResult
	body := domain.SavePromptRequest{UserID: userID, FileName: fileName, Content: content}
	if err := c.postJSON(ctx, EndpointSavePrompt, body, &res); err != nil {
		return "", err
	}
	return res.FileName, nil
}

// ListPrompts は保存済みプロンプトのファイル名を新しい順に返します。
func (c *Client) ListPrompts(ctx context.Context, userID string) ([]string, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, domain.NewValidationError("userId", "ユーザーIDを入力してください")
	}
	var res domain.PromptList
	q := url.Values{"userId": {userID}}
	if err := c.getJSON(ctx, EndpointLoadPrompts, q, &res); err != nil {
		return nil, err
	}
	return res.Files, nil
}

// LoadPrompt は保存済みプロンプトの本文を返します。
func (c *Client) LoadPrompt(ctx context.Context, userID, fileName string) (string, error) {
	userID = strings.TrimSpace(userID)
	switch {
	case userID == "":
		return "", domain.NewValidationError("userId", "ユーザーIDを入力してください")
	case fileName == "":
		return "", domain.NewValidationError("fileName", "読み込むファイルを選択してください")
	}
	var res domain.PromptContent
	q := url.Values{"userId": {userID}, "fileName": {fileName}}
	if err := c.getJSON(ctx, EndpointLoadPrompt, q, &res); err != nil {
		return "", err
	}
	if res.Content == "" {
		return "", &APIError{Endpoint: EndpointLoadPrompt, StatusCode: http.StatusOK, Message: "プロンプトの内容が空です"}
	}
	return res.Content, nil
}

// OutputURL は生成ファイルの取得 URL を返します。
func (c *Client) OutputURL(relPath string) string {
	parts := strings.Split(strings.ReplaceAll(relPath, `\`, "/"), "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return c.baseURL + EndpointOutput + strings.Join(parts, "/")
}

// FetchOutput は生成ファイルを取得します。
func (c *Client) FetchOutput(ctx context.Context, relPath string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.OutputURL(relPath), nil)
	if err != nil {
		return nil, &TransportError{Endpoint: EndpointOutput, Err: err}
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &TransportError{Endpoint: EndpointOutput, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Endpoint: EndpointOutput, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, newAPIError(EndpointOutput, resp.StatusCode, data)
	}
	return data, nil
}

// postJSON は同じ操作・同じボディの同時呼び出しを1回にまとめて送信します。
// 共有されるリクエストは呼び出し元のキャンセルを引き継がず、HTTP クライアントのタイムアウトで打ち切られます。
// 各呼び出し元は自身の ctx がキャンセルされた時点で待機をやめます。
func (c *Client) postJSON(ctx context.Context, endpoint string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("リクエストのエンコードに失敗しました: %w", err)
	}
	sum := sha256.Sum256(payload)
	key := endpoint + ":" + hex.EncodeToString(sum[:])

	flightCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (any, error) {
		req, err := http.NewRequestWithContext(flightCtx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(payload))
		if err != nil {
			return nil, &TransportError{Endpoint: endpoint, Err: err}
		}
		req.Header.Set("Content-Type", "application/json")
		return c.do(flightCtx, endpoint, req)
	})

	select {
	case <-ctx.Done():
		return &TransportError{Endpoint: endpoint, Err: ctx.Err()}
	case res := <-ch:
		if res.Shared {
			slog.DebugContext(ctx, "同一リクエストの結果を共有しました", "endpoint", endpoint)
		}
		if res.Err != nil {
			return res.Err
		}
		return decode(endpoint, res.Val.([]byte), out)
	}
}

func (c *Client) getJSON(ctx context.Context, endpoint string, q url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return &TransportError{Endpoint: endpoint, Err: err}
	}
	data, err := c.do(ctx, endpoint, req)
	if err != nil {
		return err
	}
	return decode(endpoint, data, out)
}

func (c *Client) do(ctx context.Context, endpoint string, req *http.Request) ([]byte, error) {
	slog.DebugContext(ctx, "APIリクエスト", "method", req.Method, "endpoint", endpoint)
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &TransportError{Endpoint: endpoint, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Endpoint: endpoint, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, newAPIError(endpoint, resp.StatusCode, data)
	}
	return data, nil
}

func decode(endpoint string, data []byte, out any) error {
	if err := json.Unmarshal(data, out); err != nil {
		return &TransportError{Endpoint: endpoint, Err: fmt.Errorf("レスポンスのデコードに失敗しました: %w", err)}
	}
	return nil
}

func newAPIError(endpoint string, status int, body []byte) *APIError {
	var er domain.ErrorResponse
	if err := json.Unmarshal(body, &er); err != nil || er.Error == "" {
		er.Error = strings.TrimSpace(string(body))
	}
	return &APIError{Endpoint: endpoint, StatusCode: status, Message: er.Error}
}
