// Package comfyui は ComfyUI サーバーにワークフローを投入し、出力ファイルを回収するのだ。
package comfyui

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	DefaultImageTimeout = 60 * time.Second
	DefaultVideoTimeout = 180 * time.Second
	DefaultPollInterval = 500 * time.Millisecond

	imageExt = ".png"
	videoExt = ".mp4"
)

// ErrOutputTimeout は完了通知の後、期限内に出力ファイルが揃わなかったことを表すのだ。
var ErrOutputTimeout = errors.New("出力ファイルを検出できませんでした")

// ErrNoPromptID は /prompt の応答から prompt_id を得られなかったことを表すのだ。
var ErrNoPromptID = errors.New("ComfyUI の応答に prompt_id がありません")

// Doer は HTTP リクエストを実行するクライアントなのだ。
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client は1つの ComfyUI サーバーとやり取りするクライアントなのだ。
// clientID は WebSocket の通知を自分宛てに絞り込むために使うのだ。
type Client struct {
	serverURL    *url.URL
	outputDir    string
	clientID     string
	http         Doer
	dialer       *websocket.Dialer
	pollInterval time.Duration
	imageTimeout time.Duration
	videoTimeout time.Duration
}

// NewClient は Client を生成するのだ。outputDir は ComfyUI の output ディレクトリなのだ。
func NewClient(serverURL, outputDir string, doer Doer) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(serverURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("ComfyUI の URL が不正なのだ: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("ComfyUI の URL は http(s) で指定するのだ: %s", serverURL)
	}
	return &Client{
		serverURL:    u,
		outputDir:    outputDir,
		clientID:     uuid.NewString(),
		http:         doer,
		dialer:       websocket.DefaultDialer,
		pollInterval: DefaultPollInterval,
		imageTimeout: DefaultImageTimeout,
		videoTimeout: DefaultVideoTimeout,
	}, nil
}

// OutputDir は出力ディレクトリを返すのだ。
func (c *Client) OutputDir() string {
	return c.outputDir
}

// GenerateImages は Flux で job.BatchSize 枚の画像を生成し、出力ファイルの絶対パスを返すのだ。
func (c *Client) GenerateImages(ctx context.Context, job ImageJob) ([]string, error) {
	if job.BaseName == "" {
		job.BaseName = DefaultImageBaseName
	}
	if job.BatchSize <= 0 {
		job.BatchSize = DefaultImageBatch
	}
	if job.Seed == 0 {
		job.Seed = time.Now().UnixMilli() % (1 << 32)
	}
	return c.run(ctx, FluxImageWorkflow(job), job.Folder, imageExt, job.BatchSize, c.imageTimeout)
}

// GenerateVideo は HunyuanVideo で動画を1本生成し、出力ファイルの絶対パスを返すのだ。
func (c *Client) GenerateVideo(ctx context.Context, job VideoJob) (string, error) {
	if job.BaseName == "" {
		job.BaseName = DefaultVideoBaseName
	}
	slog.InfoContext(ctx, "動画生成を依頼するのだ",
		"seed", job.Seed,
		"frames", job.FrameLength,
		"width", job.Width,
		"height", job.Height,
		"upscale", job.Upscale,
	)
	paths, err := c.run(ctx, HunyuanVideoWorkflow(job), job.Folder, videoExt, 1, c.videoTimeout)
	if err != nil {
		return "", err
	}
	return paths[len(paths)-1], nil
}

// run はワークフローを投入して完了を待ち、新しく増えた出力ファイルを返すのだ。
// 完了通知を取りこぼさないよう、投入より先に WebSocket を接続するのだ。
func (c *Client) run(ctx context.Context, wf Workflow, folder, ext string, count int, timeout time.Duration) ([]string, error) {
	dir := filepath.Join(c.outputDir, filepath.FromSlash(folder))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("出力ディレクトリの作成に失敗したのだ: %w", err)
	}
	existing, err := listFiles(dir, ext)
	if err != nil {
		return nil, err
	}

	conn, _, err := c.dialer.DialContext(ctx, c.wsURL(), nil)
	if err != nil {
		return nil, fmt.Errorf("ComfyUI の WebSocket 接続に失敗したのだ: %w", err)
	}
	defer conn.Close()

	promptID, err := c.submit(ctx, wf)
	if err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "ワークフローを投入したのだ", "prompt_id", promptID, "folder", folder)

	if err := c.waitExecuted(ctx, conn, promptID); err != nil {
		return nil, err
	}
	return c.waitForFiles(ctx, dir, ext, existing, count, timeout)
}

func (c *Client) wsURL() string {
	u := *c.serverURL
	u.Scheme = "ws"
	if c.serverURL.Scheme == "https" {
		u.Scheme = "wss"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws"
	u.RawQuery = url.Values{"clientId": {c.clientID}}.Encode()
	return u.String()
}

type queueResponse struct {
	PromptID string `json:"prompt_id"`
}

func (c *Client) submit(ctx context.Context, wf Workflow) (string, error) {
	payload, err := json.Marshal(map[string]any{
		"prompt":    wf,
		"client_id": c.clientID,
	})
	if err != nil {
		return "", fmt.Errorf("ワークフローのエンコードに失敗したのだ: %w", err)
	}

	endpoint := c.serverURL.JoinPath("prompt").String()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("ComfyUI への投入に失敗したのだ: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ComfyUI がワークフローを拒否したのだ (status %d): %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	var qr queueResponse
	if err := json.Unmarshal(body, &qr); err != nil {
		return "", fmt.Errorf("%w: %w", ErrNoPromptID, err)
	}
	if qr.PromptID == "" {
		return "", ErrNoPromptID
	}
	return qr.PromptID, nil
}

type wsMessage struct {
	Type string `json:"type"`
	Data struct {
		PromptID string `json:"prompt_id"`
		Node     any    `json:"node"`
		Value    int    `json:"value"`
		Max      int    `json:"max"`
	} `json:"data"`
}

// waitExecuted は "executed" 通知が届くまでメッセージを読み続けるのだ。
// バイナリメッセージ（プレビュー画像）は読み飛ばすのだ。
func (c *Client) waitExecuted(ctx context.Context, conn *websocket.Conn, promptID string) error {
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	for {
		kind, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("ComfyUI からの通知の受信に失敗したのだ: %w", err)
		}
		if kind != websocket.TextMessage {
			continue
		}

		var msg wsMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			slog.DebugContext(ctx, "解釈できない通知を無視するのだ", "error", err)
			continue
		}
		switch msg.Type {
		case "progress":
			slog.DebugContext(ctx, "生成中なのだ", "value", msg.Data.Value, "max", msg.Data.Max)
		case "execution_error":
			if msg.Data.PromptID == promptID {
				return fmt.Errorf("ComfyUI でワークフローの実行に失敗したのだ: prompt_id=%s", msg.Data.PromptID)
			}
		case "executed":
			if msg.Data.PromptID == promptID {
				return nil
			}
		}
	}
}

// waitForFiles は count 個の新しいファイルが現れるまでポーリングするのだ。
func (c *Client) waitForFiles(ctx context.Context, dir, ext string, existing map[string]struct{}, count int, timeout time.Duration) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	var found []string
	for {
		current, err := listFiles(dir, ext)
		if err != nil {
			return nil, err
		}
		found = found[:0]
		for name := range current {
			if _, ok := existing[name]; !ok {
				found = append(found, filepath.Join(dir, name))
			}
		}
		if len(found) >= count {
			sortByModTime(found)
			return found, nil
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %d/%d 件 (%s)", ErrOutputTimeout, len(found), count, dir)
		case <-ticker.C:
		}
	}
}

func listFiles(dir, ext string) (map[string]struct{}, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("出力ディレクトリの読み込みに失敗したのだ: %w", err)
	}
	files := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		if !e.IsDir() && strings.EqualFold(filepath.Ext(e.Name()), ext) {
			files[e.Name()] = struct{}{}
		}
	}
	return files, nil
}

func sortByModTime(paths []string) {
	mod := make(map[string]time.Time, len(paths))
	for _, p := range paths {
		if info, err := os.Stat(p); err == nil {
			mod[p] = info.ModTime()
		}
	}
	slices.SortStableFunc(paths, func(a, b string) int {
		if c := mod[a].Compare(mod[b]); c != 0 {
			return c
		}
		return strings.Compare(a, b)
	})
}
