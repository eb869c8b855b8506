package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shouni/go-media-studio/internal/comfyui"
	"github.com/shouni/go-media-studio/pkg/domain"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeMedia struct {
	outputDir string
	imageJob  comfyui.ImageJob
	videoJob  comfyui.VideoJob
	err       error
}

func (f *fakeMedia) GenerateImages(_ context.Context, job comfyui.ImageJob) ([]string, error) {
	f.imageJob = job
	if f.err != nil {
		return nil, f.err
	}
	paths := make([]string, job.BatchSize)
	for i := range paths {
		paths[i] = filepath.Join(f.outputDir, filepath.FromSlash(job.Folder), "example_0000"+string(rune('1'+i))+"_.png")
	}
	return paths, nil
}

func (f *fakeMedia) GenerateVideo(_ context.Context, job comfyui.VideoJob) (string, error) {
	f.videoJob = job
	if f.err != nil {
		return "", f.err
	}
	return filepath.Join(f.outputDir, filepath.FromSlash(job.Folder), "video_00001.mp4"), nil
}

type fakePrompts struct{ got domain.PromptRequest }

func (f *fakePrompts) Generate(_ context.Context, req domain.PromptRequest) (string, error) {
	f.got = req
	return "generated for " + req.ProductCategory, nil
}

type testEnv struct {
	handler   http.Handler
	outputDir string
	media     *fakeMedia
	prompts   *fakePrompts
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	env := &testEnv{
		outputDir: dir,
		media:     &fakeMedia{outputDir: dir},
		prompts:   &fakePrompts{},
	}
	s, err := New(Options{
		OutputDir: dir,
		Media:     env.media,
		Prompts:   env.prompts,
		Limiter:   rate.NewLimiter(rate.Inf, 1),
	})
	if err != nil {
		t.Fatal(err)
	}
	env.handler = s.Handler()
	return env
}

func (e *testEnv) do(method, target string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &m); err != nil {
		t.Fatalf("レスポンスが JSON ではないのだ: %s", rec.Body.String())
	}
	return m
}

func TestGeneratePrompt(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(http.MethodPost, "/generate_prompt", domain.PromptRequest{
		TargetSettings:     domain.TargetSettings{ProductCategory: "coffee"},
		AdditionalRequests: "morning",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("ステータスが想定外なのだ: %d %s", rec.Code, rec.Body.String())
	}
	if got := decodeBody(t, rec)["generated_prompt"]; got != "generated for coffee" {
		t.Errorf("生成結果が想定外なのだ: %v", got)
	}
	if env.prompts.got.AdditionalRequests != "morning" {
		t.Errorf("追加要望が渡っていないのだ: %+v", env.prompts.got)
	}
}

func TestGenerateExamples(t *testing.T) {
	env := newTestEnv(t)

	t.Run("相対パスを返すのだ", func(t *testing.T) {
		rec := env.do(http.MethodPost, "/generate_examples", domain.ExamplesRequest{Prompt: "cat", SavePath: `KTaivle\examples`})
		if rec.Code != http.StatusOK {
			t.Fatalf("ステータスが想定外なのだ: %d %s", rec.Code, rec.Body.String())
		}
		paths := decodeBody(t, rec)["image_paths"].([]any)
		if len(paths) != 4 || paths[0] != "KTaivle/examples/example_00001_.png" {
			t.Errorf("パスが想定外なのだ: %v", paths)
		}
		if env.media.imageJob.Folder != "KTaivle/examples" || env.media.imageJob.BatchSize != 4 {
			t.Errorf("ジョブが想定外なのだ: %+v", env.media.imageJob)
		}
	})

	t.Run("プロンプトがなければ400なのだ", func(t *testing.T) {
		rec := env.do(http.MethodPost, "/generate_examples", domain.ExamplesRequest{SavePath: "x"})
		if rec.Code != http.StatusBadRequest {
			t.Errorf("期待: 400, 実際: %d", rec.Code)
		}
	})

	t.Run("出力ディレクトリの外は400なのだ", func(t *testing.T) {
		rec := env.do(http.MethodPost, "/generate_examples", domain.ExamplesRequest{Prompt: "cat", SavePath: `..\..\etc`})
		if rec.Code != http.StatusBadRequest {
			t.Errorf("期待: 400, 実際: %d", rec.Code)
		}
	})

	t.Run("生成失敗は500でエラー本文を返すのだ", func(t *testing.T) {
		env.media.err = errors.New("comfy down")
		defer func() { env.media.err = nil }()
		rec := env.do(http.MethodPost, "/generate_examples", domain.ExamplesRequest{Prompt: "cat", SavePath: "a"})
		if rec.Code != http.StatusInternalServerError || decodeBody(t, rec)["error"] != "comfy down" {
			t.Errorf("想定外の応答なのだ: %d %s", rec.Code, rec.Body.String())
		}
	})
}

func TestGenerateVideo(t *testing.T) {
	env := newTestEnv(t)

	t.Run("指定したシードとフレーム数で生成するのだ", func(t *testing.T) {
		rec := env.do(http.MethodPost, "/generate", map[string]any{
			"prompt":        "ocean",
			"useRandomSeed": false,
			"seed":          "12345",
			"frameLength":   130,
			"width":         848,
			"height":        480,
			"savePath":      `KTaivle\videos`,
			"enableUpscale": true,
		})
		if rec.Code != http.StatusOK {
			t.Fatalf("ステータスが想定外なのだ: %d %s", rec.Code, rec.Body.String())
		}
		body := decodeBody(t, rec)
		if body["seed"] != float64(12345) || body["filename"] != "video_00001.mp4" || body["folder"] != "KTaivle/videos" {
			t.Errorf("応答が想定外なのだ: %v", body)
		}
		job := env.media.videoJob
		if job.FrameLength != 129 || !job.Upscale || job.Seed != 12345 {
			t.Errorf("ジョブが想定外なのだ: %+v", job)
		}
	})

	t.Run("ランダムシードは範囲内なのだ", func(t *testing.T) {
		rec := env.do(http.MethodPost, "/generate", map[string]any{"prompt": "ocean", "useRandomSeed": true})
		if rec.Code != http.StatusOK {
			t.Fatalf("ステータスが想定外なのだ: %d %s", rec.Code, rec.Body.String())
		}
		job := env.media.videoJob
		if job.Seed < 1 || job.Seed > 999999999999999 {
			t.Errorf("シードが範囲外なのだ: %d", job.Seed)
		}
		if job.FrameLength != 73 || job.Width != 848 || job.Height != 480 || job.Folder != DefaultVideoFolder {
			t.Errorf("既定値が使われていないのだ: %+v", job)
		}
	})

	for _, seed := range []any{0, 1000000000000000, nil} {
		t.Run("不正なシードは400なのだ", func(t *testing.T) {
			rec := env.do(http.MethodPost, "/generate", map[string]any{"prompt": "ocean", "seed": seed})
			if rec.Code != http.StatusBadRequest {
				t.Errorf("seed=%v: 期待: 400, 実際: %d", seed, rec.Code)
			}
		})
	}
}

func TestRateLimit(t *testing.T) {
	dir := t.TempDir()
	s, err := New(Options{OutputDir: dir, Media: &fakeMedia{outputDir: dir}})
	if err != nil {
		t.Fatal(err)
	}
	env := &testEnv{handler: s.Handler()}

	first := env.do(http.MethodPost, "/generate_examples", domain.ExamplesRequest{Prompt: "cat", SavePath: "a"})
	second := env.do(http.MethodPost, "/generate", map[string]any{"prompt": "ocean", "useRandomSeed": true})
	if first.Code != http.StatusOK {
		t.Fatalf("1件目は通るべきなのだ: %d", first.Code)
	}
	if second.Code != http.StatusTooManyRequests {
		t.Errorf("直後の2件目は429なのだ: %d", second.Code)
	}
}

func TestPromptFiles(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/load_prompts?userId=KTaivle", nil)
	if rec.Code != http.StatusOK || len(decodeBody(t, rec)["files"].([]any)) != 0 {
		t.Fatalf("最初は空の一覧なのだ: %d %s", rec.Code, rec.Body.String())
	}

	rec = env.do(http.MethodPost, "/save_prompt", domain.SavePromptRequest{UserID: "KTaivle", FileName: "draft", Content: "hello"})
	if rec.Code != http.StatusOK {
		t.Fatalf("保存に失敗したのだ: %d %s", rec.Code, rec.Body.String())
	}
	name := decodeBody(t, rec)["file_name"].(string)
	if !strings.HasPrefix(name, "draft-") || !strings.HasSuffix(name, ".txt") {
		t.Errorf("ファイル名が想定外なのだ: %s", name)
	}

	rec = env.do(http.MethodGet, "/load_prompts?userId=KTaivle", nil)
	files := decodeBody(t, rec)["files"].([]any)
	if len(files) != 1 || files[0] != name {
		t.Errorf("保存後の一覧にキャッシュが残っているのだ: %v", files)
	}

	rec = env.do(http.MethodGet, "/load_prompt?userId=KTaivle&fileName="+name, nil)
	if rec.Code != http.StatusOK || decodeBody(t, rec)["content"] != "hello" {
		t.Errorf("読み込みが想定外なのだ: %d %s", rec.Code, rec.Body.String())
	}

	tests := []struct {
		name   string
		method string
		target string
		body   any
		want   int
	}{
		{"存在しないファイルは404", http.MethodGet, "/load_prompt?userId=KTaivle&fileName=missing.txt", nil, http.StatusNotFound},
		{"ユーザーIDなしは400", http.MethodGet, "/load_prompts", nil, http.StatusBadRequest},
		{"必須項目なしの保存は400", http.MethodPost, "/save_prompt", domain.SavePromptRequest{UserID: "KTaivle"}, http.StatusBadRequest},
		{"不正なユーザーIDは400", http.MethodPost, "/save_prompt", domain.SavePromptRequest{UserID: "../x", FileName: "a", Content: "b"}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rec := env.do(tt.method, tt.target, tt.body); rec.Code != tt.want {
				t.Errorf("期待: %d, 実際: %d %s", tt.want, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestPromptListCacheIgnoresSurroundingSpaces(t *testing.T) {
	env := newTestEnv(t)

	if rec := env.do(http.MethodGet, "/load_prompts?userId=KTaivle", nil); rec.Code != http.StatusOK {
		t.Fatalf("一覧の取得に失敗したのだ: %d", rec.Code)
	}
	rec := env.do(http.MethodPost, "/save_prompt", domain.SavePromptRequest{UserID: "KTaivle ", FileName: "draft", Content: "hello"})
	if rec.Code != http.StatusOK {
		t.Fatalf("保存に失敗したのだ: %d %s", rec.Code, rec.Body.String())
	}

	for _, target := range []string{"/load_prompts?userId=KTaivle", "/load_prompts?userId=%20KTaivle%20"} {
		files := decodeBody(t, env.do(http.MethodGet, target, nil))["files"].([]any)
		if len(files) != 1 {
			t.Errorf("%s: 保存後の一覧にキャッシュが残っているのだ: %v", target, files)
		}
	}
}

func TestOutput(t *testing.T) {
	env := newTestEnv(t)
	dir := filepath.Join(env.outputDir, "KTaivle", "videos")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "video_00001.mp4"), []byte("mp4"), 0o644); err != nil {
		t.Fatal(err)
	}

	rec := env.do(http.MethodGet, "/output/KTaivle/videos/video_00001.mp4", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("ステータスが想定外なのだ: %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "video/mp4" {
		t.Errorf("Content-Type が想定外なのだ: %s", ct)
	}
	if rec.Body.String() != "mp4" {
		t.Errorf("本文が想定外なのだ: %q", rec.Body.String())
	}

	if rec := env.do(http.MethodGet, "/output/KTaivle/none.png", nil); rec.Code != http.StatusNotFound {
		t.Errorf("存在しないファイルは404なのだ: %d", rec.Code)
	}
}

func TestContentType(t *testing.T) {
	for name, want := range map[string]string{
		"a.mp4":  "video/mp4",
		"a.png":  "image/png",
		"a.PNG":  "image/png",
		"a.json": "application/json",
	} {
		if got := contentType(name); got != want {
			t.Errorf("%s: 期待: %s, 実際: %s", name, want, got)
		}
	}
}
