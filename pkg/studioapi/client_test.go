package studioapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shouni/go-media-studio/pkg/domain"
	"github.com/shouni/go-media-studio/pkg/resolution"
)

var validPrefs = domain.UserPreferences{UserID: "KTaivle", SubPath: "videos"}

func newTestClient(t *testing.T, h http.HandlerFunc) (*Client, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		h(w, r)
	}))
	t.Cleanup(srv.Close)
	return New(srv.URL+"/", srv.Client()), &hits
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func TestValidationBeforeRequest(t *testing.T) {
	ctx := context.Background()
	c, hits := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{})
	})

	tests := []struct {
		name string
		call func() error
	}{
		{"ユーザーIDが空ならサンプル生成は送信しない", func() error {
			_, err := c.GenerateExamples(ctx, "a cat", domain.UserPreferences{SubPath: "examples"})
			return err
		}},
		{"サブパスが空なら動画生成は送信しない", func() error {
			_, err := c.GenerateVideo(ctx, VideoSettings{Prompt: "a cat", UseRandomSeed: true, Dimensions: resolution.Dimensions{Width: 848, Height: 480}}, domain.UserPreferences{UserID: "KTaivle"})
			return err
		}},
		{"プロンプトが空", func() error {
			_, err := c.GenerateExamples(ctx, "   ", validPrefs)
			return err
		}},
		{"シードが範囲外", func() error {
			_, err := c.GenerateVideo(ctx, VideoSettings{Prompt: "a cat", Seed: 0, Dimensions: resolution.Dimensions{Width: 848, Height: 480}}, validPrefs)
			return err
		}},
		{"保存ファイル名が空", func() error {
			_, err := c.SavePrompt(ctx, "KTaivle", "", "content")
			return err
		}},
		{"読み込むファイルが未選択", func() error {
			_, err := c.LoadPrompt(ctx, "KTaivle", "")
			return err
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			if !errors.Is(err, ErrValidation) {
				t.Errorf("ValidationError が返されるべきです: %v", err)
			}
		})
	}

	if n := hits.Load(); n != 0 {
		t.Errorf("検証エラー時にリクエストが送信されています: %d 回", n)
	}
}

func TestGenerateVideo(t *testing.T) {
	ctx := context.Background()
	var got domain.VideoRequest
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != EndpointGenerateVideo || r.Method != http.MethodPost {
			t.Errorf("想定外のリクエスト: %s %s", r.Method, r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&got)
		writeJSON(w, http.StatusOK, domain.VideoResult{Seed: got.Seed, Filename: "video_00001.mp4", Folder: "KTaivle/videos"})
	})

	res, err := c.GenerateVideo(ctx, VideoSettings{
		Prompt:      " ocean ",
		Seed:        42,
		FrameLength: 130,
		Dimensions:  resolution.Dimensions{Width: 848, Height: 480},
	}, validPrefs)
	if err != nil {
		t.Fatal(err)
	}

	if got.FrameLength != 129 {
		t.Errorf("フレーム数が量子化されていません: %d", got.FrameLength)
	}
	if got.SavePath != `KTaivle\videos` {
		t.Errorf("保存先が想定外です: %s", got.SavePath)
	}
	if got.Prompt != "ocean" {
		t.Errorf("プロンプトが整形されていません: %q", got.Prompt)
	}
	if res.Seed != 42 || res.Filename != "video_00001.mp4" {
		t.Errorf("結果が想定外です: %+v", res)
	}
}

func TestAPIError(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, domain.ErrorResponse{Error: "Prompt is required"})
	})

	_, err := c.GenerateExamples(context.Background(), "a cat", validPrefs)
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("APIError が返されるべきです: %v", err)
	}
	if apiErr.StatusCode != http.StatusBadRequest || apiErr.Message != "Prompt is required" {
		t.Errorf("エラー内容が想定外です: %+v", apiErr)
	}
}

func TestTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := New(url, http.DefaultClient)
	_, err := c.ListPrompts(context.Background(), "KTaivle")
	var tErr *TransportError
	if !errors.As(err, &tErr) {
		t.Fatalf("TransportError が返されるべきです: %v", err)
	}
	if tErr.Endpoint != EndpointLoadPrompts {
		t.Errorf("エンドポイントが想定外です: %s", tErr.Endpoint)
	}
}

func TestDuplicateSubmissionsCollapse(t *testing.T) {
	release := make(chan struct{})
	c, hits := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		<-release
		writeJSON(w, http.StatusOK, domain.PromptResult{GeneratedPrompt: "generated"})
	})

	req := domain.PromptRequest{AdditionalRequests: "spring sale"}
	var wg sync.WaitGroup
	results := make([]string, 5)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], _ = c.GeneratePrompt(context.Background(), req)
		}()
	}

	deadline := time.Now().Add(2 * time.Second)
	for hits.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	time.Sleep(100 * time.Millisecond)
	close(release)
	wg.Wait()

	if n := hits.Load(); n != 1 {
		t.Errorf("同時送信は1回にまとめられるべきです: %d 回", n)
	}
	for _, r := range results {
		if r != "generated" {
			t.Errorf("結果が共有されていません: %q", r)
		}
	}
}

func TestSharedSubmissionSurvivesCallerCancel(t *testing.T) {
	release := make(chan struct{})
	c, hits := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		<-release
		writeJSON(w, http.StatusOK, domain.PromptResult{GeneratedPrompt: "generated"})
	})
	req := domain.PromptRequest{AdditionalRequests: "summer sale"}

	firstCtx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := c.GeneratePrompt(firstCtx, req)
		firstErr <- err
	}()

	deadline := time.Now().Add(2 * time.Second)
	for hits.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	second := make(chan string, 1)
	secondErr := make(chan error, 1)
	go func() {
		got, err := c.GeneratePrompt(context.Background(), req)
		second <- got
		secondErr <- err
	}()
	time.Sleep(100 * time.Millisecond)

	cancel()
	if err := <-firstErr; !errors.Is(err, context.Canceled) {
		t.Errorf("キャンセルした呼び出しは context.Canceled になるべきです: %v", err)
	}

	close(release)
	if got, err := <-second, <-secondErr; err != nil || got != "generated" {
		t.Errorf("キャンセルしていない呼び出しは結果を受け取るべきです: %q, %v", got, err)
	}
	if n := hits.Load(); n != 1 {
		t.Errorf("同時送信は1回にまとめられるべきです: %d 回", n)
	}
}

func TestPromptFiles(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case EndpointSavePrompt:
			var req domain.SavePromptRequest
			json.NewDecoder(r.Body).Decode(&req)
			writeJSON(w, http.StatusOK, domain.SavePromptResult{Success: true, FileName: req.FileName + "-20260101-120000.txt"})
		case EndpointLoadPrompts:
			writeJSON(w, http.StatusOK, domain.PromptList{Files: []string{"b.txt", "a.txt"}})
		case EndpointLoadPrompt:
			if r.URL.Query().Get("fileName") == "missing.txt" {
				writeJSON(w, http.StatusNotFound, domain.ErrorResponse{Error: "File not found"})
				return
			}
			writeJSON(w, http.StatusOK, domain.PromptContent{Content: "stored prompt"})
		}
	})

	name, err := c.SavePrompt(ctx, "KTaivle", "draft", "a prompt")
	if err != nil || name != "draft-20260101-120000.txt" {
		t.Errorf("保存結果が想定外です: %q (%v)", name, err)
	}

	files, err := c.ListPrompts(ctx, "KTaivle")
	if err != nil || len(files) != 2 || files[0] != "b.txt" {
		t.Errorf("一覧が想定外です: %v (%v)", files, err)
	}

	content, err := c.LoadPrompt(ctx, "KTaivle", "a.txt")
	if err != nil || content != "stored prompt" {
		t.Errorf("読み込み結果が想定外です: %q (%v)", content, err)
	}

	_, err = c.LoadPrompt(ctx, "KTaivle", "missing.txt")
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusNotFound {
		t.Errorf("404 が APIError として返されるべきです: %v", err)
	}
}

func TestOutputURL(t *testing.T) {
	c := New("http://localhost:8888", http.DefaultClient)
	got := c.OutputURL(`KTaivle\examples/example 1.png`)
	want := "http://localhost:8888/output/KTaivle/examples/example%201.png"
	if got != want {
		t.Errorf("期待: %s, 実際: %s", want, got)
	}
}
