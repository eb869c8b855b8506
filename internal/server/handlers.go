package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/shouni/go-media-studio/internal/comfyui"
	"github.com/shouni/go-media-studio/internal/promptstore"
	"github.com/shouni/go-media-studio/pkg/domain"
	"github.com/shouni/go-media-studio/pkg/framelength"
	"github.com/shouni/go-media-studio/pkg/params"

	"github.com/gin-gonic/gin"
)

func (s *Server) handleGeneratePrompt(c *gin.Context) {
	var req domain.PromptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortError(c, http.StatusBadRequest, "リクエストの形式が不正です")
		return
	}
	if s.prompts == nil {
		abortError(c, http.StatusServiceUnavailable, "プロンプト生成は設定されていません")
		return
	}

	generated, err := s.prompts.Generate(c.Request.Context(), req)
	if err != nil {
		slog.ErrorContext(c.Request.Context(), "プロンプト生成に失敗したのだ", "error", err)
		abortError(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "generated_prompt": generated})
}

func (s *Server) handleGenerateExamples(c *gin.Context) {
	var req domain.ExamplesRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Prompt) == "" {
		abortError(c, http.StatusBadRequest, "プロンプトは必須です")
		return
	}
	if req.SavePath == "" {
		req.SavePath = DefaultExamplesFolder
	}
	folder, err := comfyui.NormalizeFolder(req.SavePath)
	if err != nil {
		abortError(c, http.StatusBadRequest, err.Error())
		return
	}

	paths, err := s.media.GenerateImages(c.Request.Context(), comfyui.ImageJob{
		Prompt:    req.Prompt,
		Folder:    folder,
		BaseName:  comfyui.DefaultImageBaseName,
		BatchSize: comfyui.DefaultImageBatch,
	})
	if err != nil {
		slog.ErrorContext(c.Request.Context(), "画像生成に失敗したのだ", "error", err)
		abortError(c, http.StatusInternalServerError, err.Error())
		return
	}

	rel := make([]string, len(paths))
	for i, p := range paths {
		rel[i] = path.Join(folder, filepath.Base(p))
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "image_paths": rel})
}

// videoBody は /generate のボディなのだ。seed は数値と数字文字列のどちらも受け付けるのだ。
type videoBody struct {
	Prompt        string      `json:"prompt"`
	UseRandomSeed bool        `json:"useRandomSeed"`
	Seed          json.Number `json:"seed"`
	FrameLength   *int        `json:"frameLength"`
	Width         *int        `json:"width"`
	Height        *int        `json:"height"`
	SavePath      string      `json:"savePath"`
	EnableUpscale bool        `json:"enableUpscale"`
}

func (s *Server) handleGenerateVideo(c *gin.Context) {
	var body videoBody
	if err := c.ShouldBindJSON(&body); err != nil {
		abortError(c, http.StatusBadRequest, "リクエストの形式が不正です")
		return
	}
	if strings.TrimSpace(body.Prompt) == "" {
		abortError(c, http.StatusBadRequest, "プロンプトは必須です")
		return
	}

	seed := params.RandomSeed()
	if !body.UseRandomSeed {
		v, err := params.ParseSeed(body.Seed.String())
		if err != nil {
			abortError(c, http.StatusBadRequest, validationMessage(err))
			return
		}
		seed = v
	}

	if body.SavePath == "" {
		body.SavePath = DefaultVideoFolder
	}
	folder, err := comfyui.NormalizeFolder(body.SavePath)
	if err != nil {
		abortError(c, http.StatusBadRequest, err.Error())
		return
	}

	job := comfyui.VideoJob{
		Prompt:      body.Prompt,
		Folder:      folder,
		BaseName:    comfyui.DefaultVideoBaseName,
		Seed:        seed,
		FrameLength: framelength.Quantize(intOr(body.FrameLength, framelength.Default)),
		Width:       intOr(body.Width, 848),
		Height:      intOr(body.Height, 480),
		Upscale:     body.EnableUpscale,
	}
	if job.Width <= 0 || job.Height <= 0 {
		abortError(c, http.StatusBadRequest, "解像度が不正です")
		return
	}

	videoPath, err := s.media.GenerateVideo(c.Request.Context(), job)
	if err != nil {
		slog.ErrorContext(c.Request.Context(), "動画生成に失敗したのだ", "error", err, "seed", seed)
		abortError(c, http.StatusInternalServerError, err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"seed":     seed,
		"filename": filepath.Base(videoPath),
		"folder":   folder,
	})
}

func (s *Server) handleSavePrompt(c *gin.Context) {
	var req domain.SavePromptRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.UserID == "" || req.FileName == "" || req.Content == "" {
		abortError(c, http.StatusBadRequest, "必須項目が不足しています")
		return
	}

	name, err := s.store.Save(req.UserID, req.FileName, req.Content)
	if errors.Is(err, promptstore.ErrInvalidName) {
		abortError(c, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		slog.ErrorContext(c.Request.Context(), "プロンプトの保存に失敗したのだ", "error", err)
		abortError(c, http.StatusInternalServerError, err.Error())
		return
	}
	s.listCache.Delete(strings.TrimSpace(req.UserID))

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"message":   "プロンプトを保存しました",
		"file_name": name,
	})
}

func (s *Server) handleLoadPrompts(c *gin.Context) {
	userID := strings.TrimSpace(c.Query("userId"))
	if userID == "" {
		abortError(c, http.StatusBadRequest, "ユーザーIDが指定されていません")
		return
	}
	if cached, ok := s.listCache.Get(userID); ok {
		c.JSON(http.StatusOK, gin.H{"files": cached})
		return
	}

	files, err := s.store.List(userID)
	if errors.Is(err, promptstore.ErrInvalidName) {
		abortError(c, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		abortError(c, http.StatusInternalServerError, err.Error())
		return
	}
	s.listCache.SetDefault(userID, files)
	c.JSON(http.StatusOK, gin.H{"files": files})
}

func (s *Server) handleLoadPrompt(c *gin.Context) {
	userID, fileName := c.Query("userId"), c.Query("fileName")
	if userID == "" || fileName == "" {
		abortError(c, http.StatusBadRequest, "必須項目が不足しています")
		return
	}

	content, err := s.store.Load(userID, fileName)
	switch {
	case errors.Is(err, promptstore.ErrNotFound):
		abortError(c, http.StatusNotFound, "ファイルが見つかりません")
		return
	case errors.Is(err, promptstore.ErrInvalidName):
		abortError(c, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		abortError(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"content": content})
}

// handleOutput は出力ディレクトリ配下のファイルだけを返すのだ。
func (s *Server) handleOutput(c *gin.Context) {
	rel := path.Clean("/" + strings.ReplaceAll(c.Param("filepath"), `\`, "/"))
	full := filepath.Join(s.outputDir, filepath.FromSlash(rel))

	info, err := os.Stat(full)
	if err != nil || info.IsDir() {
		abortError(c, http.StatusNotFound, "ファイルが見つかりません")
		return
	}
	c.Header("Content-Type", contentType(full))
	c.File(full)
}

func contentType(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	switch ext {
	case ".mp4":
		return "video/mp4"
	case ".png", "":
		return "image/png"
	}
	if t := mime.TypeByExtension(ext); t != "" {
		return t
	}
	return "application/octet-stream"
}

func validationMessage(err error) string {
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		return ve.Message
	}
	return err.Error()
}

func intOr(p *int, def int) int {
	if p == nil {
		return def
	}
	return *p
}
