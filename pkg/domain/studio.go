package domain

import "strings"

// Page は設定を共有する画面の種類です。既定の保存先サブパスが画面ごとに異なります。
type Page string

const (
	PagePrompt Page = "prompt"
	PageImage  Page = "image"
	PageVideo  Page = "video"
)

// UserPreferences は画面をまたいで保持されるユーザー設定です。
type UserPreferences struct {
	UserID  string `json:"userId"`
	SubPath string `json:"subPath"`
}

// SavePathSeparator はサーバー側の保存先パスの区切り文字です。
const SavePathSeparator = `\`

// SavePath は "userId\subPath" 形式の保存先を組み立てます。
// どちらかが空の場合は ValidationError を返します。
func (p UserPreferences) SavePath() (string, error) {
	userID := strings.TrimSpace(p.UserID)
	subPath := strings.TrimSpace(p.SubPath)
	if userID == "" {
		return "", NewValidationError("userId", "ユーザーIDを入力してください")
	}
	if subPath == "" {
		return "", NewValidationError("subPath", "保存先パスを入力してください")
	}
	return userID + SavePathSeparator + subPath, nil
}

// TargetSettings は広告プロンプト生成のターゲット設定です。
type TargetSettings struct {
	Gender          string `json:"gender"`
	AgeGroup        string `json:"ageGroup"`
	ProductCategory string `json:"productCategory"`
	SeasonEvent     string `json:"seasonEvent"`
	AdTone          string `json:"adTone"`
}

// PromptRequest は /generate_prompt のリクエストボディです。
type PromptRequest struct {
	TargetSettings
	AdditionalRequests string `json:"additionalRequests"`
}

// PromptResult は /generate_prompt のレスポンスです。
type PromptResult struct {
	GeneratedPrompt string `json:"generated_prompt"`
}

// ExamplesRequest は /generate_examples のリクエストボディです。
type ExamplesRequest struct {
	Prompt   string `json:"prompt"`
	SavePath string `json:"savePath"`
}

// ExamplesResult は生成されたサンプル画像のパス一覧です。
type ExamplesResult struct {
	ImagePaths []string `json:"image_paths"`
}

// VideoRequest は /generate のリクエストボディです。
type VideoRequest struct {
	Prompt        string `json:"prompt"`
	UseRandomSeed bool   `json:"useRandomSeed"`
	Seed          int64  `json:"seed,omitempty"`
	FrameLength   int    `json:"frameLength"`
	Width         int    `json:"width"`
	Height        int    `json:"height"`
	SavePath      string `json:"savePath"`
	EnableUpscale bool   `json:"enableUpscale"`
}

// VideoResult は動画生成の結果です。Folder は出力ディレクトリからの相対パスです。
type VideoResult struct {
	Seed     int64  `json:"seed"`
	Filename string `json:"filename"`
	Folder   string `json:"folder"`
}

// SavePromptRequest は /save_prompt のリクエストボディです。
type SavePromptRequest struct {
	UserID   string `json:"userId"`
	FileName string `json:"fileName"`
	Content  string `json:"content"`
}

// SavePromptResult は保存されたファイル名を返します。
type SavePromptResult struct {
	Success  bool   `json:"success"`
	FileName string `json:"file_name"`
}

// PromptContent は /load_prompt のレスポンスです。
type PromptContent struct {
	Content string `json:"content"`
}

// PromptList は /load_prompts のレスポンスです。
type PromptList struct {
	Files []string `json:"files"`
}

// ErrorResponse はサーバーがエラー時に返すボディです。
type ErrorResponse struct {
	Error string `json:"error"`
}
