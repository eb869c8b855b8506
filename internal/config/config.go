package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shouni/go-utils/envutil"
)

// デフォルト値の定義なのだ
const (
	DefaultServerURL  = "http://localhost:8888"
	DefaultListenAddr = ":8888"
	DefaultModel      = "gemini-3-flash-preview"

	// 動画生成は数分かかるのだ
	DefaultHTTPTimeout = 5 * time.Minute

	DefaultStateDB     = ".studio/state.db"
	DefaultSessionFile = ".studio/session.gob"
	DefaultSessionTTL  = 30 * time.Minute

	// ComfyUI の output ディレクトリなのだ
	DefaultOutputDir       = "output"
	DefaultAddressFile     = "IP_PORT_ADDRESS.txt"
	DefaultPreviewInterval = 200 * time.Millisecond
)

// ErrAddressIncomplete はアドレスファイルに IP か PORT が無いことを表すのだ。
var ErrAddressIncomplete = errors.New("IP と PORT の両方が必要なのだ")

// Config はアプリケーション全体の環境設定を保持する構造体なのだ。
type Config struct {
	GeminiAPIKey string
	GeminiModel  string
	ServerURL    string
	OutputDir    string
	AddressFile  string

	Options Options
}

// LoadConfig は環境変数から設定を読み込み、構造体を返すのだ！
func LoadConfig() *Config {
	return &Config{
		GeminiAPIKey: envutil.GetEnv("GEMINI_API_KEY", ""),
		GeminiModel:  envutil.GetEnv("GEMINI_MODEL", DefaultModel),
		ServerURL:    envutil.GetEnv("STUDIO_SERVER_URL", DefaultServerURL),
		OutputDir:    envutil.GetEnv("COMFYUI_OUTPUT_DIR", DefaultOutputDir),
		AddressFile:  envutil.GetEnv("COMFYUI_ADDRESS_FILE", DefaultAddressFile),
	}
}

// Options は CLI フラグから渡される実行時のパラメータなのだ。
type Options struct {
	ServerURL   string        // --server
	HTTPTimeout time.Duration // --http-timeout
	StateDB     string        // --state-db
	SessionFile string        // --session-file
	Verbose     bool          // --verbose
}

// LoadComfyAddress は KEY=VALUE 形式のファイルから ComfyUI の URL を組み立てるのだ。
//
//	IP=127.0.0.1
//	PORT=8188
func LoadComfyAddress(path string) (string, error) {
	env, err := godotenv.Read(path)
	if err != nil {
		return "", fmt.Errorf("アドレスファイル '%s' の読み込みに失敗したのだ: %w", path, err)
	}
	ip, port := strings.TrimSpace(env["IP"]), strings.TrimSpace(env["PORT"])
	if ip == "" || port == "" {
		return "", fmt.Errorf("%s: %w", path, ErrAddressIncomplete)
	}
	return "http://" + ip + ":" + port, nil
}
