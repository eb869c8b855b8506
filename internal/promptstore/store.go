// Package promptstore はユーザーごとのプロンプトファイルを出力ディレクトリ配下に保存するのだ。
//
// 配置は <root>/<userId>/Prompt/<name>-YYYYMMDD-HHMMSS.txt なのだ。
package promptstore

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/shouni/go-utils/urlpath"
)

const (
	// PromptDirName はユーザーディレクトリ直下のプロンプト保存先なのだ。
	PromptDirName = "Prompt"
	fileExt       = ".txt"
	timeLayout    = "20060102-150405"
)

var (
	// ErrNotFound は指定されたプロンプトファイルが存在しないことを表すのだ。
	ErrNotFound = errors.New("ファイルが見つかりません")
	// ErrInvalidName はユーザーIDやファイル名にパス区切りなどが含まれていることを表すのだ。
	ErrInvalidName = errors.New("名前が不正です")
)

// Store はローカルディスク上のプロンプト保存先なのだ。
type Store struct {
	root string
	now  func() time.Time
}

// New は root を出力ディレクトリとする Store を返すのだ。
func New(root string) *Store {
	return &Store{root: root, now: time.Now}
}

// Save はタイムスタンプ付きのファイル名で content を書き込み、そのファイル名を返すのだ。
func (s *Store) Save(userID, name, content string) (string, error) {
	dir, err := s.promptDir(userID)
	if err != nil {
		return "", err
	}
	name = strings.TrimSuffix(strings.TrimSpace(name), fileExt)
	if err := checkName(name); err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("プロンプトディレクトリの作成に失敗したのだ: %w", err)
	}

	fileName := fmt.Sprintf("%s-%s%s", name, s.now().Format(timeLayout), fileExt)
	path, err := urlpath.ResolveOutputPath(dir, fileName)
	if err != nil {
		return "", fmt.Errorf("保存先パスの解決に失敗したのだ: %w", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("プロンプトの書き込みに失敗したのだ: %w", err)
	}
	return fileName, nil
}

// List は .txt ファイルだけを名前の降順（新しい順）で返すのだ。
// ディレクトリがまだなければ空の一覧を返すのだ。
func (s *Store) List(userID string) ([]string, error) {
	dir, err := s.promptDir(userID)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("プロンプト一覧の取得に失敗したのだ: %w", err)
	}

	files := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Type().IsRegular() && strings.HasSuffix(e.Name(), fileExt) {
			files = append(files, e.Name())
		}
	}
	slices.Sort(files)
	slices.Reverse(files)
	return files, nil
}

// Load は保存済みプロンプトの内容を返すのだ。
func (s *Store) Load(userID, fileName string) (string, error) {
	dir, err := s.promptDir(userID)
	if err != nil {
		return "", err
	}
	if err := checkName(fileName); err != nil {
		return "", err
	}
	path, err := urlpath.ResolveOutputPath(dir, fileName)
	if err != nil {
		return "", fmt.Errorf("パスの解決に失敗したのだ: %w", err)
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("プロンプトの読み込みに失敗したのだ: %w", err)
	}
	return string(data), nil
}

func (s *Store) promptDir(userID string) (string, error) {
	userID = strings.TrimSpace(userID)
	if err := checkName(userID); err != nil {
		return "", err
	}
	return filepath.Join(s.root, userID, PromptDirName), nil
}

// checkName は1階層分の名前として安全かどうかを確認するのだ。
func checkName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`+"\x00") {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}
