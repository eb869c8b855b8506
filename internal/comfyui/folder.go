package comfyui

import (
	"fmt"
	"path"
	"strings"
)

// NormalizeFolder は "userId\subPath" 形式の保存先を、出力ディレクトリからの相対パス（"/" 区切り）に正規化するのだ。
// 出力ディレクトリの外を指すものは拒否するのだ。
func NormalizeFolder(savePath string) (string, error) {
	p := strings.ReplaceAll(strings.TrimSpace(savePath), `\`, "/")
	if p == "" {
		return "", fmt.Errorf("保存先が指定されていないのだ")
	}
	if strings.HasPrefix(p, "/") || strings.Contains(p, ":") {
		return "", fmt.Errorf("保存先は相対パスで指定するのだ: %q", savePath)
	}
	cleaned := path.Clean(p)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf("保存先が出力ディレクトリの外を指しているのだ: %q", savePath)
	}
	return cleaned, nil
}
