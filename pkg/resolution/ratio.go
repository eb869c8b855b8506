package resolution

import (
	"fmt"
	"strconv"
	"strings"
)

// Orientation は出力メディアの向きです。
type Orientation string

const (
	Landscape Orientation = "landscape"
	Portrait  Orientation = "portrait"
)

// ParseOrientation は CLI やフォームから渡された向きの文字列を解釈します。
// "horizontal" / "vertical" はフォーム側の hidden input の値との互換のために受け付けます。
func ParseOrientation(s string) (Orientation, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "landscape", "horizontal", "h":
		return Landscape, nil
	case "portrait", "vertical", "v":
		return Portrait, nil
	}
	return "", fmt.Errorf("未対応の向きです: %q", s)
}

// Toggle は反対の向きを返します。
func (o Orientation) Toggle() Orientation {
	if o == Portrait {
		return Landscape
	}
	return Portrait
}

// Label は解像度表示の末尾に付ける1文字のラベルです。
func (o Orientation) Label() string {
	if o == Portrait {
		return "V"
	}
	return "H"
}

// Ratio はアスペクト比を横長基準（Long:Short）で保持します。
// どちらの項が幅に掛かるかは Orientation によって決まります。
type Ratio struct {
	Long   int
	Short  int
	custom bool
}

// Custom は比率の拘束を無効にする特別な値です。
var Custom = Ratio{custom: true}

// NewRatio は2つの正の整数から Ratio を作ります。順序は正規化されます。
func NewRatio(a, b int) (Ratio, error) {
	if a <= 0 || b <= 0 {
		return Ratio{}, fmt.Errorf("比率の項は正の整数である必要があります: %d:%d", a, b)
	}
	if a < b {
		a, b = b, a
	}
	return Ratio{Long: a, Short: b}, nil
}

// ParseRatio は "16:9" 形式または "custom" を解釈します。
func ParseRatio(s string) (Ratio, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "custom" {
		return Custom, nil
	}
	first, second, ok := strings.Cut(s, ":")
	if !ok {
		return Ratio{}, fmt.Errorf("比率は 'W:H' 形式で指定してください: %q", s)
	}
	a, err := strconv.Atoi(strings.TrimSpace(first))
	if err != nil {
		return Ratio{}, fmt.Errorf("比率の解析に失敗しました %q: %w", s, err)
	}
	b, err := strconv.Atoi(strings.TrimSpace(second))
	if err != nil {
		return Ratio{}, fmt.Errorf("比率の解析に失敗しました %q: %w", s, err)
	}
	return NewRatio(a, b)
}

// IsCustom は比率の拘束が無効かどうかを返します。
func (r Ratio) IsCustom() bool { return r.custom }

// IsSquare は 1:1 系の比率かどうかを返します。
func (r Ratio) IsSquare() bool { return !r.custom && r.Long == r.Short }

// Terms は向きに応じた (幅の項, 高さの項) を返します。
func (r Ratio) Terms(o Orientation) (w, h int) {
	if o == Portrait {
		return r.Short, r.Long
	}
	return r.Long, r.Short
}

// Oriented は向きを反映した "W:H" 表記を返します。
func (r Ratio) Oriented(o Orientation) string {
	if r.custom {
		return "custom"
	}
	w, h := r.Terms(o)
	return fmt.Sprintf("%d:%d", w, h)
}

func (r Ratio) String() string {
	if r.custom {
		return "custom"
	}
	return fmt.Sprintf("%d:%d", r.Long, r.Short)
}
