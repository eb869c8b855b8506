// Package params は画像・動画生成フォームの数値パラメータの範囲を扱います。
package params

import (
	"math"
	"math/rand/v2"
	"strconv"
	"strings"

	"github.com/shouni/go-media-studio/pkg/domain"
	"github.com/shouni/go-media-studio/pkg/resolution"
)

const (
	MinBatchSize = 1
	MaxBatchSize = 4

	MinSteps     = 1
	MaxSteps     = 150
	DefaultSteps = 20

	MinCFG     = 0.0
	MaxCFG     = 15.0
	DefaultCFG = 3.5

	MinSeed int64 = 1
	MaxSeed int64 = 999999999999999
)

// BatchSize は一度に生成する枚数を [1, 4] に収めます。
func BatchSize(n int) int {
	return min(max(n, MinBatchSize), MaxBatchSize)
}

// Steps はサンプリングステップ数を [1, 150] に収めます。
func Steps(n int) int {
	return min(max(n, MinSteps), MaxSteps)
}

// CFG はガイダンス値を [0, 15] に収め、小数第1位に丸めます。
func CFG(v float64) float64 {
	if math.IsNaN(v) {
		return MinCFG
	}
	v = min(max(v, MinCFG), MaxCFG)
	return math.Round(v*10) / 10
}

// ParseSeed は入力欄の文字列をシード値として解釈し、範囲を検証します。
func ParseSeed(s string) (int64, error) {
	v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, domain.NewValidationError("seed", "シード値は整数で入力してください")
	}
	return v, ValidateSeed(v)
}

// ValidateSeed はシード値が [1, 999999999999999] にあるかを検証します。
func ValidateSeed(v int64) error {
	if v < MinSeed || v > MaxSeed {
		return domain.NewValidationError("seed", "シード値は 1 から 999999999999999 の範囲で指定してください")
	}
	return nil
}

// RandomSeed は有効範囲内のシード値を返します。
func RandomSeed() int64 {
	return MinSeed + rand.Int64N(MaxSeed-MinSeed+1)
}

// GridLayout はプレビュー画像の並べ方です。
type GridLayout string

const (
	GridSingle          GridLayout = "single"
	GridVerticalSplit   GridLayout = "vertical-split"
	GridHorizontalSplit GridLayout = "horizontal-split"
	GridFour            GridLayout = "grid-four"
)

// PreviewGrid は生成枚数と向きからプレビューの配置を決めます。
func PreviewGrid(count int, o resolution.Orientation) GridLayout {
	switch BatchSize(count) {
	case 1:
		return GridSingle
	case 2:
		if o == resolution.Portrait {
			return GridVerticalSplit
		}
		return GridHorizontalSplit
	}
	return GridFour
}
