package resolution

import "fmt"

// Kind は制約テーブルの種類です。画像生成と動画生成で上限と既定値が異なります。
type Kind string

const (
	KindVideo Kind = "video"
	KindImage Kind = "image"
)

// ParseKind は文字列から Kind を得ます。
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindVideo, KindImage:
		return Kind(s), nil
	}
	return "", fmt.Errorf("未対応の種類です: %q (video または image)", s)
}

// Limits は横長基準の上限と既定値です。
type Limits struct {
	MaxWidth      int
	MaxHeight     int
	DefaultWidth  int
	DefaultHeight int
}

func (l Limits) swapped() Limits {
	return Limits{
		MaxWidth:      l.MaxHeight,
		MaxHeight:     l.MaxWidth,
		DefaultWidth:  l.DefaultHeight,
		DefaultHeight: l.DefaultWidth,
	}
}

const (
	// ImageMaxResolution は画像生成で許可する一辺の最大値です。
	ImageMaxResolution = 2048
	imageDefaultLong   = 1280
	imageDefaultShort  = 960
)

// videoLimits は動画生成で選択できる比率ごとの上限（横長基準）です。
var videoLimits = map[string]Limits{
	"16:9": {MaxWidth: 960, MaxHeight: 544, DefaultWidth: 848, DefaultHeight: 480},
	"4:3":  {MaxWidth: 832, MaxHeight: 624, DefaultWidth: 768, DefaultHeight: 576},
	"1:1":  {MaxWidth: 720, MaxHeight: 720, DefaultWidth: 640, DefaultHeight: 640},
}

// VideoRatios は動画生成で選択可能な比率です。
var VideoRatios = []string{"16:9", "4:3", "1:1"}

// Constraint は比率・向き・上限の組で、比率か向きが変わるたびに作り直します。
type Constraint struct {
	Kind          Kind
	Ratio         Ratio
	Orientation   Orientation
	MaxWidth      int
	MaxHeight     int
	DefaultWidth  int
	DefaultHeight int
}

// NewConstraint は種類・比率・向きから Constraint を構築します。
func NewConstraint(kind Kind, r Ratio, o Orientation) (Constraint, error) {
	var l Limits
	switch kind {
	case KindVideo:
		if r.IsCustom() {
			return Constraint{}, fmt.Errorf("動画生成ではカスタム比率は使用できません")
		}
		var ok bool
		l, ok = videoLimits[r.String()]
		if !ok {
			return Constraint{}, fmt.Errorf("動画生成で未対応の比率です: %s (対応: %v)", r, VideoRatios)
		}
	case KindImage:
		l = Limits{
			MaxWidth:      ImageMaxResolution,
			MaxHeight:     ImageMaxResolution,
			DefaultWidth:  imageDefaultLong,
			DefaultHeight: imageDefaultShort,
		}
	default:
		return Constraint{}, fmt.Errorf("未対応の種類です: %q", kind)
	}

	if o == Portrait {
		l = l.swapped()
	}
	return Constraint{
		Kind:          kind,
		Ratio:         r,
		Orientation:   o,
		MaxWidth:      l.MaxWidth,
		MaxHeight:     l.MaxHeight,
		DefaultWidth:  l.DefaultWidth,
		DefaultHeight: l.DefaultHeight,
	}, nil
}

// WithOrientation は上限と既定値を入れ替えた Constraint を返します。
func (c Constraint) WithOrientation(o Orientation) Constraint {
	if c.Orientation == o {
		return c
	}
	c.Orientation = o
	c.MaxWidth, c.MaxHeight = c.MaxHeight, c.MaxWidth
	c.DefaultWidth, c.DefaultHeight = c.DefaultHeight, c.DefaultWidth
	return c
}

// Defaults は既定の寸法を返します。
func (c Constraint) Defaults() Dimensions {
	return Dimensions{Width: c.DefaultWidth, Height: c.DefaultHeight}
}

// UpscaleTarget は動画アップスケール時の最終解像度です。
func UpscaleTarget(r Ratio, o Orientation) Dimensions {
	var d Dimensions
	switch {
	case r.IsSquare():
		return Dimensions{Width: 1440, Height: 1440}
	case r.Long*3 == r.Short*4:
		d = Dimensions{Width: 1600, Height: 1200}
	default:
		d = Dimensions{Width: 1920, Height: 1080}
	}
	if o == Portrait {
		d.Width, d.Height = d.Height, d.Width
	}
	return d
}

// UpscaleTargetFor は実際の寸法から比率を推定してアップスケール解像度を決めます。
// 比率の許容誤差は 0.01 です。判別できない場合は 16:9 として扱います。
func UpscaleTargetFor(width, height int) Dimensions {
	if width <= 0 || height <= 0 {
		return Dimensions{Width: 1920, Height: 1080}
	}
	o := Landscape
	if height > width {
		o = Portrait
	}
	long, short := float64(max(width, height)), float64(min(width, height))
	actual := long / short

	switch {
	case approx(actual, 16.0/9.0):
		return UpscaleTarget(Ratio{Long: 16, Short: 9}, o)
	case approx(actual, 4.0/3.0):
		return UpscaleTarget(Ratio{Long: 4, Short: 3}, o)
	case approx(actual, 1):
		return UpscaleTarget(Ratio{Long: 1, Short: 1}, o)
	}
	return UpscaleTarget(Ratio{Long: 16, Short: 9}, o)
}

func approx(a, b float64) bool {
	d := a - b
	return d < 0.01 && d > -0.01
}
