package resolution

import (
	"fmt"
	"math"
)

const (
	MinUpscale     = 1.05
	MaxUpscale     = 4.0
	DefaultUpscale = 2.0
)

// State は解像度設定画面の状態です。値として扱い、操作のたびに新しい State を返します。
// 可変なコピーを持つのは呼び出し側（CLI など）だけです。
type State struct {
	Constraint Constraint
	Dimensions Dimensions
	Upscale    bool
	Scale      float64
}

// NewState は制約の既定値から State を作ります。
// 画像は既定値を比率に合わせるため、幅を基準に一度計算し直します。
func NewState(c Constraint) State {
	s := State{
		Constraint: c,
		Dimensions: c.Defaults(),
		Scale:      DefaultUpscale,
	}
	if c.Kind == KindImage && !c.Ratio.IsCustom() {
		s.Dimensions = Compute(c, FieldWidth, s.Dimensions.Width, s.Dimensions)
	}
	return s
}

// NewStateFor は種類・比率・向きの組から State を作ります。
func NewStateFor(kind Kind, r Ratio, o Orientation) (State, error) {
	c, err := NewConstraint(kind, r, o)
	if err != nil {
		return State{}, err
	}
	return NewState(c), nil
}

// SetWidth は幅の入力欄が変更されたときの State を返します。
func (s State) SetWidth(v int) State {
	return s.set(FieldWidth, v)
}

// SetHeight は高さの入力欄が変更されたときの State を返します。
func (s State) SetHeight(v int) State {
	return s.set(FieldHeight, v)
}

func (s State) set(f Field, v int) State {
	s.Dimensions = Compute(s.Constraint, f, v, s.Dimensions)
	if s.Constraint.Ratio.IsCustom() {
		o := InferOrientation(s.Dimensions, s.Constraint.Orientation)
		s.Constraint = s.Constraint.WithOrientation(o)
	}
	return s
}

// SetScale はアップスケール倍率を [MinUpscale, MaxUpscale] に収めて設定します。
// 倍率は表示専用で、幅と高さには影響しません。
func (s State) SetScale(f float64) State {
	s.Scale = ClampScale(f)
	return s
}

// EnableUpscale はアップスケールの有効・無効を切り替えます。
func (s State) EnableUpscale(on bool) State {
	s.Upscale = on
	return s
}

// ToggleOrientation は向きを反転し、幅と高さを入れ替えて新しい上限に収めます。
func (s State) ToggleOrientation() State {
	next := s.Constraint.WithOrientation(s.Constraint.Orientation.Toggle())
	s.Dimensions = Reorient(s.Dimensions, next)
	s.Constraint = next
	return s
}

// SelectRatio は比率の変更を反映した State を返します。
func (s State) SelectRatio(r Ratio) (State, error) {
	next, err := NewConstraint(s.Constraint.Kind, r, s.Constraint.Orientation)
	if err != nil {
		return s, err
	}
	s.Dimensions = ChangeRatio(s.Dimensions, next)
	s.Constraint = next
	return s, nil
}

// Display は表示用の解像度です。アップスケール有効時は倍率を掛けた値になります。
func (s State) Display() Display {
	d := s.Dimensions
	if s.Upscale {
		if s.Constraint.Kind == KindVideo {
			d = UpscaleTarget(s.Constraint.Ratio, s.Constraint.Orientation)
		} else {
			d = Upscaled(d, s.Scale)
		}
	}
	return Display{
		Dimensions:  d,
		Orientation: s.Constraint.Orientation,
		Upscaled:    s.Upscale,
	}
}

// HeightHidden は正方形比率のとき高さ入力欄を隠すべきかを返します。
func (s State) HeightHidden() bool {
	return s.Constraint.Ratio.IsSquare()
}

// Display は画面に表示する解像度ラベルです。
type Display struct {
	Dimensions
	Orientation Orientation
	Upscaled    bool
}

func (d Display) String() string {
	return fmt.Sprintf("%d x %d %s", d.Width, d.Height, d.Orientation.Label())
}

// ClampScale は倍率を許容範囲に収めます。NaN は MinUpscale として扱います。
func ClampScale(f float64) float64 {
	if math.IsNaN(f) {
		return MinUpscale
	}
	return min(max(f, MinUpscale), MaxUpscale)
}

// Upscaled は倍率を掛けて四捨五入した寸法を返します。
func Upscaled(d Dimensions, scale float64) Dimensions {
	scale = ClampScale(scale)
	return Dimensions{
		Width:  int(math.Round(float64(d.Width) * scale)),
		Height: int(math.Round(float64(d.Height) * scale)),
	}
}
