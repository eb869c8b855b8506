package resolution

import "math"

const (
	// Step は幅・高さを揃える粒度です。
	Step = 16
	// MinDimension は計算結果の下限です。極端に小さい入力でも 0px にはしません。
	MinDimension = Step

	// maxInput は丸める前の入力値の上限です。どの制約の上限よりも十分大きい値です。
	maxInput = 1 << 20
)

// Field は変更された入力欄です。
type Field int

const (
	FieldWidth Field = iota
	FieldHeight
)

// Dimensions は幅と高さの組です。
type Dimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Swap は幅と高さを入れ替えた値を返します。
func (d Dimensions) Swap() Dimensions {
	return Dimensions{Width: d.Height, Height: d.Width}
}

// Compute は field が raw に変更されたときの寸法を求めます。
//   - custom: 変更された欄のみ 16 の倍数に丸めて上限で抑え、もう一方は current のまま
//   - 正方形: 幅と高さを同じ値にそろえる
//   - それ以外: もう一方を比率から再計算し、上限を超えた場合は両方を縮小する
func Compute(c Constraint, field Field, raw int, current Dimensions) Dimensions {
	if c.Ratio.IsCustom() {
		d := current
		switch field {
		case FieldHeight:
			d.Height = fit(raw, c.MaxHeight)
		default:
			d.Width = fit(raw, c.MaxWidth)
		}
		return d
	}

	if c.Ratio.IsSquare() {
		v := fit(raw, min(c.MaxWidth, c.MaxHeight))
		return Dimensions{Width: v, Height: v}
	}

	w, h := c.Ratio.Terms(c.Orientation)
	var d Dimensions
	switch field {
	case FieldHeight:
		d.Height = snap(raw)
		d.Width = scale(d.Height, w, h)
	default:
		d.Width = snap(raw)
		d.Height = scale(d.Width, h, w)
	}
	return bound(c, d)
}

// Reorient は向きの切り替え時に、直前の幅と高さを入れ替えて新しい上限に収めます。
// 動画の正方形比率は既定値に戻します。
func Reorient(prev Dimensions, next Constraint) Dimensions {
	if next.Ratio.IsSquare() && next.Kind == KindVideo {
		return next.Defaults()
	}
	d := prev.Swap()
	return Dimensions{
		Width:  fit(d.Width, next.MaxWidth),
		Height: fit(d.Height, next.MaxHeight),
	}
}

// ChangeRatio は比率ボタンが押されたときの寸法を求めます。
// 動画は新しい比率の既定値に戻し、画像は現在の幅を保って高さを再計算します。
func ChangeRatio(prev Dimensions, next Constraint) Dimensions {
	switch {
	case next.Ratio.IsCustom():
		return prev
	case next.Kind == KindVideo:
		return next.Defaults()
	}
	return Compute(next, FieldWidth, prev.Width, prev)
}

// InferOrientation はカスタム比率での表示用に、寸法から向きを推定します。
// 幅と高さが等しい場合は fallback を返します。
func InferOrientation(d Dimensions, fallback Orientation) Orientation {
	switch {
	case d.Height > d.Width:
		return Portrait
	case d.Width > d.Height:
		return Landscape
	}
	return fallback
}

// bound は上限を超えた側を上限（16の倍数）に切り下げ、もう一方を比率から求め直します。
func bound(c Constraint, d Dimensions) Dimensions {
	w, h := c.Ratio.Terms(c.Orientation)
	maxW, maxH := floorStep(c.MaxWidth), floorStep(c.MaxHeight)

	if d.Width > maxW {
		d.Width = maxW
		d.Height = scale(d.Width, h, w)
	}
	if d.Height > maxH {
		d.Height = maxH
		d.Width = scale(d.Height, w, h)
	}
	d.Width = min(d.Width, maxW)
	return d
}

// snap は最も近い 16 の倍数に丸めます（下限 MinDimension）。
// 入力はあらかじめ [0, maxInput] に収めるので、巨大な値でも桁あふれしません。
func snap(v int) int {
	v = min(max(v, 0), maxInput)
	return max(int(math.Round(float64(v)/Step))*Step, MinDimension)
}

// fit は snap した値を上限以下に抑えます。
func fit(v, limit int) int {
	return min(snap(v), max(floorStep(limit), MinDimension))
}

// scale は v * num / den を 16 の倍数に丸めます。
func scale(v, num, den int) int {
	return max(int(math.Round(float64(v)*float64(num)/float64(den)/Step))*Step, MinDimension)
}

func floorStep(v int) int {
	return (v / Step) * Step
}
