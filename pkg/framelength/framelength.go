// Package framelength は動画のフレーム数を 4k+1 の値に量子化します。
package framelength

const (
	Min     = 1
	Max     = 129
	Step    = 4
	Default = 73
)

// Quantize は raw を 4k+1 の最寄りの下側の値に切り下げ、[Min, Max] に収めます。
// 範囲外の値は演算の前に端の値へ寄せます。
func Quantize(raw int) int {
	switch {
	case raw <= Min:
		return Min
	case raw >= Max:
		return Max
	}
	return (raw-1)/Step*Step + 1
}

// Valid は v がそのまま送信できるフレーム数かどうかを返します。
func Valid(v int) bool {
	return v >= Min && v <= Max && (v-1)%Step == 0
}

// Values は選択可能なフレーム数をすべて返します。
func Values() []int {
	vs := make([]int, 0, (Max-Min)/Step+1)
	for v := Min; v <= Max; v += Step {
		vs = append(vs, v)
	}
	return vs
}
