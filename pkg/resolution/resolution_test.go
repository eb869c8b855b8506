package resolution

import (
	"math"
	"testing"
)

func mustConstraint(t *testing.T, kind Kind, ratio string, o Orientation) Constraint {
	t.Helper()
	r, err := ParseRatio(ratio)
	if err != nil {
		t.Fatalf("比率の解析に失敗しました: %v", err)
	}
	c, err := NewConstraint(kind, r, o)
	if err != nil {
		t.Fatalf("制約の構築に失敗しました: %v", err)
	}
	return c
}

func TestCompute_NonSquare(t *testing.T) {
	t.Run("16:9横長で幅848なら高さ480", func(t *testing.T) {
		c := mustConstraint(t, KindVideo, "16:9", Landscape)
		got := Compute(c, FieldWidth, 848, Dimensions{})
		if got != (Dimensions{Width: 848, Height: 480}) {
			t.Errorf("期待: 848x480, 実際: %dx%d", got.Width, got.Height)
		}
	})

	t.Run("上限を超えた幅は両辺とも縮小される", func(t *testing.T) {
		c := mustConstraint(t, KindVideo, "16:9", Landscape)
		got := Compute(c, FieldWidth, 2000, Dimensions{})
		if got != (Dimensions{Width: 960, Height: 544}) {
			t.Errorf("期待: 960x544, 実際: %dx%d", got.Width, got.Height)
		}
	})

	t.Run("縦長4:3で高さが上限を超えた場合", func(t *testing.T) {
		c := mustConstraint(t, KindImage, "4:3", Portrait)
		got := Compute(c, FieldWidth, 3000, Dimensions{})
		if got != (Dimensions{Width: 1536, Height: 2048}) {
			t.Errorf("期待: 1536x2048, 実際: %dx%d", got.Width, got.Height)
		}
	})

	t.Run("極端に小さい入力でも最小値を下回らない", func(t *testing.T) {
		c := mustConstraint(t, KindVideo, "16:9", Landscape)
		got := Compute(c, FieldWidth, 1, Dimensions{})
		if got.Width != MinDimension || got.Height != MinDimension {
			t.Errorf("最小値 %d を下回っています: %+v", MinDimension, got)
		}
	})
}

func TestCompute_ExtremeInput(t *testing.T) {
	tests := []struct {
		name    string
		kind    Kind
		ratio   string
		field   Field
		raw     int
		current Dimensions
		want    Dimensions
	}{
		{"最大の整数は上限に収まる", KindVideo, "16:9", FieldWidth, math.MaxInt, Dimensions{}, Dimensions{Width: 960, Height: 544}},
		{"最大の整数の高さも上限に収まる", KindVideo, "16:9", FieldHeight, math.MaxInt, Dimensions{}, Dimensions{Width: 960, Height: 544}},
		{"最小の整数は最小値になる", KindVideo, "16:9", FieldWidth, math.MinInt, Dimensions{}, Dimensions{Width: MinDimension, Height: MinDimension}},
		{"正方形でも上限に収まる", KindVideo, "1:1", FieldWidth, math.MaxInt, Dimensions{}, Dimensions{Width: 720, Height: 720}},
		{"カスタムは変更した欄だけ上限に収まる", KindImage, "custom", FieldWidth, math.MaxInt, Dimensions{Width: 960, Height: 1280}, Dimensions{Width: 2048, Height: 1280}},
		{"カスタムの最小の整数", KindImage, "custom", FieldHeight, math.MinInt, Dimensions{Width: 960, Height: 1280}, Dimensions{Width: 960, Height: MinDimension}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := mustConstraint(t, tt.kind, tt.ratio, Landscape)
			if got := Compute(c, tt.field, tt.raw, tt.current); got != tt.want {
				t.Errorf("期待: %+v, 実際: %+v", tt.want, got)
			}
		})
	}
}

func TestCompute_Properties(t *testing.T) {
	cases := []struct {
		kind  Kind
		ratio string
	}{
		{KindVideo, "16:9"},
		{KindVideo, "4:3"},
		{KindImage, "16:9"},
		{KindImage, "4:3"},
		{KindImage, "3:2"},
	}

	for _, tc := range cases {
		for _, o := range []Orientation{Landscape, Portrait} {
			c := mustConstraint(t, tc.kind, tc.ratio, o)
			wTerm, hTerm := c.Ratio.Terms(o)

			for _, field := range []Field{FieldWidth, FieldHeight} {
				for raw := -10; raw <= 3000; raw += 7 {
					d := Compute(c, field, raw, Dimensions{})
					if d.Width%Step != 0 || d.Height%Step != 0 {
						t.Fatalf("%s %s %s raw=%d: 16の倍数ではありません: %+v", tc.kind, tc.ratio, o, raw, d)
					}
					if d.Width > c.MaxWidth || d.Height > c.MaxHeight {
						t.Fatalf("%s %s %s raw=%d: 上限を超えています: %+v", tc.kind, tc.ratio, o, raw, d)
					}
					if d.Width < MinDimension || d.Height < MinDimension {
						t.Fatalf("%s %s %s raw=%d: 最小値を下回っています: %+v", tc.kind, tc.ratio, o, raw, d)
					}
					if d.Width >= 64 && d.Height >= 64 {
						want := float64(d.Width) * float64(hTerm) / float64(wTerm)
						if math.Abs(float64(d.Height)-want) > Step {
							t.Fatalf("%s %s %s raw=%d: 比率が崩れています: %+v", tc.kind, tc.ratio, o, raw, d)
						}
					}
				}
			}
		}
	}
}

func TestCompute_Square(t *testing.T) {
	tests := []struct {
		name  string
		kind  Kind
		field Field
		raw   int
		want  int
	}{
		{"画像の幅1000は1008に丸められる", KindImage, FieldWidth, 1000, 1008},
		{"動画は上限720で抑えられる", KindVideo, FieldWidth, 1000, 720},
		{"高さ側の変更でも同じ値になる", KindImage, FieldHeight, 333, 336},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := mustConstraint(t, tt.kind, "1:1", Landscape)
			got := Compute(c, tt.field, tt.raw, Dimensions{})
			if got.Width != got.Height {
				t.Fatalf("幅と高さが一致しません: %+v", got)
			}
			if got.Width != tt.want {
				t.Errorf("期待: %d, 実際: %d", tt.want, got.Width)
			}
		})
	}
}

func TestCompute_Custom(t *testing.T) {
	c, err := NewConstraint(KindImage, Custom, Portrait)
	if err != nil {
		t.Fatalf("制約の構築に失敗しました: %v", err)
	}
	current := Dimensions{Width: 960, Height: 1280}

	t.Run("変更した欄だけが丸められる", func(t *testing.T) {
		got := Compute(c, FieldWidth, 1000, current)
		if got != (Dimensions{Width: 1008, Height: 1280}) {
			t.Errorf("期待: 1008x1280, 実際: %+v", got)
		}
	})

	t.Run("上限で抑えられる", func(t *testing.T) {
		got := Compute(c, FieldHeight, 5000, current)
		if got != (Dimensions{Width: 960, Height: 2048}) {
			t.Errorf("期待: 960x2048, 実際: %+v", got)
		}
	})
}

func TestNewConstraint(t *testing.T) {
	t.Run("動画でカスタム比率はエラー", func(t *testing.T) {
		if _, err := NewConstraint(KindVideo, Custom, Landscape); err == nil {
			t.Error("エラーが返されるべきです")
		}
	})

	t.Run("動画で未対応の比率はエラー", func(t *testing.T) {
		r, _ := NewRatio(21, 9)
		if _, err := NewConstraint(KindVideo, r, Landscape); err == nil {
			t.Error("エラーが返されるべきです")
		}
	})

	t.Run("縦向きでは上限と既定値が入れ替わる", func(t *testing.T) {
		c := mustConstraint(t, KindVideo, "16:9", Portrait)
		if c.MaxWidth != 544 || c.MaxHeight != 960 {
			t.Errorf("上限が入れ替わっていません: %dx%d", c.MaxWidth, c.MaxHeight)
		}
		if c.Defaults() != (Dimensions{Width: 480, Height: 848}) {
			t.Errorf("既定値が入れ替わっていません: %+v", c.Defaults())
		}
	})

	t.Run("9:16は16:9に正規化される", func(t *testing.T) {
		r, err := ParseRatio("9:16")
		if err != nil {
			t.Fatalf("解析に失敗しました: %v", err)
		}
		if r.Long != 16 || r.Short != 9 {
			t.Errorf("正規化されていません: %+v", r)
		}
	})
}

func TestState_ToggleOrientation(t *testing.T) {
	t.Run("幅と高さが入れ替わる", func(t *testing.T) {
		s, err := NewStateFor(KindVideo, Ratio{Long: 16, Short: 9}, Landscape)
		if err != nil {
			t.Fatalf("状態の構築に失敗しました: %v", err)
		}
		s = s.ToggleOrientation()
		if s.Dimensions != (Dimensions{Width: 480, Height: 848}) {
			t.Errorf("期待: 480x848, 実際: %+v", s.Dimensions)
		}
		if s.Constraint.Orientation != Portrait {
			t.Errorf("向きが変わっていません: %s", s.Constraint.Orientation)
		}
	})

	t.Run("動画の正方形は既定値に戻る", func(t *testing.T) {
		s, _ := NewStateFor(KindVideo, Ratio{Long: 1, Short: 1}, Landscape)
		s = s.SetWidth(720).ToggleOrientation()
		if s.Dimensions != (Dimensions{Width: 640, Height: 640}) {
			t.Errorf("期待: 640x640, 実際: %+v", s.Dimensions)
		}
	})

	t.Run("元の状態は変更されない", func(t *testing.T) {
		s, _ := NewStateFor(KindImage, Ratio{Long: 16, Short: 9}, Landscape)
		before := s.Dimensions
		_ = s.ToggleOrientation()
		if s.Dimensions != before {
			t.Errorf("元の状態が変更されています: %+v", s.Dimensions)
		}
	})
}

func TestState_SelectRatio(t *testing.T) {
	t.Run("動画は新しい比率の既定値に戻る", func(t *testing.T) {
		s, _ := NewStateFor(KindVideo, Ratio{Long: 16, Short: 9}, Landscape)
		s, err := s.SelectRatio(Ratio{Long: 4, Short: 3})
		if err != nil {
			t.Fatalf("比率の変更に失敗しました: %v", err)
		}
		if s.Dimensions != (Dimensions{Width: 768, Height: 576}) {
			t.Errorf("期待: 768x576, 実際: %+v", s.Dimensions)
		}
	})

	t.Run("画像は幅を保って高さを再計算する", func(t *testing.T) {
		s, _ := NewStateFor(KindImage, Ratio{Long: 16, Short: 9}, Landscape)
		if s.Dimensions != (Dimensions{Width: 1280, Height: 720}) {
			t.Fatalf("初期値が想定外です: %+v", s.Dimensions)
		}
		s, _ = s.SelectRatio(Ratio{Long: 4, Short: 3})
		if s.Dimensions != (Dimensions{Width: 1280, Height: 960}) {
			t.Errorf("期待: 1280x960, 実際: %+v", s.Dimensions)
		}
		s, _ = s.SelectRatio(Ratio{Long: 1, Short: 1})
		if s.Dimensions != (Dimensions{Width: 1280, Height: 1280}) {
			t.Errorf("期待: 1280x1280, 実際: %+v", s.Dimensions)
		}
		if !s.HeightHidden() {
			t.Error("正方形では高さ欄が隠れるべきです")
		}
	})

	t.Run("動画でカスタムを選ぶとエラーで状態は維持される", func(t *testing.T) {
		s, _ := NewStateFor(KindVideo, Ratio{Long: 16, Short: 9}, Landscape)
		got, err := s.SelectRatio(Custom)
		if err == nil {
			t.Fatal("エラーが返されるべきです")
		}
		if got != s {
			t.Errorf("状態が変更されています: %+v", got)
		}
	})
}

func TestState_CustomOrientation(t *testing.T) {
	s, err := NewStateFor(KindImage, Custom, Portrait)
	if err != nil {
		t.Fatalf("状態の構築に失敗しました: %v", err)
	}
	if s.Dimensions != (Dimensions{Width: 960, Height: 1280}) {
		t.Fatalf("初期値が想定外です: %+v", s.Dimensions)
	}

	s = s.SetWidth(1600)
	if s.Constraint.Orientation != Landscape {
		t.Errorf("幅が高さを超えたら横向きになるべきです: %s", s.Constraint.Orientation)
	}
	if got := s.Display().String(); got != "1600 x 1280 H" {
		t.Errorf("表示が想定外です: %s", got)
	}
}

func TestState_Display(t *testing.T) {
	t.Run("画像のアップスケールは表示のみに反映される", func(t *testing.T) {
		s, _ := NewStateFor(KindImage, Ratio{Long: 16, Short: 9}, Landscape)
		s = s.EnableUpscale(true).SetScale(1.5)
		d := s.Display()
		if d.Width != 1920 || d.Height != 1080 {
			t.Errorf("期待: 1920x1080, 実際: %dx%d", d.Width, d.Height)
		}
		if s.Dimensions != (Dimensions{Width: 1280, Height: 720}) {
			t.Errorf("保存される寸法が変わっています: %+v", s.Dimensions)
		}
	})

	t.Run("倍率は範囲内に収められる", func(t *testing.T) {
		s, _ := NewStateFor(KindImage, Ratio{Long: 16, Short: 9}, Landscape)
		if got := s.SetScale(10).Scale; got != MaxUpscale {
			t.Errorf("期待: %v, 実際: %v", MaxUpscale, got)
		}
		s = s.EnableUpscale(true).SetScale(1)
		if got := s.Display().String(); got != "1344 x 756 H" {
			t.Errorf("表示が想定外です: %s", got)
		}
	})

	t.Run("動画のアップスケールは比率ごとの解像度", func(t *testing.T) {
		s, _ := NewStateFor(KindVideo, Ratio{Long: 16, Short: 9}, Portrait)
		d := s.EnableUpscale(true).Display()
		if d.Width != 1080 || d.Height != 1920 {
			t.Errorf("期待: 1080x1920, 実際: %dx%d", d.Width, d.Height)
		}
	})
}

func TestUpscaleTargetFor(t *testing.T) {
	tests := []struct {
		name          string
		width, height int
		want          Dimensions
	}{
		{"4:3横", 768, 576, Dimensions{1600, 1200}},
		{"4:3縦", 576, 768, Dimensions{1200, 1600}},
		{"正方形", 720, 720, Dimensions{1440, 1440}},
		{"判別できない場合は16:9", 848, 480, Dimensions{1920, 1080}},
		{"判別できない縦長は9:16", 480, 848, Dimensions{1080, 1920}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := UpscaleTargetFor(tt.width, tt.height); got != tt.want {
				t.Errorf("期待: %+v, 実際: %+v", tt.want, got)
			}
		})
	}
}
