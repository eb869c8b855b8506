package cmd

import (
	"fmt"
	"io"

	"github.com/shouni/go-media-studio/pkg/resolution"

	"github.com/spf13/cobra"
)

type resolutionFlags struct {
	kind        string
	ratio       string
	orientation string
	width       int
	height      int
	toggle      bool
	toRatio     string
	upscale     bool
	scale       float64
}

var resFlags resolutionFlags

// resolutionCmd は解像度設定画面の操作を1回分シミュレートするのだ。
// 入力は 比率と向きの初期化、幅・高さの入力、向きの反転、比率の変更 の順に適用されるのだ。
var resolutionCmd = &cobra.Command{
	Use:   "resolution",
	Short: "比率と上限に合わせて幅と高さを計算するのだ。",
	Long: `比率・向き・幅（または高さ）から、16 の倍数に揃えた解像度を計算するのだ。
--toggle で向きを反転、--to-ratio で比率を変更した結果も確認できるのだよ。`,
	Args: cobra.NoArgs,
	RunE: resolutionCommand,
}

func init() {
	f := resolutionCmd.Flags()
	f.StringVarP(&resFlags.kind, "kind", "k", string(resolution.KindVideo), "制約の種類（video または image）なのだ。")
	f.StringVarP(&resFlags.ratio, "ratio", "r", "16:9", "アスペクト比（W:H または custom）なのだ。")
	f.StringVarP(&resFlags.orientation, "orientation", "o", string(resolution.Landscape), "向き（landscape または portrait）なのだ。")
	f.IntVarP(&resFlags.width, "width", "W", 0, "入力する幅なのだ。")
	f.IntVarP(&resFlags.height, "height", "H", 0, "入力する高さなのだ。")
	f.BoolVar(&resFlags.toggle, "toggle", false, "計算後に向きを反転するのだ。")
	f.StringVar(&resFlags.toRatio, "to-ratio", "", "計算後に比率を変更するのだ。")
	f.BoolVar(&resFlags.upscale, "upscale", false, "アップスケール後の解像度を表示するのだ。")
	f.Float64Var(&resFlags.scale, "scale", resolution.DefaultUpscale, "画像のアップスケール倍率なのだ。")
}

func resolutionCommand(cmd *cobra.Command, args []string) error {
	state, err := applyResolutionFlags(cmd, resFlags)
	if err != nil {
		return err
	}
	printResolution(cmd.OutOrStdout(), state)
	return nil
}

// applyResolutionFlags はフラグを State の操作列に変換するのだ。
func applyResolutionFlags(cmd *cobra.Command, f resolutionFlags) (resolution.State, error) {
	kind, err := resolution.ParseKind(f.kind)
	if err != nil {
		return resolution.State{}, err
	}
	ratio, err := resolution.ParseRatio(f.ratio)
	if err != nil {
		return resolution.State{}, err
	}
	orientation, err := resolution.ParseOrientation(f.orientation)
	if err != nil {
		return resolution.State{}, err
	}
	state, err := resolution.NewStateFor(kind, ratio, orientation)
	if err != nil {
		return resolution.State{}, err
	}

	if cmd.Flags().Changed("width") {
		state = state.SetWidth(f.width)
	}
	if cmd.Flags().Changed("height") {
		state = state.SetHeight(f.height)
	}
	if f.toggle {
		state = state.ToggleOrientation()
	}
	if f.toRatio != "" {
		next, err := resolution.ParseRatio(f.toRatio)
		if err != nil {
			return resolution.State{}, err
		}
		if state, err = state.SelectRatio(next); err != nil {
			return resolution.State{}, err
		}
	}
	return state.EnableUpscale(f.upscale).SetScale(f.scale), nil
}

func printResolution(w io.Writer, s resolution.State) {
	c := s.Constraint
	fmt.Fprintf(w, "ratio:   %s\n", c.Ratio.Oriented(c.Orientation))
	fmt.Fprintf(w, "width:   %d\n", s.Dimensions.Width)
	if !s.HeightHidden() {
		fmt.Fprintf(w, "height:  %d\n", s.Dimensions.Height)
	}
	fmt.Fprintf(w, "max:     %d x %d\n", c.MaxWidth, c.MaxHeight)
	fmt.Fprintf(w, "display: %s\n", s.Display())
}
