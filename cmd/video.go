package cmd

import (
	"context"
	"fmt"

	"github.com/shouni/go-media-studio/internal/builder"
	"github.com/shouni/go-media-studio/internal/pipeline"
	"github.com/shouni/go-media-studio/pkg/framelength"
	"github.com/shouni/go-media-studio/pkg/params"
	"github.com/shouni/go-media-studio/pkg/resolution"
	"github.com/shouni/go-media-studio/pkg/studioapi"

	"github.com/spf13/cobra"
)

var (
	videoRes         resolutionFlags
	videoSeed        string
	videoFrameLength int
)

// videoCmd は、解像度設定とシードを指定して動画を生成するのだ。
var videoCmd = &cobra.Command{
	Use:   "video [プロンプト]",
	Short: "プロンプトから動画を生成するのだ。",
	Long: `プロンプトを省略すると、プロンプト画面から受け渡されたプロンプトを1度だけ使うのだ。
--seed を省略するとランダムなシードになるのだよ。`,
	Args: cobra.MaximumNArgs(1),
	RunE: videoCommand,
}

func init() {
	f := videoCmd.Flags()
	f.StringVarP(&videoRes.ratio, "ratio", "r", "16:9", "アスペクト比（16:9, 4:3, 1:1）なのだ。")
	f.StringVarP(&videoRes.orientation, "orientation", "o", string(resolution.Landscape), "向きなのだ。")
	f.IntVarP(&videoRes.width, "width", "W", 0, "幅なのだ。高さは比率から計算されるのだ。")
	f.IntVarP(&videoRes.height, "height", "H", 0, "高さなのだ。幅は比率から計算されるのだ。")
	f.BoolVarP(&videoRes.upscale, "upscale", "u", false, "アップスケールを有効にするのだ。")
	f.StringVar(&videoSeed, "seed", "", "シード値なのだ。省略するとランダムなのだ。")
	f.IntVarP(&videoFrameLength, "frames", "n", framelength.Default, "フレーム数なのだ。4k+1 に丸められるのだ。")
}

func videoCommand(cmd *cobra.Command, args []string) error {
	videoRes.kind = string(resolution.KindVideo)
	videoRes.scale = resolution.DefaultUpscale
	state, err := applyResolutionFlags(cmd, videoRes)
	if err != nil {
		return err
	}

	settings := studioapi.VideoSettings{
		UseRandomSeed: videoSeed == "",
		FrameLength:   videoFrameLength,
		Dimensions:    state.Dimensions,
		EnableUpscale: state.Upscale,
	}
	if len(args) > 0 {
		settings.Prompt = args[0]
	}
	if !settings.UseRandomSeed {
		if settings.Seed, err = params.ParseSeed(videoSeed); err != nil {
			return err
		}
	}

	return withAppContext(cmd, func(ctx context.Context, appCtx *builder.AppContext) error {
		res, err := pipeline.ExecuteVideo(ctx, appCtx, settings)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "seed:    %d\n", res.Seed)
		fmt.Fprintf(out, "display: %s\n", state.Display())
		fmt.Fprintf(out, "url:     %s\n", res.URL)
		return nil
	})
}
