package cmd

import (
	"context"
	"fmt"

	"github.com/shouni/go-media-studio/internal/builder"
	"github.com/shouni/go-media-studio/internal/pipeline"
	"github.com/shouni/go-media-studio/pkg/resolution"

	"github.com/spf13/cobra"
)

var (
	examplesOrientation string
	examplesDestDir     string
)

// examplesCmd は、プロンプトからサンプル画像を生成してプレビューを保存するのだ。
var examplesCmd = &cobra.Command{
	Use:   "examples [プロンプト]",
	Short: "プロンプトからサンプル画像を4枚生成するのだ。",
	Long: `プロンプトを省略すると、受け渡されたプロンプトか直前のプロンプトを使うのだ。
--dest を指定すると生成された画像をダウンロードするのだよ。`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		orientation, err := resolution.ParseOrientation(examplesOrientation)
		if err != nil {
			return err
		}
		o := pipeline.ExamplesOptions{Orientation: orientation, DestDir: examplesDestDir}
		if len(args) > 0 {
			o.Prompt = args[0]
		}

		return withAppContext(cmd, func(ctx context.Context, appCtx *builder.AppContext) error {
			res, err := pipeline.ExecuteExamples(ctx, appCtx, o)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "layout: %s\n", res.Layout)
			for i, p := range res.ImagePaths {
				fmt.Fprintln(out, appCtx.API.OutputURL(p))
				if i < len(res.LocalPaths) {
					fmt.Fprintf(out, "  -> %s\n", res.LocalPaths[i])
				}
			}
			return nil
		})
	},
}

func init() {
	examplesCmd.Flags().StringVarP(&examplesOrientation, "orientation", "o", string(resolution.Landscape), "プレビューの向きなのだ。")
	examplesCmd.Flags().StringVarP(&examplesDestDir, "dest", "d", "", "プレビューの保存先ディレクトリなのだ。")
}
