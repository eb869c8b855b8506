package cmd

import (
	"context"
	"fmt"

	"github.com/shouni/go-media-studio/internal/builder"
	"github.com/shouni/go-media-studio/pkg/domain"

	"github.com/spf13/cobra"
)

var (
	prefsPage    string
	prefsUserID  string
	prefsSubPath string
)

var prefsCmd = &cobra.Command{
	Use:   "prefs",
	Short: "ユーザーIDと保存先サブパスを表示・変更するのだ。",
}

var prefsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "現在の設定と保存先パスを表示するのだ。",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withAppContext(cmd, func(ctx context.Context, appCtx *builder.AppContext) error {
			p, err := appCtx.Prefs.Load(ctx, domain.Page(prefsPage))
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "userId:   %s\n", p.UserID)
			fmt.Fprintf(out, "subPath:  %s\n", p.SubPath)
			if savePath, err := p.SavePath(); err == nil {
				fmt.Fprintf(out, "savePath: %s\n", savePath)
			}
			return nil
		})
	},
}

var prefsSetCmd = &cobra.Command{
	Use:   "set",
	Short: "指定した項目だけを保存するのだ。",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withAppContext(cmd, func(ctx context.Context, appCtx *builder.AppContext) error {
			if cmd.Flags().Changed("user-id") {
				if err := appCtx.Prefs.SetUserID(ctx, prefsUserID); err != nil {
					return err
				}
			}
			if cmd.Flags().Changed("sub-path") {
				if err := appCtx.Prefs.SetSubPath(ctx, prefsSubPath); err != nil {
					return err
				}
			}
			return nil
		})
	},
}

func init() {
	prefsShowCmd.Flags().StringVarP(&prefsPage, "page", "p", string(domain.PagePrompt), "既定値を決める画面（prompt, image, video）なのだ。")
	prefsSetCmd.Flags().StringVarP(&prefsUserID, "user-id", "u", "", "ユーザーIDなのだ。")
	prefsSetCmd.Flags().StringVar(&prefsSubPath, "sub-path", "", "保存先サブパスなのだ。")
	prefsCmd.AddCommand(prefsShowCmd, prefsSetCmd)
}
