package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/shouni/go-media-studio/internal/builder"
	"github.com/shouni/go-media-studio/pkg/domain"
	"github.com/shouni/go-media-studio/pkg/storage"
	"github.com/shouni/go-media-studio/pkg/transfer"

	"github.com/spf13/cobra"
)

var (
	promptFile   string
	promptTo     string
	promptTarget domain.PromptRequest
)

var promptCmd = &cobra.Command{
	Use:   "prompt",
	Short: "プロンプトの生成・保存・読み込み・受け渡しを行うのだ。",
}

var promptGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "ターゲット設定から広告用プロンプトを生成するのだ。",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withAppContext(cmd, func(ctx context.Context, appCtx *builder.AppContext) error {
			generated, err := appCtx.API.GeneratePrompt(ctx, promptTarget)
			if err != nil {
				return err
			}
			if err := appCtx.Restorer.Remember(ctx, generated); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), generated)
			return nil
		})
	},
}

var promptSaveCmd = &cobra.Command{
	Use:   "save ファイル名 [本文]",
	Short: "プロンプトをサーバーに保存するのだ。",
	Long:  "本文は引数、--file、直前のプロンプトの順に探すのだ。",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withAppContext(cmd, func(ctx context.Context, appCtx *builder.AppContext) error {
			content, err := promptContent(ctx, appCtx, args[1:])
			if err != nil {
				return err
			}
			p, err := appCtx.Prefs.Load(ctx, domain.PagePrompt)
			if err != nil {
				return err
			}
			name, err := appCtx.API.SavePrompt(ctx, p.UserID, args[0], content)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), name)
			return nil
		})
	},
}

var promptListCmd = &cobra.Command{
	Use:   "list",
	Short: "保存済みのプロンプトを新しい順に表示するのだ。",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withAppContext(cmd, func(ctx context.Context, appCtx *builder.AppContext) error {
			p, err := appCtx.Prefs.Load(ctx, domain.PagePrompt)
			if err != nil {
				return err
			}
			files, err := appCtx.API.ListPrompts(ctx, p.UserID)
			if err != nil {
				return err
			}
			for _, f := range files {
				fmt.Fprintln(cmd.OutOrStdout(), f)
			}
			return nil
		})
	},
}

var promptLoadCmd = &cobra.Command{
	Use:   "load ファイル名",
	Short: "保存済みのプロンプトを読み込むのだ。",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withAppContext(cmd, func(ctx context.Context, appCtx *builder.AppContext) error {
			var name string
			if len(args) > 0 {
				name = args[0]
			}
			p, err := appCtx.Prefs.Load(ctx, domain.PagePrompt)
			if err != nil {
				return err
			}
			content, err := appCtx.API.LoadPrompt(ctx, p.UserID, name)
			if err != nil {
				return err
			}
			if err := appCtx.Restorer.Remember(ctx, content); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), content)
			return nil
		})
	},
}

var promptTransferCmd = &cobra.Command{
	Use:   "transfer [本文]",
	Short: "プロンプトを別の画面に1度だけ受け渡すのだ。",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withAppContext(cmd, func(ctx context.Context, appCtx *builder.AppContext) error {
			content, err := promptContent(ctx, appCtx, args)
			if err != nil {
				return err
			}
			switch domain.Page(promptTo) {
			case domain.PageVideo:
				ok, err := appCtx.Transfer.HandOffToVideo(ctx, content)
				if err != nil {
					return err
				}
				if !ok {
					return domain.NewValidationError("prompt", "受け渡すプロンプトがありません")
				}
			case domain.PagePrompt:
				if err := appCtx.Transfer.HandBackToPromptPage(ctx, content); err != nil {
					return err
				}
			default:
				return domain.NewValidationError("to", fmt.Sprintf("未対応の受け渡し先です: %s", promptTo))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s に受け渡したのだ\n", promptTo)
			return nil
		})
	},
}

var promptRestoreCmd = &cobra.Command{
	Use:   "restore",
	Short: "プロンプト画面の初期値を復元するのだ。",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withAppContext(cmd, func(ctx context.Context, appCtx *builder.AppContext) error {
			prompt, source, err := appCtx.Restorer.Restore(ctx)
			if err != nil {
				return err
			}
			if source == transfer.SourceNone {
				return nil
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "(%s)\n", source)
			fmt.Fprintln(cmd.OutOrStdout(), prompt)
			return nil
		})
	},
}

// promptContent は引数、--file、直前のプロンプトの順に本文を決めるのだ。
// 直前のプロンプトは読むだけで消費しないのだ。
func promptContent(ctx context.Context, appCtx *builder.AppContext, args []string) (string, error) {
	if len(args) > 0 && strings.TrimSpace(args[0]) != "" {
		return args[0], nil
	}
	if promptFile != "" {
		b, err := os.ReadFile(promptFile)
		if err != nil {
			return "", fmt.Errorf("プロンプトファイルの読み込みに失敗したのだ: %w", err)
		}
		return string(b), nil
	}
	prev, err := appCtx.Local.Get(ctx, transfer.KeyPrevious)
	if errors.Is(err, storage.ErrNotFound) {
		return "", domain.NewValidationError("prompt", "プロンプトを入力してください")
	}
	return prev, err
}

func init() {
	f := promptGenerateCmd.Flags()
	f.StringVar(&promptTarget.Gender, "gender", "", "ターゲットの性別なのだ。")
	f.StringVar(&promptTarget.AgeGroup, "age-group", "", "ターゲットの年齢層なのだ。")
	f.StringVar(&promptTarget.ProductCategory, "category", "", "商品カテゴリなのだ。")
	f.StringVar(&promptTarget.SeasonEvent, "season", "", "季節・イベントなのだ。")
	f.StringVar(&promptTarget.AdTone, "tone", "", "広告のトーンなのだ。")
	f.StringVar(&promptTarget.AdditionalRequests, "request", "", "追加の要望なのだ。")

	promptSaveCmd.Flags().StringVarP(&promptFile, "file", "f", "", "本文を読み込むファイルなのだ。")
	promptTransferCmd.Flags().StringVarP(&promptFile, "file", "f", "", "本文を読み込むファイルなのだ。")
	promptTransferCmd.Flags().StringVar(&promptTo, "to", string(domain.PageVideo), "受け渡し先（video または prompt）なのだ。")

	promptCmd.AddCommand(
		promptGenerateCmd,
		promptSaveCmd,
		promptListCmd,
		promptLoadCmd,
		promptTransferCmd,
		promptRestoreCmd,
	)
}
