package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shouni/go-media-studio/pkg/framelength"

	"github.com/spf13/cobra"
)

var framesList bool

// framesCmd はフレーム数を 4k+1 に丸めるのだ。
var framesCmd = &cobra.Command{
	Use:   "frames [値...]",
	Short: "フレーム数を 1〜129 の 4k+1 に丸めるのだ。",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if framesList {
			vals := framelength.Values()
			strs := make([]string, len(vals))
			for i, v := range vals {
				strs[i] = strconv.Itoa(v)
			}
			fmt.Fprintln(out, strings.Join(strs, " "))
			return nil
		}
		if len(args) == 0 {
			fmt.Fprintln(out, framelength.Default)
			return nil
		}
		for _, a := range args {
			v, err := strconv.Atoi(strings.TrimSpace(a))
			if err != nil {
				return fmt.Errorf("'%s' は整数ではないのだ: %w", a, err)
			}
			fmt.Fprintf(out, "%d -> %d\n", v, framelength.Quantize(v))
		}
		return nil
	},
}

func init() {
	framesCmd.Flags().BoolVarP(&framesList, "list", "l", false, "選択可能なフレーム数をすべて表示するのだ。")
}
