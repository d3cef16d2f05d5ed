package cmd

import (
	"fmt"

	"github.com/shouni/go-storyboard-kit/pkg/publisher"

	"github.com/spf13/cobra"
)

var exportOutputDir string

// exportCmd は台本をストーリーボード（Markdown + 画像）として書き出すのだ。
var exportCmd = &cobra.Command{
	Use:   "export <script-id>",
	Short: "ストーリーボードを Markdown と画像で書き出すのだ。",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		detail, err := app.Manager.ScriptDetail(args[0])
		if err != nil {
			return err
		}

		dir := exportOutputDir
		if dir == "" {
			dir = "output/" + args[0]
		}
		pub := publisher.NewStoryboardPublisher(app.Manager, publisher.LocalWriter{}, dir)
		res, err := pub.Publish(cmd.Context(), detail)
		if err != nil {
			return fmt.Errorf("ストーリーボードの書き出しに失敗したのだ: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s (%d images, %d missing)\n", res.MarkdownPath, len(res.ImagePaths), len(res.Missing))
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportOutputDir, "output-dir", "o", "", "出力ディレクトリなのだ。")
}
