package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// scriptCmd は台本の登録・一覧・表示・削除をまとめるのだ。
var scriptCmd = &cobra.Command{
	Use:   "script",
	Short: "台本を管理するのだ。",
}

var scriptAddOpts struct {
	Title string
	File  string
}

var scriptAddCmd = &cobra.Command{
	Use:   "add",
	Short: "台本を登録するのだ（--file '-' か省略で標準入力）。",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		content, err := readSource(cmd, scriptAddOpts.File)
		if err != nil {
			return err
		}
		script, err := app.Manager.CreateScript(scriptAddOpts.Title, content)
		if err != nil {
			return err
		}
		slog.Info("台本を登録したのだ", "id", script.ID, "title", script.Title)
		return printJSON(cmd.OutOrStdout(), script)
	},
}

var scriptListCmd = &cobra.Command{
	Use:   "list",
	Short: "台本の一覧を表示するのだ。",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		scripts, err := app.Manager.Scripts()
		if err != nil {
			return err
		}
		for _, s := range scripts {
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", s.ID, s.Status, s.Title)
		}
		return nil
	},
}

var scriptShowCmd = &cobra.Command{
	Use:   "show <script-id>",
	Short: "台本とキャラクター・シーンを表示するのだ。",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		detail, err := app.Manager.ScriptDetail(args[0])
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), detail)
	},
}

var scriptDeleteCmd = &cobra.Command{
	Use:   "delete <script-id>",
	Short: "台本と配下のキャラクター・シーンを削除するのだ。",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		removed, err := app.Manager.DeleteScript(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "deleted %s (characters=%d, scenes=%d)\n", args[0], len(removed.Characters), len(removed.Scenes))
		return nil
	},
}

// analyzeCmd は台本を解析してキャラクターとシーンを作り直すのだ。
var analyzeCmd = &cobra.Command{
	Use:   "analyze <script-id>",
	Short: "台本を Gemini で解析するのだ。",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		detail, err := app.Manager.AnalyzeScript(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("台本の解析に失敗したのだ: %w", err)
		}
		slog.Info("台本の解析が完了したのだ", "characters", len(detail.Characters), "scenes", len(detail.Scenes))
		return printJSON(cmd.OutOrStdout(), detail)
	},
}

func init() {
	scriptAddCmd.Flags().StringVarP(&scriptAddOpts.Title, "title", "t", "", "台本のタイトルなのだ。")
	scriptAddCmd.Flags().StringVarP(&scriptAddOpts.File, "file", "f", "-", "入力ファイルのパス（'-'で標準入力なのだ）。")
	scriptCmd.AddCommand(scriptAddCmd, scriptListCmd, scriptShowCmd, scriptDeleteCmd)
}

func readSource(cmd *cobra.Command, path string) (string, error) {
	if path == "" || path == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("標準入力の読み込みに失敗したのだ: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("台本ファイルの読み込みに失敗したのだ: %w", err)
	}
	return string(data), nil
}
