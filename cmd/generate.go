package cmd

import (
	"fmt"
	"log/slog"

	"github.com/shouni/go-storyboard-kit/pkg/generator"

	"github.com/spf13/cobra"
)

// generateCmd は、シーン挿絵とキャラクター参照画像の生成を実行するのだ。
var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "AIに画像を生成させますなのだ。",
	Long: `シーン単位またはキャラクター単位で画像をバッチ生成するのだ。
一括生成は未生成または失敗したシーン、参照画像に空きのあるキャラクターが対象なのだよ。`,
}

var generateSceneCmd = &cobra.Command{
	Use:   "scene <scene-id>",
	Short: "シーン1件の挿絵を生成するのだ。",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := app.Manager.Generator().GenerateScene(cmd.Context(), args[0])
		if res != nil {
			printBatch(cmd, res)
		}
		return err
	},
}

var generateScenesCmd = &cobra.Command{
	Use:   "scenes <script-id>",
	Short: "台本の未生成シーンをまとめて生成するのだ。",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		report, err := app.Manager.Generator().GenerateAllScenes(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return printReport(cmd, report)
	},
}

var generateCharacterCmd = &cobra.Command{
	Use:   "character <character-id>",
	Short: "キャラクター1件の参照画像を生成するのだ。",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := app.Manager.Generator().GenerateCharacter(cmd.Context(), args[0])
		if res != nil {
			printBatch(cmd, res)
		}
		return err
	},
}

var generateCharactersCmd = &cobra.Command{
	Use:   "characters <script-id>",
	Short: "台本のキャラクターの参照画像をまとめて生成するのだ。",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		report, err := app.Manager.Generator().GenerateAllCharacters(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return printReport(cmd, report)
	},
}

func init() {
	generateCmd.AddCommand(generateSceneCmd, generateScenesCmd, generateCharacterCmd, generateCharactersCmd)
}

func printBatch(cmd *cobra.Command, res *generator.BatchResult) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s: %d/%d images\n", res.TargetID, len(res.Images), res.Attempts)
	for _, ref := range res.Images {
		fmt.Fprintf(out, "  %s\n", ref)
	}
	for _, err := range res.Errors {
		fmt.Fprintf(out, "  failed: %v\n", err)
	}
}

func printReport(cmd *cobra.Command, report *generator.Report) error {
	for _, o := range report.Outcomes {
		if o.Err != nil {
			fmt.Fprintf(cmd.OutOrStdout(), "%s: failed: %v\n", o.TargetID, o.Err)
			continue
		}
		printBatch(cmd, o.Result)
	}
	slog.Info("一括生成が完了したのだ", "succeeded", report.Succeeded(), "failed", report.Failed(), "skipped", len(report.Skipped))
	return nil
}
