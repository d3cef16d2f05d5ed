package cmd

import (
	"fmt"

	"github.com/shouni/go-storyboard-kit/pkg/domain"

	"github.com/spf13/cobra"
)

// sceneCmd はシーンのプロンプトと生成画像を管理するのだ。
var sceneCmd = &cobra.Command{
	Use:   "scene",
	Short: "シーンのプロンプトと挿絵を管理するのだ。",
}

var scenePromptCmd = &cobra.Command{
	Use:   "prompt <scene-id> [prompt]",
	Short: "シーンのプロンプトを上書きするのだ（省略で自動組み立てに戻す）。",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var prompt string
		if len(args) == 2 {
			prompt = args[1]
		}
		scene, err := app.Manager.SetScenePrompt(args[0], prompt)
		if err != nil {
			return err
		}
		if scene.UserEditedPrompt == "" {
			fmt.Fprintf(cmd.OutOrStdout(), "%s: prompt override cleared\n", scene.ID)
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: prompt override set\n", scene.ID)
		return nil
	},
}

var sceneSelectCmd = &cobra.Command{
	Use:   "select <scene-id> <image-ref>",
	Short: "採用する挿絵を選ぶのだ。",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		scene, err := app.Manager.SelectSceneImage(args[0], domain.ImageRef(args[1]))
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: selected %s\n", scene.ID, scene.SelectedImage)
		return nil
	},
}

var sceneRemoveCmd = &cobra.Command{
	Use:   "remove <scene-id> <image-ref>",
	Short: "生成済みの挿絵を1枚取り除くのだ。",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		scene, err := app.Manager.RemoveSceneImage(cmd.Context(), args[0], domain.ImageRef(args[1]))
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %d images left\n", scene.ID, len(scene.GeneratedImages))
		return nil
	},
}

func init() {
	sceneCmd.AddCommand(scenePromptCmd, sceneSelectCmd, sceneRemoveCmd)
}
