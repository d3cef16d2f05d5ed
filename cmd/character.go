package cmd

import (
	"fmt"
	"net/http"
	"os"

	"github.com/shouni/go-storyboard-kit/pkg/adapters"
	"github.com/shouni/go-storyboard-kit/pkg/domain"

	"github.com/spf13/cobra"
)

// characterCmd はキャラクターの参照画像を手動で管理するのだ。
var characterCmd = &cobra.Command{
	Use:   "character",
	Short: "キャラクターの参照画像を管理するのだ。",
}

var characterUploadCmd = &cobra.Command{
	Use:   "upload <character-id> <file>...",
	Short: "参照画像をアップロードするのだ（上限8枚）。",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		images := make([]adapters.Image, 0, len(args)-1)
		for _, path := range args[1:] {
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("画像ファイルの読み込みに失敗したのだ: %w", err)
			}
			images = append(images, adapters.Image{Data: data, MimeType: http.DetectContentType(data)})
		}

		res, err := app.Manager.UploadCharacterImages(args[0], images)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: accepted=%d rejected=%d total=%d\n",
			res.Character.ID, res.Accepted, res.Rejected, len(res.Character.ReferenceImages))
		return nil
	},
}

var characterSelectCmd = &cobra.Command{
	Use:   "select <character-id> <image-ref>",
	Short: "表示に使う参照画像を選ぶのだ。",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		char, err := app.Manager.SelectCharacterImage(args[0], domain.ImageRef(args[1]))
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: selected %s\n", char.ID, char.SelectedImage)
		return nil
	},
}

var characterRemoveCmd = &cobra.Command{
	Use:   "remove <character-id> <image-ref>",
	Short: "参照画像を1枚取り除くのだ。",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		char, err := app.Manager.RemoveCharacterImage(cmd.Context(), args[0], domain.ImageRef(args[1]))
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %d reference images left\n", char.ID, len(char.ReferenceImages))
		return nil
	},
}

func init() {
	characterCmd.AddCommand(characterUploadCmd, characterSelectCmd, characterRemoveCmd)
}
