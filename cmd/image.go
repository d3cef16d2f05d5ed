package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/shouni/go-storyboard-kit/pkg/domain"
	"github.com/shouni/go-storyboard-kit/pkg/store/blob"

	"github.com/spf13/cobra"
)

// imageCmd は、保存済みの画像を取り出すためのサブコマンドなのだ。
var imageCmd = &cobra.Command{
	Use:   "image",
	Short: "保存済みの画像を扱うのだ。",
}

var imageExportOutput string

// imageExportCmd は ImageRef を解決してファイルに書き出すのだ。
// kind は scene か character で、参照画像のインライン data URL もそのまま渡せるのだよ。
var imageExportCmd = &cobra.Command{
	Use:   "export <scene|character> <image-ref>",
	Short: "画像をファイルに書き出すのだ。",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, err := parseKind(args[0])
		if err != nil {
			return err
		}
		img, err := app.Manager.ResolveImage(cmd.Context(), kind, domain.ImageRef(args[1]))
		if err != nil {
			return err
		}

		out := imageExportOutput
		if out == "" {
			out = args[1] + extensionFor(img.MimeType)
		}
		if err := os.WriteFile(out, img.Data, 0o644); err != nil {
			return fmt.Errorf("画像の書き出しに失敗したのだ: %w", err)
		}
		slog.Info("画像を書き出したのだ", "path", out, "mime", img.MimeType, "bytes", len(img.Data))
		return nil
	},
}

func init() {
	imageExportCmd.Flags().StringVarP(&imageExportOutput, "output", "o", "", "出力ファイルのパスなのだ。")
	imageCmd.AddCommand(imageExportCmd)
}

func parseKind(s string) (blob.Kind, error) {
	switch s {
	case "scene", "scenes":
		return blob.SceneImages, nil
	case "character", "characters":
		return blob.CharacterImages, nil
	default:
		return "", fmt.Errorf("画像の種類は scene か character を指定してほしいのだ: %q", s)
	}
}

func extensionFor(mimeType string) string {
	switch mimeType {
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	default:
		return ".png"
	}
}
