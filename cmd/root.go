package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/shouni/go-storyboard-kit/internal/builder"
	"github.com/shouni/go-storyboard-kit/internal/config"

	"github.com/spf13/cobra"
)

const appName = "storyboard"

// opts はグローバルフラグの値を保持するのだ。
var opts struct {
	ConfigFile string
	DataDir    string
	Style      string
}

// app は PersistentPreRunE で構築され、各サブコマンドから使われるのだ。
var app *builder.AppContext

var rootCmd = &cobra.Command{
	Use:   appName,
	Short: "台本からキャラクターとシーンの挿絵を作るストーリーボードツールなのだ。",
	Long: `台本を登録して Gemini で解析し、キャラクターの参照画像とシーンの挿絵を生成するのだ。
データはローカルのデータディレクトリに保存されるのだよ。`,
	SilenceUsage:      true,
	PersistentPreRunE: preRunAppE,
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if app == nil {
			return nil
		}
		return app.Close()
	},
}

// addAppFlags は、アプリケーション全般に適用されるグローバルフラグを定義するのだ。
func addAppFlags(rootCmd *cobra.Command) {
	rootCmd.PersistentFlags().StringVarP(&opts.ConfigFile, "config", "c", "", "YAML 設定ファイルのパスなのだ。")
	rootCmd.PersistentFlags().StringVarP(&opts.DataDir, "data-dir", "d", "", "データディレクトリ（設定より優先）なのだ。")
	rootCmd.PersistentFlags().StringVar(&opts.Style, "style", "", "画風（anime, realistic, watercolor, comic, cinematic, sketch）なのだ。")
}

// preRunAppE は、設定を読み込んでログとストアを準備するのだ。
func preRunAppE(cmd *cobra.Command, args []string) error {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: config.LogLevel()})))

	cfg, err := config.LoadConfig(opts.ConfigFile)
	if err != nil {
		return err
	}
	if opts.DataDir != "" {
		cfg.DataDir = opts.DataDir
	}
	if opts.Style != "" {
		cfg.Style = opts.Style
	}

	app, err = builder.NewAppContext(*cfg)
	if err != nil {
		return fmt.Errorf("アプリケーションの初期化に失敗したのだ: %w", err)
	}
	return nil
}

// printJSON は結果を整形して出力するのだ。
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Execute は、アプリケーションのメインエントリポイントなのだ。
// main.go から呼び出されて、cobra のコマンドライン解析を開始するのだよ。
func Execute() {
	addAppFlags(rootCmd)
	rootCmd.AddCommand(
		scriptCmd,
		analyzeCmd,
		generateCmd,
		characterCmd,
		sceneCmd,
		imageCmd,
		exportCmd,
		keyCmd,
		serveCmd,
	)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
