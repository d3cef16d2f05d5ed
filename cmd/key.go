package cmd

import "github.com/spf13/cobra"

// keyCmd は Record Store に保存する API キーを管理するのだ。
var keyCmd = &cobra.Command{
	Use:   "key",
	Short: "Gemini API キーを管理するのだ。",
}

var keySetCmd = &cobra.Command{
	Use:   "set <api-key>",
	Short: "API キーを保存するのだ（環境変数より優先）。",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		previous, err := app.Records.APIKey()
		if err != nil {
			return err
		}
		if err := app.Manager.SetAPIKey(args[0]); err != nil {
			return err
		}
		// 古いキーのクライアントは不要になるのだ
		app.Factory.Invalidate(previous)
		cmd.Println("API キーを保存したのだ。")
		return nil
	},
}

var keyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "保存した API キーを削除するのだ。",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := app.Manager.SetAPIKey(""); err != nil {
			return err
		}
		cmd.Println("API キーを削除したのだ。")
		return nil
	},
}

func init() {
	keyCmd.AddCommand(keySetCmd, keyClearCmd)
}
