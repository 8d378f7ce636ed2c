// sitegen はプロンプトからWebサイトのHTMLを生成するサーバーとCLIです。
package main

import (
	"sitegen/logger"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "sitegen",
	Short: "Generate complete websites from a text prompt with Gemini.",
	Long: `sitegen turns a natural-language description into a single-file HTML website.
Run it as a web server with a sign-in gated generator page and a JSON API,
or call it once from the command line to write the generated page to disk.`,
	RunE:          runServe, // 引数なしはサーバーとして起動
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file (default ./config.yaml)")
	rootCmd.AddCommand(serveCmd, generateCmd, versionCmd)
	// 既存の .env.local も読み込む。無ければ無視
	_ = godotenv.Load(".env.local", ".env")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		logger.Fatal("sitegen exited with error", "error", err)
	}
}
