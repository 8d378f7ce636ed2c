package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"sitegen/config"
	"sitegen/generate"
	"sitegen/logger"

	"github.com/spf13/cobra"
)

const defaultOutFile = "generated-website.html"

var outFile string

var generateCmd = &cobra.Command{
	Use:   `generate "<prompt>"`,
	Short: "Generate a website once and write it to a file",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if !cfg.HasCredential() {
			return errors.New(generate.MsgMissingCredential)
		}
		log := logger.New(os.Stderr, cfg.Log.Level)

		gen, closer, err := newGenerator(cmd.Context(), cfg, log)
		if err != nil {
			return err
		}
		if closer != nil {
			defer closer.Close()
		}

		svc := generate.NewService(gen, log, generate.WithTimeout(cfg.Gemini.Timeout))
		res, err := svc.Generate(cmd.Context(), generate.Request{Prompt: strings.Join(args, " ")})
		if err != nil {
			return err
		}
		if err := os.WriteFile(outFile, []byte(res.GeneratedCode), 0o644); err != nil {
			return fmt.Errorf("ファイルの書き込みに失敗: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\nSaved to %s\n", res.Message, outFile)
		return nil
	},
}

func init() {
	generateCmd.Flags().StringVarP(&outFile, "out", "o", defaultOutFile, "file to write the generated HTML to")
}
