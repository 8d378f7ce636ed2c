package main

import (
	"context"
	"fmt"
	"io"

	"sitegen/ai"
	"sitegen/config"
	"sitegen/gemini"
	"sitegen/interfaces"
)

// newGenerator は設定された gemini.backend に応じて上流クライアントを作ります。
// 戻り値の io.Closer は SDK クライアントの場合だけ非nil です。
func newGenerator(ctx context.Context, cfg *config.Config, log interfaces.Logger) (interfaces.TextGenerator, io.Closer, error) {
	switch cfg.Gemini.Backend {
	case "sdk":
		c, err := ai.NewClient(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model)
		if err != nil {
			return nil, nil, fmt.Errorf("Gemini SDKクライアントの作成に失敗: %w", err)
		}
		return c, c, nil
	case "rest", "":
		c, err := gemini.NewClient(cfg.Gemini.APIKey, log,
			gemini.WithBaseURL(cfg.Gemini.BaseURL),
			gemini.WithModel(cfg.Gemini.Model),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("Geminiクライアントの作成に失敗: %w", err)
		}
		return c, nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown gemini backend %q", cfg.Gemini.Backend)
	}
}
