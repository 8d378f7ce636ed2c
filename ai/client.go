package ai

import (
	"context"
	"errors"
	"fmt"

	"sitegen/interfaces"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// Client は公式SDK経由でGeminiとやり取りします。gemini.backend が "sdk" の場合に使われます。
type Client struct {
	genaiClient *genai.Client
	model       string
}

// NewClient は新しいAIクライアントを作成します。
func NewClient(ctx context.Context, apiKey, model string, opts ...option.ClientOption) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("Google AI APIキーが設定されていません")
	}

	opts = append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	genaiClient, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("GenAIクライアントの作成に失敗しました: %w", err)
	}

	return &Client{genaiClient: genaiClient, model: model}, nil
}

// Close はクライアントをクローズします。
func (c *Client) Close() error {
	return c.genaiClient.Close()
}

func (c *Client) Name() string { return "gemini-sdk" }

// GenerateText は、与えられた指示文に基づいてテキストを生成します。
func (c *Client) GenerateText(ctx context.Context, instruction string) (string, error) {
	model := c.genaiClient.GenerativeModel(c.model)
	resp, err := model.GenerateContent(ctx, genai.Text(instruction))
	if err != nil {
		return "", fmt.Errorf("テキスト生成に失敗しました: %w", err)
	}
	return firstText(resp)
}

// firstText は最初の候補の最初のパートをそのまま返します。空の場合は ErrNoCandidates です。
func firstText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", interfaces.ErrNoCandidates
	}
	cand := resp.Candidates[0]
	if cand == nil || cand.Content == nil || len(cand.Content.Parts) == 0 {
		return "", interfaces.ErrNoCandidates
	}
	text, ok := cand.Content.Parts[0].(genai.Text)
	if !ok || text == "" {
		return "", interfaces.ErrNoCandidates
	}
	return string(text), nil
}
