package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"sitegen/interfaces"

	"github.com/tidwall/gjson"
)

const (
	defaultBaseURL = "https://generativelanguage.googleapis.com"
	defaultModel   = "gemini-1.5-flash-latest"

	// エラー本文はログ用なので長すぎる場合は切り詰める
	maxErrorBody = 4096
)

// APIError は generateContent が2xx以外を返したときのエラーです。
// Body はサーバー側のログにだけ出し、呼び出し元のユーザーには見せません。
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("gemini api error (status %d)", e.StatusCode)
}

type Client struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
	log        interfaces.Logger
}

// Option はクライアントの設定を変更します。
type Option func(*Client)

// WithBaseURL はAPIのベースURLを上書きします。テストでは httptest のURLを渡します。
func WithBaseURL(url string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(url, "/") }
}

func WithModel(model string) Option {
	return func(c *Client) { c.model = model }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

func NewClient(apiKey string, log interfaces.Logger, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("gemini apiキーが提供されていません")
	}
	c := &Client{
		apiKey:     apiKey,
		model:      defaultModel,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{},
		log:        log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) Name() string { return "gemini-rest" }

// GenerateText は指示文を1件のユーザーコンテンツとして送り、最初の候補のテキストをそのまま返します。
// タイムアウトは呼び出し側の ctx で制御します。
func (c *Client) GenerateText(ctx context.Context, instruction string) (string, error) {
	apiURL := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.baseURL, c.model)

	reqBody := geminiRequest{
		Contents: []geminiContent{
			{Parts: []geminiPart{{Text: instruction}}},
		},
	}

	reqJSON, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("リクエストJSONの作成に失敗: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, bytes.NewReader(reqJSON))
	if err != nil {
		return "", fmt.Errorf("httpリクエストの作成に失敗: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("apiへのリクエストに失敗: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("レスポンスボディの読み込みに失敗: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		errBody := string(body)
		if len(errBody) > maxErrorBody {
			errBody = errBody[:maxErrorBody]
		}
		return "", &APIError{StatusCode: resp.StatusCode, Body: errBody}
	}

	if !gjson.ValidBytes(body) {
		return "", errors.New("レスポンスJSONのパースに失敗")
	}

	candidates := gjson.GetBytes(body, "candidates")
	c.log.Debug("gemini response received",
		"model", c.model,
		"status", resp.StatusCode,
		"candidates", len(candidates.Array()),
	)

	text := gjson.GetBytes(body, "candidates.0.content.parts.0.text")
	if !text.Exists() || text.String() == "" {
		return "", interfaces.ErrNoCandidates
	}
	return text.String(), nil
}
