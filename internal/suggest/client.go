// Package suggest 外部建议服务客户端（OpenAI 兼容的 chat completion 接口，如 DeepSeek）
package suggest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"ssq-predictor/internal/config"
	"ssq-predictor/internal/database"
	"ssq-predictor/internal/logger"
	"ssq-predictor/internal/predictor"

	"github.com/sashabaranov/go-openai"
)

// ErrMalformedResponse 建议服务返回内容无法解析
var ErrMalformedResponse = errors.New("malformed suggestion response")

const (
	defaultConfidence = 80
	defaultStrategy   = "综合分析"
	systemPrompt      = "你是双色球数据分析专家，只输出 JSON。"
)

// Client 建议服务客户端，实现 predictor.Suggester
type Client struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
}

// NewClient 创建建议服务客户端
func NewClient(cfg *config.Suggest) *Client {
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	return &Client{
		client:      openai.NewClientWithConfig(oc),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
	}
}

// Suggest 请求建议服务生成号码组
func (c *Client) Suggest(ctx context.Context, sc predictor.SuggestContext) ([]database.PredictionTuple, error) {
	req := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: BuildPrompt(sc)},
		},
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	}

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("suggestion request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: no choices", ErrMalformedResponse)
	}
	logger.Debugf("Suggestion response received in %v (finish reason: %s)",
		time.Since(start), resp.Choices[0].FinishReason)

	return ParseResponse(resp.Choices[0].Message.Content)
}

// prediction 建议服务返回的单组号码
type prediction struct {
	Red        []int   `json:"red"`
	Blue       int     `json:"blue"`
	Confidence float64 `json:"confidence"`
	Strategy   string  `json:"strategy"`
}

type response struct {
	Predictions []prediction `json:"predictions"`
}

// ParseResponse 解析建议服务返回的 JSON，允许外层包裹 markdown 代码块
func ParseResponse(content string) ([]database.PredictionTuple, error) {
	body := stripFence(content)
	if i, j := strings.Index(body, "{"), strings.LastIndex(body, "}"); i >= 0 && j > i {
		body = body[i : j+1]
	}

	var resp response
	if err := json.Unmarshal([]byte(body), &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if len(resp.Predictions) == 0 {
		return nil, fmt.Errorf("%w: empty predictions", ErrMalformedResponse)
	}

	tuples := make([]database.PredictionTuple, 0, len(resp.Predictions))
	for _, p := range resp.Predictions {
		red := append([]int(nil), p.Red...)
		sort.Ints(red)

		t := database.PredictionTuple{
			Primary:    red,
			Secondary:  p.Blue,
			Confidence: int(math.Round(p.Confidence)),
			Strategy:   p.Strategy,
		}
		if t.Confidence == 0 {
			t.Confidence = defaultConfidence
		}
		if t.Strategy == "" {
			t.Strategy = defaultStrategy
		}
		tuples = append(tuples, t)
	}
	return tuples, nil
}

// stripFence 去掉 ```json ... ``` 包裹
func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	if i := strings.Index(s, "\n"); i >= 0 {
		s = s[i+1:]
	} else {
		s = strings.TrimPrefix(s, "```")
	}
	s = strings.TrimSpace(s)
	return strings.TrimSpace(strings.TrimSuffix(s, "```"))
}
