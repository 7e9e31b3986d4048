package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"ssq-predictor/internal/config"
	"ssq-predictor/internal/database"
	"ssq-predictor/internal/logger"
	"ssq-predictor/internal/metrics"
)

// Client 开奖数据源客户端
type Client struct {
	httpClient *http.Client
	baseURL    string
	retryCount int
	retryDelay time.Duration
}

// NewClient 创建新的数据源客户端
func NewClient(cfg *config.Feed) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL:    cfg.URL,
		retryCount: cfg.RetryCount,
		retryDelay: cfg.RetryDelay,
	}
}

// FetchDraws 获取全部开奖数据，失败时按线性退避重试
func (c *Client) FetchDraws(ctx context.Context) ([]database.DrawRecord, error) {
	var lastErr error
	for attempt := 0; attempt <= c.retryCount; attempt++ {
		if attempt > 0 {
			logger.Warnf("Feed request retry attempt %d/%d", attempt, c.retryCount)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.retryDelay * time.Duration(attempt)):
			}
		}

		records, err := c.makeRequest(ctx)
		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				break
			}
			continue
		}

		return records, nil
	}

	metrics.FeedErrors.Inc()
	return nil, fmt.Errorf("failed to fetch draw feed after %d attempts: %w", c.retryCount+1, lastErr)
}

// makeRequest 执行HTTP请求并解析文本数据
func (c *Client) makeRequest(ctx context.Context) ([]database.DrawRecord, error) {
	logger.Debugf("Making feed request to: %s", c.baseURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP request failed with status: %d", resp.StatusCode)
	}

	records, skipped, err := database.ParseFeed(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("feed contained no valid records (%d skipped)", skipped)
	}

	if skipped > 0 {
		logger.Warnf("Feed parsed with %d invalid lines skipped", skipped)
	}
	logger.Debugf("Feed request successful, got %d records", len(records))
	return records, nil
}

// HealthCheck 检查数据源健康状态
func (c *Client) HealthCheck(ctx context.Context) error {
	if _, err := c.makeRequest(ctx); err != nil {
		return fmt.Errorf("feed health check failed: %w", err)
	}

	logger.Debug("Feed health check passed")
	return nil
}

// Stats 获取客户端配置信息
func (c *Client) Stats() map[string]interface{} {
	return map[string]interface{}{
		"base_url":    c.baseURL,
		"timeout":     c.httpClient.Timeout,
		"retry_count": c.retryCount,
		"retry_delay": c.retryDelay,
	}
}
