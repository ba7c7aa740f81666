package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/isoura4/isrobot-backend/internal/models"
)

const prompt = `You are a content moderation assistant for a chat community.
Rate the following message for rule-breaking content.

Respond with EXACTLY three lines in this format:
SCORE: <0-100>
CATEGORY: <toxicity|spam|nsfw|harassment|misinformation|none>
REASON: <one short sentence>

Message:
%s`

// Result is one scored message.
type Result struct {
	Score    int
	Category string
	Reason   string
}

// Client talks to a local Ollama instance to score message content. Every
// request carries a hard timeout so a stuck model cannot back up the intake
// worker.
type Client struct {
	httpClient *http.Client
	logger     *zap.Logger
	timeout    time.Duration
}

// NewClient builds an analysis client. The timeout applies per request.
func NewClient(logger *zap.Logger, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
		timeout:    timeout,
	}
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type generateResponse struct {
	Response string `json:"response"`
}

// Analyze scores one message against the given model on the given host.
// Host and model come from the guild's configuration, so different guilds
// can point at different instances.
func (c *Client) Analyze(ctx context.Context, host, model, content string) (*Result, error) {
	body, err := json.Marshal(generateRequest{
		Model:  model,
		Prompt: fmt.Sprintf(prompt, content),
		Stream: false,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode analysis request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	url := strings.TrimRight(host, "/") + "/api/generate"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build analysis request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("analysis request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("analysis backend returned status %d", resp.StatusCode)
	}

	var gen generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&gen); err != nil {
		return nil, fmt.Errorf("failed to decode analysis response: %w", err)
	}

	result := parseResult(gen.Response)
	c.logger.Debug("message analyzed",
		zap.Int("score", result.Score),
		zap.String("category", result.Category),
	)
	return result, nil
}

// parseResult extracts SCORE/CATEGORY/REASON lines from the model output.
// Models ramble, so unparseable output degrades to a zero score rather than
// an error.
func parseResult(raw string) *Result {
	result := &Result{Category: models.CategoryNone}
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		upper := strings.ToUpper(line)
		switch {
		case strings.HasPrefix(upper, "SCORE:"):
			result.Score = parseScore(line[len("SCORE:"):])
		case strings.HasPrefix(upper, "CATEGORY:"):
			cat := strings.ToLower(strings.TrimSpace(line[len("CATEGORY:"):]))
			if models.ValidCategory(cat) {
				result.Category = cat
			}
		case strings.HasPrefix(upper, "REASON:"):
			result.Reason = strings.TrimSpace(line[len("REASON:"):])
		}
	}
	return result
}

// parseScore reads the leading integer and clamps it to 0-100.
func parseScore(s string) int {
	s = strings.TrimSpace(s)
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0
	}
	if n > 100 {
		return 100
	}
	return n
}
