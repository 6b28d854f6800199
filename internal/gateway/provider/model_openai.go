package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

import "limp/internal/logger"

// 中文说明：
// OpenAIChatClient：兼容 OpenAI / DeepSeek / Qwen 的聊天补全接口（/v1/chat/completions）。

type OpenAIChatClient struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
	// 简易重试（用于 429/5xx）：若为 0 则默认重试 2 次
	MaxRetries   int
	ExtraHeaders map[string]string
}

// chatCompletionsURL 规范化 BaseURL，避免配置里带了完整路径导致重复。
func (c *OpenAIChatClient) chatCompletionsURL() string {
	url := c.BaseURL
	if url == "" {
		url = "https://api.openai.com/v1"
	}
	url = strings.TrimRight(url, "/")
	if strings.HasSuffix(url, "/chat/completions") {
		url = strings.TrimSuffix(url, "/chat/completions")
	}
	return url + "/chat/completions"
}

func (c *OpenAIChatClient) CallPayload(ctx context.Context, payload ChatPayload) (string, error) {
	if c.Timeout == 0 {
		c.Timeout = 60 * time.Second
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	maxRetries := c.MaxRetries
	if maxRetries == 0 {
		maxRetries = 2
	}
	url := c.chatCompletionsURL()

	// 构造消息；带图片时 user 内容切换为多段数组格式
	messages := []map[string]any{}
	if payload.System != "" {
		messages = append(messages, map[string]any{"role": "system", "content": payload.System})
	}
	if len(payload.Images) > 0 {
		parts := []map[string]any{{"type": "text", "text": payload.User}}
		for _, img := range payload.Images {
			parts = append(parts, map[string]any{
				"type":      "image_url",
				"image_url": map[string]any{"url": img.DataURI},
			})
		}
		messages = append(messages, map[string]any{"role": "user", "content": parts})
	} else {
		messages = append(messages, map[string]any{"role": "user", "content": payload.User})
	}

	body := map[string]any{"model": c.Model, "messages": messages, "temperature": 0.0}
	if payload.ExpectJSON {
		body["response_format"] = map[string]string{"type": "json_object"}
	}
	if payload.MaxTokens > 0 {
		body["max_tokens"] = payload.MaxTokens
	}
	b, _ := json.Marshal(body)
	logger.LogLLMPayload(c.Model, string(b))

	httpc := &http.Client{Timeout: c.Timeout}
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		// 打印完整请求（仅首个尝试，debug 级别；授权头做掩码）
		if attempt == 0 {
			hlog := map[string]string{"Content-Type": "application/json"}
			if c.APIKey != "" {
				// 掩码 Bearer 密钥，仅展示后 4 位
				tail := c.APIKey
				if len(c.APIKey) > 4 {
					tail = c.APIKey[len(c.APIKey)-4:]
				}
				hlog["Authorization"] = fmt.Sprintf("Bearer ****%s", tail)
			}
			for k, v := range c.ExtraHeaders {
				lk := strings.ToLower(k)
				mv := v
				if strings.Contains(lk, "key") || strings.Contains(lk, "token") || strings.Contains(lk, "auth") {
					if len(v) > 4 {
						mv = "****" + v[len(v)-4:]
					} else {
						mv = "****"
					}
				}
				hlog[k] = mv
			}
			logger.Debugf("[AI] 请求: POST %s, headers=%v, bytes=%d", url, hlog, len(b))
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
		if err != nil {
			return "", err
		}
		req.Header.Set("Content-Type", "application/json")
		if c.APIKey != "" {
			req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.APIKey))
		}
		for k, v := range c.ExtraHeaders {
			req.Header.Set(k, v)
		}

		resp, err := httpc.Do(req)
		if err != nil {
			lastErr = err
			break
		}
		if resp.StatusCode/100 == 2 {
			var r struct {
				Choices []struct {
					Message struct {
						Content string `json:"content"`
					} `json:"message"`
				} `json:"choices"`
			}
			derr := json.NewDecoder(resp.Body).Decode(&r)
			resp.Body.Close()
			if derr != nil {
				lastErr = derr
				break
			}
			if len(r.Choices) == 0 {
				lastErr = fmt.Errorf("empty choices")
				break
			}
			return r.Choices[0].Message.Content, nil
		}
		// 非 2xx：尝试解析错误消息
		var eresp struct {
			Error struct {
				Message string      `json:"message"`
				Type    string      `json:"type"`
				Param   string      `json:"param"`
				Code    interface{} `json:"code"`
			} `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&eresp)
		resp.Body.Close()
		msg := strings.TrimSpace(eresp.Error.Message)
		if msg == "" {
			msg = resp.Status
		}
		// 对 429/5xx 进行有限重试（带 Retry-After 支持）
		if (resp.StatusCode == 429 || resp.StatusCode == 500 || resp.StatusCode == 502 || resp.StatusCode == 503 || resp.StatusCode == 504) && attempt < maxRetries {
			wait := time.Duration(0)
			if ra := resp.Header.Get("Retry-After"); ra != "" {
				if secs, perr := strconv.Atoi(ra); perr == nil {
					wait = time.Duration(secs) * time.Second
				}
			}
			if wait == 0 {
				// 基本指数退避：0.8s, 1.6s, 3.2s ...
				base := 800 * time.Millisecond
				wait = base << attempt
				if wait > 8*time.Second {
					wait = 8 * time.Second
				}
			}
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return "", ctx.Err()
			}
			lastErr = fmt.Errorf("status=%d: %s", resp.StatusCode, msg)
			continue
		}
		lastErr = fmt.Errorf("status=%d: %s", resp.StatusCode, msg)
		break
	}
	return "", lastErr
}

// OpenAIModelProvider 实现 ModelProvider。
type OpenAIModelProvider struct {
	id             string
	enabled        bool
	supportsVision bool
	expectJSON     bool
	client         interface {
		CallPayload(ctx context.Context, payload ChatPayload) (string, error)
	}
}

func NewOpenAIModelProvider(id string, enabled, supportsVision, expectJSON bool, client interface {
	CallPayload(context.Context, ChatPayload) (string, error)
}) *OpenAIModelProvider {
	return &OpenAIModelProvider{
		id:             id,
		enabled:        enabled,
		supportsVision: supportsVision,
		expectJSON:     expectJSON,
		client:         client,
	}
}

func (p *OpenAIModelProvider) ID() string           { return p.id }
func (p *OpenAIModelProvider) Enabled() bool        { return p.enabled }
func (p *OpenAIModelProvider) SupportsVision() bool { return p.supportsVision }
func (p *OpenAIModelProvider) ExpectsJSON() bool    { return p.expectJSON }

func (p *OpenAIModelProvider) Call(ctx context.Context, payload ChatPayload) (string, error) {
	if payload.ExpectJSON == false && p.expectJSON {
		payload.ExpectJSON = true
	}
	return p.client.CallPayload(ctx, payload)
}
