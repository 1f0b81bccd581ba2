package completion

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"study-app/internal/logger"
)

const (
	defaultBaseURL   = "https://api.openai.com/v1"
	completionsPath  = "/chat/completions"
	maxResponseBytes = 4 << 20
)

// placeholderKeys are values shipped in sample vaults that must never be sent.
var placeholderKeys = map[string]bool{
	"":                 true,
	"changeme":         true,
	"your_api_key":     true,
	"your-api-key":     true,
	"<api_key>":        true,
	"sk-placeholder":   true,
	"replace_with_key": true,
}

type Config struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
	TopP        float64
	// Timeout of zero keeps the transport defaults.
	Timeout time.Duration
}

type Client struct {
	cfg        Config
	httpClient *http.Client
	log        *logger.Logger
}

func NewClient(cfg Config, log *logger.Logger) *Client {
	return NewWithHTTPClient(cfg, &http.Client{Timeout: cfg.Timeout}, log)
}

// NewWithHTTPClient lets tests stub the transport.
func NewWithHTTPClient(cfg Config, httpClient *http.Client, log *logger.Logger) *Client {
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	cfg.Model = strings.TrimSpace(cfg.Model)
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Client{
		cfg:        cfg,
		httpClient: httpClient,
		log:        log.With("component", "completion"),
	}
}

// Configured reports whether a usable credential and model are present.
func (c *Client) Configured() bool {
	return !placeholderKeys[strings.ToLower(c.cfg.APIKey)] && c.cfg.Model != ""
}

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatRequest struct {
	Messages       []Message       `json:"messages"`
	Model          string          `json:"model"`
	Temperature    float64         `json:"temperature"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	TopP           float64         `json:"top_p"`
	Stream         bool            `json:"stream"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatChoice struct {
	Message Message `json:"message"`
}

type successEnvelope struct {
	Choices []chatChoice `json:"choices"`
}

type errorEnvelope struct {
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    any    `json:"code"`
	} `json:"error"`
}

type questionPayload struct {
	Questions []struct {
		QuestionText  string `json:"questionText"`
		OptionA       string `json:"optionA"`
		OptionB       string `json:"optionB"`
		OptionC       string `json:"optionC"`
		OptionD       string `json:"optionD"`
		CorrectAnswer string `json:"correctAnswer"`
	} `json:"questions"`
}

var (
	errNoChoices   = errors.New("completion returned no choices")
	errNoQuestions = errors.New("completion returned no questions")
)

// GenerateQuestions asks the model for a question set covering content.
// It never returns an error: failures come back as a tagged Result.
func (c *Client) GenerateQuestions(ctx context.Context, moduleID int64, content string) Result {
	if strings.TrimSpace(content) == "" {
		return skipped("module has no content")
	}
	if !c.Configured() {
		c.log.Warn("question generation skipped", "module_id", moduleID, "reason", "not configured")
		return notConfigured()
	}

	body, err := c.post(ctx, chatRequest{
		Messages:       []Message{{Role: "user", Content: buildQuestionPrompt(content)}},
		Model:          c.cfg.Model,
		Temperature:    c.cfg.Temperature,
		MaxTokens:      c.cfg.MaxTokens,
		TopP:           c.cfg.TopP,
		Stream:         false,
		ResponseFormat: &responseFormat{Type: "json_object"},
	})
	if err != nil {
		c.log.Error("question generation request failed", "module_id", moduleID, "error", err)
		return transportError(err)
	}

	result := decodeQuestions(body, moduleID)
	if result.OK() {
		c.log.Info("questions generated", "module_id", moduleID, "count", len(result.Questions))
	} else {
		c.log.Error("question generation failed", "module_id", moduleID, "result", result.String())
	}
	return result
}

// Chat sends the conversation and returns the assistant reply.
func (c *Client) Chat(ctx context.Context, history []Message) (Message, error) {
	if !c.Configured() {
		return Message{}, ErrNotConfigured
	}

	messages := make([]Message, 0, len(history))
	for _, m := range history {
		role := strings.TrimSpace(m.Role)
		content := strings.TrimSpace(m.Content)
		if role == "" || content == "" {
			continue
		}
		messages = append(messages, Message{Role: role, Content: content})
	}
	if len(messages) == 0 {
		return Message{}, errors.New("no messages")
	}

	body, err := c.post(ctx, chatRequest{
		Messages:    messages,
		Model:       c.cfg.Model,
		Temperature: c.cfg.Temperature,
		MaxTokens:   c.cfg.MaxTokens,
		TopP:        c.cfg.TopP,
	})
	if err != nil {
		return Message{}, err
	}

	content, err := decodeEnvelope(body)
	if err != nil {
		return Message{}, err
	}
	return Message{Role: "assistant", Content: content}, nil
}

var ErrNotConfigured = errors.New("llm credentials are missing")

// APIError is the decoded error envelope of the completion endpoint.
type APIError struct {
	Message string
	Type    string
}

func (e *APIError) Error() string {
	if e.Type == "" {
		return "completion api: " + e.Message
	}
	return fmt.Sprintf("completion api (%s): %s", e.Type, e.Message)
}

// post sends the request and returns the raw body whatever the status code;
// both envelopes are decoded from the body.
func (c *Client) post(ctx context.Context, payload chatRequest) ([]byte, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(payload); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+completionsPath, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.log.Warn("completion endpoint returned non-2xx", "status", resp.StatusCode)
	}
	return body, nil
}

// decodeEnvelope returns the first choice's message content.
func decodeEnvelope(body []byte) (string, error) {
	var env successEnvelope
	if err := json.Unmarshal(body, &env); err != nil || env.Choices == nil {
		var errEnv errorEnvelope
		if jsonErr := json.Unmarshal(body, &errEnv); jsonErr == nil && errEnv.Error != nil {
			return "", &APIError{Message: errEnv.Error.Message, Type: errEnv.Error.Type}
		}
		if err == nil {
			err = errors.New("response has no choices field")
		}
		return "", fmt.Errorf("decode completion envelope: %w", err)
	}
	if len(env.Choices) == 0 {
		return "", errNoChoices
	}
	return env.Choices[0].Message.Content, nil
}

func decodeQuestions(body []byte, moduleID int64) Result {
	content, err := decodeEnvelope(body)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			return apiError(apiErr.Message)
		}
		return malformed(err)
	}

	var payload questionPayload
	if err := json.Unmarshal([]byte(stripCodeFence(content)), &payload); err != nil {
		return malformed(fmt.Errorf("decode question payload: %w", err))
	}
	if len(payload.Questions) == 0 {
		return malformed(errNoQuestions)
	}

	drafts := make([]QuestionDraft, 0, len(payload.Questions))
	for idx, item := range payload.Questions {
		letter := normalizeAnswerLetter(item.CorrectAnswer)
		if letter == "" {
			return malformed(fmt.Errorf("question %d: invalid correct answer %q", idx+1, item.CorrectAnswer))
		}
		if strings.TrimSpace(item.QuestionText) == "" {
			return malformed(fmt.Errorf("question %d: empty question text", idx+1))
		}
		drafts = append(drafts, QuestionDraft{
			ModuleID:      moduleID,
			QuestionText:  strings.TrimSpace(item.QuestionText),
			OptionA:       strings.TrimSpace(item.OptionA),
			OptionB:       strings.TrimSpace(item.OptionB),
			OptionC:       strings.TrimSpace(item.OptionC),
			OptionD:       strings.TrimSpace(item.OptionD),
			CorrectAnswer: letter,
		})
	}
	return success(drafts)
}
