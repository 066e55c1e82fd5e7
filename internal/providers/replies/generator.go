package replies

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// Message is one bubble of the screenshotted conversation. Sender is "me"
// for the user's own messages and anything else for the counterpart.
type Message struct {
	Sender string `json:"sender"`
	Text   string `json:"text"`
}

// Suggestion is one generated reply variant.
type Suggestion struct {
	Text string `json:"text"`
}

// Result carries the generated variants plus provider accounting.
type Result struct {
	Suggestions []Suggestion
	TokensUsed  int
	Model       string
}

const (
	suggestionCount = 3
	contextWindow   = 5
	maxTokens       = 500
	temperature     = 0.8

	fallbackSuggestion = "Интересно! Расскажи подробнее 😊"
)

// chatCompleter is the slice of the OpenAI client the generator needs;
// tests substitute a fake.
type chatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Generator produces reply suggestions for a conversation snippet.
type Generator struct {
	client chatCompleter
	model  string
}

// NewGenerator builds a generator on the OpenAI chat-completion API.
func NewGenerator(apiKey, model string) (*Generator, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("openai api key is required")
	}
	if model == "" {
		model = openai.GPT3Dot5Turbo
	}
	return &Generator{client: openai.NewClient(apiKey), model: model}, nil
}

// NewGeneratorWithClient is used by tests to inject a fake completer.
func NewGeneratorWithClient(client chatCompleter, model string) *Generator {
	return &Generator{client: client, model: model}
}

// Generate asks the model for exactly three reply variants in the given
// tone. The model is instructed to answer with JSON; a non-JSON answer is
// degraded to truncated plain-text variants rather than failing the
// request, and short answers are padded to three.
func (g *Generator) Generate(ctx context.Context, msgs []Message, tone Tone) (*Result, error) {
	if len(msgs) == 0 {
		return nil, errors.New("at least one message is required")
	}
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: tone.SystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: buildPrompt(msgs, tone)},
		},
		MaxTokens:   maxTokens,
		Temperature: temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return nil, errors.New("empty completion from openai")
	}
	return &Result{
		Suggestions: parseSuggestions(resp.Choices[0].Message.Content),
		TokensUsed:  resp.Usage.TotalTokens,
		Model:       g.model,
	}, nil
}

func buildPrompt(msgs []Message, tone Tone) string {
	window := msgs
	if len(window) > contextWindow {
		window = window[len(window)-contextWindow:]
	}
	var transcript strings.Builder
	for _, m := range window {
		speaker := "Собеседник"
		if m.Sender == "me" {
			speaker = "Я"
		}
		fmt.Fprintf(&transcript, "%s: %s\n", speaker, m.Text)
	}
	last := msgs[len(msgs)-1]

	return fmt.Sprintf(`%s

Контекст переписки:
%s
Последнее сообщение собеседника: %q

Создай 3 разных варианта ответа в выбранном тоне. Каждый ответ должен быть:
- Естественным продолжением разговора
- Соответствующим выбранному тону
- Не длиннее 2-3 предложений
- Уникальным по подходу

Верни ответ в формате JSON:
{"responses": [{"text": "..."}, {"text": "..."}, {"text": "..."}]}`,
		tone.SystemPrompt, transcript.String(), last.Text)
}

// parseSuggestions extracts the responses array, falling back to the raw
// text when the model ignored the JSON instruction, and always returns
// exactly three entries.
func parseSuggestions(content string) []Suggestion {
	var parsed struct {
		Responses []Suggestion `json:"responses"`
	}
	var suggestions []Suggestion
	if err := json.Unmarshal([]byte(extractJSON(content)), &parsed); err == nil {
		suggestions = parsed.Responses
	} else {
		text := content
		if len([]rune(text)) > 200 {
			text = string([]rune(text)[:200]) + "..."
		}
		suggestions = []Suggestion{{Text: text}}
	}
	for len(suggestions) < suggestionCount {
		suggestions = append(suggestions, Suggestion{Text: fallbackSuggestion})
	}
	return suggestions[:suggestionCount]
}

// extractJSON trims markdown fences some models wrap around JSON answers.
func extractJSON(content string) string {
	content = strings.TrimSpace(content)
	if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```json")
		content = strings.TrimPrefix(content, "```")
		content = strings.TrimSuffix(content, "```")
	}
	return strings.TrimSpace(content)
}
