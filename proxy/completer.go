package proxy

import (
	"context"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// ChatMessage is one conversation turn in the OpenAI wire shape.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// TokenStream yields completion tokens until io.EOF.
type TokenStream interface {
	Recv() (string, error)
	Close()
}

// Completer produces streamed completions for a conversation.
type Completer interface {
	Complete(ctx context.Context, messages []ChatMessage) (TokenStream, error)
	Ping(ctx context.Context) error
}

// OllamaCompleter streams completions from Ollama's OpenAI-compatible
// endpoint.
type OllamaCompleter struct {
	client *openai.Client
	model  string
}

var _ Completer = (*OllamaCompleter)(nil)

// NewOllamaCompleter creates a completer against the Ollama server at
// baseURL, e.g. "http://localhost:11434". Ollama does not check the API
// key but the client wants one.
func NewOllamaCompleter(baseURL, model string) *OllamaCompleter {
	cfg := openai.DefaultConfig("ollama")
	cfg.BaseURL = strings.TrimSuffix(baseURL, "/") + "/v1"
	return &OllamaCompleter{client: openai.NewClientWithConfig(cfg), model: model}
}

func (o *OllamaCompleter) Complete(ctx context.Context, messages []ChatMessage) (TokenStream, error) {
	req := openai.ChatCompletionRequest{
		Model:    o.model,
		Messages: make([]openai.ChatCompletionMessage, len(messages)),
		Stream:   true,
	}
	for i, m := range messages {
		req.Messages[i] = openai.ChatCompletionMessage{Role: m.Role, Content: m.Content}
	}
	stream, err := o.client.CreateChatCompletionStream(ctx, req)
	if err != nil {
		return nil, err
	}
	return &chatStream{stream: stream}, nil
}

// Ping checks that the model server answers at all.
func (o *OllamaCompleter) Ping(ctx context.Context) error {
	_, err := o.client.ListModels(ctx)
	return err
}

type chatStream struct {
	stream *openai.ChatCompletionStream
}

func (s *chatStream) Recv() (string, error) {
	for {
		resp, err := s.stream.Recv()
		if err != nil {
			return "", err
		}
		if len(resp.Choices) == 0 {
			continue
		}
		return resp.Choices[0].Delta.Content, nil
	}
}

func (s *chatStream) Close() {
	s.stream.Close()
}
