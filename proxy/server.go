// Package proxy implements the custom-LLM bridge between the voice
// platform and a local Ollama model. Each completion request is
// augmented with the stored conversation history for its call and, when
// a knowledge base is configured, with retrieved document chunks.
package proxy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"sama/rag"
	"sama/store"
)

// DefaultSystemPrompt is used when the request carries no system
// message. The voice platform normally sends its own.
const DefaultSystemPrompt = "You are a compassionate and knowledgeable wellness assistant for " +
	"Sama Wellness. You speak warmly and provide helpful guidance."

// Requests without any call identity share one rolling conversation.
const defaultSessionID = "default_session"

// Server answers OpenAI-shaped chat completion requests.
type Server struct {
	llm   Completer
	conv  *store.Store
	kb    *rag.Store // nil when no knowledge base is configured
	log   zerolog.Logger
	model string
	topK  int
}

// NewServer wires the proxy together. kb may be nil; requests are then
// served without retrieved context.
func NewServer(llm Completer, conv *store.Store, kb *rag.Store, logger zerolog.Logger, model string) *Server {
	return &Server{llm: llm, conv: conv, kb: kb, log: logger, model: model, topK: rag.DefaultTopK}
}

// Router returns the gin handler serving the proxy endpoints.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.POST("/chat/completions", s.handleChat)
	r.POST("/", s.handleChat)
	r.GET("/health", s.handleHealth)
	r.GET("/", s.handleRoot)
	return r
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []ChatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
	Call     struct {
		ID string `json:"id"`
	} `json:"call"`
}

func (s *Server) handleChat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{
			"message": "invalid request body", "type": "invalid_request_error",
		}})
		return
	}

	callID := callID(c, req)
	userMsg := latestUserMessage(req.Messages)
	if userMsg != "" {
		if err := s.conv.Add(callID, "user", userMsg); err != nil {
			s.log.Error().Err(err).Str("call", callID).Msg("persist user turn")
		}
	}

	ragContext := s.knowledgeContext(c.Request.Context(), userMsg)
	messages, err := s.buildMessages(callID, ragContext, req.Messages)
	if err != nil {
		s.log.Error().Err(err).Str("call", callID).Msg("load history")
		c.JSON(http.StatusInternalServerError, gin.H{"error": gin.H{
			"message": "cannot load conversation history", "type": "server_error",
		}})
		return
	}

	s.log.Info().
		Str("call", callID).
		Int("messages", len(messages)).
		Bool("rag", ragContext != "").
		Msg("completion request")

	stream, err := s.llm.Complete(c.Request.Context(), messages)
	if err != nil {
		s.log.Error().Err(err).Msg("model unreachable")
		c.JSON(http.StatusBadGateway, errorBody("cannot reach the model server: "+err.Error()))
		return
	}
	defer stream.Close()

	if req.Stream {
		s.streamCompletion(c, callID, stream)
		return
	}
	s.completeOnce(c, callID, stream)
}

// streamCompletion relays tokens as OpenAI completion chunks over SSE.
// Whatever accumulated is persisted even when the upstream dies mid-way,
// so the next turn still has the partial reply in its history.
func (s *Server) streamCompletion(c *gin.Context, callID string, stream TokenStream) {
	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.WriteHeader(http.StatusOK)

	id := "chatcmpl-" + uuid.NewString()
	created := time.Now().Unix()

	var reply strings.Builder
	defer func() { s.persistAssistant(callID, reply.String()) }()

	for {
		token, err := stream.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			s.log.Error().Err(err).Str("call", callID).Msg("stream interrupted")
			return
		}
		if token == "" {
			continue
		}
		reply.WriteString(token)
		s.writeChunk(c.Writer, id, created, token, false)
		c.Writer.Flush()
	}

	s.writeChunk(c.Writer, id, created, "", true)
	fmt.Fprint(c.Writer, "data: [DONE]\n\n")
	c.Writer.Flush()
}

// completeOnce drains the stream and answers with a single completion
// body for clients that did not ask for SSE.
func (s *Server) completeOnce(c *gin.Context, callID string, stream TokenStream) {
	var reply strings.Builder
	for {
		token, err := stream.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			s.persistAssistant(callID, reply.String())
			c.JSON(http.StatusBadGateway, errorBody(err.Error()))
			return
		}
		reply.WriteString(token)
	}
	text := reply.String()
	s.persistAssistant(callID, text)

	c.JSON(http.StatusOK, gin.H{
		"id":      "chatcmpl-" + uuid.NewString(),
		"object":  "chat.completion",
		"created": time.Now().Unix(),
		"model":   s.model,
		"choices": []gin.H{{
			"index":         0,
			"message":       gin.H{"role": "assistant", "content": text},
			"finish_reason": "stop",
		}},
	})
}

type chunkDelta struct {
	Content string `json:"content,omitempty"`
}

type chunkChoice struct {
	Index        int        `json:"index"`
	Delta        chunkDelta `json:"delta"`
	FinishReason *string    `json:"finish_reason"`
}

type completionChunk struct {
	ID      string        `json:"id"`
	Object  string        `json:"object"`
	Created int64         `json:"created"`
	Model   string        `json:"model"`
	Choices []chunkChoice `json:"choices"`
}

func (s *Server) writeChunk(w io.Writer, id string, created int64, token string, last bool) {
	chunk := completionChunk{
		ID:      id,
		Object:  "chat.completion.chunk",
		Created: created,
		Model:   s.model,
		Choices: []chunkChoice{{Delta: chunkDelta{Content: token}}},
	}
	if last {
		reason := "stop"
		chunk.Choices[0].FinishReason = &reason
	}
	data, err := json.Marshal(chunk)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "data: %s\n\n", data)
}

func (s *Server) persistAssistant(callID, text string) {
	if text == "" {
		return
	}
	if err := s.conv.Add(callID, "assistant", text); err != nil {
		s.log.Error().Err(err).Str("call", callID).Msg("persist assistant turn")
	}
}

// knowledgeContext retrieves chunks relevant to the user message. A
// failing search is logged and skipped; answering without context beats
// not answering.
func (s *Server) knowledgeContext(ctx context.Context, userMsg string) string {
	if s.kb == nil || userMsg == "" {
		return ""
	}
	hits, err := s.kb.Search(ctx, userMsg, s.topK)
	if err != nil {
		s.log.Warn().Err(err).Msg("knowledge search failed, continuing without context")
		return ""
	}
	if len(hits) == 0 {
		return ""
	}
	texts := make([]string, len(hits))
	for i, h := range hits {
		texts[i] = h.Text
	}
	return "\n\n--- Relevant knowledge-base context ---\n" +
		strings.Join(texts, "\n\n") +
		"\n--- End of context ---\n"
}

// buildMessages assembles what the model sees: the system prompt with
// any retrieved context appended, then the full stored history for this
// call. The latest user message is already part of that history.
func (s *Server) buildMessages(callID, ragContext string, incoming []ChatMessage) ([]ChatMessage, error) {
	system := DefaultSystemPrompt
	for _, m := range incoming {
		if m.Role == "system" && m.Content != "" {
			system = m.Content
			break
		}
	}
	system += ragContext

	messages := []ChatMessage{{Role: "system", Content: system}}
	history, err := s.conv.History(callID)
	if err != nil {
		return nil, err
	}
	for _, m := range history {
		messages = append(messages, ChatMessage{Role: m.Role, Content: m.Content})
	}
	return messages, nil
}

func (s *Server) handleHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	ollamaStatus := "connected"
	if err := s.llm.Ping(ctx); err != nil {
		ollamaStatus = "unreachable"
	}

	kbStatus := "not configured"
	chunks := 0
	if s.kb != nil {
		kbStatus = "ok"
		chunks = s.kb.Len()
	}

	dbStatus := "ok"
	if err := s.conv.Ping(); err != nil {
		dbStatus = "error"
	}

	c.JSON(http.StatusOK, gin.H{
		"status":           "ok",
		"ollama":           ollamaStatus,
		"configured_model": s.model,
		"knowledge_base":   kbStatus,
		"knowledge_chunks": chunks,
		"conversation_db":  dbStatus,
	})
}

func (s *Server) handleRoot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service":  "sama proxy",
		"endpoint": "/chat/completions",
		"model":    s.model,
	})
}

// callID resolves a stable conversation key. The platform puts it in
// the body; some versions send a header instead.
func callID(c *gin.Context, req chatRequest) string {
	if req.Call.ID != "" {
		return req.Call.ID
	}
	if id := c.GetHeader("X-Vapi-Call-Id"); id != "" {
		return id
	}
	if id := c.GetHeader("X-Request-Id"); id != "" {
		return id
	}
	return defaultSessionID
}

func latestUserMessage(messages []ChatMessage) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == "user" {
			return messages[i].Content
		}
	}
	return ""
}

func errorBody(message string) gin.H {
	return gin.H{"error": gin.H{
		"message": message,
		"type":    "server_error",
		"code":    "ollama_error",
	}}
}
