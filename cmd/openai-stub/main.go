// Command openai-stub serves a deterministic OpenAI-compatible API for local
// runs of vnsdesk without a model server.
package main

import (
	"encoding/json"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"

	"github.com/hyperifyio/vnsdesk/internal/image"
	"github.com/hyperifyio/vnsdesk/internal/restore"
)

// fixed restorations applied to both body text and captions
var restorations = strings.NewReplacer(
	"Ha Noi", "Hà Nội",
	"Viet Nam", "Việt Nam",
	"Ho Chi Minh City", "HCM City",
	"Thu tuong", "Thủ tướng",
	"Da Nang", "Đà Nẵng",
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	model := strings.TrimSpace(os.Getenv("MODEL_ID"))
	if model == "" {
		model = restore.DefaultPrimaryModel
	}
	addr := strings.TrimSpace(os.Getenv("ADDR"))
	if addr == "" {
		addr = ":8081"
	}

	log.Info().Str("addr", addr).Str("model", model).Msg("openai-stub listening")
	if err := http.ListenAndServe(addr, newMux(model)); err != nil {
		log.Fatal().Err(err).Msg("openai-stub")
	}
}

func newMux(model string) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/models", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, openai.ModelsList{Models: []openai.Model{
			{ID: model, Object: "model"},
			{ID: restore.DefaultFallbackModel, Object: "model"},
		}})
	})
	mux.HandleFunc("/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		var req openai.ChatCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		content, ok := complete(req)
		if !ok {
			http.Error(w, "unexpected system prompt", http.StatusBadRequest)
			return
		}
		log.Debug().Str("model", req.Model).Int("chars", len(content)).Msg("completion")
		writeJSON(w, openai.ChatCompletionResponse{
			ID:      "stub",
			Object:  "chat.completion",
			Created: time.Now().Unix(),
			Model:   req.Model,
			Choices: []openai.ChatCompletionChoice{{
				Message:      openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: content},
				FinishReason: openai.FinishReasonStop,
			}},
		})
	})
	return mux
}

// complete echoes the user message with the fixed restorations applied.
func complete(req openai.ChatCompletionRequest) (string, bool) {
	var sys, user string
	for _, m := range req.Messages {
		switch m.Role {
		case openai.ChatMessageRoleSystem:
			sys = m.Content
		case openai.ChatMessageRoleUser:
			user = m.Content
		}
	}
	switch strings.TrimSpace(sys) {
	case strings.TrimSpace(restore.SystemPrompt), strings.TrimSpace(image.CaptionPrompt):
		return restorations.Replace(user), true
	default:
		return "", false
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
