package api

import (
	"encoding/json"
	"net/http"

	"github.com/k1105/veo3-prompt-generator-sub000/internal/prompt"
)

// maxRelayBody bounds a relay request; forms and chat history are small.
const maxRelayBody = 1 << 20

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRelayBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
		return false
	}
	return true
}

func chatHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req prompt.ChatRequest
		if !decodeBody(w, r, &req) {
			return
		}
		resp, err := cfg.Prompts.Chat(r.Context(), req)
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func updateFieldHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req prompt.UpdateFieldRequest
		if !decodeBody(w, r, &req) {
			return
		}
		resp, err := cfg.Prompts.UpdateField(r.Context(), req)
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

// translateHandler answers a YAML translation with the translated document
// itself and anything else with {translated}.
func translateHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req prompt.TranslateRequest
		if !decodeBody(w, r, &req) {
			return
		}
		res, err := cfg.Prompts.Translate(r.Context(), req)
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		if res.Structured != nil {
			WriteJSON(w, http.StatusOK, res.Structured)
			return
		}
		WriteJSON(w, http.StatusOK, TranslateResponse{Translated: res.Translated})
	}
}

func generateImageHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req prompt.ImageRequest
		if !decodeBody(w, r, &req) {
			return
		}
		resp, err := cfg.Prompts.GenerateImage(r.Context(), req)
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func generatePromptHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req prompt.GeneratePromptRequest
		if !decodeBody(w, r, &req) {
			return
		}
		resp, err := cfg.Prompts.GeneratePrompt(r.Context(), req)
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func generateHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req prompt.GenerateRequest
		if !decodeBody(w, r, &req) {
			return
		}
		resp, err := cfg.Prompts.Generate(r.Context(), req)
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func convertPromptHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req prompt.ConvertPromptRequest
		if !decodeBody(w, r, &req) {
			return
		}
		resp, err := cfg.Prompts.ConvertPrompt(r.Context(), req)
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}
