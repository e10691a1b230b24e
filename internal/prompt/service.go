// Package prompt renders the editor's prompt templates, sends them to the
// model and repairs what comes back before it reaches a form.
package prompt

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/k1105/veo3-prompt-generator-sub000/internal/form"
	"github.com/k1105/veo3-prompt-generator-sub000/internal/llm"
)

var (
	ErrInvalidRequest = errors.New("invalid request")
	ErrAllLocked      = errors.New("all fields are locked")
	ErrBadModelOutput = errors.New("model output could not be used")
)

const (
	// DefaultPrompt is returned by GeneratePrompt when the model cannot be
	// reached or answers with nothing usable.
	DefaultPrompt = "A cinematic shot of a quiet landscape at golden hour, slow dolly forward, soft natural light, gentle ambient sound."

	fallbackChatMessage = "Sorry, I could not process that reply. Please try again."
	updatedChatMessage  = "I updated the form."

	maxConcurrentScenes = 4
)

type Service struct {
	llm       llm.Generator
	serverKey string
	retry     llm.RetryPolicy
	logger    *slog.Logger
}

func NewService(gen llm.Generator, serverKey string, logger *slog.Logger) *Service {
	retry := llm.DefaultRetryPolicy()
	retry.Logger = logger
	return &Service{
		llm:       gen,
		serverKey: serverKey,
		retry:     retry,
		logger:    logger,
	}
}

// SetRetryPolicy replaces the policy used for the translation step of
// GeneratePrompt.
func (s *Service) SetRetryPolicy(p llm.RetryPolicy) {
	s.retry = p
}

func (s *Service) apiKey(requestKey string) (string, error) {
	return llm.ResolveAPIKey(requestKey, s.serverKey)
}

// Chat runs one assistant turn. Proposed field updates are repaired before
// they are returned; an unparseable reply becomes a generic message.
func (s *Service) Chat(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	if strings.TrimSpace(req.Message) == "" {
		return ChatResponse{}, fmt.Errorf("%w: message is required", ErrInvalidRequest)
	}
	key, err := s.apiKey(req.CustomAPIKey)
	if err != nil {
		return ChatResponse{}, err
	}

	actions := make([]string, len(Actions))
	for i, a := range Actions {
		actions[i] = string(a)
	}
	text, err := render("chat", map[string]any{
		"FormData":   req.FormData,
		"History":    req.ChatHistory,
		"Message":    req.Message,
		"Tones":      form.Tones,
		"Actions":    actions,
		"MaxSeconds": form.MaxTimeAxisSeconds,
	})
	if err != nil {
		return ChatResponse{}, err
	}

	reply, err := s.llm.Generate(ctx, key, text)
	if err != nil {
		return ChatResponse{}, err
	}

	var raw struct {
		Message       string         `json:"message"`
		UpdatedFields map[string]any `json:"updatedFields"`
		Suggestions   []any          `json:"suggestions"`
		Action        string         `json:"action"`
		ActionParams  map[string]any `json:"actionParams"`
	}
	if err := llm.DecodeJSON(reply, &raw); err != nil {
		s.warn("chat reply not parseable", "error", err)
		return ChatResponse{Message: fallbackChatMessage, Action: ActionNone}, nil
	}

	resp := ChatResponse{
		Message:      raw.Message,
		Suggestions:  stringsOnly(raw.Suggestions),
		Action:       ParseAction(raw.Action),
		ActionParams: raw.ActionParams,
	}
	if len(raw.UpdatedFields) > 0 {
		resp.UpdatedFields = form.SanitizeUpdates(raw.UpdatedFields)
	}
	if resp.Message == "" {
		resp.Message = fallbackChatMessage
		if resp.UpdatedFields != nil {
			resp.Message = updatedChatMessage
		}
	}
	return resp, nil
}

func (s *Service) UpdateField(ctx context.Context, req UpdateFieldRequest) (UpdateFieldResponse, error) {
	if strings.TrimSpace(req.Field) == "" {
		return UpdateFieldResponse{}, fmt.Errorf("%w: field is required", ErrInvalidRequest)
	}
	key, err := s.apiKey(req.CustomAPIKey)
	if err != nil {
		return UpdateFieldResponse{}, err
	}

	text, err := render("update_field", req)
	if err != nil {
		return UpdateFieldResponse{}, err
	}
	reply, err := s.llm.Generate(ctx, key, text)
	if err != nil {
		return UpdateFieldResponse{}, err
	}

	var raw struct {
		UpdatedValue any `json:"updatedValue"`
	}
	if err := llm.DecodeJSON(reply, &raw); err != nil {
		return UpdateFieldResponse{}, fmt.Errorf("%w: %v", ErrBadModelOutput, err)
	}
	return UpdateFieldResponse{UpdatedValue: stringify(raw.UpdatedValue)}, nil
}

// Translate translates plain text, or every string of a YAML scene document
// when req.Type is TranslateTypeYAML.
func (s *Service) Translate(ctx context.Context, req TranslateRequest) (TranslateResult, error) {
	if strings.TrimSpace(req.Content) == "" {
		return TranslateResult{}, fmt.Errorf("%w: content is required", ErrInvalidRequest)
	}

	name := "translate"
	if req.Type == TranslateTypeYAML {
		var doc any
		if err := yaml.Unmarshal([]byte(req.Content), &doc); err != nil {
			return TranslateResult{}, fmt.Errorf("%w: content is not valid YAML: %v", ErrInvalidRequest, err)
		}
		name = "translate_yaml"
	}

	key, err := s.apiKey(req.CustomAPIKey)
	if err != nil {
		return TranslateResult{}, err
	}
	text, err := render(name, req)
	if err != nil {
		return TranslateResult{}, err
	}
	reply, err := s.llm.Generate(ctx, key, text)
	if err != nil {
		return TranslateResult{}, err
	}

	if req.Type == TranslateTypeYAML {
		var out map[string]any
		if err := llm.DecodeJSON(reply, &out); err != nil {
			return TranslateResult{}, fmt.Errorf("%w: %v", ErrBadModelOutput, err)
		}
		return TranslateResult{Structured: form.SanitizeNulls(out).(map[string]any)}, nil
	}

	var raw struct {
		Translated string `json:"translated"`
	}
	if err := llm.DecodeJSON(reply, &raw); err != nil {
		return TranslateResult{}, fmt.Errorf("%w: %v", ErrBadModelOutput, err)
	}
	return TranslateResult{Translated: raw.Translated}, nil
}

// GenerateImage returns an image as a data URL. When the image model is
// unavailable or answers with text only, a storyboard description is
// returned instead.
func (s *Service) GenerateImage(ctx context.Context, req ImageRequest) (ImageResponse, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return ImageResponse{}, fmt.Errorf("%w: prompt is required", ErrInvalidRequest)
	}
	key, err := s.apiKey(req.APIKey)
	if err != nil {
		return ImageResponse{}, err
	}

	img, err := s.llm.GenerateImage(ctx, key, req.Prompt)
	if err == nil {
		if url := img.DataURL(); url != "" {
			return ImageResponse{ImageData: url}, nil
		}
		if strings.TrimSpace(img.Text) != "" {
			return ImageResponse{TextDescription: img.Text}, nil
		}
	}

	if err != nil {
		if !imageUnavailable(err) {
			return ImageResponse{}, err
		}
		s.warn("image model unavailable, describing instead", "error", err)
	}

	text, rerr := render("image_description", req)
	if rerr != nil {
		return ImageResponse{}, rerr
	}
	desc, err := s.llm.Generate(ctx, key, text)
	if err != nil {
		return ImageResponse{}, err
	}
	return ImageResponse{TextDescription: strings.TrimSpace(desc)}, nil
}

// imageUnavailable reports whether err means the image model cannot serve
// the request: a 400, 404 or 501 upstream, or a reply with no parts.
func imageUnavailable(err error) bool {
	if errors.Is(err, llm.ErrEmptyResponse) {
		return true
	}
	var apiErr *llm.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.StatusCode {
	case http.StatusBadRequest, http.StatusNotFound, http.StatusNotImplemented:
		return true
	}
	return false
}

// GeneratePrompt turns a form into an English video prompt. The model call
// is retried per the service's retry policy; if it still fails the
// DefaultPrompt is returned with Fallback set.
func (s *Service) GeneratePrompt(ctx context.Context, req GeneratePromptRequest) (GeneratePromptResponse, error) {
	key, err := s.apiKey(req.CustomAPIKey)
	if err != nil {
		return GeneratePromptResponse{}, err
	}

	description := Describe(req.FormData)
	if idea := strings.TrimSpace(req.Idea); idea != "" {
		description = strings.TrimSpace("Idea: " + idea + "\n" + description)
	}
	if description == "" {
		return GeneratePromptResponse{Prompt: DefaultPrompt, Fallback: true}, nil
	}

	text, err := render("generate_prompt", map[string]any{
		"Description": description,
		"MaxSeconds":  form.MaxTimeAxisSeconds,
	})
	if err != nil {
		return GeneratePromptResponse{}, err
	}

	reply, err := s.retry.Do(ctx, func(ctx context.Context) (string, error) {
		return s.llm.Generate(ctx, key, text)
	})
	if err != nil {
		s.warn("prompt generation failed, using default", "error", err)
		return GeneratePromptResponse{Prompt: DefaultPrompt, Fallback: true}, nil
	}

	var raw struct {
		Prompt string `json:"prompt"`
	}
	if err := llm.DecodeJSON(reply, &raw); err != nil || strings.TrimSpace(raw.Prompt) == "" {
		s.warn("prompt generation reply unusable, using default", "error", err)
		return GeneratePromptResponse{Prompt: DefaultPrompt, Fallback: true}, nil
	}
	return GeneratePromptResponse{Prompt: strings.TrimSpace(raw.Prompt)}, nil
}

// Generate fills the unlocked fields of a form. Locked fields are neither
// requested nor overwritten.
func (s *Service) Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, error) {
	fields := req.LockState.UnlockedPaths()
	if len(fields) == 0 {
		return GenerateResponse{}, ErrAllLocked
	}
	key, err := s.apiKey(req.CustomAPIKey)
	if err != nil {
		return GenerateResponse{}, err
	}
	return s.generate(ctx, key, req.Theme, req.FormData, req.LockState, fields)
}

func (s *Service) generate(ctx context.Context, key, theme string, fd form.FormData, locks form.LockState, fields []string) (GenerateResponse, error) {
	text, err := render("generate", map[string]any{
		"Theme":      theme,
		"FormData":   fd,
		"Fields":     fields,
		"Tones":      form.Tones,
		"MaxSeconds": form.MaxTimeAxisSeconds,
	})
	if err != nil {
		return GenerateResponse{}, err
	}

	reply, err := s.llm.Generate(ctx, key, text)
	if err != nil {
		return GenerateResponse{}, err
	}

	var updates map[string]any
	if err := llm.DecodeJSON(reply, &updates); err != nil {
		return GenerateResponse{}, fmt.Errorf("%w: %v", ErrBadModelOutput, err)
	}
	out, err := form.ApplyUpdates(fd, updates, &locks)
	if err != nil {
		return GenerateResponse{}, fmt.Errorf("%w: %v", ErrBadModelOutput, err)
	}
	return GenerateResponse{FormData: out, Generated: fields}, nil
}

// ConvertPrompt renders a form as YAML and asks the model for the matching
// English prompt paragraph.
func (s *Service) ConvertPrompt(ctx context.Context, req ConvertPromptRequest) (ConvertPromptResponse, error) {
	key, err := s.apiKey(req.CustomAPIKey)
	if err != nil {
		return ConvertPromptResponse{}, err
	}

	doc, err := RenderYAML(req.FormData)
	if err != nil {
		return ConvertPromptResponse{}, err
	}
	text, err := render("convert_prompt", map[string]any{"YAML": doc})
	if err != nil {
		return ConvertPromptResponse{}, err
	}
	reply, err := s.llm.Generate(ctx, key, text)
	if err != nil {
		return ConvertPromptResponse{}, err
	}

	var raw struct {
		Prompt string `json:"prompt"`
	}
	if err := llm.DecodeJSON(reply, &raw); err != nil || strings.TrimSpace(raw.Prompt) == "" {
		return ConvertPromptResponse{}, fmt.Errorf("%w: no prompt in reply", ErrBadModelOutput)
	}
	return ConvertPromptResponse{Prompt: strings.TrimSpace(raw.Prompt), YAML: doc}, nil
}

// GenerateScenes runs Generate for several scenes concurrently. Scenes
// with every field locked are skipped. Any failure fails the whole run and
// no results are returned.
func (s *Service) GenerateScenes(ctx context.Context, requestKey, theme string, jobs []SceneJob) ([]SceneResult, error) {
	key, err := s.apiKey(requestKey)
	if err != nil {
		return nil, err
	}

	results := make([]SceneResult, len(jobs))
	skipped := make([]bool, len(jobs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentScenes)
	for i, job := range jobs {
		fields := job.LockState.UnlockedPaths()
		if len(fields) == 0 {
			skipped[i] = true
			continue
		}
		g.Go(func() error {
			res, err := s.generate(gctx, key, theme, job.FormData, job.LockState, fields)
			if err != nil {
				return fmt.Errorf("scene %s: %w", job.SceneID, err)
			}
			results[i] = SceneResult{SceneID: job.SceneID, FormData: res.FormData, Generated: res.Generated}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]SceneResult, 0, len(jobs))
	for i, r := range results {
		if !skipped[i] {
			out = append(out, r)
		}
	}
	if len(out) == 0 {
		return nil, ErrAllLocked
	}
	return out, nil
}

func (s *Service) warn(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Warn(msg, args...)
	}
}

func stringsOnly(in []any) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		if str, ok := v.(string); ok && strings.TrimSpace(str) != "" {
			out = append(out, str)
		}
	}
	return out
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		return fmt.Sprint(t)
	}
}
