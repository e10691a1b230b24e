package prompt

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/k1105/veo3-prompt-generator-sub000/internal/form"
	"github.com/k1105/veo3-prompt-generator-sub000/internal/llm"
)

type fakeGenerator struct {
	mu       sync.Mutex
	prompts  []string
	keys     []string
	generate func(prompt string) (string, error)
	image    func(prompt string) (llm.Image, error)
}

func (f *fakeGenerator) Generate(_ context.Context, apiKey, prompt string) (string, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	f.keys = append(f.keys, apiKey)
	f.mu.Unlock()
	return f.generate(prompt)
}

func (f *fakeGenerator) GenerateImage(_ context.Context, apiKey, prompt string) (llm.Image, error) {
	f.mu.Lock()
	f.keys = append(f.keys, apiKey)
	f.mu.Unlock()
	return f.image(prompt)
}

func (f *fakeGenerator) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}

func reply(text string) func(string) (string, error) {
	return func(string) (string, error) { return text, nil }
}

func noSleepPolicy() llm.RetryPolicy {
	p := llm.DefaultRetryPolicy()
	p.Sleep = func(context.Context, time.Duration) error { return nil }
	return p
}

func TestChat_SanitizesUpdates(t *testing.T) {
	gen := &fakeGenerator{generate: reply("Here:\n```json\n" + `{
		"message": "Made it moodier",
		"updatedFields": {"title": null, "style": {"tone": ["film noir of", "made-up"]}},
		"suggestions": ["add rain", 3],
		"action": "update_fields"
	}` + "\n```")}
	svc := NewService(gen, "server-key", nil)

	resp, err := svc.Chat(context.Background(), ChatRequest{Message: "darker please", FormData: form.Default()})
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}

	if resp.Action != ActionUpdateFields {
		t.Errorf("Action = %q, want update_fields", resp.Action)
	}
	if resp.UpdatedFields["title"] != "" {
		t.Errorf("title = %v, want empty string", resp.UpdatedFields["title"])
	}
	tone := resp.UpdatedFields["style"].(map[string]any)["tone"].([]any)
	if len(tone) != 1 || tone[0] != "film noir of" {
		t.Errorf("tone = %v", tone)
	}
	if len(resp.Suggestions) != 1 || resp.Suggestions[0] != "add rain" {
		t.Errorf("Suggestions = %v", resp.Suggestions)
	}
	if gen.keys[0] != "server-key" {
		t.Errorf("key = %q, want server-key", gen.keys[0])
	}
	if !strings.Contains(gen.prompts[0], "darker please") {
		t.Error("prompt does not contain the user message")
	}
}

func TestChat_UnknownActionAndBadJSON(t *testing.T) {
	gen := &fakeGenerator{generate: reply(`{"message": "ok", "action": "launch_rockets"}`)}
	svc := NewService(gen, "k", nil)

	resp, err := svc.Chat(context.Background(), ChatRequest{Message: "hi"})
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}
	if resp.Action != ActionNone {
		t.Errorf("Action = %q, want none", resp.Action)
	}

	gen.generate = reply("I am not JSON at all")
	resp, err = svc.Chat(context.Background(), ChatRequest{Message: "hi"})
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}
	if resp.Message != fallbackChatMessage || resp.Action != ActionNone || resp.UpdatedFields != nil {
		t.Errorf("Chat() = %+v, want fallback", resp)
	}
}

func TestChat_Errors(t *testing.T) {
	gen := &fakeGenerator{generate: func(string) (string, error) {
		return "", &llm.APIError{StatusCode: http.StatusForbidden}
	}}

	if _, err := NewService(gen, "", nil).Chat(context.Background(), ChatRequest{Message: "hi"}); !errors.Is(err, llm.ErrMissingAPIKey) {
		t.Errorf("no key error = %v, want ErrMissingAPIKey", err)
	}
	if _, err := NewService(gen, "k", nil).Chat(context.Background(), ChatRequest{}); !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("empty message error = %v, want ErrInvalidRequest", err)
	}
	if gen.calls() != 0 {
		t.Errorf("model called %d times before validation", gen.calls())
	}

	var apiErr *llm.APIError
	_, err := NewService(gen, "k", nil).Chat(context.Background(), ChatRequest{Message: "hi", CustomAPIKey: "mine"})
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusForbidden {
		t.Errorf("upstream error = %v, want APIError 403", err)
	}
	if gen.keys[0] != "mine" {
		t.Errorf("key = %q, want request key", gen.keys[0])
	}
}

func TestUpdateField(t *testing.T) {
	gen := &fakeGenerator{generate: reply("```json\n{\"updatedValue\": \"neon teal\"}\n```")}
	svc := NewService(gen, "k", nil)

	resp, err := svc.UpdateField(context.Background(), UpdateFieldRequest{
		Field: "style.palette", CurrentValue: "teal", Direction: "brighter", Context: form.Default(),
	})
	if err != nil {
		t.Fatalf("UpdateField() error = %v", err)
	}
	if resp.UpdatedValue != "neon teal" {
		t.Errorf("UpdatedValue = %q", resp.UpdatedValue)
	}
	if !strings.Contains(gen.prompts[0], "brighter") {
		t.Error("direction missing from prompt")
	}

	gen.generate = reply("nope")
	if _, err := svc.UpdateField(context.Background(), UpdateFieldRequest{Field: "title"}); !errors.Is(err, ErrBadModelOutput) {
		t.Errorf("bad output error = %v, want ErrBadModelOutput", err)
	}
	if _, err := svc.UpdateField(context.Background(), UpdateFieldRequest{}); !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("missing field error = %v, want ErrInvalidRequest", err)
	}
}

func TestTranslate(t *testing.T) {
	gen := &fakeGenerator{generate: reply(`{"translated": "A cat walks"}`)}
	svc := NewService(gen, "k", nil)

	res, err := svc.Translate(context.Background(), TranslateRequest{Content: "猫が歩く"})
	if err != nil {
		t.Fatalf("Translate() error = %v", err)
	}
	if res.Translated != "A cat walks" || res.Structured != nil {
		t.Errorf("Translate() = %+v", res)
	}
}

func TestTranslate_YAML(t *testing.T) {
	gen := &fakeGenerator{generate: reply("```json\n{\"title\": \"Night city\", \"audio\": {\"bgm\": null}}\n```")}
	svc := NewService(gen, "k", nil)

	res, err := svc.Translate(context.Background(), TranslateRequest{
		Content: "title: 夜の街\naudio:\n  bgm: ジャズ\n",
		Type:    TranslateTypeYAML,
	})
	if err != nil {
		t.Fatalf("Translate() error = %v", err)
	}
	if res.Structured["title"] != "Night city" {
		t.Errorf("Structured = %v", res.Structured)
	}
	if res.Structured["audio"].(map[string]any)["bgm"] != "" {
		t.Errorf("null not sanitised: %v", res.Structured["audio"])
	}

	_, err = svc.Translate(context.Background(), TranslateRequest{Content: "a: [unclosed", Type: TranslateTypeYAML})
	if !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("invalid yaml error = %v, want ErrInvalidRequest", err)
	}
	if gen.calls() != 1 {
		t.Errorf("model calls = %d, want 1", gen.calls())
	}
}

func TestGenerateImage(t *testing.T) {
	gen := &fakeGenerator{image: func(string) (llm.Image, error) {
		return llm.Image{MIMEType: "image/png", Data: []byte("png")}, nil
	}}
	svc := NewService(gen, "k", nil)

	resp, err := svc.GenerateImage(context.Background(), ImageRequest{Prompt: "a fox"})
	if err != nil {
		t.Fatalf("GenerateImage() error = %v", err)
	}
	if !strings.HasPrefix(resp.ImageData, "data:image/png;base64,") || resp.TextDescription != "" {
		t.Errorf("GenerateImage() = %+v", resp)
	}
}

func TestGenerateImage_FallsBackToDescription(t *testing.T) {
	gen := &fakeGenerator{
		image: func(string) (llm.Image, error) {
			return llm.Image{}, &llm.APIError{StatusCode: http.StatusNotFound}
		},
		generate: reply("  A fox in snow.  "),
	}
	svc := NewService(gen, "k", nil)

	resp, err := svc.GenerateImage(context.Background(), ImageRequest{Prompt: "a fox"})
	if err != nil {
		t.Fatalf("GenerateImage() error = %v", err)
	}
	if resp.ImageData != "" || resp.TextDescription != "A fox in snow." {
		t.Errorf("GenerateImage() = %+v", resp)
	}

	gen.image = func(string) (llm.Image, error) {
		return llm.Image{}, &llm.APIError{StatusCode: http.StatusInternalServerError}
	}
	if _, err := svc.GenerateImage(context.Background(), ImageRequest{Prompt: "a fox"}); err == nil {
		t.Error("expected 500 to propagate")
	}
}

func TestGenerateImage_EmptyReplyDescribes(t *testing.T) {
	gen := &fakeGenerator{
		image: func(string) (llm.Image, error) {
			return llm.Image{}, llm.ErrEmptyResponse
		},
		generate: reply("A lighthouse at dusk."),
	}
	svc := NewService(gen, "k", nil)

	resp, err := svc.GenerateImage(context.Background(), ImageRequest{Prompt: "lighthouse"})
	if err != nil {
		t.Fatalf("GenerateImage() error = %v", err)
	}
	if resp.ImageData != "" || resp.TextDescription != "A lighthouse at dusk." {
		t.Errorf("GenerateImage() = %+v", resp)
	}

	gen.image = func(string) (llm.Image, error) {
		return llm.Image{}, llm.ErrMalformedResponse
	}
	if _, err := svc.GenerateImage(context.Background(), ImageRequest{Prompt: "lighthouse"}); !errors.Is(err, llm.ErrMalformedResponse) {
		t.Errorf("malformed reply error = %v, want ErrMalformedResponse", err)
	}
}

func TestGeneratePrompt_RetriesThenSucceeds(t *testing.T) {
	attempts := 0
	gen := &fakeGenerator{generate: func(string) (string, error) {
		attempts++
		if attempts < 3 {
			return "", &llm.APIError{StatusCode: http.StatusServiceUnavailable}
		}
		return `{"prompt": " A fox runs through snow. "}`, nil
	}}
	svc := NewService(gen, "k", nil)
	svc.SetRetryPolicy(noSleepPolicy())

	fd := form.Default()
	fd.Title = "Fox"
	fd.TimeAxis[0].Action = "runs"
	resp, err := svc.GeneratePrompt(context.Background(), GeneratePromptRequest{FormData: fd})
	if err != nil {
		t.Fatalf("GeneratePrompt() error = %v", err)
	}
	if resp.Prompt != "A fox runs through snow." || resp.Fallback {
		t.Errorf("GeneratePrompt() = %+v", resp)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestGeneratePrompt_FallsBack(t *testing.T) {
	gen := &fakeGenerator{generate: func(string) (string, error) {
		return "", &llm.APIError{StatusCode: http.StatusTooManyRequests}
	}}
	svc := NewService(gen, "k", nil)
	svc.SetRetryPolicy(noSleepPolicy())

	fd := form.Default()
	fd.Title = "Anything"
	resp, err := svc.GeneratePrompt(context.Background(), GeneratePromptRequest{FormData: fd})
	if err != nil {
		t.Fatalf("GeneratePrompt() error = %v", err)
	}
	if resp.Prompt != DefaultPrompt || !resp.Fallback {
		t.Errorf("GeneratePrompt() = %+v, want default", resp)
	}
	if gen.calls() != 4 {
		t.Errorf("calls = %d, want 4", gen.calls())
	}

	if _, err := NewService(gen, "", nil).GeneratePrompt(context.Background(), GeneratePromptRequest{}); !errors.Is(err, llm.ErrMissingAPIKey) {
		t.Errorf("missing key error = %v, want ErrMissingAPIKey", err)
	}
}

func TestGenerate_OnlyUnlockedFields(t *testing.T) {
	gen := &fakeGenerator{generate: reply(`{
		"title": "Should stay",
		"layout": {"environment": "harbor at dawn"},
		"time_axis": [{"startTime": 0, "endTime": 5, "action": "boats drift"}, {"startTime": 5, "endTime": 10, "action": "gulls"}]
	}`)}
	svc := NewService(gen, "k", nil)

	fd := form.Default()
	fd.Title = "Locked title"
	resp, err := svc.Generate(context.Background(), GenerateRequest{
		FormData:  fd,
		LockState: form.LockState{Title: true},
		Theme:     "harbor",
	})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	if resp.FormData.Title != "Locked title" {
		t.Errorf("Title = %q, locked field overwritten", resp.FormData.Title)
	}
	if resp.FormData.Layout.Environment != "harbor at dawn" {
		t.Errorf("Environment = %q", resp.FormData.Layout.Environment)
	}
	if got := form.TotalDuration(resp.FormData.TimeAxis); got > form.MaxTimeAxisSeconds+1e-9 {
		t.Errorf("time_axis total = %v", got)
	}
	for _, f := range resp.Generated {
		if f == "title" {
			t.Error("locked field listed as generated")
		}
	}
	if strings.Contains(gen.prompts[0], "- title\n") {
		t.Error("locked field requested from the model")
	}
}

func TestGenerate_AllLocked(t *testing.T) {
	gen := &fakeGenerator{generate: reply("{}")}
	svc := NewService(gen, "", nil)

	all := form.LockState{
		Title:    true,
		Style:    form.StyleLocks{Tone: true, Palette: true, Lighting: true, KeyFX: true},
		Audio:    form.AudioLocks{SFX: true, BGM: true, Ambience: true},
		Layout:   form.LayoutLocks{Environment: true, Atmosphere: true, Composition: true},
		TimeAxis: true,
	}
	if _, err := svc.Generate(context.Background(), GenerateRequest{LockState: all}); !errors.Is(err, ErrAllLocked) {
		t.Errorf("Generate() error = %v, want ErrAllLocked", err)
	}
	if gen.calls() != 0 {
		t.Error("model called with every field locked")
	}
}

func TestConvertPrompt(t *testing.T) {
	gen := &fakeGenerator{generate: reply(`{"prompt": "Night market, handheld."}`)}
	svc := NewService(gen, "k", nil)

	fd := form.Default()
	fd.Title = "Night market"
	fd.Style.Tone = []string{"documentary footage of"}
	resp, err := svc.ConvertPrompt(context.Background(), ConvertPromptRequest{FormData: fd})
	if err != nil {
		t.Fatalf("ConvertPrompt() error = %v", err)
	}
	if resp.Prompt != "Night market, handheld." {
		t.Errorf("Prompt = %q", resp.Prompt)
	}
	if !strings.Contains(resp.YAML, "title: Night market") || !strings.Contains(resp.YAML, "time_axis:") {
		t.Errorf("YAML = %s", resp.YAML)
	}
	if !strings.Contains(gen.prompts[0], "title: Night market") {
		t.Error("YAML not sent to the model")
	}

	gen.generate = reply(`{"prompt": ""}`)
	if _, err := svc.ConvertPrompt(context.Background(), ConvertPromptRequest{FormData: fd}); !errors.Is(err, ErrBadModelOutput) {
		t.Errorf("empty prompt error = %v, want ErrBadModelOutput", err)
	}
}

func TestGenerateScenes(t *testing.T) {
	gen := &fakeGenerator{generate: reply(`{"audio": {"bgm": "synth"}}`)}
	svc := NewService(gen, "k", nil)

	allLocked := form.LockState{
		Title:    true,
		Style:    form.StyleLocks{Tone: true, Palette: true, Lighting: true, KeyFX: true},
		Audio:    form.AudioLocks{SFX: true, BGM: true, Ambience: true},
		Layout:   form.LayoutLocks{Environment: true, Atmosphere: true, Composition: true},
		TimeAxis: true,
	}
	jobs := []SceneJob{
		{SceneID: "a", FormData: form.Default()},
		{SceneID: "locked", FormData: form.Default(), LockState: allLocked},
		{SceneID: "b", FormData: form.Default()},
	}

	results, err := svc.GenerateScenes(context.Background(), "", "retro", jobs)
	if err != nil {
		t.Fatalf("GenerateScenes() error = %v", err)
	}
	if len(results) != 2 || results[0].SceneID != "a" || results[1].SceneID != "b" {
		t.Fatalf("results = %+v", results)
	}
	for _, r := range results {
		if r.FormData.Audio.BGM != "synth" {
			t.Errorf("scene %s bgm = %q", r.SceneID, r.FormData.Audio.BGM)
		}
	}
	if gen.calls() != 2 {
		t.Errorf("calls = %d, want 2", gen.calls())
	}
}

func TestGenerateScenes_AllOrNothing(t *testing.T) {
	gen := &fakeGenerator{generate: func(p string) (string, error) {
		if strings.Contains(p, "broken") {
			return "", &llm.APIError{StatusCode: http.StatusInternalServerError}
		}
		return `{"title": "fine"}`, nil
	}}
	svc := NewService(gen, "k", nil)

	broken := form.Default()
	broken.Title = "broken"
	results, err := svc.GenerateScenes(context.Background(), "", "", []SceneJob{
		{SceneID: "ok", FormData: form.Default()},
		{SceneID: "bad", FormData: broken},
	})
	if err == nil {
		t.Fatal("GenerateScenes() expected error")
	}
	if results != nil {
		t.Errorf("results = %+v, want none", results)
	}
	if !strings.Contains(err.Error(), "scene bad") {
		t.Errorf("error = %v, want scene id", err)
	}
}
