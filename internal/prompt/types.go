package prompt

import "github.com/k1105/veo3-prompt-generator-sub000/internal/form"

// Action is what the chat assistant asks the editor to do next.
type Action string

const (
	ActionUpdateFields    Action = "update_fields"
	ActionGenerateContent Action = "generate_content"
	ActionConvertPrompt   Action = "convert_prompt"
	ActionTranslate       Action = "translate"
	ActionGenerateImage   Action = "generate_image"
	ActionNone            Action = "none"
)

var Actions = []Action{
	ActionUpdateFields,
	ActionGenerateContent,
	ActionConvertPrompt,
	ActionTranslate,
	ActionGenerateImage,
	ActionNone,
}

// ParseAction maps anything outside the known set to ActionNone.
func ParseAction(s string) Action {
	for _, a := range Actions {
		if string(a) == s {
			return a
		}
	}
	return ActionNone
}

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatRequest struct {
	Message      string        `json:"message"`
	FormData     form.FormData `json:"formData"`
	ChatHistory  []ChatMessage `json:"chatHistory"`
	CustomAPIKey string        `json:"customApiKey,omitempty"`
}

type ChatResponse struct {
	Message       string         `json:"message"`
	UpdatedFields map[string]any `json:"updatedFields,omitempty"`
	Suggestions   []string       `json:"suggestions,omitempty"`
	Action        Action         `json:"action,omitempty"`
	ActionParams  map[string]any `json:"actionParams,omitempty"`
}

type UpdateFieldRequest struct {
	Field        string        `json:"field"`
	CurrentValue string        `json:"currentValue"`
	Direction    string        `json:"direction,omitempty"`
	Context      form.FormData `json:"context"`
	CustomAPIKey string        `json:"customApiKey,omitempty"`
}

type UpdateFieldResponse struct {
	UpdatedValue string `json:"updatedValue"`
}

// TranslateTypeYAML marks content as a YAML scene document.
const TranslateTypeYAML = "yaml"

type TranslateRequest struct {
	Content      string `json:"content"`
	Type         string `json:"type"`
	CustomAPIKey string `json:"customApiKey,omitempty"`
}

// TranslateResult holds either the structured translation of a YAML
// document or plain translated text.
type TranslateResult struct {
	Structured map[string]any
	Translated string
}

type ImageRequest struct {
	Prompt string `json:"prompt"`
	APIKey string `json:"apiKey,omitempty"`
}

type ImageResponse struct {
	ImageData       string `json:"imageData,omitempty"`
	TextDescription string `json:"textDescription,omitempty"`
}

type GeneratePromptRequest struct {
	FormData     form.FormData `json:"formData"`
	Idea         string        `json:"idea,omitempty"`
	CustomAPIKey string        `json:"customApiKey,omitempty"`
}

type GeneratePromptResponse struct {
	Prompt   string `json:"prompt"`
	Fallback bool   `json:"fallback"`
}

type GenerateRequest struct {
	FormData     form.FormData  `json:"formData"`
	LockState    form.LockState `json:"lockState"`
	Theme        string         `json:"theme,omitempty"`
	CustomAPIKey string         `json:"customApiKey,omitempty"`
}

type GenerateResponse struct {
	FormData  form.FormData `json:"formData"`
	Generated []string      `json:"generated"`
}

type ConvertPromptRequest struct {
	FormData     form.FormData `json:"formData"`
	CustomAPIKey string        `json:"customApiKey,omitempty"`
}

type ConvertPromptResponse struct {
	Prompt string `json:"prompt"`
	YAML   string `json:"yaml"`
}

// SceneJob is one scene of a workspace-wide generation run.
type SceneJob struct {
	SceneID   string
	FormData  form.FormData
	LockState form.LockState
}

type SceneResult struct {
	SceneID   string        `json:"sceneId"`
	FormData  form.FormData `json:"formData"`
	Generated []string      `json:"generated"`
}
