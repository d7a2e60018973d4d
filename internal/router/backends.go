package router

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	lambdasdk "github.com/aws/aws-sdk-go-v2/service/lambda"
)

// NMT transport modes.
const (
	// NMTModeHTTP posts directly to the NMT inference endpoint.
	NMTModeHTTP = "http"
	// NMTModeLambda invokes a translator Lambda function instead.
	NMTModeLambda = "lambda"
)

// Config holds the backend settings for both translation models.
type Config struct {
	NMT NMTConfig
	LLM LLMConfig
}

// NMTConfig configures the NMT backend. An empty endpoint falls back to
// the default inference URL for the language pair.
type NMTConfig struct {
	Endpoint string
	APIKey   string
	Mode     string
	Function string
}

// LLMConfig configures the LLM backend. Endpoint and APIKey are both
// required whenever the LLM is selected.
type LLMConfig struct {
	Endpoint string
	APIKey   string
	Model    string
}

// ErrMissingLLMConfig is returned when the LLM backend is selected but its
// endpoint or key is not configured. The caller treats it like any other
// LLM failure, which triggers the NMT fallback.
var ErrMissingLLMConfig = errors.New("llm endpoint and api key must be configured")

// mbartCodes maps BCP-47 language codes to the token format the NMT
// models were trained with.
var mbartCodes = map[string]string{
	"ar-SA": "ar_AR",
	"de-DE": "de_DE",
	"en-US": "en_XX",
	"es-ES": "es_XX",
	"fr-FR": "fr_XX",
	"hi-IN": "hi_IN",
	"it-IT": "it_IT",
	"ja-JP": "ja_XX",
	"ko-KR": "ko_KR",
	"nl-NL": "nl_XX",
	"pl-PL": "pl_PL",
	"pt-PT": "pt_XX",
	"pt-BR": "pt_BR",
	"ru-RU": "ru_RU",
	"sv-SE": "sv_SE",
	"tr-TR": "tr_TR",
	"uk-UA": "uk_UA",
	"zh-CN": "zh_CN",
	"zh-TW": "zh_TW",
}

// mbartCode maps a BCP-47 code to its model token, passing unknown codes
// through unchanged.
func mbartCode(lang string) string {
	if mapped, ok := mbartCodes[lang]; ok {
		return mapped
	}
	return lang
}

// shortCode reduces a BCP-47 code like "fr-FR" to its base language "fr".
func shortCode(lang string) string {
	if i := strings.IndexAny(lang, "-_"); i > 0 {
		return lang[:i]
	}
	return lang
}

// DefaultNMTEndpoint builds the inference URL for a language pair when no
// explicit NMT endpoint is configured.
func DefaultNMTEndpoint(sourceLang, targetLang string) string {
	return fmt.Sprintf("https://router.huggingface.co/hf-inference/models/Helsinki-NLP/opus-mt-%s-%s",
		shortCode(sourceLang), shortCode(targetLang))
}

// nmtRequest is the payload the NMT inference servers accept.
type nmtRequest struct {
	Text    []string `json:"text"`
	SrcLang string   `json:"src_lang"`
	TgtLang string   `json:"tgt_lang"`
}

// translateNMT sends text to the NMT backend over the configured
// transport. Errors propagate: NMT is the fallback of last resort.
func (r *Router) translateNMT(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	if r.cfg.NMT.Mode == NMTModeLambda {
		return r.nmtViaLambda(ctx, text, sourceLang, targetLang)
	}

	endpoint := r.cfg.NMT.Endpoint
	if endpoint == "" {
		endpoint = DefaultNMTEndpoint(sourceLang, targetLang)
	}
	if r.cfg.NMT.APIKey == "" {
		return "", errors.New("nmt api key is not configured")
	}

	body := nmtRequest{
		Text:    []string{text},
		SrcLang: mbartCode(sourceLang),
		TgtLang: mbartCode(targetLang),
	}

	resp, err := r.nmt.R().
		SetContext(ctx).
		SetHeader("Authorization", "Bearer "+r.cfg.NMT.APIKey).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		Post(endpoint)
	if err != nil {
		return "", fmt.Errorf("nmt request failed: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("nmt backend returned %s: %s", resp.Status(), resp.String())
	}

	return parseNMTResponse(resp.Body())
}

// parseNMTResponse extracts the translated text from either response
// shape the NMT servers produce: the VM server returns
// {"translated_texts": [...]}, the hosted inference API returns a list of
// {"translation_text"} or {"generated_text"} objects.
func parseNMTResponse(body []byte) (string, error) {
	var vm struct {
		TranslatedTexts []string `json:"translated_texts"`
	}
	if err := json.Unmarshal(body, &vm); err == nil && len(vm.TranslatedTexts) > 0 {
		return vm.TranslatedTexts[0], nil
	}

	var hosted []struct {
		TranslationText string `json:"translation_text"`
		GeneratedText   string `json:"generated_text"`
	}
	if err := json.Unmarshal(body, &hosted); err == nil && len(hosted) > 0 {
		if hosted[0].TranslationText != "" {
			return hosted[0].TranslationText, nil
		}
		if hosted[0].GeneratedText != "" {
			return hosted[0].GeneratedText, nil
		}
	}

	return "", fmt.Errorf("nmt response missing translated text: %s", string(body))
}

// lambdaInvoker is the slice of the Lambda client the router needs.
type lambdaInvoker interface {
	Invoke(ctx context.Context, params *lambdasdk.InvokeInput, optFns ...func(*lambdasdk.Options)) (*lambdasdk.InvokeOutput, error)
}

// translatorRequest is the payload for translator Lambda functions.
type translatorRequest struct {
	Texts      []string `json:"texts"`
	SourceLang string   `json:"source_lang"`
	TargetLang string   `json:"target_lang"`
}

// translatorResponse is what translator Lambda functions return.
type translatorResponse struct {
	Translations []string `json:"translations"`
	Error        string   `json:"error,omitempty"`
}

// TranslatorFunctionName derives the name of the translator Lambda
// deployed for a language pair.
func TranslatorFunctionName(sourceLang, targetLang string) string {
	return fmt.Sprintf("cloud-localization-translator-%s-%s",
		shortCode(sourceLang), shortCode(targetLang))
}

// nmtViaLambda invokes the translator Lambda for the language pair.
func (r *Router) nmtViaLambda(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	if r.lambda == nil {
		return "", errors.New("lambda transport is not initialized")
	}

	functionName := r.cfg.NMT.Function
	if functionName == "" {
		functionName = TranslatorFunctionName(sourceLang, targetLang)
	}

	payload, err := json.Marshal(translatorRequest{
		Texts:      []string{text},
		SourceLang: sourceLang,
		TargetLang: targetLang,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	result, err := r.lambda.Invoke(ctx, &lambdasdk.InvokeInput{
		FunctionName: &functionName,
		Payload:      payload,
	})
	if err != nil {
		return "", fmt.Errorf("failed to invoke %s: %w", functionName, err)
	}
	if result.FunctionError != nil {
		return "", fmt.Errorf("lambda error: %s", *result.FunctionError)
	}

	var resp translatorResponse
	if err := json.Unmarshal(result.Payload, &resp); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	if resp.Error != "" {
		return "", fmt.Errorf("translator error: %s", resp.Error)
	}
	if len(resp.Translations) == 0 {
		return "", errors.New("translator returned no translations")
	}
	return resp.Translations[0], nil
}

// llmRequest is the chat-completion payload for the LLM backend.
type llmRequest struct {
	Model    string       `json:"model"`
	Messages []llmMessage `json:"messages"`
}

type llmMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// translateLLM posts an instruction-style request to the LLM backend and
// extracts the translated text. Missing configuration is reported as
// ErrMissingLLMConfig, which the caller treats like any LLM call failure.
func (r *Router) translateLLM(ctx context.Context, text, targetLang string) (string, error) {
	if r.cfg.LLM.Endpoint == "" || r.cfg.LLM.APIKey == "" {
		return "", ErrMissingLLMConfig
	}

	body := llmRequest{
		Model: r.cfg.LLM.Model,
		Messages: []llmMessage{
			{Role: "system", Content: "You are a professional localization translator. Return only the translated text with no commentary."},
			{Role: "user", Content: fmt.Sprintf("Translate the following text to %s:\n\n%s", targetLang, text)},
		},
	}

	var resp struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}

	rr, err := r.llm.R().
		SetContext(ctx).
		SetHeader("Authorization", "Bearer "+r.cfg.LLM.APIKey).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		SetResult(&resp).
		Post(r.cfg.LLM.Endpoint)
	if err != nil {
		return "", fmt.Errorf("llm request failed: %w", err)
	}
	if rr.IsError() {
		return "", fmt.Errorf("llm backend returned %s: %s", rr.Status(), rr.String())
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("llm response contained no choices")
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
