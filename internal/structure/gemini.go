package structure

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// DefaultGeminiModel is used when GeminiDetector.Model is empty.
const DefaultGeminiModel = "gemini-2.5-flash"

const geminiSystemPrompt = "You are a data analyst expert at detecting CSV file structures. Respond with valid JSON only."

const geminiPrompt = `Analyze this CSV data sample and determine its structure:

` + "```" + `
%s
` + "```" + `

Identify:
1. How many rows to skip (headers, metadata, etc.) before the actual time-series data starts
2. Which column contains TIME data (0-indexed)
3. Which column contains the VALUES to analyze (typically voltage, current, sensor reading)
4. What label best describes the values column

Requirements:
- Time column should have monotonically increasing numerical values
- Values column should contain the measurement data (not time, not indices)
- Skip rows should account for any non-data rows at the start

Respond with ONLY a JSON object (no markdown, no explanation):
{
    "skip_rows": <integer>,
    "time_column": <integer>,
    "values_column": <integer>,
    "values_label": "<descriptive label with units>"
}`

var requiredKeys = []string{"skip_rows", "time_column", "values_column", "values_label"}

// contentGenerator is the subset of *genai.Models the detector needs.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiDetector asks a Gemini model to describe the sample.
type GeminiDetector struct {
	Model string
	gen   contentGenerator
}

// NewGeminiDetector creates a detector backed by the Gemini API.
func NewGeminiDetector(ctx context.Context, apiKey, model string) (*GeminiDetector, error) {
	if apiKey == "" {
		return nil, errors.New("gemini: API key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &GeminiDetector{Model: model, gen: client.Models}, nil
}

// Detect implements Detector. Any transport, decoding or schema problem is
// returned as a *DetectionError.
func (g *GeminiDetector) Detect(ctx context.Context, sample []string) (CSVStructure, error) {
	model := g.Model
	if model == "" {
		model = DefaultGeminiModel
	}
	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(geminiSystemPrompt, genai.RoleUser),
		Temperature:       genai.Ptr(float32(0.1)),
		ResponseMIMEType:  "application/json",
	}
	prompt := fmt.Sprintf(geminiPrompt, strings.Join(sample, "\n"))

	resp, err := g.gen.GenerateContent(ctx, model, []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}, config)
	if err != nil {
		return CSVStructure{}, &DetectionError{Detector: "gemini", Err: err}
	}
	if resp == nil {
		return CSVStructure{}, &DetectionError{Detector: "gemini", Err: errors.New("empty response")}
	}
	return parseModelReply(resp.Text())
}

// parseModelReply decodes a model's JSON answer, tolerating code fences.
func parseModelReply(text string) (CSVStructure, error) {
	text = strings.TrimSpace(text)
	text = strings.ReplaceAll(text, "```json", "")
	text = strings.ReplaceAll(text, "```", "")
	text = strings.TrimSpace(text)
	if text == "" {
		return CSVStructure{}, &DetectionError{Detector: "gemini", Err: errors.New("empty response")}
	}

	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return CSVStructure{}, &DetectionError{Detector: "gemini", Err: fmt.Errorf("decode reply: %w", err)}
	}
	for _, k := range requiredKeys {
		if _, ok := raw[k]; !ok {
			return CSVStructure{}, &DetectionError{Detector: "gemini", Err: fmt.Errorf("reply missing %q", k)}
		}
	}
	return Sanitize(raw), nil
}
