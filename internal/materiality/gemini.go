package materiality

import (
	"context"
	"fmt"
	"strings"

	"fjacquet/cfdi-sentinel/internal/logging"
	"fjacquet/cfdi-sentinel/internal/models"
	"fjacquet/cfdi-sentinel/internal/textutils"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// DefaultGeminiModel is used when no model is configured.
const DefaultGeminiModel = "gemini-1.5-flash"

// maxPromptConcepts caps the concept lines sent to the model.
const maxPromptConcepts = 40

// contentGenerator is the subset of *genai.GenerativeModel the strategy uses.
type contentGenerator interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

// GeminiStrategy asks a Gemini model for a yes/no plausibility opinion.
type GeminiStrategy struct {
	client *genai.Client
	model  contentGenerator
	logger logging.Logger
}

// NewGeminiStrategy connects to the Gemini API with apiKey.
func NewGeminiStrategy(ctx context.Context, apiKey, model string, logger logging.Logger) (*GeminiStrategy, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY not set")
	}
	if model == "" {
		model = DefaultGeminiModel
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	gm := client.GenerativeModel(model)
	return &GeminiStrategy{client: client, model: gm, logger: logging.OrDefault(logger)}, nil
}

func newGeminiStrategyWithModel(model contentGenerator, logger logging.Logger) *GeminiStrategy {
	return &GeminiStrategy{model: model, logger: logging.OrDefault(logger)}
}

// Name returns the name of this strategy.
func (s *GeminiStrategy) Name() string {
	return "gemini"
}

// Close releases the underlying client.
func (s *GeminiStrategy) Close() error {
	if s.client == nil {
		return nil
	}
	return s.client.Close()
}

// Assess sends the concept list to the model and parses its verdict.
func (s *GeminiStrategy) Assess(ctx context.Context, doc *models.Document, activity string) (Assessment, bool, error) {
	if noActivity(activity) || len(doc.Concepts) == 0 {
		return Assessment{}, false, nil
	}

	resp, err := s.model.GenerateContent(ctx, genai.Text(buildPrompt(doc, activity)))
	if err != nil {
		return Assessment{}, false, fmt.Errorf("gemini API error: %w", err)
	}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return Assessment{}, false, fmt.Errorf("no response from Gemini API")
	}

	var text strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if t, ok := p.(genai.Text); ok {
			text.WriteString(string(t))
		}
	}
	a, ok := parseResponse(text.String())
	s.logger.WithFields(
		logging.Field{Key: logging.FieldComponent, Value: s.Name()},
		logging.Field{Key: logging.FieldUUID, Value: doc.UUID()},
		logging.Field{Key: "risky", Value: a.Risky},
	).Debug("Gemini materiality opinion")
	return a, ok, nil
}

func buildPrompt(doc *models.Document, activity string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Giro declarado de la empresa receptora: %s\n", activity)
	fmt.Fprintf(&b, "Emisor: %s\n", doc.Issuer.Name)
	b.WriteString("Conceptos facturados (ClaveProdServ - Descripción [categoría]):\n")
	for i, c := range doc.Concepts {
		if i == maxPromptConcepts {
			break
		}
		fmt.Fprintf(&b, "- %s - %s", c.ClaveProdServ, textutils.Snippet(c.Descripcion, 120))
		if cat := Category(c.ClaveProdServ); cat != "" {
			fmt.Fprintf(&b, " [%s]", cat)
		}
		b.WriteString("\n")
	}
	b.WriteString(`
¿Son estos conceptos estrictamente indispensables para el giro declarado?
Responde exactamente en este formato:
Relacionado: SI o NO
Conceptos: [claves dudosas separadas por coma, vacío si ninguna]
Motivo: [explicación breve]`)
	return b.String()
}

func parseResponse(response string) (Assessment, bool) {
	var a Assessment
	var found bool
	for _, line := range strings.Split(response, "\n") {
		line = strings.TrimSpace(line)
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		switch textutils.Fold(key) {
		case "relacionado":
			found = true
			a.Risky = strings.HasPrefix(textutils.Fold(value), "no")
		case "conceptos":
			for _, c := range strings.Split(strings.Trim(value, "[]"), ",") {
				if c = strings.TrimSpace(c); c != "" {
					a.Concepts = append(a.Concepts, c)
				}
			}
		case "motivo":
			a.Reason = value
		}
	}
	if !a.Risky {
		a.Concepts = nil
		a.Reason = ""
	}
	return a, found
}
