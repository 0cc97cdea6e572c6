package insight

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"

	"github.com/okian/soe/internal/domain/model"
)

const analysisSchemaURL = "https://soe.schemas.local/insight/analysis.schema.json"

const analysisSchema = `{
  "type": "object",
  "required": ["summary"],
  "properties": {
    "summary": {"type": "string"},
    "strengths": {"type": "array", "items": {"type": "string"}},
    "weaknesses": {"type": "array", "items": {"type": "string"}},
    "recommendations": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["title", "description", "impact"],
        "properties": {
          "title": {"type": "string"},
          "description": {"type": "string"},
          "impact": {"type": "string", "pattern": "(?i)^\\s*(high|medium|low)\\s*$"}
        }
      }
    }
  }
}`

const estimateSchemaURL = "https://soe.schemas.local/insight/estimate.schema.json"

const estimateSchema = `{
  "type": "object",
  "required": ["name", "metrics"],
  "properties": {
    "name": {"type": "string", "minLength": 1},
    "summary": {"type": "string"},
    "metrics": {
      "type": "object",
      "required": ["uptime", "errorRate", "cpuUtilization", "memoryUtilization", "throughput", "responseTime"],
      "properties": {
        "uptime": {"type": "number"},
        "errorRate": {"type": "number"},
        "cpuUtilization": {"type": "number"},
        "memoryUtilization": {"type": "number"},
        "throughput": {"type": "number"},
        "responseTime": {"type": "number"}
      }
    }
  }
}`

var (
	analysisValidator = mustCompile(analysisSchemaURL, analysisSchema)
	estimateValidator = mustCompile(estimateSchemaURL, estimateSchema)
)

func mustCompile(url, schema string) *jsonschema.Schema {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	if err := c.AddResource(url, strings.NewReader(schema)); err != nil {
		panic(fmt.Sprintf("insight schema load failed: %v", err))
	}
	compiled, err := c.Compile(url)
	if err != nil {
		panic(fmt.Sprintf("insight schema compile failed: %v", err))
	}
	return compiled
}

// StripFences removes markdown code fences around a JSON reply.
func StripFences(text string) string {
	text = strings.ReplaceAll(text, "```json", "")
	text = strings.ReplaceAll(text, "```", "")
	return strings.TrimSpace(text)
}

func decode(text string, schema *jsonschema.Schema, out any) error {
	clean := StripFences(text)
	if clean == "" {
		return fmt.Errorf("%w: empty reply", ErrMalformed)
	}
	var doc any
	if err := json.Unmarshal([]byte(clean), &doc); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if err := json.Unmarshal([]byte(clean), out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return nil
}

// ParseAnalysis decodes and validates an analysis reply.
func ParseAnalysis(text string) (model.Analysis, error) {
	var a model.Analysis
	if err := decode(text, analysisValidator, &a); err != nil {
		return model.Empty(), err
	}

	out := model.Empty()
	out.Summary = clean(a.Summary)
	for _, s := range a.Strengths {
		out.Strengths = append(out.Strengths, clean(s))
	}
	for _, s := range a.Weaknesses {
		out.Weaknesses = append(out.Weaknesses, clean(s))
	}
	for _, r := range a.Recommendations {
		out.Recommendations = append(out.Recommendations, model.Advice{
			Title:       clean(r.Title),
			Description: clean(r.Description),
			Impact:      NormalizeImpact(string(r.Impact)),
		})
	}
	return out, nil
}

// ParseEstimate decodes and validates a URL estimate reply.
func ParseEstimate(text string) (model.Estimate, error) {
	var e model.Estimate
	if err := decode(text, estimateValidator, &e); err != nil {
		return model.Estimate{}, err
	}
	e.Name = clean(e.Name)
	e.Summary = clean(e.Summary)
	return e, nil
}

// NormalizeImpact maps "HIGH", " low " and similar to the canonical labels.
func NormalizeImpact(s string) model.Impact {
	// Casers are stateful; one per call.
	return model.Impact(cases.Title(language.English).String(strings.ToLower(strings.TrimSpace(s))))
}

func clean(s string) string {
	return strings.TrimSpace(norm.NFC.String(s))
}
