package insight

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/okian/soe/internal/domain/scoring"
)

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// BuildAnalysisPrompt asks for a strategic plan to raise the score of r.
func BuildAnalysisPrompt(r scoring.Result) string {
	c, m := r.Categories, r.Metrics
	var b strings.Builder
	b.WriteString("Act as a Senior Site Reliability Engineer (SRE) and Performance Architect.\n")
	b.WriteString("Analyze the following System Operational Efficiency (SOE) Data to provide a strategic plan to BOOST the score:\n\n")
	fmt.Fprintf(&b, "Overall Score: %s/100\n\n", num(r.Overall))
	b.WriteString("Category Scores:\n")
	fmt.Fprintf(&b, "- Availability: %s/100 (Based on Uptime: %s%%)\n", num(c.Availability), num(m.Uptime))
	fmt.Fprintf(&b, "- Reliability: %s/100 (Based on Error Rate: %s%%)\n", num(c.Reliability), num(m.ErrorRate))
	fmt.Fprintf(&b, "- Efficiency: %s/100 (CPU: %s%%, Mem: %s%%)\n", num(c.Efficiency), num(m.CPUUtilization), num(m.MemoryUtilization))
	fmt.Fprintf(&b, "- Performance: %s/100 (Throughput: %s rps, Latency: %sms)\n\n", num(c.Performance), num(m.Throughput), num(m.ResponseTime))
	b.WriteString(`Please provide a response in valid JSON format with the following structure:
{
  "summary": "A 1-sentence executive summary of the system health.",
  "strengths": ["Point 1", "Point 2"],
  "weaknesses": ["Point 1", "Point 2"],
  "recommendations": [
    {
      "title": "Short, punchy action title (e.g. Optimize Database Indexing)",
      "description": "Specific technical advice on what to do and why it will boost the SOE score.",
      "impact": "High" | "Medium" | "Low"
    }
  ]
}

Prioritize the recommendations. "High" impact items should be those that address the lowest scoring categories.
Do not include markdown code blocks, just the raw JSON string.
`)
	return b.String()
}

// BuildEstimatePrompt asks for hypothetical metrics of the site at url.
func BuildEstimatePrompt(url string) string {
	return fmt.Sprintf(`I need to estimate the System Operational Efficiency (SOE) for the website: %s.

1. Use Google Search to find out what this website is, its probable tech stack, and its scale/popularity.
2. Based on industry benchmarks for this TYPE of application (e.g., e-commerce, blog, SaaS, dev tool), generate a HYPOTHETICAL but REALISTIC set of operational metrics.
3. Return the data as a valid JSON object.

The JSON structure must be:
{
  "name": "A short descriptive name (e.g. GitHub-Production-Est)",
  "summary": "A one sentence explanation of why you chose these metrics based on the site type.",
  "metrics": {
    "uptime": number (percentage, e.g. 99.95),
    "errorRate": number (percentage, e.g. 0.05),
    "cpuUtilization": number (percentage 0-100),
    "memoryUtilization": number (percentage 0-100),
    "throughput": number (requests per second estimate),
    "responseTime": number (milliseconds estimate)
  }
}

Strictly return valid JSON. Do not include markdown code blocks.
`, url)
}
