package vars

import (
	"bytes"
	"text/template"
)

// 提示词模板，统一用 text/template 渲染

var ClauseExtractPrompt = template.Must(template.New("clause").Parse(`
You are a legal expert. Extract the '{{.Category}}' clause from the following context.
If present, provide the exact text and a brief summary.
If not present, return null.

Context:
{{.Context}}

Return JSON format: { "category": "{{.Category}}", "text": "...", "summary": "..." }
`))

var RiskAnalysisPrompt = template.Must(template.New("risk").Parse(`
Analyze the risk level of the following '{{.Category}}' clause.

Clause Text: "{{.Text}}"

Rules:
- High Risk: Unlimited liability, auto-renewal without notice, non-compete > 2 years.
- Medium Risk: Vague termination usage, payment > 60 days.
- Low Risk: Standard terms.

Return JSON: { "risk_level": "High|Medium|Low", "reasoning": "...", "recommendation": "..." }
`))

var LifecyclePrompt = template.Must(template.New("lifecycle").Parse(`
Extract the following lifecycle information from the contract context:
1. Start Date (Effective Date) - Format: YYYY-MM-DD or null
2. End Date (Expiration Date) - Format: YYYY-MM-DD or null
3. Renewal Terms - Brief summary of renewal conditions (e.g., "Auto-renews for 1 year") or null
4. Notice Period - Days required for termination/non-renewal (integer) or null

Context:
{{.Context}}

Return JSON format:
{
    "start_date": "YYYY-MM-DD",
    "end_date": "YYYY-MM-DD",
    "renewal_terms": "...",
    "notice_period_days": 30
}
`))

var SummaryPrompt = template.Must(template.New("summary").Parse(`
You are a professional legal analyst. Provide a factual, risk-focused executive summary of the contract analysis.

STRICT RULES:
1. All analysis must be based ONLY on the EXTRACTED CLAUSES provided below.
2. If a clause or term is not listed in "EXTRACTED CLAUSES", do NOT invent it.
3. Do NOT infer payment terms, liability caps, or specific values unless they are explicitly present in the text.
4. If information is missing, state "Information not available in extracted sections".

Structure:
1. **Overview**: Brief description based on available text.
2. **Critical Risks**: Highlight only HIGH and CRITICAL risks found.
3. **Key Findings**: Summarize the Termination, Liability, and Payment terms if found.
4. **Recommendations**: Actionable steps based on the identified risks.

Context:
EXTRACTED CLAUSES:
{{.Clauses}}

IDENTIFIED RISKS:
{{.Risks}}
`))

var QAPrompt = template.Must(template.New("qa").Parse(`
You are a strict legal analyst. Answer the user's question based ONLY on the provided contract context.

Context:
{{.Context}}

Question:
{{.Question}}

Requirements:
1. Answer directly and concisely.
2. Provide CITATIONS: exact clause text from the context that supports your answer.
3. Identify the Clause Type (e.g., "Termination", "Confidentiality").
4. If the answer is NOT in the context, explicitly state: "The contract does not contain information regarding [topic]."
5. DO NOT hallucinate or use outside knowledge.

Return the response in the following JSON format:
{
    "answer": "Direct answer here...",
    "citations": [
        {
            "clause_text": "Exact text from contract...",
            "clause_type": "Type...",
            "explanation": "Why this supports the answer..."
        }
    ],
    "confidence": "High|Medium|Low"
}
`))

var ComparePrompt = template.Must(template.New("compare").Parse(`
Compare Contract A and Contract B based strictly on the provided EXTRACTED CLAUSES.

Rules:
- All comparative analysis must reference only clauses explicitly extracted from each contract.
- If a clause does not exist in a document, explicitly state "Not specified in the contract."
- Do not infer payment structures, fees, penalties, or conditions unless they are present in the source text.
- Liability assessments must reflect whether a liability cap exists and include the exact cap value when available.
- Any recommendation must reference concrete clause differences rather than hypothetical risks.
- Prefer saying "information not available" over speculative reasoning.

CONTRACT A (Baseline):
Filename: {{.A.FileName}}
EXTRACTED CLAUSES:
{{.A.Clauses}}

CONTRACT B (Comparison):
Filename: {{.B.FileName}}
EXTRACTED CLAUSES:
{{.B.Clauses}}

Return a JSON response with the following structure:
{
    "overview_diff": "A short paragraph explaining the main factual differences found in the text.",
    "key_differences": [
        {
            "category": "Liability/Payment/Termination/etc",
            "contract_a_point": "Exact term from A or 'Not specified in the contract'",
            "contract_b_point": "Exact term from B or 'Not specified in the contract'",
            "assessment": "Factual comparison of the two terms."
        }
    ],
    "recommendation": "Recommendation based ONLY on the extracted facts."
}
`))

var RewritePrompt = template.Must(template.New("rewrite").Parse(`
You are an expert contract lawyer. Your task is to rewrite the following contract clause.

Original Clause:
"{{.Text}}"

Instruction:
{{.Instruction}}

Requirements:
1. Maintain professional legal tone.
2. Be precise and concise.
3. Explain the change briefly.

Output JSON:
{
    "rewritten_text": "...",
    "explanation": "..."
}
`))

// Render 渲染模板
func Render(t *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
