package openai

import (
	"fmt"
	"strings"

	"github.com/poiesic/corpus/core"
)

const classificationResponseSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "tags": {
      "type": "array",
      "items": {
        "type": "string"
      }
    }
  },
  "required": ["tags"],
  "additionalProperties": false
}`

const classificationPromptTemplate = `You label technical documentation about AI development frameworks. Given a document, return the tags from the allowed list that apply to it as JSON.

Output ONLY valid JSON which complies with the schema given below. Do not include any preamble, explanation,
greeting, or acknowledgment. Start your response directly with the opening brace { and end with the closing
brace }. Your output must exactly follow this schema:

%s

Rules:
- Every tag must match one of the allowed values exactly, including capitalization: %s.
- Assign a tag only when the document substantially covers that framework or service. A passing mention is not enough.
- A document may carry multiple tags when it covers multiple frameworks.
- If no allowed tag applies, return "tags": [].
- The JSON must parse without errors; no trailing commas, no extra keys, and no extraneous text outside the object.

Example:
Input: "This tutorial walks through building a multi-agent workflow with the Semantic Kernel Agents SDK..."
Output:
{
  "tags": ["Semantic Kernel Agents"]
}

Example:
Input: "Release notes for the OpenAI .NET SDK version 2.1..."
Output:
{
  "tags": ["OpenAI SDK"]
}

Example:
Input: "A recipe for braising short ribs..."
Output:
{
  "tags": []
}`

const summaryPromptTemplate = `Summarize the given document in at most %d characters. Write one or two plain sentences capturing what the document covers and who it is for. Output only the summary text with no preamble, quotes, or markdown.`

// buildClassificationPrompt creates the system prompt with the tag taxonomy embedded.
func buildClassificationPrompt() string {
	return fmt.Sprintf(classificationPromptTemplate,
		classificationResponseSchema,
		strings.Join(core.KnownTags, ", "))
}
