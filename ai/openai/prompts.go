package openai

import (
	"fmt"
	"strings"

	"github.com/poiesic/docent/ai"
)

const extractionResponseSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "entities": {
      "type": "array",
      "maxItems": %d,
      "items": {
        "type": "object",
        "properties": {
          "name": {
            "type": "string"
          },
          "type": {
            "type": "string"
          }
        },
        "required": ["name", "type"],
        "additionalProperties": false
      }
    }
  },
  "required": ["entities"],
  "additionalProperties": false
}`

const extractionPromptTemplate = `Extract the most important named entities from the given text and return them as JSON.

Output ONLY valid JSON which complies with the schema given below. Do not include any preamble, explanation,
greeting, or acknowledgment. Start your response directly with the opening brace { and end with the closing
brace }. Your output must exactly follow this schema:

%s

Rules:
- Return at most %d entities, most important first.
- Entity names are copied from the text as written, trimmed of surrounding punctuation.
- Type field must match exactly one of the listed values: %s.
- Include only entities explicitly mentioned in the text. Do not hallucinate.
- If no entities can be identified, return "entities": [].
- The JSON must parse without errors; no trailing commas, no extra keys, and no extraneous text outside the object.



Example (itinerary line):
Input: "Day 3: fly TG-910 from Bangkok to Chiang Mai, check in at the Shangri-La for $310."
Output:
{
  "entities": [
    {"name":"TG-910","type":"FLIGHT"},
    {"name":"Bangkok","type":"LOCATION"},
    {"name":"Chiang Mai","type":"LOCATION"},
    {"name":"Shangri-La","type":"HOTEL"},
    {"name":"$310","type":"PRICE"}
  ]
}

Example (spanish, informal):
Input: "día 2 vamos al mercado flotante y luego cena en el Mandarin Oriental"
Output:
{
  "entities": [
    {"name":"mercado flotante","type":"ACTIVITY"},
    {"name":"Mandarin Oriental","type":"HOTEL"}
  ]
}

Example (dates and organizations):
Input: "Thai Airways confirmed the booking for 12/03/2025."
Output:
{
  "entities": [
    {"name":"Thai Airways","type":"ORGANIZATION"},
    {"name":"12/03/2025","type":"DATE"}
  ]
}

Example (nothing to extract):
Input: "it was a nice relaxing afternoon"
Output:
{
  "entities": []
}`

// buildExtractionPrompt creates the extraction system prompt with the
// entity types and cap embedded.
func buildExtractionPrompt(maxEntities int) string {
	schema := fmt.Sprintf(extractionResponseSchema, maxEntities)
	return fmt.Sprintf(extractionPromptTemplate,
		schema,
		maxEntities,
		strings.Join(ai.EntityTypes, ", "))
}
