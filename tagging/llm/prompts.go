package llm

import (
	"fmt"
	"sort"
	"strings"

	"github.com/poiesic/infradocs/tagging"
)

const taggingResponseSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "entities": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "id": {
            "type": "string"
          },
          "generic_name": {
            "type": "string",
            "pattern": "^[a-z0-9]+([ -][a-z0-9]+)*$"
          },
          "problem_solved": {
            "type": "string"
          },
          "infrastructure_role": {
            "type": "string"
          },
          "system_component": {
            "type": "string"
          }
        },
        "required": ["id", "generic_name", "problem_solved", "infrastructure_role", "system_component"],
        "additionalProperties": false
      }
    }
  },
  "required": ["entities"],
  "additionalProperties": false
}`

const taggingPromptTemplate = `You classify infrastructure components. For each entity given by the user,
answer four questions about it and return the answers as JSON.

The four questions:
1. generic_name: what is this technology generically called? (e.g. "redis", "reverse proxy")
2. problem_solved: what problem does it solve? (one or two lowercase words, e.g. "caching")
3. infrastructure_role: what role does it play in the infrastructure? (e.g. "database", "monitoring")
4. system_component: what kind of system component is it? (e.g. "service", "storage")

Output ONLY valid JSON which complies with the schema given below. Do not include any preamble, explanation,
greeting, or acknowledgment. Start your response directly with the opening brace { and end with the closing
brace }. Your output must exactly follow this schema:

%s

Rules:
- Answer for EVERY entity in the input, using the exact id given for it.
- Answers must be lowercase, 1-3 words each.
- Base answers only on the provided properties. Do not hallucinate capabilities.
- If a question cannot be answered from the properties, use "none" for that field.
- The JSON must parse without errors; no trailing commas, no extra keys, and no extraneous text outside the object.

Example:
Input:
entity id=container_home_redis-1 type=container
  image: redis:7
  name: redis-1
Output:
{
  "entities": [
    {"id":"container_home_redis-1","generic_name":"redis","problem_solved":"caching","infrastructure_role":"database","system_component":"service"}
  ]
}`

// buildSystemPrompt creates the system prompt with the response schema embedded.
func buildSystemPrompt() string {
	return fmt.Sprintf(taggingPromptTemplate, taggingResponseSchema)
}

// buildUserPrompt renders a batch of entities as a compact, deterministic
// property listing. Property order is sorted so identical batches produce
// identical prompts.
func buildUserPrompt(batch []tagging.Request) string {
	var sb strings.Builder
	for _, req := range batch {
		fmt.Fprintf(&sb, "entity id=%s type=%s\n", req.EntityID, req.EntityType)

		keys := make([]string, 0, len(req.Properties))
		for k := range req.Properties {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		for _, k := range keys {
			fmt.Fprintf(&sb, "  %s: %v\n", k, req.Properties[k])
		}
	}
	return sb.String()
}
