// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"bytes"
	"encoding/json"
	"fmt"
	"text/template"

	"github.com/pdiddy/spark-engine/internal/ingest"
	"github.com/pdiddy/spark-engine/internal/llm"
	"github.com/pdiddy/spark-engine/pkg/types"
)

// annotationPromptTmpl is the prompt sent to the backend for each record. It
// carries the schema's instruction block, the entity definitions, the
// schema's context text as a worked example with its expected extractions,
// and the record document.
var annotationPromptTmpl = template.Must(template.New("annotation").Parse(`You are a data extraction system for systematic reviews of research literature.

{{.Instructions}}

Entities to extract:
{{range .Entities}}- {{.Name}}{{if .Description}}: {{.Description}}{{end}}
{{end}}
Respond with a JSON object of the form {"extractions": [{"entity": "<entity name>", "text": "<verbatim span>"}]}. Use only the entity names listed above. If an entity does not appear in the document, omit it. Do not include any text outside the JSON object.
{{if .Example}}
Example document:
{{.Example}}

Example response:
{{.ExampleReply}}
{{end}}
Document:
{{.Document}}
`))

type promptData struct {
	Instructions string
	Entities     []types.Entity
	Example      string
	ExampleReply string
	Document     string
}

// BuildPrompt renders the annotation prompt for one record document.
func BuildPrompt(schema *types.Schema, document string) (string, error) {
	instructions := schema.PromptDescription
	if instructions == "" {
		instructions = ingest.BuildPromptDescription(schema)
	}

	exampleReply, err := buildExampleReply(schema)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	err = annotationPromptTmpl.Execute(&buf, promptData{
		Instructions: instructions,
		Entities:     schema.Entities,
		Example:      schema.Context,
		ExampleReply: exampleReply,
		Document:     document,
	})
	if err != nil {
		return "", fmt.Errorf("rendering prompt: %w", err)
	}
	return buf.String(), nil
}

// buildExampleReply assembles the few-shot response from the entity examples,
// in schema order. Empty when the schema has no context or no examples.
func buildExampleReply(schema *types.Schema) (string, error) {
	if schema.Context == "" {
		return "", nil
	}

	var spans []llm.Span
	for _, e := range schema.Entities {
		for _, ex := range e.Examples {
			spans = append(spans, llm.Span{Entity: e.Name, Text: ex})
		}
	}
	if len(spans) == 0 {
		return "", nil
	}

	reply, err := json.Marshal(map[string][]llm.Span{"extractions": spans})
	if err != nil {
		return "", fmt.Errorf("marshaling example reply: %w", err)
	}
	return string(reply), nil
}
