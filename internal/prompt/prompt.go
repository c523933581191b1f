// Package prompt renders the question-answering prompt from retrieved
// review snippets.
package prompt

import (
	"strings"

	"github.com/tmc/langchaingo/prompts"
)

// Template is the fixed instruction sent to the completion model.
const Template = "You are a helpful bot. If you cannot answer based on the context provided, " +
	"respond with a generic answer. Answer the question as truthfully as possible " +
	"using the context below:\n\n{{.context}}\n\nQuestion: {{.question}}"

// SnippetSeparator joins snippets into the context block.
const SnippetSeparator = "\n\n"

var template = prompts.PromptTemplate{
	Template:       Template,
	InputVariables: []string{"context", "question"},
	TemplateFormat: prompts.TemplateFormatGoTemplate,
}

// Assemble substitutes the joined snippets and the question into Template.
// Snippet order is kept and nothing is truncated. An empty snippet list
// leaves the context section empty.
func Assemble(snippets []string, question string) (string, error) {
	return template.Format(map[string]any{
		"context":  strings.Join(snippets, SnippetSeparator),
		"question": question,
	})
}
