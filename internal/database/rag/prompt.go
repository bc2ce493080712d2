package rag

import (
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/prompts"
)

// PromptTemplate is an f-string prompt: {name} placeholders, literal braces
// written as {{ and }}.
type PromptTemplate struct {
	prompts.PromptTemplate
}

// NewPromptTemplate checks that template renders with exactly the declared
// input variables and that each of them appears in it.
func NewPromptTemplate(template string, inputVariables ...string) (*PromptTemplate, error) {
	if err := prompts.CheckValidTemplate(template, prompts.TemplateFormatFString, inputVariables); err != nil {
		return nil, fmt.Errorf("invalid prompt template: %w", err)
	}

	marked := make(map[string]any, len(inputVariables))
	for _, v := range inputVariables {
		marked[v] = "\x00" + v + "\x00"
	}
	rendered, err := prompts.RenderTemplate(template, prompts.TemplateFormatFString, marked)
	if err != nil {
		return nil, fmt.Errorf("invalid prompt template: %w", err)
	}
	for _, v := range inputVariables {
		if !strings.Contains(rendered, marked[v].(string)) {
			return nil, fmt.Errorf("prompt template is missing input variable {%s}", v)
		}
	}

	return &PromptTemplate{prompts.PromptTemplate{
		Template:       template,
		InputVariables: append([]string(nil), inputVariables...),
		TemplateFormat: prompts.TemplateFormatFString,
	}}, nil
}

// qaTemplate turns query results into the final answer.
const qaTemplate = `You turn database query results into short, natural answers.
The information below is authoritative: use it as given and never correct it
from your own knowledge. Answer as if you simply know the facts and do not
mention the information section.

Example:
Question: Which artists performed Sinnerman?
Information: [{{"artist": "Nina Simone"}}]
Answer: Nina Simone performed Sinnerman.

If the information is empty, say that you don't know the answer.

Information:
{context}

Question: {question}
Answer:`

// DefaultQAPrompt returns the built-in answer synthesis prompt.
func DefaultQAPrompt() *PromptTemplate {
	p, err := NewQAPrompt(qaTemplate)
	if err != nil {
		panic(err)
	}
	return p
}

// NewQAPrompt builds the answer synthesis prompt from a user supplied
// template with {context} and {question} placeholders.
func NewQAPrompt(template string) (*PromptTemplate, error) {
	return NewPromptTemplate(template, "context", "question")
}

// NewCypherPrompt builds the query generation prompt from a user supplied
// template with {schema} and {question} placeholders.
func NewCypherPrompt(template string) (*PromptTemplate, error) {
	return NewPromptTemplate(template, "schema", "question")
}
