package llm

import (
	_ "embed"
	"strings"
	"text/template"
)

// PromptVersion identifies the instruction template in use.
const PromptVersion = "feedback_v1"

// ResponseFormat describes the JSON object the model must return.
const ResponseFormat = `{
  "score": number,          // overall score from 0 to 100
  "summary": string,        // two or three sentences
  "strengths": string[],    // what the résumé does well
  "weaknesses": string[],   // what hurts the résumé, including ATS problems
  "improvements": string[]  // concrete edits the candidate should make
}`

//go:embed prompts/feedback_v1.txt
var feedbackTemplateText string

var feedbackTemplate = template.Must(template.New(PromptVersion).Parse(feedbackTemplateText))

// BuildInstruction renders the feedback instruction for a job context.
// Empty title or description are rendered as "not provided".
func BuildInstruction(jobTitle, jobDescription string) string {
	data := struct {
		JobTitle       string
		JobDescription string
		ResponseFormat string
	}{
		JobTitle:       orNotProvided(jobTitle),
		JobDescription: orNotProvided(jobDescription),
		ResponseFormat: ResponseFormat,
	}
	var b strings.Builder
	// The template is parsed at init and only reads string fields.
	_ = feedbackTemplate.Execute(&b, data)
	return b.String()
}

func orNotProvided(s string) string {
	if strings.TrimSpace(s) == "" {
		return "not provided"
	}
	return strings.TrimSpace(s)
}
