package ai

import (
	"strings"

	"github.com/smartpath-ai-go/internal/config"
	"github.com/smartpath-ai-go/internal/models"
)

// PromptBuilder renders a request into the exact text sent to the model.
// Pure and deterministic: identical inputs always yield identical output.
type PromptBuilder struct {
	subjects map[string]config.Subject
}

// NewPromptBuilder creates a prompt builder over the subject catalog
func NewPromptBuilder(subjects map[string]config.Subject) *PromptBuilder {
	return &PromptBuilder{subjects: subjects}
}

// Build produces the persona preamble, subject/difficulty/language
// context, the structural checklist for the kind, and finally the user
// text under a fixed label.
func (b *PromptBuilder) Build(userText string, opts models.GenerationOptions) string {
	var sb strings.Builder

	class := opts.Class
	if class == "" {
		class = "9th/10th"
	}

	switch opts.Kind {
	case models.KindDoubtSolve:
		sb.WriteString("You are an expert CBSE tutor helping a Class " + class + " student. ")
	case models.KindHomework:
		sb.WriteString("You are helping a CBSE student solve their homework problem. ")
	case models.KindNotes:
		sb.WriteString("Generate comprehensive study notes for CBSE Class " + class + ". ")
	case models.KindQuiz:
		sb.WriteString("Create a practice test question for CBSE Class " + class + ". ")
	default:
		sb.WriteString("You are an AI tutor for CBSE students. ")
	}

	if opts.Subject != "" {
		if subject, ok := b.subjects[opts.Subject]; ok {
			sb.WriteString("Subject: " + subject.Name + ". ")
		}
	}

	if opts.Difficulty != "" {
		sb.WriteString("Difficulty level: " + opts.Difficulty + ". ")
	}

	if opts.Language == "HI" {
		sb.WriteString("Provide explanations in both Hindi and English where helpful. ")
	}

	switch opts.Kind {
	case models.KindDoubtSolve:
		sb.WriteString(`Provide a step-by-step solution with clear explanations. Include:
1. Problem understanding
2. Step-by-step solution
3. Final answer
4. Key concepts used
5. Tips to remember

`)
	case models.KindHomework:
		sb.WriteString(`Provide detailed homework help including:
1. Problem analysis
2. Solution approach
3. Step-by-step working
4. Final answer
5. Similar practice problems

`)
	case models.KindNotes:
		sb.WriteString(`Create comprehensive notes including:
1. Key concepts
2. Important formulas/facts
3. Examples
4. Practice questions
5. Memory tips

`)
	}

	sb.WriteString("\n\nStudent's question/request: " + userText)

	return sb.String()
}
