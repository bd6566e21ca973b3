package ai

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/smartpath-ai-go/internal/config"
	"github.com/smartpath-ai-go/internal/models"
)

func testSubjects() map[string]config.Subject {
	return map[string]config.Subject{
		"mathematics": {Name: "Mathematics", Topics: []string{"Polynomials"}},
		"science":     {Name: "Science"},
	}
}

func TestPromptBuilder_Deterministic(t *testing.T) {
	b := NewPromptBuilder(testSubjects())
	opts := models.GenerationOptions{
		Kind:       models.KindDoubtSolve,
		Subject:    "mathematics",
		Difficulty: "hard",
		Language:   "HI",
	}

	first := b.Build("solve x^2 = 4", opts)
	second := b.Build("solve x^2 = 4", opts)

	assert.Equal(t, first, second)
	assert.NotEmpty(t, first)
}

func TestPromptBuilder_DoubtSolveLayout(t *testing.T) {
	b := NewPromptBuilder(testSubjects())

	prompt := b.Build("what is an average?", models.GenerationOptions{
		Kind:       models.KindDoubtSolve,
		Subject:    "mathematics",
		Difficulty: "medium",
	})

	assert.True(t, strings.HasPrefix(prompt, "You are an expert CBSE tutor helping a Class 9th/10th student. "))
	assert.Contains(t, prompt, "Subject: Mathematics. ")
	assert.Contains(t, prompt, "Difficulty level: medium. ")
	assert.Contains(t, prompt, "1. Problem understanding")
	assert.True(t, strings.HasSuffix(prompt, "Student's question/request: what is an average?"))
	assert.NotContains(t, prompt, "Hindi")
}

func TestPromptBuilder_BilingualLine(t *testing.T) {
	b := NewPromptBuilder(testSubjects())

	prompt := b.Build("explain gravity", models.GenerationOptions{
		Kind:     models.KindDoubtSolve,
		Language: "HI",
	})

	assert.Contains(t, prompt, "Provide explanations in both Hindi and English where helpful. ")
}

func TestPromptBuilder_UnknownSubjectOmitted(t *testing.T) {
	b := NewPromptBuilder(testSubjects())

	prompt := b.Build("hi", models.GenerationOptions{
		Kind:    models.KindDoubtSolve,
		Subject: "astrology",
	})

	assert.NotContains(t, prompt, "Subject:")
}

func TestPromptBuilder_DefaultPersona(t *testing.T) {
	b := NewPromptBuilder(testSubjects())

	prompt := b.Build("translate this", models.GenerationOptions{Kind: models.KindTranslate})

	assert.True(t, strings.HasPrefix(prompt, "You are an AI tutor for CBSE students. "))
}

func TestPromptBuilder_ClassOverride(t *testing.T) {
	b := NewPromptBuilder(testSubjects())

	prompt := b.Build("q", models.GenerationOptions{Kind: models.KindNotes, Class: "10th"})

	assert.True(t, strings.HasPrefix(prompt, "Generate comprehensive study notes for CBSE Class 10th. "))
}
