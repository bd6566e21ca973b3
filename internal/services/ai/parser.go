package ai

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/smartpath-ai-go/internal/models"
)

// Heuristic decomposition of raw model text into typed records. The model
// returns unstructured prose, so all parsing here is lossy and best
// effort: unmatched lines are dropped, absent structure yields empty
// fields, and nothing ever raises an error.

var (
	numberedLine    = regexp.MustCompile(`^\d+\.`)
	numberedPrefix  = regexp.MustCompile(`^\d+\.\s*`)
	stepPrefix      = regexp.MustCompile(`(?i)^step\s*\d*:?\s*`)
	answerPrefix    = regexp.MustCompile(`(?i)^(answer|final answer):?\s*`)
	conceptPrefix   = regexp.MustCompile(`(?i)^(concept|key concepts?):?\s*`)
	tipPrefix       = regexp.MustCompile(`(?i)^(tip|remember):?\s*`)
	questionMarker  = regexp.MustCompile(`(?i)question\s*\d+`)
	optionLine      = regexp.MustCompile(`(?i)^[a-d]\)`)
	quizAnswerLine  = regexp.MustCompile(`(?i)^answer:?\s*`)
	explanationLine = regexp.MustCompile(`(?i)^explanation:?\s*`)
	branchTitleTrim = regexp.MustCompile(`[:\d.]`)
	itemPrefix      = regexp.MustCompile(`^-\s*`)
	mathChars       = regexp.MustCompile(`[=+\-*/()]`)
)

// ParseSolution decomposes raw text into understanding, steps, answer,
// concepts and tips. Lines are classified in fixed precedence order:
// step lines first, then answer, concepts, tips, and finally the first
// unmatched line becomes the understanding.
func ParseSolution(content string) models.Solution {
	solution := models.Solution{
		Steps:    []models.SolutionStep{},
		Concepts: []string{},
		Tips:     []string{},
	}

	currentSection := "understanding"
	stepCounter := 0

	for _, line := range nonBlankLines(content) {
		lower := strings.ToLower(line)

		switch {
		case strings.Contains(lower, "step") || numberedLine.MatchString(line):
			currentSection = "steps"
			stepCounter++
			desc := numberedPrefix.ReplaceAllString(line, "")
			desc = stepPrefix.ReplaceAllString(desc, "")
			solution.Steps = append(solution.Steps, models.SolutionStep{
				Number:      stepCounter,
				Description: desc,
			})
		case strings.Contains(lower, "answer") || strings.Contains(lower, "final"):
			currentSection = "answer"
			// Last answer line wins.
			solution.Answer = answerPrefix.ReplaceAllString(line, "")
		case strings.Contains(lower, "concept") || strings.Contains(lower, "key"):
			currentSection = "concepts"
			solution.Concepts = append(solution.Concepts, conceptPrefix.ReplaceAllString(line, ""))
		case strings.Contains(lower, "tip") || strings.Contains(lower, "remember"):
			currentSection = "tips"
			solution.Tips = append(solution.Tips, tipPrefix.ReplaceAllString(line, ""))
		default:
			if currentSection == "understanding" && solution.Understanding == "" {
				solution.Understanding = line
			}
		}
	}

	return solution
}

// ParseQuiz splits raw text on "Question N" markers. Text before the
// first marker is discarded as preamble. A question is kept only if its
// text is non-empty; the time limit is two minutes per question.
func ParseQuiz(content string) models.Quiz {
	quiz := models.Quiz{Questions: []models.QuizQuestion{}}

	segments := questionMarker.Split(content, -1)
	for i, segment := range segments {
		if i == 0 {
			continue // preamble
		}

		question := models.QuizQuestion{
			ID:      fmt.Sprintf("q_%d", i),
			Type:    models.QuestionMCQ,
			Options: []string{},
		}
		currentSection := "question"

		for _, line := range nonBlankLines(segment) {
			lower := strings.ToLower(line)

			switch {
			case optionLine.MatchString(line):
				currentSection = "options"
				question.Options = append(question.Options, strings.TrimSpace(line[2:]))
			case strings.Contains(lower, "answer"):
				currentSection = "answer"
				question.CorrectAnswer = quizAnswerLine.ReplaceAllString(line, "")
			case strings.Contains(lower, "explanation"):
				currentSection = "explanation"
				question.Explanation = explanationLine.ReplaceAllString(line, "")
			case currentSection == "question":
				if question.Question != "" {
					question.Question += " "
				}
				question.Question += line
			case currentSection == "explanation":
				question.Explanation += " " + line
			}
		}

		if question.Question != "" {
			quiz.Questions = append(quiz.Questions, question)
		}
	}

	quiz.TotalQuestions = len(quiz.Questions)
	quiz.TimeLimitMinutes = 2 * quiz.TotalQuestions

	return quiz
}

// ParseMindMap builds branches from lines containing ':' or starting
// with a number; '-' lines become items of the current branch. Lines
// before the first branch are dropped.
func ParseMindMap(content string) models.MindMap {
	mindMap := models.MindMap{
		Central:  "Topic",
		Branches: []models.MindMapBranch{},
	}

	for _, line := range nonBlankLines(content) {
		switch {
		case strings.Contains(line, ":") || numberedLine.MatchString(line):
			title := strings.TrimSpace(branchTitleTrim.ReplaceAllString(line, ""))
			mindMap.Branches = append(mindMap.Branches, models.MindMapBranch{
				Title: title,
				Items: []string{},
			})
		case strings.HasPrefix(line, "-") && len(mindMap.Branches) > 0:
			last := &mindMap.Branches[len(mindMap.Branches)-1]
			last.Items = append(last.Items, itemPrefix.ReplaceAllString(line, ""))
		}
	}

	return mindMap
}

// ParseNotes splits raw text into blank-line-delimited paragraphs. The
// first paragraph is the title (default "Study Notes"); each remaining
// paragraph becomes a categorized section.
func ParseNotes(content string) models.NotesDocument {
	doc := models.NotesDocument{
		Title:    "Study Notes",
		Sections: []models.NotesSection{},
	}

	var paragraphs []string
	for _, p := range strings.Split(content, "\n\n") {
		if strings.TrimSpace(p) != "" {
			paragraphs = append(paragraphs, strings.TrimSpace(p))
		}
	}

	if len(paragraphs) == 0 {
		return doc
	}

	doc.Title = paragraphs[0]

	for i, paragraph := range paragraphs[1:] {
		doc.Sections = append(doc.Sections, models.NotesSection{
			ID:       fmt.Sprintf("section_%d", i),
			Title:    extractSectionTitle(paragraph, i+1),
			Content:  paragraph,
			Category: classifySection(paragraph),
		})
	}

	return doc
}

func extractSectionTitle(paragraph string, index int) string {
	lines := strings.SplitN(paragraph, "\n", 2)
	firstLine := strings.TrimSpace(lines[0])

	if strings.Contains(firstLine, ":") || len(firstLine) < 50 {
		title := strings.NewReplacer(":", "", "#", "").Replace(firstLine)
		return strings.TrimSpace(title)
	}

	return fmt.Sprintf("Section %d", index)
}

// classifySection picks a category by keyword presence, checked in
// priority order: formula, example, concept, general.
func classifySection(paragraph string) models.SectionCategory {
	content := strings.ToLower(paragraph)

	switch {
	case strings.Contains(content, "formula") || strings.Contains(content, "equation"):
		return models.SectionFormula
	case strings.Contains(content, "example") || strings.Contains(content, "problem"):
		return models.SectionExample
	case strings.Contains(content, "definition") || strings.Contains(content, "concept"):
		return models.SectionConcept
	default:
		return models.SectionGeneral
	}
}

// ScoreConfidence is a crude quality proxy for UI display ordering, not
// a calibrated probability. Capped at 0.95.
func ScoreConfidence(content string) float64 {
	score := 0.5
	lower := strings.ToLower(content)

	if strings.Contains(lower, "step") {
		score += 0.1
	}
	if strings.Contains(lower, "answer") {
		score += 0.1
	}
	if strings.Contains(lower, "formula") {
		score += 0.1
	}
	if strings.Contains(lower, "example") {
		score += 0.1
	}

	if len(content) > 500 {
		score += 0.1
	}
	if len(content) > 1000 {
		score += 0.1
	}

	if mathChars.MatchString(content) {
		score += 0.05
	}
	if strings.Contains(content, "\n") {
		score += 0.05
	}

	if score > 0.95 {
		score = 0.95
	}
	return score
}

func nonBlankLines(content string) []string {
	var lines []string
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed != "" {
			lines = append(lines, trimmed)
		}
	}
	return lines
}
