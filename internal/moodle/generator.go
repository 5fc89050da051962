// Package moodle renders a parsed assessment definition into Moodle quiz
// XML. The renderer treats the model as read-only input; it never mutates
// what the parser built.
package moodle

import (
	"embed"
	"fmt"
	"html"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/openassess/qtibridge/internal/qti/model"
)

//go:embed templates/moodle.xml.tmpl
var templates embed.FS

// Generator writes the rendered quiz to OutputDir/FileName.
type Generator struct {
	OutputDir string
	FileName  string
}

// Generate renders def and writes the fixed-up result to disk, returning
// the output path. A missing or broken template is fatal.
func (g Generator) Generate(def *model.AssessmentDefinition) (string, error) {
	out := g.OutputDir
	if out == "" {
		out = "output"
	}
	name := g.FileName
	if name == "" {
		name = "moodle.xml"
	}
	rendered, err := Render(def)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(out, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(out, name)
	if err := os.WriteFile(path, []byte(FixText(rendered)), 0o644); err != nil {
		return "", err
	}
	return path, nil
}

// Render produces the Moodle quiz XML for def without touching disk.
func Render(def *model.AssessmentDefinition) (string, error) {
	tmpl, err := template.ParseFS(templates, "templates/moodle.xml.tmpl")
	if err != nil {
		return "", fmt.Errorf("moodle: load template: %w", err)
	}
	var b strings.Builder
	if err := tmpl.Execute(&b, buildQuizView(def)); err != nil {
		return "", fmt.Errorf("moodle: render: %w", err)
	}
	return b.String(), nil
}

// quizView is the flattened shape the template consumes.
type quizView struct {
	Entries []entryView
}

// entryView is either a category marker or a question.
type entryView struct {
	Category string
	Question *questionView
}

type questionView struct {
	Type            string // multichoice | shortanswer | essay
	Name            string
	Text            string // HTML
	Single          bool
	Answers         []answerView
	GeneralFeedback string
}

type answerView struct {
	Fraction string
	Text     string
}

func buildQuizView(def *model.AssessmentDefinition) quizView {
	var view quizView
	for _, part := range def.Parts {
		for _, section := range part.Sections {
			appendSection(&view, def.Title, part.Title, section)
		}
	}
	return view
}

// appendSection emits a category marker per section path, then the section's
// questions. Category paths address sections by title, which is why sibling
// titles must be unique.
func appendSection(view *quizView, testTitle, partTitle string, section model.TestSection) {
	view.Entries = append(view.Entries, entryView{
		Category: fmt.Sprintf("$course$/%s/%s/%s",
			html.EscapeString(testTitle), html.EscapeString(partTitle), html.EscapeString(section.Title)),
	})
	for _, q := range section.Questions {
		qv := buildQuestionView(q)
		view.Entries = append(view.Entries, entryView{Question: &qv})
	}
	for _, sub := range section.SubSections {
		appendSection(view, testTitle, partTitle, sub)
	}
}

func buildQuestionView(q model.Question) questionView {
	qv := questionView{
		Name: html.EscapeString(q.Title),
		Text: cdataSafe(bodyHTML(q.Body)),
	}

	correct := correctChoiceSet(q)
	answers := correctAnswers(q)

	switch {
	case len(q.Body.Choices) > 0:
		qv.Type = "multichoice"
		qv.Single = isSingle(q)
		share := 0.0
		if len(correct) > 0 {
			share = 100.0 / float64(len(correct))
		}
		for _, c := range q.Body.Choices {
			fraction := "0"
			if correct[c.Identifier] {
				fraction = formatFraction(share)
			}
			qv.Answers = append(qv.Answers, answerView{
				Fraction: fraction,
				Text:     cdataSafe(html.EscapeString(c.Text)),
			})
		}
	case len(answers) > 0:
		qv.Type = "shortanswer"
		maxScore := 0.0
		for _, a := range answers {
			if a.Score > maxScore {
				maxScore = a.Score
			}
		}
		for _, a := range answers {
			fraction := "100"
			if maxScore > 0 {
				fraction = formatFraction(a.Score / maxScore * 100)
			}
			qv.Answers = append(qv.Answers, answerView{
				Fraction: fraction,
				Text:     cdataSafe(html.EscapeString(a.Text)),
			})
		}
	default:
		qv.Type = "essay"
	}

	qv.GeneralFeedback = cdataSafe(visibleFeedbackHTML(q))
	return qv
}

// correctChoiceSet unions the correct choices of every response declaration.
func correctChoiceSet(q model.Question) map[string]bool {
	out := map[string]bool{}
	for _, r := range q.Responses {
		for _, c := range r.CorrectChoices {
			out[c.Identifier] = true
		}
	}
	return out
}

// correctAnswers unions the mapped answers of every response declaration,
// including alternatives.
func correctAnswers(q model.Question) []model.Answer {
	var out []model.Answer
	for _, r := range q.Responses {
		for _, a := range r.CorrectAnswers {
			out = append(out, a)
			out = append(out, a.Alternatives...)
		}
	}
	return out
}

// isSingle reports whether at most one choice may be selected. The
// max-choices passthrough wins when present; otherwise cardinality decides.
func isSingle(q model.Question) bool {
	if q.Body.MaxChoices != model.Undefined {
		return q.Body.MaxChoices == "1"
	}
	for _, r := range q.Responses {
		if strings.EqualFold(r.Cardinality, "multiple") {
			return false
		}
	}
	return true
}

// bodyHTML lays the body out as HTML: prompts first, then the ordered
// paragraph run. Inline widgets render as blanks.
func bodyHTML(body model.QuestionBody) string {
	var b strings.Builder
	for _, p := range body.Prompts {
		if p.Text != "" {
			fmt.Fprintf(&b, "<p>%s</p>", html.EscapeString(p.Text))
		}
		for _, pb := range p.Paragraphs {
			writeParagraph(&b, pb)
		}
	}
	for _, pb := range body.Paragraphs {
		writeParagraph(&b, pb)
	}
	return b.String()
}

func writeParagraph(b *strings.Builder, p model.ParagraphBlock) {
	switch p.Kind() {
	case model.ParagraphText:
		if p.Preformatted() {
			fmt.Fprintf(b, "<pre>%s</pre>", html.EscapeString(p.Text()))
			return
		}
		fmt.Fprintf(b, "<p>%s</p>", html.EscapeString(p.Text()))
	case model.ParagraphInline:
		b.WriteString("<p>")
		for _, el := range p.Inline() {
			switch v := el.(type) {
			case model.TextRun:
				b.WriteString(html.EscapeString(string(v)))
				b.WriteString(" ")
			case model.TextEntryInteraction:
				b.WriteString(`<span class="blank">_____</span> `)
			}
		}
		b.WriteString("</p>")
	case model.ParagraphQuote:
		for _, q := range p.Quotes() {
			b.WriteString("<blockquote>")
			for _, inner := range q.Paragraphs {
				writeParagraph(b, inner)
			}
			b.WriteString("</blockquote>")
		}
	}
}

func visibleFeedbackHTML(q model.Question) string {
	var b strings.Builder
	for _, fb := range q.Feedbacks {
		if fb.Hidden {
			continue
		}
		for _, p := range fb.Paragraphs {
			writeParagraph(&b, p)
		}
	}
	return b.String()
}

// formatFraction trims trailing zeros so 100 stays "100" and thirds stay
// readable.
func formatFraction(f float64) string {
	s := fmt.Sprintf("%.5f", f)
	s = strings.TrimRight(s, "0")
	return strings.TrimRight(s, ".")
}

// cdataSafe breaks any CDATA terminator embedded in content.
func cdataSafe(s string) string {
	return strings.ReplaceAll(s, "]]>", "]]&gt;")
}
