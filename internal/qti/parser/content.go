package parser

import (
	"strings"

	"github.com/openassess/qtibridge/internal/qti/model"
)

// bodyContent is everything one body/feedback fragment yields: the ordered
// paragraph run plus the side structures discovered while scanning it.
type bodyContent struct {
	paragraphs []model.ParagraphBlock
	prompts    []model.Prompt
	choices    []model.Choice
	minChoices string
	maxChoices string
}

// parseContent walks the direct children of a body fragment in document
// order. Unknown elements are skipped; new vocabulary must never break
// an otherwise parseable document.
func parseContent(fragment *element) bodyContent {
	out := bodyContent{minChoices: model.Undefined, maxChoices: model.Undefined}
	if fragment == nil {
		return out
	}
	for _, child := range fragment.children() {
		switch child.tag {
		case "p":
			out.paragraphs = append(out.paragraphs, parseParagraph(child))
		case "pre":
			out.paragraphs = append(out.paragraphs, model.PreformattedParagraph(strings.TrimSpace(child.text())))
		case "div":
			for _, quote := range child.children() {
				if quote.tag == "blockquote" {
					out.paragraphs = append(out.paragraphs, model.QuoteParagraph(parseBlockQuote(quote)))
				}
			}
		case "extended-text-interaction":
			inter := parseExtendedText(child)
			out.prompts = append(out.prompts, inter.Prompts...)
		case "choice-interaction":
			ci := parseChoiceInteraction(child)
			out.choices = append(out.choices, ci.choices...)
			out.prompts = append(out.prompts, ci.prompts...)
			out.minChoices = ci.minChoices
			out.maxChoices = ci.maxChoices
		}
	}
	return out
}

// parseParagraph applies the text-vs-inline rule: a paragraph containing at
// least one text-entry widget becomes an ordered run of text and widget
// markers with its own text left empty; otherwise all descendant text is
// flattened into a single trimmed string.
func parseParagraph(p *element) model.ParagraphBlock {
	runs, hasWidget := inlineRuns(p)
	if hasWidget {
		return model.InlineParagraph(runs)
	}
	return model.TextParagraph(strings.TrimSpace(p.text()))
}

// inlineRuns splits a paragraph on each text-entry widget boundary,
// preserving leading and trailing text runs.
func inlineRuns(p *element) ([]model.InlineElement, bool) {
	var (
		runs   []model.InlineElement
		buf    strings.Builder
		widget bool
	)
	flush := func() {
		if s := strings.TrimSpace(buf.String()); s != "" {
			runs = append(runs, model.TextRun(s))
		}
		buf.Reset()
	}
	var walk func(e *element)
	walk = func(e *element) {
		for _, seg := range e.content {
			if seg.child == nil {
				buf.WriteString(seg.text)
				continue
			}
			if seg.child.tag == "text-entry-interaction" {
				flush()
				runs = append(runs, model.TextEntryInteraction{
					Identifier: seg.child.attr("response-identifier", model.Undefined),
				})
				widget = true
				continue
			}
			walk(seg.child)
		}
	}
	walk(p)
	flush()
	return runs, widget
}

// parseBlockQuote parses each inner paragraph of a quotation wrapper with
// the same text-vs-inline rule as top-level paragraphs.
func parseBlockQuote(quote *element) model.BlockQuote {
	var paragraphs []model.ParagraphBlock
	for _, p := range quote.children() {
		if p.tag == "p" {
			paragraphs = append(paragraphs, parseParagraph(p))
		}
	}
	return model.BlockQuote{Paragraphs: paragraphs}
}

// parseExtendedText extracts the prompts of an essay widget.
func parseExtendedText(el *element) model.ExtendedTextInteraction {
	inter := model.ExtendedTextInteraction{
		Identifier: el.attr("response-identifier", model.Undefined),
	}
	for _, child := range el.children() {
		if child.tag == "prompt" {
			inter.Prompts = append(inter.Prompts, model.Prompt{Text: strings.TrimSpace(child.text())})
		}
	}
	return inter
}

type choiceInteraction struct {
	choices    []model.Choice
	prompts    []model.Prompt
	minChoices string
	maxChoices string
}

// parseChoiceInteraction collects simple choices and prompt paragraphs.
// Choice text is kept verbatim after trimming: an empty label is a valid
// choice and must survive. The min/max constraints stay raw strings; the
// Undefined sentinel means the source declared no constraint.
func parseChoiceInteraction(el *element) choiceInteraction {
	ci := choiceInteraction{
		minChoices: el.attr("min-choices", model.Undefined),
		maxChoices: el.attr("max-choices", model.Undefined),
	}
	for _, child := range el.children() {
		switch child.tag {
		case "simple-choice":
			ci.choices = append(ci.choices, model.Choice{
				Identifier: child.attr("identifier", model.Undefined),
				Text:       strings.TrimSpace(child.text()),
			})
		case "prompt":
			var paragraphs []model.ParagraphBlock
			for _, p := range child.children() {
				if p.tag == "p" {
					paragraphs = append(paragraphs, model.TextParagraph(strings.TrimSpace(p.text())))
				}
			}
			ci.prompts = append(ci.prompts, model.Prompt{Paragraphs: paragraphs})
		}
	}
	return ci
}
