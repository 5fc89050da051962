package parser

import (
	"bytes"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/openassess/qtibridge/internal/qti/model"
)

// buildQuestion assembles one Question from an assessment-item element or,
// when the element carries an href, from the referenced file resolved
// relative to baseDir. A missing or unparsable referenced file is an
// item-level failure: the caller logs it and drops the item, the rest of
// the document still builds.
func buildQuestion(el *element, baseDir string) (model.Question, error) {
	identifier := el.attr("identifier", model.Undefined)

	if href := el.attr("href", ""); href != "" {
		path := filepath.Join(baseDir, href)
		b, err := os.ReadFile(path)
		if err != nil {
			return model.Question{}, fmt.Errorf("item %s: read %s: %w", identifier, path, err)
		}
		item, err := decodeTree(bytes.NewReader(b))
		if err != nil {
			return model.Question{}, fmt.Errorf("item %s: parse %s: %w", identifier, path, err)
		}
		return assembleQuestion(identifier, item), nil
	}
	return assembleQuestion(identifier, el), nil
}

// assembleQuestion partitions the item's children and builds the question
// in two phases: the body first, so its choices exist, then the response
// declarations resolved against that choice set.
func assembleQuestion(identifier string, item *element) model.Question {
	var (
		responseEls []*element
		feedbackEls []*element
		bodyEl      *element
	)
	for _, child := range item.children() {
		switch child.tag {
		case "response-declaration":
			responseEls = append(responseEls, child)
		case "outcome-declaration", "response-processing":
			// collected vocabulary, not modeled
		case "item-body":
			bodyEl = child
		case "modal-feedback":
			feedbackEls = append(feedbackEls, child)
		}
	}

	body := buildQuestionBody(bodyEl)
	responses := buildResponseDeclarations(responseEls, body.Choices)

	return model.Question{
		Identifier:    identifier,
		Title:         item.attr("title", identifier),
		Language:      item.attr("lang", model.DefaultLanguage),
		Adaptive:      item.attr("adaptive", "") == "true",
		TimeDependent: item.attr("time-dependent", "") == "true",
		Body:          body,
		Responses:     responses,
		Feedbacks:     buildFeedbacks(feedbackEls),
	}
}

// buildQuestionBody runs the content parser over the item body and lifts
// its results into the body entity.
func buildQuestionBody(bodyEl *element) model.QuestionBody {
	content := parseContent(bodyEl)
	body := model.QuestionBody{
		Choices:    content.choices,
		Prompts:    content.prompts,
		Paragraphs: content.paragraphs,
		MinChoices: content.minChoices,
		MaxChoices: content.maxChoices,
	}
	if bodyEl != nil {
		body.Identifier = bodyEl.attr("identifier", "")
		body.Label = bodyEl.attr("label", "")
		body.ClassName = bodyEl.attr("class", "")
		body.Language = bodyEl.attr("lang", "")
		body.TextDir = bodyEl.attr("dir", "")
	}
	return body
}

// buildResponseDeclarations resolves each declaration against the choices
// already parsed from the same item's body.
func buildResponseDeclarations(els []*element, choices []model.Choice) []model.ResponseDeclaration {
	var out []model.ResponseDeclaration
	for _, el := range els {
		decl := model.ResponseDeclaration{
			Identifier:  el.attr("identifier", model.Undefined),
			Cardinality: el.attr("cardinality", model.Undefined),
			BaseType:    el.attr("base-type", model.Undefined),
		}
		for _, child := range el.children() {
			switch child.tag {
			case "correct-response":
				decl.CorrectChoices = append(decl.CorrectChoices, resolveCorrectChoices(child, choices)...)
			case "mapping":
				decl.CorrectAnswers = append(decl.CorrectAnswers, buildMapping(child)...)
			}
		}
		out = append(out, decl)
	}
	return out
}

// resolveCorrectChoices matches correct-response values against the choice
// set. An identifier with no matching choice is dropped, never fabricated:
// schema variance here is tolerated, not repaired.
func resolveCorrectChoices(correctEl *element, choices []model.Choice) []model.Choice {
	var out []model.Choice
	for _, value := range correctEl.children() {
		if value.tag != "value" {
			continue
		}
		id := strings.TrimSpace(value.text())
		for _, c := range choices {
			if c.Identifier == id {
				out = append(out, c)
				break
			}
		}
	}
	return out
}

// buildMapping turns each map-entry into a scored Answer: the key is the
// expected text, the mapped value its score.
func buildMapping(mappingEl *element) []model.Answer {
	var out []model.Answer
	for _, entry := range mappingEl.children() {
		if entry.tag != "map-entry" {
			continue
		}
		score, err := strconv.ParseFloat(entry.attr("mapped-value", "0"), 64)
		if err != nil {
			log.Printf("qti: map-entry %q: bad mapped-value %q, scoring 0", entry.attr("map-key", ""), entry.attr("mapped-value", ""))
			score = 0
		}
		out = append(out, model.Answer{
			Text:  entry.attr("map-key", ""),
			Score: score,
		})
	}
	return out
}

// buildFeedbacks flattens each feedback block's paragraphs. Feedback is
// hidden unless the source says exactly "show".
func buildFeedbacks(els []*element) []model.ModalFeedback {
	var out []model.ModalFeedback
	for _, el := range els {
		fb := model.ModalFeedback{
			Identifier: el.attr("identifier", model.Undefined),
			Title:      el.attr("title", ""),
			Hidden:     showHideAttr(el) != "show",
		}
		for _, child := range el.children() {
			if child.tag != "p" {
				continue
			}
			if text := strings.TrimSpace(child.text()); text != "" {
				fb.Paragraphs = append(fb.Paragraphs, model.TextParagraph(text))
			}
		}
		out = append(out, fb)
	}
	return out
}

// showHideAttr reads the visibility attribute under either of its spellings.
func showHideAttr(el *element) string {
	if v, ok := el.attrs["show-hide"]; ok {
		return v
	}
	return el.attr("showHide", model.Undefined)
}
