package eval

import (
	"strings"

	"github.com/openassess/qtibridge/internal/qti/model"
)

// ItemResult scores one generated question against the reference item it
// matched.
type ItemResult struct {
	Identifier    string  `json:"identifier"`
	MatchedTitle  string  `json:"matched_title"`
	TitleScore    float64 `json:"title_score"`
	BodyScore     float64 `json:"body_score"`
	ChoiceOverlap float64 `json:"choice_overlap"`
	CorrectMatch  bool    `json:"correct_match"`
}

// Report aggregates an offline comparison run.
type Report struct {
	Matched   int          `json:"matched"`
	Unmatched int          `json:"unmatched"`
	Items     []ItemResult `json:"items"`
}

// titleMatchThreshold is the floor under which a fuzzy title match is
// treated as no match at all.
const titleMatchThreshold = 0.55

// Compare matches each generated question to the most similar reference
// question by title and scores body text, choice overlap and correct-answer
// agreement. It never mutates either model.
func Compare(got, want []model.Question) Report {
	var rep Report
	used := make([]bool, len(want))
	for _, g := range got {
		best, bestScore := -1, 0.0
		for i, w := range want {
			if used[i] {
				continue
			}
			if s := Similarity(g.Title, w.Title); s > bestScore {
				best, bestScore = i, s
			}
		}
		if best < 0 || bestScore < titleMatchThreshold {
			rep.Unmatched++
			rep.Items = append(rep.Items, ItemResult{Identifier: g.Identifier})
			continue
		}
		used[best] = true
		w := want[best]
		rep.Matched++
		rep.Items = append(rep.Items, ItemResult{
			Identifier:    g.Identifier,
			MatchedTitle:  w.Title,
			TitleScore:    bestScore,
			BodyScore:     Similarity(bodyText(g.Body), bodyText(w.Body)),
			ChoiceOverlap: choiceOverlap(g.Body.Choices, w.Body.Choices),
			CorrectMatch:  correctSetsEqual(g, w),
		})
	}
	return rep
}

func bodyText(b model.QuestionBody) string {
	var parts []string
	for _, p := range b.Paragraphs {
		parts = append(parts, paragraphText(p))
	}
	return strings.Join(parts, " ")
}

func paragraphText(p model.ParagraphBlock) string {
	switch p.Kind() {
	case model.ParagraphText:
		return p.Text()
	case model.ParagraphInline:
		var parts []string
		for _, el := range p.Inline() {
			if run, ok := el.(model.TextRun); ok {
				parts = append(parts, string(run))
			}
		}
		return strings.Join(parts, " ")
	case model.ParagraphQuote:
		var parts []string
		for _, q := range p.Quotes() {
			for _, inner := range q.Paragraphs {
				parts = append(parts, paragraphText(inner))
			}
		}
		return strings.Join(parts, " ")
	}
	return ""
}

// choiceOverlap is the share of reference choices with a near-identical
// counterpart in the generated set.
func choiceOverlap(got, want []model.Choice) float64 {
	if len(want) == 0 {
		if len(got) == 0 {
			return 1
		}
		return 0
	}
	hit := 0
	for _, w := range want {
		for _, g := range got {
			if Similarity(g.Text, w.Text) >= 0.9 {
				hit++
				break
			}
		}
	}
	return float64(hit) / float64(len(want))
}

// correctSetsEqual compares the union of correct choice texts of both
// questions, order-insensitively.
func correctSetsEqual(got, want model.Question) bool {
	g := correctTexts(got)
	w := correctTexts(want)
	if len(g) != len(w) {
		return false
	}
	for text := range w {
		if !g[text] {
			return false
		}
	}
	return true
}

func correctTexts(q model.Question) map[string]bool {
	out := map[string]bool{}
	for _, r := range q.Responses {
		for _, c := range r.CorrectChoices {
			out[Normalize(c.Text)] = true
		}
		for _, a := range r.CorrectAnswers {
			out[Normalize(a.Text)] = true
		}
	}
	return out
}
