package moodle_test

import (
	"encoding/xml"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/openassess/qtibridge/internal/moodle"
	"github.com/openassess/qtibridge/internal/qti/model"
)

func geographyTest(t *testing.T) *model.AssessmentDefinition {
	t.Helper()
	choices := []model.Choice{
		{Identifier: "ChA", Text: "Paris"},
		{Identifier: "ChB", Text: "Lyon"},
	}
	mc := model.Question{
		Identifier: "Q1",
		Title:      "Capital of France",
		Body: model.QuestionBody{
			MaxChoices: "1",
			MinChoices: model.Undefined,
			Choices:    choices,
			Paragraphs: []model.ParagraphBlock{model.TextParagraph("Pick the capital of France.")},
		},
		Responses: []model.ResponseDeclaration{{
			Identifier:     "RESPONSE",
			Cardinality:    "single",
			CorrectChoices: []model.Choice{choices[0]},
		}},
		Feedbacks: []model.ModalFeedback{
			{Identifier: "FB1", Hidden: false, Paragraphs: []model.ParagraphBlock{model.TextParagraph("Paris it is.")}},
			{Identifier: "FB2", Hidden: true, Paragraphs: []model.ParagraphBlock{model.TextParagraph("never shown")}},
		},
	}
	sa := model.Question{
		Identifier: "Q2",
		Title:      "Name the river",
		Body: model.QuestionBody{
			MinChoices: model.Undefined,
			MaxChoices: model.Undefined,
			Paragraphs: []model.ParagraphBlock{model.InlineParagraph([]model.InlineElement{
				model.TextRun("The river through Paris is"),
				model.TextEntryInteraction{Identifier: "RESPONSE"},
			})},
		},
		Responses: []model.ResponseDeclaration{{
			Identifier:  "RESPONSE",
			Cardinality: "single",
			CorrectAnswers: []model.Answer{
				{Text: "Seine", Score: 1},
				{Text: "the Seine", Score: 0.5},
			},
		}},
	}
	essay := model.Question{
		Identifier: "Q3",
		Title:      "Describe the region",
		Body: model.QuestionBody{
			MinChoices: model.Undefined,
			MaxChoices: model.Undefined,
			Prompts:    []model.Prompt{{Text: "Write a short essay."}},
		},
	}

	section := model.TestSection{Identifier: "S1", Title: "Capitals", Questions: []model.Question{mc, sa, essay}}
	part, err := model.NewTestPart("P1", "Part 1", model.NavigationLinear, model.SubmissionIndividual, []model.TestSection{section})
	if err != nil {
		t.Fatal(err)
	}
	def, err := model.NewAssessmentDefinition("T1", "Geography Test", []model.TestPart{part})
	if err != nil {
		t.Fatal(err)
	}
	return def
}

func TestRenderQuestionTypes(t *testing.T) {
	out, err := moodle.Render(geographyTest(t))
	if err != nil {
		t.Fatalf("Render: %v", err)
	}

	for _, want := range []string{
		`<category>`,
		`<text>$course$/Geography Test/Part 1/Capitals</text>`,
		`<question type="multichoice">`,
		`<text>Capital of France</text>`,
		`<single>true</single>`,
		`<answer fraction="100" format="html">`,
		`<![CDATA[Paris]]>`,
		`<answer fraction="0" format="html">`,
		`<![CDATA[Lyon]]>`,
		`<![CDATA[<p>Paris it is.</p>]]>`,
		`<question type="shortanswer">`,
		`<usecase>0</usecase>`,
		`<![CDATA[Seine]]>`,
		`<answer fraction="50" format="html">`,
		`<question type="essay">`,
		`<responseformat>editor</responseformat>`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("rendered output missing %q", want)
		}
	}
	if strings.Contains(out, "never shown") {
		t.Error("hidden feedback leaked into general feedback")
	}
	if !strings.Contains(out, `<span class="blank">_____</span>`) {
		t.Error("inline widget did not render as a blank")
	}
}

func TestRenderSplitsCorrectFraction(t *testing.T) {
	choices := []model.Choice{
		{Identifier: "A", Text: "red"},
		{Identifier: "B", Text: "green"},
		{Identifier: "C", Text: "blue"},
	}
	q := model.Question{
		Title: "Primary colours of light",
		Body:  model.QuestionBody{MaxChoices: "3", MinChoices: model.Undefined, Choices: choices},
		Responses: []model.ResponseDeclaration{{
			Identifier:     "RESPONSE",
			Cardinality:    "multiple",
			CorrectChoices: choices,
		}},
	}
	def := wrapQuestion(t, q)

	out, err := moodle.Render(def)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, `<single>false</single>`) {
		t.Error("max-choices 3 must render as multi-select")
	}
	if got := strings.Count(out, `fraction="33.33333"`); got != 3 {
		t.Errorf("got %d third-fractions, want 3", got)
	}
}

func TestRenderEscapesMarkupInTitles(t *testing.T) {
	q := model.Question{
		Title: "War & <Peace>",
		Body: model.QuestionBody{
			MinChoices: model.Undefined,
			MaxChoices: model.Undefined,
			Paragraphs: []model.ParagraphBlock{model.TextParagraph("x")},
		},
	}
	section := model.TestSection{Identifier: "S1", Title: "Tom & Jerry", Questions: []model.Question{q}}
	part, err := model.NewTestPart("P1", "Q&A Part", model.NavigationLinear, model.SubmissionIndividual, []model.TestSection{section})
	if err != nil {
		t.Fatal(err)
	}
	def, err := model.NewAssessmentDefinition("T1", "Cats & Dogs", []model.TestPart{part})
	if err != nil {
		t.Fatal(err)
	}

	out, err := moodle.Render(def)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "<text>$course$/Cats &amp; Dogs/Q&amp;A Part/Tom &amp; Jerry</text>") {
		t.Errorf("category path not escaped:\n%s", out)
	}
	if !strings.Contains(out, "<text>War &amp; &lt;Peace&gt;</text>") {
		t.Errorf("question name not escaped:\n%s", out)
	}

	// The whole document must stay well-formed.
	dec := xml.NewDecoder(strings.NewReader(out))
	for {
		_, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("rendered document is not well-formed: %v", err)
		}
	}
}

func TestRenderEscapesCDATATerminator(t *testing.T) {
	q := model.Question{
		Title: "Tricky",
		Body: model.QuestionBody{
			MinChoices: model.Undefined,
			MaxChoices: model.Undefined,
			Paragraphs: []model.ParagraphBlock{model.TextParagraph("watch out for ]]> inside text")},
		},
	}
	out, err := moodle.Render(wrapQuestion(t, q))
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(out, "]]> inside") {
		t.Error("CDATA terminator left unescaped in question text")
	}
}

func TestGenerateWritesFixedUpFile(t *testing.T) {
	dir := t.TempDir()
	q := model.Question{
		Title: "Punctuation",
		Body: model.QuestionBody{
			MinChoices: model.Undefined,
			MaxChoices: model.Undefined,
			Paragraphs: []model.ParagraphBlock{model.TextParagraph("It’s a test — really…")},
		},
	}
	gen := moodle.Generator{OutputDir: dir, FileName: "quiz.xml"}
	path, err := gen.Generate(wrapQuestion(t, q))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if path != filepath.Join(dir, "quiz.xml") {
		t.Errorf("path = %q", path)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	got := string(raw)
	if !strings.Contains(got, "It's a test - really...") {
		t.Errorf("typographic punctuation not flattened:\n%s", got)
	}
}

func TestFixText(t *testing.T) {
	cases := []struct{ in, want string }{
		{"plain ascii", "plain ascii"},
		{"“quoted”", `"quoted"`},
		{"dash – and — here", "dash - and - here"},
		{"ellipsis…", "ellipsis..."},
		{"repl�acement", "replacement"},
		// NFC: e + combining acute collapses to é.
		{"café", "café"},
	}
	for _, c := range cases {
		if got := moodle.FixText(c.in); got != c.want {
			t.Errorf("FixText(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func wrapQuestion(t *testing.T, q model.Question) *model.AssessmentDefinition {
	t.Helper()
	section := model.TestSection{Identifier: "S1", Title: "Section", Questions: []model.Question{q}}
	part, err := model.NewTestPart("P1", "Part", model.NavigationLinear, model.SubmissionIndividual, []model.TestSection{section})
	if err != nil {
		t.Fatal(err)
	}
	def, err := model.NewAssessmentDefinition("T1", "Test", []model.TestPart{part})
	if err != nil {
		t.Fatal(err)
	}
	return def
}
