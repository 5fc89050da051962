// Package model is the typed entity graph for one parsed assessment:
// test, parts, sections, questions and their content blocks. Pure data
// plus invariant checks; parsing and rendering live elsewhere.
package model

// Undefined is the sentinel carried by string attributes that were absent
// in the source. Callers must treat it as "no constraint", never as a value.
const Undefined = "UNDEFINED"

// DefaultLanguage is assumed when an item declares no xml:lang.
const DefaultLanguage = "en"

type NavigationMode string

const (
	NavigationLinear    NavigationMode = "Linear"
	NavigationNonlinear NavigationMode = "Nonlinear"
)

type SubmissionMode string

const (
	SubmissionIndividual   SubmissionMode = "Individual"
	SubmissionSimultaneous SubmissionMode = "Simultaneous"
)

// Identifiable is the common capability of every addressable entity.
type Identifiable interface {
	ID() string
}

// Choice is one selectable option. Text is verbatim source text: an empty
// string is a real, preserved choice, distinct from a missing one.
type Choice struct {
	Identifier string
	Text       string
}

func (c Choice) ID() string { return c.Identifier }

// Answer is one scored free-text alternative from a response mapping.
type Answer struct {
	Text         string
	Score        float64
	Alternatives []Answer
}

// ResponseDeclaration is the expected-answer contract of a question.
// CorrectChoices only ever holds choices that exist in the same question's
// body: identifiers with no matching choice are dropped during resolution.
type ResponseDeclaration struct {
	Identifier     string
	Cardinality    string
	BaseType       string
	CorrectChoices []Choice
	CorrectAnswers []Answer
}

func (r ResponseDeclaration) ID() string { return r.Identifier }

// Prompt is guidance text for an interaction: a short text, detailed
// paragraphs, or both.
type Prompt struct {
	Text       string
	Paragraphs []ParagraphBlock
}

// ExtendedTextInteraction is a block-level free-text (essay) widget.
type ExtendedTextInteraction struct {
	Identifier string
	Prompts    []Prompt
}

func (e ExtendedTextInteraction) ID() string { return e.Identifier }

// QuestionBody is the content container of one item. Paragraphs keep
// document order; choices and prompts are identifier/content sets whose
// order carries no meaning. MinChoices/MaxChoices are string passthroughs
// from the source, Undefined when absent.
type QuestionBody struct {
	Identifier string
	Label      string
	ClassName  string
	Language   string
	TextDir    string
	MinChoices string
	MaxChoices string
	Choices    []Choice
	Prompts    []Prompt
	Paragraphs []ParagraphBlock
}

func (b QuestionBody) ID() string { return b.Identifier }

// ChoiceByID looks a choice up by identifier.
func (b QuestionBody) ChoiceByID(id string) (Choice, bool) {
	for _, c := range b.Choices {
		if c.Identifier == id {
			return c, true
		}
	}
	return Choice{}, false
}

// ModalFeedback is conditional feedback shown after submission. Hidden is
// true unless the source explicitly showed it.
type ModalFeedback struct {
	Identifier string
	Title      string
	Hidden     bool
	Paragraphs []ParagraphBlock
}

func (f ModalFeedback) ID() string { return f.Identifier }

// Question is one assessment item.
type Question struct {
	Identifier    string
	Title         string
	Label         string
	Language      string
	ToolName      string
	ToolVersion   string
	Adaptive      bool
	TimeDependent bool
	MaxScore      float64
	Body          QuestionBody
	Responses     []ResponseDeclaration
	Feedbacks     []ModalFeedback
}

func (q Question) ID() string { return q.Identifier }

// ResponseByID looks a response declaration up by identifier.
func (q Question) ResponseByID(id string) (ResponseDeclaration, bool) {
	for _, r := range q.Responses {
		if r.Identifier == id {
			return r, true
		}
	}
	return ResponseDeclaration{}, false
}

// TestSection groups questions inside a part and may nest sub-sections.
type TestSection struct {
	Identifier   string
	Title        string
	ClassName    string
	Visible      bool
	Required     bool
	Fixed        bool
	KeepTogether bool
	Questions    []Question
	SubSections  []TestSection
}

func (s TestSection) ID() string { return s.Identifier }

// AssessmentSection is the QTI vocabulary name for a TestSection.
type AssessmentSection = TestSection

// TestPart is a high-level division of a test.
type TestPart struct {
	Identifier     string
	Title          string
	ClassName      string
	NavigationMode NavigationMode
	SubmissionMode SubmissionMode
	Sections       []TestSection
}

func (p TestPart) ID() string { return p.Identifier }

// NewTestPart validates that sibling section titles are unique.
func NewTestPart(identifier, title string, nav NavigationMode, sub SubmissionMode, sections []TestSection) (TestPart, error) {
	seen := make(map[string]bool, len(sections))
	for _, s := range sections {
		if seen[s.Title] {
			return TestPart{}, &DuplicateNameError{Scope: "test part", Title: s.Title}
		}
		seen[s.Title] = true
	}
	return TestPart{
		Identifier:     identifier,
		Title:          title,
		NavigationMode: nav,
		SubmissionMode: sub,
		Sections:       sections,
	}, nil
}

// AssessmentDefinition is the whole test document.
type AssessmentDefinition struct {
	Identifier  string
	Title       string
	ClassName   string
	ToolName    string
	ToolVersion string
	Parts       []TestPart
}

// TestDefinition is an alias kept for callers speaking the generic
// (non-QTI) vocabulary.
type TestDefinition = AssessmentDefinition

func (d AssessmentDefinition) ID() string { return d.Identifier }

// NewAssessmentDefinition validates that sibling part titles are unique.
func NewAssessmentDefinition(identifier, title string, parts []TestPart) (*AssessmentDefinition, error) {
	seen := make(map[string]bool, len(parts))
	for _, p := range parts {
		if seen[p.Title] {
			return nil, &DuplicateNameError{Scope: "test definition", Title: p.Title}
		}
		seen[p.Title] = true
	}
	return &AssessmentDefinition{Identifier: identifier, Title: title, Parts: parts}, nil
}

// Questions flattens all questions of the definition in document order,
// descending into nested sub-sections.
func (d AssessmentDefinition) Questions() []Question {
	var out []Question
	for _, p := range d.Parts {
		for _, s := range p.Sections {
			out = append(out, sectionQuestions(s)...)
		}
	}
	return out
}

func sectionQuestions(s TestSection) []Question {
	out := append([]Question(nil), s.Questions...)
	for _, sub := range s.SubSections {
		out = append(out, sectionQuestions(sub)...)
	}
	return out
}
