package model

// ParagraphKind discriminates the three content forms a paragraph can take.
type ParagraphKind int

const (
	ParagraphText ParagraphKind = iota
	ParagraphInline
	ParagraphQuote
)

// InlineElement is one entry of an inline-element sequence: either a TextRun
// or a TextEntryInteraction marker, in document order.
type InlineElement interface{ isInline() }

// TextRun is a literal run of text between inline widgets.
type TextRun string

func (TextRun) isInline() {}

// TextEntryInteraction is a single-line fill-in widget. Its identifier links
// the blank to a response declaration of the enclosing item.
type TextEntryInteraction struct {
	Identifier string
}

func (TextEntryInteraction) isInline() {}

func (t TextEntryInteraction) ID() string { return t.Identifier }

// BlockQuote holds quoted content: an ordered run of paragraphs.
type BlockQuote struct {
	Paragraphs []ParagraphBlock
}

// ParagraphBlock is a tagged variant: exactly one of the three content forms
// is populated, fixed at construction time. Source documents mix the forms
// freely but a single paragraph is always one of them.
type ParagraphBlock struct {
	kind         ParagraphKind
	text         string
	preformatted bool
	inline       []InlineElement
	quotes       []BlockQuote
}

// TextParagraph builds a plain-text paragraph.
func TextParagraph(text string) ParagraphBlock {
	return ParagraphBlock{kind: ParagraphText, text: text}
}

// PreformattedParagraph builds a plain-text paragraph whose whitespace the
// renderer must preserve (source <pre> content).
func PreformattedParagraph(text string) ParagraphBlock {
	return ParagraphBlock{kind: ParagraphText, text: text, preformatted: true}
}

// InlineParagraph builds a paragraph of alternating text runs and inline
// widgets. The paragraph's own text stays empty.
func InlineParagraph(elems []InlineElement) ParagraphBlock {
	return ParagraphBlock{kind: ParagraphInline, inline: elems}
}

// QuoteParagraph wraps block quotes as one paragraph with empty text.
func QuoteParagraph(quotes ...BlockQuote) ParagraphBlock {
	return ParagraphBlock{kind: ParagraphQuote, quotes: quotes}
}

func (p ParagraphBlock) Kind() ParagraphKind { return p.kind }

// Text returns the plain text. Empty unless Kind is ParagraphText.
func (p ParagraphBlock) Text() string { return p.text }

// Preformatted reports whether the text form must keep its whitespace.
func (p ParagraphBlock) Preformatted() bool { return p.preformatted }

// Inline returns the inline-element sequence. Nil unless Kind is ParagraphInline.
func (p ParagraphBlock) Inline() []InlineElement { return p.inline }

// Quotes returns the owned block quotes. Nil unless Kind is ParagraphQuote.
func (p ParagraphBlock) Quotes() []BlockQuote { return p.quotes }
