package parser

import (
	"encoding/xml"
	"io"
	"strings"
)

// element is a lightweight DOM node. Tags are local names with any
// namespace and the QTI "qti-" prefix stripped, so handlers compare
// against bare vocabulary names ("assessment-test", "simple-choice", "p").
// Content keeps text runs and child elements interleaved in document
// order, which the inline-splitting rule depends on.
type element struct {
	tag     string
	attrs   map[string]string
	content []segment
}

// segment is one ordered content entry: text when child is nil.
type segment struct {
	text  string
	child *element
}

func localTag(n xml.Name) string {
	t := n.Local
	// Some producers emit the namespace inside the local name.
	if i := strings.LastIndex(t, "}"); i >= 0 {
		t = t[i+1:]
	}
	return strings.TrimPrefix(t, "qti-")
}

// decodeTree reads one XML document into an element tree. The decoder's
// charset hook passes bytes through unchanged because input is transcoded
// to UTF-8 before it gets here, regardless of what the prolog declares.
func decodeTree(r io.Reader) (*element, error) {
	dec := xml.NewDecoder(r)
	dec.CharsetReader = func(charset string, input io.Reader) (io.Reader, error) {
		return input, nil
	}

	var root *element
	var stack []*element
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			el := &element{tag: localTag(t.Name), attrs: map[string]string{}}
			for _, a := range t.Attr {
				el.attrs[localTag(a.Name)] = a.Value
			}
			if len(stack) == 0 {
				root = el
			} else {
				parent := stack[len(stack)-1]
				parent.content = append(parent.content, segment{child: el})
			}
			stack = append(stack, el)
		case xml.EndElement:
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		case xml.CharData:
			if len(stack) > 0 {
				cur := stack[len(stack)-1]
				cur.content = append(cur.content, segment{text: string(t)})
			}
		}
	}
	if root == nil {
		return nil, io.ErrUnexpectedEOF
	}
	return root, nil
}

// attr returns the attribute value or def when absent.
func (e *element) attr(name, def string) string {
	if v, ok := e.attrs[name]; ok {
		return v
	}
	return def
}

// children returns the direct child elements in document order.
func (e *element) children() []*element {
	var out []*element
	for _, s := range e.content {
		if s.child != nil {
			out = append(out, s.child)
		}
	}
	return out
}

// text flattens all descendant text in document order, like itertext.
func (e *element) text() string {
	var b strings.Builder
	e.writeText(&b)
	return b.String()
}

func (e *element) writeText(b *strings.Builder) {
	for _, s := range e.content {
		if s.child != nil {
			s.child.writeText(b)
		} else {
			b.WriteString(s.text)
		}
	}
}
