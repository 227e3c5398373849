// Package markup extracts field values and repeated item groups from the
// radio database's loosely-typed SOAP responses. The provider ships no
// schema, wraps repeated values in a flat repeated-element idiom, and nests
// repeated groups (a site inside a system carrying its own frequency list),
// so extraction walks the token stream structurally instead of splitting on
// tag text.
package markup

import (
	"encoding/xml"
	"io"
	"strings"

	"golang.org/x/text/encoding/htmlindex"
)

func newDecoder(doc string) *xml.Decoder {
	dec := xml.NewDecoder(strings.NewReader(doc))
	dec.Strict = false
	dec.CharsetReader = func(charset string, input io.Reader) (io.Reader, error) {
		enc, err := htmlindex.Get(charset)
		if err != nil {
			return nil, err
		}
		return enc.NewDecoder().Reader(input), nil
	}
	return dec
}

// GetText returns the character data of the first element named tag, or ""
// when the element is absent. Child element text is included, matching the
// provider's habit of wrapping leaf values in presentation tags.
func GetText(doc, tag string) string {
	dec := newDecoder(doc)

	depth := 0
	var sb strings.Builder
	for {
		tok, err := dec.Token()
		if err != nil {
			return ""
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if depth > 0 {
				depth++
			} else if t.Name.Local == tag {
				depth = 1
			}
		case xml.EndElement:
			if depth > 0 {
				depth--
				if depth == 0 {
					return strings.TrimSpace(sb.String())
				}
			}
		case xml.CharData:
			if depth > 0 {
				sb.Write(t)
			}
		}
	}
}

// GetGroups returns the raw inner markup of every top-level occurrence of
// container, in document order. Occurrences nested inside another occurrence
// of the same container are left intact inside their parent's segment, so
// re-extracting from an extracted segment yields the inner groups.
//
// Malformed or truncated documents yield a reduced result set (the groups
// completed before the damage), never an error. Callers filter rather than
// assume completeness.
func GetGroups(doc, container string) []string {
	dec := newDecoder(doc)

	var groups []string
	inside := false
	depth := 0
	var start int64

	for {
		off := dec.InputOffset()
		tok, err := dec.Token()
		if err != nil {
			// Truncated input: drop the incomplete trailing group.
			return groups
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if inside {
				depth++
				continue
			}
			if t.Name.Local == container {
				inside = true
				depth = 1
				start = dec.InputOffset()
			}
		case xml.EndElement:
			if !inside {
				continue
			}
			depth--
			if depth == 0 {
				groups = append(groups, doc[start:off])
				inside = false
			}
		}
	}
}

// GetFault returns the provider's fault string when the response carries a
// SOAP fault, or "" for a normal response.
func GetFault(doc string) string {
	return GetText(doc, "faultstring")
}
