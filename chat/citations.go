package chat

import (
	"fmt"
	"regexp"
	"strings"
)

// citationMarker matches the bracketed citation convention the system
// prompt asks the model for: [<Type> <Number>: <Title>] with Type one
// of Article, Section or Policy (case-sensitive). Anything else inside
// brackets is left alone.
var citationMarker = regexp.MustCompile(`\[(Article|Section|Policy)\s+([^:\]]+):\s*([^\]]+)\]`)

// ExtractCitations scans generated text for citation markers, resolves
// each against the documentInfo lookup, and rewrites every marker to an
// inline link [<original>](<citation-id>). IDs are sequential in order
// of appearance. Markers whose reference is not in the lookup are still
// recorded, just without document provenance (the answer cited a number
// we never extracted, so there is nothing to deep-link). Duplicate
// references are recorded once per appearance.
//
// The rewrite splices by match index rather than replacing by value, so
// repeated or overlapping marker text cannot be processed twice.
func ExtractCitations(text string, info map[string]DocumentRef) (string, []Citation) {
	matches := citationMarker.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return text, []Citation{}
	}

	var out strings.Builder
	citations := make([]Citation, 0, len(matches))
	last := 0
	for n, m := range matches {
		original := text[m[0]:m[1]]
		citeType := text[m[2]:m[3]]
		number := strings.TrimSpace(text[m[4]:m[5]])
		title := strings.TrimSpace(text[m[6]:m[7]])

		citation := Citation{
			ID:        fmt.Sprintf("citation-%d", n),
			Reference: fmt.Sprintf("%s %s: %s", citeType, number, title),
		}
		key := strings.ToLower(citeType + " " + number)
		if ref, ok := info[key]; ok {
			citation.DocumentID = ref.DocumentID
			citation.FileName = ref.FileName
			citation.Position = ref.Position
		}
		citations = append(citations, citation)

		out.WriteString(text[last:m[0]])
		out.WriteString(original)
		out.WriteString("(")
		out.WriteString(citation.ID)
		out.WriteString(")")
		last = m[1]
	}
	out.WriteString(text[last:])

	return out.String(), citations
}
