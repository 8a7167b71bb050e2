package roster

import (
	"regexp"
	"strings"

	"github.com/sells-group/dds-finder/internal/model"
)

// pdfLinkRe finds the shortest http(s) URL ending in ".pdf".
var pdfLinkRe = regexp.MustCompile(`(?i)https?://[^\s\p{Zs}]+?\.pdf`)

// parseState is the accumulator threaded through the roster lines.
type parseState struct {
	town      string
	providers []model.Provider
	seen      map[string]struct{}
	// lastCandidate is the most recent line that could name a provider whose
	// link appears on a later line.
	lastCandidate string
}

// ParseProviders extracts provider records from the cleaned text lines of a
// town roster. Each provider line ends in a link to its profile PDF; a line
// starting with "(" continues the previous provider's name. Links are
// unique in the result and the first occurrence wins.
//
// Names wrapped over more than two physical lines are not reassembled.
func ParseProviders(lines []string, town string) []model.Provider {
	st := parseState{town: town, seen: make(map[string]struct{})}
	for _, line := range lines {
		st.step(line)
	}
	return st.providers
}

func (s *parseState) step(line string) {
	if strings.HasPrefix(line, "(") && len(s.providers) > 0 {
		last := &s.providers[len(s.providers)-1]
		last.Name = strings.TrimSpace(last.Name + " " + line)
		return
	}

	loc := pdfLinkRe.FindStringIndex(line)
	if loc == nil {
		if IsCandidateName(line, s.town) {
			s.lastCandidate = line
		}
		return
	}

	link := line[loc[0]:loc[1]]
	if _, dup := s.seen[link]; dup {
		return
	}
	s.seen[link] = struct{}{}

	name := s.chooseName(strings.TrimSpace(line[:loc[0]]))
	if name != "" {
		s.lastCandidate = name
	} else {
		name = InferNameFromURL(link)
	}
	s.providers = append(s.providers, model.Provider{Name: name, Link: link})
}

// chooseName picks the explicit provider name for a link line: the text
// before the link, else the last candidate line seen. Empty means the name
// must be inferred from the link.
func (s *parseState) chooseName(namePart string) string {
	if IsCandidateName(namePart, s.town) {
		return namePart
	}
	if s.lastCandidate != "" && IsCandidateName(s.lastCandidate, s.town) {
		return s.lastCandidate
	}
	return ""
}
