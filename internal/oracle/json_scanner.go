package oracle

// findJSONCandidates scans the input for top-level JSON object or array
// candidates. It returns a slice of substrings, each a potential JSON value.
// It tracks nested delimiters and string escaping to identify boundaries
// correctly; validity of each candidate is decided by the caller's
// json.Unmarshal, not here.
//
// A byte-level state machine is used to skip over strings and surrounding
// prose. Iterating bytes is safe for the ASCII delimiters ({, }, [, ], ", \)
// because UTF-8 guarantees ASCII bytes never appear inside a multi-byte
// sequence.
func findJSONCandidates(s string) []string {
	var candidates []string
	var depth int
	var start = -1
	var inString bool
	var escape bool

	for i := 0; i < len(s); i++ {
		b := s[i]

		if escape {
			escape = false
			continue
		}
		if inString {
			if b == '\\' {
				escape = true
			} else if b == '"' {
				inString = false
			}
			continue
		}
		// Only track string state inside a candidate; quotes in surrounding
		// prose are irrelevant and tracking them would derail the scan.
		if b == '"' && depth > 0 {
			inString = true
			continue
		}

		switch b {
		case '{', '[':
			if depth == 0 {
				start = i
			}
			depth++
		case '}', ']':
			// Closers before any opener are prose; ignore them.
			if depth > 0 {
				depth--
				if depth == 0 && start != -1 {
					candidates = append(candidates, s[start:i+1])
					start = -1
				}
			}
		}
	}
	return candidates
}
