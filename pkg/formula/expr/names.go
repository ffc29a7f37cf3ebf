package expr

import "strings"

// Names lists the scope names a formula reads, in order of first mention.
// Function names are not scope reads; their arguments are.
func Names(expression string) []string {
	toks := tokenize(expression)
	var names []string
	seen := map[string]bool{}

	add := func(name string) {
		if name != "" && !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}

	for i, t := range toks {
		switch t.kind {
		case tokVar:
			// Only the head of a dotted reference is a scope name.
			head, _, _ := strings.Cut(t.text, ".")
			add(head)
		case tokIdent:
			if toks[i+1].kind == tokLParen {
				continue // function call
			}
			head, _, _ := strings.Cut(t.text, ".")
			add(head)
		}
	}
	return names
}
