package tool

import "strings"

// Fuzzy resolution tolerates model-hallucinated naming noise in three
// layers: exact match, normalized match (case and separator insensitive),
// then bounded edit distance. Ambiguity at any layer resolves to "not
// found" — the executor never silently guesses.

// normalizeName lowercases a name and strips underscore/hyphen separators,
// so readFile, Read_File, and read-file collapse to the same key.
func normalizeName(name string) string {
	name = strings.ToLower(name)
	name = strings.ReplaceAll(name, "_", "")
	name = strings.ReplaceAll(name, "-", "")
	return name
}

// editThreshold returns the maximum edit distance accepted for a name of
// the given (normalized) length.
func editThreshold(length int) int {
	if length <= 5 {
		return 1
	}
	return 2
}

// ResolveName matches a requested name against the candidate set. ok is
// false when nothing matches confidently: no candidate within threshold,
// or a tie for best distance.
func ResolveName(requested string, candidates []string) (string, bool) {
	// Layer 1: exact.
	for _, c := range candidates {
		if c == requested {
			return c, true
		}
	}

	// Layer 2: unique normalized match.
	norm := normalizeName(requested)
	match := ""
	matches := 0
	for _, c := range candidates {
		if normalizeName(c) == norm {
			match = c
			matches++
		}
	}
	if matches == 1 {
		return match, true
	}
	if matches > 1 {
		return "", false
	}

	// Layer 3: bounded edit distance over normalized forms, tie-sensitive.
	best := ""
	bestDist := -1
	tied := false
	for _, c := range candidates {
		d := editDistance(norm, normalizeName(c))
		if d > editThreshold(len(norm)) {
			continue
		}
		switch {
		case bestDist == -1 || d < bestDist:
			best, bestDist, tied = c, d, false
		case d == bestDist:
			tied = true
		}
	}
	if bestDist == -1 || tied {
		return "", false
	}
	return best, true
}

// RemapArgs resolves each argument key against the definition's declared
// parameter names using the same three-layer algorithm. Keys that do not
// resolve pass through unchanged so the tool can ignore or reject them.
// The input map is never mutated.
func RemapArgs(args map[string]any, def Definition) map[string]any {
	if len(args) == 0 {
		return args
	}

	params := make([]string, 0, len(def.Parameters))
	for name := range def.Parameters {
		params = append(params, name)
	}

	out := make(map[string]any, len(args))
	for key, value := range args {
		if resolved, ok := ResolveName(key, params); ok {
			// Never clobber a key the caller supplied correctly.
			if _, exists := args[resolved]; !exists || resolved == key {
				out[resolved] = value
				continue
			}
		}
		out[key] = value
	}
	return out
}

// editDistance computes the Levenshtein distance between two strings with
// a two-row matrix.
func editDistance(a, b string) int {
	if a == b {
		return 0
	}
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}
