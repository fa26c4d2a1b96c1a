// Package classify matches transaction descriptions against keyword
// rules kept as plain text files, one file per category.
package classify

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/tysonq/taxmate/internal/domain"
)

// Rules maps a category to the keywords that select it.
type Rules map[string][]string

// Classify returns the categories whose keywords appear in the
// description. Matching is case-insensitive containment; the result is
// sorted so classification output is deterministic.
func Classify(description string, rules Rules) []string {
	desc := strings.ToUpper(strings.TrimSpace(description))

	var matches []string
	for category, keywords := range rules {
		for _, kw := range keywords {
			if strings.Contains(desc, strings.ToUpper(kw)) {
				matches = append(matches, category)
				break
			}
		}
	}

	sort.Strings(matches)
	return matches
}

// Apply classifies every transaction, returning new values; the input
// slice is left untouched.
func Apply(txns []domain.Transaction, rules Rules) []domain.Transaction {
	out := make([]domain.Transaction, len(txns))
	for i, t := range txns {
		out[i] = t.WithCategories(Classify(t.Description, rules))
	}
	return out
}

// LoadRules reads every rules/<category>.txt file in dir. Each
// non-empty line is a keyword; lines starting with # are comments.
func LoadRules(dir string) (Rules, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.txt"))
	if err != nil {
		return nil, fmt.Errorf("scanning rules dir: %w", err)
	}

	rules := make(Rules, len(files))
	for _, path := range files {
		category := strings.TrimSuffix(filepath.Base(path), ".txt")
		keywords, err := readKeywords(path)
		if err != nil {
			return nil, fmt.Errorf("reading rules for %s: %w", category, err)
		}
		if len(keywords) > 0 {
			rules[category] = keywords
		}
	}

	return rules, nil
}

// AddRule appends a keyword to an existing category file, keeping the
// file sorted and deduplicated. Unknown categories are an error so a
// typo cannot silently create a new category.
func AddRule(dir, category, keyword string) error {
	path := filepath.Join(dir, category+".txt")
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("unknown category %q: %w", category, err)
	}

	keywords, err := readKeywords(path)
	if err != nil {
		return err
	}

	for _, kw := range keywords {
		if kw == keyword {
			return nil
		}
	}

	keywords = append(keywords, keyword)
	sort.Slice(keywords, func(i, j int) bool {
		return strings.ToLower(keywords[i]) < strings.ToLower(keywords[j])
	})

	return os.WriteFile(path, []byte(strings.Join(keywords, "\n")+"\n"), 0o644)
}

func readKeywords(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var keywords []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		keywords = append(keywords, line)
	}

	return keywords, scanner.Err()
}
