// Package keyword has text-matching helpers shared by the content rules:
// leetspeak-tolerant word matching and a similarity ratio for repeated-text
// detection. Everything here is pure string work with no engine dependencies.
package keyword

import (
	"regexp"
	"strings"
	"sync"
)

// leetSubs maps each letter to the characters it is commonly disguised as.
// Matching expands a word into one character class per rune, so mixed
// substitutions ("$hit", "sh1t", "$h17") all hit without enumerating the
// cross product of spellings.
var leetSubs = map[rune][]rune{
	'a': {'@', '4'},
	'e': {'3'},
	'i': {'1'},
	'l': {'1'},
	'o': {'0'},
	's': {'$'},
	't': {'7'},
}

// WordPattern compiles word into a pattern where every letter also matches
// its leetspeak substitutes.
func WordPattern(word string) *regexp.Regexp {
	var b strings.Builder
	for _, r := range word {
		subs, ok := leetSubs[r]
		if !ok {
			b.WriteString(regexp.QuoteMeta(string(r)))
			continue
		}
		b.WriteRune('[')
		b.WriteRune(r)
		for _, s := range subs {
			b.WriteString(regexp.QuoteMeta(string(s)))
		}
		b.WriteRune(']')
	}
	return regexp.MustCompile(b.String())
}

var (
	patternsLk sync.Mutex
	patterns   = make(map[string]*regexp.Regexp)
)

// ContainsWord reports whether text contains word in any leetspeak spelling.
// Callers are expected to lowercase text first. Compiled patterns are cached
// per word; word lists are small and stable.
func ContainsWord(text, word string) bool {
	patternsLk.Lock()
	p, ok := patterns[word]
	if !ok {
		p = WordPattern(word)
		patterns[word] = p
	}
	patternsLk.Unlock()
	return p.MatchString(text)
}
