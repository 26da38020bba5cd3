// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"strings"

	"github.com/junegunn/fzf/src/algo"
	"github.com/junegunn/fzf/src/util"
	"github.com/spf13/pflag"
)

// maxSuggestionDistance is the largest edit distance still offered as
// a "did you mean" suggestion.
const maxSuggestionDistance = 3

// minFuzzyLength is the shortest input matched as an abbreviation.
const minFuzzyLength = 3

// suggestCommand returns the subcommand name closest to unknown, or ""
// if none is close enough. An abbreviation such as "notif" or "ntf"
// matches the command whose name contains its letters in order;
// otherwise the nearest name by edit distance wins.
func suggestCommand(unknown string, commands []*Command) string {
	if name := abbreviatedCommand(unknown, commands); name != "" {
		return name
	}
	bestName := ""
	bestDistance := maxSuggestionDistance + 1
	for _, command := range commands {
		if distance := levenshtein(unknown, command.Name); distance < bestDistance {
			bestDistance = distance
			bestName = command.Name
		}
	}
	return bestName
}

// abbreviatedCommand scores every subcommand name with fzf's matcher
// and returns the best one that contains all of unknown's letters.
func abbreviatedCommand(unknown string, commands []*Command) string {
	if len(unknown) < minFuzzyLength {
		return ""
	}
	pattern := []rune(strings.ToLower(unknown))
	slab := util.MakeSlab(16*1024, 2048)
	bestName := ""
	bestScore := 0
	for _, command := range commands {
		chars := util.ToChars([]byte(command.Name))
		result, _ := algo.FuzzyMatchV2(false, false, true, &chars, pattern, false, slab)
		if result.Start >= 0 && result.Score > bestScore {
			bestScore = result.Score
			bestName = command.Name
		}
	}
	return bestName
}

// suggestFlag finds the first flag in args that flagSet does not
// define and returns the closest defined flag, prefixed with "--", or
// "" if nothing is close.
func suggestFlag(args []string, flagSet *pflag.FlagSet) string {
	if flagSet == nil {
		return ""
	}
	for _, arg := range args {
		if arg == "--" {
			break
		}
		if !strings.HasPrefix(arg, "-") {
			continue
		}
		name := strings.TrimLeft(arg, "-")
		name, _, _ = strings.Cut(name, "=")
		if flagSet.Lookup(name) != nil || (len(name) == 1 && flagSet.ShorthandLookup(name) != nil) {
			continue
		}

		bestName := ""
		bestDistance := maxSuggestionDistance + 1
		flagSet.VisitAll(func(flag *pflag.Flag) {
			if distance := levenshtein(name, flag.Name); distance < bestDistance {
				bestDistance = distance
				bestName = flag.Name
			}
		})
		if bestName == "" {
			return ""
		}
		return "--" + bestName
	}
	return ""
}

// levenshtein computes the edit distance between two strings using a
// single row of the distance matrix.
func levenshtein(a, b string) int {
	if len(a) > len(b) {
		a, b = b, a
	}
	if len(a) == 0 {
		return len(b)
	}

	previous := make([]int, len(a)+1)
	for i := range previous {
		previous[i] = i
	}
	for j := 1; j <= len(b); j++ {
		current := make([]int, len(a)+1)
		current[0] = j
		for i := 1; i <= len(a); i++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			current[i] = min(previous[i]+1, current[i-1]+1, previous[i-1]+cost)
		}
		previous = current
	}
	return previous[len(a)]
}
