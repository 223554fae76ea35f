// Package rolls makes roll numbers unique within each class and section.
//
// The legacy data has blank rolls and rolls reused by several students of
// the same class. Deduplicate resolves both in two passes:
//
//  1. Claim: in input order, the first student presenting a usable roll in
//     its scope keeps it. Blank rolls and repeats are deferred.
//  2. Assign: deferred students, in input order, get "000"+roll, then
//     "0000"+roll (each only if unclaimed and at most MaxLength characters),
//     else the smallest unclaimed integer from one past the highest numeric
//     roll claimed in the scope.
//
// The result is deterministic for a given input order.
package rolls

import (
	"strconv"

	"github.com/JonMunkholm/sdvmigrate/internal/clean"
	"github.com/JonMunkholm/sdvmigrate/internal/model"
)

// MaxLength is the longest roll the destination system stores.
const MaxLength = 10

// prefixes are tried in order for a deferred student's original roll.
var prefixes = []string{"000", "0000"}

// Change describes one reassigned roll.
type Change struct {
	StudentID string
	Session   string
	Class     string
	Section   string
	From      string
	To        string
}

type scope struct {
	session, class, section string
}

func scopeOf(s model.Student) scope {
	return scope{session: s.Session, class: s.Class, section: s.Section}
}

// Deduplicate returns a copy of students in which (session, class, section,
// roll) is unique. Order and length are preserved; only Roll may differ.
func Deduplicate(students []model.Student) ([]model.Student, []Change) {
	out := make([]model.Student, len(students))
	copy(out, students)

	claimed := make(map[scope]map[string]bool)
	deferred := make(map[scope][]int)
	var order []scope

	// Pass 1: claim.
	for i, s := range out {
		sc := scopeOf(s)
		if claimed[sc] == nil {
			claimed[sc] = make(map[string]bool)
		}

		if usable(s.Roll) && !claimed[sc][s.Roll] {
			claimed[sc][s.Roll] = true
			continue
		}

		if _, seen := deferred[sc]; !seen {
			order = append(order, sc)
		}
		deferred[sc] = append(deferred[sc], i)
	}

	// Pass 2: assign.
	var changes []Change
	for _, sc := range order {
		taken := claimed[sc]
		next := maxNumeric(taken) + 1

		for _, i := range deferred[sc] {
			original := out[i].Roll

			roll, ok := prefixed(original, taken)
			if !ok {
				for taken[strconv.Itoa(next)] {
					next++
				}
				roll = strconv.Itoa(next)
				next++
			}

			taken[roll] = true
			out[i].Roll = roll
			changes = append(changes, Change{
				StudentID: out[i].ID,
				Session:   sc.session,
				Class:     sc.class,
				Section:   sc.section,
				From:      original,
				To:        roll,
			})
		}
	}

	return out, changes
}

// usable reports whether a roll can be claimed as-is.
func usable(roll string) bool {
	return !clean.IsPlaceholder(roll)
}

// prefixed returns the first zero-prefixed variant of roll that is free and
// short enough.
func prefixed(roll string, taken map[string]bool) (string, bool) {
	if !usable(roll) {
		return "", false
	}
	for _, p := range prefixes {
		candidate := p + roll
		if len(candidate) <= MaxLength && !taken[candidate] {
			return candidate, true
		}
	}
	return "", false
}

// maxNumeric returns the largest purely numeric roll in taken, or 0.
func maxNumeric(taken map[string]bool) int {
	max := 0
	for roll := range taken {
		if !isDigits(roll) {
			continue
		}
		n, err := strconv.Atoi(roll)
		if err == nil && n > max {
			max = n
		}
	}
	return max
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
