// Package requirement evaluates perk unlock expressions against character
// snapshots. Expressions are conjunctive normal form: an AND of OR-clauses
// built from typed literals (stat threshold, perk ownership, level gate,
// sex gate). Literals the graph does not natively understand are carried
// as raw conditions and resolved by an explicit policy, optionally with
// content-scripted handlers.
package requirement

import (
	"strings"

	"github.com/avamatic/fnv-planner/internal/game/character"
	"github.com/avamatic/fnv-planner/internal/game/content"
	"github.com/avamatic/fnv-planner/internal/game/formula"
)

// clause is one OR-group: at least one literal must be satisfied.
type clause struct {
	literals []content.Requirement
}

// buildClauses groups an ordered literal list into OR-clauses via each
// literal's or-with-previous flag: false starts a new AND boundary, true
// appends to the current group. [A, B(or), C] yields (A OR B) AND C.
func buildClauses(reqs []content.Requirement) []clause {
	if len(reqs) == 0 {
		return nil
	}
	var clauses []clause
	var current []content.Requirement
	for _, req := range reqs {
		if req.OrWithPrevious() && len(current) > 0 {
			current = append(current, req)
			continue
		}
		if len(current) > 0 {
			clauses = append(clauses, clause{literals: current})
		}
		current = []content.Requirement{req}
	}
	if len(current) > 0 {
		clauses = append(clauses, clause{literals: current})
	}
	return clauses
}

// evalLiteral dispatches one literal against the snapshot.
func evalLiteral(req content.Requirement, c *character.Character, stats formula.Stats) bool {
	switch r := req.(type) {
	case content.StatRequirement:
		var actual int
		if character.IsSpecial(r.ActorValue) {
			actual = stats.EffectiveSpecial[r.ActorValue]
		} else {
			actual = stats.Skills[r.ActorValue]
		}
		return r.Operator.Compare(float64(actual), float64(r.Value))
	case content.PerkRequirement:
		rank := r.Rank
		if rank < 1 {
			rank = 1
		}
		return c.HasPerk(r.PerkID) >= rank
	case content.LevelRequirement:
		return r.Operator.Compare(float64(c.Level), float64(r.Value))
	case content.SexRequirement:
		if c.Sex == character.SexUnset {
			return false
		}
		return c.Sex == r.Sex
	}
	return false
}

// eval reports whether at least one literal in the clause is satisfied.
func (cl clause) eval(c *character.Character, stats formula.Stats) bool {
	for _, lit := range cl.literals {
		if evalLiteral(lit, c, stats) {
			return true
		}
	}
	return false
}

// describe renders the clause for unmet-reason reporting.
func (cl clause) describe() string {
	if len(cl.literals) == 1 {
		return cl.literals[0].Describe()
	}
	parts := make([]string, len(cl.literals))
	for i, lit := range cl.literals {
		parts[i] = lit.Describe()
	}
	return "One of: " + strings.Join(parts, " OR ")
}
