package requirement

import (
	"fmt"
	"sort"

	"github.com/avamatic/fnv-planner/internal/game/character"
	"github.com/avamatic/fnv-planner/internal/game/content"
	"github.com/avamatic/fnv-planner/internal/game/formula"
)

// Policy decides what happens when a perk carries raw conditions no
// handler can interpret.
type Policy string

// Raw-condition policies.
const (
	// PolicyStrict treats an unhandled raw condition as unsatisfiable.
	PolicyStrict Policy = "strict"
	// PolicyPermissive assumes an unhandled raw condition passes and
	// surfaces it as a diagnostic.
	PolicyPermissive Policy = "permissive"
)

// Valid reports whether p is a known policy.
func (p Policy) Valid() bool {
	return p == PolicyStrict || p == PolicyPermissive
}

// RawEvaluator resolves raw conditions the graph cannot interpret
// natively. handled=false means the evaluator has no handler for the
// condition's function index and the policy decides.
type RawEvaluator interface {
	Evaluate(cond content.RawCondition, c *character.Character) (handled, satisfied bool)
}

// UnknownPerkError reports a form ID that names no perk in the catalog.
// It marks a caller contract violation, not an invalid plan state.
type UnknownPerkError struct {
	FormID uint32
}

func (e UnknownPerkError) Error() string {
	return fmt.Sprintf("unknown perk %#x", e.FormID)
}

// Availability is the outcome of evaluating one perk's unlock expression
// against a character snapshot.
type Availability struct {
	// Available is true when every clause is satisfied under the
	// graph's policy.
	Available bool `yaml:"available" json:"available"`
	// UnmetClauses describes each unsatisfied clause.
	UnmetClauses []string `yaml:"unmet_clauses,omitempty" json:"unmet_clauses,omitempty"`
	// RawDiagnostics lists raw conditions that passed only by permissive
	// assumption.
	RawDiagnostics []string `yaml:"raw_diagnostics,omitempty" json:"raw_diagnostics,omitempty"`
}

type node struct {
	perk    *content.Perk
	clauses []clause
	raws    []clause
}

// Graph is the immutable requirement graph over a catalog's perks. It is
// built once per catalog and shared; evaluation never mutates it.
type Graph struct {
	catalog *content.Catalog
	nodes   map[uint32]*node
	policy  Policy
	rawEval RawEvaluator

	// dependents[a] holds the perks whose expressions reference perk a.
	dependents map[uint32][]uint32
}

// Option configures graph construction.
type Option func(*Graph)

// WithPolicy sets the raw-condition policy. The default is strict.
func WithPolicy(p Policy) Option {
	return func(g *Graph) { g.policy = p }
}

// WithRawEvaluator installs a handler source for raw conditions,
// typically a scripted condition host.
func WithRawEvaluator(ev RawEvaluator) Option {
	return func(g *Graph) { g.rawEval = ev }
}

// NewGraph builds the requirement graph for every perk in the catalog.
//
// Precondition: cat is sealed and non-nil.
// Postcondition: the graph is safe for concurrent evaluation.
func NewGraph(cat *content.Catalog, opts ...Option) (*Graph, error) {
	g := &Graph{
		catalog:    cat,
		nodes:      make(map[uint32]*node),
		policy:     PolicyStrict,
		dependents: make(map[uint32][]uint32),
	}
	for _, opt := range opts {
		opt(g)
	}
	if !g.policy.Valid() {
		return nil, fmt.Errorf("unknown raw-condition policy %q", g.policy)
	}

	for _, p := range cat.Perks() {
		rawLits := make([]content.Requirement, len(p.RawConditions))
		for i, rc := range p.RawConditions {
			rawLits[i] = rc
		}
		g.nodes[p.FormID] = &node{
			perk:    p,
			clauses: buildClauses(p.Requirements),
			raws:    buildClauses(rawLits),
		}
	}

	// Dependency edges reference perks only, so dangling edges are a
	// data defect surfaced at build time.
	for id, n := range g.nodes {
		for _, req := range n.perk.Requirements {
			pr, ok := req.(content.PerkRequirement)
			if !ok {
				continue
			}
			if _, exists := g.nodes[pr.PerkID]; !exists {
				return nil, fmt.Errorf("%w: perk %#x requires missing perk %#x",
					content.ErrIntegrity, id, pr.PerkID)
			}
			g.dependents[pr.PerkID] = append(g.dependents[pr.PerkID], id)
		}
	}
	for id := range g.dependents {
		sort.Slice(g.dependents[id], func(i, j int) bool {
			return g.dependents[id][i] < g.dependents[id][j]
		})
	}
	return g, nil
}

// Policy returns the graph's raw-condition policy.
func (g *Graph) Policy() Policy { return g.policy }

// Evaluate checks perkID's full unlock expression against the snapshot.
// stats must be the snapshot's computed stats so equipment and implant
// modifiers count toward thresholds.
func (g *Graph) Evaluate(perkID uint32, c *character.Character, stats formula.Stats) (Availability, error) {
	n, ok := g.nodes[perkID]
	if !ok {
		return Availability{}, UnknownPerkError{FormID: perkID}
	}
	av := Availability{Available: true}

	if n.perk.MinLevel > 0 && c.Level < n.perk.MinLevel {
		av.Available = false
		av.UnmetClauses = append(av.UnmetClauses, fmt.Sprintf("Level >= %d", n.perk.MinLevel))
	}
	for _, cl := range n.clauses {
		if !cl.eval(c, stats) {
			av.Available = false
			av.UnmetClauses = append(av.UnmetClauses, cl.describe())
		}
	}
	for _, cl := range n.raws {
		satisfied, handled := g.evalRawClause(cl, c)
		if handled {
			if !satisfied {
				av.Available = false
				av.UnmetClauses = append(av.UnmetClauses, cl.describe())
			}
			continue
		}
		switch g.policy {
		case PolicyPermissive:
			av.RawDiagnostics = append(av.RawDiagnostics, cl.describe())
		default:
			av.Available = false
			av.UnmetClauses = append(av.UnmetClauses, "unsupported "+cl.describe())
		}
	}
	return av, nil
}

// UnsatisfiedClauses returns the typed literal groups of perkID's
// expression that do not hold against the snapshot, one slice per
// unmet OR-clause. Raw conditions are excluded; callers cannot plan
// toward them.
func (g *Graph) UnsatisfiedClauses(perkID uint32, c *character.Character, stats formula.Stats) ([][]content.Requirement, error) {
	n, ok := g.nodes[perkID]
	if !ok {
		return nil, UnknownPerkError{FormID: perkID}
	}
	var out [][]content.Requirement
	if n.perk.MinLevel > 0 && c.Level < n.perk.MinLevel {
		out = append(out, []content.Requirement{
			content.LevelRequirement{Operator: content.OpGreaterEqual, Value: n.perk.MinLevel},
		})
	}
	for _, cl := range n.clauses {
		if !cl.eval(c, stats) {
			out = append(out, append([]content.Requirement(nil), cl.literals...))
		}
	}
	return out, nil
}

// evalRawClause resolves one OR-group of raw conditions through the
// installed evaluator. The clause counts as handled when at least one
// literal is; an unhandled literal cannot fail the clause on its own.
func (g *Graph) evalRawClause(cl clause, c *character.Character) (satisfied, handled bool) {
	if g.rawEval == nil {
		return false, false
	}
	for _, lit := range cl.literals {
		rc, ok := lit.(content.RawCondition)
		if !ok {
			continue
		}
		h, s := g.rawEval.Evaluate(rc, c)
		if !h {
			continue
		}
		handled = true
		if s {
			return true, true
		}
	}
	return false, handled
}

// CanTake reports whether the snapshot can take (another rank of)
// perkID: the perk must be playable, not a trait, under its rank limit,
// and its unlock expression satisfied.
func (g *Graph) CanTake(perkID uint32, c *character.Character, stats formula.Stats) (Availability, error) {
	n, ok := g.nodes[perkID]
	if !ok {
		return Availability{}, UnknownPerkError{FormID: perkID}
	}
	av, err := g.Evaluate(perkID, c, stats)
	if err != nil {
		return Availability{}, err
	}
	if n.perk.IsTrait {
		av.Available = false
		av.UnmetClauses = append(av.UnmetClauses, "trait, selectable only at creation")
	}
	if !n.perk.IsPlayable {
		av.Available = false
		av.UnmetClauses = append(av.UnmetClauses, "not a playable perk")
	}
	if c.HasPerk(perkID) >= n.perk.MaxRanks() {
		av.Available = false
		av.UnmetClauses = append(av.UnmetClauses, fmt.Sprintf("already at max rank %d", n.perk.MaxRanks()))
	}
	return av, nil
}

// AvailableAt lists the playable non-trait perks the snapshot could take,
// sorted by form ID.
func (g *Graph) AvailableAt(c *character.Character, stats formula.Stats) []uint32 {
	var out []uint32
	for id := range g.nodes {
		av, err := g.CanTake(id, c, stats)
		if err == nil && av.Available {
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Traits lists every playable trait perk sorted by form ID. Unplayable
// trait records exist in content data but are never offered at creation.
func (g *Graph) Traits() []uint32 {
	var out []uint32
	for id, n := range g.nodes {
		if n.perk.IsTrait && n.perk.IsPlayable {
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Dependents returns the perks whose unlock expressions reference
// perkID, sorted by form ID.
func (g *Graph) Dependents(perkID uint32) ([]uint32, error) {
	if _, ok := g.nodes[perkID]; !ok {
		return nil, UnknownPerkError{FormID: perkID}
	}
	out := make([]uint32, len(g.dependents[perkID]))
	copy(out, g.dependents[perkID])
	return out, nil
}

// PerkChain returns the transitive perk prerequisites of perkID in
// dependency-first order; perkID itself is last. OR-alternatives are all
// included since any of them could satisfy the clause.
func (g *Graph) PerkChain(perkID uint32) ([]uint32, error) {
	if _, ok := g.nodes[perkID]; !ok {
		return nil, UnknownPerkError{FormID: perkID}
	}
	seen := make(map[uint32]bool)
	var out []uint32
	var visit func(id uint32)
	visit = func(id uint32) {
		if seen[id] {
			return
		}
		seen[id] = true
		for _, pre := range g.prerequisites(id) {
			visit(pre)
		}
		out = append(out, id)
	}
	visit(perkID)
	return out, nil
}

// prerequisites lists the perks referenced by id's expression, sorted.
func (g *Graph) prerequisites(id uint32) []uint32 {
	n := g.nodes[id]
	var out []uint32
	for _, req := range n.perk.Requirements {
		if pr, ok := req.(content.PerkRequirement); ok {
			out = append(out, pr.PerkID)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// TopologicalOrder returns every perk ordered so prerequisites precede
// their dependents, with form ID as the tie-break within a layer.
// Prerequisite cycles are a data defect and abort with ErrIntegrity.
func (g *Graph) TopologicalOrder() ([]uint32, error) {
	indegree := make(map[uint32]int, len(g.nodes))
	for id := range g.nodes {
		indegree[id] = len(g.prerequisites(id))
	}
	var frontier []uint32
	for id, deg := range indegree {
		if deg == 0 {
			frontier = append(frontier, id)
		}
	}
	sort.Slice(frontier, func(i, j int) bool { return frontier[i] < frontier[j] })

	out := make([]uint32, 0, len(g.nodes))
	for len(frontier) > 0 {
		id := frontier[0]
		frontier = frontier[1:]
		out = append(out, id)

		var freed []uint32
		for _, dep := range g.dependents[id] {
			indegree[dep]--
			if indegree[dep] == 0 {
				freed = append(freed, dep)
			}
		}
		if len(freed) > 0 {
			frontier = append(frontier, freed...)
			sort.Slice(frontier, func(i, j int) bool { return frontier[i] < frontier[j] })
		}
	}
	if len(out) != len(g.nodes) {
		return nil, fmt.Errorf("%w: perk prerequisite cycle detected", content.ErrIntegrity)
	}
	return out, nil
}
