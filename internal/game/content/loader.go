package content

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/avamatic/fnv-planner/internal/game/character"
)

// pack is the YAML schema of one content package file.
type pack struct {
	Constants    map[string]float64 `yaml:"constants"`
	MagicEffects []*MagicEffect     `yaml:"magic_effects"`
	Enchantments []*Enchantment     `yaml:"enchantments"`
	Perks        []perkSpec         `yaml:"perks"`
	Items        []*Item            `yaml:"items"`
	Books        []*Book            `yaml:"books"`
}

// perkSpec is the on-disk perk shape; requirements are tagged unions that
// decode into typed literals.
type perkSpec struct {
	Perk         `yaml:",inline"`
	Requirements []requirementSpec `yaml:"requirements"`
}

type requirementSpec struct {
	Type string `yaml:"type"`

	ActorValue character.ActorValue `yaml:"actor_value"`
	Operator   Operator             `yaml:"operator"`
	Value      float64              `yaml:"value"`
	PerkID     uint32               `yaml:"perk_id"`
	Rank       int                  `yaml:"rank"`
	Sex        int                  `yaml:"sex"`
	Function   int                  `yaml:"function"`
	Param1     int64                `yaml:"param1"`
	Param2     int64                `yaml:"param2"`
	Or         bool                 `yaml:"or"`
}

func (rs requirementSpec) toRequirement() (Requirement, error) {
	op := rs.Operator
	if op == "" {
		op = OpGreaterEqual
	}
	switch rs.Type {
	case "stat":
		return StatRequirement{ActorValue: rs.ActorValue, Operator: op, Value: int(rs.Value), Or: rs.Or}, nil
	case "perk":
		rank := rs.Rank
		if rank < 1 {
			rank = 1
		}
		return PerkRequirement{PerkID: rs.PerkID, Rank: rank, Or: rs.Or}, nil
	case "level":
		return LevelRequirement{Operator: op, Value: int(rs.Value), Or: rs.Or}, nil
	case "sex":
		return SexRequirement{Sex: rs.Sex, Or: rs.Or}, nil
	case "raw":
		return RawCondition{
			Function: rs.Function, Operator: op, Value: rs.Value,
			Param1: rs.Param1, Param2: rs.Param2, Or: rs.Or,
		}, nil
	default:
		return nil, fmt.Errorf("unknown requirement type %q", rs.Type)
	}
}

// LoadDirectory reads every *.yaml content package in dir (lexical order;
// later packages override earlier ones per form ID), resolves the
// enchantment effect chain, and seals the result into a Catalog.
//
// Precondition: dir must be a readable directory.
// Postcondition: Returns a sealed Catalog, or an error if any file fails
// to parse or any record fails integrity validation.
func LoadDirectory(dir string) (*Catalog, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading content dir %q: %w", dir, err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	merged := newMergeSet()
	for _, name := range names {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %q: %w", path, err)
		}
		if err := merged.addPack(data); err != nil {
			return nil, fmt.Errorf("parsing %q: %w", path, err)
		}
	}
	return merged.seal()
}

// LoadPack parses a single content package from raw YAML and seals it.
// Useful for tests and embedded fixture content.
func LoadPack(data []byte) (*Catalog, error) {
	merged := newMergeSet()
	if err := merged.addPack(data); err != nil {
		return nil, err
	}
	return merged.seal()
}

// mergeSet accumulates records across packages with last-wins semantics.
type mergeSet struct {
	constants    map[string]float64
	magicEffects map[uint32]*MagicEffect
	enchantments map[uint32]*Enchantment
	perks        map[uint32]*Perk
	items        map[uint32]*Item
	books        map[uint32]*Book
}

func newMergeSet() *mergeSet {
	return &mergeSet{
		constants:    make(map[string]float64),
		magicEffects: make(map[uint32]*MagicEffect),
		enchantments: make(map[uint32]*Enchantment),
		perks:        make(map[uint32]*Perk),
		items:        make(map[uint32]*Item),
		books:        make(map[uint32]*Book),
	}
}

func (m *mergeSet) addPack(data []byte) error {
	var p pack
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil {
		return err
	}

	for k, v := range p.Constants {
		m.constants[k] = v
	}
	for _, me := range p.MagicEffects {
		m.magicEffects[me.FormID] = me
	}
	for _, en := range p.Enchantments {
		m.enchantments[en.FormID] = en
	}
	for i := range p.Perks {
		spec := &p.Perks[i]
		perk := spec.Perk
		for _, rs := range spec.Requirements {
			req, err := rs.toRequirement()
			if err != nil {
				return fmt.Errorf("perk %#x: %w", perk.FormID, err)
			}
			if raw, ok := req.(RawCondition); ok {
				perk.RawConditions = append(perk.RawConditions, raw)
			} else {
				perk.Requirements = append(perk.Requirements, req)
			}
		}
		m.perks[perk.FormID] = &perk
	}
	for _, it := range p.Items {
		m.items[it.FormID] = it
	}
	for _, b := range p.Books {
		m.books[b.FormID] = b
	}
	return nil
}

// seal resolves the item -> enchantment -> magic effect chain and builds
// the Catalog. Dangling references are data-integrity failures.
func (m *mergeSet) seal() (*Catalog, error) {
	items := make([]*Item, 0, len(m.items))
	for _, it := range m.items {
		if it.EnchantmentID != 0 {
			resolved, err := m.resolveEnchantment(it)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrIntegrity, err)
			}
			it.StatEffects = append(it.StatEffects, resolved...)
		}
		items = append(items, it)
	}

	perks := make([]*Perk, 0, len(m.perks))
	for _, p := range m.perks {
		perks = append(perks, p)
	}
	books := make([]*Book, 0, len(m.books))
	for _, b := range m.books {
		books = append(books, b)
	}

	return NewCatalog(perks, items, books, NewConstants(m.constants))
}

func (m *mergeSet) resolveEnchantment(it *Item) ([]StatEffect, error) {
	ench, ok := m.enchantments[it.EnchantmentID]
	if !ok {
		return nil, fmt.Errorf("item %#x references unknown enchantment %#x", it.FormID, it.EnchantmentID)
	}
	var out []StatEffect
	for _, ee := range ench.Effects {
		mgef, ok := m.magicEffects[ee.EffectID]
		if !ok {
			return nil, fmt.Errorf("enchantment %#x references unknown magic effect %#x", ench.FormID, ee.EffectID)
		}
		if !mgef.IsValueModifier() {
			continue
		}
		out = append(out, StatEffect{
			ActorValue: mgef.ActorValue,
			Magnitude:  ee.Magnitude,
			Duration:   ee.Duration,
			Hostile:    ee.Hostile,
		})
	}
	return out, nil
}
