package content

import (
	"errors"
	"fmt"
	"sort"

	"github.com/avamatic/fnv-planner/internal/game/character"
)

// ErrIntegrity wraps every data-integrity failure raised while sealing a
// catalog. The core refuses to operate on an incomplete record set rather
// than substituting zeros.
var ErrIntegrity = errors.New("content integrity")

// Catalog is the immutable, shared content graph: every perk, item, book,
// and formula constant active for the current content-package combination.
// The ingestion side guarantees identifiers are already merged (last
// package in load order wins), so the catalog never sees duplicates.
type Catalog struct {
	perks     map[uint32]*Perk
	items     map[uint32]*Item
	books     map[uint32]*Book
	constants *Constants
}

// NewCatalog validates and seals a record set. Malformed records (zero
// form IDs, unknown operators, dangling enchantment references already
// resolved away by the loader, negative ranks) abort construction with an
// ErrIntegrity-wrapped error.
func NewCatalog(perks []*Perk, items []*Item, books []*Book, constants *Constants) (*Catalog, error) {
	if constants == nil {
		constants = NewConstants(nil)
	}
	c := &Catalog{
		perks:     make(map[uint32]*Perk, len(perks)),
		items:     make(map[uint32]*Item, len(items)),
		books:     make(map[uint32]*Book, len(books)),
		constants: constants,
	}

	for _, p := range perks {
		if err := validatePerk(p); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrIntegrity, err)
		}
		if _, dup := c.perks[p.FormID]; dup {
			return nil, fmt.Errorf("%w: duplicate perk form ID %#x", ErrIntegrity, p.FormID)
		}
		c.perks[p.FormID] = p
	}
	for _, it := range items {
		if err := validateItem(it); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrIntegrity, err)
		}
		if _, dup := c.items[it.FormID]; dup {
			return nil, fmt.Errorf("%w: duplicate item form ID %#x", ErrIntegrity, it.FormID)
		}
		c.items[it.FormID] = it
	}
	for _, b := range books {
		if b.FormID == 0 {
			return nil, fmt.Errorf("%w: book %q has zero form ID", ErrIntegrity, b.Name)
		}
		if !character.IsSkill(b.Skill) {
			return nil, fmt.Errorf("%w: book %#x teaches non-skill actor value %d", ErrIntegrity, b.FormID, b.Skill)
		}
		if _, dup := c.books[b.FormID]; dup {
			return nil, fmt.Errorf("%w: duplicate book form ID %#x", ErrIntegrity, b.FormID)
		}
		c.books[b.FormID] = b
	}

	return c, nil
}

func validatePerk(p *Perk) error {
	if p == nil {
		return errors.New("nil perk record")
	}
	if p.FormID == 0 {
		return fmt.Errorf("perk %q has zero form ID", p.Name)
	}
	if p.Name == "" && p.EditorID == "" {
		return fmt.Errorf("perk %#x has neither name nor editor ID", p.FormID)
	}
	if p.Ranks < 0 {
		return fmt.Errorf("perk %#x has negative rank count", p.FormID)
	}
	if p.MinLevel < 0 {
		return fmt.Errorf("perk %#x has negative min level", p.FormID)
	}
	for _, req := range p.Requirements {
		switch r := req.(type) {
		case StatRequirement:
			if !r.Operator.Valid() {
				return fmt.Errorf("perk %#x: unknown operator %q", p.FormID, r.Operator)
			}
			if !character.IsSpecial(r.ActorValue) && !character.IsSkill(r.ActorValue) {
				return fmt.Errorf("perk %#x: stat requirement on non-stat actor value %d", p.FormID, r.ActorValue)
			}
		case LevelRequirement:
			if !r.Operator.Valid() {
				return fmt.Errorf("perk %#x: unknown operator %q", p.FormID, r.Operator)
			}
		case PerkRequirement:
			if r.PerkID == 0 {
				return fmt.Errorf("perk %#x: perk requirement with zero form ID", p.FormID)
			}
		case SexRequirement:
			if r.Sex != character.SexMale && r.Sex != character.SexFemale {
				return fmt.Errorf("perk %#x: sex requirement with invalid value %d", p.FormID, r.Sex)
			}
		case RawCondition:
			// Preserved verbatim; the requirement graph's policy decides.
		default:
			return fmt.Errorf("perk %#x: unsupported requirement type %T", p.FormID, req)
		}
	}
	return nil
}

func validateItem(it *Item) error {
	if it == nil {
		return errors.New("nil item record")
	}
	if it.FormID == 0 {
		return fmt.Errorf("item %q has zero form ID", it.Name)
	}
	if it.Kind != KindArmor && it.Kind != KindWeapon {
		return fmt.Errorf("item %#x has unknown kind %q", it.FormID, it.Kind)
	}
	if it.Slot < SlotNone {
		return fmt.Errorf("item %#x has invalid slot %d", it.FormID, it.Slot)
	}
	return nil
}

// Perk returns the perk record for formID.
func (c *Catalog) Perk(formID uint32) (*Perk, bool) {
	p, ok := c.perks[formID]
	return p, ok
}

// Perks returns all perk records sorted by form ID.
func (c *Catalog) Perks() []*Perk {
	out := make([]*Perk, 0, len(c.perks))
	for _, p := range c.perks {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FormID < out[j].FormID })
	return out
}

// Item returns the item record for formID.
func (c *Catalog) Item(formID uint32) (*Item, bool) {
	it, ok := c.items[formID]
	return it, ok
}

// Items returns all item records sorted by form ID.
func (c *Catalog) Items() []*Item {
	out := make([]*Item, 0, len(c.items))
	for _, it := range c.items {
		out = append(out, it)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FormID < out[j].FormID })
	return out
}

// Book returns the book record for formID.
func (c *Catalog) Book(formID uint32) (*Book, bool) {
	b, ok := c.books[formID]
	return b, ok
}

// Books returns all book records sorted by form ID.
func (c *Catalog) Books() []*Book {
	out := make([]*Book, 0, len(c.books))
	for _, b := range c.books {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FormID < out[j].FormID })
	return out
}

// BooksBySkill counts skill books per skill actor value.
func (c *Catalog) BooksBySkill() map[character.ActorValue]int {
	out := make(map[character.ActorValue]int)
	for _, b := range c.books {
		out[b.Skill]++
	}
	return out
}

// Constants returns the formula constant table.
func (c *Catalog) Constants() *Constants {
	return c.constants
}
