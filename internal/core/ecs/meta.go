package ecs

import (
	"fmt"
	"regexp"

	"github.com/spf13/cast"
)

// MetaType is the built-in component holding an entity's identity and
// hierarchy. The Store's cache is derived entirely from it.
const MetaType TypeID = "EntityMeta"

var persistentIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.:-]{0,127}$`)

// ValidPersistentID reports whether s has the accepted persistent id format.
func ValidPersistentID(s string) bool {
	return persistentIDPattern.MatchString(s)
}

type EntityMeta struct {
	Name         string
	Parent       EntityID
	PersistentID string
	Order        uint64 // sibling position, ascending
	Active       bool
}

func metaDescriptor() Descriptor[EntityMeta] {
	return Descriptor[EntityMeta]{
		ID:       MetaType,
		Category: "core",
		ReadOnly: true,
		Default:  func() EntityMeta { return EntityMeta{Active: true} },
		Validate: func(m *EntityMeta) error {
			if !ValidPersistentID(m.PersistentID) {
				return fmt.Errorf("%w: %q", ErrInvalidID, m.PersistentID)
			}
			return nil
		},
		Encode: func(m *EntityMeta) Fields {
			return Fields{
				"name":         m.Name,
				"parent":       uint64(m.Parent),
				"persistentId": m.PersistentID,
				"order":        m.Order,
				"active":       m.Active,
			}
		},
		Decode: func(f Fields) (EntityMeta, error) {
			m := EntityMeta{Active: true}
			var err error
			if v, ok := f["name"]; ok {
				if m.Name, err = cast.ToStringE(v); err != nil {
					return m, fmt.Errorf("name: %w", err)
				}
			}
			if v, ok := f["parent"]; ok {
				p, err := cast.ToUint64E(v)
				if err != nil {
					return m, fmt.Errorf("parent: %w", err)
				}
				m.Parent = EntityID(p)
			}
			if v, ok := f["persistentId"]; ok {
				if m.PersistentID, err = cast.ToStringE(v); err != nil {
					return m, fmt.Errorf("persistentId: %w", err)
				}
			}
			if v, ok := f["order"]; ok {
				if m.Order, err = cast.ToUint64E(v); err != nil {
					return m, fmt.Errorf("order: %w", err)
				}
			}
			if v, ok := f["active"]; ok {
				if m.Active, err = cast.ToBoolE(v); err != nil {
					return m, fmt.Errorf("active: %w", err)
				}
			}
			return m, nil
		},
	}
}
