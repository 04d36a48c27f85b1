package ecs

import (
	"fmt"
	"sort"
)

// TypeID names a component type ("Transform", "Script", ...).
type TypeID string

// Category groups component types for tooling (rendering, physics, scripting, ...).
type Category string

// Fields is the loosely typed form of a component instance, as found in scene
// files and script tables. Each descriptor converts it to and from its typed value.
type Fields map[string]any

// Descriptor describes one component type. Validate runs on every insertion and
// replacement; a value that fails it never reaches the store.
type Descriptor[T any] struct {
	ID       TypeID
	Category Category
	Default  func() T
	Validate func(*T) error
	Encode   func(*T) Fields
	Decode   func(Fields) (T, error)

	// ReadOnly types can only be written through the typed API (Set).
	ReadOnly bool
}

// Removable is implemented by all component stores so the Registry can
// bulk-remove an entity's data from every store on destroy.
type Removable interface {
	Remove(id EntityID) bool
}

// componentStore is the type-erased view the Registry keeps of a ComponentStore[T].
type componentStore interface {
	Removable
	TypeID() TypeID
	Category() Category
	readOnly() bool
	Has(id EntityID) bool
	Len() int
	fields(id EntityID) (Fields, bool)
	setFields(id EntityID, f Fields) error
	defaultFields() Fields
	ids() []EntityID
}

// ComponentStore is a generic typed map store for one component type.
// No reflect: conversion goes through the descriptor.
type ComponentStore[T any] struct {
	desc Descriptor[T]
	data map[EntityID]*T
}

func NewComponentStore[T any](desc Descriptor[T]) *ComponentStore[T] {
	return &ComponentStore[T]{
		desc: desc,
		data: make(map[EntityID]*T, 256),
	}
}

func (s *ComponentStore[T]) TypeID() TypeID     { return s.desc.ID }
func (s *ComponentStore[T]) Category() Category { return s.desc.Category }
func (s *ComponentStore[T]) readOnly() bool     { return s.desc.ReadOnly }

// Set validates c and stores a copy of it.
func (s *ComponentStore[T]) Set(id EntityID, c T) error {
	if err := s.validate(&c); err != nil {
		return err
	}
	s.data[id] = &c
	return nil
}

// Get returns a copy of the stored value.
func (s *ComponentStore[T]) Get(id EntityID) (T, bool) {
	c, ok := s.data[id]
	if !ok {
		var zero T
		return zero, false
	}
	return *c, true
}

func (s *ComponentStore[T]) Remove(id EntityID) bool {
	if _, ok := s.data[id]; !ok {
		return false
	}
	delete(s.data, id)
	return true
}

func (s *ComponentStore[T]) Has(id EntityID) bool {
	_, ok := s.data[id]
	return ok
}

func (s *ComponentStore[T]) Len() int {
	return len(s.data)
}

// Each visits every stored value. fn must not add or remove components.
func (s *ComponentStore[T]) Each(fn func(EntityID, *T)) {
	for id, c := range s.data {
		fn(id, c)
	}
}

func (s *ComponentStore[T]) validate(c *T) error {
	if s.desc.Validate == nil {
		return nil
	}
	if err := s.desc.Validate(c); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrValidation, s.desc.ID, err)
	}
	return nil
}

func (s *ComponentStore[T]) fields(id EntityID) (Fields, bool) {
	c, ok := s.data[id]
	if !ok {
		return nil, false
	}
	return s.desc.Encode(c), true
}

func (s *ComponentStore[T]) setFields(id EntityID, f Fields) error {
	v, err := s.desc.Decode(f)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrValidation, s.desc.ID, err)
	}
	return s.Set(id, v)
}

func (s *ComponentStore[T]) defaultFields() Fields {
	v := s.zero()
	return s.desc.Encode(&v)
}

func (s *ComponentStore[T]) zero() T {
	if s.desc.Default != nil {
		return s.desc.Default()
	}
	var zero T
	return zero
}

func (s *ComponentStore[T]) ids() []EntityID {
	out := make([]EntityID, 0, len(s.data))
	for id := range s.data {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
