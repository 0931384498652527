package calculator

import (
	"strings"

	"github.com/mmynk/splitsettle/internal/models"
)

// KeyKind tags an EntryKey.
type KeyKind int

const (
	KeyByID KeyKind = iota + 1
	KeyByName
	KeyByEmail
)

func (k KeyKind) String() string {
	switch k {
	case KeyByID:
		return "id"
	case KeyByName:
		return "name"
	case KeyByEmail:
		return "email"
	}
	return "unknown"
}

// EntryKey identifies a participant across payments and recalculations.
// Names and emails are compared case-insensitively, so they are stored
// lower-cased.
type EntryKey struct {
	Kind  KeyKind
	Value string
}

func ByID(id string) EntryKey { return EntryKey{Kind: KeyByID, Value: strings.TrimSpace(id)} }

func ByName(name string) EntryKey {
	return EntryKey{Kind: KeyByName, Value: strings.ToLower(strings.TrimSpace(name))}
}

func ByEmail(email string) EntryKey {
	return EntryKey{Kind: KeyByEmail, Value: strings.ToLower(strings.TrimSpace(email))}
}

// IsZero reports whether the key carries no identity.
func (k EntryKey) IsZero() bool { return k.Kind == 0 || k.Value == "" }

func (k EntryKey) String() string { return k.Kind.String() + ":" + k.Value }

// KeyOf returns the canonical key of a breakdown entry: its user id, else its
// participant id, else its email, else its name. An entry with none of these
// falls back to its own id.
func KeyOf(e *models.BreakdownEntry) EntryKey {
	switch {
	case e.CanonicalID() != "":
		return ByID(e.CanonicalID())
	case strings.TrimSpace(e.Email) != "":
		return ByEmail(e.Email)
	case strings.TrimSpace(e.Name) != "":
		return ByName(e.Name)
	}
	return ByID(e.ID)
}

// KeyOfMember returns the key a roster member maps to in a breakdown.
func KeyOfMember(m models.Member) EntryKey {
	switch {
	case m.UserID != "":
		return ByID(m.UserID)
	case m.ID != "":
		return ByID(m.ID)
	case strings.TrimSpace(m.Email) != "":
		return ByEmail(m.Email)
	}
	return ByName(m.Name)
}

// resolver maps payee references onto canonical entry keys.
type resolver struct {
	byEntryID   map[string]EntryKey
	byCanonical map[string]EntryKey
	byName      map[string]EntryKey
	byEmail     map[string]EntryKey
}

func newResolver(breakdown []models.BreakdownEntry) *resolver {
	r := &resolver{
		byEntryID:   make(map[string]EntryKey, len(breakdown)),
		byCanonical: make(map[string]EntryKey, len(breakdown)),
		byName:      make(map[string]EntryKey, len(breakdown)),
		byEmail:     make(map[string]EntryKey, len(breakdown)),
	}
	for i := range breakdown {
		e := &breakdown[i]
		key := KeyOf(e)
		// First entry wins on every index.
		setOnce(r.byEntryID, e.ID, key)
		setOnce(r.byCanonical, e.UserID, key)
		setOnce(r.byCanonical, e.ParticipantID, key)
		setOnce(r.byName, ByName(e.Name).Value, key)
		setOnce(r.byEmail, ByEmail(e.Email).Value, key)
	}
	return r
}

func setOnce(m map[string]EntryKey, k string, v EntryKey) {
	if k == "" {
		return
	}
	if _, ok := m[k]; !ok {
		m[k] = v
	}
}

// resolve applies the precedence: entry id, canonical id, name, email. When
// nothing matches it returns the raw key and false.
func (r *resolver) resolve(id, name, email string) (EntryKey, bool) {
	id = strings.TrimSpace(id)
	if id != "" {
		if key, ok := r.byEntryID[id]; ok {
			return key, true
		}
		if key, ok := r.byCanonical[id]; ok {
			return key, true
		}
	}
	if n := ByName(name).Value; n != "" {
		if key, ok := r.byName[n]; ok {
			return key, true
		}
	}
	if m := ByEmail(email).Value; m != "" {
		if key, ok := r.byEmail[m]; ok {
			return key, true
		}
	}

	switch {
	case id != "":
		return ByID(id), false
	case strings.TrimSpace(email) != "":
		return ByEmail(email), false
	}
	return ByName(name), false
}
