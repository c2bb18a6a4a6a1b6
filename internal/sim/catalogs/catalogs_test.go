package catalogs

import (
	"path/filepath"
	"testing"
)

func TestLoad_ShippedCharacters(t *testing.T) {
	c, err := Load(filepath.Join("..", "..", "..", "configs"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	for _, class := range []string{"paladin", "sorceror", "warrok", "zombie"} {
		if _, ok := c.Model(class); !ok {
			t.Fatalf("missing class %q", class)
		}
	}
	if c.Digest == "" {
		t.Fatalf("expected digest")
	}
	pal, _ := c.Model("paladin")
	w, ok := c.Weapons[pal.Inventory[PrimaryEquipSlot]]
	if !ok || w.Damage <= 0 {
		t.Fatalf("paladin weapon %q not in weapon catalog", pal.Inventory[PrimaryEquipSlot])
	}
}

func TestParse_RejectsBadAttack(t *testing.T) {
	raw := []byte(`
characters:
  blob:
    name: Blob
    stats: {health: 10, strength: 1, wisdomness: 1}
    attack: {type: spit, range: 1, timing: 0.1, cooldown: 1}
`)
	if _, err := Parse(raw); err == nil {
		t.Fatalf("expected error for unknown attack type")
	}

	raw = []byte(`
characters:
  blob:
    name: Blob
    stats: {health: 10, strength: 1, wisdomness: 1}
    attack: {type: melee, range: 1, timing: 2, cooldown: 1}
`)
	if _, err := Parse(raw); err == nil {
		t.Fatalf("expected error for timing past cooldown")
	}
}

func TestDefaults_Valid(t *testing.T) {
	d := Defaults()
	for id, m := range d.Characters {
		if err := m.validate(); err != nil {
			t.Fatalf("%s: %v", id, err)
		}
	}
	if got := d.Classes(); len(got) != 4 || got[0] != "paladin" {
		t.Fatalf("classes=%v", got)
	}
}
