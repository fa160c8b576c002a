package slug

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerate(t *testing.T) {
	tests := []struct {
		name  string
		title string
		want  string
	}{
		{"simple", "Formation Excel", "formation-excel"},
		{"accents folded", "Soirée de Noël à Yaoundé", "soiree-de-noel-a-yaounde"},
		{"cedilla", "Leçon de français", "lecon-de-francais"},
		{"punctuation collapsed", "Don -- pour l'église!!", "don-pour-l-eglise"},
		{"leading and trailing junk", "  ***Tontine 2026***  ", "tontine-2026"},
		{"already a slug", "cotisation-asso", "cotisation-asso"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Generate(tt.title))
		})
	}
}

func TestGenerate_Idempotent(t *testing.T) {
	titles := []string{"Formation Excel", "Soirée de Noël", "abc---def", "É È Ê"}
	for _, title := range titles {
		once := Generate(title)
		assert.Equal(t, once, Generate(once), "title %q", title)
	}
}

func TestGenerate_TruncatesToMaxLength(t *testing.T) {
	long := "concert de bienfaisance pour la reconstruction du marche central de douala"
	got := Generate(long)
	assert.LessOrEqual(t, len(got), MaxLength)
	assert.True(t, Valid(got))
}

func TestValid(t *testing.T) {
	assert.True(t, Valid("formation-excel"))
	assert.True(t, Valid("abc"))
	assert.False(t, Valid("ab"), "below min length")
	assert.False(t, Valid("Formation"), "uppercase")
	assert.False(t, Valid("café"), "accented")
	assert.False(t, Valid("has space"))
	assert.False(t, Valid(""))
}
