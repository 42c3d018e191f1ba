// Package slug generates short human-readable moodboard identifiers.
package slug

import (
	"fmt"
	"math/rand"
)

var adjectives = []string{
	"dreamy", "cosmic", "ethereal", "vibrant", "serene",
	"mystic", "golden", "velvet", "crystal", "lunar",
}

var nouns = []string{
	"melody", "whisper", "echo", "rhythm", "harmony",
	"breeze", "glow", "spark", "wave", "muse",
}

// New returns an identifier of the form {adjective}-{noun}-{1..999}.
// Collisions are not checked; the space is large relative to expected
// volume and the store surfaces a duplicate key as a save error.
func New() string {
	adjective := adjectives[rand.Intn(len(adjectives))]
	noun := nouns[rand.Intn(len(nouns))]
	number := rand.Intn(999) + 1
	return fmt.Sprintf("%s-%s-%d", adjective, noun, number)
}
