// Package shortcode generates the random codes assigned to shortened URLs.
package shortcode

import (
	gonanoid "github.com/matoous/go-nanoid/v2"
)

const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

const DefaultLength = 5

// Generator produces a new short code on each call. Codes are drawn from
// a 62-character alphanumeric alphabet and are treated as collision-free
// at this scale; the durable store's unique constraint is the backstop.
type Generator func() (string, error)

func NewGenerator(length int) Generator {
	if length <= 0 {
		length = DefaultLength
	}

	return func() (string, error) {
		return gonanoid.Generate(alphabet, length)
	}
}
