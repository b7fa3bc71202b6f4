// Package apikey mints human-readable API keys of the form
// sfr-<adjective>-<noun>-<random>-<YYYYMMDD>.
package apikey

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
	"time"
)

const (
	prefix       = "sfr"
	randomLength = 8
	alphabet     = "0123456789abcdefghijklmnopqrstuvwxyz"
)

var adjectives = []string{
	"amber", "bold", "brisk", "calm", "clever", "cosmic", "crimson", "daring",
	"eager", "fuzzy", "gentle", "golden", "hidden", "jolly", "lucky", "mellow",
	"misty", "nimble", "proud", "quiet", "rapid", "silent", "swift", "velvet",
}

var nouns = []string{
	"badger", "comet", "dune", "falcon", "fern", "glacier", "harbor", "heron",
	"lantern", "meadow", "nebula", "otter", "pebble", "quartz", "raven", "river",
	"sparrow", "summit", "thistle", "tundra", "valley", "willow", "yak", "zephyr",
}

// Generator produces API keys from a random source and a clock.
type Generator struct {
	rand io.Reader
	now  func() time.Time
}

// NewGenerator returns a generator backed by crypto/rand and the wall clock.
func NewGenerator() *Generator {
	return &Generator{rand: rand.Reader, now: time.Now}
}

// Generate returns a fresh key.
func (g *Generator) Generate() (string, error) {
	adj, err := g.pick(len(adjectives))
	if err != nil {
		return "", err
	}
	noun, err := g.pick(len(nouns))
	if err != nil {
		return "", err
	}

	suffix := make([]byte, randomLength)
	for i := range suffix {
		idx, err := g.pick(len(alphabet))
		if err != nil {
			return "", err
		}
		suffix[i] = alphabet[idx]
	}

	return fmt.Sprintf("%s-%s-%s-%s-%s",
		prefix,
		adjectives[adj],
		nouns[noun],
		suffix,
		g.now().Format("20060102"),
	), nil
}

func (g *Generator) pick(n int) (int, error) {
	v, err := rand.Int(g.rand, big.NewInt(int64(n)))
	if err != nil {
		return 0, fmt.Errorf("apikey: read random: %w", err)
	}
	return int(v.Int64()), nil
}
