// Package names generates human-memorable session identifiers
// ("lucky-otter") when a caller spawns a session without supplying --id.
package names

import "fmt"

var adjectives = []string{
	"lucky", "swift", "quiet", "bold", "eager", "brisk", "calm", "clever",
	"daring", "fuzzy", "gentle", "hardy", "jolly", "keen", "lively", "mighty",
	"nimble", "plucky", "quirky", "rapid", "sharp", "solid", "spry", "steady",
	"sunny", "tidy", "vivid", "witty", "zesty", "amber", "coral", "dusty",
}

var nouns = []string{
	"otter", "falcon", "badger", "heron", "lynx", "marten", "panther", "robin",
	"sparrow", "tiger", "viper", "wombat", "yak", "zebra", "beetle", "crane",
	"dolphin", "eagle", "ferret", "gecko", "hawk", "ibis", "jaguar", "koala",
	"lemur", "mongoose", "newt", "ocelot", "puma", "quail", "raven", "swan",
}

// Generate returns a deterministic adjective-noun name for the given seed,
// so the same seed always yields the same name (useful for tests and for
// retrying a spawn after a transient daemon restart without colliding
// names). Callers typically seed with a monotonic counter or a random
// uint64 drawn once at spawn time.
func Generate(seed uint64) string {
	adj := adjectives[seed%uint64(len(adjectives))]
	noun := nouns[(seed/uint64(len(adjectives)))%uint64(len(nouns))]
	return fmt.Sprintf("%s-%s", adj, noun)
}
