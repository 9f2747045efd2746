package simulate

import (
	"fmt"
	"math/rand/v2"
)

var firstNames = []string{ //nolint:gochecknoglobals // fixed name pool
	"Anna", "Bram", "Cees", "Daan", "Emma", "Fenna", "Gijs", "Hanna",
	"Iris", "Joost", "Kees", "Lotte", "Milan", "Noor", "Olaf", "Pien",
}

var strengthPhrases = []string{ //nolint:gochecknoglobals // fixed phrase pool
	"Altijd op tijd en betrouwbaar",
	"Werkt hard en geeft nooit op",
	"Goede communicatie met het team",
	"Helpt anderen en denkt mee",
	"Neemt initiatief in lastige momenten",
	"Komt met creatieve ideeën",
	"Luistert goed naar feedback",
	"Speelt samen en gunt de bal",
}

var improvementPhrases = []string{ //nolint:gochecknoglobals // fixed phrase pool
	"Kan beter luisteren",
	"Meer inzet op de training",
	"Vaker het voortouw nemen",
	"Afspraken beter nakomen",
	"Duidelijker praten in het veld",
	"Meer samenwerken met de verdediging",
}

// generator produces player names and feedback phrases.
type generator struct {
	rnd *rand.Rand
}

func newGenerator(seed int64) *generator {
	if seed == 0 {
		return &generator{rnd: rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))} //nolint:gosec // not security sensitive
	}
	return &generator{rnd: rand.New(rand.NewPCG(uint64(seed), uint64(seed)))} //nolint:gosec // not security sensitive
}

// playerName returns the i-th name of the pool, suffixed once the pool is exhausted.
func (g *generator) playerName(i int) string {
	name := firstNames[i%len(firstNames)]
	if round := i / len(firstNames); round > 0 {
		return fmt.Sprintf("%s %d", name, round+1)
	}
	return name
}

// strengths returns two different strength phrases.
func (g *generator) strengths() []string {
	i := g.rnd.IntN(len(strengthPhrases))
	j := (i + 1 + g.rnd.IntN(len(strengthPhrases)-1)) % len(strengthPhrases)
	return []string{strengthPhrases[i], strengthPhrases[j]}
}

func (g *generator) improvement() string {
	return improvementPhrases[g.rnd.IntN(len(improvementPhrases))]
}
