// internal/game/deck.go
package game

import (
	"math/rand"
	"time"
)

// shufflePasses is how many Fisher-Yates passes every shuffle runs.
const shufflePasses = 3

// newDrawPile builds the 150-card value deck: five -2s, ten -1s, fifteen 0s
// and ten of each value from 1 through 12.
func newDrawPile() []int {
	pile := make([]int, 0, 150)
	for i := 0; i < 5; i++ {
		pile = append(pile, -2)
	}
	for i := 0; i < 10; i++ {
		pile = append(pile, -1)
	}
	for i := 0; i < 15; i++ {
		pile = append(pile, 0)
	}
	for v := 1; v <= 12; v++ {
		for i := 0; i < 10; i++ {
			pile = append(pile, v)
		}
	}
	shuffle(pile)
	return pile
}

// shuffle runs repeated Fisher-Yates passes over the pile in place.
func shuffle(pile []int) {
	r := rand.New(rand.NewSource(time.Now().UnixNano()))
	for pass := 0; pass < shufflePasses; pass++ {
		r.Shuffle(len(pile), func(i, j int) {
			pile[i], pile[j] = pile[j], pile[i]
		})
	}
}

// popPile removes and returns the top (last) value of a pile.
func popPile(pile []int) (int, []int) {
	v := pile[len(pile)-1]
	return v, pile[:len(pile)-1]
}
