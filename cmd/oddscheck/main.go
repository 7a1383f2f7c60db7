// Standalone odds analysis tool for the Bubbler economy.
// It replays the RNG logic the game services use and checks the observed
// rates against the intended ones.
package main

import (
	"fmt"
	"math"
	"math/rand"
)

const trials = 100000

func main() {
	fmt.Println("=== Bubbler Odds Analysis ===")
	fmt.Println()

	analyzeCleanBet()
	analyzeDropRate()
	analyzeBonusRate()
	for _, racers := range []int{2, 3, 4, 6} {
		analyzeRaceFairness(racers)
	}
}

// analyzeCleanBet replays the even-odds coin flip from the betting service:
// won := rng.Intn(2) == 0
func analyzeCleanBet() {
	rng := rand.New(rand.NewSource(1))
	wins := 0
	for i := 0; i < trials; i++ {
		if rng.Intn(2) == 0 {
			wins++
		}
	}
	report("clean bet win", float64(wins)/trials, 0.5)
}

// analyzeDropRate replays the periodic drop roll: a d10 spills on 7-10.
func analyzeDropRate() {
	rng := rand.New(rand.NewSource(1))
	drops := 0
	for i := 0; i < trials; i++ {
		if rng.Intn(10)+1 > 6 {
			drops++
		}
	}
	report("drop discharge", float64(drops)/trials, 0.4)
}

// analyzeBonusRate replays the race winner's surprise extra roll.
func analyzeBonusRate() {
	rng := rand.New(rand.NewSource(1))
	bonuses := 0
	for i := 0; i < trials; i++ {
		if rng.Intn(10) == 0 {
			bonuses++
		}
	}
	report("race bonus", float64(bonuses)/trials, 0.1)
}

// analyzeRaceFairness runs the race movement loop with equal lanes and no
// trick token, and checks each lane wins its fair share. The batched moves
// and the forfeited repeat picks cancel out across lanes, so every racer
// should finish first 1/n of the time.
func analyzeRaceFairness(racers int) {
	const laneLength = 11
	rng := rand.New(rand.NewSource(1))
	wins := make([]int, racers)

	for i := 0; i < trials; i++ {
		remaining := make([]int, racers)
		for j := range remaining {
			remaining[j] = laneLength
		}
		movesLeft := rng.Intn(racers) + 1
		mover := -1
		for mover < 0 || remaining[mover] > 0 {
			prev := mover
			mover = rng.Intn(racers)
			if movesLeft > 1 && prev == mover {
				continue
			}
			remaining[mover]--
			movesLeft--
			if movesLeft == 0 {
				movesLeft = rng.Intn(racers) + 1
			}
		}
		wins[mover]++
	}

	expected := 1.0 / float64(racers)
	worst := 0.0
	for _, w := range wins {
		rate := float64(w) / trials
		if d := math.Abs(rate - expected); d > worst {
			worst = d
		}
	}
	report(fmt.Sprintf("race fairness (%d racers, worst lane)", racers), expected+worst, expected)
}

func report(name string, actual, expected float64) {
	deviation := actual - expected
	verdict := "✓ PASS"
	if math.Abs(deviation) > 0.02 {
		verdict = "✗ FAIL"
	}
	fmt.Printf("%-40s expected %.4f | actual %.4f | deviation %+.4f %s\n",
		name, expected, actual, deviation, verdict)
}
