package service

import (
	"math/rand"

	"bubbler/models"
)

// raceSimulation is the precomputed outcome of a race: the animation frames
// in display order and the index of the winning entrant.
type raceSimulation struct {
	Frames []models.RaceFrame
	Winner int
}

// simulateRace runs the whole race up front against the injected RNG. Moves
// are generated in batches of 1..n; a frame is cut whenever a batch drains,
// plus a final frame when someone crosses the line. Within a batch the same
// entrant cannot move twice in a row unless it is the batch's last move. If
// the trick racer is in the field it hijacks another entrant's move with a
// 1-in-9 chance. The race ends the moment any lane empties.
func simulateRace(entrants []models.RaceEntrant, rng *rand.Rand) *raceSimulation {
	n := len(entrants)

	crab := -1
	for i, e := range entrants {
		if e.Token == models.TrickToken {
			crab = i
		}
	}

	remaining := make([]int, n)
	for i := range remaining {
		remaining[i] = models.RaceLaneLength
	}

	frames := []models.RaceFrame{frameOf(remaining)}
	movesLeft := rng.Intn(n) + 1

	cutFrame := func(finished bool) {
		if !finished && movesLeft != 0 {
			return
		}
		frames = append(frames, frameOf(remaining))
		movesLeft = rng.Intn(n) + 1
	}

	mover, prev := -1, -1
	for mover < 0 || remaining[mover] > 0 {
		prev = mover
		mover = rng.Intn(n)

		// A repeat pick forfeits the move unless the batch is on its
		// last one.
		if movesLeft > 1 && prev == mover {
			continue
		}

		if crab >= 0 && mover != crab && prev != mover && rng.Intn(9) == 0 {
			mover = crab
		}

		remaining[mover]--
		movesLeft--
		cutFrame(false)
	}
	cutFrame(true)

	return &raceSimulation{
		Frames: frames,
		Winner: mover,
	}
}

func frameOf(remaining []int) models.RaceFrame {
	snapshot := make([]int, len(remaining))
	copy(snapshot, remaining)
	return models.RaceFrame{Remaining: snapshot}
}
