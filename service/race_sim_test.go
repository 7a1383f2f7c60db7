package service

import (
	"fmt"
	"math/rand"
	"strings"
	"testing"

	"bubbler/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEntrants(tokens ...string) []models.RaceEntrant {
	entrants := make([]models.RaceEntrant, len(tokens))
	for i, token := range tokens {
		entrants[i] = models.RaceEntrant{
			Identity: fmt.Sprintf("racer-%d", i),
			Token:    token,
		}
	}
	return entrants
}

func TestSimulateRace_Properties(t *testing.T) {
	for seed := int64(0); seed < 50; seed++ {
		t.Run(fmt.Sprintf("seed %d", seed), func(t *testing.T) {
			rng := rand.New(rand.NewSource(seed))
			entrants := testEntrants("🐢", "🐇", "🦀", "🐕")

			sim := simulateRace(entrants, rng)

			require.NotEmpty(t, sim.Frames)
			require.GreaterOrEqual(t, sim.Winner, 0)
			require.Less(t, sim.Winner, len(entrants))

			// The opening frame shows everyone on the start line
			for _, remaining := range sim.Frames[0].Remaining {
				assert.Equal(t, models.RaceLaneLength, remaining)
			}

			// The winner crosses the line in the final frame, and nobody
			// else does
			final := sim.Frames[len(sim.Frames)-1]
			assert.Zero(t, final.Remaining[sim.Winner])
			finished := 0
			for _, remaining := range final.Remaining {
				require.GreaterOrEqual(t, remaining, 0)
				if remaining == 0 {
					finished++
				}
			}
			assert.Equal(t, 1, finished)

			// Progress only ever moves toward the finish line
			for i := 1; i < len(sim.Frames); i++ {
				for lane := range entrants {
					assert.LessOrEqual(t, sim.Frames[i].Remaining[lane], sim.Frames[i-1].Remaining[lane])
				}
			}
		})
	}
}

func TestSimulateRace_Deterministic(t *testing.T) {
	entrants := testEntrants("🐢", "🐇", "🐎")

	first := simulateRace(entrants, rand.New(rand.NewSource(7)))
	second := simulateRace(entrants, rand.New(rand.NewSource(7)))

	assert.Equal(t, first.Winner, second.Winner)
	assert.Equal(t, first.Frames, second.Frames)
}

func TestSimulateRace_TwoRacers(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	entrants := testEntrants("🐖", "🐄")

	sim := simulateRace(entrants, rng)
	final := sim.Frames[len(sim.Frames)-1]
	assert.Zero(t, final.Remaining[sim.Winner])
}

func TestRaceFrame_Render(t *testing.T) {
	entrants := testEntrants("🐢", "🐇")
	frame := models.RaceFrame{Remaining: []int{2, 0}}

	board := frame.Render(entrants)
	lines := strings.Split(board, "\n")

	// sideline, lane, sideline, lane, sideline
	require.Len(t, lines, 5)
	assert.Equal(t, strings.Repeat("━", 18), lines[0])
	assert.Equal(t, "🏁﹒ ﹒ 🐢", lines[1])
	assert.Equal(t, "🏁🐇", lines[3])
	assert.Equal(t, lines[0], lines[4])
}
