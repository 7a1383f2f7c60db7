package models

import "strings"

// RaceStatus represents the lifecycle state of the singleton race
type RaceStatus string

const (
	// RaceForming means the entry window is open
	RaceForming RaceStatus = "forming"
	// RaceActive means the entry window has closed and the race is being
	// animated and settled; no further entries are accepted
	RaceActive RaceStatus = "active"
)

// RacerTokens is the fixed pool racer tokens are drawn from, without
// replacement, one per entrant per race.
var RacerTokens = []string{"🐢", "🐇", "🐎", "🦀", "🐈", "🐕", "🦎", "🐖", "🐄", "🦆"}

// TrickToken is the racer that can steal another racer's advance.
const TrickToken = "🦀"

// RaceLaneLength is the number of steps between the start and the finish line.
const RaceLaneLength = 11

// RaceEntrant pairs an identity with its assigned racer token. Order is
// entry order.
type RaceEntrant struct {
	Identity string `json:"identity"`
	Token    string `json:"token"`
}

// Race is the singleton race event, owned by the house account while one is
// in progress. Entry wagers are escrowed into the house float and tracked on
// each entrant's account for refund purposes.
type Race struct {
	Wager    int64         `json:"wager"`
	Status   RaceStatus    `json:"status"`
	Entrants []RaceEntrant `json:"entrants"`
	Pool     []string      `json:"pool"`
}

// Entered reports whether the identity already holds a lane in this race.
func (r *Race) Entered(identity string) bool {
	for _, e := range r.Entrants {
		if e.Identity == identity {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the race.
func (r *Race) Clone() *Race {
	c := *r
	c.Entrants = append([]RaceEntrant(nil), r.Entrants...)
	c.Pool = append([]string(nil), r.Pool...)
	return &c
}

// TokenRecord tracks the lifetime win/loss record of a racer token,
// independent of which identity drew it.
type TokenRecord struct {
	Wins   int `json:"wins"`
	Losses int `json:"losses"`
}

// WinRate returns the token's historical win percentage (0-100) and whether
// the token has raced before.
func (t *TokenRecord) WinRate() (float64, bool) {
	total := t.Wins + t.Losses
	if total == 0 {
		return 0, false
	}
	return float64(t.Wins) / float64(total) * 100, true
}

// RaceFrame is one animation frame of the progress simulation: the remaining
// distance to the finish line for each entrant, in entry order.
type RaceFrame struct {
	Remaining []int
}

// Render draws the frame as a text race board, one lane per entrant.
func (f RaceFrame) Render(entrants []RaceEntrant) string {
	sideline := strings.Repeat("━", 18)
	var b strings.Builder
	for i, e := range entrants {
		b.WriteString(sideline)
		b.WriteString("\n🏁")
		b.WriteString(strings.Repeat("﹒ ", f.Remaining[i]))
		b.WriteString(e.Token)
		b.WriteString("\n")
	}
	b.WriteString(sideline)
	return b.String()
}

// RaceResult represents the outcome of a settled race
type RaceResult struct {
	Winner     RaceEntrant
	Wager      int64
	Payout     int64
	Bonus      int64
	RacerCount int
}
