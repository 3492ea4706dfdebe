package domain

import "time"

// PlayCounter tracks how often a track has been played.
type PlayCounter struct {
	TimesPlayed  int       `json:"times_played" yaml:"times_played"`
	LastPlayedAt time.Time `json:"last_played_at,omitempty" yaml:"last_played_at,omitempty"`
	// Played is set while the track counts as played in the current session.
	Played bool `json:"played,omitempty" yaml:"played,omitempty"`
}

// UpdateLastPlayedNowAndTimesPlayed toggles the played flag. The counter is
// incremented only once per session and decremented again when a play is
// revoked.
func (p *PlayCounter) UpdateLastPlayedNowAndTimesPlayed(played bool) {
	if played {
		if !p.Played {
			p.TimesPlayed++
		}
		p.LastPlayedAt = time.Now().UTC()
	} else if p.Played && p.TimesPlayed > 0 {
		p.TimesPlayed--
	}
	p.Played = played
}
