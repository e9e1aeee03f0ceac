package domain

// GameStatRow holds one game's statistics for a player as a mapping from
// stat category (e.g. PTS, REB, AST) to its numeric value. Rows come from
// the external stats feed and are never persisted.
type GameStatRow map[string]float64

// Stat categories used by the valuation weight table. The feed may supply
// more; unweighted categories are simply ignored.
const (
	StatPoints        = "PTS"
	StatRebounds      = "REB"
	StatAssists       = "AST"
	StatTurnovers     = "TOV"
	StatSteals        = "STL"
	StatBlocks        = "BLK"
	StatPlusMinus     = "PLUS_MINUS"
	StatFGAttempts    = "FGA"
	StatThreePointPct = "FG3_PCT"
	StatFieldGoalPct  = "FG_PCT"
)

// RosterEntry identifies one tradable player as reported by the stats feed.
type RosterEntry struct {
	PlayerID int64
	Name     string
}
