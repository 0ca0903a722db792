package model

import "fmt"

// AccessLevel is an ordered administrator privilege tier. A higher rank
// satisfies any requirement at or below it.
type AccessLevel string

const (
	SecurityAdmin AccessLevel = "SECURITY_ADMIN"
	ExamAdmin     AccessLevel = "EXAM_ADMIN"
	SystemAdmin   AccessLevel = "SYSTEM_ADMIN"
	SuperAdmin    AccessLevel = "SUPER_ADMIN"
)

var levelRanks = map[AccessLevel]int{
	SecurityAdmin: 1,
	ExamAdmin:     2,
	SystemAdmin:   3,
	SuperAdmin:    4,
}

// AccessLevels lists all levels in ascending rank order.
func AccessLevels() []AccessLevel {
	return []AccessLevel{SecurityAdmin, ExamAdmin, SystemAdmin, SuperAdmin}
}

// Rank returns the level's position in the total order, 0 for unknown levels.
func (l AccessLevel) Rank() int {
	return levelRanks[l]
}

// Valid reports whether the level is one of the defined tiers.
func (l AccessLevel) Valid() bool {
	_, ok := levelRanks[l]
	return ok
}

// Authorizes reports whether a session holding this level may perform an
// operation gated at required. Pure comparison, no state.
func (l AccessLevel) Authorizes(required AccessLevel) bool {
	return l.Valid() && required.Valid() && l.Rank() >= required.Rank()
}

// ParseAccessLevel validates a caller-supplied level string.
func ParseAccessLevel(s string) (AccessLevel, error) {
	level := AccessLevel(s)
	if !level.Valid() {
		return "", fmt.Errorf("unknown access level: %q", s)
	}
	return level, nil
}
