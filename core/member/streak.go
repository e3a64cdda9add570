package member

import "time"

// Streak tracks consecutive-day logins.
type Streak struct {
	Current int `json:"current"`
	Longest int `json:"longest"`
}

// day truncates t to midnight UTC.
func day(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// AdvanceStreak applies a login happening at now to a streak whose last
// counted login day is lastLoginDay (nil when no login was ever counted).
// Consecutive calendar days extend the streak; a gap resets it to 1; a second
// login on the same day changes nothing. Longest never drops below 1 once a
// login is counted. The returned bool reports whether the streak changed.
func AdvanceStreak(lastLoginDay *time.Time, now time.Time, s Streak) (Streak, bool) {
	today := day(now)

	if lastLoginDay == nil {
		s.Current = 1
	} else {
		last := day(*lastLoginDay)
		switch days := int(today.Sub(last).Hours() / 24); {
		case days <= 0:
			return s, false
		case days == 1:
			s.Current++
		default:
			s.Current = 1
		}
	}

	if s.Current > s.Longest {
		s.Longest = s.Current
	}
	if s.Longest < 1 {
		s.Longest = 1
	}
	return s, true
}
