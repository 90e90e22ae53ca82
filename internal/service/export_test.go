package service

import "time"

// SetClock replaces the deploy id and time sources.
func (s *DeployService) SetClock(newID func() string, now func() time.Time) {
	s.newID = newID
	s.now = now
}
