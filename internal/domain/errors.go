package domain

import "errors"

var (
	// ErrTeamNotFound is returned when no team exists for the supplied id.
	ErrTeamNotFound = errors.New("team not found")
	// ErrProgressNotStarted is returned when a team acts before the event started.
	ErrProgressNotStarted = errors.New("game not started")
	// ErrProgressExists is returned when a progress record already exists.
	ErrProgressExists = errors.New("progress already exists")
	// ErrStageSetNotFound indicates the stage set content could not be loaded.
	ErrStageSetNotFound = errors.New("stage set not found")
	// ErrStageNotFound indicates a submitted stage number is not in the set.
	ErrStageNotFound = errors.New("stage not found")
	// ErrResultNotFound indicates no quiz result exists for (link, team).
	ErrResultNotFound = errors.New("quiz result not found")
)
