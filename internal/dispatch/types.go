package dispatch

import "time"

// Seniority is an agent's experience tier. It scales the number of chats
// the agent may hold concurrently.
type Seniority string

const (
	SeniorityJunior   Seniority = "Junior"
	SeniorityMidLevel Seniority = "MidLevel"
	SenioritySenior   Seniority = "Senior"
	SeniorityTeamLead Seniority = "TeamLead"
)

// seniorityOrder is the walk order used by the selector: juniors are
// always offered work before anyone else in the same team.
var seniorityOrder = []Seniority{
	SeniorityJunior,
	SeniorityMidLevel,
	SenioritySenior,
	SeniorityTeamLead,
}

// Multiplier returns the efficiency coefficient for the tier.
func (s Seniority) Multiplier() float64 {
	switch s {
	case SeniorityJunior:
		return 0.4
	case SeniorityMidLevel:
		return 0.6
	case SenioritySenior:
		return 0.8
	case SeniorityTeamLead:
		return 0.5
	default:
		return 0
	}
}

// Team identifies a support team. Overflow is only drained during office
// hours.
type Team string

const (
	TeamA        Team = "TeamA"
	TeamB        Team = "TeamB"
	TeamC        Team = "TeamC"
	TeamOverflow Team = "Overflow"
)

// rotationTeams is the order the dispatcher rotates through when it picks
// a team for a main-queue session.
var rotationTeams = []Team{TeamA, TeamB, TeamC}

// SessionStatus is the lifecycle state of a chat session.
type SessionStatus string

const (
	StatusQueued    SessionStatus = "Queued"
	StatusAssigned  SessionStatus = "Assigned"
	StatusActive    SessionStatus = "Active"
	StatusInactive  SessionStatus = "Inactive"
	StatusCompleted SessionStatus = "Completed"
	StatusRefused   SessionStatus = "Refused"
)

// Engine tuning constants. These are the reference values; the config
// layer may override the intervals and batch sizes.
const (
	// BaseConcurrency is scaled by the seniority multiplier to derive an
	// agent's concurrent chat limit.
	BaseConcurrency = 10

	// QueueLimitMultiplier scales team capacity into the admission queue
	// limit: floor(capacity * 1.5).
	QueueLimitMultiplier = 1.5

	// MissedPollThreshold inactivates a session once reached.
	MissedPollThreshold = 3

	// ExpectedPollInterval is how often a live client must poll.
	ExpectedPollInterval = time.Second

	// ShiftHandoffMargin stops agents accepting new chats this close to
	// the end of their shift.
	ShiftHandoffMargin = 5 * time.Minute

	// DefaultDispatchInterval is the dispatcher tick period.
	DefaultDispatchInterval = 2 * time.Second

	// DefaultMonitorInterval is the liveness monitor tick period.
	DefaultMonitorInterval = 5 * time.Second

	// DefaultBatchSize caps how many queued sessions one dispatcher tick
	// offers to the selector.
	DefaultBatchSize = 10

	// DefaultOverflowPromotionBatch caps how many unassigned sessions are
	// moved to the overflow queue per tick.
	DefaultOverflowPromotionBatch = 5

	// AssignRetries and AssignRetryBackoff govern the assigner's handling
	// of transient store failures (backoff is multiplied by the attempt).
	AssignRetries      = 3
	AssignRetryBackoff = 100 * time.Millisecond

	// CapacityCacheTTL bounds how stale a cached capacity figure may be.
	CapacityCacheTTL = 5 * time.Second

	// EstimatedHandleTime is the per-position constant used by the wait
	// estimator.
	EstimatedHandleTime = 5 * time.Minute
)
