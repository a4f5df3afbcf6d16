package player

// DefaultSkipQuorum is the number of distinct non-requester votes needed to
// skip the current entry when no quorum is configured.
const DefaultSkipQuorum = 3

// VoteOutcome classifies the result of a skip vote.
type VoteOutcome int

const (
	VoteForced         VoteOutcome = iota // Requester skipped their own entry
	VoteAlreadyCounted                    // Voter already has a vote on this entry
	VoteCounted                           // Vote recorded, quorum not yet reached
	VoteQuorumReached                     // Vote recorded and quorum reached
)

// String returns the string representation of the outcome.
func (o VoteOutcome) String() string {
	switch o {
	case VoteForced:
		return "forced"
	case VoteAlreadyCounted:
		return "already_voted"
	case VoteCounted:
		return "vote_recorded"
	case VoteQuorumReached:
		return "quorum_reached"
	default:
		return "unknown"
	}
}

// VoteResult is the outcome of a skip vote plus the vote count after it.
// Votes excludes the requester, whose vote always forces a skip instead.
type VoteResult struct {
	Outcome VoteOutcome
	Votes   int
}

// tallyVote decides what a skip vote from voterID does, without mutating
// anything. votes is the set of voters already counted against the current
// entry; requesterID is who queued it.
func tallyVote(voterID, requesterID string, votes map[string]struct{}, quorum int) VoteResult {
	if voterID == requesterID {
		return VoteResult{Outcome: VoteForced, Votes: len(votes)}
	}
	if _, ok := votes[voterID]; ok {
		return VoteResult{Outcome: VoteAlreadyCounted, Votes: len(votes)}
	}
	n := len(votes) + 1
	if n >= quorum {
		return VoteResult{Outcome: VoteQuorumReached, Votes: n}
	}
	return VoteResult{Outcome: VoteCounted, Votes: n}
}
