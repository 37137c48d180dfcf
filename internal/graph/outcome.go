package graph

import "errors"

// OutcomeKind tags the result of a page fetch. Restricted and NotFound are
// legitimate terminal states, not errors; the orchestrator pattern-matches
// on the kind instead of unwinding through error chains.
type OutcomeKind int

const (
	// OutcomeOK means the page rendered and data was extracted.
	OutcomeOK OutcomeKind = iota
	// OutcomeRestricted means the page loaded but its content is not
	// visible to the session (privacy-restricted friends list, etc.).
	OutcomeRestricted
	// OutcomeNotFound means the profile does not exist or was removed.
	OutcomeNotFound
	// OutcomeTransientError means the fetch failed in a way that a retry
	// might fix (timeout, navigation error). Non-fatal to a traversal.
	OutcomeTransientError
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeOK:
		return "ok"
	case OutcomeRestricted:
		return "restricted"
	case OutcomeNotFound:
		return "not_found"
	case OutcomeTransientError:
		return "transient_error"
	default:
		return "unknown"
	}
}

// ProfileResult is the tagged result of a profile fetch.
type ProfileResult struct {
	Kind    OutcomeKind
	Profile ProfileRecord
	Err     error
}

// FriendsPage is one batch of a paginated friends fetch. Done reports that
// the source signaled the end of the list; Cursor carries opaque pagination
// state back into the next call.
type FriendsPage struct {
	Kind    OutcomeKind
	Friends []Friend
	Cursor  FriendCursor
	Done    bool
	Err     error
}

// PostsPage is one batch of a paginated posts fetch.
type PostsPage struct {
	Kind   OutcomeKind
	Posts  []PostRecord
	Cursor FriendCursor
	Done   bool
	Err    error
}

// FriendCursor is opaque pagination state owned by the PageDataSource.
// A nil cursor means "start from the top of the list".
type FriendCursor interface {
	// Attempt reports how many content loads this cursor has performed.
	// Diagnostic; callers bound their own pagination loops.
	Attempt() int
}

// ErrSessionLost indicates the browser session backing the PageDataSource is
// gone. It is the only fetch failure that aborts a whole traversal run.
var ErrSessionLost = errors.New("fetch session lost")

// ErrInvalidReference indicates a profile reference that does not parse to a
// recognized profile URL. Fatal to the single operation, not to a run.
var ErrInvalidReference = errors.New("invalid profile reference")
