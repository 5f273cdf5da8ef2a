package newsletter

// Candidate is one deduplicated newsletter sender/subject pair eligible
// for an unsubscribe or delete action. WebLinks is never empty; a message
// without an openable link is never admitted as a candidate.
type Candidate struct {
	ID       MessageID
	Sender   string
	Subject  string
	WebLinks []string
	AllLinks []string
}

// Counters accumulates session outcomes. It is created at program start
// and threaded explicitly through every controller and executor call;
// only executor outcomes increment it.
type Counters struct {
	Unsubscribed int
	Deleted      int
	Errors       int
}
