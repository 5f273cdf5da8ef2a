package newsletter

import "context"

// MessageID is an opaque mailbox message identifier. It is minted by the
// gateway and treated as an immutable token by everything above it.
type MessageID uint32

// Message is the slice of a mailbox message the scanner needs: display
// fields plus the raw unsubscribe header value ("" when the header is
// absent).
type Message struct {
	ID          MessageID
	Sender      string
	Subject     string
	Unsubscribe string
}

// Gateway abstracts the mailbox. Implementations own connection state,
// flag persistence, and the expunge commit.
type Gateway interface {
	// ListUnseenIDs returns unseen message ids in stable mailbox order,
	// excluding messages already flagged for deletion.
	ListUnseenIDs(ctx context.Context) ([]MessageID, error)
	Fetch(ctx context.Context, id MessageID) (Message, error)
	MarkDeleted(ctx context.Context, id MessageID) error
	Expunge(ctx context.Context) error
}

// LinkOpener launches a URL in whatever the host treats as the default
// handler.
type LinkOpener interface {
	Open(url string) error
}
