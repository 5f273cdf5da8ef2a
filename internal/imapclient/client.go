package imapclient

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"strings"

	"github.com/emersion/go-imap/v2"
	giimapclient "github.com/emersion/go-imap/v2/imapclient"
	"github.com/emersion/go-message"
	"github.com/pkg/errors"

	"github.com/mailsweep/mailsweep/internal/newsletter"
)

// unsubscribeHeader is the bulk-mail header advertising machine-actionable
// unsubscribe targets (RFC 2369).
const unsubscribeHeader = "List-Unsubscribe"

// ConnectionError marks a transport failure. Fatal to the whole run.
type ConnectionError struct {
	Addr  string
	Cause error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connecting to %s: %v", e.Addr, e.Cause)
}

func (e *ConnectionError) Unwrap() error { return e.Cause }

// AuthError marks a credential rejection. Fatal to the whole run.
type AuthError struct {
	Username string
	Cause    error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authentication failed for %s: %v", e.Username, e.Cause)
}

func (e *AuthError) Unwrap() error { return e.Cause }

// Client encapsulates an IMAP connection and implements the mailbox
// gateway the newsletter core consumes.
type Client struct {
	Addr      string
	Username  string
	Password  string
	Mailbox   string
	TLSConfig *tls.Config

	client *giimapclient.Client
}

// Connect establishes the IMAP connection, logs in, and selects the mailbox.
func (c *Client) Connect() error {
	if strings.TrimSpace(c.Addr) == "" {
		return errors.New("IMAP address is required")
	}
	if strings.TrimSpace(c.Username) == "" || strings.TrimSpace(c.Password) == "" {
		return errors.New("IMAP credentials are required")
	}
	if strings.TrimSpace(c.Mailbox) == "" {
		c.Mailbox = "INBOX"
	}

	var options *giimapclient.Options
	if c.TLSConfig != nil {
		options = &giimapclient.Options{TLSConfig: c.TLSConfig}
	}

	client, err := giimapclient.DialTLS(c.Addr, options)
	if err != nil {
		return &ConnectionError{Addr: c.Addr, Cause: err}
	}

	if err := client.Login(c.Username, c.Password).Wait(); err != nil {
		_ = client.Logout().Wait()
		return &AuthError{Username: c.Username, Cause: err}
	}

	if _, err := client.Select(c.Mailbox, nil).Wait(); err != nil {
		_ = client.Logout().Wait()
		return &ConnectionError{Addr: c.Addr, Cause: err}
	}

	c.client = client
	return nil
}

// Close logs out and clears the connection.
func (c *Client) Close() error {
	if c.client == nil {
		return nil
	}
	err := c.client.Logout().Wait()
	c.client = nil
	return err
}

// ListUnseenIDs returns unseen message UIDs in stable mailbox order.
// Messages already flagged for deletion are excluded so that acted-on
// candidates do not resurface when a batch window rescans.
func (c *Client) ListUnseenIDs(ctx context.Context) ([]newsletter.MessageID, error) {
	if c.client == nil {
		return nil, errors.New("IMAP client is not connected")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	criteria := &imap.SearchCriteria{
		NotFlag: []imap.Flag{imap.FlagSeen, imap.FlagDeleted},
	}

	data, err := c.client.UIDSearch(criteria, nil).Wait()
	if err != nil {
		return nil, err
	}

	uids := data.AllUIDs()
	ids := make([]newsletter.MessageID, 0, len(uids))
	for _, uid := range uids {
		ids = append(ids, newsletter.MessageID(uid))
	}
	return ids, nil
}

// Fetch retrieves the envelope and header section for one message and
// returns the slice of it the newsletter core needs. The body is never
// downloaded and the fetch does not set the \Seen flag.
func (c *Client) Fetch(ctx context.Context, id newsletter.MessageID) (newsletter.Message, error) {
	if c.client == nil {
		return newsletter.Message{}, errors.New("IMAP client is not connected")
	}
	if err := ctx.Err(); err != nil {
		return newsletter.Message{}, err
	}

	headerSection := &imap.FetchItemBodySection{
		Specifier: imap.PartSpecifierHeader,
		Peek:      true,
	}
	fetchOptions := &imap.FetchOptions{
		Envelope:    true,
		UID:         true,
		BodySection: []*imap.FetchItemBodySection{headerSection},
	}

	fetchCmd := c.client.Fetch(imap.UIDSetNum(imap.UID(id)), fetchOptions)

	msg := fetchCmd.Next()
	if msg == nil {
		_ = fetchCmd.Close()
		return newsletter.Message{}, errors.Errorf("message %d not found", id)
	}

	buf, err := msg.Collect()
	if err != nil {
		_ = fetchCmd.Close()
		return newsletter.Message{}, errors.Wrap(err, "collecting message data")
	}
	if err := fetchCmd.Close(); err != nil {
		return newsletter.Message{}, err
	}

	out := newsletter.Message{ID: id}
	if buf.Envelope != nil {
		out.Subject = buf.Envelope.Subject
		if len(buf.Envelope.From) > 0 {
			from := buf.Envelope.From[0]
			if from.Name != "" {
				out.Sender = from.Name
			} else {
				out.Sender = from.Addr()
			}
		}
	}
	out.Unsubscribe = parseUnsubscribeHeader(buf.FindBodySection(headerSection))

	return out, nil
}

// MarkDeleted sets the \Deleted flag on one message. The deletion is not
// destructive until Expunge commits it.
func (c *Client) MarkDeleted(ctx context.Context, id newsletter.MessageID) error {
	if c.client == nil {
		return errors.New("IMAP client is not connected")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	store := imap.StoreFlags{
		Op:     imap.StoreFlagsAdd,
		Silent: true,
		Flags:  []imap.Flag{imap.FlagDeleted},
	}
	return c.client.Store(imap.UIDSetNum(imap.UID(id)), &store, nil).Close()
}

// Expunge commits pending deletions.
func (c *Client) Expunge(ctx context.Context) error {
	if c.client == nil {
		return errors.New("IMAP client is not connected")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	_, err := c.client.Expunge().Collect()
	return err
}

// parseUnsubscribeHeader extracts the raw List-Unsubscribe value from an
// RFC 822 header section. Unparseable headers degrade to "no header";
// that only means the message is not a candidate.
func parseUnsubscribeHeader(raw []byte) string {
	if len(raw) == 0 {
		return ""
	}
	entity, err := message.Read(bytes.NewReader(raw))
	if err != nil && !message.IsUnknownCharset(err) {
		return ""
	}
	return entity.Header.Get(unsubscribeHeader)
}
