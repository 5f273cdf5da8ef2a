package imapclient

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"net"
	"testing"
	"time"

	"github.com/emersion/go-imap/v2"
	giimapclient "github.com/emersion/go-imap/v2/imapclient"
	giimapserver "github.com/emersion/go-imap/v2/imapserver"
	giimapmemserver "github.com/emersion/go-imap/v2/imapserver/imapmemserver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mailsweep/mailsweep/internal/newsletter"
)

func TestConnectValidation(t *testing.T) {
	cases := []struct {
		name   string
		client Client
	}{
		{
			name:   "missing address",
			client: Client{Username: "user@example.com", Password: "password"},
		},
		{
			name:   "missing credentials",
			client: Client{Addr: "imap.example.com:993"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.client.Connect()
			assert.Error(t, err)
		})
	}
}

func TestConnectBadCredentials(t *testing.T) {
	addr, cleanup := setupIMAPServer(t, nil)
	t.Cleanup(cleanup)

	client := &Client{
		Addr:      addr,
		Username:  "user@example.com",
		Password:  "wrong",
		TLSConfig: &tls.Config{InsecureSkipVerify: true},
	}

	err := client.Connect()
	require.Error(t, err)
	var authErr *AuthError
	assert.ErrorAs(t, err, &authErr)
}

func TestOperationsRequireConnection(t *testing.T) {
	client := &Client{}
	ctx := context.Background()

	_, err := client.ListUnseenIDs(ctx)
	assert.Error(t, err)

	_, err = client.Fetch(ctx, 1)
	assert.Error(t, err)

	assert.Error(t, client.MarkDeleted(ctx, 1))
	assert.Error(t, client.Expunge(ctx))
	assert.NoError(t, client.Close(), "closing an unconnected client is a no-op")
}

func TestListUnseenIDsExcludesDeleted(t *testing.T) {
	client, uids, cleanup := setupConnectedClient(t)
	t.Cleanup(cleanup)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	ids, err := client.ListUnseenIDs(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []newsletter.MessageID{
		newsletter.MessageID(uids.newsletterUID),
		newsletter.MessageID(uids.plainUID),
	}, ids)

	require.NoError(t, client.MarkDeleted(ctx, newsletter.MessageID(uids.newsletterUID)))

	ids, err = client.ListUnseenIDs(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []newsletter.MessageID{
		newsletter.MessageID(uids.plainUID),
	}, ids, "flagged messages must not resurface before expunge")
}

func TestFetchReturnsHeaderSlice(t *testing.T) {
	client, uids, cleanup := setupConnectedClient(t)
	t.Cleanup(cleanup)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	msg, err := client.Fetch(ctx, newsletter.MessageID(uids.newsletterUID))
	require.NoError(t, err)
	assert.Equal(t, "Daily Digest", msg.Sender)
	assert.Equal(t, "Your Monday briefing", msg.Subject)
	assert.Contains(t, msg.Unsubscribe, "https://digest.example.com/unsub")
	assert.Contains(t, msg.Unsubscribe, "mailto:unsub@digest.example.com")

	plain, err := client.Fetch(ctx, newsletter.MessageID(uids.plainUID))
	require.NoError(t, err)
	assert.Empty(t, plain.Unsubscribe)
	assert.Equal(t, "friend@example.org", plain.Sender, "address used when display name is absent")
}

func TestFetchDoesNotSetSeen(t *testing.T) {
	client, uids, cleanup := setupConnectedClient(t)
	t.Cleanup(cleanup)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	_, err := client.Fetch(ctx, newsletter.MessageID(uids.newsletterUID))
	require.NoError(t, err)

	flags, err := fetchMessageFlags(ctx, client, uids.newsletterUID)
	require.NoError(t, err)
	assert.NotContains(t, flags, imap.FlagSeen, "peek fetch must leave the message unseen")
}

func TestFetchUnknownUID(t *testing.T) {
	client, _, cleanup := setupConnectedClient(t)
	t.Cleanup(cleanup)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	_, err := client.Fetch(ctx, newsletter.MessageID(99999))
	assert.Error(t, err)
}

func TestMarkDeletedAndExpunge(t *testing.T) {
	client, uids, cleanup := setupConnectedClient(t)
	t.Cleanup(cleanup)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	require.NoError(t, client.MarkDeleted(ctx, newsletter.MessageID(uids.newsletterUID)))
	require.NoError(t, client.Expunge(ctx))

	ids, err := client.ListUnseenIDs(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []newsletter.MessageID{
		newsletter.MessageID(uids.plainUID),
	}, ids)

	_, err = client.Fetch(ctx, newsletter.MessageID(uids.newsletterUID))
	assert.Error(t, err, "expunged messages are gone")
}

func TestOperationsHonorCancelledContext(t *testing.T) {
	client, uids, cleanup := setupConnectedClient(t)
	t.Cleanup(cleanup)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.ListUnseenIDs(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	_, err = client.Fetch(ctx, newsletter.MessageID(uids.newsletterUID))
	assert.ErrorIs(t, err, context.Canceled)

	assert.ErrorIs(t, client.MarkDeleted(ctx, newsletter.MessageID(uids.newsletterUID)), context.Canceled)
	assert.ErrorIs(t, client.Expunge(ctx), context.Canceled)
}

func TestParseUnsubscribeHeader(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want string
	}{
		{
			name: "present",
			raw: "From: News <news@example.com>\r\n" +
				"List-Unsubscribe: <https://example.com/u>\r\n" +
				"Subject: Hello\r\n" +
				"\r\n",
			want: "<https://example.com/u>",
		},
		{
			name: "absent",
			raw: "From: News <news@example.com>\r\n" +
				"Subject: Hello\r\n" +
				"\r\n",
			want: "",
		},
		{
			name: "empty input",
			raw:  "",
			want: "",
		},
		{
			name: "malformed header degrades to no candidate",
			raw:  "NotAHeaderAtAll\r\n\r\n",
			want: "",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, parseUnsubscribeHeader([]byte(tc.raw)))
		})
	}
}

type testUIDs struct {
	newsletterUID uint32
	plainUID      uint32
}

func setupConnectedClient(t *testing.T) (*Client, testUIDs, func()) {
	t.Helper()

	newsletterRaw := "From: Daily Digest <news@digest.example.com>\r\n" +
		"To: User <user@example.com>\r\n" +
		"Subject: Your Monday briefing\r\n" +
		"List-Unsubscribe: <mailto:unsub@digest.example.com>, <https://digest.example.com/unsub>\r\n" +
		"\r\n" +
		"This week in review.\r\n"
	plainRaw := "From: friend@example.org\r\n" +
		"To: User <user@example.com>\r\n" +
		"Subject: Lunch?\r\n" +
		"\r\n" +
		"Are you free on Thursday?\r\n"

	var uids testUIDs
	addr, cleanupServer := setupIMAPServer(t, func(user *giimapmemserver.User) {
		newsAppend, err := user.Append("INBOX", newLiteral(t, newsletterRaw), &imap.AppendOptions{Time: time.Now().Add(-time.Hour)})
		if err != nil {
			t.Fatalf("append newsletter: %v", err)
		}
		plainAppend, err := user.Append("INBOX", newLiteral(t, plainRaw), &imap.AppendOptions{Time: time.Now()})
		if err != nil {
			t.Fatalf("append plain message: %v", err)
		}
		uids.newsletterUID = uint32(newsAppend.UID)
		uids.plainUID = uint32(plainAppend.UID)
	})

	client := &Client{
		Addr:      addr,
		Username:  "user@example.com",
		Password:  "password",
		TLSConfig: &tls.Config{InsecureSkipVerify: true},
	}
	if err := client.Connect(); err != nil {
		cleanupServer()
		t.Fatalf("connect: %v", err)
	}

	cleanup := func() {
		_ = client.Close()
		cleanupServer()
	}
	return client, uids, cleanup
}

func setupIMAPServer(t *testing.T, seed func(user *giimapmemserver.User)) (string, func()) {
	t.Helper()

	tlsConfig := testTLSConfig(t)
	mem := giimapmemserver.New()
	user := giimapmemserver.NewUser("user@example.com", "password")
	mem.AddUser(user)

	if err := user.Create("INBOX", nil); err != nil {
		t.Fatalf("create mailbox: %v", err)
	}
	if seed != nil {
		seed(user)
	}

	server := giimapserver.New(&giimapserver.Options{
		NewSession: func(*giimapserver.Conn) (giimapserver.Session, *giimapserver.GreetingData, error) {
			return mem.NewSession(), nil, nil
		},
		TLSConfig:    tlsConfig,
		InsecureAuth: true,
	})

	ln, err := tls.Listen("tcp", "127.0.0.1:0", tlsConfig)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Serve(ln)
	}()

	cleanup := func() {
		_ = server.Close()
		_ = ln.Close()
		select {
		case <-errCh:
		default:
		}
	}
	return ln.Addr().String(), cleanup
}

type literalReader struct {
	*bytes.Reader
	size int64
}

func newLiteral(t *testing.T, raw string) imap.LiteralReader {
	t.Helper()
	buf := []byte(raw)
	return &literalReader{
		Reader: bytes.NewReader(buf),
		size:   int64(len(buf)),
	}
}

func (lr *literalReader) Size() int64 {
	return lr.size
}

func fetchMessageFlags(ctx context.Context, client *Client, uid uint32) ([]imap.Flag, error) {
	fetchOptions := &imap.FetchOptions{
		Flags: true,
	}

	fetchCmd := client.client.Fetch(imap.UIDSetNum(imap.UID(uid)), fetchOptions)
	for {
		if err := ctx.Err(); err != nil {
			_ = fetchCmd.Close()
			return nil, err
		}
		msg := fetchCmd.Next()
		if msg == nil {
			break
		}
		for {
			item := msg.Next()
			if item == nil {
				break
			}
			if data, ok := item.(giimapclient.FetchItemDataFlags); ok {
				_ = fetchCmd.Close()
				return data.Flags, nil
			}
		}
	}
	if err := fetchCmd.Close(); err != nil {
		return nil, err
	}
	return nil, nil
}

func testTLSConfig(t *testing.T) *tls.Config {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	serial, err := rand.Int(rand.Reader, big.NewInt(1<<62))
	if err != nil {
		t.Fatalf("generate serial: %v", err)
	}

	template := x509.Certificate{
		SerialNumber: serial,
		Subject: pkix.Name{
			CommonName: "localhost",
		},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(time.Hour),
		DNSNames:              []string{"localhost"},
		IPAddresses:           []net.IP{net.ParseIP("127.0.0.1")},
		KeyUsage:              x509.KeyUsageKeyEncipherment | x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
	}

	der, err := x509.CreateCertificate(rand.Reader, &template, &template, &key.PublicKey, key)
	if err != nil {
		t.Fatalf("create cert: %v", err)
	}

	cert := tls.Certificate{
		Certificate: [][]byte{der},
		PrivateKey:  key,
	}

	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		NextProtos:   []string{"imap"},
	}
}
