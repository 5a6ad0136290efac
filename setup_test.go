package identity_test

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/goliatone/go-identity"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

const (
	sqliteCreateUsers = `CREATE TABLE users (
    id TEXT NOT NULL PRIMARY KEY,
    email TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    is_verified BOOLEAN NOT NULL DEFAULT FALSE,
    status TEXT NOT NULL,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);`

	sqliteCreateUserEmails = `CREATE TABLE user_emails (
    id TEXT NOT NULL PRIMARY KEY,
    user_id TEXT NOT NULL,
    email TEXT NOT NULL UNIQUE,
    is_verified BOOLEAN NOT NULL DEFAULT FALSE,
    status TEXT NOT NULL,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    FOREIGN KEY (user_id) REFERENCES users (id)
);`

	sqliteCreateUserDevices = `CREATE TABLE user_devices (
    id TEXT NOT NULL PRIMARY KEY,
    user_id TEXT NOT NULL,
    advertising_id TEXT NOT NULL,
    status TEXT NOT NULL,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    FOREIGN KEY (user_id) REFERENCES users (id)
);`

	sqliteCreateVerificationCodes = `CREATE TABLE verification_codes (
    id TEXT NOT NULL PRIMARY KEY,
    email TEXT NOT NULL UNIQUE,
    hashed_code TEXT NOT NULL,
    expiration_time TIMESTAMP NOT NULL,
    user_id TEXT NOT NULL,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);`
)

func setupRepo(t *testing.T) identity.RepositoryManager {
	t.Helper()

	db, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)

	bunDB := bun.NewDB(db, sqlitedialect.New())

	for _, ddl := range []string{
		sqliteCreateUsers,
		sqliteCreateUserEmails,
		sqliteCreateUserDevices,
		sqliteCreateVerificationCodes,
	} {
		_, err = bunDB.Exec(ddl)
		require.NoError(t, err)
	}

	t.Cleanup(func() {
		_ = bunDB.Close()
	})

	return identity.NewRepositoryManager(bunDB)
}

type sentMail struct {
	To      string
	Subject string
	Body    string
}

// captureNotifier records outbound mail so tests can read the plaintext
// code that is otherwise only stored hashed.
type captureNotifier struct {
	mails chan sentMail
}

func newCaptureNotifier() *captureNotifier {
	return &captureNotifier{mails: make(chan sentMail, 16)}
}

func (c *captureNotifier) Send(ctx context.Context, to, subject, body string) error {
	c.mails <- sentMail{To: to, Subject: subject, Body: body}
	return nil
}

// waitForMail blocks until the detached delivery goroutine hands over a
// message or the test times out.
func waitForMail(t *testing.T, c *captureNotifier) sentMail {
	t.Helper()

	select {
	case m := <-c.mails:
		return m
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for mail delivery")
		return sentMail{}
	}
}

// codeFromBody extracts the plaintext code from the default mail copy,
// which places it between ": " and the first newline.
func codeFromBody(t *testing.T, body string) string {
	t.Helper()

	_, rest, found := strings.Cut(body, ": ")
	require.True(t, found, "mail body %q has no code", body)

	code, _, _ := strings.Cut(rest, "\n")
	return strings.TrimSpace(code)
}

// registerTestUser creates a user through the registration command and
// returns it with the plaintext verification code that was delivered.
func registerTestUser(t *testing.T, repo identity.RepositoryManager, notifier *captureNotifier, email, password, advertisingID string) (*identity.User, string) {
	t.Helper()

	verifier := identity.NewEmailVerifier(repo, notifier)
	handler := identity.NewRegisterUserHandler(repo, verifier)

	var resp *identity.RegisterUserResponse
	err := handler.Execute(context.Background(), identity.RegisterUserMessage{
		Email:         email,
		Password:      password,
		AdvertisingID: advertisingID,
		OnResponse:    func(r *identity.RegisterUserResponse) { resp = r },
	})
	require.NoError(t, err)
	require.NotNil(t, resp)
	require.NotNil(t, resp.User)

	mail := waitForMail(t, notifier)
	require.Equal(t, identity.NormalizeEmail(email), mail.To)

	return resp.User, codeFromBody(t, mail.Body)
}
