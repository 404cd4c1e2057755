package enrollment

import (
	"bytes"
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/critique/pkg/apperrors"
	"github.com/platinummonkey/critique/pkg/audit"
	"github.com/platinummonkey/critique/pkg/auth"
	"github.com/platinummonkey/critique/pkg/mail"
	"github.com/platinummonkey/critique/pkg/observability"
	"github.com/platinummonkey/critique/pkg/users"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type fakeUserStore struct {
	mu     sync.Mutex
	nextID int64
	users  map[int64]*auth.User
	codes  map[int64]*users.ConfirmationCode
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: map[int64]*auth.User{}, codes: map[int64]*users.ConfirmationCode{}}
}

func (s *fakeUserStore) find(match func(*auth.User) bool, key string) (*auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if match(u) {
			c := *u
			return &c, nil
		}
	}
	return nil, apperrors.NotFound("user", key)
}

func (s *fakeUserStore) GetByUsername(ctx context.Context, username string) (*auth.User, error) {
	return s.find(func(u *auth.User) bool { return u.Username == username }, username)
}

func (s *fakeUserStore) GetByEmail(ctx context.Context, email string) (*auth.User, error) {
	return s.find(func(u *auth.User) bool { return u.Email == email }, email)
}

func (s *fakeUserStore) Create(ctx context.Context, user *auth.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	user.ID = s.nextID
	c := *user
	s.users[user.ID] = &c
	return nil
}

func (s *fakeUserStore) SetConfirmationCode(ctx context.Context, userID int64, hash string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.codes[userID] = &users.ConfirmationCode{Hash: hash, ExpiresAt: &expiresAt}
	return nil
}

func (s *fakeUserStore) GetConfirmationCode(ctx context.Context, userID int64) (*users.ConfirmationCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.codes[userID]; ok {
		return c, nil
	}
	return &users.ConfirmationCode{}, nil
}

func (s *fakeUserStore) ConsumeConfirmationCode(ctx context.Context, userID int64, hash string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.codes[userID]; !ok || c.Hash != hash {
		return false, nil
	}
	delete(s.codes, userID)
	return true, nil
}

func (s *fakeUserStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.users)
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []mail.Message
	err  error
}

func (m *fakeMailer) Send(ctx context.Context, msg mail.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return m.err
}

var codePattern = regexp.MustCompile(`code is (\S+)`)

func (m *fakeMailer) lastCode(t *testing.T) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.NotEmpty(t, m.sent)
	match := codePattern.FindStringSubmatch(m.sent[len(m.sent)-1].Body)
	require.Len(t, match, 2)
	return match[1]
}

type fixture struct {
	svc     *Service
	store   *fakeUserStore
	mailer  *fakeMailer
	tokens  *auth.TokenIssuer
	metrics *observability.Metrics
	logs    *bytes.Buffer
}

func newFixture(codeTTL time.Duration) *fixture {
	f := &fixture{
		store:   newFakeUserStore(),
		mailer:  &fakeMailer{},
		tokens:  auth.NewTokenIssuer(testSecret, time.Hour),
		metrics: observability.NewMetrics(prometheus.NewRegistry()),
		logs:    &bytes.Buffer{},
	}
	logger := observability.NewLogger(observability.InfoLevel, f.logs)
	f.svc = NewService(f.store, auth.NewCodeGenerator(codeTTL), f.tokens, f.mailer, logger, WithMetrics(f.metrics))
	return f
}

func TestRequestCode_NewUser(t *testing.T) {
	f := newFixture(time.Hour)
	auditLog := audit.NewMemoryLogger()
	ctx := audit.WithLogger(context.Background(), auditLog)

	resp, err := f.svc.RequestCode(ctx, SignupRequest{Username: "alice", Email: "alice@example.com"})
	require.NoError(t, err)
	assert.Equal(t, &SignupRequest{Username: "alice", Email: "alice@example.com"}, resp)

	u, err := f.store.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, auth.RoleUser, u.Role)

	require.Len(t, f.mailer.sent, 1)
	assert.Equal(t, "alice@example.com", f.mailer.sent[0].To)

	stored, _ := f.store.GetConfirmationCode(ctx, u.ID)
	code := f.mailer.lastCode(t)
	assert.NotEqual(t, code, stored.Hash)
	assert.Len(t, code, auth.CodeLength)

	assert.Len(t, auditLog.EventsOfType(audit.EventTypeAuthCodeIssued), 1)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.SignupsTotal.WithLabelValues("new")))
}

func TestRequestCode_Conflicts(t *testing.T) {
	f := newFixture(time.Hour)
	ctx := context.Background()

	_, err := f.svc.RequestCode(ctx, SignupRequest{Username: "alice", Email: "alice@example.com"})
	require.NoError(t, err)

	t.Run("existing username with new email", func(t *testing.T) {
		_, err := f.svc.RequestCode(ctx, SignupRequest{Username: "alice", Email: "other@example.com"})
		assert.True(t, apperrors.IsConflict(err))
	})

	t.Run("existing email with new username", func(t *testing.T) {
		_, err := f.svc.RequestCode(ctx, SignupRequest{Username: "alice2", Email: "alice@example.com"})
		assert.True(t, apperrors.IsConflict(err))
	})

	t.Run("exact pair reissues code", func(t *testing.T) {
		first := f.mailer.lastCode(t)
		_, err := f.svc.RequestCode(ctx, SignupRequest{Username: "alice", Email: "alice@example.com"})
		require.NoError(t, err)
		assert.Len(t, f.mailer.sent, 2)
		assert.NotEqual(t, first, f.mailer.lastCode(t))
		assert.Equal(t, 1, f.store.count())
		assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.SignupsTotal.WithLabelValues("existing")))
	})
}

func TestRequestCode_Validation(t *testing.T) {
	f := newFixture(time.Hour)

	tests := []struct {
		name  string
		req   SignupRequest
		field string
	}{
		{"reserved me", SignupRequest{Username: "me", Email: "a@example.com"}, "username"},
		{"reserved Me", SignupRequest{Username: "Me", Email: "a@example.com"}, "username"},
		{"reserved ME", SignupRequest{Username: "ME", Email: "a@example.com"}, "username"},
		{"bad pattern", SignupRequest{Username: "bad name", Email: "a@example.com"}, "username"},
		{"bad email", SignupRequest{Username: "alice", Email: "nope"}, "email"},
		{"missing email", SignupRequest{Username: "alice"}, "email"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.RequestCode(context.Background(), tt.req)
			require.Error(t, err)
			assert.Contains(t, apperrors.FieldErrors(err), tt.field)
		})
	}
	assert.Zero(t, f.store.count())
}

func TestRequestCode_MailFailureSwallowed(t *testing.T) {
	f := newFixture(time.Hour)
	f.mailer.err = errors.New("smtp down")

	resp, err := f.svc.RequestCode(context.Background(), SignupRequest{Username: "alice", Email: "alice@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "alice", resp.Username)
	assert.Contains(t, f.logs.String(), "smtp down")
	assert.Contains(t, f.logs.String(), `"level":"error"`)
}

func TestExchangeCode(t *testing.T) {
	f := newFixture(time.Hour)
	ctx := context.Background()

	_, err := f.svc.RequestCode(ctx, SignupRequest{Username: "alice", Email: "alice@example.com"})
	require.NoError(t, err)
	code := f.mailer.lastCode(t)

	t.Run("wrong code", func(t *testing.T) {
		_, err := f.svc.ExchangeCode(ctx, TokenRequest{Username: "alice", ConfirmationCode: "WRONGWRONG22"})
		require.Error(t, err)
		assert.Contains(t, apperrors.FieldErrors(err), "confirmation_code")
	})

	t.Run("unknown user", func(t *testing.T) {
		_, err := f.svc.ExchangeCode(ctx, TokenRequest{Username: "ghost", ConfirmationCode: code})
		assert.True(t, apperrors.IsNotFound(err))
	})

	t.Run("missing fields", func(t *testing.T) {
		_, err := f.svc.ExchangeCode(ctx, TokenRequest{})
		fields := apperrors.FieldErrors(err)
		assert.Contains(t, fields, "username")
		assert.Contains(t, fields, "confirmation_code")
	})

	t.Run("valid code", func(t *testing.T) {
		resp, err := f.svc.ExchangeCode(ctx, TokenRequest{Username: "alice", ConfirmationCode: code})
		require.NoError(t, err)

		claims, err := f.tokens.Verify(resp.Token)
		require.NoError(t, err)
		assert.Equal(t, "alice", claims.Username)
		assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.TokensIssuedTotal.WithLabelValues("issued")))
	})

	t.Run("code is single use", func(t *testing.T) {
		_, err := f.svc.ExchangeCode(ctx, TokenRequest{Username: "alice", ConfirmationCode: code})
		require.Error(t, err)
		assert.Contains(t, apperrors.FieldErrors(err), "confirmation_code")
	})
}

func TestExchangeCode_Expired(t *testing.T) {
	f := newFixture(-time.Minute)
	ctx := context.Background()

	_, err := f.svc.RequestCode(ctx, SignupRequest{Username: "alice", Email: "alice@example.com"})
	require.NoError(t, err)

	_, err = f.svc.ExchangeCode(ctx, TokenRequest{Username: "alice", ConfirmationCode: f.mailer.lastCode(t)})
	require.Error(t, err)
	assert.Equal(t, []string{"Confirmation code has expired."}, apperrors.FieldErrors(err)["confirmation_code"])
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.TokensIssuedTotal.WithLabelValues("expired")))
}
