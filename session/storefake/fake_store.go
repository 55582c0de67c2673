package storefake

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	apperrors "github.com/draftstudio/auth-gateway/internal/errors"
	"github.com/draftstudio/auth-gateway/session"
)

var _ session.Store = (*FakeStore)(nil)

// FakeStore is an in-memory session store for tests. Accounts are seeded
// with AddUser; sessions created through the store are written to the
// response using the real cookie codec, so handlers under test observe the
// same cookie behaviour as in production.
type FakeStore struct {
	lock    sync.Mutex
	cookies session.Cookies
	users   map[string]fakeAccount // email -> account
	codes   map[string]string      // auth code -> email

	// Err, when set, is returned by every operation. Simulates an
	// unreachable provider or database.
	Err error
	// Current, when set, is returned by GetSession regardless of cookies.
	Current *session.Session
}

type fakeAccount struct {
	id           string
	passwordHash []byte
	metadata     map[string]string
}

func NewFakeStore() *FakeStore {
	return &FakeStore{
		users: make(map[string]fakeAccount),
		codes: make(map[string]string),
	}
}

// AddUser seeds an account and returns its id. Passwords are stored hashed,
// matching how the real provider keeps credentials.
func (f *FakeStore) AddUser(email, password string, metadata map[string]string) string {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		panic("storefake: hash password: " + err.Error())
	}

	f.lock.Lock()
	defer f.lock.Unlock()

	id := uuid.New().String()
	f.users[email] = fakeAccount{id: id, passwordHash: hash, metadata: metadata}
	return id
}

// AddCode registers an authorization code redeemable for email's account.
func (f *FakeStore) AddCode(code, email string) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.codes[code] = email
}

func (f *FakeStore) GetSession(r *http.Request) (*session.Session, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	if f.Current != nil {
		return f.Current, nil
	}
	sess, err := f.cookies.Read(r)
	if err != nil || sess == nil {
		return nil, err
	}
	if sess.Expired(time.Now()) {
		return nil, nil
	}
	return sess, nil
}

func (f *FakeStore) SignIn(ctx context.Context, w http.ResponseWriter, email, password string) (*session.Session, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	f.lock.Lock()
	account, ok := f.users[email]
	f.lock.Unlock()

	if !ok || bcrypt.CompareHashAndPassword(account.passwordHash, []byte(password)) != nil {
		return nil, apperrors.Wrapf(apperrors.ErrInvalidCredentials, "fake sign in")
	}
	return f.issue(w, email, account)
}

func (f *FakeStore) SignUp(ctx context.Context, w http.ResponseWriter, email, password string) (*session.Session, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	f.lock.Lock()
	_, exists := f.users[email]
	f.lock.Unlock()

	if exists {
		return nil, apperrors.Wrapf(apperrors.ErrSignupRejected, "email already registered")
	}
	f.AddUser(email, password, nil)
	f.lock.Lock()
	account := f.users[email]
	f.lock.Unlock()
	return f.issue(w, email, account)
}

func (f *FakeStore) ExchangeCode(ctx context.Context, w http.ResponseWriter, code string) (*session.Session, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	f.lock.Lock()
	email, ok := f.codes[code]
	account := f.users[email]
	delete(f.codes, code)
	f.lock.Unlock()

	if !ok {
		return nil, apperrors.Wrapf(apperrors.ErrExchangeFailed, "unknown code")
	}
	return f.issue(w, email, account)
}

func (f *FakeStore) SignOut(w http.ResponseWriter) {
	f.cookies.Clear(w)
}

func (f *FakeStore) issue(w http.ResponseWriter, email string, account fakeAccount) (*session.Session, error) {
	sess := &session.Session{
		AccessToken:  uuid.New().String(),
		RefreshToken: uuid.New().String(),
		ExpiresAt:    time.Now().Add(time.Hour),
		User: &session.User{
			ID:       account.id,
			Email:    email,
			Metadata: account.metadata,
		},
	}
	if w != nil {
		if err := f.cookies.Write(w, sess); err != nil {
			return nil, err
		}
	}
	return sess, nil
}
