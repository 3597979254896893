package session

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"academy/internal/apperr"
)

// State is one attendance-marking workflow: start, submit, acknowledge.
// It is handed to the operator as a signed token and passed back on every
// step, so the server keeps no session flags of its own.
type State struct {
	ID         string `json:"sid"`
	Date       string `json:"date"`
	Batch      string `json:"batch"`
	StudentIDs []int  `json:"students"`
	LogVersion int    `json:"log_version"`
	Submitted  bool   `json:"submitted"`
}

// New starts a fresh workflow. logVersion is the Attendance_Log row count
// observed when the grid was built.
func New(date, batch string, studentIDs []int, logVersion int) State {
	return State{
		ID:         uuid.NewString(),
		Date:       date,
		Batch:      batch,
		StudentIDs: studentIDs,
		LogVersion: logVersion,
	}
}

// Includes reports whether the student was part of the grid.
func (s State) Includes(id int) bool {
	for _, sid := range s.StudentIDs {
		if sid == id {
			return true
		}
	}
	return false
}

// Claims is the JWT payload carrying a State.
type Claims struct {
	State State `json:"state"`
	jwt.RegisteredClaims
}

// Signer issues and verifies session tokens with HS256.
type Signer struct {
	key    []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewSigner creates a signer. ttl bounds how long a grid may stay open.
func NewSigner(key, issuer string, ttl time.Duration) *Signer {
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	return &Signer{key: []byte(key), issuer: issuer, ttl: ttl, now: time.Now}
}

// Sign encodes st into a token and returns it with its expiry.
func (s *Signer) Sign(st State) (string, time.Time, error) {
	now := s.now()
	exp := now.Add(s.ttl)
	claims := Claims{
		State: st,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        st.ID,
			Issuer:    s.issuer,
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, exp, nil
}

// Parse verifies a token and returns its State.
func (s *Signer) Parse(token string) (State, error) {
	if token == "" {
		return State{}, apperr.Invalid("session", "session_token", "required", "session token is required")
	}
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return s.key, nil
	}, jwt.WithTimeFunc(s.now), jwt.WithIssuer(s.issuer))
	if err != nil {
		return State{}, apperr.Wrap(apperr.Validation, "session", err)
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return State{}, apperr.New(apperr.Validation, "session", "invalid session token")
	}
	return claims.State, nil
}
