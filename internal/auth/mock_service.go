package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/quillhub/backend/internal/models"
)

// MockCall records a method call for assertion
type MockCall struct {
	Method string
	Args   []interface{}
}

// MockService is an in-memory Authenticator for handler and middleware tests.
// Tokens have the form "mock_token_<id>".
type MockService struct {
	mu sync.Mutex

	Calls []MockCall

	// Configurable function overrides
	RegisterFunc      func(req RegisterRequest) (*AuthResponse, error)
	LoginFunc         func(req LoginRequest) (*AuthResponse, error)
	ValidateTokenFunc func(tokenString string) (*Claims, error)

	// Default error to return
	DefaultError error

	users  map[string]*models.User
	nextID uint
}

// NewMockService creates a mock with no users
func NewMockService() *MockService {
	return &MockService{users: make(map[string]*models.User)}
}

func (m *MockService) recordCall(method string, args ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, MockCall{Method: method, Args: args})
}

// CallsFor returns recorded calls of one method
func (m *MockService) CallsFor(method string) []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []MockCall
	for _, call := range m.Calls {
		if call.Method == method {
			result = append(result, call)
		}
	}
	return result
}

// AddUser adds a user; a zero ID is assigned
func (m *MockService) AddUser(user *models.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if user.ID == 0 {
		m.nextID++
		user.ID = m.nextID
	} else if user.ID > m.nextID {
		m.nextID = user.ID
	}
	if user.Role == "" {
		user.Role = models.RoleUser
	}
	m.users[user.Email] = user
}

// TokenFor returns the mock token of a user
func TokenFor(userID uint) string {
	return fmt.Sprintf("mock_token_%d", userID)
}

func (m *MockService) respond(user *models.User) *AuthResponse {
	return &AuthResponse{
		Token:     TokenFor(user.ID),
		User:      *user,
		ExpiresAt: time.Now().Add(TokenTTL),
	}
}

func (m *MockService) Register(_ context.Context, req RegisterRequest) (*AuthResponse, error) {
	m.recordCall("Register", req)
	if m.RegisterFunc != nil {
		return m.RegisterFunc(req)
	}
	if m.DefaultError != nil {
		return nil, m.DefaultError
	}

	m.mu.Lock()
	_, exists := m.users[req.Email]
	m.mu.Unlock()
	if exists {
		return nil, ErrUserExists
	}

	user := &models.User{Email: req.Email, Username: req.Username, Name: req.Name}
	m.AddUser(user)
	return m.respond(user), nil
}

func (m *MockService) Login(_ context.Context, req LoginRequest) (*AuthResponse, error) {
	m.recordCall("Login", req)
	if m.LoginFunc != nil {
		return m.LoginFunc(req)
	}
	if m.DefaultError != nil {
		return nil, m.DefaultError
	}

	m.mu.Lock()
	user, exists := m.users[req.Email]
	m.mu.Unlock()
	if !exists {
		return nil, ErrInvalidCredentials
	}
	return m.respond(user), nil
}

func (m *MockService) CurrentUser(_ context.Context, userID uint) (*models.User, error) {
	m.recordCall("CurrentUser", userID)
	if m.DefaultError != nil {
		return nil, m.DefaultError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.ID == userID {
			return u, nil
		}
	}
	return nil, fmt.Errorf("user %d not found", userID)
}

func (m *MockService) ValidateToken(tokenString string) (*Claims, error) {
	m.recordCall("ValidateToken", tokenString)
	if m.ValidateTokenFunc != nil {
		return m.ValidateTokenFunc(tokenString)
	}
	if m.DefaultError != nil {
		return nil, m.DefaultError
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if TokenFor(u.ID) == tokenString {
			return &Claims{UserID: u.ID, Role: u.Role, Email: u.Email, Name: u.Name, Username: u.Username}, nil
		}
	}
	return nil, ErrInvalidToken
}

// Ensure MockService implements Authenticator
var _ Authenticator = (*MockService)(nil)
