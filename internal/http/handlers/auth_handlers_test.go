package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/you/marketauth/domain"
	"github.com/you/marketauth/internal/mocks"
)

func performJSON(t *testing.T, r *gin.Engine, method, url string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, url, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthHandlers_Register(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name           string
		requestBody    any
		setupMocks     func(*mocks.MockAuthService)
		expectedStatus int
		expectedError  string
	}{
		{
			name: "successful registration",
			requestBody: RegisterRequest{
				Name:     "Maria Silva",
				Email:    "maria@example.com",
				Phone:    "+5511999990000",
				Password: "password123",
			},
			setupMocks:     func(authSvc *mocks.MockAuthService) {},
			expectedStatus: http.StatusCreated,
		},
		{
			name: "duplicate email",
			requestBody: RegisterRequest{
				Name:     "Maria Silva",
				Email:    "maria@example.com",
				Phone:    "+5511999990000",
				Password: "password123",
			},
			setupMocks: func(authSvc *mocks.MockAuthService) {
				authSvc.RegisterFunc = func(ctx context.Context, name, email, phone, password, role string) (*domain.User, domain.RegistrationState, error) {
					return nil, "", domain.ErrDuplicateEmail
				}
			},
			expectedStatus: http.StatusConflict,
			expectedError:  "Email already registered",
		},
		{
			name: "duplicate phone",
			requestBody: RegisterRequest{
				Name:     "Maria Silva",
				Email:    "maria@example.com",
				Phone:    "+5511999990000",
				Password: "password123",
			},
			setupMocks: func(authSvc *mocks.MockAuthService) {
				authSvc.RegisterFunc = func(ctx context.Context, name, email, phone, password, role string) (*domain.User, domain.RegistrationState, error) {
					return nil, "", domain.ErrDuplicatePhone
				}
			},
			expectedStatus: http.StatusConflict,
			expectedError:  "Phone number already registered",
		},
		{
			name: "password too short",
			requestBody: RegisterRequest{
				Name:     "Maria Silva",
				Email:    "maria@example.com",
				Phone:    "+5511999990000",
				Password: "short",
			},
			setupMocks:     func(authSvc *mocks.MockAuthService) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "missing fields",
			requestBody:    map[string]string{"email": "maria@example.com"},
			setupMocks:     func(authSvc *mocks.MockAuthService) {},
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			authSvc := mocks.NewMockAuthService()
			tt.setupMocks(authSvc)
			h := NewAuthHandlers(authSvc, mocks.NewMockSessionService())

			r := gin.New()
			r.POST("/auth/register", h.Register)

			w := performJSON(t, r, "POST", "/auth/register", tt.requestBody)

			if w.Code != tt.expectedStatus {
				t.Fatalf("expected status %d, got %d: %s", tt.expectedStatus, w.Code, w.Body.String())
			}
			if tt.expectedError != "" {
				var resp map[string]any
				if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
					t.Fatalf("failed to parse response: %v", err)
				}
				if resp["error"] != tt.expectedError {
					t.Errorf("expected error %q, got %v", tt.expectedError, resp["error"])
				}
			}
		})
	}
}

func TestAuthHandlers_VerifyPhone_RequiresEmailFirst(t *testing.T) {
	gin.SetMode(gin.TestMode)

	authSvc := mocks.NewMockAuthService()
	authSvc.VerifyPhoneFunc = func(ctx context.Context, userID uint, code string) (domain.RegistrationState, error) {
		return domain.RegEmailPending, domain.ErrEmailNotVerified
	}
	h := NewAuthHandlers(authSvc, mocks.NewMockSessionService())

	r := gin.New()
	r.POST("/auth/verify-phone", h.VerifyPhone)

	w := performJSON(t, r, "POST", "/auth/verify-phone", VerifyCodeRequest{UserID: 1, Code: "123456"})

	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", w.Code, w.Body.String())
	}
	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if resp["error"] != "Email must be verified first" {
		t.Errorf("unexpected error %v", resp["error"])
	}
}

func TestAuthHandlers_Login(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name           string
		setupMocks     func(*mocks.MockAuthService)
		expectedStatus int
		expectedError  string
	}{
		{
			name: "successful login",
			setupMocks: func(authSvc *mocks.MockAuthService) {
				authSvc.LoginFunc = func(ctx context.Context, identifier, password string, device domain.DeviceInfo) (*domain.LoginOutcome, error) {
					return &domain.LoginOutcome{
						Result: &domain.AuthResult{
							User:         &domain.User{ID: 1, Email: "maria@example.com", Role: domain.RoleUser},
							AccessToken:  "access",
							RefreshToken: "refresh",
							ExpiresIn:    900,
						},
					}, nil
				}
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "invalid credentials",
			setupMocks:     func(authSvc *mocks.MockAuthService) {},
			expectedStatus: http.StatusUnauthorized,
			expectedError:  "Invalid credentials",
		},
		{
			name: "locked account",
			setupMocks: func(authSvc *mocks.MockAuthService) {
				authSvc.LoginFunc = func(ctx context.Context, identifier, password string, device domain.DeviceInfo) (*domain.LoginOutcome, error) {
					return nil, domain.ErrAccountLocked
				}
			},
			expectedStatus: http.StatusLocked,
			expectedError:  "Account temporarily locked, try again later",
		},
		{
			name: "blocked account",
			setupMocks: func(authSvc *mocks.MockAuthService) {
				authSvc.LoginFunc = func(ctx context.Context, identifier, password string, device domain.DeviceInfo) (*domain.LoginOutcome, error) {
					return nil, domain.ErrAccountBlocked
				}
			},
			expectedStatus: http.StatusForbidden,
		},
		{
			name: "unverified phone",
			setupMocks: func(authSvc *mocks.MockAuthService) {
				authSvc.LoginFunc = func(ctx context.Context, identifier, password string, device domain.DeviceInfo) (*domain.LoginOutcome, error) {
					return nil, domain.ErrPhoneNotVerified
				}
			},
			expectedStatus: http.StatusForbidden,
			expectedError:  "Phone number not verified",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			authSvc := mocks.NewMockAuthService()
			tt.setupMocks(authSvc)
			h := NewAuthHandlers(authSvc, mocks.NewMockSessionService())

			r := gin.New()
			r.POST("/auth/login", h.Login)

			w := performJSON(t, r, "POST", "/auth/login", LoginRequest{
				Identifier: "maria@example.com",
				Password:   "password123",
			})

			if w.Code != tt.expectedStatus {
				t.Fatalf("expected status %d, got %d: %s", tt.expectedStatus, w.Code, w.Body.String())
			}
			if tt.expectedError != "" {
				var resp map[string]any
				if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
					t.Fatalf("failed to parse response: %v", err)
				}
				if resp["error"] != tt.expectedError {
					t.Errorf("expected error %q, got %v", tt.expectedError, resp["error"])
				}
			}
		})
	}
}

func TestAuthHandlers_Login_TwoFactorPending(t *testing.T) {
	gin.SetMode(gin.TestMode)

	authSvc := mocks.NewMockAuthService()
	authSvc.LoginFunc = func(ctx context.Context, identifier, password string, device domain.DeviceInfo) (*domain.LoginOutcome, error) {
		return &domain.LoginOutcome{TwoFactorPending: true, UserID: 7}, nil
	}
	h := NewAuthHandlers(authSvc, mocks.NewMockSessionService())

	r := gin.New()
	r.POST("/auth/login", h.Login)

	w := performJSON(t, r, "POST", "/auth/login", LoginRequest{
		Identifier: "maria@example.com",
		Password:   "password123",
	})

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	data, ok := resp["data"].(map[string]any)
	if !ok {
		t.Fatalf("missing data envelope: %s", w.Body.String())
	}
	if data["two_factor"] != true {
		t.Error("expected two_factor flag")
	}
	if data["user_id"] != float64(7) {
		t.Errorf("expected user_id 7, got %v", data["user_id"])
	}
	if _, present := data["access_token"]; present {
		t.Error("no tokens may be issued before the second factor")
	}
}

func TestAuthHandlers_Refresh(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name           string
		setupMocks     func(*mocks.MockSessionService)
		expectedStatus int
		expectedError  string
	}{
		{
			name: "successful refresh",
			setupMocks: func(sessionSvc *mocks.MockSessionService) {
				sessionSvc.RefreshFunc = func(ctx context.Context, refreshToken string) (*domain.AuthResult, error) {
					return &domain.AuthResult{
						AccessToken:  "new_access",
						RefreshToken: "new_refresh",
						ExpiresIn:    900,
					}, nil
				}
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "unknown token",
			setupMocks:     func(sessionSvc *mocks.MockSessionService) {},
			expectedStatus: http.StatusUnauthorized,
			expectedError:  "Invalid or expired refresh token",
		},
		{
			name: "reused token",
			setupMocks: func(sessionSvc *mocks.MockSessionService) {
				sessionSvc.RefreshFunc = func(ctx context.Context, refreshToken string) (*domain.AuthResult, error) {
					return nil, domain.ErrRefreshReuse
				}
			},
			expectedStatus: http.StatusUnauthorized,
			expectedError:  "Refresh token reuse detected, session revoked",
		},
		{
			name: "blocked user",
			setupMocks: func(sessionSvc *mocks.MockSessionService) {
				sessionSvc.RefreshFunc = func(ctx context.Context, refreshToken string) (*domain.AuthResult, error) {
					return nil, domain.ErrForbidden
				}
			},
			expectedStatus: http.StatusForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sessionSvc := mocks.NewMockSessionService()
			tt.setupMocks(sessionSvc)
			h := NewAuthHandlers(mocks.NewMockAuthService(), sessionSvc)

			r := gin.New()
			r.POST("/auth/refresh", h.Refresh)

			w := performJSON(t, r, "POST", "/auth/refresh", RefreshRequest{RefreshToken: "some_token"})

			if w.Code != tt.expectedStatus {
				t.Fatalf("expected status %d, got %d: %s", tt.expectedStatus, w.Code, w.Body.String())
			}
			if tt.expectedError != "" {
				var resp map[string]any
				if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
					t.Fatalf("failed to parse response: %v", err)
				}
				if resp["error"] != tt.expectedError {
					t.Errorf("expected error %q, got %v", tt.expectedError, resp["error"])
				}
			}
		})
	}
}

func TestAuthHandlers_RequestPasswordReset_UniformResponse(t *testing.T) {
	gin.SetMode(gin.TestMode)

	// the handler answers identically for known and unknown addresses
	authSvc := mocks.NewMockAuthService()
	h := NewAuthHandlers(authSvc, mocks.NewMockSessionService())

	r := gin.New()
	r.POST("/auth/password-reset/request", h.RequestPasswordReset)

	for _, email := range []string{"known@example.com", "unknown@example.com"} {
		w := performJSON(t, r, "POST", "/auth/password-reset/request", PasswordResetRequest{Email: email})
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200 for %s, got %d", email, w.Code)
		}
		var resp map[string]any
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to parse response: %v", err)
		}
		data := resp["data"].(map[string]any)
		if data["message"] != "If that email is registered, a reset token has been sent" {
			t.Errorf("unexpected message %v", data["message"])
		}
	}
}

func TestAuthHandlers_Me(t *testing.T) {
	gin.SetMode(gin.TestMode)

	authSvc := mocks.NewMockAuthService()
	authSvc.GetUserProfileFunc = func(ctx context.Context, userID uint) (*domain.User, error) {
		return &domain.User{
			ID:               userID,
			Name:             "Maria Silva",
			Email:            "maria@example.com",
			Role:             domain.RoleUser,
			Status:           domain.StatusActive,
			EmailVerified:    true,
			PhoneVerified:    true,
			TwoFactorEnabled: true,
			PasswordHash:     "must_not_leak",
		}, nil
	}
	h := NewAuthHandlers(authSvc, mocks.NewMockSessionService())

	r := gin.New()
	r.GET("/auth/me", func(c *gin.Context) {
		c.Set("user_id", "5")
		h.Me(c)
	})

	w := performJSON(t, r, "GET", "/auth/me", nil)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	data := resp["data"].(map[string]any)
	if data["id"] != float64(5) {
		t.Errorf("expected id 5, got %v", data["id"])
	}
	if data["two_factor_enabled"] != true {
		t.Error("expected two_factor_enabled to be exposed")
	}
	if _, present := data["password"]; present {
		t.Error("password hash must not appear in the profile")
	}
}
