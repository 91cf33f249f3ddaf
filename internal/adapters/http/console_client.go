package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"sync"
	"time"

	"github.com/LumivoxAI/lumivox-telephony-service/pkg/errtrack"
	"github.com/LumivoxAI/lumivox-telephony-service/pkg/logger"
	"github.com/golang-jwt/jwt/v4"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	consoleRequestTimeout = 60 * time.Second

	// Client-side pacing. The console backend throttles bursty tenants,
	// waiting here is cheaper than handling 429 responses.
	consoleRequestsPerSecond = 10
	consoleRequestBurst      = 20
)

// ConsoleClient handles communication with the platform console API.
// Every request carries the bearer token and, when set, the tenant scope.
type ConsoleClient struct {
	BaseURL    string
	TenantID   string
	HTTPClient *http.Client

	token   string
	tokenMu sync.RWMutex

	limiter *rate.Limiter
}

// NewConsoleClient creates a new console API client
func NewConsoleClient(baseURL, tenantID string) *ConsoleClient {
	return &ConsoleClient{
		BaseURL:  baseURL,
		TenantID: tenantID,
		HTTPClient: &http.Client{
			Timeout: consoleRequestTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(consoleRequestsPerSecond), consoleRequestBurst),
	}
}

// SetToken replaces the bearer token used for subsequent requests
func (c *ConsoleClient) SetToken(token string) {
	c.tokenMu.Lock()
	c.token = token
	c.tokenMu.Unlock()
}

// Token returns the current bearer token
func (c *ConsoleClient) Token() string {
	c.tokenMu.RLock()
	defer c.tokenMu.RUnlock()
	return c.token
}

type consoleErrorResponse struct {
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

func (e *consoleErrorResponse) text() string {
	if e.Error != "" {
		return e.Error
	}
	return e.Message
}

// doJSON performs one JSON request against the console API. The rate
// limiter is waited before the request goes out.
func (c *ConsoleClient) doJSON(ctx context.Context, method, path string, query url.Values, body interface{}, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("request cancelled while rate limited: %w", err)
	}

	requestURL := c.BaseURL + path
	if len(query) > 0 {
		requestURL += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %v", err)
		}
		reader = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, requestURL, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %v", err)
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if c.TenantID != "" {
		req.Header.Set("X-Tenant-ID", c.TenantID)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		errtrack.Track(errtrack.CategoryConnection, "", fmt.Errorf("console API %s %s: %v", method, path, err))
		return fmt.Errorf("failed to send request: %v", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %v", err)
	}

	logger.Base().Debug("Console API response",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status_code", resp.StatusCode))

	if resp.StatusCode >= 400 {
		var errResp consoleErrorResponse
		_ = json.Unmarshal(bodyBytes, &errResp)

		message := errResp.text()
		if message == "" {
			message = http.StatusText(resp.StatusCode)
		}

		apiErr := fmt.Errorf("console API error: status=%d, message=%s", resp.StatusCode, message)
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			errtrack.Track(errtrack.CategoryPermission, "", apiErr)
		}
		return apiErr
	}

	if out != nil {
		if err := json.Unmarshal(bodyBytes, out); err != nil {
			return fmt.Errorf("failed to decode response: %v", err)
		}
	}

	return nil
}

// ConsoleUser is the authenticated console account
type ConsoleUser struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	Role     string `json:"role"`
	TenantID string `json:"tenantId"`
}

// LoginResult is the response to a successful login
type LoginResult struct {
	Token string      `json:"token"`
	User  ConsoleUser `json:"user"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login authenticates against the console API and stores the returned
// bearer token on the client.
func (c *ConsoleClient) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	var result LoginResult
	err := c.doJSON(ctx, http.MethodPost, "/api/auth/login", nil, loginRequest{Email: email, Password: password}, &result)
	if err != nil {
		return nil, err
	}
	if result.Token == "" {
		return nil, fmt.Errorf("login response carried no token")
	}

	c.SetToken(result.Token)
	logger.Base().Info("Console login succeeded", zap.String("email", email), zap.String("tenant_id", result.User.TenantID))
	return &result, nil
}

// Organization is a console tenant organization
type Organization struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	TenantID  string    `json:"tenantId"`
	Plan      string    `json:"plan"`
	Disabled  bool      `json:"disabled"`
	CreatedAt time.Time `json:"createdAt"`
}

// CreateOrganizationRequest creates a new organization via the admin API
type CreateOrganizationRequest struct {
	Name string `json:"name"`
	Plan string `json:"plan,omitempty"`
}

// ListOrganizations returns all organizations. Admin scope required.
func (c *ConsoleClient) ListOrganizations(ctx context.Context) ([]Organization, error) {
	var orgs []Organization
	if err := c.doJSON(ctx, http.MethodGet, "/api/admin/organizations", nil, nil, &orgs); err != nil {
		return nil, err
	}
	return orgs, nil
}

// GetOrganization returns one organization by ID. Admin scope required.
func (c *ConsoleClient) GetOrganization(ctx context.Context, id string) (*Organization, error) {
	var org Organization
	if err := c.doJSON(ctx, http.MethodGet, "/api/admin/organizations/"+url.PathEscape(id), nil, nil, &org); err != nil {
		return nil, err
	}
	return &org, nil
}

// CreateOrganization creates an organization. Admin scope required.
func (c *ConsoleClient) CreateOrganization(ctx context.Context, request CreateOrganizationRequest) (*Organization, error) {
	var org Organization
	if err := c.doJSON(ctx, http.MethodPost, "/api/admin/organizations", nil, request, &org); err != nil {
		return nil, err
	}
	return &org, nil
}

// BillingUsage is the usage summary of the current billing period
type BillingUsage struct {
	PeriodStart          time.Time `json:"periodStart"`
	PeriodEnd            time.Time `json:"periodEnd"`
	VoiceSeconds         int64     `json:"voiceSeconds"`
	IncludedVoiceSeconds int64     `json:"includedVoiceSeconds"`
	CallCount            int64     `json:"callCount"`
	MessageCount         int64     `json:"messageCount"`
}

// Invoice is one console invoice
type Invoice struct {
	ID          string    `json:"id"`
	Number      string    `json:"number"`
	AmountCents int64     `json:"amountCents"`
	Currency    string    `json:"currency"`
	Status      string    `json:"status"`
	IssuedAt    time.Time `json:"issuedAt"`
}

// GetBillingUsage returns the tenant's current billing period usage
func (c *ConsoleClient) GetBillingUsage(ctx context.Context) (*BillingUsage, error) {
	var usage BillingUsage
	if err := c.doJSON(ctx, http.MethodGet, "/api/billing/usage", nil, nil, &usage); err != nil {
		return nil, err
	}
	return &usage, nil
}

// ListInvoices returns the tenant's invoices
func (c *ConsoleClient) ListInvoices(ctx context.Context) ([]Invoice, error) {
	var invoices []Invoice
	if err := c.doJSON(ctx, http.MethodGet, "/api/billing/invoices", nil, nil, &invoices); err != nil {
		return nil, err
	}
	return invoices, nil
}

// Contact is a CRM contact record
type Contact struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	PhoneNumber string `json:"phoneNumber"`
	Email       string `json:"email,omitempty"`
	Company     string `json:"company,omitempty"`
}

// LookupContactByPhone resolves a caller's CRM contact from a phone number.
// Returns nil when the number is unknown.
func (c *ConsoleClient) LookupContactByPhone(ctx context.Context, phoneNumber string) (*Contact, error) {
	query := url.Values{}
	query.Set("phone", phoneNumber)

	var contacts []Contact
	if err := c.doJSON(ctx, http.MethodGet, "/api/crm/contacts", query, nil, &contacts); err != nil {
		return nil, err
	}
	if len(contacts) == 0 {
		return nil, nil
	}
	return &contacts[0], nil
}

type contactNoteRequest struct {
	Content string `json:"content"`
	Source  string `json:"source"`
}

// CreateContactNote attaches a note to a CRM contact. Used to push call
// summaries after teardown.
func (c *ConsoleClient) CreateContactNote(ctx context.Context, contactID, content string) error {
	path := "/api/crm/contacts/" + url.PathEscape(contactID) + "/notes"
	return c.doJSON(ctx, http.MethodPost, path, nil, contactNoteRequest{Content: content, Source: "telephony"}, nil)
}

// GetCurrentOrganization returns the organization of the authenticated tenant
func (c *ConsoleClient) GetCurrentOrganization(ctx context.Context) (*Organization, error) {
	var org Organization
	if err := c.doJSON(ctx, http.MethodGet, "/api/organizations/current", nil, nil, &org); err != nil {
		return nil, err
	}
	return &org, nil
}

// UpdateOrganizationSettings updates settings on the current organization
func (c *ConsoleClient) UpdateOrganizationSettings(ctx context.Context, settings map[string]interface{}) error {
	return c.doJSON(ctx, http.MethodPut, "/api/organizations/current/settings", nil, settings, nil)
}

// AgentClaims is the identity minted into service-to-service agent tokens
type AgentClaims struct {
	TenantID string
	Channel  string
}

// GenerateAgentJWT generates an HS256 JWT scoping an agent to a tenant and
// channel. The signing secret comes from SECRET_KEY.
func GenerateAgentJWT(tenantID, channel string) (string, error) {
	secretKey := os.Getenv("SECRET_KEY")
	if secretKey == "" {
		err := fmt.Errorf("SECRET_KEY not configured")
		errtrack.Track(errtrack.CategoryConfiguration, "", err)
		return "", err
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"tenantId": tenantID,
		"channel":  channel,
		"iss":      "lumivox-telephony-service",
		"iat":      time.Now().Unix(),
	})

	tokenString, err := token.SignedString([]byte(secretKey))
	if err != nil {
		return "", fmt.Errorf("failed to sign JWT token: %w", err)
	}

	return tokenString, nil
}

// DecodeAgentJWT decodes an agent token and extracts its tenant and channel
// scope. Older tokens carry snake_case claim names.
func DecodeAgentJWT(tokenString string) (*AgentClaims, error) {
	secretKey := os.Getenv("SECRET_KEY")
	if secretKey == "" {
		return nil, fmt.Errorf("SECRET_KEY not configured")
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secretKey), nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse JWT: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}

	tenantID, ok := claims["tenantId"].(string)
	if !ok {
		tenantID, ok = claims["tenant_id"].(string)
		if !ok {
			return nil, fmt.Errorf("tenantId not found in JWT claims")
		}
	}

	channel, ok := claims["channel"].(string)
	if !ok {
		channel, _ = claims["channel_type"].(string)
	}

	return &AgentClaims{
		TenantID: tenantID,
		Channel:  channel,
	}, nil
}
