package twilio

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/LumivoxAI/lumivox-telephony-service/pkg/logger"
	"github.com/twilio/twilio-go"
	api "github.com/twilio/twilio-go/rest/api/v2010"
	"go.uber.org/zap"
)

// TokenService fetches and caches Twilio Network Traversal Service tokens.
// Console clients need the STUN/TURN list to open their microphone leg.
type TokenService struct {
	client        *twilio.RestClient
	currentToken  *api.ApiV2010Token
	mutex         sync.RWMutex
	lastFetchTime time.Time
	enabled       bool
	accountSID    string
	authToken     string
	refreshTicker *time.Ticker
	stopChan      chan struct{}
}

// ICEServer is one entry of the list served to console clients. The JSON
// shape matches the RTCIceServer dictionary of the WebRTC API.
type ICEServer struct {
	URLs       []string `json:"urls"`
	Username   string   `json:"username,omitempty"`
	Credential string   `json:"credential,omitempty"`
}

// NewTokenService creates a new Twilio token service.
// If accountSID or authToken is empty, the service will be disabled.
func NewTokenService(accountSID, authToken string, enableAutoRefresh bool) *TokenService {
	if accountSID == "" || authToken == "" {
		logger.Base().Warn("Twilio credentials not provided, ICE token service disabled")
		return &TokenService{enabled: false}
	}

	service := &TokenService{
		client:     twilio.NewRestClientWithParams(twilio.ClientParams{Username: accountSID, Password: authToken}),
		enabled:    true,
		accountSID: accountSID,
		authToken:  authToken,
		stopChan:   make(chan struct{}),
	}

	// Fetch initial token
	if err := service.RefreshToken(); err != nil {
		logger.Base().Error("Failed to fetch initial Twilio token")
		// Do not disable service on initial failure, let auto-refresh handle it
	}

	if enableAutoRefresh {
		service.StartAutoRefresh()
	}

	return service
}

// RefreshToken fetches a new token from Twilio API
func (s *TokenService) RefreshToken() error {
	if !s.enabled {
		return fmt.Errorf("twilio token service is disabled")
	}

	logger.Base().Info("Fetching new Twilio ICE token...")

	params := &api.CreateTokenParams{}
	resp, err := s.client.Api.CreateToken(params)
	if err != nil {
		logger.Base().Error("Failed to fetch Twilio token")
		return err
	}

	s.mutex.Lock()
	s.currentToken = resp
	s.lastFetchTime = time.Now()
	s.mutex.Unlock()

	if resp.IceServers != nil {
		logger.Base().Info("Twilio ICE token refreshed", zap.Int("servers", len(*resp.IceServers)))
	}

	return nil
}

// GetICEServers returns the full STUN and TURN list for console clients.
// Returns nil if the service is disabled or Twilio is unreachable.
func (s *TokenService) GetICEServers() []ICEServer {
	if !s.enabled {
		return nil
	}

	s.mutex.RLock()
	hasToken := s.currentToken != nil && s.currentToken.IceServers != nil
	s.mutex.RUnlock()

	// Fetch on demand so a Twilio outage at startup does not leave the
	// instance without ICE servers until the next refresh tick.
	if !hasToken {
		logger.Base().Warn("No Twilio token available, attempting to fetch immediately...")
		if err := s.RefreshToken(); err != nil {
			logger.Base().Error("Failed to fetch Twilio token on-demand")
			return nil
		}
	}

	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if s.currentToken == nil || s.currentToken.IceServers == nil {
		return nil
	}

	servers := make([]ICEServer, 0, len(*s.currentToken.IceServers))
	for _, server := range *s.currentToken.IceServers {
		if server.Url == "" {
			continue
		}

		entry := ICEServer{URLs: []string{server.Url}}

		// STUN entries carry no credentials.
		if strings.HasPrefix(server.Url, "turn") {
			entry.Username = server.Username
			entry.Credential = server.Credential
		}

		servers = append(servers, entry)
	}

	return servers
}

// StartAutoRefresh starts automatic token refresh every 23 hours.
// Twilio tokens are valid for 24 hours, refresh 1 hour before expiration.
func (s *TokenService) StartAutoRefresh() {
	if !s.enabled {
		return
	}

	refreshInterval := 23 * time.Hour
	s.refreshTicker = time.NewTicker(refreshInterval)

	go func() {
		logger.Base().Info("Started Twilio token auto-refresh", zap.Duration("refresh_interval", refreshInterval))
		for {
			select {
			case <-s.refreshTicker.C:
				if err := s.RefreshToken(); err != nil {
					logger.Base().Error("Auto-refresh failed")
				}
			case <-s.stopChan:
				logger.Base().Info("Stopped Twilio token auto-refresh")
				return
			}
		}
	}()
}

// Stop stops the auto-refresh goroutine
func (s *TokenService) Stop() {
	if s.refreshTicker != nil {
		s.refreshTicker.Stop()
		close(s.stopChan)
	}
}

// IsEnabled returns whether the service is enabled
func (s *TokenService) IsEnabled() bool {
	return s.enabled
}

// TokenAge returns how long ago the current token was fetched
func (s *TokenService) TokenAge() time.Duration {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if s.lastFetchTime.IsZero() {
		return 0
	}

	return time.Since(s.lastFetchTime)
}
