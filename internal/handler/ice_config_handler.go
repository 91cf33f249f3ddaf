package handler

import (
	"encoding/json"
	"net/http"

	"github.com/LumivoxAI/lumivox-telephony-service/pkg/logger"
	"github.com/LumivoxAI/lumivox-telephony-service/pkg/twilio"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// ICEConfigHandler serves the ICE server list console clients use to open
// their microphone leg
type ICEConfigHandler struct {
	stunServers  []string
	twilioTokens *twilio.TokenService
}

// ICEServerConfig represents an ICE server configuration for the console
type ICEServerConfig struct {
	URLs       []string `json:"urls"`
	Username   string   `json:"username,omitempty"`
	Credential string   `json:"credential,omitempty"`
}

// ICEConfigResponse represents the ICE configuration response
type ICEConfigResponse struct {
	ICEServers           []ICEServerConfig `json:"iceServers"`
	ICECandidatePoolSize int               `json:"iceCandidatePoolSize"`
}

// NewICEConfigHandler creates a new ICE config handler. The Twilio token
// service is optional; without it only the static STUN list is served.
func NewICEConfigHandler(stunServers []string, twilioTokens *twilio.TokenService) *ICEConfigHandler {
	return &ICEConfigHandler{
		stunServers:  stunServers,
		twilioTokens: twilioTokens,
	}
}

// SetupICEConfigRoutes sets up routes for ICE configuration
func (h *ICEConfigHandler) SetupICEConfigRoutes(router *mux.Router) {
	router.HandleFunc("/api/voice/ice-servers", h.getICEConfig).Methods("GET")
	router.HandleFunc("/api/voice/ice-servers", h.handleCORS).Methods("OPTIONS")
	logger.Base().Info("ICE config endpoint registered", zap.String("path", "/api/voice/ice-servers"))
}

// getICEConfig godoc
// @Summary Get ICE server configuration
// @Description Get ICE servers configuration including STUN and TURN servers with credentials
// @Tags voice
// @Accept json
// @Produce json
// @Success 200 {object} ICEConfigResponse "ICE configuration"
// @Router /api/voice/ice-servers [get]
func (h *ICEConfigHandler) getICEConfig(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	config := &ICEConfigResponse{
		ICEServers:           make([]ICEServerConfig, 0),
		ICECandidatePoolSize: 10,
	}

	// Add STUN servers from configuration
	for _, stunURL := range h.stunServers {
		config.ICEServers = append(config.ICEServers, ICEServerConfig{
			URLs: []string{stunURL},
		})
	}

	// Add TURN servers from Twilio (dynamic)
	turnServers := 0
	if h.twilioTokens != nil {
		for _, srv := range h.twilioTokens.GetICEServers() {
			config.ICEServers = append(config.ICEServers, ICEServerConfig{
				URLs:       srv.URLs,
				Username:   srv.Username,
				Credential: srv.Credential,
			})
			turnServers++
		}
	}

	logger.Base().Info("ICE config requested", zap.Int("stun_servers", len(h.stunServers)), zap.Int("turn_servers", turnServers))

	if err := json.NewEncoder(w).Encode(config); err != nil {
		logger.Base().Error("Failed to encode ICE config", zap.Error(err))
		http.Error(w, "Failed to encode configuration", http.StatusInternalServerError)
		return
	}
}

// handleCORS handles CORS for the ICE config endpoint
func (h *ICEConfigHandler) handleCORS(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	w.WriteHeader(http.StatusOK)
}
