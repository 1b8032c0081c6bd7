package main

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"

	"github.com/wknums/va-chat/controllers"
	"github.com/wknums/va-chat/models"
	"github.com/wknums/va-chat/services"
	"github.com/wknums/va-chat/utils"
)

// Server ties the router to the controller layer
type Server struct {
	router *mux.Router
	port   string
	log    *logrus.Logger
}

// NewServer creates a new server instance
func NewServer(port string, controller *controllers.Controller, log *logrus.Logger) *Server {
	router := mux.NewRouter()

	router.HandleFunc("/", controller.IndexHandler).Methods("GET")
	router.HandleFunc("/api/health", controller.HealthHandler).Methods("GET")
	router.HandleFunc("/api/chat", controller.ChatHandler).Methods("POST")
	router.HandleFunc("/api/search", controller.SearchHandler).Methods("POST")

	return &Server{
		router: router,
		port:   port,
		log:    log,
	}
}

// Start configures CORS and starts the HTTP server
func (s *Server) Start() error {
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})
	handler := c.Handler(s.router)

	if !strings.HasPrefix(s.port, ":") {
		s.port = ":" + s.port
	}

	s.log.Infof("Server starting on port %s", s.port)
	return http.ListenAndServe(s.port, handler)
}

func main() {
	log := utils.NewLogger()
	utils.LoadEnv(log)

	endpoint := utils.GetEnv("AZURE_FOUNDRY_PROJECT_ENDPOINT", "")
	primaryAgentID := utils.GetEnv("AZURE_FOUNDRY_AGENT_ID", "")
	if endpoint == "" || primaryAgentID == "" {
		log.Fatal("Missing required environment variables: AZURE_FOUNDRY_PROJECT_ENDPOINT, AZURE_FOUNDRY_AGENT_ID")
	}

	fallbackAgentID := utils.GetEnv("AZURE_FOUNDRY_FALLBACK_AGENT_ID", "")
	apiKey := utils.GetEnv("AZURE_FOUNDRY_API_KEY", "")

	log.Infof("Configured for endpoint: %s", endpoint)
	log.Infof("Using primary agent ID: %s", primaryAgentID)
	if fallbackAgentID != "" {
		log.Infof("Using fallback agent ID: %s", fallbackAgentID)
	} else {
		log.Warn("No fallback agent configured - will not use Bing search")
	}

	policy := models.DefaultReconcilePolicy()

	urlMap := services.NewURLMapService(log)
	mappingPath := utils.GetEnv("URL_MAPPING_CSV", "utilities/mapping.csv")
	if err := urlMap.LoadCSV(mappingPath); err != nil {
		log.Warnf("Could not load URL mapping: %v", err)
	}

	citations := services.NewCitationService(policy, urlMap, log)
	formatter := services.NewFormatterService(policy, citations, log)
	agents := services.NewAgentsClient(endpoint, apiKey, log)
	chat := services.NewChatService(agents, citations, policy, primaryAgentID, fallbackAgentID, log)

	agentTimeout := time.Duration(utils.GetEnvInt("AGENT_TIMEOUT_SECONDS", 120)) * time.Second
	controller := controllers.NewController(chat, formatter, agents, urlMap, agentTimeout, log)

	server := NewServer(utils.GetEnv("PORT", "8080"), controller, log)
	if err := server.Start(); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}
