// Package ui exposes the analysis services over HTTP: run triggers, stored
// run lookup, and rendered HTML reports.
package ui

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"socassay/app"
	"socassay/domain/core"
	"socassay/domain/permutation"
	"socassay/domain/run"
	"socassay/domain/trial"
	"socassay/internal"
	appconfig "socassay/internal/config"
	apperrors "socassay/internal/errors"
	"socassay/internal/report"
	"socassay/ports"
)

// Server wires the analysis services into a gin router.
type Server struct {
	router     *gin.Engine
	simulation *app.SimulationService
	reanalysis *app.ReanalysisService
	store      ports.RunStore
	config     *appconfig.Config
	reports    *report.Builder
	logger     *internal.Logger
}

// NewServer creates a web server instance
func NewServer(simulation *app.SimulationService, reanalysis *app.ReanalysisService, store ports.RunStore, cfg *appconfig.Config, logger *internal.Logger) *Server {
	gin.SetMode(cfg.Server.GinMode)

	s := &Server{
		router:     gin.Default(),
		simulation: simulation,
		reanalysis: reanalysis,
		store:      store,
		config:     cfg,
		reports:    report.NewBuilder(),
		logger:     logger,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.router.GET("/healthz", s.handleHealth)

	api := s.router.Group("/api")
	{
		api.POST("/runs/simulation", s.handleRunSimulation)
		api.POST("/runs/reanalysis", s.handleRunReanalysis)
		api.GET("/runs", s.handleListRuns)
		api.GET("/runs/:id", s.handleGetRun)
	}

	s.router.GET("/runs/:id/report", s.handleRunReport)
}

// Router exposes the underlying gin engine, mainly for tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Run starts the HTTP server on the configured port.
func (s *Server) Run() error {
	addr := ":" + s.config.Server.Port
	s.logger.Info("starting web server on %s", addr)
	return s.router.Run(addr)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// simulationParams are the optional overrides accepted by the trigger
// endpoint; zero values fall back to the configured defaults.
type simulationParams struct {
	Trials     int     `json:"trials"`
	Replicates int     `json:"replicates"`
	Threshold  float64 `json:"threshold"`
	Seed       *int64  `json:"seed"`
}

func (s *Server) handleRunSimulation(c *gin.Context) {
	var params simulationParams
	if err := c.ShouldBindJSON(&params); err != nil && err.Error() != "EOF" {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	scenarios, err := app.DefaultScenarios()
	if err != nil {
		s.renderError(c, err)
		return
	}

	req := app.SimulationRequest{
		Scenarios:  scenarios,
		Trials:     s.config.Analysis.Trials,
		Replicates: s.config.Analysis.Replicates,
		Threshold:  s.config.Analysis.Threshold,
		Seed:       s.config.Analysis.Seed,
	}
	if params.Trials > 0 {
		req.Trials = params.Trials
	}
	if params.Replicates > 0 {
		req.Replicates = params.Replicates
	}
	if params.Threshold > 0 {
		req.Threshold = params.Threshold
	}
	if params.Seed != nil {
		req.Seed = *params.Seed
	}

	result, err := s.simulation.RunStudy(c.Request.Context(), req)
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

type reanalysisParams struct {
	Permutations int    `json:"permutations"`
	Seed         *int64 `json:"seed"`
	Combining    string `json:"combining"`
}

func (s *Server) handleRunReanalysis(c *gin.Context) {
	var params reanalysisParams
	if err := c.ShouldBindJSON(&params); err != nil && err.Error() != "EOF" {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	req := app.ReanalysisRequest{
		Filter: trial.Filter{
			SentinelDepth:     s.config.Trial.SentinelDepth,
			ExcludedTreatment: s.config.Trial.ExcludedTreatment,
		},
		BeforeYear:   s.config.Trial.BeforeYear,
		AfterYear:    s.config.Trial.AfterYear,
		Permutations: s.config.Analysis.Permutations,
		Seed:         s.config.Analysis.Seed,
		Combining:    permutation.CombineFisher,
	}
	if params.Permutations > 0 {
		req.Permutations = params.Permutations
	}
	if params.Seed != nil {
		req.Seed = *params.Seed
	}
	if params.Combining != "" {
		req.Combining = permutation.CombiningFunction(params.Combining)
	}

	result, err := s.reanalysis.Run(c.Request.Context(), req)
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (s *Server) handleListRuns(c *gin.Context) {
	manifests, err := s.store.ListRuns(c.Request.Context(), 50)
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": manifests})
}

func (s *Server) handleGetRun(c *gin.Context) {
	stored, err := s.lookupRun(c)
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"manifest": stored.Manifest,
		"payload":  json.RawMessage(stored.Payload),
	})
}

func (s *Server) handleRunReport(c *gin.Context) {
	stored, err := s.lookupRun(c)
	if err != nil {
		s.renderError(c, err)
		return
	}

	var md string
	switch stored.Manifest.Kind {
	case run.KindReanalysis:
		var result run.ReanalysisResult
		if err := json.Unmarshal(stored.Payload, &result); err != nil {
			s.renderError(c, apperrors.Wrap(err, "failed to decode reanalysis payload"))
			return
		}
		md = s.reports.Reanalysis(&result)
	case run.KindSimulation:
		var result run.SimulationStudyResult
		if err := json.Unmarshal(stored.Payload, &result); err != nil {
			s.renderError(c, apperrors.Wrap(err, "failed to decode simulation payload"))
			return
		}
		md = s.reports.Simulation(&result)
	default:
		s.renderError(c, apperrors.InvalidInput("unknown run kind: "+string(stored.Manifest.Kind)))
		return
	}

	c.Data(http.StatusOK, "text/html; charset=utf-8", report.RenderHTML(md))
}

func (s *Server) lookupRun(c *gin.Context) (*run.StoredRun, error) {
	runID, err := core.ParseRunID(c.Param("id"))
	if err != nil {
		return nil, apperrors.InvalidInput(err.Error())
	}
	return s.store.GetRun(c.Request.Context(), runID)
}

func (s *Server) renderError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch apperrors.GetCode(err) {
	case apperrors.CodeNotFound:
		status = http.StatusNotFound
	case apperrors.CodeInvalidInput, apperrors.CodeInvalidParameter, apperrors.CodeConfigInvalid:
		status = http.StatusBadRequest
	}
	s.logger.Error("request failed: %v", err)
	c.JSON(status, gin.H{"error": err.Error()})
}
