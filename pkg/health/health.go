package health

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"ingest/internal/constants"
)

// Response is the liveness body. It never reflects dependency state.
type Response struct {
	Service   string    `json:"service"`
	Status    string    `json:"status"`
	Version   string    `json:"version"`
	Timestamp time.Time `json:"timestamp"`
}

type Reporter struct {
	service string
	version string
	now     func() time.Time
}

func NewReporter(service, version string) *Reporter {
	return &Reporter{
		service: service,
		version: version,
		now:     time.Now,
	}
}

func (r *Reporter) Report() Response {
	return Response{
		Service:   r.service,
		Status:    constants.StatusOperational,
		Version:   r.version,
		Timestamp: r.now().UTC(),
	}
}

// Handle godoc
// @Summary      Liveness
// @Description  Reports service identity. Always 200 and independent of message bus connectivity.
// @Tags         health
// @Produce      json
// @Success      200  {object}  health.Response
// @Router       /health [get]
func (r *Reporter) Handle(c *gin.Context) {
	c.JSON(http.StatusOK, r.Report())
}

type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusUnhealthy Status = "unhealthy"
)

type Checker interface {
	Check(ctx context.Context) error
	Name() string
}

type Readiness struct {
	Status    Status                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckResult `json:"checks"`
}

type CheckResult struct {
	Status    Status    `json:"status"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type CheckerRegistry struct {
	checkers []Checker
	timeout  time.Duration
}

func NewCheckerRegistry() *CheckerRegistry {
	return &CheckerRegistry{
		checkers: make([]Checker, 0),
		timeout:  constants.ReadinessCheckTimeout,
	}
}

func (r *CheckerRegistry) Register(checker Checker) {
	r.checkers = append(r.checkers, checker)
}

func (r *CheckerRegistry) Check(ctx context.Context) Readiness {
	results := make(map[string]CheckResult, len(r.checkers))
	overall := StatusHealthy

	for _, checker := range r.checkers {
		checkCtx, cancel := context.WithTimeout(ctx, r.timeout)
		err := checker.Check(checkCtx)
		cancel()

		result := CheckResult{
			Status:    StatusHealthy,
			Timestamp: time.Now().UTC(),
		}
		if err != nil {
			result.Status = StatusUnhealthy
			result.Message = err.Error()
			overall = StatusUnhealthy
		}
		results[checker.Name()] = result
	}

	return Readiness{
		Status:    overall,
		Timestamp: time.Now().UTC(),
		Checks:    results,
	}
}

// Handle godoc
// @Summary      Readiness
// @Description  Runs the registered dependency checks. 503 when any check fails.
// @Tags         health
// @Produce      json
// @Success      200  {object}  health.Readiness
// @Failure      503  {object}  health.Readiness
// @Router       /ready [get]
func (r *CheckerRegistry) Handle(c *gin.Context) {
	h := r.Check(c.Request.Context())
	status := http.StatusOK
	if h.Status == StatusUnhealthy {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, h)
}

// Pinger is satisfied by message bus clients.
type Pinger interface {
	Ping(ctx context.Context) error
	Name() string
}

type BusChecker struct {
	bus Pinger
}

func NewBusChecker(bus Pinger) *BusChecker {
	return &BusChecker{bus: bus}
}

func (c *BusChecker) Name() string {
	return "bus_" + c.bus.Name()
}

func (c *BusChecker) Check(ctx context.Context) error {
	if err := c.bus.Ping(ctx); err != nil {
		return fmt.Errorf("%s ping failed: %w", c.bus.Name(), err)
	}
	return nil
}
