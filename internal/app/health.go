package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
)

const healthCheckTimeout = 2 * time.Second

type HealthChecker struct {
	infra Infrastructure
}

func NewHealthChecker(infra Infrastructure) *HealthChecker {
	return &HealthChecker{
		infra: infra,
	}
}

// check pings every backing service and reports which ones failed
func (h *HealthChecker) check(ctx context.Context) map[string]string {
	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	checks := map[string]func(context.Context) error{
		"postgres": h.infra.Postgres().Ping,
		"redis":    h.infra.Redis().Ping,
	}

	results := make(map[string]string, len(checks))
	outcomes := make(chan [2]string, len(checks))

	var g errgroup.Group
	for name, ping := range checks {
		g.Go(func() error {
			status := "pass"
			if err := ping(ctx); err != nil {
				status = fmt.Sprintf("fail: %v", err)
			}
			outcomes <- [2]string{name, status}
			return nil
		})
	}
	_ = g.Wait()
	close(outcomes)

	for o := range outcomes {
		results[o[0]] = o[1]
	}
	return results
}

func (h *HealthChecker) Handler(c *gin.Context) {
	results := h.check(c.Request.Context())

	for _, status := range results {
		if status != "pass" {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "fail",
				"checks": results,
			})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "pass",
		"checks": results,
	})
}
