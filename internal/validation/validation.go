// Package validation gates startup on the optional services an operator
// marked as required. Unrequired services degrade instead of failing.
package validation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/quillhub/backend/internal/logger"
	"go.uber.org/zap"
)

// Known optional services
const (
	ServiceRedis         = "redis"
	ServiceElasticsearch = "elasticsearch"
)

// ErrNotConfigured is returned by checks for services that were never set up
var ErrNotConfigured = errors.New("service not configured")

// Check probes one service
type Check func(ctx context.Context) error

// ServiceValidator runs the checks of required services
type ServiceValidator struct {
	required []string
	checks   map[string]Check
	timeout  time.Duration
}

// NewServiceValidator creates a validator for the named services
func NewServiceValidator(required []string) *ServiceValidator {
	names := make([]string, 0, len(required))
	for _, r := range required {
		if r = strings.ToLower(strings.TrimSpace(r)); r != "" {
			names = append(names, r)
		}
	}
	return &ServiceValidator{
		required: names,
		checks:   make(map[string]Check),
		timeout:  10 * time.Second,
	}
}

// Register sets the check for a service
func (sv *ServiceValidator) Register(name string, check Check) {
	sv.checks[name] = check
}

// ValidateServices runs the check of every required service and fails on
// the first error
func (sv *ServiceValidator) ValidateServices(ctx context.Context) error {
	if len(sv.required) == 0 {
		logger.Log.Debug("No required services configured for validation")
		return nil
	}

	logger.Log.Info("Validating required services", zap.Strings("services", sv.required))

	for _, name := range sv.required {
		check, ok := sv.checks[name]
		if !ok {
			return fmt.Errorf("unknown required service %q", name)
		}

		timeoutCtx, cancel := context.WithTimeout(ctx, sv.timeout)
		err := check(timeoutCtx)
		cancel()
		if err != nil {
			logger.Log.Error("Required service validation failed", zap.String("service", name), zap.Error(err))
			return fmt.Errorf("required service %s: %w", name, err)
		}

		logger.Log.Info("Service validated successfully", zap.String("service", name))
	}
	return nil
}
