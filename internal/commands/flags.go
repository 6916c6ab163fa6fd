package commands

import (
	"errors"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-workflow/internal/auth"
	"github.com/spec-kit/ticket-workflow/internal/bootstrap"
	"github.com/spec-kit/ticket-workflow/internal/config"
)

// Flags carries global options and the state opened in the root Before hook.
type Flags struct {
	Config   *config.Config
	Logger   *zap.Logger
	Backend  *bootstrap.Backend
	Services *bootstrap.Services
	Tokens   *auth.TokenManager
}

var errNotInitialized = errors.New("workflowctl: storage not initialized")

func (f *Flags) services() (*bootstrap.Services, error) {
	if f == nil || f.Services == nil {
		return nil, errNotInitialized
	}
	return f.Services, nil
}
