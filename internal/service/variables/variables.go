package variables

import (
	"context"
	"log/slog"
	"strings"

	"flowengine/entity"
	"flowengine/internal/lib/sl"
)

type Store interface {
	GetFlowVariables(ctx context.Context, key entity.UserKey, flowID string) (map[string]string, error)
	SaveFlowVariable(ctx context.Context, key entity.UserKey, flowID, name, value string) error
}

// Service is the per-(user, flow) variable store behind @variable
// references.
type Service struct {
	store Store
	log   *slog.Logger
}

func New(store Store, log *slog.Logger) *Service {
	return &Service{
		store: store,
		log:   log.With(sl.Module("service.variables")),
	}
}

// Name strips the leading @ from a variable reference.
func Name(ref string) string {
	return strings.TrimPrefix(strings.TrimSpace(ref), "@")
}

// Get returns the stored value; missing variables read as the empty string.
func (s *Service) Get(ctx context.Context, key entity.UserKey, flowID, ref string) (string, error) {
	vars, err := s.store.GetFlowVariables(ctx, key, flowID)
	if err != nil {
		return "", err
	}
	return vars[Name(ref)], nil
}

func (s *Service) Set(ctx context.Context, key entity.UserKey, flowID, ref, value string) error {
	name := Name(ref)
	if name == "" {
		return nil
	}
	s.log.Debug("saving flow variable",
		slog.String("flow_id", flowID),
		slog.String("name", name),
	)
	return s.store.SaveFlowVariable(ctx, key, flowID, name, value)
}

// Snapshot returns all variables for the pair; the condition evaluator works
// on the snapshot so one read serves a whole condition list.
func (s *Service) Snapshot(ctx context.Context, key entity.UserKey, flowID string) (map[string]string, error) {
	return s.store.GetFlowVariables(ctx, key, flowID)
}
