package app

import (
	"context"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
)

// InspectPackage reads the index record a package file would contribute.
func (s Service) InspectPackage(ctx context.Context, req InspectRequest) (InspectResult, error) {
	path := strings.TrimSpace(req.Path)
	if path == "" {
		return InspectResult{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("package path is required")
	}
	record, err := s.Inspector.Inspect(ctx, path)
	if err != nil {
		return InspectResult{}, err
	}
	return InspectResult{Record: record}, nil
}
