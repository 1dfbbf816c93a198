package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/portalgate/portalgate/internal/gate"
)

// registerAccess registers the allow-list management endpoints. All of
// them sit behind requireAdmin.
func (s *Server) registerAccess(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "getAccessList",
		Method:      http.MethodGet,
		Path:        "/api/access",
		Tags:        []string{"Access"},
	}, func(ctx context.Context, input *struct{}) (*AccessListOutput, error) {
		list, err := s.evaluator.ReadAllowList(ctx)
		if err != nil {
			return nil, huma.NewError(http.StatusInternalServerError, "failed to read allow-list")
		}
		out := &AccessListOutput{}
		out.Body.Enabled = list.Enabled
		out.Body.Departments = list.Departments
		out.Body.Users = list.Users
		out.Body.LastUpdated = list.LastUpdated
		out.Body.UpdatedBy = list.UpdatedBy
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "addAccessDepartment",
		Method:      http.MethodPost,
		Path:        "/api/access/departments",
		Tags:        []string{"Access"},
	}, func(ctx context.Context, input *AddDepartmentInput) (*MutationOutput, error) {
		name := input.Body.Name
		if name == "" {
			// Resolve the display name from the org chart when omitted.
			cred, err := s.installerCredential(ctx)
			if err != nil {
				return nil, huma.NewError(http.StatusBadRequest, "name is required (no installer credential to resolve it)")
			}
			dep, err := s.directory.GetDepartment(ctx, input.Body.ID, cred)
			if err != nil {
				return nil, huma.NewError(http.StatusBadGateway, "department lookup failed: "+err.Error())
			}
			if dep == nil {
				return nil, huma.NewError(http.StatusBadRequest, "department not found in the portal")
			}
			name = dep.Name
		}
		return mutationResult(s.evaluator.AddDepartment(ctx, input.Body.ID, name, actorStamp(ctx)))
	})

	huma.Register(api, huma.Operation{
		OperationID: "removeAccessDepartment",
		Method:      http.MethodDelete,
		Path:        "/api/access/departments/{id}",
		Tags:        []string{"Access"},
	}, func(ctx context.Context, input *RemoveDepartmentInput) (*MutationOutput, error) {
		return mutationResult(s.evaluator.RemoveDepartment(ctx, input.ID, actorStamp(ctx)))
	})

	huma.Register(api, huma.Operation{
		OperationID: "addAccessUser",
		Method:      http.MethodPost,
		Path:        "/api/access/users",
		Tags:        []string{"Access"},
	}, func(ctx context.Context, input *AddUserInput) (*MutationOutput, error) {
		return mutationResult(s.evaluator.AddUser(ctx, input.Body.ID, input.Body.Name, input.Body.Email, actorStamp(ctx)))
	})

	huma.Register(api, huma.Operation{
		OperationID: "removeAccessUser",
		Method:      http.MethodDelete,
		Path:        "/api/access/users/{id}",
		Tags:        []string{"Access"},
	}, func(ctx context.Context, input *RemoveUserInput) (*MutationOutput, error) {
		return mutationResult(s.evaluator.RemoveUser(ctx, input.ID, actorStamp(ctx)))
	})

	huma.Register(api, huma.Operation{
		OperationID: "toggleAccessEnabled",
		Method:      http.MethodPost,
		Path:        "/api/access/enabled",
		Tags:        []string{"Access"},
	}, func(ctx context.Context, input *ToggleInput) (*MutationOutput, error) {
		return mutationResult(s.evaluator.SetEnabled(ctx, input.Body.Enabled, actorStamp(ctx)))
	})
}

// mutationResult translates evaluator errors into the API error model:
// validation and duplicate failures are client errors, anything else is a
// persistence failure that must surface, never be dropped.
func mutationResult(err error) (*MutationOutput, error) {
	if err == nil {
		out := &MutationOutput{}
		out.Body.Success = true
		return out, nil
	}
	var verr *gate.ValidationError
	if errors.As(err, &verr) {
		return nil, huma.NewError(http.StatusUnprocessableEntity, verr.Error())
	}
	var derr *gate.DuplicateError
	if errors.As(err, &derr) {
		return nil, huma.NewError(http.StatusConflict, derr.Error())
	}
	return nil, huma.NewError(http.StatusInternalServerError, "allow-list update failed: "+err.Error())
}
