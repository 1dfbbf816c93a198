package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/portalgate/portalgate/internal/portal"
)

// registerDirectory registers the portal-directory browse endpoints backing
// the admin UI pickers. They act with the installer credential so an admin
// session can browse the org chart regardless of how it authenticated.
func (s *Server) registerDirectory(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "listDirectoryDepartments",
		Method:      http.MethodGet,
		Path:        "/api/directory/departments",
		Tags:        []string{"Directory"},
	}, func(ctx context.Context, input *struct{}) (*DirectoryDepartmentsOutput, error) {
		cred, err := s.installerCredential(ctx)
		if err != nil {
			return nil, huma.NewError(http.StatusConflict, "application is not installed")
		}
		departments, err := s.directory.ListDepartments(ctx, cred)
		if err != nil {
			return nil, directoryError(err)
		}
		out := &DirectoryDepartmentsOutput{}
		out.Body.Departments = make([]DirectoryDepartment, 0, len(departments))
		for _, d := range departments {
			out.Body.Departments = append(out.Body.Departments, DirectoryDepartment{ID: d.ID, Name: d.Name})
		}
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "listDirectoryUsers",
		Method:      http.MethodGet,
		Path:        "/api/directory/users",
		Tags:        []string{"Directory"},
	}, func(ctx context.Context, input *DirectoryUsersInput) (*DirectoryUsersOutput, error) {
		cred, err := s.installerCredential(ctx)
		if err != nil {
			return nil, huma.NewError(http.StatusConflict, "application is not installed")
		}
		users, err := s.directory.ListUsers(ctx, cred, input.Search)
		if err != nil {
			return nil, directoryError(err)
		}
		out := &DirectoryUsersOutput{}
		out.Body.Users = make([]DirectoryUserItem, 0, len(users))
		for _, u := range users {
			out.Body.Users = append(out.Body.Users, DirectoryUserItem{ID: u.ID, Name: u.Name, Email: u.Email})
		}
		return out, nil
	})
}

// directoryError maps portal failures onto the API error model and records
// the error-code metric.
func directoryError(err error) error {
	var apiErr *portal.APIError
	if errors.As(err, &apiErr) {
		portalCallErrors.WithLabelValues(apiErr.Code).Inc()
		if apiErr.InvalidCredential() {
			return huma.NewError(http.StatusBadGateway, "installer credential rejected by the portal; re-install may be required")
		}
	} else {
		portalCallErrors.WithLabelValues("transport").Inc()
	}
	return huma.NewError(http.StatusBadGateway, "portal directory call failed: "+err.Error())
}
