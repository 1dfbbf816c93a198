package api

import (
	"time"

	"github.com/portalgate/portalgate/internal/store"
)

// HealthOutput is the health check response.
type HealthOutput struct {
	Body struct {
		Status string `json:"status"`
	}
}

// CapabilitiesOutput describes the running deployment for the SPA shell.
type CapabilitiesOutput struct {
	Body struct {
		AppName   string `json:"appName"`
		Mode      string `json:"mode"`
		Installed bool   `json:"installed"`
		Version   string `json:"version"`
	}
}

// SessionInput carries the embedded-session credential the host portal
// passes when the app renders inside an iframe. Both fields empty means a
// standalone (non-embedded) load.
type SessionInput struct {
	AuthID string `query:"AUTH_ID" doc:"embedded member-session token from the host portal"`
	Domain string `query:"DOMAIN" doc:"portal domain the token belongs to"`
}

// SessionOutput is the authorization decision handed to the SPA, plus a
// signed session token when an identity was resolved.
type SessionOutput struct {
	SetCookie string `header:"Set-Cookie"`
	Body      struct {
		Outcome       string       `json:"outcome"`
		Mode          string       `json:"mode"`
		Authenticated bool         `json:"authenticated"`
		IsAdmin       bool         `json:"isAdmin"`
		AccessGranted bool         `json:"accessGranted"`
		Reason        string       `json:"reason,omitempty"`
		User          *SessionUser `json:"user,omitempty"`
		SessionToken  string       `json:"sessionToken,omitempty"`
	}
}

// SessionUser is the identity slice exposed to the SPA.
type SessionUser struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Email       string  `json:"email,omitempty"`
	Departments []int64 `json:"departments,omitempty"`
}

// InstallInput captures the installer credential during app installation.
type InstallInput struct {
	Body struct {
		AccessToken  string `json:"accessToken" doc:"installer OAuth access token"`
		RefreshToken string `json:"refreshToken,omitempty"`
		Domain       string `json:"domain" doc:"portal domain"`
		ExpiresIn    int64  `json:"expiresIn,omitempty" doc:"token lifetime in seconds"`
	}
}

// InstallOutput confirms a completed installation.
type InstallOutput struct {
	Body struct {
		Installed     bool   `json:"installed"`
		AdminID       int64  `json:"adminId,omitempty"`
		AdminName     string `json:"adminName,omitempty"`
		ProfileCached bool   `json:"profileCached"`
	}
}

// AccessListOutput returns the allow-list document for the management screen.
type AccessListOutput struct {
	Body struct {
		Enabled     bool                    `json:"enabled"`
		Departments []store.DepartmentEntry `json:"departments"`
		Users       []store.UserEntry       `json:"users"`
		LastUpdated *time.Time              `json:"last_updated"`
		UpdatedBy   *store.Stamp            `json:"updated_by"`
	}
}

// AddDepartmentInput adds a department to the allow-list. Name is optional;
// when omitted it is resolved from the portal org chart.
type AddDepartmentInput struct {
	Body struct {
		ID   int64  `json:"id"`
		Name string `json:"name,omitempty"`
	}
}

// RemoveDepartmentInput removes a department by path id.
type RemoveDepartmentInput struct {
	ID int64 `path:"id"`
}

// AddUserInput adds a user to the allow-list.
type AddUserInput struct {
	Body struct {
		ID    int64  `json:"id"`
		Name  string `json:"name"`
		Email string `json:"email,omitempty"`
	}
}

// RemoveUserInput removes a user by path id.
type RemoveUserInput struct {
	ID int64 `path:"id"`
}

// ToggleInput flips the allow-list gate.
type ToggleInput struct {
	Body struct {
		Enabled bool `json:"enabled"`
	}
}

// MutationOutput is the uniform result of allow-list mutations.
type MutationOutput struct {
	Body struct {
		Success bool `json:"success"`
	}
}

// DirectoryDepartmentsOutput lists portal departments for the admin picker.
type DirectoryDepartmentsOutput struct {
	Body struct {
		Departments []DirectoryDepartment `json:"departments"`
	}
}

// DirectoryDepartment is one org-chart entry.
type DirectoryDepartment struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// DirectoryUsersInput filters the portal user listing.
type DirectoryUsersInput struct {
	Search string `query:"search" doc:"optional search term matched against name and email"`
}

// DirectoryUsersOutput lists portal users for the admin picker.
type DirectoryUsersOutput struct {
	Body struct {
		Users []DirectoryUserItem `json:"users"`
	}
}

// DirectoryUserItem is one portal user.
type DirectoryUserItem struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}
