// internal/app/system/authz/authz.go
package authz

import (
	"fmt"
	"net/http"

	"github.com/dalemusser/expensehub/internal/app/system/apperr"
	"github.com/dalemusser/expensehub/internal/app/system/auth"
	"github.com/dalemusser/expensehub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	// ErrNotOnProject is returned when the user has no role on the project.
	ErrNotOnProject = fmt.Errorf("you are not on this project: %w", apperr.ErrForbidden)
	// ErrCannotManage is returned when the user may view but not change the project.
	ErrCannotManage = fmt.Errorf("only admins and production heads can change this project: %w", apperr.ErrForbidden)
)

// UserCtx returns the signed-in user's role, name and ObjectID, and a found flag.
// If no user is present in context it returns "", "", NilObjectID, false.
func UserCtx(r *http.Request) (role models.Role, name string, userID primitive.ObjectID, ok bool) {
	u, ok := auth.CurrentUser(r)
	if !ok {
		return "", "", primitive.NilObjectID, false
	}
	return u.Role, u.FullName, u.ID, true
}

// IsAdmin reports whether the current request's user is an admin.
func IsAdmin(r *http.Request) bool {
	role, _, _, ok := UserCtx(r)
	return ok && role == models.RoleAdmin
}

// CanViewProject reports whether u may read the project: admins, and anyone
// on the team in any capacity.
func CanViewProject(u *models.User, p *models.Project) bool {
	return u.Role == models.RoleAdmin || p.HasMember(u.ID)
}

// CanManageProject reports whether u may change budgets, crew or status.
func CanManageProject(u *models.User, p *models.Project) bool {
	return u.Role == models.RoleAdmin || p.IsProductionHead(u.ID)
}

// RequireView returns ErrNotOnProject unless CanViewProject.
func RequireView(u *models.User, p *models.Project) error {
	if !CanViewProject(u, p) {
		return ErrNotOnProject
	}
	return nil
}

// RequireManage returns ErrCannotManage unless CanManageProject.
func RequireManage(u *models.User, p *models.Project) error {
	if !CanManageProject(u, p) {
		return ErrCannotManage
	}
	return nil
}
