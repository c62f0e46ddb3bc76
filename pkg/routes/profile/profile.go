package profile

import (
	"net/http"
	"strconv"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/tutorlink/internal/repositories/favorite"
	"github.com/Ramsey-B/tutorlink/internal/repositories/managedby"
	"github.com/Ramsey-B/tutorlink/internal/repositories/role"
	"github.com/Ramsey-B/tutorlink/internal/repositories/user"
	ctxmiddleware "github.com/Ramsey-B/tutorlink/pkg/context"
	"github.com/Ramsey-B/tutorlink/pkg/models"
	"github.com/Ramsey-B/tutorlink/pkg/tracing"
)

var validate = validator.New()

// Register registers profile routes
func Register(g *echo.Group) {
	g.GET("", Get)
	g.PUT("", Update)
	g.GET("/favorites", ListFavorites)
	g.POST("/favorites/:moduleID", AddFavorite)
	g.DELETE("/favorites/:moduleID", RemoveFavorite)
	g.GET("/managed", ListManaged)
}

// ListManaged returns the modules the acting user manages
func ListManaged(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "profile_handler.ListManaged")
	defer span.End()

	username := ctxmiddleware.GetUsername(ctx)
	if username == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "username is required")
	}

	ctx, managed, err := ectoinject.GetContext[*managedby.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}

	links, err := managed.ListForUser(ctx, username)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]any{"modules": links})
}

// Get returns the acting user's profile and the selectable roles
func Get(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "profile_handler.Get")
	defer span.End()

	username := ctxmiddleware.GetUsername(ctx)
	if username == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "username is required")
	}

	ctx, users, err := ectoinject.GetContext[*user.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}

	current, err := users.GetByUsername(ctx, username)
	if err != nil {
		return err
	}
	if current == nil {
		return httperror.NewHTTPErrorf(http.StatusNotFound, "user %s does not exist", username)
	}

	ctx, roles, err := ectoinject.GetContext[*role.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}

	allRoles, err := roles.List(ctx)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, models.ProfileResponse{
		User:  *current,
		Roles: allRoles,
	})
}

// Update sets the acting user's profile fields
func Update(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "profile_handler.Update")
	defer span.End()

	username := ctxmiddleware.GetUsername(ctx)
	if username == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "username is required")
	}

	var req models.UpdateProfileRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx, roles, err := ectoinject.GetContext[*role.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}

	selected, err := roles.GetByID(ctx, req.RoleID)
	if err != nil {
		return err
	}
	if selected == nil {
		return httperror.NewHTTPErrorf(http.StatusBadRequest, "role %d does not exist", req.RoleID)
	}

	ctx, users, err := ectoinject.GetContext[*user.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}

	current, err := users.GetByUsername(ctx, username)
	if err != nil {
		return err
	}
	if current == nil {
		return httperror.NewHTTPErrorf(http.StatusNotFound, "user %s does not exist", username)
	}

	if err := users.UpdateProfile(ctx, username, req.Email, req.Name, req.Surname, req.RoleID); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]string{"message": "Profile updated."})
}

// ListFavorites returns the acting user's favorite modules
func ListFavorites(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "profile_handler.ListFavorites")
	defer span.End()

	username := ctxmiddleware.GetUsername(ctx)
	if username == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "username is required")
	}

	ctx, favorites, err := ectoinject.GetContext[*favorite.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}

	modules, err := favorites.ListForUser(ctx, username)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]any{"modules": modules})
}

// AddFavorite marks a module as a favorite
func AddFavorite(c echo.Context) error {
	return setFavorite(c, true)
}

// RemoveFavorite unmarks a favorite module
func RemoveFavorite(c echo.Context) error {
	return setFavorite(c, false)
}

func setFavorite(c echo.Context, add bool) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "profile_handler.setFavorite")
	defer span.End()

	username := ctxmiddleware.GetUsername(ctx)
	if username == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "username is required")
	}

	moduleID, err := strconv.Atoi(c.Param("moduleID"))
	if err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid module id")
	}

	ctx, favorites, err := ectoinject.GetContext[*favorite.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}

	if add {
		err = favorites.Add(ctx, username, moduleID)
	} else {
		err = favorites.Remove(ctx, username, moduleID)
	}
	if err != nil {
		return err
	}

	return c.NoContent(http.StatusNoContent)
}
