package auth

import (
	"fmt"
	"net/http"
	"slices"

	"github.com/labstack/echo/v4"

	"github.com/hms/hms/internal/hospital"
)

// Screen is a workflow area of the application.
type Screen string

const (
	ScreenDashboard Screen = "dashboard"
	ScreenPatients  Screen = "patients"
	ScreenNurse     Screen = "nurse"
	ScreenDoctor    Screen = "doctor"
	ScreenPharmacy  Screen = "pharmacy"
	ScreenBilling   Screen = "billing"
	ScreenStaff     Screen = "staff"
)

// AllScreens is the sidebar order.
var AllScreens = []Screen{
	ScreenDashboard, ScreenPatients, ScreenNurse, ScreenDoctor, ScreenPharmacy, ScreenBilling, ScreenStaff,
}

var screenLabels = map[Screen]string{
	ScreenDashboard: "Dashboard",
	ScreenPatients:  "Patients",
	ScreenNurse:     "Nurse",
	ScreenDoctor:    "Doctor",
	ScreenPharmacy:  "Pharmacy",
	ScreenBilling:   "Billing",
	ScreenStaff:     "Staff",
}

var roleScreens = map[hospital.Role][]Screen{
	hospital.RoleNurse:      {ScreenDashboard, ScreenNurse},
	hospital.RoleDoctor:     {ScreenDashboard, ScreenDoctor},
	hospital.RolePharmacist: {ScreenDashboard, ScreenPharmacy},
	hospital.RoleBilling:    {ScreenDashboard, ScreenBilling},
}

// ScreensFor lists the screens role may reach. Unknown roles reach none.
func ScreensFor(role hospital.Role) []Screen {
	if role == hospital.RoleAdmin {
		return slices.Clone(AllScreens)
	}
	return slices.Clone(roleScreens[role])
}

func CanAccess(role hospital.Role, s Screen) bool {
	return role == hospital.RoleAdmin || slices.Contains(roleScreens[role], s)
}

// RequireScreen rejects sessions whose role cannot reach s.
func RequireScreen(s Screen) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id, ok := IdentityFromContext(c.Request().Context())
			if !ok {
				return Unauthenticated()
			}
			if !CanAccess(id.Role, s) {
				return echo.NewHTTPError(http.StatusForbidden,
					fmt.Sprintf("the %s screen is not available to role %s", s, id.Role))
			}
			return next(c)
		}
	}
}

type NavItem struct {
	Screen Screen `json:"screen"`
	Label  string `json:"label"`
	Path   string `json:"path"`
}

type NavigationResponse struct {
	User    Identity  `json:"user"`
	Landing string    `json:"landing"`
	Items   []NavItem `json:"items"`
}

// Navigation builds the sidebar for role.
func Navigation(role hospital.Role) []NavItem {
	screens := ScreensFor(role)
	items := make([]NavItem, len(screens))
	for i, s := range screens {
		items[i] = NavItem{Screen: s, Label: screenLabels[s], Path: "/" + string(s)}
	}
	return items
}

// NavigationHandler serves GET /api/v1/navigation.
func NavigationHandler(c echo.Context) error {
	id, ok := IdentityFromContext(c.Request().Context())
	if !ok {
		return Unauthenticated()
	}
	return c.JSON(http.StatusOK, NavigationResponse{
		User:    id,
		Landing: "/" + string(ScreenDashboard),
		Items:   Navigation(id.Role),
	})
}
