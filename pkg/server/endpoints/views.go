package endpoints

import (
	"time"

	"github.com/doodlesbykumbi/saasgate/pkg/model"
)

// PermissionRead is the public view of a persisted permission.
type PermissionRead struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// RoleSummary is a role without its permissions, as embedded in UserRead.
type RoleSummary struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// RoleRead is a role with its permissions.
type RoleRead struct {
	ID          uint             `json:"id"`
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Permissions []PermissionRead `json:"permissions"`
}

// UserRead is the public view of a user. The password hash never leaves
// the server.
type UserRead struct {
	ID          uint          `json:"id"`
	Email       string        `json:"email"`
	IsActive    bool          `json:"is_active"`
	IsSuperuser bool          `json:"is_superuser"`
	IsVerified  bool          `json:"is_verified"`
	Roles       []RoleSummary `json:"roles"`
}

// PaymentRead is the public view of a payment. Provider payloads are kept
// server side.
type PaymentRead struct {
	ID                uint                   `json:"id"`
	UserID            uint                   `json:"user_id"`
	Amount            float64                `json:"amount"`
	Currency          string                 `json:"currency"`
	Metadata          map[string]interface{} `json:"metadata"`
	Status            string                 `json:"status"`
	Provider          string                 `json:"provider"`
	ProviderOrderID   *string                `json:"provider_order_id"`
	ProviderPaymentID *string                `json:"provider_payment_id"`
	CreatedAt         time.Time              `json:"created_at"`
	UpdatedAt         time.Time              `json:"updated_at"`
}

func permissionView(p model.Permission) PermissionRead {
	return PermissionRead{ID: p.ID, Name: p.Name, Description: p.Description}
}

func permissionViews(perms []model.Permission) []PermissionRead {
	out := make([]PermissionRead, 0, len(perms))
	for _, p := range perms {
		out = append(out, permissionView(p))
	}
	return out
}

func roleView(r *model.Role) RoleRead {
	return RoleRead{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		Permissions: permissionViews(r.Permissions),
	}
}

func roleViews(roles []model.Role) []RoleRead {
	out := make([]RoleRead, 0, len(roles))
	for i := range roles {
		out = append(out, roleView(&roles[i]))
	}
	return out
}

func userView(u *model.User) UserRead {
	roles := make([]RoleSummary, 0, len(u.Roles))
	for _, r := range u.Roles {
		roles = append(roles, RoleSummary{ID: r.ID, Name: r.Name, Description: r.Description})
	}
	return UserRead{
		ID:          u.ID,
		Email:       u.Email,
		IsActive:    u.IsActive,
		IsSuperuser: u.IsSuperuser,
		IsVerified:  u.IsVerified,
		Roles:       roles,
	}
}

func userViews(users []model.User) []UserRead {
	out := make([]UserRead, 0, len(users))
	for i := range users {
		out = append(out, userView(&users[i]))
	}
	return out
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func paymentView(p *model.Payment) PaymentRead {
	var metadata map[string]interface{}
	if len(p.Metadata) > 0 {
		metadata = p.Metadata
	}
	return PaymentRead{
		ID:                p.ID,
		UserID:            p.UserID,
		Amount:            p.Amount,
		Currency:          p.Currency,
		Metadata:          metadata,
		Status:            string(p.Status),
		Provider:          p.Provider,
		ProviderOrderID:   optional(p.ProviderOrderID),
		ProviderPaymentID: optional(p.ProviderPaymentID),
		CreatedAt:         p.CreatedAt,
		UpdatedAt:         p.UpdatedAt,
	}
}

func paymentViews(payments []model.Payment) []PaymentRead {
	out := make([]PaymentRead, 0, len(payments))
	for i := range payments {
		out = append(out, paymentView(&payments[i]))
	}
	return out
}
