package auth

import "github.com/necrock/readingtracker/internal/model"

// 権限名。
const (
	AuthorityUser  = "ROLE_USER"
	AuthorityAdmin = "ROLE_ADMIN"
)

// Principal は認証済みリクエストの主体。
// リクエストごとにストアから引き直したユーザーから組み立てる。
type Principal struct {
	UserID   int64
	Username string
	Role     model.Role
	Status   model.Status
}

// NewPrincipal はユーザーからPrincipalを組み立てる。
func NewPrincipal(u *model.User) *Principal {
	return &Principal{
		UserID:   u.ID,
		Username: u.Username,
		Role:     u.Role,
		Status:   u.Status,
	}
}

// Authorities は主体が持つ権限の一覧を返す。ADMINはUSERの権限も併せ持つ。
func (p *Principal) Authorities() []string {
	if p.Role == model.RoleAdmin {
		return []string{AuthorityUser, AuthorityAdmin}
	}
	return []string{AuthorityUser}
}

// HasAuthority は指定の権限を持つかどうかを返す。
func (p *Principal) HasAuthority(authority string) bool {
	for _, a := range p.Authorities() {
		if a == authority {
			return true
		}
	}
	return false
}

// Enabled はアカウントが有効かどうかを返す。
func (p *Principal) Enabled() bool {
	return p.Status == model.StatusActive
}
