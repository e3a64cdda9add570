package member

import (
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/tshola/ngoma/core"
)

// Collection is the remote collection / cache entry name for members.
const Collection = "members"

// Roles
const (
	// Admin
	RoleAdmin      = "admin:"
	RoleAdminOwner = "admin:owner"

	// Support staff
	RoleSupport = "support:"

	// Trainer
	RoleTrainer = "trainer:"

	// Member
	RoleMember = "member:"
)

var (
	AdminRoles   = []string{RoleAdmin, RoleAdminOwner}
	SupportRoles = []string{RoleSupport}
	TrainerRoles = []string{RoleTrainer}
	MemberRoles  = []string{RoleMember}
	AllRoles     = getAllRoles()

	rolePriorities = map[string]int{
		// Admins: 40 - 31
		RoleAdminOwner: 40,
		RoleAdmin:      31,

		// Support staff: 30 - 21
		RoleSupport: 21,

		// Trainers: 20 - 11
		RoleTrainer: 11,

		// Members: 10 - 1
		RoleMember: 1,
	}

	Roles = []Role{
		{Name: "Member", Value: RoleMember},
		{Name: "Trainer", Value: RoleTrainer},
		{Name: "Support", Value: RoleSupport},
		{Name: "Admin", Value: RoleAdmin},
		{Name: "Admin Owner", Value: RoleAdminOwner},
	}
)

func getAllRoles() []string {
	all := make([]string, 0, 5)
	all = append(all, AdminRoles...)
	all = append(all, SupportRoles...)
	all = append(all, TrainerRoles...)
	all = append(all, MemberRoles...)
	return all
}

func RolePriority(role string) int {
	return rolePriorities[role]
}

func MaxRolePriority(roles []string) int {
	var max int
	for _, role := range roles {
		if RolePriority(role) > max {
			max = RolePriority(role)
		}
	}
	return max
}

type Role struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type Member struct {
	Key          string   `json:"key"`
	Name         string   `json:"name"`
	Username     string   `json:"username"`
	Email        string   `json:"email"`
	IsActive     bool     `json:"is_active"`
	Roles        []string `json:"roles"`
	PasswordHash []byte   `json:"password_hash,omitempty"`

	// login streak; LastLoginDay is nil until the first recorded login
	LastLoginDay  *time.Time `json:"last_login_day,omitempty"`
	StreakCurrent int        `json:"streak_current"`
	StreakLongest int        `json:"streak_longest"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (m Member) RecordKey() string { return m.Key }

func (m *Member) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	m.PasswordHash = hash
	return nil
}

func (m *Member) CheckPassword(pwd []byte) error {
	return bcrypt.CompareHashAndPassword(m.PasswordHash, pwd)
}

func (m *Member) roleStartsWith(prefix string) bool {
	for _, role := range m.Roles {
		if strings.HasPrefix(role, prefix) {
			return true
		}
	}
	return false
}

func (m *Member) IsAdmin() bool {
	return m.roleStartsWith(RoleAdmin)
}

func (m *Member) IsSupport() bool {
	return m.roleStartsWith(RoleSupport)
}

func (m *Member) IsTrainer() bool {
	return m.roleStartsWith(RoleTrainer)
}

// NewMember contains information needed to create a new Member.
type NewMember struct {
	Name            string   `json:"name" validate:"required"`
	Username        string   `json:"username" validate:"required,min=3,alphanum_"`
	Email           string   `json:"email" validate:"omitempty,email"`
	Password        string   `json:"password" validate:"required,min=8"`
	PasswordConfirm string   `json:"password_confirm" validate:"required,eqfield=Password"`
	Roles           []string `json:"roles" validate:"omitempty,allroles"`
}

func (nm *NewMember) Validate() error {
	nm.Name = core.CleanString(nm.Name)
	nm.Username = core.CleanString(nm.Username, true /* lower */)
	nm.Email = core.CleanString(nm.Email, true /* lower */)
	return core.Validate.Struct(nm)
}

// UpdateMember defines what information may be provided to modify an existing Member.
type UpdateMember struct {
	Name            string   `json:"name"`
	Email           string   `json:"email" validate:"omitempty,email"`
	IsActive        *bool    `json:"is_active"`
	Roles           []string `json:"roles" validate:"omitempty,allroles"`
	Password        string   `json:"password" validate:"omitempty,min=8,eqfield=PasswordConfirm"`
	PasswordConfirm string   `json:"password_confirm"`
}

func (um *UpdateMember) Validate() error {
	um.Name = core.CleanString(um.Name)
	um.Email = core.CleanString(um.Email, true /* lower */)
	return core.Validate.Struct(um)
}
