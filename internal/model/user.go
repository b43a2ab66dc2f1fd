// Package model はドメインモデルを定義する。
package model

import "time"

// Role はユーザーの権限ロール。
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// Valid は定義済みのロールかどうかを返す。
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// Status はアカウントの状態。DELETEDは論理削除を表し、以後の認証を拒否する。
type Status string

const (
	StatusActive  Status = "ACTIVE"
	StatusDeleted Status = "DELETED"
)

// Valid は定義済みの状態かどうかを返す。
func (s Status) Valid() bool {
	return s == StatusActive || s == StatusDeleted
}

// User はサービス利用ユーザーを表す。物理削除はしない。
type User struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	Role         Role
	Status       Status
	CreatedAt    time.Time
}

// UserUpdate はユーザー自身による部分更新の内容。nilのフィールドは変更しない。
type UserUpdate struct {
	Email *string
}

// Apply は非nilのフィールドだけをuserに上書きする。
func (u UserUpdate) Apply(user *User) {
	if u.Email != nil {
		user.Email = *u.Email
	}
}
