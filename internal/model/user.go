// Package model はドメインモデルを定義する。
package model

import "time"

// User はサービス利用ユーザーを表す。
// サインアップコールバックの初回成功時に作成され、以後更新も削除もされない。
// Emailがユーザーの一意識別子。
type User struct {
	ID        string
	Email     string
	Name      string
	AvatarURL string
	CreatedAt time.Time
}
