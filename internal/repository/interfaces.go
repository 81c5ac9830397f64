// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"time"

	"github.com/hitoshi/kabudash/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByEmail は指定emailのユーザーを取得する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// Create はユーザーを作成する。emailの重複はエラーになる。
	Create(ctx context.Context, user *model.User) error
}

// PositionRepository は購入ロットデータの永続化インターフェース。
type PositionRepository interface {
	// Create は購入ロットを1件追加する。upsertやマージは行わない。
	Create(ctx context.Context, position *model.Position) error

	// ListByUserEmail は所有者の全ロットをストアの自然順（挿入順）で返す。
	// 所有者が存在しない場合も空スライスを返す（エラーにしない）。
	ListByUserEmail(ctx context.Context, email string) ([]*model.Position, error)
}

// SessionRepository はセッションデータの永続化インターフェース。
// セッションは揮発的なサーバーサイド状態であり、TTL付きで保存される。
type SessionRepository interface {
	// Save はセッションを保存する。既存IDの場合は上書きし、TTLを更新する。
	Save(ctx context.Context, session *model.Session, ttl time.Duration) error

	// FindByID は指定IDのセッションを取得する。
	// 見つからない場合および期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)

	// DeleteByID は指定IDのセッションを削除する。存在しなくてもエラーにしない。
	DeleteByID(ctx context.Context, id string) error
}
