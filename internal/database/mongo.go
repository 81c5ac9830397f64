// Package database はデータストアへの接続管理を提供する。
package database

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// コレクション名。UsersとPositionsの2つの論理コレクションのみを持ち、
// いずれもemail / user_emailの等価検索だけでアクセスされる。
const (
	UsersCollection     = "users"
	PositionsCollection = "positions"
)

// Mongo はMongoDBクライアントとデータベースハンドルを保持する。
// 起動時に1回だけ生成し、依存として明示的に引き回す。
type Mongo struct {
	Client *mongo.Client
	DB     *mongo.Database
}

// OpenMongo はMongoDBへ接続し、疎通確認まで行う。
// 接続文字列が無効な場合や到達できない場合はエラーを返す（起動時fatal）。
func OpenMongo(ctx context.Context, uri, dbName string) (*Mongo, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	return &Mongo{Client: client, DB: client.Database(dbName)}, nil
}

// EnsureIndexes は等価検索に必要なインデックスを作成する。
// users.emailはユニーク（emailがユーザーの一意識別子）、
// positions.user_emailは所有者での絞り込み用。冪等に実行できる。
func (m *Mongo) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	_, err := m.DB.Collection(UsersCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("failed to create users.email index: %w", err)
	}

	_, err = m.DB.Collection(PositionsCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "user_email", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("failed to create positions.user_email index: %w", err)
	}

	return nil
}

// Ping はデータベースの疎通を確認する。ヘルスチェック用。
func (m *Mongo) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return m.Client.Ping(ctx, nil)
}

// Close は接続を切断する。
func (m *Mongo) Close(ctx context.Context) error {
	return m.Client.Disconnect(ctx)
}
