package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/hitoshi/kabudash/internal/database"
	"github.com/hitoshi/kabudash/internal/model"
)

// positionDoc はpositionsコレクションのBSON表現。
// 購入価格は入力されたままの精度を保持するため10進文字列で保存する。
// 丸めは表示時のみ行う。
type positionDoc struct {
	ID           string    `bson:"_id"`
	UserEmail    string    `bson:"user_email"`
	Symbol       string    `bson:"symbol"`
	BuyPrice     string    `bson:"buy_price"`
	Quantity     int64     `bson:"quantity"`
	PurchaseDate time.Time `bson:"purchase_date"`
}

// MongoPositionRepo はMongoDBを使用した購入ロットリポジトリ。
type MongoPositionRepo struct {
	col *mongo.Collection
}

// NewMongoPositionRepo はMongoPositionRepoを生成する。
func NewMongoPositionRepo(db *mongo.Database) *MongoPositionRepo {
	return &MongoPositionRepo{col: db.Collection(database.PositionsCollection)}
}

// Create は購入ロットを1件追加する。
// 同一銘柄の既存ロットがあってもマージせず、常に新しいレコードを作成する。
func (r *MongoPositionRepo) Create(ctx context.Context, position *model.Position) error {
	doc := positionDoc{
		ID:           position.ID,
		UserEmail:    position.UserEmail,
		Symbol:       position.Symbol,
		BuyPrice:     position.BuyPrice.String(),
		Quantity:     position.Quantity,
		PurchaseDate: position.PurchaseDate,
	}
	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("failed to insert position: %w", err)
	}
	return nil
}

// ListByUserEmail は所有者の全ロットを返す。
// ソートを指定しないため、結果はストアの自然順（実質的に挿入順）になる。
// 所有者emailに対応するユーザーが存在しない場合も単に空スライスが返る。
func (r *MongoPositionRepo) ListByUserEmail(ctx context.Context, email string) ([]*model.Position, error) {
	cur, err := r.col.Find(ctx, bson.M{"user_email": email})
	if err != nil {
		return nil, fmt.Errorf("failed to list positions: %w", err)
	}
	defer cur.Close(ctx)

	positions := make([]*model.Position, 0)
	for cur.Next(ctx) {
		var doc positionDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode position: %w", err)
		}
		buyPrice, err := decimal.NewFromString(doc.BuyPrice)
		if err != nil {
			return nil, fmt.Errorf("failed to parse stored buy price %q: %w", doc.BuyPrice, err)
		}
		positions = append(positions, &model.Position{
			ID:           doc.ID,
			UserEmail:    doc.UserEmail,
			Symbol:       doc.Symbol,
			BuyPrice:     buyPrice,
			Quantity:     doc.Quantity,
			PurchaseDate: doc.PurchaseDate,
		})
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate positions: %w", err)
	}
	return positions, nil
}

// compile-time interface check
var _ PositionRepository = (*MongoPositionRepo)(nil)
