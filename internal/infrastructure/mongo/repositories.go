package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/SG-DATA-TECH-SOLUTIONS/macanudo-backend/internal/domain"
	"github.com/SG-DATA-TECH-SOLUTIONS/macanudo-backend/internal/domain/entity"
	"github.com/SG-DATA-TECH-SOLUTIONS/macanudo-backend/internal/domain/repository"
)

// ==================== Stock ====================

var _ repository.StockRepository = (*StockRepo)(nil)

// StockRepo registros de stock; cantidad y versión cambian solo vía CAS o $inc con guarda.
type StockRepo struct {
	col *mongo.Collection
}

func (r *StockRepo) Create(ctx context.Context, s *entity.StockRecord) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	s.CreatedAt, s.UpdatedAt = now, now
	if s.Version == 0 {
		s.Version = 1
	}
	m, err := toStockModel(s)
	if err != nil {
		return err
	}
	if _, err := r.col.InsertOne(ctx, m); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("mongo: create stock %s: %w", s.ID, domain.ErrDuplicate)
		}
		return fmt.Errorf("mongo: create stock: %w", err)
	}
	return nil
}

func (r *StockRepo) GetByID(ctx context.Context, id string) (*entity.StockRecord, error) {
	var m stockModel
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&m); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("mongo: get stock: %w", err)
	}
	return fromStockModel(&m)
}

func (r *StockRepo) List(ctx context.Context, limit, offset int) ([]*entity.StockRecord, int, error) {
	total, err := r.col.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, 0, fmt.Errorf("mongo: count stock: %w", err)
	}
	opts := findPage(limit, offset).SetSort(bson.D{{Key: "name", Value: 1}, {Key: "_id", Value: 1}})
	list, err := r.find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, 0, err
	}
	return list, int(total), nil
}

func (r *StockRepo) GetQuantity(ctx context.Context, id string) (decimal.Decimal, int64, error) {
	var m struct {
		Quantity bson.Decimal128 `bson:"quantity"`
		Version  int64           `bson:"version"`
	}
	opts := options.FindOne().SetProjection(bson.M{"quantity": 1, "version": 1})
	if err := r.col.FindOne(ctx, bson.M{"_id": id}, opts).Decode(&m); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return decimal.Zero, 0, fmt.Errorf("mongo: get quantity %s: %w", id, domain.ErrNotFound)
		}
		return decimal.Zero, 0, fmt.Errorf("mongo: get quantity: %w", err)
	}
	qty, err := fromD128("quantity", m.Quantity)
	if err != nil {
		return decimal.Zero, 0, err
	}
	return qty, m.Version, nil
}

// CompareAndSetQuantity UpdateOne filtrado por versión; MatchedCount 0 = conflicto.
func (r *StockRepo) CompareAndSetQuantity(ctx context.Context, id string, expectedVersion int64, quantity decimal.Decimal) (bool, error) {
	if quantity.IsNegative() {
		return false, fmt.Errorf("mongo: compare and set %s: %w", id, domain.ErrInsufficientStock)
	}
	qty, err := toD128("quantity", quantity)
	if err != nil {
		return false, err
	}
	res, err := r.col.UpdateOne(ctx,
		bson.M{"_id": id, "version": expectedVersion},
		bson.M{
			"$set": bson.M{"quantity": qty, "updated_at": time.Now().UTC()},
			"$inc": bson.M{"version": 1},
		},
	)
	if err != nil {
		return false, fmt.Errorf("mongo: compare and set: %w", err)
	}
	if res.MatchedCount == 1 {
		return true, nil
	}
	if _, _, err := r.GetQuantity(ctx, id); err != nil {
		return false, err
	}
	return false, nil
}

// IncrementAtomic $inc con filtro quantity >= -delta: el servidor evalúa guarda y suma juntos.
func (r *StockRepo) IncrementAtomic(ctx context.Context, id string, delta decimal.Decimal) (decimal.Decimal, error) {
	inc, err := toD128("delta", delta)
	if err != nil {
		return decimal.Zero, err
	}
	floor, err := toD128("delta", delta.Neg())
	if err != nil {
		return decimal.Zero, err
	}
	var m stockModel
	err = r.col.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "quantity": bson.M{"$gte": floor}},
		bson.M{
			"$inc": bson.M{"quantity": inc, "version": 1},
			"$set": bson.M{"updated_at": time.Now().UTC()},
		},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&m)
	if err == nil {
		return fromD128("quantity", m.Quantity)
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return decimal.Zero, fmt.Errorf("mongo: increment stock: %w", err)
	}
	current, _, err := r.GetQuantity(ctx, id)
	if err != nil {
		return decimal.Zero, err
	}
	return current, fmt.Errorf("mongo: increment %s: %w", id, domain.ErrInsufficientStock)
}

// UpdateDetails $set sobre los campos descriptivos; cantidad y versión quedan fuera.
func (r *StockRepo) UpdateDetails(ctx context.Context, s *entity.StockRecord) error {
	var c decimalCodec
	set := bson.M{
		"name":       s.Name,
		"unit":       s.Unit,
		"category":   s.Category,
		"cost":       c.to("cost", s.Cost),
		"updated_at": time.Now().UTC(),
	}
	if s.MinThreshold != nil {
		set["min_threshold"] = c.to("min_threshold", *s.MinThreshold)
	} else {
		set["min_threshold"] = nil
	}
	if c.err != nil {
		return c.err
	}
	var m stockModel
	err := r.col.FindOneAndUpdate(ctx,
		bson.M{"_id": s.ID},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&m)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return fmt.Errorf("mongo: update stock %s: %w", s.ID, domain.ErrNotFound)
		}
		return fmt.Errorf("mongo: update stock: %w", err)
	}
	updated, err := fromStockModel(&m)
	if err != nil {
		return err
	}
	*s = *updated
	return nil
}

func (r *StockRepo) Delete(ctx context.Context, id string) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("mongo: delete stock: %w", err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("mongo: delete stock %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

func (r *StockRepo) ListBelowThreshold(ctx context.Context) ([]*entity.StockRecord, error) {
	filter := bson.M{
		"min_threshold": bson.M{"$ne": nil},
		"$expr":         bson.M{"$lt": bson.A{"$quantity", "$min_threshold"}},
	}
	return r.find(ctx, filter, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
}

func (r *StockRepo) find(ctx context.Context, filter bson.M, opts *options.FindOptionsBuilder) ([]*entity.StockRecord, error) {
	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo: list stock: %w", err)
	}
	var models []stockModel
	if err := cur.All(ctx, &models); err != nil {
		return nil, fmt.Errorf("mongo: decode stock: %w", err)
	}
	list := make([]*entity.StockRecord, 0, len(models))
	for i := range models {
		s, err := fromStockModel(&models[i])
		if err != nil {
			return nil, err
		}
		list = append(list, s)
	}
	return list, nil
}

// ==================== Ajustes ====================

var _ repository.AdjustmentRepository = (*AdjustmentRepo)(nil)

type AdjustmentRepo struct {
	col *mongo.Collection
}

func (r *AdjustmentRepo) Create(ctx context.Context, a *entity.InventoryAdjustment) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	m, err := toAdjustmentModel(a)
	if err != nil {
		return err
	}
	if _, err := r.col.InsertOne(ctx, m); err != nil {
		return fmt.Errorf("mongo: create adjustment: %w", err)
	}
	return nil
}

func (r *AdjustmentRepo) ListByStock(ctx context.Context, stockID string, limit, offset int) ([]*entity.InventoryAdjustment, int, error) {
	return r.page(ctx, bson.M{"stock_id": stockID}, limit, offset)
}

func (r *AdjustmentRepo) List(ctx context.Context, limit, offset int) ([]*entity.InventoryAdjustment, int, error) {
	return r.page(ctx, bson.M{}, limit, offset)
}

func (r *AdjustmentRepo) page(ctx context.Context, filter bson.M, limit, offset int) ([]*entity.InventoryAdjustment, int, error) {
	total, err := r.col.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("mongo: count adjustments: %w", err)
	}
	opts := findPage(limit, offset).SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("mongo: list adjustments: %w", err)
	}
	var models []adjustmentModel
	if err := cur.All(ctx, &models); err != nil {
		return nil, 0, fmt.Errorf("mongo: decode adjustments: %w", err)
	}
	list := make([]*entity.InventoryAdjustment, 0, len(models))
	for i := range models {
		a, err := fromAdjustmentModel(&models[i])
		if err != nil {
			return nil, 0, err
		}
		list = append(list, a)
	}
	return list, int(total), nil
}

// ==================== Ventas ====================

var _ repository.SaleRepository = (*SaleRepo)(nil)

type SaleRepo struct {
	col *mongo.Collection
}

func (r *SaleRepo) Count(ctx context.Context) (int64, error) {
	n, err := r.col.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("mongo: count sales: %w", err)
	}
	return n, nil
}

// Create ErrDuplicate si el índice único de sale_number rechaza el documento.
func (r *SaleRepo) Create(ctx context.Context, s *entity.Sale) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	m, err := toSaleModel(s)
	if err != nil {
		return err
	}
	if _, err := r.col.InsertOne(ctx, m); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("mongo: create sale %s: %w", s.SaleNumber, domain.ErrDuplicate)
		}
		return fmt.Errorf("mongo: create sale: %w", err)
	}
	return nil
}

func (r *SaleRepo) GetByID(ctx context.Context, id string) (*entity.Sale, error) {
	var m saleModel
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&m); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("mongo: get sale: %w", err)
	}
	return fromSaleModel(&m)
}

func (r *SaleRepo) List(ctx context.Context, limit, offset int) ([]*entity.Sale, int, error) {
	total, err := r.col.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, 0, fmt.Errorf("mongo: count sales: %w", err)
	}
	opts := findPage(limit, offset).SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "sale_number", Value: -1}})
	cur, err := r.col.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("mongo: list sales: %w", err)
	}
	var models []saleModel
	if err := cur.All(ctx, &models); err != nil {
		return nil, 0, fmt.Errorf("mongo: decode sales: %w", err)
	}
	list := make([]*entity.Sale, 0, len(models))
	for i := range models {
		s, err := fromSaleModel(&models[i])
		if err != nil {
			return nil, 0, err
		}
		list = append(list, s)
	}
	return list, int(total), nil
}

// MarkCancelled UpdateOne filtrado por status completed.
func (r *SaleRepo) MarkCancelled(ctx context.Context, id, actorID string, at time.Time) (bool, error) {
	res, err := r.col.UpdateOne(ctx,
		bson.M{"_id": id, "status": entity.SaleStatusCompleted},
		bson.M{"$set": bson.M{
			"status":       entity.SaleStatusCancelled,
			"cancelled_by": actorID,
			"cancelled_at": at,
			"updated_at":   at,
		}},
	)
	if err != nil {
		return false, fmt.Errorf("mongo: cancel sale: %w", err)
	}
	if res.MatchedCount == 1 {
		return true, nil
	}
	n, err := r.col.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return false, fmt.Errorf("mongo: cancel sale: %w", err)
	}
	if n == 0 {
		return false, fmt.Errorf("mongo: cancel sale %s: %w", id, domain.ErrNotFound)
	}
	return false, nil
}

func (r *SaleRepo) SetConsumption(ctx context.Context, id string, consumption []entity.StockDelta, at time.Time) error {
	var c decimalCodec
	cs := make([]stockDeltaModel, len(consumption))
	for i, d := range consumption {
		cs[i] = stockDeltaModel{StockID: d.StockID, Quantity: c.to("consumption.quantity", d.Quantity)}
	}
	if c.err != nil {
		return c.err
	}
	res, err := r.col.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"consumption": cs, "updated_at": at}},
	)
	if err != nil {
		return fmt.Errorf("mongo: set sale consumption: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("mongo: set sale consumption %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

func (r *SaleRepo) Delete(ctx context.Context, id string) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("mongo: delete sale: %w", err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("mongo: delete sale %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

func (r *SaleRepo) IsStockConsumed(ctx context.Context, stockID string) (bool, error) {
	filter := bson.M{"status": entity.SaleStatusCompleted, "consumption.stock_id": stockID}
	n, err := r.col.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("mongo: sale consumption lookup: %w", err)
	}
	return n > 0, nil
}

// ==================== Recetas ====================

var _ repository.RecipeRepository = (*RecipeRepo)(nil)

type RecipeRepo struct {
	col *mongo.Collection
}

func (r *RecipeRepo) Save(ctx context.Context, rec *entity.Recipe) error {
	now := time.Now().UTC()
	if rec.ID == "" {
		existing, err := r.GetActiveByProduct(ctx, rec.ProductID)
		if err != nil {
			return err
		}
		if existing != nil {
			rec.ID, rec.CreatedAt = existing.ID, existing.CreatedAt
		} else {
			rec.ID = uuid.New().String()
		}
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now

	if _, err := r.col.UpdateMany(ctx,
		bson.M{"product_id": rec.ProductID, "active": true, "_id": bson.M{"$ne": rec.ID}},
		bson.M{"$set": bson.M{"active": false, "updated_at": now}},
	); err != nil {
		return fmt.Errorf("mongo: deactivate previous recipe: %w", err)
	}

	m, err := toRecipeModel(rec)
	if err != nil {
		return err
	}
	if _, err := r.col.ReplaceOne(ctx, bson.M{"_id": rec.ID}, m, options.Replace().SetUpsert(true)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("mongo: save recipe %s: %w", rec.ProductID, domain.ErrDuplicate)
		}
		return fmt.Errorf("mongo: save recipe: %w", err)
	}
	return nil
}

func (r *RecipeRepo) GetActiveByProduct(ctx context.Context, productID string) (*entity.Recipe, error) {
	return r.findOne(ctx, bson.M{"product_id": productID, "active": true})
}

func (r *RecipeRepo) GetByID(ctx context.Context, id string) (*entity.Recipe, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *RecipeRepo) List(ctx context.Context, limit, offset int) ([]*entity.Recipe, int, error) {
	total, err := r.col.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, 0, fmt.Errorf("mongo: count recipes: %w", err)
	}
	opts := findPage(limit, offset).SetSort(bson.D{{Key: "name", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := r.col.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("mongo: list recipes: %w", err)
	}
	var models []recipeModel
	if err := cur.All(ctx, &models); err != nil {
		return nil, 0, fmt.Errorf("mongo: decode recipes: %w", err)
	}
	list := make([]*entity.Recipe, 0, len(models))
	for i := range models {
		rec, err := fromRecipeModel(&models[i])
		if err != nil {
			return nil, 0, err
		}
		list = append(list, rec)
	}
	return list, int(total), nil
}

func (r *RecipeRepo) Deactivate(ctx context.Context, id string) error {
	res, err := r.col.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"active": false, "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return fmt.Errorf("mongo: deactivate recipe: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("mongo: deactivate recipe %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

func (r *RecipeRepo) IsStockReferenced(ctx context.Context, stockID string) (bool, error) {
	filter := bson.M{
		"active": true,
		"$or": bson.A{
			bson.M{"product_id": stockID},
			bson.M{"ingredients.stock_id": stockID},
		},
	}
	n, err := r.col.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("mongo: recipe references: %w", err)
	}
	return n > 0, nil
}

func (r *RecipeRepo) findOne(ctx context.Context, filter bson.M) (*entity.Recipe, error) {
	var m recipeModel
	if err := r.col.FindOne(ctx, filter).Decode(&m); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("mongo: get recipe: %w", err)
	}
	return fromRecipeModel(&m)
}
