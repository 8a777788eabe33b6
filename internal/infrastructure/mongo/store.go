package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/SG-DATA-TECH-SOLUTIONS/macanudo-backend/internal/application/ports"
	"github.com/SG-DATA-TECH-SOLUTIONS/macanudo-backend/internal/domain/repository"
	"github.com/SG-DATA-TECH-SOLUTIONS/macanudo-backend/pkg/config"
)

// Collection name constants.
const (
	colStocks      = "stock_records"
	colAdjustments = "inventory_adjustments"
	colSales       = "sales"
	colRecipes     = "recipes"
)

var _ ports.TxRunner = (*Store)(nil)

// Store adaptador MongoDB del libro de stock. Con transactions=false cada escritura
// es atómica por documento pero no entre documentos: Atomic() lo informa al motor.
type Store struct {
	client       *mongo.Client
	db           *mongo.Database
	transactions bool
}

// Connect abre el cliente y verifica conectividad.
func Connect(ctx context.Context, cfg config.MongoConfig) (*Store, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("mongo: connect: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("mongo: ping: %w", err)
	}
	return New(client, cfg.Database, cfg.Transactions), nil
}

// New envuelve un cliente ya conectado.
func New(client *mongo.Client, database string, transactions bool) *Store {
	return &Store{client: client, db: client.Database(database), transactions: transactions}
}

// Migrate crea los índices de todas las colecciones.
func (s *Store) Migrate(ctx context.Context) error {
	for col, models := range migrationIndexes() {
		if _, err := s.db.Collection(col).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("mongo: migrate %s indexes: %w", col, err)
		}
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

// Close desconecta el cliente.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *Store) Stocks() repository.StockRepository { return &StockRepo{col: s.db.Collection(colStocks)} }

func (s *Store) Adjustments() repository.AdjustmentRepository {
	return &AdjustmentRepo{col: s.db.Collection(colAdjustments)}
}

func (s *Store) Sales() repository.SaleRepository { return &SaleRepo{col: s.db.Collection(colSales)} }

func (s *Store) Recipes() repository.RecipeRepository {
	return &RecipeRepo{col: s.db.Collection(colRecipes)}
}

// Atomic true solo con transacciones multi-documento (requiere replica set).
func (s *Store) Atomic() bool { return s.transactions }

// Run ejecuta fn en una transacción de sesión, o directamente si están deshabilitadas.
func (s *Store) Run(ctx context.Context, fn func(ctx context.Context, repos ports.TxRepos) error) error {
	repos := ports.TxRepos{
		Stock:       s.Stocks(),
		Adjustments: s.Adjustments(),
		Sales:       s.Sales(),
		Recipes:     s.Recipes(),
	}
	if !s.transactions {
		return fn(ctx, repos)
	}

	sess, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("mongo: start session: %w", err)
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(ctx context.Context) (any, error) {
		return nil, fn(ctx, repos)
	})
	return err
}

func migrationIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		colStocks: {
			{Keys: bson.D{{Key: "name", Value: 1}}},
		},
		colAdjustments: {
			{Keys: bson.D{{Key: "stock_id", Value: 1}, {Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "created_at", Value: -1}}},
		},
		colSales: {
			{
				Keys:    bson.D{{Key: "sale_number", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "consumption.stock_id", Value: 1}}},
		},
		colRecipes: {
			{
				Keys:    bson.D{{Key: "product_id", Value: 1}},
				Options: options.Index().SetUnique(true).SetPartialFilterExpression(bson.M{"active": true}),
			},
			{Keys: bson.D{{Key: "ingredients.stock_id", Value: 1}}},
		},
	}
}

func findPage(limit, offset int) *options.FindOptionsBuilder {
	return options.Find().SetSkip(int64(offset)).SetLimit(int64(limit))
}
