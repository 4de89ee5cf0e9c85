package repository

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/guregu/dynamo/v2"
	"github.com/pyama86/YAIR/domain/entity"
)

var correlationsTable = "correlations"

func init() {
	if os.Getenv("DYNAMO_CORRELATIONS_TABLE") != "" {
		correlationsTable = os.Getenv("DYNAMO_CORRELATIONS_TABLE")
	}
}

// NewDynamoDBRepository は対応表をDynamoDBに置く。プロセス再起動を
// 跨いで未解決Issueを閉じられるようにするための永続バックエンド。
func NewDynamoDBRepository() (*DynamoDBRepository, error) {
	var db *dynamo.DB
	if os.Getenv("DYNAMO_LOCAL") != "" {
		cfg, err := config.LoadDefaultConfig(context.TODO(),
			config.WithRegion("dummy"),
			config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider("dummy", "dummy", "dummy")),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to load configuration: %v", err)
		}
		db = dynamo.New(cfg, func(o *dynamodb.Options) {
			o.BaseEndpoint = aws.String("http://localhost:8000")
		},
		)

		err = setupDdbSchema(db)
		if err != nil {
			return nil, fmt.Errorf("failed to setup schema: %v", err)
		}
	} else {
		cfg, err := config.LoadDefaultConfig(context.TODO())
		if err != nil {
			return nil, fmt.Errorf("failed to load configuration: %v", err)
		}
		db = dynamo.New(cfg)
	}

	return &DynamoDBRepository{db: db}, nil
}

func setupDdbSchema(db *dynamo.DB) error {
	t := db.Table(correlationsTable)
	_, err := t.Describe().Run(context.TODO())
	if err != nil {

		input := db.CreateTable(correlationsTable, entity.Correlation{}).
			Provision(10, 10)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		return input.Run(ctx)
	}
	return nil
}

type DynamoDBRepository struct {
	db *dynamo.DB
}

func (r *DynamoDBRepository) FindCorrelation(ctx context.Context, monitorID string) (*entity.Correlation, error) {
	correlation := &entity.Correlation{}
	err := r.db.Table(correlationsTable).Get("monitor_id", monitorID).One(ctx, correlation)
	if err != nil {
		if err == dynamo.ErrNotFound {
			return nil, nil
		}
		return nil, err
	}
	return correlation, nil
}

func (r *DynamoDBRepository) SaveCorrelation(ctx context.Context, c *entity.Correlation) error {
	return r.db.Table(correlationsTable).Put(c).Run(ctx)
}

func (r *DynamoDBRepository) DeleteCorrelation(ctx context.Context, monitorID string) error {
	return r.db.Table(correlationsTable).Delete("monitor_id", monitorID).Run(ctx)
}
