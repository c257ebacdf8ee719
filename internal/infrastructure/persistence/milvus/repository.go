// Package milvus 提供 Milvus 向量数据库访问层实现
package milvus

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/milvus-io/milvus-sdk-go/v2/entity"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"namepilot-ai-api/pkg/metrics"
)

// Repository 请求向量仓储
type Repository struct {
	client *Client
}

// NewRepository 创建请求向量仓储
func NewRepository(client *Client) *Repository {
	return &Repository{client: client}
}

// SearchParams 近邻检索参数
type SearchParams struct {
	QueryVector []float32
	Industry    string
	Style       string
	Threshold   float32
	TopK        int
}

// SearchResult 近邻检索结果
type SearchResult struct {
	ID          string
	Score       float32
	RequestHash string
	CacheKey    string
}

// CreateCollection 创建集合
func (r *Repository) CreateCollection(ctx context.Context, schema *entity.Schema) error {
	if r == nil || r.client == nil || r.client.milvus == nil {
		return fmt.Errorf("milvus client not configured")
	}
	ctx, span := tracer.Start(ctx, "milvus.CreateCollection",
		trace.WithAttributes(attribute.String("collection", schema.CollectionName)))
	defer span.End()

	collName := r.client.CollectionName(schema.CollectionName)
	schema.CollectionName = collName

	err := r.client.milvus.CreateCollection(ctx, schema, entity.DefaultShardNumber)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create collection: %w", err)
	}

	return nil
}

// CreateIndex 创建 HNSW 索引
func (r *Repository) CreateIndex(ctx context.Context, collection string) error {
	if r == nil || r.client == nil || r.client.milvus == nil {
		return fmt.Errorf("milvus client not configured")
	}
	ctx, span := tracer.Start(ctx, "milvus.CreateIndex",
		trace.WithAttributes(attribute.String("collection", collection)))
	defer span.End()

	collName := r.client.CollectionName(collection)

	idx, err := entity.NewIndexHNSW(
		entity.COSINE,
		r.client.config.HNSWM,
		r.client.config.HNSWEfConstruction,
	)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create index: %w", err)
	}

	err = r.client.milvus.CreateIndex(ctx, collName, "vector", idx, false)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create index: %w", err)
	}

	return nil
}

// SearchSimilar 按余弦相似度检索相近请求
// 仅返回得分不低于 Threshold 的结果，按相似度降序
func (r *Repository) SearchSimilar(ctx context.Context, params *SearchParams) ([]*SearchResult, error) {
	if r == nil || r.client == nil || r.client.milvus == nil {
		return nil, fmt.Errorf("milvus client not configured")
	}
	ctx, span := tracer.Start(ctx, "milvus.SearchSimilar",
		trace.WithAttributes(
			attribute.String("industry", params.Industry),
			attribute.Int("top_k", params.TopK),
		))
	defer span.End()

	start := time.Now()
	collName := r.client.CollectionName(CollectionRequestEmbeddings)

	// 构建过滤表达式：只在同业同风格的请求中找近邻
	var filters []string
	if params.Industry != "" {
		filters = append(filters, fmt.Sprintf(`industry == "%s"`, params.Industry))
	}
	if params.Style != "" {
		filters = append(filters, fmt.Sprintf(`style == "%s"`, params.Style))
	}
	filter := strings.Join(filters, " && ")

	sp, err := entity.NewIndexHNSWSearchParam(128)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to create search param: %w", err)
	}

	topK := params.TopK
	if topK <= 0 {
		topK = 5
	}

	results, err := r.client.milvus.Search(ctx,
		collName,
		nil,
		filter,
		[]string{"id", "request_hash", "cache_key"},
		[]entity.Vector{entity.FloatVector(params.QueryVector)},
		"vector",
		entity.COSINE,
		topK,
		sp,
	)
	metrics.MilvusSearchDuration.WithLabelValues(CollectionRequestEmbeddings).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.MilvusSearchTotal.WithLabelValues(CollectionRequestEmbeddings, "error").Inc()
		span.RecordError(err)
		return nil, fmt.Errorf("failed to search: %w", err)
	}
	metrics.MilvusSearchTotal.WithLabelValues(CollectionRequestEmbeddings, "success").Inc()

	var searchResults []*SearchResult
	for _, result := range results {
		for i := 0; i < result.ResultCount; i++ {
			// COSINE 度量下得分越高越相似
			if result.Scores[i] < params.Threshold {
				continue
			}
			sr := &SearchResult{
				Score: result.Scores[i],
			}
			if idCol, ok := result.Fields.GetColumn("id").(*entity.ColumnVarChar); ok {
				sr.ID, _ = idCol.ValueByIdx(i)
			}
			if hashCol, ok := result.Fields.GetColumn("request_hash").(*entity.ColumnVarChar); ok {
				sr.RequestHash, _ = hashCol.ValueByIdx(i)
			}
			if keyCol, ok := result.Fields.GetColumn("cache_key").(*entity.ColumnVarChar); ok {
				sr.CacheKey, _ = keyCol.ValueByIdx(i)
			}
			searchResults = append(searchResults, sr)
		}
	}

	span.SetAttributes(attribute.Int("result_count", len(searchResults)))
	return searchResults, nil
}

// Upsert 写入请求向量（同 hash 先删后插）
func (r *Repository) Upsert(ctx context.Context, emb *RequestEmbedding) error {
	if r == nil || r.client == nil || r.client.milvus == nil {
		return fmt.Errorf("milvus client not configured")
	}
	ctx, span := tracer.Start(ctx, "milvus.Upsert",
		trace.WithAttributes(attribute.String("request_hash", emb.RequestHash)))
	defer span.End()

	collName := r.client.CollectionName(CollectionRequestEmbeddings)

	// 同一请求 hash 的旧向量先删除，保持唯一
	filter := fmt.Sprintf(`request_hash == "%s"`, emb.RequestHash)
	if err := r.client.milvus.Delete(ctx, collName, "", filter); err != nil {
		// 删除失败不阻塞写入，旧条目由检索侧的 cache_key 校验兜底
		span.RecordError(err)
	}

	idCol := entity.NewColumnVarChar("id", []string{emb.ID})
	vectorCol := entity.NewColumnFloatVector("vector", VectorDimension, [][]float32{emb.Vector})
	hashCol := entity.NewColumnVarChar("request_hash", []string{emb.RequestHash})
	industryCol := entity.NewColumnVarChar("industry", []string{emb.Industry})
	styleCol := entity.NewColumnVarChar("style", []string{emb.Style})
	keyCol := entity.NewColumnVarChar("cache_key", []string{emb.CacheKey})
	createdCol := entity.NewColumnInt64("created_at", []int64{emb.CreatedAt})

	_, err := r.client.milvus.Insert(ctx, collName, "",
		idCol, vectorCol, hashCol, industryCol, styleCol, keyCol, createdCol)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to insert request embedding: %w", err)
	}

	return nil
}

// EnsureCollection 确保集合与索引可用（不存在则创建）。
// 约束：不会做 drop/rebuild 等破坏性操作。
func (r *Repository) EnsureCollection(ctx context.Context) error {
	if r == nil || r.client == nil || r.client.milvus == nil {
		return fmt.Errorf("milvus client not configured")
	}

	exists, err := r.client.HasCollection(ctx, CollectionRequestEmbeddings)
	if err != nil {
		return err
	}
	if !exists {
		if err := r.CreateCollection(ctx, RequestEmbeddingsSchema()); err != nil {
			return err
		}
		// 新建集合时创建索引；若失败，允许后续由运维介入。
		_ = r.CreateIndex(ctx, CollectionRequestEmbeddings)
	}

	return r.client.LoadCollection(ctx, CollectionRequestEmbeddings)
}
