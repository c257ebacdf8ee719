// Package milvus 提供 Milvus 向量数据库访问层实现
package milvus

import (
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
)

const (
	// CollectionRequestEmbeddings 请求向量集合，用于语义缓存的近邻检索
	CollectionRequestEmbeddings = "request_embeddings"

	// VectorDimension 向量维度
	VectorDimension = 1024
)

// RequestEmbeddingsSchema 请求向量 Collection Schema
func RequestEmbeddingsSchema() *entity.Schema {
	return &entity.Schema{
		CollectionName: CollectionRequestEmbeddings,
		Description:    "Generation request embeddings for semantic cache lookup",
		Fields: []*entity.Field{
			{
				Name:       "id",
				DataType:   entity.FieldTypeVarChar,
				PrimaryKey: true,
				AutoID:     false,
				TypeParams: map[string]string{
					"max_length": "64",
				},
			},
			{
				Name:     "vector",
				DataType: entity.FieldTypeFloatVector,
				TypeParams: map[string]string{
					"dim": "1024",
				},
			},
			{
				Name:     "request_hash",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "64",
				},
			},
			{
				Name:     "industry",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "32",
				},
			},
			{
				Name:     "style",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "32",
				},
			},
			{
				Name:     "cache_key",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "128",
				},
			},
			{
				Name:     "created_at",
				DataType: entity.FieldTypeInt64,
			},
		},
	}
}

// RequestEmbedding 请求向量数据结构
type RequestEmbedding struct {
	ID          string    `json:"id"`
	Vector      []float32 `json:"vector"`
	RequestHash string    `json:"request_hash"`
	Industry    string    `json:"industry"`
	Style       string    `json:"style"`
	CacheKey    string    `json:"cache_key"`
	CreatedAt   int64     `json:"created_at"`
}
