package vars

import (
	"os"
)

// GetEnv 获取环境变量，如果不存在则返回默认值
func GetEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

const (
	// 模型名称
	NOMIC    = "nomic-embed-text"
	BGEM3    = "bge-m3"
	QWEN7B   = "qwen2.5:7b"
	LLAMA70B = "llama-3.3-70b"

	// 模型提供方
	OLLAMA = "ollama"
	OPENAI = "openai"

	// Milvus Collection / ES index
	COLLECTION = "contract_chunks_v3"
	ESINDEX    = "contract_chunks_v3"

	// 数据库驱动
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	// 检索方式
	ML = "vector"
	ES = "keyword"
	HY = "hybrid"

	// chunk 元数据 key
	MetaContractID = "contract_id"
	MetaSource     = "source"
	MetaChunkID    = "chunk_id"

	DateLayout = "2006-01-02"
)

// ClauseCategories 条款抽取阶段固定检索的条款类别
var ClauseCategories = []string{"Termination", "Confidentiality", "Liability", "Payment Terms", "Renewal"}

// LifecycleQuery 生命周期阶段的检索语句（日期、期限、续约、通知期）
const LifecycleQuery = "effective date start date expiration term renewal notice period"

const (
	ClauseTopK    = 3
	LifecycleTopK = 5
	ScopedQATopK  = 5
	GlobalQATopK  = 10
)

// 环境变量配置（支持 Docker 部署）
var (
	// LLM
	LLM_PROVIDER = GetEnv("LLM_PROVIDER", OLLAMA)
	LLM_BASE_URL = GetEnv("LLM_BASE_URL", "http://localhost:11434")
	LLM_API_KEY  = GetEnv("LLM_API_KEY", "")
	LLM_MODEL    = GetEnv("LLM_MODEL", QWEN7B)

	// OLLAMA embedding
	OLLAMA_PATH = GetEnv("OLLAMA_PATH", "http://localhost:11434")
	EMBED_MODEL = GetEnv("EMBED_MODEL", NOMIC)

	// DB
	DB_DRIVER   = GetEnv("DB_DRIVER", DriverPostgres)
	PGUSER      = GetEnv("PGUSER", "root")
	PGPWD       = GetEnv("PGPWD", "")
	PGDB        = GetEnv("PGDB", "contracts")
	PGHOST      = GetEnv("PGHOST", "localhost")
	PGPORT      = GetEnv("PGPORT", "5432")
	SQLITE_PATH = GetEnv("SQLITE_PATH", "contracts.db")

	// Milvus
	MILVUSADDR = GetEnv("MILVUSADDR", "127.0.0.1:19530")

	// ES
	ESADDR = GetEnv("ESADDR", "http://localhost:9200")

	// Retrieval
	RETRIEVAL_MODE = GetEnv("RETRIEVAL_MODE", HY)

	// MinIO（为空则落本地目录）
	MINIO_ENDPOINT   = GetEnv("MINIO_ENDPOINT", "")
	MINIO_ACCESS_KEY = GetEnv("MINIO_ACCESS_KEY", "")
	MINIO_SECRET_KEY = GetEnv("MINIO_SECRET_KEY", "")
	MINIO_BUCKET     = GetEnv("MINIO_BUCKET", "contracts")
	UPLOAD_DIR       = GetEnv("UPLOAD_DIR", "uploads")

	// Log
	LOG_LEVEL  = GetEnv("LOG_LEVEL", "info")
	LOG_FORMAT = GetEnv("LOG_FORMAT", "text")
)
